// Package erase implements best-effort secure deletion of artifact files.
//
// [Erase] stats the file, overwrites it in place with an equal number of
// cryptographically random bytes, and unlinks it. When the overwrite fails
// the file is still deleted; only a failed delete is reported. A file that
// is already gone counts as erased.
//
// This is not a forensic wiping guarantee: journaling filesystems, SSD
// wear levelling and snapshots may retain earlier copies.
package erase
