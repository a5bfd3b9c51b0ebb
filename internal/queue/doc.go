// Package queue implements the bounded on-disk capture queue.
//
// A Queue holds two independent sequences of artifacts, one per [View].
// Each sequence is capped at a fixed length; pushing past the cap evicts
// the oldest artifact and securely erases its file. Artifacts live in a
// lazily created, randomly named directory per sequence under the storage
// root, carry innocuous randomized names with no extension, and are
// stored wrapped by the obfuscate codec.
//
// # Ordering
//
// Every artifact is assigned a monotonically increasing sequence number
// when it is enqueued. A sequence is an arena indexed by that number, so
// eviction always removes the smallest number still present and deletes
// never shift positions.
//
// # Persistence
//
// With persistence enabled the sequences are mirrored to a manifest file
// (.idx) in the storage root. Every mutation reloads the manifest, applies
// the change and writes it back atomically while holding an exclusive
// file lock, so separate processes share one queue. Entries whose files
// have disappeared are dropped on load.
//
// # Thread Safety
//
// Mutations on one sequence are serialized by a per-sequence mutex, so
// enqueue-then-evict is atomic with respect to concurrent deletes. At most
// one capture runs at a time per Queue, which keeps before/after hooks
// from interleaving.
package queue
