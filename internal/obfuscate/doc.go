// Package obfuscate implements the storage envelope applied to every artifact
// written by glimpse.
//
// An envelope is a fixed four-byte [Marker] followed by the original encoded
// image bytes, verbatim. The marker hides the image signature (PNG, JPEG)
// that would otherwise sit at offset zero on disk. There is no container
// format, checksum, or length prefix.
//
// [Wrap] and [Unwrap] are pure and never fail: any byte sequence is a legal
// input. [Unwrap] strips the marker only when the first four bytes match it
// exactly, so raw files written by other tools pass through unchanged.
//
//	stored := obfuscate.Wrap(pngBytes)
//	raw := obfuscate.Unwrap(stored) // == pngBytes
package obfuscate
