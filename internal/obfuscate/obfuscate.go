package obfuscate

import "bytes"

// MarkerLen is the length of the envelope prefix in bytes.
const MarkerLen = 4

// marker is kept unexported so callers cannot mutate it.
var marker = [MarkerLen]byte{0x00, 0x01, 0x02, 0x03}

// Marker returns a copy of the envelope prefix.
func Marker() []byte {
	m := marker
	return m[:]
}

// Wrap returns a new slice holding the marker followed by raw.
// raw is never modified.
func Wrap(raw []byte) []byte {
	out := make([]byte, MarkerLen+len(raw))
	copy(out, marker[:])
	copy(out[MarkerLen:], raw)
	return out
}

// Unwrap strips the marker when stored begins with it and otherwise returns
// stored unchanged. The returned slice aliases stored; no copy is made.
func Unwrap(stored []byte) []byte {
	if !IsWrapped(stored) {
		return stored
	}
	return stored[MarkerLen:]
}

// IsWrapped reports whether stored begins with the marker.
func IsWrapped(stored []byte) bool {
	return len(stored) >= MarkerLen && bytes.Equal(stored[:MarkerLen], marker[:])
}
