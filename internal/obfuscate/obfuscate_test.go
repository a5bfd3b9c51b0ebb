package obfuscate

import (
	"bytes"
	"crypto/rand"
	"testing"
)

func TestWrap_PrependsMarker(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	got := Wrap(raw)

	if len(got) != MarkerLen+len(raw) {
		t.Fatalf("len(Wrap) = %d, want %d", len(got), MarkerLen+len(raw))
	}
	if !bytes.Equal(got[:MarkerLen], Marker()) {
		t.Errorf("prefix = %x, want %x", got[:MarkerLen], Marker())
	}
	if !bytes.Equal(got[MarkerLen:], raw) {
		t.Errorf("payload = %x, want %x", got[MarkerLen:], raw)
	}
}

func TestWrap_DoesNotAliasInput(t *testing.T) {
	raw := []byte("abc")
	out := Wrap(raw)
	out[MarkerLen] = 'z'
	if raw[0] != 'a' {
		t.Error("Wrap output must not share memory with its input")
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"nil", nil},
		{"one byte", []byte{0x00}},
		{"marker only", Marker()},
		{"starts with marker", append(Marker(), 0x03, 0x02)},
		{"text", []byte("hello world")},
	}

	random := make([]byte, 4096)
	if _, err := rand.Read(random); err != nil {
		t.Fatalf("rand.Read: %v", err)
	}
	tests = append(tests, struct {
		name string
		data []byte
	}{"random", random})

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unwrap(Wrap(tt.data))
			if !bytes.Equal(got, tt.data) {
				t.Errorf("Unwrap(Wrap(b)) = %x, want %x", got, tt.data)
			}
		})
	}
}

func TestUnwrap_PassesThroughUnmarked(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"shorter than marker", []byte{0x00, 0x01, 0x02}},
		{"png signature", []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}},
		{"near miss", []byte{0x00, 0x01, 0x02, 0x04, 0xff}},
		{"marker at offset one", []byte{0xff, 0x00, 0x01, 0x02, 0x03}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Unwrap(tt.data)
			if !bytes.Equal(got, tt.data) {
				t.Errorf("Unwrap(%x) = %x, want input unchanged", tt.data, got)
			}
			if IsWrapped(tt.data) {
				t.Errorf("IsWrapped(%x) = true, want false", tt.data)
			}
		})
	}
}

func TestMarker_ReturnsCopy(t *testing.T) {
	m := Marker()
	m[0] = 0xff
	if Marker()[0] != 0x00 {
		t.Error("mutating the result of Marker must not change the envelope")
	}
}
