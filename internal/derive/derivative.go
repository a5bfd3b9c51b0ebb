package derive

import (
	"bytes"
	"encoding/base64"
)

// MIME types produced by this package.
const (
	MIMEJPEG  = "image/jpeg"
	MIMEPNG   = "image/png"
	MIMEOctet = "application/octet-stream"
)

var pngSignature = []byte("\x89PNG\r\n\x1a\n")

// Derivative is a computed representation of an artifact. Data may be
// shared with the cache and must not be modified.
type Derivative struct {
	Data []byte
	MIME string
	// Fallback is set when Data holds the raw source bytes because the
	// transform failed.
	Fallback bool
}

// Base64 returns Data in standard base64.
func (d Derivative) Base64() string {
	return base64.StdEncoding.EncodeToString(d.Data)
}

// DataURL returns Data as a data: URL.
func (d Derivative) DataURL() string {
	return "data:" + d.MIME + ";base64," + d.Base64()
}

// Len returns the payload size in bytes.
func (d Derivative) Len() int {
	return len(d.Data)
}

// sniffRaw labels fallback bytes.
func sniffRaw(raw []byte) string {
	if bytes.HasPrefix(raw, pngSignature) {
		return MIMEPNG
	}
	return MIMEOctet
}
