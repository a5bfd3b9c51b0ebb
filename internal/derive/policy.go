package derive

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

// Policy holds the transform constants for both kinds.
type Policy struct {
	// MaxWidth caps Full derivatives; narrower images keep their size.
	MaxWidth    int
	FullQuality int
	// ThumbWidth and ThumbHeight bound Thumbnail derivatives.
	ThumbWidth   int
	ThumbHeight  int
	ThumbQuality int
}

// DefaultPolicy returns the standard transform constants.
func DefaultPolicy() Policy {
	return Policy{
		MaxWidth:     2048,
		FullQuality:  92,
		ThumbWidth:   400,
		ThumbHeight:  300,
		ThumbQuality: 75,
	}
}

// withDefaults fills zero fields from DefaultPolicy.
func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxWidth <= 0 {
		p.MaxWidth = d.MaxWidth
	}
	if p.FullQuality <= 0 {
		p.FullQuality = d.FullQuality
	}
	if p.ThumbWidth <= 0 {
		p.ThumbWidth = d.ThumbWidth
	}
	if p.ThumbHeight <= 0 {
		p.ThumbHeight = d.ThumbHeight
	}
	if p.ThumbQuality <= 0 {
		p.ThumbQuality = d.ThumbQuality
	}
	return p
}

// Transform decodes raw and produces the kind's JPEG encoding. It is
// deterministic for identical input and policy. Failures are
// *errors.CodecError.
func (p Policy) Transform(kind Kind, raw []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, gerrors.NewCodecError("decode source image", fmt.Errorf("%w: %w", gerrors.ErrDecode, err)).
			WithKind(string(kind))
	}

	var quality int
	switch kind {
	case Full:
		img = p.fitWidth(img)
		quality = p.FullQuality
	case Thumbnail:
		// Fit never enlarges an image that already fits.
		img = imaging.Fit(img, p.ThumbWidth, p.ThumbHeight, imaging.Lanczos)
		quality = p.ThumbQuality
	default:
		return nil, unknownKind(kind)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, gerrors.NewCodecError("encode derivative", fmt.Errorf("%w: %w", gerrors.ErrEncode, err)).
			WithKind(string(kind))
	}
	return buf.Bytes(), nil
}

// fitWidth downscales img to MaxWidth, preserving aspect ratio.
// Lanczos keeps small text legible.
func (p Policy) fitWidth(img image.Image) image.Image {
	if img.Bounds().Dx() <= p.MaxWidth {
		return img
	}
	return imaging.Resize(img, p.MaxWidth, 0, imaging.Lanczos)
}
