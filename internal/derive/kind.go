package derive

import (
	"strings"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

// Kind names a derivative representation.
type Kind string

const (
	// Full is the width-capped, high-quality JPEG for inference.
	Full Kind = "full"
	// Thumbnail is the small preview JPEG.
	Thumbnail Kind = "thumbnail"
)

// Kinds returns both kinds in a stable order.
func Kinds() []Kind {
	return []Kind{Full, Thumbnail}
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	return k == Full || k == Thumbnail
}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a user-supplied string into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "full", "ai":
		return Full, nil
	case "thumbnail", "thumb", "preview":
		return Thumbnail, nil
	default:
		return "", unknownKind(s)
	}
}

func unknownKind(v any) error {
	return gerrors.NewValidationError("unknown derivative kind").
		WithField("kind").
		WithValue(v).
		WithCause(gerrors.ErrUnknownKind)
}
