package queue

import (
	"strings"

	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

// View selects one of the two parallel sequences.
type View string

const (
	// Primary is the main capture sequence.
	Primary View = "primary"
	// Secondary is the auxiliary capture sequence.
	Secondary View = "secondary"
)

// Views returns both views in a stable order.
func Views() []View {
	return []View{Primary, Secondary}
}

// Valid reports whether v names a known view.
func (v View) Valid() bool {
	return v == Primary || v == Secondary
}

func (v View) String() string {
	return string(v)
}

// dirPrefix is the leading component of the sequence directory name.
func (v View) dirPrefix() string {
	if v == Secondary {
		return ".tmp"
	}
	return ".sys"
}

// ParseView converts a user-supplied string into a View.
// The legacy names "queue" and "solutions" map to Primary and Secondary.
func ParseView(s string) (View, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "primary", "queue":
		return Primary, nil
	case "secondary", "solutions", "extra":
		return Secondary, nil
	default:
		return "", unknownView(s)
	}
}

func unknownView(v any) error {
	return gerrors.NewValidationError("unknown view").
		WithField("view").
		WithValue(v).
		WithCause(gerrors.ErrUnknownView)
}
