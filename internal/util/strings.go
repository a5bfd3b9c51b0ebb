// Package util provides terminal text helpers shared by the CLI commands.
package util

import (
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

const ellipsis = "..."

// TruncateANSI truncates a string to maxWidth visual columns, adding "..." if truncated.
// ANSI escape codes and wide characters are accounted for, so styled output
// keeps its styling.
func TruncateANSI(s string, maxWidth int) string {
	if maxWidth <= len(ellipsis) {
		return ellipsis
	}
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	// ansi.Truncate includes the tail in the final width calculation
	return ansi.Truncate(s, maxWidth, ellipsis)
}

// ShortenPath fits path into maxWidth columns by dropping leading directory
// components. The file name is always kept whole, even if that alone
// exceeds maxWidth.
func ShortenPath(path string, maxWidth int) string {
	if lipgloss.Width(path) <= maxWidth {
		return path
	}
	sep := string(filepath.Separator)
	parts := strings.Split(filepath.ToSlash(path), "/")
	base := parts[len(parts)-1]

	kept := base
	for i := len(parts) - 2; i >= 0; i-- {
		next := parts[i] + sep + kept
		if lipgloss.Width(ellipsis+sep+next) > maxWidth {
			break
		}
		kept = next
	}
	return ellipsis + sep + kept
}
