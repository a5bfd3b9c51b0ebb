package main

import (
	"fmt"
	"os"

	"github.com/Iron-Ham/glimpse/internal/cmd"
	gerrors "github.com/Iron-Ham/glimpse/internal/errors"
)

func main() {
	if err := cmd.Execute(); err != nil {
		var ce *gerrors.CaptureError
		if gerrors.As(err, &ce) && ce.Remediation != "" {
			fmt.Fprintln(os.Stderr, "hint:", ce.Remediation)
		}
		os.Exit(1)
	}
}
