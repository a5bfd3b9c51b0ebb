package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/derive"
)

var deriveCmd = &cobra.Command{
	Use:   "derive <path>",
	Short: "Produce a compressed derivative of a capture",
	Long: `Produce the full-size or thumbnail derivative of a capture.

By default a one-line summary is printed. --data-url prints a
data:<mime>;base64,... URL, --base64 prints the bare payload, and --out
writes the derivative bytes to a file.

If the capture cannot be decoded its raw bytes are returned instead and
the summary is marked "fallback".`,
	Args: cobra.ExactArgs(1),
	RunE: runDerive,
}

var (
	deriveKind    string
	deriveDataURL bool
	deriveBase64  bool
	deriveOut     string
)

func init() {
	deriveCmd.Flags().StringVar(&deriveKind, "kind", string(derive.Full), "derivative kind: full or thumbnail")
	deriveCmd.Flags().BoolVar(&deriveDataURL, "data-url", false, "print a data URL")
	deriveCmd.Flags().BoolVar(&deriveBase64, "base64", false, "print the base64 payload")
	deriveCmd.Flags().StringVarP(&deriveOut, "out", "o", "", "write the derivative to this file")
	deriveCmd.MarkFlagsMutuallyExclusive("data-url", "base64", "out")
	rootCmd.AddCommand(deriveCmd)
}

func runDerive(cmd *cobra.Command, args []string) error {
	kind, err := derive.ParseKind(deriveKind)
	if err != nil {
		return err
	}

	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	d, err := s.vault.GetDerivative(kind, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case deriveDataURL:
		_, _ = fmt.Fprintln(out, d.DataURL())
	case deriveBase64:
		_, _ = fmt.Fprintln(out, d.Base64())
	case deriveOut != "":
		if err := os.WriteFile(deriveOut, d.Data, s.cfg.Storage.FilePerm()); err != nil {
			return fmt.Errorf("failed to write derivative: %w", err)
		}
		_, _ = fmt.Fprintf(out, "Wrote %s (%s, %d bytes)\n", deriveOut, d.MIME, d.Len())
	default:
		status := successStyle.Render("ok")
		if d.Fallback {
			status = warningStyle.Render("fallback")
		}
		_, _ = fmt.Fprintf(out, "%s %s %d bytes %s\n", kind, d.MIME, d.Len(), status)
	}
	return nil
}
