package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:     "delete <path>...",
	Aliases: []string{"rm"},
	Short:   "Securely erase captures",
	Long: `Overwrite each capture with random bytes, delete it, remove it from its
queue and drop its cached derivatives.

Paths that are no longer queued are not an error. Paths outside the
storage root are refused.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runDelete,
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func runDelete(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	for _, path := range args {
		if err := s.vault.DeleteArtifact(path); err != nil {
			return fmt.Errorf("failed to delete %s: %w", path, err)
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", successStyle.Render("erased"), path)
	}
	return nil
}
