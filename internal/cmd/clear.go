package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/queue"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Erase every capture in a queue",
	Long: `Securely erase every capture in the active queue, or the one named by
--view. --all erases both queues and empties the derivative cache.`,
	Args: cobra.NoArgs,
	RunE: runClear,
}

var (
	clearView string
	clearAll  bool
)

func init() {
	clearCmd.Flags().StringVar(&clearView, "view", "", "queue to clear: primary or secondary (default: active view)")
	clearCmd.Flags().BoolVar(&clearAll, "all", false, "clear both queues")
	clearCmd.MarkFlagsMutuallyExclusive("view", "all")
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if clearAll {
		if err := s.vault.Reset(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", joinViews(queue.Views()))
		return nil
	}

	view, err := viewFlag(s, clearView)
	if err != nil {
		return err
	}
	if err := s.vault.ClearQueue(view); err != nil {
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cleared %s\n", view)
	return nil
}
