package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/queue"
)

var viewCmd = &cobra.Command{
	Use:       "view [primary|secondary]",
	Short:     "Show or switch the active queue",
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{string(queue.Primary), string(queue.Secondary)},
	RunE:      runView,
}

func init() {
	rootCmd.AddCommand(viewCmd)
}

func runView(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	if len(args) == 1 {
		view, err := queue.ParseView(args[0])
		if err != nil {
			return err
		}
		if err := s.vault.SetView(view); err != nil {
			return err
		}
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), s.vault.View())
	return nil
}
