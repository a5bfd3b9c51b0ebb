package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/queue"
)

var captureCmd = &cobra.Command{
	Use:   "capture",
	Short: "Capture the screen into a queue",
	Long: `Capture the screen into the active queue, or the one named by --view.

When the queue is full the oldest capture is securely erased. The path of
the new capture is printed on stdout.`,
	Args: cobra.NoArgs,
	RunE: runCapture,
}

var captureView string

func init() {
	captureCmd.Flags().StringVar(&captureView, "view", "", "queue to capture into: primary or secondary (default: active view)")
	rootCmd.AddCommand(captureCmd)
}

func runCapture(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	view, err := viewFlag(s, captureView)
	if err != nil {
		return err
	}

	// Nothing of ours is on screen in CLI mode, so the hooks are empty.
	path, err := s.vault.Capture(cmd.Context(), view, queue.Hooks{})
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}
