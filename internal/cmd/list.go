package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/queue"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List queued captures",
	Long: `List the captures in the active queue, oldest first.

Use --view to pick a queue, or --all for both. With --paths only the file
paths are printed, one per line.`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var (
	listView  string
	listAll   bool
	listPaths bool
)

func init() {
	listCmd.Flags().StringVar(&listView, "view", "", "queue to list: primary or secondary (default: active view)")
	listCmd.Flags().BoolVar(&listAll, "all", false, "list both queues")
	listCmd.Flags().BoolVar(&listPaths, "paths", false, "print bare paths only")
	rootCmd.AddCommand(listCmd)
}

func runList(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	views := queue.Views()
	if !listAll {
		view, err := viewFlag(s, listView)
		if err != nil {
			return err
		}
		views = []queue.View{view}
	}

	out := cmd.OutOrStdout()
	active := s.vault.View()
	for i, view := range views {
		entries, err := s.vault.Entries(view)
		if err != nil {
			return err
		}

		if listPaths {
			for _, e := range entries {
				_, _ = fmt.Fprintln(out, e.Path)
			}
			continue
		}

		if i > 0 {
			_, _ = fmt.Fprintln(out)
		}
		header := titleStyle.Render(string(view))
		if view == active {
			header += " " + activeStyle.Render("(active)")
		}
		_, _ = fmt.Fprintf(out, "%s %s\n", header, mutedStyle.Render(fmt.Sprintf("%d/%d", len(entries), s.vault.MaxLen())))
		if len(entries) == 0 {
			_, _ = fmt.Fprintln(out, mutedStyle.Render("  (empty)"))
			continue
		}
		for n, e := range entries {
			_, _ = fmt.Fprintf(out, "  %s %s\n", mutedStyle.Render(fmt.Sprintf("%d.", n+1)), e.Path)
		}
	}
	return nil
}

// joinViews renders views as "primary, secondary".
func joinViews(views []queue.View) string {
	names := make([]string, len(views))
	for i, v := range views {
		names[i] = string(v)
	}
	return strings.Join(names, ", ")
}
