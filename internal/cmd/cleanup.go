package cmd

import (
	"bufio"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/queue"
	"github.com/Iron-Ham/glimpse/internal/util"
)

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Erase stray files left in the storage root",
	Long: `Cleanup securely erases files under the storage root that no sequence tracks:

- Leftovers from captures that were interrupted before they were queued
- Files in sequence directories from earlier runs without a manifest

Files modified more recently than --older-than are skipped so a capture
running in another process is never touched.

Use --dry-run to see what would be cleaned up without making changes.`,
	Args: cobra.NoArgs,
	RunE: runCleanup,
}

var (
	cleanupDryRun    bool
	cleanupForce     bool
	cleanupOlderThan time.Duration
)

func init() {
	rootCmd.AddCommand(cleanupCmd)
	cleanupCmd.Flags().BoolVar(&cleanupDryRun, "dry-run", false, "Show what would be cleaned up without making changes")
	cleanupCmd.Flags().BoolVarP(&cleanupForce, "force", "f", false, "Skip confirmation prompt")
	cleanupCmd.Flags().DurationVar(&cleanupOlderThan, "older-than", time.Minute, "Only erase files last modified before this long ago")
}

func runCleanup(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	out := cmd.OutOrStdout()
	orphans, err := s.vault.Orphans(cleanupOlderThan)
	if err != nil {
		return fmt.Errorf("failed to scan storage root: %w", err)
	}
	if len(orphans) == 0 {
		_, _ = fmt.Fprintln(out, "No stray files found. Nothing to clean up.")
		return nil
	}

	printCleanupSummary(cmd, orphans)

	if cleanupDryRun {
		_, _ = fmt.Fprintln(out, "\nDry run mode - no changes made.")
		return nil
	}

	if !cleanupForce {
		_, _ = fmt.Fprint(out, "\nProceed with cleanup? [y/N] ")
		reader := bufio.NewReader(cmd.InOrStdin())
		response, _ := reader.ReadString('\n')
		response = strings.TrimSpace(strings.ToLower(response))
		if response != "y" && response != "yes" {
			_, _ = fmt.Fprintln(out, "Cleanup cancelled.")
			return nil
		}
	}

	pruned, err := s.vault.Prune(cleanupOlderThan)
	if err != nil {
		return fmt.Errorf("cleanup failed: %w", err)
	}

	_, _ = fmt.Fprintln(out)
	removed := 0
	for _, o := range pruned {
		if o.Err != nil {
			_, _ = fmt.Fprintln(out, warningStyle.Render("Warning:")+" failed to erase "+o.Path+": "+o.Err.Error())
			continue
		}
		removed++
	}
	_, _ = fmt.Fprintf(out, "Cleanup complete. Erased %d files.\n", removed)
	if removed < len(pruned) {
		return fmt.Errorf("%d files could not be erased", len(pruned)-removed)
	}
	return nil
}

func printCleanupSummary(cmd *cobra.Command, orphans []queue.Orphan) {
	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, strings.Repeat("─", 60))
	_, _ = fmt.Fprintln(out, titleStyle.Render("Stray Files Found"))
	_, _ = fmt.Fprintln(out, strings.Repeat("─", 60))

	for _, view := range queue.Views() {
		var mine []queue.Orphan
		for _, o := range orphans {
			if o.View == view {
				mine = append(mine, o)
			}
		}
		if len(mine) == 0 {
			continue
		}
		_, _ = fmt.Fprintf(out, "\n%s (%d):\n", view, len(mine))
		for _, o := range mine {
			status := ""
			if o.Stale {
				status = mutedStyle.Render(" [stale directory]")
			}
			_, _ = fmt.Fprintf(out, "  - %s%s\n", util.ShortenPath(o.Path, 72), status)
			_, _ = fmt.Fprintf(out, "    %d bytes, modified %s\n", o.Size, o.ModTime.Format("2006-01-02 15:04:05"))
		}
	}
}
