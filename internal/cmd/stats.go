package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/derive"
	"github.com/Iron-Ham/glimpse/internal/queue"
	"github.com/Iron-Ham/glimpse/internal/vault"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show queue and cache occupancy",
	Long: `Display the storage root, the active view, the length of each queue
and the occupancy of each derivative cache.

Cache figures only cover this invocation; the caches start empty in every
new process.`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var (
	statsJSON bool // Output as JSON
)

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "Output statistics as JSON")
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	st, err := s.vault.Stats()
	if err != nil {
		return err
	}

	if statsJSON {
		return printStatsJSON(cmd, st)
	}
	printStatsText(cmd, st)
	return nil
}

func printStatsText(cmd *cobra.Command, st vault.Stats) {
	out := cmd.OutOrStdout()

	_, _ = fmt.Fprintln(out, titleStyle.Render("STORAGE"))
	_, _ = fmt.Fprintln(out, mutedStyle.Render(strings.Repeat("─", 50)))
	_, _ = fmt.Fprintln(out, row("Root", st.Root))
	_, _ = fmt.Fprintln(out, row("Active view", activeStyle.Render(string(st.View))))
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, titleStyle.Render("QUEUES"))
	_, _ = fmt.Fprintln(out, mutedStyle.Render(strings.Repeat("─", 50)))
	for _, view := range queue.Views() {
		n := st.Queue[view]
		value := fmt.Sprintf("%d/%d", n, st.MaxLen)
		if n >= st.MaxLen {
			value = warningStyle.Render(value + " (full)")
		}
		_, _ = fmt.Fprintln(out, row(string(view), value))
	}
	_, _ = fmt.Fprintln(out)

	_, _ = fmt.Fprintln(out, titleStyle.Render("DERIVATIVE CACHE"))
	_, _ = fmt.Fprintln(out, mutedStyle.Render(strings.Repeat("─", 50)))
	for _, kind := range derive.Kinds() {
		c := st.Cache[kind]
		_, _ = fmt.Fprintln(out, row(string(kind), fmt.Sprintf("%d/%d", c.Entries, c.Capacity)))
	}
}

type statsOutput struct {
	Root   string                `json:"root"`
	View   string                `json:"view"`
	MaxLen int                   `json:"max_queue"`
	Queue  map[string]int        `json:"queue"`
	Cache  map[string]cacheStats `json:"cache"`
}

type cacheStats struct {
	Entries  int `json:"entries"`
	Capacity int `json:"capacity"`
}

func printStatsJSON(cmd *cobra.Command, st vault.Stats) error {
	o := statsOutput{
		Root:   st.Root,
		View:   string(st.View),
		MaxLen: st.MaxLen,
		Queue:  make(map[string]int, len(st.Queue)),
		Cache:  make(map[string]cacheStats, len(st.Cache)),
	}
	for v, n := range st.Queue {
		o.Queue[string(v)] = n
	}
	for k, c := range st.Cache {
		o.Cache[string(k)] = cacheStats{Entries: c.Entries, Capacity: c.Capacity}
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(o)
}
