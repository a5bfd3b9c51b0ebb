package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Iron-Ham/glimpse/internal/config"
	"github.com/Iron-Ham/glimpse/internal/queue"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Prepare the storage root",
	Long: `Create the storage root and both sequence directories with the configured
permissions, so the first capture does not have to.

Use 'glimpse config init' to write a configuration file.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	s, err := openSession(cmd, false)
	if err != nil {
		return err
	}
	defer s.Close()

	dirs, err := s.vault.Prepare()
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintln(out, successStyle.Render("glimpse initialized successfully!"))
	_, _ = fmt.Fprintln(out, row("Root", s.vault.Root()))
	for _, view := range queue.Views() {
		_, _ = fmt.Fprintln(out, row(string(view), dirs[view]))
	}
	_, _ = fmt.Fprintln(out, row("Config", config.ConfigFile()))
	return nil
}
