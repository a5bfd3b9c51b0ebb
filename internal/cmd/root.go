package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	cmdconfig "github.com/Iron-Ham/glimpse/internal/cmd/config"
	"github.com/Iron-Ham/glimpse/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "glimpse",
	Short: "Private screen-capture queue with cached derivatives",
	Long: `Glimpse captures the screen into one of two small bounded queues kept in
an inconspicuous directory, and serves compressed full-size and thumbnail
derivatives of each capture on demand.

Evicted and deleted captures are overwritten with random bytes before they
are removed.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file (default is $HOME/.config/glimpse/config.yaml)")
	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))

	cmdconfig.Register(rootCmd)
}

func initConfig() {
	// Set defaults first so they're available even without a config file
	config.SetDefaults()

	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(config.ConfigDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("GLIMPSE")
	// GLIMPSE_STORAGE_MAX_QUEUE for storage.max_queue
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Read config file if it exists (ignore error if not found)
	_ = viper.ReadInConfig()
}
