package cmd

import (
	"fmt"
	"os"

	"NawaxRadio/config"
	"NawaxRadio/logger"
	"NawaxRadio/server"

	"github.com/spf13/cobra"
)

// cfg is loaded once before any command runs.
var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "nawaxradio",
	Short: "Nawax Radio serves channel based radio streams.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = config.Load()
		server.InitLogging(cfg)
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		logger.Sync()
	},
	Run: func(cmd *cobra.Command, args []string) {
		server.Start(cfg)
	},
}

// Execute executes the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
