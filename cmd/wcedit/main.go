// Command wcedit drives the working-copy update/switch tree-delta editor
// (pkg/editor) from the command line: update/switch apply a locally
// staged snapshot tree as if it had arrived over the wire, status reports
// what the entries tables say about a working copy, and merge-tool runs
// the three-way merge engine directly against three files.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/go-wc/wcedit/pkg/common/logger"
)

var (
	logLevel  string
	logFormat string
	verbose   bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "wcedit",
		Short: "Working-copy update/switch tree-delta editor",
		Long: `wcedit drives the working-copy update/switch engine directly:
apply a staged snapshot as an update or switch, inspect entries state
with status, or invoke the three-way merge tool on three files.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			setupLogging()
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "Log format (text, json)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output (sets log level to debug)")

	rootCmd.AddCommand(newUpdateCmd())
	rootCmd.AddCommand(newSwitchCmd())
	rootCmd.AddCommand(newStatusCmd())
	rootCmd.AddCommand(newMergeToolCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func setupLogging() {
	level := logger.LevelInfo
	if verbose {
		level = logger.LevelDebug
	} else {
		switch logLevel {
		case "debug":
			level = logger.LevelDebug
		case "info":
			level = logger.LevelInfo
		case "warn":
			level = logger.LevelWarn
		case "error":
			level = logger.LevelError
		}
	}

	format := logger.FormatText
	if logFormat == "json" {
		format = logger.FormatJSON
	}

	logger.Default = logger.New(logger.Config{Level: level, Format: format, Output: os.Stderr})
}
