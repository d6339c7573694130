package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/bascanada/hblog/pkg/hblog"
	"github.com/spf13/cobra"
)

var (
	logLevel   string
	verboseLog bool

	appLogger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:    "hblog",
	Short:  "Fan out to a tier of hosts and inspect their logs",
	Long:   ``,
	PreRun: onCommandStart,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the root command, exiting 1 on argument/parse errors per
// the CLI's documented exit codes.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func onCommandStart(cmd *cobra.Command, args []string) {
	appLogger = hblog.NewLogger(hblog.LoggerOptions{Level: logLevel, Verbose: verboseLog})
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "logging-level", "INFO", "logging level: DEBUG INFO WARN ERROR")
	rootCmd.PersistentFlags().BoolVarP(&verboseLog, "verbose", "v", false, "verbose logging")

	rootCmd.AddCommand(queryCommand)
	rootCmd.AddCommand(agentCommand)
	rootCmd.AddCommand(versionCommand)
}
