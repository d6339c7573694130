package cmd

import (
	"os"

	"github.com/bascanada/hblog/pkg/agent"
	"github.com/spf13/cobra"
)

var (
	agentHost string
	agentPort string
)

var agentCommand = &cobra.Command{
	Use:     "agent",
	Aliases: []string{"hblogd"},
	Short:   "Run the HTTP agent that serves this host's logs",
	PreRun:  onCommandStart,
	Run: func(cmd *cobra.Command, args []string) {
		s := agent.NewServer(agentHost, agentPort, appLogger, verboseLog)
		if err := s.Start(); err != nil {
			appLogger.Error("agent failed", "err", err)
			os.Exit(1)
		}
	},
}

func init() {
	agentCommand.Flags().StringVar(&agentHost, "host", "0.0.0.0", "address to bind to")
	agentCommand.Flags().StringVar(&agentPort, "port", agent.DefaultPort, "port to listen on")
}
