package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is set via -ldflags at build time; it defaults to "dev" for
// local builds.
var Version = "dev"

var versionCommand = &cobra.Command{
	Use:   "version",
	Short: "Print the hblog version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("hblog " + Version)
	},
}
