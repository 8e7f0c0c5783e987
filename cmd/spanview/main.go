// Trace Gantt chart dashboard
// Serves span timelines fetched from a search backend, or renders
// them offline from captured hit files
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	commit    = "unknown"
	buildTime = "unknown"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "spanview",
		Short:        "Trace Gantt chart dashboard",
		SilenceUsage: true,
	}

	root.AddCommand(serveCmd())
	root.AddCommand(renderCmd())
	root.AddCommand(versionCmd())

	return root
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "spanview %s (commit: %s, built: %s)\n", version, commit, buildTime)
		},
	}
}
