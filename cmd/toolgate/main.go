// Package main implements the toolgate CLI: a governed MCP tool server with
// an optional admin HTTP API.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Set by -ldflags at build time.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "toolgate",
		Short: "Governed MCP tool server",
		Long: `toolgate serves GitHub tools over the Model Context Protocol.
Every governed tool call is rate limited per tool and its result is
sanitized before it reaches the client.`,
		SilenceUsage: true,
	}
	root.AddCommand(newServeCmd(), newSanitizeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "toolgate %s\n", version)
			fmt.Fprintf(out, "Commit:     %s\n", commit)
			fmt.Fprintf(out, "Build Date: %s\n", date)
		},
	}
}
