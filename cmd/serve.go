package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/packdex/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve asset lookups as MCP tools on stdin/stdout",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		svc, err := newService(cmd)
		if err != nil {
			return err
		}
		svc.Logger.Info("serving MCP over stdio", "version", version)
		return mcpserver.Serve(svc, version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
