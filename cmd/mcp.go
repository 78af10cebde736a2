package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/hfarouk/docdex/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long: `Starts a Model Context Protocol (MCP) server on stdio, exposing document
search and status tools for AI agents like Claude Code.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp()
		if err != nil {
			return err
		}
		defer a.Close()

		mcpserver.Version = Version

		chunks, err := a.store.TotalChunks(cmd.Context())
		if err != nil {
			return fmt.Errorf("reading index state: %w", err)
		}
		fmt.Fprintf(os.Stderr, "docdex MCP server started on stdio (data=%s, chunks=%d)\n",
			a.cfg.DataDir, chunks)

		srv := mcpserver.NewServer(a.retriever, a.store, a.index, a.cfg.Search.RRFK)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
