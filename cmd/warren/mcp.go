package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/warrenhq/warren"
	mcpAdapter "github.com/warrenhq/warren/pkg/adapters/mcp"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts the Warren engine as an MCP server over stdio, so AI agents
(like Claude Desktop) can drive intake conversations as tools.`,
	Run: func(cmd *cobra.Command, args []string) {
		w, err := buildApp(cmd)
		if err != nil {
			log.Fatalf("Error initializing warren: %v", err)
		}

		srv := mcpAdapter.NewServer(w.app.Manager, w.app.Registry, warren.Version)

		// Ensure logs don't corrupt JSON-RPC on Stdout
		log.SetOutput(os.Stderr)
		slog.SetDefault(w.logger)
		slog.Info("Starting Warren MCP Server (Stdio)...")
		if err := srv.ServeStdio(); err != nil {
			slog.Error("MCP Server execution failed", "err", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
