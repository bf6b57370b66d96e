package main

import (
	"fmt"
	"log"
	"os"

	"github.com/aretw0/journey/internal/cli"
	"github.com/aretw0/journey/pkg/adapters/mcp"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Starts Journey as an MCP server so agents can drive workflow sessions as tools.

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		app, err := newApp()
		if err != nil {
			return err
		}
		defer app.Close()

		mgr, err := app.Manager()
		if err != nil {
			return err
		}
		srv := mcp.NewServer(mgr, mcp.WithLogger(logger))

		switch transport {
		case "stdio":
			// Keep stdout free for JSON-RPC.
			log.SetOutput(os.Stderr)
			logger.Info("Starting Journey MCP server (stdio)")
			return srv.ServeStdio()
		case "sse":
			sigCtx := cli.NewSignalContext(cmd.Context())
			defer sigCtx.Cancel()

			if err := srv.ServeSSE(sigCtx, fmt.Sprintf(":%d", port)); err != nil {
				return err
			}
			logger.Info("MCP server stopped gracefully")
			return nil
		default:
			return fmt.Errorf("unknown transport %q: supported stdio, sse", transport)
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().Int("port", 8080, "Port to listen on (only for SSE)")
}
