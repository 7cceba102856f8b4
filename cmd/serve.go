package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deskpilot/deskpilot/internal/config"
	"github.com/deskpilot/deskpilot/internal/logging"
	"github.com/deskpilot/deskpilot/internal/platform"
	"github.com/deskpilot/deskpilot/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start an MCP server exposing the deskpilot control plane",
	Long: `Start a Model Context Protocol (MCP) server exposing windows, element
handles, observations, sessions, and macros as tools. AI agents call tools
directly without shell overhead.

Supported transports:
  stdio             Standard I/O (default, for MCP clients)
  streamable-http   Streamable HTTP transport (for remote agents)

Examples:
  deskpilot serve
  deskpilot serve --transport streamable-http --port 8080`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("transport", "stdio", "Transport: stdio, streamable-http")
	serveCmd.Flags().Int("port", 8080, "HTTP port for streamable-http transport")
}

func runServe(cmd *cobra.Command, args []string) error {
	transport, _ := cmd.Flags().GetString("transport")
	port, _ := cmd.Flags().GetInt("port")

	dir, err := config.DefaultDir()
	if err != nil {
		return fmt.Errorf("resolve config dir: %w", err)
	}
	cfg, err := config.NewStore(dir).LoadOrInit()
	if err != nil {
		return err
	}
	logger := logging.NewLogger(logging.Options{Level: cfg.LogLevel, Component: "serve"})

	provider, err := platform.NewProvider()
	if err != nil {
		if !errors.Is(err, platform.ErrUnsupported) {
			return err
		}
		// The stores still serve; capture tools report the missing backend.
		logger.Warn("no capture backend on this platform", "error", err)
		provider = nil
	}

	srv, err := server.New(server.Options{
		Config:   cfg,
		Provider: provider,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	logger.Info("starting MCP server", "transport", transport)
	return srv.Serve(transport, port)
}
