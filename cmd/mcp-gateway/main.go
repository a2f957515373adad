// Command mcp-gateway exposes memory tools over stdio, HTTP, WebSocket
// and SSE transports, fronted by an OAuth 2.0 authorization server.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// version is set during build with -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:          "mcp-gateway",
	Short:        "Tool gateway for the Lanonasis memory service",
	SilenceUsage: true,
}

func main() {
	rootCmd.Version = version
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(w *os.File) *slog.Logger {
	level := slog.LevelInfo
	if os.Getenv("GATEWAY_DEBUG") != "" {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
