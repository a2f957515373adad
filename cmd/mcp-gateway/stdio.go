package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/lanonasis/mcp-gateway/internal/logctx"
	"github.com/lanonasis/mcp-gateway/stdio"
)

var stdioCmd = &cobra.Command{
	Use:   "stdio",
	Short: "Serve the gateway over stdin/stdout using line-delimited JSON-RPC",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		// Logs go to stderr: stdout carries only protocol frames.
		log := slog.New(logctx.NewHandler(newLogger(os.Stderr).Handler()))
		slog.SetDefault(log)

		g, err := buildGateway(log)
		if err != nil {
			log.Error("startup failed", slog.String("err", err.Error()))
			return err
		}
		defer g.close()

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		h := stdio.NewHandler(g.dispatcher, stdio.WithLogger(log))
		return h.Serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(stdioCmd)
}
