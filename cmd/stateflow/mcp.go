package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/adapters/mcp"
	"github.com/aretw0/stateflow/pkg/registry"
	"github.com/aretw0/stateflow/pkg/tools/codereview"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes graph management and execution as MCP tools, so AI agents
can store workflows and run them.

Supported transports:
- stdio (default): standard input/output, for local process integration.
- sse: Server-Sent Events over HTTP, for remote agents or debuggers.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}

		logger := slog.Default()

		store, err := openStore(settings)
		if err != nil {
			return err
		}
		defer store.Close()

		reg := registry.New()
		if err := codereview.Register(reg); err != nil {
			return err
		}

		srv := mcp.NewServer(store, reg,
			mcp.WithLogger(logger),
			mcp.WithEngine(runtime.NewEngine(
				runtime.WithLogger(logger),
				runtime.WithMaxIterations(settings.MaxIterations),
			)),
		)

		switch transport {
		case "stdio":
			logger.Info("starting mcp server", slog.String("transport", "stdio"))
			return srv.ServeStdio()
		case "sse":
			logger.Info("starting mcp server", slog.String("transport", "sse"), slog.Int("port", port))

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if err := srv.ServeSSE(ctx, port); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			logger.Info("mcp server stopped")
			return nil
		default:
			return errors.New("unknown transport: expected stdio or sse")
		}
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol: stdio or sse")
	mcpCmd.Flags().Int("port", 8081, "Port to listen on (sse only)")
}
