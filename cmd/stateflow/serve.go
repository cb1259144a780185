package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/aretw0/stateflow/internal/config"
	"github.com/aretw0/stateflow/internal/runtime"
	"github.com/aretw0/stateflow/pkg/adapters/httpapi"
	"github.com/aretw0/stateflow/pkg/adapters/memory"
	redisstore "github.com/aretw0/stateflow/pkg/adapters/redis"
	"github.com/aretw0/stateflow/pkg/adapters/sqlite"
	"github.com/aretw0/stateflow/pkg/observability"
	"github.com/aretw0/stateflow/pkg/ports"
	"github.com/aretw0/stateflow/pkg/registry"
	"github.com/aretw0/stateflow/pkg/tools/codereview"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Starts the REST API for managing and executing workflow graphs,
with run persistence in the configured store (memory, sqlite or redis),
Prometheus metrics on /metrics and per-run SSE event streams.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			settings.Addr, _ = cmd.Flags().GetString("addr")
		}
		if cmd.Flags().Changed("store") {
			settings.Store, _ = cmd.Flags().GetString("store")
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

		promReg := prometheus.NewRegistry()
		promReg.MustRegister(collectors.NewGoCollector())
		metrics := observability.NewMetrics(promReg)

		server := httpapi.NewServer(store, reg,
			httpapi.WithLogger(logger),
			httpapi.WithMetricsHandler(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})),
			httpapi.WithEngineOptions(
				runtime.WithMaxIterations(settings.MaxIterations),
				runtime.WithHooks(metrics.Hooks()),
			),
		)

		srv := &http.Server{Addr: settings.Addr, Handler: server.Handler()}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("http server listening",
				slog.String("addr", settings.Addr), slog.String("store", settings.Store))
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			if !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("server error: %w", err)
			}
			return nil

		case sig := <-shutdown:
			logger.Info("shutdown started", slog.String("signal", sig.String()))

			ctx, cancel := context.WithTimeout(context.Background(), settings.ShutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Error("graceful shutdown did not complete", slog.Any("error", err))
				if err := srv.Close(); err != nil {
					return fmt.Errorf("could not stop server: %w", err)
				}
			}

			// Accepted async runs finish before the store goes away.
			server.Wait()
			logger.Info("server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on")
	serveCmd.Flags().String("store", "", "Persistence backend: memory, sqlite or redis")
}

// openStore builds the persistence backend named by the settings.
func openStore(settings config.Settings) (ports.Store, error) {
	switch settings.Store {
	case "", "memory":
		return memory.NewStore(), nil
	case "sqlite":
		return sqlite.Open(settings.SQLitePath)
	case "redis":
		return redisstore.New(settings.RedisAddr, settings.RedisPassword, settings.RedisDB), nil
	default:
		return nil, fmt.Errorf("unknown store %q: expected memory, sqlite or redis", settings.Store)
	}
}
