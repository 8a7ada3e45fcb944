package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"regimerun/internal/config"
	"regimerun/internal/httpx"
	"regimerun/internal/metrics"
	"regimerun/internal/persistence/clickhouse"
	"regimerun/internal/persistence/postgres"
)

// runMonitor starts the monitoring HTTP server
func runMonitor(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = env.MetricsAddr
	}

	serverConfig := httpx.DefaultServerConfig()
	serverConfig.Addr = addr

	registry := metrics.NewRegistry()
	server := httpx.NewServer(serverConfig, registry)

	cfg, err := config.Load("")
	if err != nil {
		return err
	}
	server.AddCheck("artifacts", artifactsCheck(cfg.Output.Dir))

	if env.PostgresDSN != "" {
		db, err := postgres.Open(env.PostgresDSN, 5*time.Second)
		if err != nil {
			return fmt.Errorf("open run ledger: %w", err)
		}
		defer db.Close()
		server.AddCheck("postgres", func(ctx context.Context) error {
			return db.PingContext(ctx)
		})
	}

	if env.ClickHouseDSN != "" {
		sink, err := clickhouse.NewSink(env.ClickHouseDSN)
		if err != nil {
			return fmt.Errorf("open audit sink: %w", err)
		}
		defer sink.Close()
		server.AddCheck("clickhouse", sink.Ping)
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info().
			Str("health", fmt.Sprintf("http://%s/health", addr)).
			Str("metrics", fmt.Sprintf("http://%s/metrics", addr)).
			Msg("Monitor endpoints available")
		serverErr <- server.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
		log.Info().Msg("Shutdown signal received")
	case err := <-serverErr:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server shutdown error")
		return err
	}

	log.Info().Msg("Monitor server shutdown complete")
	return nil
}

// artifactsCheck probes that the artifact directory is writable
func artifactsCheck(dir string) httpx.HealthCheck {
	return func(ctx context.Context) error {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
		probe := filepath.Join(dir, ".healthcheck")
		if err := os.WriteFile(probe, []byte("ok"), 0644); err != nil {
			return err
		}
		return os.Remove(probe)
	}
}
