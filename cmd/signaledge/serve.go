package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newthinker/signaledge/internal/api"
	"github.com/newthinker/signaledge/internal/app"
	"github.com/newthinker/signaledge/internal/metrics"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the signaledge API server",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reg := metrics.NewRegistry()

	a, log, err := newApp(app.WithMetrics(reg))
	if err != nil {
		return err
	}
	defer log.Sync()
	defer a.Close()

	cfg := a.Config()
	log.Info("starting signaledge server",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.Strings("sources", a.Sources()),
	)

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}

	// Create API server
	server, err := api.NewServer(api.Config{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		APIKey:          cfg.Server.APIKey,
		JobTTL:          time.Duration(cfg.Server.JobTTLHours) * time.Hour,
		MaxJobs:         cfg.Server.MaxJobs,
		BacktestTimeout: cfg.Server.BacktestTimeout,
		MetricsPath:     metricsPath,
	}, api.Dependencies{Service: a, Metrics: reg}, log)
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			log.Error("server error", zap.Error(err))
			return err
		}
	}

	log.Info("shutting down signaledge server")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return server.Shutdown(ctx)
}
