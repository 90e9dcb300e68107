// Package main provides the standalone notify agent binary.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"buildmail-agent/src/config"
	"buildmail-agent/src/logger"
	"buildmail-agent/src/pipeline"
)

var (
	metricsAddr string
	debug       bool
)

var rootCmd = &cobra.Command{
	Use:   "notify-agent",
	Short: "Consume build-finished events and send their notifications",
	Long: `notify-agent joins the buildmail-notify consumer group on Redpanda, loads the
history of every finished build it is told about and sends at most one
notification per event. Outcomes are published to buildmail.notifications and
Prometheus metrics are served on /metrics.

Requires REDPANDA_BROKERS. Example:
  export REDPANDA_BROKERS=localhost:19092
  export BUILDMAIL_SMTP_HOST=smtp.example.com
  notify-agent --metrics-addr :9464`,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			return fmt.Errorf("configuration error: %w", err)
		}
		if err := cfg.RequireBrokers(); err != nil {
			return err
		}
		if metricsAddr != "" {
			cfg.MetricsAddr = metricsAddr
		}
		return run(cmd.Context(), cfg)
	},
}

func init() {
	rootCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "address for the /metrics endpoint (default $BUILDMAIL_METRICS_ADDR)")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func run(ctx context.Context, cfg *config.Config) error {
	log := logger.NewConsoleZerologLogger(os.Stderr, "notify-agent", debug)

	log.Info("Starting buildmail notify agent")
	log.Info("Redpanda brokers: %v", cfg.RedpandaBrokers)
	if err := cfg.RequireSMTP(); err != nil {
		log.Error("%v; every notification will fail", err)
	}

	pl, err := pipeline.New(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to create pipeline: %w", err)
	}
	defer pl.Close()

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("Notify agent started, waiting for finished builds...")
		if err := pl.Agent().Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("agent: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		log.Info("Serving metrics on %s/metrics", cfg.MetricsAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	log.Info("Notify agent stopped")
	return err
}

func main() {
	// Handle shutdown signals
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
