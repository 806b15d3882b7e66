package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	temporalclient "go.temporal.io/sdk/client"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/api"
	"github.com/edvin/instance-deploy/internal/api/handler"
	"github.com/edvin/instance-deploy/internal/auth"
	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/config"
	"github.com/edvin/instance-deploy/internal/deploy"
	"github.com/edvin/instance-deploy/internal/logging"
	"github.com/edvin/instance-deploy/internal/metrics"
	"github.com/edvin/instance-deploy/internal/workflow"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "rollout":
			rollout(os.Args[2:])
			return
		case "teardown":
			teardown(os.Args[2:])
			return
		}
	}

	flag.Parse()

	cfg := loadConfig("server")
	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := metrics.NewRegistry()

	var (
		dispatcher handler.Dispatcher
		inline     *deploy.InlineDispatcher
	)
	switch cfg.Dispatcher {
	case config.DispatcherTemporal:
		tc := dialTemporal(cfg, logger)
		defer tc.Close()
		dispatcher = workflow.NewDispatcher(tc, cfg.TemporalTaskQueue, cfg.NotifyFailures)
		logger.Info().Str("taskQueue", cfg.TemporalTaskQueue).Msg("deploys dispatched to temporal")
	default:
		clients, err := cloud.NewClients(ctx, cfg)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to build cloud clients")
		}
		pipeline := deploy.NewPipeline(
			activity.NewDeploy(clients, activity.SettingsFromConfig(cfg), logger),
			activity.NewCallback(cfg.APIURI, cfg.CallbackTimeout),
			deploy.NewLogReporter(logger, metrics.NewPipeline(registry)),
			cfg.NotifyFailures,
			logger,
		)
		inline = deploy.NewInlineDispatcher(pipeline, cfg.MaxConcurrentDeploys, logger)
		dispatcher = inline
	}

	srv := api.NewServer(logger, dispatcher, auth.NewVerifier(cfg.ActivationSecret), registry)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Str("dispatcher", cfg.Dispatcher).Msg("starting deploy server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown failed")
	}

	if inline != nil {
		drainCtx, drainCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer drainCancel()
		if err := inline.Shutdown(drainCtx); err != nil {
			logger.Warn().Err(err).Msg("in-flight deploys still running at exit")
		}
	}
}

func rollout(args []string) {
	fs := flag.NewFlagSet("rollout", flag.ExitOnError)
	timeout := fs.Duration("timeout", 30*time.Minute, "Overall time limit for the rollout")
	fs.Parse(args)

	cfg := loadConfig("rollout")
	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build cloud clients: %v\n", err)
		os.Exit(1)
	}

	m := activity.NewMaintenance(clients, activity.SettingsFromConfig(cfg), logger, nil)
	result, err := m.Rollout(ctx)
	if result != nil {
		fmt.Printf("Rolled out %s.\n\n", result.VersionLabel)
		fmt.Printf("  Updated: %d\n", len(result.Updated))
		fmt.Printf("  Failed:  %d\n", len(result.Failed))
		for _, id := range result.Failed {
			fmt.Printf("    %s\n", id)
		}
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func teardown(args []string) {
	fs := flag.NewFlagSet("teardown", flag.ExitOnError)
	envID := fs.String("env-id", "", "Environment ID to terminate (required)")
	envName := fs.String("env-name", "", "Environment name, used to derive the tenant hostname")
	fs.Parse(args)

	if *envID == "" {
		fmt.Fprintln(os.Stderr, "error: --env-id is required")
		fmt.Fprintln(os.Stderr, "usage: instance-deploy teardown --env-id <id> [--env-name <name>]")
		os.Exit(1)
	}

	cfg := loadConfig("teardown")
	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to build cloud clients: %v\n", err)
		os.Exit(1)
	}

	m := activity.NewMaintenance(clients, activity.SettingsFromConfig(cfg), logger, nil)
	if err := m.Teardown(ctx, activity.TeardownParams{
		EnvironmentID:   *envID,
		EnvironmentName: *envName,
	}); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Environment %s terminated.\n", *envID)
}

func loadConfig(role string) *config.Config {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(role); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}
	return cfg
}

func dialTemporal(cfg *config.Config, logger zerolog.Logger) temporalclient.Client {
	tlsConfig, err := cfg.TemporalTLS()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to configure temporal TLS")
	}
	dialOpts := temporalclient.Options{HostPort: cfg.TemporalAddress}
	if tlsConfig != nil {
		dialOpts.ConnectionOptions = temporalclient.ConnectionOptions{TLS: tlsConfig}
		logger.Info().Msg("temporal mTLS enabled")
	}
	tc, err := temporalclient.Dial(dialOpts)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to temporal")
	}
	return tc
}
