package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	temporalclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/interceptor"
	"go.temporal.io/sdk/worker"

	"github.com/edvin/instance-deploy/internal/activity"
	"github.com/edvin/instance-deploy/internal/cloud"
	"github.com/edvin/instance-deploy/internal/config"
	"github.com/edvin/instance-deploy/internal/deploy"
	"github.com/edvin/instance-deploy/internal/logging"
	"github.com/edvin/instance-deploy/internal/metrics"
	"github.com/edvin/instance-deploy/internal/workflow"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("worker"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	clients, err := cloud.NewClients(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build cloud clients")
	}

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
	defer tc.Close()

	w := worker.New(tc, cfg.TemporalTaskQueue, worker.Options{
		Interceptors: []interceptor.WorkerInterceptor{&workflow.ErrorKindInterceptor{}},
	})

	registry := metrics.NewRegistry()

	// Register activities
	w.RegisterActivity(activity.NewDeploy(clients, activity.SettingsFromConfig(cfg), logger))
	w.RegisterActivity(activity.NewCallback(cfg.APIURI, cfg.CallbackTimeout))
	w.RegisterActivity(workflow.NewStatusActivity(deploy.NewLogReporter(logger, metrics.NewPipeline(registry))))

	// Register workflows
	w.RegisterWorkflow(workflow.DeployInstanceWorkflow)

	if cfg.MetricsListenAddr != "" {
		metricsSrv := metrics.NewServer(cfg.MetricsListenAddr, registry)
		go func() {
			logger.Info().Str("addr", cfg.MetricsListenAddr).Msg("starting metrics server")
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error().Err(err).Msg("metrics server failed")
			}
		}()
	}

	go func() {
		logger.Info().Str("taskQueue", cfg.TemporalTaskQueue).Msg("starting temporal worker")
		if err := w.Run(worker.InterruptCh()); err != nil {
			logger.Fatal().Err(err).Msg("worker failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down worker")
	cancel()
}
