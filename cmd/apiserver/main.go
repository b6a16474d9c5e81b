// Command apiserver serves the CompeteIQ HTTP API.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/turtacn/competeiq/internal/bootstrap"
	"github.com/turtacn/competeiq/internal/config"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/competeiq/internal/interfaces/http"
	"github.com/turtacn/competeiq/internal/interfaces/http/handlers"
	"github.com/turtacn/competeiq/internal/interfaces/http/middleware"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: COMPETEIQ_* environment only)")
	port := flag.Int("port", 0, "HTTP port (overrides server.port)")
	flag.Parse()

	if err := run(*configPath, *port); err != nil {
		fmt.Fprintf(os.Stderr, "apiserver: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, port int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if port > 0 {
		cfg.Server.Port = port
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	infra, err := bootstrap.Open(ctx, cfg, logger, bootstrap.WithAutoMigrate())
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.Warn("Infrastructure close failed", logging.Err(cerr))
		}
	}()

	threatSvc, err := infra.ThreatService()
	if err != nil {
		return err
	}

	maxBody := cfg.Server.MaxBodyBytes
	logCfg := middleware.DefaultLoggingConfig()
	router := httpserver.NewRouter(httpserver.RouterConfig{
		ThreatHandler:    handlers.NewThreatHandler(threatSvc),
		ProviderHandler:  handlers.NewProviderHandler(infra.AttributionService(), maxBody),
		ImportHandler:    handlers.NewImportHandler(infra.CompetitorRepository(), infra.AnalysisRepository(), infra.Notifier(), logger.Named("import"), maxBody),
		HealthHandler:    handlers.NewHealthHandler(version, infra.Metrics, healthCheckers(infra)...),
		Logger:           logger.Named("http"),
		LoggingConfig:    &logCfg,
		Metrics:          infra.Metrics,
		MetricsCollector: infra.Collector,
		MetricsPath:      cfg.Metrics.Path,
	})

	if configPath != "" {
		watchLogLevel(configPath, logger)
	}

	srv := httpserver.NewServer(httpserver.ServerConfig{
		Addr:            cfg.Server.Addr(),
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, router, logger.Named("server"))

	logger.Info("Starting CompeteIQ API server",
		logging.String("version", version),
		logging.String("addr", cfg.Server.Addr()),
	)
	return srv.Run(ctx)
}
