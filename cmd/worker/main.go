// Command worker consumes competitor.updated events and invalidates (and
// optionally re-warms) the cached threat assessments they affect.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/turtacn/competeiq/internal/application/invalidation"
	"github.com/turtacn/competeiq/internal/bootstrap"
	"github.com/turtacn/competeiq/internal/config"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	httpserver "github.com/turtacn/competeiq/internal/interfaces/http"
	"github.com/turtacn/competeiq/internal/interfaces/http/handlers"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to configuration file (default: COMPETEIQ_* environment only)")
	healthPort := flag.Int("health-port", 0, "health and metrics port (overrides worker.health_port)")
	flag.Parse()

	if err := run(*configPath, *healthPort); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, healthPort int) error {
	cfg, err := config.LoadOrEnv(configPath)
	if err != nil {
		return err
	}
	if healthPort > 0 {
		cfg.Worker.HealthPort = healthPort
	}
	if !cfg.Kafka.Enabled {
		return fmt.Errorf("kafka.enabled must be true to run the worker")
	}
	if !cfg.Redis.Enabled {
		return fmt.Errorf("redis.enabled must be true to run the worker")
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()
	logging.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []bootstrap.Option{bootstrap.WithoutProducer(), bootstrap.WithoutStorage()}
	if !cfg.Worker.Warm {
		opts = append(opts, bootstrap.WithoutPostgres())
	}
	infra, err := bootstrap.Open(ctx, cfg, logger, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := infra.Close(); cerr != nil {
			logger.Warn("Infrastructure close failed", logging.Err(cerr))
		}
	}()

	var warmer invalidation.Warmer
	if cfg.Worker.Warm {
		svc, err := infra.ThreatService()
		if err != nil {
			return err
		}
		warmer = svc
	}
	handler := invalidation.NewHandler(infra.Cache, warmer, logger)

	consumer, err := kafka.NewConsumer(cfg.ConsumerConfig(), logger.Named("consumer"))
	if err != nil {
		return err
	}
	consumer.Subscribe(cfg.Kafka.CompetitorTopic, handler.Handle)

	health := httpserver.NewServer(httpserver.ServerConfig{
		Addr: fmt.Sprintf(":%d", cfg.Worker.HealthPort),
	}, healthRouter(infra), logger.Named("health"))

	logger.Info("Starting CompeteIQ worker",
		logging.String("version", version),
		logging.String("topic", cfg.Kafka.CompetitorTopic),
		logging.String("group", cfg.Worker.GroupID),
		logging.Bool("warm", cfg.Worker.Warm),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return health.Run(gctx) })
	g.Go(func() error {
		if err := consumer.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return consumer.Close()
	})
	err = g.Wait()

	stats := consumer.Stats()
	logger.Info("Worker stopped",
		logging.Int64("consumed", stats.Consumed),
		logging.Int64("processed", stats.Processed),
		logging.Int64("failed", stats.Failed),
		logging.Int64("dead_lettered", stats.DeadLettered),
	)
	return err
}

func healthRouter(infra *bootstrap.Infrastructure) *chi.Mux {
	checks := infra.Checks()
	checkers := make([]handlers.HealthChecker, 0, len(checks))
	for _, c := range checks {
		checkers = append(checkers, handlers.NewChecker(c.Name, c.Fn))
	}
	h := handlers.NewHealthHandler(version, infra.Metrics, checkers...)

	r := chi.NewRouter()
	r.Get("/healthz", h.Liveness)
	r.Get("/readyz", h.Readiness)
	if infra.Collector != nil {
		r.Handle(infra.Config.Metrics.Path, infra.Collector.Handler())
	}
	return r
}
