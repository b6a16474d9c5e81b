// Package bootstrap opens the infrastructure a CompeteIQ process needs and
// assembles the application services on top of it.
package bootstrap

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/turtacn/competeiq/internal/application/attribution"
	"github.com/turtacn/competeiq/internal/application/invalidation"
	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/config"
	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/domain/provider"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres/repositories"
	redisinfra "github.com/turtacn/competeiq/internal/infrastructure/database/redis"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
	"github.com/turtacn/competeiq/pkg/errors"
)

// Check is a named readiness probe.
type Check struct {
	Name string
	Fn   func(ctx context.Context) error
}

type options struct {
	skipPostgres bool
	skipProducer bool
	skipStorage  bool
	migrate      bool
}

type Option func(*options)

// WithoutPostgres skips the database connection. Store-backed services are
// unavailable afterwards.
func WithoutPostgres() Option { return func(o *options) { o.skipPostgres = true } }

// WithoutProducer skips the kafka producer even when kafka is enabled.
func WithoutProducer() Option { return func(o *options) { o.skipProducer = true } }

// WithoutStorage skips the report archive even when minio is enabled.
func WithoutStorage() Option { return func(o *options) { o.skipStorage = true } }

// WithAutoMigrate applies pending migrations when database.auto_migrate is set.
func WithAutoMigrate() Option { return func(o *options) { o.migrate = true } }

// Infrastructure holds the opened clients. Optional components are nil when
// disabled in configuration.
type Infrastructure struct {
	Config *config.Config
	Logger logging.Logger

	Postgres  *postgres.Connection
	Redis     *redisinfra.Client
	Cache     redisinfra.Cache
	Producer  *kafka.Producer
	MinIO     *minio.Client
	Reports   minio.ReportStore
	Collector prometheus.MetricsCollector
	Metrics   *prometheus.AppMetrics

	competitors competitor.Repository
	analyses    competitor.AnalysisRepository
	threat      threatassessment.Service
}

// Open connects every enabled component. On failure anything already opened
// is closed again.
func Open(ctx context.Context, cfg *config.Config, log logging.Logger, opts ...Option) (*Infrastructure, error) {
	if cfg == nil {
		return nil, errors.InvalidParam("configuration is required")
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}

	infra := &Infrastructure{Config: cfg, Logger: log}
	if err := infra.open(ctx, o); err != nil {
		_ = infra.Close()
		return nil, err
	}
	log.Info("Infrastructure initialized",
		logging.Bool("postgres", infra.Postgres != nil),
		logging.Bool("redis", infra.Redis != nil),
		logging.Bool("kafka", infra.Producer != nil),
		logging.Bool("minio", infra.MinIO != nil),
	)
	return infra, nil
}

func (i *Infrastructure) open(ctx context.Context, o *options) error {
	cfg := i.Config

	if err := i.openMetrics(); err != nil {
		return err
	}

	if !o.skipPostgres {
		conn, err := postgres.NewConnection(cfg.Database.PostgresConfig, i.Logger.Named("postgres"))
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		i.Postgres = conn
		i.competitors = repositories.NewPostgresCompetitorRepo(conn, i.Logger)
		i.analyses = repositories.NewPostgresAnalysisRepo(conn, i.Logger)

		if o.migrate && cfg.Database.AutoMigrate {
			if err := i.migrateUp(); err != nil {
				return err
			}
		}
	}

	if cfg.Redis.Enabled {
		client, err := redisinfra.NewClient(&cfg.Redis.RedisConfig, i.Logger.Named("redis"))
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		i.Redis = client
		cacheOpts := []redisinfra.CacheOption{redisinfra.WithDefaultTTL(cfg.Threat.CacheTTL)}
		if cfg.Redis.KeyPrefix != "" {
			cacheOpts = append(cacheOpts, redisinfra.WithPrefix(cfg.Redis.KeyPrefix))
		}
		i.Cache = redisinfra.NewRedisCache(client, i.Logger, cacheOpts...)
	}

	if cfg.Kafka.Enabled && !o.skipProducer {
		if cfg.Kafka.AutoCreateTopics {
			if err := i.ensureTopics(ctx); err != nil {
				return err
			}
		}
		producer, err := kafka.NewProducer(cfg.Kafka.ProducerConfig(), i.Logger.Named("kafka"))
		if err != nil {
			return fmt.Errorf("kafka producer: %w", err)
		}
		i.Producer = producer
	}

	if cfg.MinIO.Enabled && !o.skipStorage {
		client, err := minio.NewClient(&cfg.MinIO.MinIOConfig, i.Logger.Named("minio"))
		if err != nil {
			return fmt.Errorf("minio: %w", err)
		}
		i.MinIO = client
		i.Reports = minio.NewReportStore(client, i.Logger)
	}
	return nil
}

func (i *Infrastructure) openMetrics() error {
	if !i.Config.Metrics.Enabled {
		i.Metrics = prometheus.NewNoopAppMetrics()
		return nil
	}
	collector, err := prometheus.NewMetricsCollector(i.Config.Metrics.CollectorConfig, i.Logger)
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}
	i.Collector = collector
	i.Metrics = prometheus.NewAppMetrics(collector)
	return nil
}

func (i *Infrastructure) ensureTopics(ctx context.Context) error {
	cfg := i.Config
	tm, err := kafka.NewTopicManager(cfg.Kafka.Brokers, i.Logger)
	if err != nil {
		return fmt.Errorf("kafka topics: %w", err)
	}
	defer tm.Close()

	topicCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	return tm.EnsureTopics(topicCtx, kafka.DefaultTopics(cfg.Threat.EventsTopic, cfg.Kafka.CompetitorTopic, cfg.Kafka.ReplicationFactor))
}

func (i *Infrastructure) migrateUp() error {
	m, err := i.Migrator()
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}

// Migrator returns a schema migrator on a dedicated connection, since closing
// the migrator closes its pool. Callers close it.
func (i *Infrastructure) Migrator() (*postgres.Migrator, error) {
	conn, err := postgres.NewConnection(i.Config.Database.PostgresConfig, i.Logger.Named("migrate"))
	if err != nil {
		return nil, fmt.Errorf("postgres: %w", err)
	}
	m, err := postgres.NewMigrator(conn, i.Logger.Named("migrate"))
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return m, nil
}

func (i *Infrastructure) CompetitorRepository() competitor.Repository       { return i.competitors }
func (i *Infrastructure) AnalysisRepository() competitor.AnalysisRepository { return i.analyses }

// ThreatService builds the threat assessment service once and returns it on
// every later call.
func (i *Infrastructure) ThreatService() (threatassessment.Service, error) {
	if i.threat != nil {
		return i.threat, nil
	}
	if i.competitors == nil {
		return nil, errors.New(errors.ErrCodeServiceUnavailable, "threat assessment requires the database")
	}
	cfg := i.Config.Threat
	opts := []threatassessment.Option{threatassessment.WithMetrics(i.Metrics)}
	if i.Cache != nil {
		opts = append(opts, threatassessment.WithCache(i.Cache))
	}
	if i.Producer != nil {
		opts = append(opts, threatassessment.WithPublisher(i.Producer))
	}
	if i.Reports != nil {
		opts = append(opts, threatassessment.WithReportStore(i.Reports))
	}
	i.threat = threatassessment.NewService(i.competitors, threatassessment.Config{
		MarketCompetitorLimit: cfg.MarketCompetitorLimit,
		MaxConcurrency:        cfg.MaxConcurrency,
		CacheTTL:              cfg.CacheTTL,
		EventsTopic:           cfg.EventsTopic,
	}, i.Logger.Named("threat"), opts...)
	return i.threat, nil
}

// AttributionService works without a database; only ProviderCounts needs it.
func (i *Infrastructure) AttributionService() attribution.Service {
	return attribution.NewService(i.analyses, provider.NewResolver(), i.Metrics, i.Logger.Named("attribution"))
}

// Notifier publishes competitor updates. Without a producer it is a no-op.
func (i *Infrastructure) Notifier() *invalidation.Notifier {
	var pub kafka.Publisher
	if i.Producer != nil {
		pub = i.Producer
	}
	return invalidation.NewNotifier(pub, i.Config.Kafka.CompetitorTopic, i.Metrics, i.Logger.Named("notifier"))
}

// Checks lists readiness probes for the opened components.
func (i *Infrastructure) Checks() []Check {
	var checks []Check
	if i.Postgres != nil {
		checks = append(checks, Check{Name: "postgres", Fn: i.Postgres.HealthCheck})
	}
	if i.Redis != nil {
		checks = append(checks, Check{Name: "redis", Fn: i.Redis.HealthCheck})
	}
	if i.MinIO != nil {
		checks = append(checks, Check{Name: "minio", Fn: i.MinIO.HealthCheck})
	}
	return checks
}

// Close releases components in reverse order of opening.
func (i *Infrastructure) Close() error {
	var errs []error
	if i.Producer != nil {
		errs = append(errs, i.Producer.Close())
	}
	if i.Redis != nil {
		errs = append(errs, i.Redis.Close())
	}
	if i.Postgres != nil {
		errs = append(errs, i.Postgres.Close())
	}
	return stderrors.Join(errs...)
}
