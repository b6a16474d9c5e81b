package config

import (
	"time"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
)

const (
	DefaultServerHost = "0.0.0.0"
	DefaultServerPort = 8080

	DefaultDBHost = "localhost"
	DefaultDBPort = 5432
	DefaultDBName = "competeiq"

	DefaultRedisAddr      = "localhost:6379"
	DefaultCacheKeyPrefix = "competeiq:"

	DefaultKafkaBroker   = "localhost:9092"
	DefaultWorkerGroupID = "competeiq-invalidator"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultReportBucket  = "competeiq-reports"

	DefaultMetricsNamespace = "competeiq"
	DefaultMetricsPath      = "/metrics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultMaxConcurrency = 8
	DefaultCacheTTL       = 10 * time.Minute
	DefaultHealthPort     = 8081
)

// ApplyDefaults fills zero-value fields. Explicit values always win.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	if cfg.Server.Host == "" {
		cfg.Server.Host = DefaultServerHost
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 15 * time.Second
	}
	if cfg.Server.MaxBodyBytes == 0 {
		cfg.Server.MaxBodyBytes = 1 << 20
	}

	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.Database == "" {
		cfg.Database.Database = DefaultDBName
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultCacheKeyPrefix
	}

	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.CompetitorTopic == "" {
		cfg.Kafka.CompetitorTopic = kafka.TopicCompetitorUpdated
	}
	if cfg.Kafka.ReplicationFactor == 0 {
		cfg.Kafka.ReplicationFactor = 1
	}

	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}

	if cfg.Metrics.Namespace == "" {
		cfg.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	if cfg.Threat.MarketCompetitorLimit == 0 {
		cfg.Threat.MarketCompetitorLimit = competitor.DefaultMarketLimit
	}
	if cfg.Threat.MaxConcurrency == 0 {
		cfg.Threat.MaxConcurrency = DefaultMaxConcurrency
	}
	if cfg.Threat.CacheTTL == 0 {
		cfg.Threat.CacheTTL = DefaultCacheTTL
	}
	if cfg.Threat.EventsTopic == "" {
		cfg.Threat.EventsTopic = kafka.TopicThreatAssessed
	}
	// threat.report_bucket and minio.report_bucket name the same bucket.
	switch {
	case cfg.Threat.ReportBucket == "" && cfg.MinIO.ReportBucket == "":
		cfg.Threat.ReportBucket = DefaultReportBucket
		cfg.MinIO.ReportBucket = DefaultReportBucket
	case cfg.Threat.ReportBucket == "":
		cfg.Threat.ReportBucket = cfg.MinIO.ReportBucket
	default:
		cfg.MinIO.ReportBucket = cfg.Threat.ReportBucket
	}

	if cfg.Worker.GroupID == "" {
		cfg.Worker.GroupID = DefaultWorkerGroupID
	}
	if cfg.Worker.HealthPort == 0 {
		cfg.Worker.HealthPort = DefaultHealthPort
	}
	if cfg.Worker.AutoOffsetReset == "" {
		cfg.Worker.AutoOffsetReset = "earliest"
	}
}
