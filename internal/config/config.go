// Package config defines CompeteIQ's configuration tree. Infrastructure
// sections embed the config types of the packages they configure, so a YAML
// file maps one-to-one onto constructor arguments.
package config

import (
	"fmt"
	"time"

	"github.com/turtacn/competeiq/internal/infrastructure/database/postgres"
	redisinfra "github.com/turtacn/competeiq/internal/infrastructure/database/redis"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
)

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	MaxBodyBytes    int64         `mapstructure:"max_body_bytes"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	postgres.PostgresConfig `mapstructure:",squash"`
	AutoMigrate             bool `mapstructure:"auto_migrate"`
}

// CacheConfig enables the redis assessment cache.
type CacheConfig struct {
	redisinfra.RedisConfig `mapstructure:",squash"`
	Enabled                bool   `mapstructure:"enabled"`
	KeyPrefix              string `mapstructure:"key_prefix"`
}

type KafkaConfig struct {
	Enabled           bool                 `mapstructure:"enabled"`
	Brokers           []string             `mapstructure:"brokers"`
	CompetitorTopic   string               `mapstructure:"competitor_topic"`
	AutoCreateTopics  bool                 `mapstructure:"auto_create_topics"`
	ReplicationFactor int                  `mapstructure:"replication_factor"`
	Acks              string               `mapstructure:"acks"`
	Compression       string               `mapstructure:"compression"`
	Security          kafka.SecurityConfig `mapstructure:"security"`
}

// ProducerConfig derives the producer settings.
func (k KafkaConfig) ProducerConfig() kafka.ProducerConfig {
	return kafka.ProducerConfig{
		Brokers:          k.Brokers,
		Acks:             k.Acks,
		CompressionCodec: k.Compression,
		Security:         k.Security,
	}
}

type StorageConfig struct {
	minio.MinIOConfig `mapstructure:",squash"`
	Enabled           bool `mapstructure:"enabled"`
}

type MetricsConfig struct {
	prometheus.CollectorConfig `mapstructure:",squash"`
	Enabled                    bool   `mapstructure:"enabled"`
	Path                       string `mapstructure:"path"`
}

// ThreatConfig tunes threat assessment orchestration.
type ThreatConfig struct {
	MarketCompetitorLimit int           `mapstructure:"market_competitor_limit"`
	MaxConcurrency        int           `mapstructure:"max_concurrency"`
	CacheTTL              time.Duration `mapstructure:"cache_ttl"`
	EventsTopic           string        `mapstructure:"events_topic"`
	ReportBucket          string        `mapstructure:"report_bucket"`
}

// WorkerConfig configures cmd/worker.
type WorkerConfig struct {
	GroupID         string            `mapstructure:"group_id"`
	HealthPort      int               `mapstructure:"health_port"`
	Warm            bool              `mapstructure:"warm"`
	AutoOffsetReset string            `mapstructure:"auto_offset_reset"`
	Retry           kafka.RetryConfig `mapstructure:"retry"`
}

// ConsumerConfig derives the invalidation consumer settings.
func (c *Config) ConsumerConfig() kafka.ConsumerConfig {
	return kafka.ConsumerConfig{
		Brokers:         c.Kafka.Brokers,
		GroupID:         c.Worker.GroupID,
		Topics:          []string{c.Kafka.CompetitorTopic},
		AutoOffsetReset: c.Worker.AutoOffsetReset,
		Security:        c.Kafka.Security,
		Retry:           c.Worker.Retry,
	}
}

// Config is the root configuration.
type Config struct {
	Server   ServerConfig      `mapstructure:"server"`
	Database DatabaseConfig    `mapstructure:"database"`
	Redis    CacheConfig       `mapstructure:"redis"`
	Kafka    KafkaConfig       `mapstructure:"kafka"`
	MinIO    StorageConfig     `mapstructure:"minio"`
	Log      logging.LogConfig `mapstructure:"log"`
	Metrics  MetricsConfig     `mapstructure:"metrics"`
	Threat   ThreatConfig      `mapstructure:"threat"`
	Worker   WorkerConfig      `mapstructure:"worker"`
}

// Validate checks a defaulted Config and returns the first problem found.
// Optional sections are only checked when enabled.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range [1, 65535]", c.Server.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database.database is required")
	}
	if c.Database.Username == "" {
		return fmt.Errorf("database.username is required")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" && len(c.Redis.ClusterAddrs) == 0 && len(c.Redis.SentinelAddrs) == 0 {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if c.Redis.DB < 0 {
			return fmt.Errorf("redis.db must be >= 0, got %d", c.Redis.DB)
		}
	}

	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers must contain at least one broker when kafka is enabled")
	}

	if c.MinIO.Enabled && c.MinIO.Endpoint == "" {
		return fmt.Errorf("minio.endpoint is required when minio is enabled")
	}

	if c.Threat.MarketCompetitorLimit < 1 {
		return fmt.Errorf("threat.market_competitor_limit must be >= 1, got %d", c.Threat.MarketCompetitorLimit)
	}
	if c.Threat.MaxConcurrency < 1 {
		return fmt.Errorf("threat.max_concurrency must be >= 1, got %d", c.Threat.MaxConcurrency)
	}
	if c.Threat.CacheTTL < 0 {
		return fmt.Errorf("threat.cache_ttl must be >= 0")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("log.format %q is invalid; expected json|console", c.Log.Format)
	}
	return nil
}
