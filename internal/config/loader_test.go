package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validConfigYAML = `
server:
  host: "127.0.0.1"
  port: 8080
  read_timeout: 5s
database:
  host: "db.internal"
  port: 5432
  database: "competeiq"
  username: "app"
  password: "secret"
  auto_migrate: true
redis:
  enabled: true
  addr: "cache.internal:6379"
  db: 2
kafka:
  enabled: true
  brokers: ["k1:9092", "k2:9092"]
  security:
    sasl_enabled: true
    sasl_mechanism: "PLAIN"
minio:
  enabled: true
  endpoint: "s3.internal:9000"
  access_key_id: "key"
  secret_access_key: "secret"
log:
  level: "debug"
  format: "console"
metrics:
  enabled: true
threat:
  max_concurrency: 4
  cache_ttl: 2m
  report_bucket: "market-reports"
worker:
  warm: true
  retry:
    max_retries: 5
`

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func setEnvVars(t *testing.T, vars map[string]string) {
	t.Helper()
	for k, v := range vars {
		t.Setenv(k, v)
	}
}

func TestLoad_FromFile_ValidConfig(t *testing.T) {
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)

	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, 5*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "app", cfg.Database.Username)
	assert.True(t, cfg.Database.AutoMigrate)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "cache.internal:6379", cfg.Redis.Addr)
	assert.Equal(t, 2, cfg.Redis.DB)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	assert.True(t, cfg.Kafka.Security.SASLEnabled)
	assert.Equal(t, "PLAIN", cfg.Kafka.Security.SASLMechanism)
	assert.Equal(t, "s3.internal:9000", cfg.MinIO.Endpoint)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 4, cfg.Threat.MaxConcurrency)
	assert.Equal(t, 2*time.Minute, cfg.Threat.CacheTTL)
	assert.Equal(t, "market-reports", cfg.MinIO.ReportBucket)
	assert.True(t, cfg.Worker.Warm)
	assert.Equal(t, 5, cfg.Worker.Retry.MaxRetries)
}

func TestLoad_FromFile_FileNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigFileNotFound))
}

func TestLoad_FromFile_InvalidYAML(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "server: [unclosed"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigParseError))
}

func TestLoad_FromFile_ValidationFailure(t *testing.T) {
	_, err := Load(createTempConfigFile(t, "database:\n  host: db\nlog:\n  level: loud\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrConfigValidation))
}

func TestLoad_EnvOverride(t *testing.T) {
	setEnvVars(t, map[string]string{"COMPETEIQ_SERVER_PORT": "9090"})
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
}

func TestLoad_EnvOverride_NestedKey(t *testing.T) {
	setEnvVars(t, map[string]string{
		"COMPETEIQ_THREAT_MAX_CONCURRENCY":       "16",
		"COMPETEIQ_KAFKA_SECURITY_SASL_USERNAME": "svc",
	})
	cfg, err := Load(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, 16, cfg.Threat.MaxConcurrency)
	assert.Equal(t, "svc", cfg.Kafka.Security.SASLUsername)
}

func TestLoadFromEnv_NoFile(t *testing.T) {
	setEnvVars(t, map[string]string{
		"COMPETEIQ_DATABASE_USERNAME": "env-user",
		"COMPETEIQ_DATABASE_HOST":     "env-db",
		"COMPETEIQ_REDIS_ENABLED":     "true",
		"COMPETEIQ_REDIS_ADDR":        "env-cache:6379",
	})
	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Database.Username)
	assert.Equal(t, "env-db", cfg.Database.Host)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "env-cache:6379", cfg.Redis.Addr)
	assert.Equal(t, DefaultServerPort, cfg.Server.Port)
}

func TestLoadOrEnv(t *testing.T) {
	setEnvVars(t, map[string]string{"COMPETEIQ_DATABASE_USERNAME": "env-user"})

	cfg, err := LoadOrEnv("")
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Database.Username)

	cfg, err = LoadOrEnv(createTempConfigFile(t, validConfigYAML))
	require.NoError(t, err)
	assert.Equal(t, "env-user", cfg.Database.Username)
	assert.Equal(t, "db.internal", cfg.Database.Host)
}

func TestMustLoad_Success(t *testing.T) {
	cfg := MustLoad(createTempConfigFile(t, validConfigYAML))
	assert.NotNil(t, cfg)
}

func TestMustLoad_Panic(t *testing.T) {
	assert.Panics(t, func() { MustLoad("/nonexistent/config.yaml") })
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := createTempConfigFile(t, validConfigYAML)

	var mu sync.Mutex
	var levels []string
	err := Watch(path, func(c *Config) {
		mu.Lock()
		levels = append(levels, c.Log.Level)
		mu.Unlock()
	}, nil)
	require.NoError(t, err)

	updated := strings.Replace(validConfigYAML, `level: "debug"`, `level: "warn"`, 1)
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		for _, l := range levels {
			if l == "warn" {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(filepath.Join(t.TempDir(), "nope.yaml"), func(*Config) {}, nil)
	assert.True(t, errors.Is(err, ErrConfigFileNotFound))
}
