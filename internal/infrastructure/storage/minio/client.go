// Package minio stores archived market reports in S3-compatible object storage.
package minio

import (
	"context"
	"io"
	"net/url"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/pkg/errors"
)

// MinIOAPI is the subset of *minio.Client the report store uses.
type MinIOAPI interface {
	ListBuckets(ctx context.Context) ([]minio.BucketInfo, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	SetBucketLifecycle(ctx context.Context, bucketName string, config *lifecycle.Configuration) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	ListObjects(ctx context.Context, bucketName string, opts minio.ListObjectsOptions) <-chan minio.ObjectInfo
	PresignedGetObject(ctx context.Context, bucketName, objectName string, expiry time.Duration, reqParams url.Values) (*url.URL, error)
}

type MinIOConfig struct {
	Endpoint            string        `mapstructure:"endpoint"`
	AccessKeyID         string        `mapstructure:"access_key_id"`
	SecretAccessKey     string        `mapstructure:"secret_access_key"`
	UseSSL              bool          `mapstructure:"use_ssl"`
	Region              string        `mapstructure:"region"`
	ReportBucket        string        `mapstructure:"report_bucket"`
	ReportRetentionDays int           `mapstructure:"report_retention_days"`
	PresignExpiry       time.Duration `mapstructure:"presign_expiry"`
}

type Client struct {
	api    MinIOAPI
	config *MinIOConfig
	logger logging.Logger
}

// NewClient connects, then makes sure the report bucket and its retention
// rule exist.
func NewClient(cfg *MinIOConfig, log logging.Logger) (*Client, error) {
	applyDefaults(cfg)

	api, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeStorageError, "create minio client")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if _, err := api.ListBuckets(ctx); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeServiceUnavailable, "connect to minio")
	}

	c := NewClientWithAPI(api, cfg, log)
	if err := c.EnsureBucket(ctx); err != nil {
		return nil, err
	}
	log.Info("MinIO client connected", logging.String("endpoint", cfg.Endpoint), logging.Bool("ssl", cfg.UseSSL))
	return c, nil
}

func NewClientWithAPI(api MinIOAPI, cfg *MinIOConfig, log logging.Logger) *Client {
	applyDefaults(cfg)
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Client{api: api, config: cfg, logger: log}
}

func applyDefaults(cfg *MinIOConfig) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}
	if cfg.ReportBucket == "" {
		cfg.ReportBucket = "competeiq-reports"
	}
	if cfg.PresignExpiry == 0 {
		cfg.PresignExpiry = time.Hour
	}
}

// EnsureBucket creates the report bucket when missing and installs an
// expiration rule when ReportRetentionDays is positive. A lifecycle failure
// is logged, not returned.
func (c *Client) EnsureBucket(ctx context.Context) error {
	bucket := c.config.ReportBucket
	exists, err := c.api.BucketExists(ctx, bucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "check bucket").WithDetail(bucket)
	}
	if !exists {
		if err := c.api.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: c.config.Region}); err != nil {
			return errors.Wrap(err, errors.ErrCodeStorageError, "create bucket").WithDetail(bucket)
		}
		c.logger.Info("Created bucket", logging.String("bucket", bucket))
	}

	if c.config.ReportRetentionDays > 0 {
		lc := lifecycle.NewConfiguration()
		lc.Rules = []lifecycle.Rule{{
			ID:         "report-retention",
			Status:     "Enabled",
			Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(c.config.ReportRetentionDays)},
		}}
		if err := c.api.SetBucketLifecycle(ctx, bucket, lc); err != nil {
			c.logger.Warn("Failed to set report retention", logging.String("bucket", bucket), logging.Err(err))
		}
	}
	return nil
}

func (c *Client) HealthCheck(ctx context.Context) error {
	exists, err := c.api.BucketExists(ctx, c.config.ReportBucket)
	if err != nil {
		return errors.Wrap(err, errors.ErrCodeStorageError, "minio health check failed")
	}
	if !exists {
		return errors.New(errors.ErrCodeStorageError, "report bucket missing").WithDetail(c.config.ReportBucket)
	}
	return nil
}

func (c *Client) Bucket() string {
	return c.config.ReportBucket
}
