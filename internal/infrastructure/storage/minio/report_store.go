package minio

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"

	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/pkg/errors"
)

var ErrInvalidObjectKey = errors.New(errors.ErrCodeValidation, "object key required")

// StoredObject describes an archived report.
type StoredObject struct {
	Bucket       string    `json:"bucket"`
	Key          string    `json:"key"`
	ETag         string    `json:"etag,omitempty"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"lastModified"`
	URL          string    `json:"url,omitempty"`
}

// ReportStore persists JSON reports. The threat service depends on this
// interface rather than on minio directly.
type ReportStore interface {
	PutReport(ctx context.Context, key string, body []byte, metadata map[string]string) (*StoredObject, error)
	ListReports(ctx context.Context, prefix string) ([]StoredObject, error)
}

type reportStore struct {
	client *Client
	logger logging.Logger
}

func NewReportStore(client *Client, log logging.Logger) ReportStore {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &reportStore{client: client, logger: log}
}

// PutReport uploads body as application/json and returns a presigned URL for it.
// A presign failure leaves URL empty.
func (s *reportStore) PutReport(ctx context.Context, key string, body []byte, metadata map[string]string) (*StoredObject, error) {
	key = strings.TrimPrefix(key, "/")
	if key == "" {
		return nil, ErrInvalidObjectKey
	}
	bucket := s.client.config.ReportBucket

	info, err := s.client.api.PutObject(ctx, bucket, key, bytes.NewReader(body), int64(len(body)), minio.PutObjectOptions{
		ContentType:  "application/json",
		UserMetadata: metadata,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeReportArchive, "upload report").WithDetail(bucket + "/" + key)
	}

	obj := &StoredObject{
		Bucket:       bucket,
		Key:          key,
		ETag:         info.ETag,
		Size:         info.Size,
		LastModified: info.LastModified,
	}
	if obj.LastModified.IsZero() {
		obj.LastModified = time.Now().UTC()
	}
	if u, err := s.client.api.PresignedGetObject(ctx, bucket, key, s.client.config.PresignExpiry, nil); err == nil {
		obj.URL = u.String()
	} else {
		s.logger.Warn("Failed to presign report URL", logging.String("key", key), logging.Err(err))
	}

	s.logger.Info("Report archived", logging.String("bucket", bucket), logging.String("key", key), logging.Int64("size", info.Size))
	return obj, nil
}

// ListReports returns the reports under prefix, newest first.
func (s *reportStore) ListReports(ctx context.Context, prefix string) ([]StoredObject, error) {
	bucket := s.client.config.ReportBucket
	var out []StoredObject
	for obj := range s.client.api.ListObjects(ctx, bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.Wrap(obj.Err, errors.ErrCodeStorageError, "list reports").WithDetail(prefix)
		}
		out = append(out, StoredObject{
			Bucket:       bucket,
			Key:          obj.Key,
			ETag:         obj.ETag,
			Size:         obj.Size,
			LastModified: obj.LastModified,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].LastModified.After(out[j].LastModified) })
	return out, nil
}
