package threatassessment

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	redisinfra "github.com/turtacn/competeiq/internal/infrastructure/database/redis"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/storage/minio"
)

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) GetByID(ctx context.Context, id string) (*competitor.Competitor, error) {
	args := m.Called(ctx, id)
	c, _ := args.Get(0).(*competitor.Competitor)
	return c, args.Error(1)
}

func (m *mockRepo) ListByIndustry(ctx context.Context, industry string, limit int) ([]*competitor.Competitor, error) {
	args := m.Called(ctx, industry, limit)
	cs, _ := args.Get(0).([]*competitor.Competitor)
	return cs, args.Error(1)
}

func (m *mockRepo) Save(ctx context.Context, c *competitor.Competitor) error {
	return m.Called(ctx, c).Error(0)
}

type mockPublisher struct {
	mock.Mock
	mu   sync.Mutex
	sent []*kafka.ProducerMessage
}

func (m *mockPublisher) Publish(ctx context.Context, msg *kafka.ProducerMessage) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	return m.Called(ctx, msg).Error(0)
}

func (m *mockPublisher) eventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.sent))
	for _, msg := range m.sent {
		out = append(out, msg.Headers["event_type"])
	}
	return out
}

type mockReportStore struct {
	mock.Mock
}

func (m *mockReportStore) PutReport(ctx context.Context, key string, body []byte, metadata map[string]string) (*minio.StoredObject, error) {
	args := m.Called(ctx, key, body, metadata)
	obj, _ := args.Get(0).(*minio.StoredObject)
	return obj, args.Error(1)
}

func (m *mockReportStore) ListReports(ctx context.Context, prefix string) ([]minio.StoredObject, error) {
	args := m.Called(ctx, prefix)
	objs, _ := args.Get(0).([]minio.StoredObject)
	return objs, args.Error(1)
}

// memCache stores JSON like the redis cache does.
type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	setErr  error
	setKeys []string
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(_ context.Context, key string, dest any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return c.getErr
	}
	b, ok := c.data[key]
	if !ok {
		return redisinfra.ErrCacheMiss
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setKeys = append(c.setKeys, key)
	if c.setErr != nil {
		return c.setErr
	}
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.data[key] = b
	return nil
}

// GetOrSet follows redis.Cache: read errors are returned, loader errors are
// returned uncached and write errors are ignored.
func (c *memCache) GetOrSet(ctx context.Context, key string, dest any, ttl time.Duration, loader func(ctx context.Context) (any, error)) error {
	err := c.Get(ctx, key, dest)
	if err == nil || !redisinfra.IsCacheMiss(err) {
		return err
	}
	v, err := loader(ctx)
	if err != nil {
		return err
	}
	_ = c.Set(ctx, key, v, ttl)
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(b, dest)
}

func (c *memCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.data[key]
	return ok
}
