package kafka

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockKafkaConn struct {
	created    []kafka.TopicConfig
	createErr  error
	partitions []kafka.Partition
}

func (m *mockKafkaConn) CreateTopics(topics ...kafka.TopicConfig) error {
	m.created = append(m.created, topics...)
	return m.createErr
}

func (m *mockKafkaConn) ReadPartitions(...string) ([]kafka.Partition, error) {
	return m.partitions, nil
}

func (m *mockKafkaConn) Close() error { return nil }

func TestCreateTopic_ConfigEntries(t *testing.T) {
	conn := &mockKafkaConn{}
	m := NewTopicManagerWithConn(conn, nil)

	err := m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 3, ReplicationFactor: 1, RetentionMs: 1000, CleanupPolicy: "delete"})
	require.NoError(t, err)
	require.Len(t, conn.created, 1)
	assert.Equal(t, []kafka.ConfigEntry{
		{ConfigName: "retention.ms", ConfigValue: "1000"},
		{ConfigName: "cleanup.policy", ConfigValue: "delete"},
	}, conn.created[0].ConfigEntries)
}

func TestCreateTopic_Validation(t *testing.T) {
	m := NewTopicManagerWithConn(&mockKafkaConn{}, nil)
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{}))
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t"}))
}

func TestCreateTopic_AlreadyExists(t *testing.T) {
	conn := &mockKafkaConn{createErr: errors.New("exists"), partitions: []kafka.Partition{{Topic: "t"}}}
	m := NewTopicManagerWithConn(conn, nil)
	assert.NoError(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))
}

func TestCreateTopic_Failure(t *testing.T) {
	conn := &mockKafkaConn{createErr: errors.New("broker unavailable")}
	m := NewTopicManagerWithConn(conn, nil)
	assert.Error(t, m.CreateTopic(context.Background(), TopicConfig{Name: "t", NumPartitions: 1, ReplicationFactor: 1}))
}

func TestDefaultTopics(t *testing.T) {
	topics := DefaultTopics("", "custom.updates", 0)
	require.Len(t, topics, 3)
	assert.Equal(t, TopicThreatAssessed, topics[0].Name)
	assert.Equal(t, "custom.updates", topics[1].Name)
	for _, tc := range topics {
		assert.Equal(t, 1, tc.ReplicationFactor)
	}

	conn := &mockKafkaConn{}
	require.NoError(t, NewTopicManagerWithConn(conn, nil).EnsureTopics(context.Background(), topics))
	assert.Len(t, conn.created, 3)
}
