package invalidation

import (
	"context"
	"time"

	"github.com/turtacn/competeiq/internal/domain/competitor"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/prometheus"
)

const eventSource = "competeiq.apiserver"

// Notifier publishes competitor.updated events after a competitor is written.
type Notifier struct {
	publisher kafka.Publisher
	topic     string
	metrics   *prometheus.AppMetrics
	logger    logging.Logger
}

// NewNotifier returns a Notifier publishing to topic. A nil publisher makes
// CompetitorUpdated a no-op.
func NewNotifier(publisher kafka.Publisher, topic string, metrics *prometheus.AppMetrics, log logging.Logger) *Notifier {
	if topic == "" {
		topic = kafka.TopicCompetitorUpdated
	}
	if metrics == nil {
		metrics = prometheus.NewNoopAppMetrics()
	}
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Notifier{publisher: publisher, topic: topic, metrics: metrics, logger: log}
}

// CompetitorUpdated publishes the event keyed by competitor id so updates to
// one competitor stay ordered within a partition. previousIndustry is the
// industry stored before the write, or empty for a new competitor.
func (n *Notifier) CompetitorUpdated(ctx context.Context, c *competitor.Competitor, previousIndustry string) error {
	if n == nil || n.publisher == nil || c == nil {
		return nil
	}
	updatedAt := c.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	err := n.publish(ctx, c.ID, kafka.CompetitorUpdatedPayload{
		CompetitorID:     c.ID,
		Industry:         c.Industry,
		PreviousIndustry: previousIndustry,
		UpdatedAt:        updatedAt,
	})
	prometheus.RecordEvent(n.metrics, kafka.EventCompetitorUpdated, err)
	if err != nil {
		n.logger.Warn("Failed to publish competitor.updated", logging.String("competitor_id", c.ID), logging.Err(err))
	}
	return err
}

func (n *Notifier) publish(ctx context.Context, key string, payload kafka.CompetitorUpdatedPayload) error {
	env, err := kafka.NewEventEnvelope(kafka.EventCompetitorUpdated, eventSource, payload)
	if err != nil {
		return err
	}
	msg, err := env.ToMessage(n.topic, key)
	if err != nil {
		return err
	}
	return n.publisher.Publish(ctx, msg)
}
