// Package invalidation keeps the threat cache consistent with the competitor
// store by reacting to competitor.updated events.
package invalidation

import (
	"context"
	"slices"
	"strings"

	"github.com/turtacn/competeiq/internal/application/threatassessment"
	"github.com/turtacn/competeiq/internal/domain/threat"
	"github.com/turtacn/competeiq/internal/infrastructure/messaging/kafka"
	"github.com/turtacn/competeiq/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/competeiq/pkg/errors"
)

// Deleter is the cache capability the handler needs.
type Deleter interface {
	Delete(ctx context.Context, keys ...string) error
}

// Warmer recomputes an assessment so the next read is served from cache.
type Warmer interface {
	AssessCompetitorThreat(ctx context.Context, id string) *threat.Assessment
}

// Handler consumes competitor.updated events.
type Handler struct {
	cache  Deleter
	warmer Warmer
	logger logging.Logger
}

// NewHandler builds a Handler. warmer may be nil to disable warming.
func NewHandler(cache Deleter, warmer Warmer, log logging.Logger) *Handler {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Handler{cache: cache, warmer: warmer, logger: log.Named("invalidation")}
}

// Handle implements kafka.MessageHandler. Undecodable messages and events of
// other types are dropped with a log line; a cache failure is returned so the
// consumer retries it.
func (h *Handler) Handle(ctx context.Context, msg *kafka.Message) error {
	env, err := kafka.MessageToEventEnvelope(msg)
	if err != nil {
		var offset int64 = -1
		if msg != nil {
			offset = msg.Offset
		}
		h.logger.Warn("Dropping malformed event", logging.Int64("offset", offset), logging.Err(err))
		return nil
	}
	if env.EventType != kafka.EventCompetitorUpdated {
		h.logger.Debug("Ignoring event", logging.String("event_type", env.EventType))
		return nil
	}

	var payload kafka.CompetitorUpdatedPayload
	if err := env.DecodePayload(&payload); err != nil || strings.TrimSpace(payload.CompetitorID) == "" {
		h.logger.Warn("Dropping competitor.updated event without competitor id",
			logging.String("event_id", env.EventID), logging.Err(err))
		return nil
	}

	keys := Keys(payload)
	if err := h.cache.Delete(ctx, keys...); err != nil {
		return errors.Wrap(err, errors.ErrCodeCacheError, "invalidate threat cache").
			WithDetail("competitor_id=" + payload.CompetitorID)
	}
	h.logger.Info("Invalidated threat cache",
		logging.String("competitor_id", payload.CompetitorID),
		logging.String("industry", payload.Industry),
		logging.String("previous_industry", payload.PreviousIndustry),
		logging.Int("keys", len(keys)),
	)

	if h.warmer != nil {
		a := h.warmer.AssessCompetitorThreat(ctx, payload.CompetitorID)
		h.logger.Debug("Warmed competitor assessment",
			logging.String("competitor_id", payload.CompetitorID),
			logging.Int("score", a.Score),
		)
	}
	return nil
}

// Keys lists the cache entries an update to the competitor makes stale.
func Keys(p kafka.CompetitorUpdatedPayload) []string {
	keys := []string{threatassessment.CompetitorCacheKey(p.CompetitorID)}
	for _, industry := range []string{p.Industry, p.PreviousIndustry} {
		if strings.TrimSpace(industry) == "" {
			continue
		}
		key := threatassessment.MarketCacheKey(industry)
		if !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	return keys
}
