package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/turtacn/competeiq/pkg/errors"
)

const (
	TopicThreatAssessed    = "competeiq.threat.assessed"
	TopicCompetitorUpdated = "competeiq.competitor.updated"
	TopicDeadLetter        = "competeiq.dead_letter"
)

const (
	EventCompetitorThreatAssessed = "competitor.threat.assessed"
	EventMarketThreatAssessed     = "market.threat.assessed"
	EventCompetitorUpdated        = "competitor.updated"
)

const schemaVersion = "v1"

// EventEnvelope wraps every CompeteIQ event payload.
type EventEnvelope struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	Source        string            `json:"source"`
	Timestamp     time.Time         `json:"timestamp"`
	SchemaVersion string            `json:"schema_version"`
	Payload       json.RawMessage   `json:"payload"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ThreatAssessedPayload is carried by both assessment event types. Exactly one
// of CompetitorID and Industry is set.
type ThreatAssessedPayload struct {
	CompetitorID    string         `json:"competitor_id,omitempty"`
	Industry        string         `json:"industry,omitempty"`
	ThreatLevel     string         `json:"threat_level"`
	Score           int            `json:"score"`
	Factors         map[string]int `json:"factors"`
	CompetitorCount int            `json:"competitor_count,omitempty"`
	AssessedAt      time.Time      `json:"assessed_at"`
}

type CompetitorUpdatedPayload struct {
	CompetitorID string `json:"competitor_id"`
	Industry     string `json:"industry"`
	// PreviousIndustry is set when the write moved the competitor out of
	// another industry.
	PreviousIndustry string    `json:"previous_industry,omitempty"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func NewEventEnvelope(eventType, source string, payload any) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event payload")
	}
	return &EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

func (e *EventEnvelope) DecodePayload(target any) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return errors.New(errors.ErrCodeValidation, "event payload is empty")
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "decode event payload")
	}
	return nil
}

// ToMessage renders the envelope for topic, keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (*ProducerMessage, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "marshal event envelope")
	}
	return &ProducerMessage{
		Topic: topic,
		Key:   []byte(key),
		Value: val,
		Headers: map[string]string{
			"event_type":     e.EventType,
			"source_service": e.Source,
			"schema_version": e.SchemaVersion,
		},
		Timestamp: e.Timestamp,
	}, nil
}

func MessageToEventEnvelope(msg *Message) (*EventEnvelope, error) {
	if msg == nil || len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "unmarshal event envelope")
	}
	if env.EventType == "" {
		return nil, errors.New(errors.ErrCodeValidation, "event_type missing")
	}
	return &env, nil
}
