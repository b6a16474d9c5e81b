package kafka

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventEnvelope_RoundTripThroughMessage(t *testing.T) {
	env, err := NewEventEnvelope(EventCompetitorUpdated, "competeiq-apiserver", CompetitorUpdatedPayload{
		CompetitorID: "c1",
		Industry:     "Fintech",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, env.EventID)
	assert.Equal(t, "v1", env.SchemaVersion)

	pm, err := env.ToMessage(TopicCompetitorUpdated, "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1", string(pm.Key))
	assert.Equal(t, EventCompetitorUpdated, pm.Headers["event_type"])

	got, err := MessageToEventEnvelope(&Message{Value: pm.Value})
	require.NoError(t, err)
	assert.Equal(t, env.EventID, got.EventID)

	var payload CompetitorUpdatedPayload
	require.NoError(t, got.DecodePayload(&payload))
	assert.Equal(t, "Fintech", payload.Industry)
}

func TestMessageToEventEnvelope_Rejects(t *testing.T) {
	_, err := MessageToEventEnvelope(&Message{})
	assert.Error(t, err)

	_, err = MessageToEventEnvelope(&Message{Value: []byte("{")})
	assert.Error(t, err)

	raw, _ := json.Marshal(map[string]any{"payload": map[string]any{}})
	_, err = MessageToEventEnvelope(&Message{Value: raw})
	assert.Error(t, err)
}

func TestDecodePayload_Empty(t *testing.T) {
	env := &EventEnvelope{Payload: json.RawMessage("null")}
	var p ThreatAssessedPayload
	assert.Error(t, env.DecodePayload(&p))
}
