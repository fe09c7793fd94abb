package nats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubject(t *testing.T) {
	assert.Equal(t, "athena.SESSION_CREATED", Subject("SESSION_CREATED"))
}

func TestEnvelopeShape(t *testing.T) {
	at := time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)
	raw, err := json.Marshal(envelope{
		Type:       "SESSION_DELETED",
		OccurredAt: at,
		Data:       map[string]interface{}{"session_id": "abc"},
	})
	require.NoError(t, err)

	assert.JSONEq(t,
		`{"type":"SESSION_DELETED","occurred_at":"2026-01-22T00:00:00Z","data":{"session_id":"abc"}}`,
		string(raw),
	)
}

func TestDecodeEvent(t *testing.T) {
	event, err := DecodeEvent([]byte(`{"type":"MESSAGE_APPENDED","occurred_at":"2026-01-22T00:00:00Z","data":{"role":"model"}}`))
	require.NoError(t, err)

	assert.Equal(t, "MESSAGE_APPENDED", event.EventType())
	assert.Equal(t, "model", event.Payload()["role"])
	assert.True(t, event.Timestamp().Equal(time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)))

	_, err = DecodeEvent([]byte(`{"data":{}}`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`nope`))
	assert.Error(t, err)
}
