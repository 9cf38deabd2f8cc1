package telemetryws

import (
	"encoding/json"
	"testing"

	"github.com/tj/assert"
)

func TestTelemetryEnvelope(t *testing.T) {
	t.Run("wire shape", func(t *testing.T) {
		events := []json.RawMessage{
			json.RawMessage(`{"event_id":"e1"}`),
			json.RawMessage(`{"event_id":"e2"}`),
		}
		data, err := TelemetryEnvelope(events)
		assert.NoError(t, err)
		assert.Equal(t, `{"type":"telemetry","data":[{"event_id":"e1"},{"event_id":"e2"}]}`, string(data))
	})

	t.Run("round trip", func(t *testing.T) {
		events := []json.RawMessage{json.RawMessage(`{"event_id":"e1"}`)}
		data, err := TelemetryEnvelope(events)
		assert.NoError(t, err)

		envelope, err := ParseEnvelope(data)
		assert.NoError(t, err)
		assert.Equal(t, MsgTelemetry, envelope.Type)
		assert.Len(t, envelope.Data, 1)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{"data":[]}`))
		assert.Error(t, err)
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := ParseEnvelope([]byte(`{not json`))
		assert.Error(t, err)
	})
}
