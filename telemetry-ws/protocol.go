package telemetryws

import (
	"encoding/json"
	"fmt"
)

// Message types sent over the WebSocket channel. The channel is a
// one-directional (server to client) notification stream; clients never
// receive an acknowledgment path back to the dispatcher.
const (
	MsgTelemetry = "telemetry"
)

// Envelope is the wire format delivered to every connection in a broadcast
// cycle: one envelope per cycle per destination.
type Envelope struct {
	Type string            `json:"type"`
	Data []json.RawMessage `json:"data"`
}

// TelemetryEnvelope serializes a batch of events into the wire envelope. The
// dispatcher marshals once per cycle and reuses the bytes for every
// destination.
func TelemetryEnvelope(events []json.RawMessage) ([]byte, error) {
	b, err := json.Marshal(Envelope{
		Type: MsgTelemetry,
		Data: events,
	})
	if err != nil {
		return nil, fmt.Errorf("marshalling telemetry envelope: %w", err)
	}
	return b, nil
}

// ParseEnvelope parses a wire envelope. Used by test clients; the server
// itself never interprets inbound payloads.
func ParseEnvelope(data []byte) (*Envelope, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("invalid envelope: %w", err)
	}
	if envelope.Type == "" {
		return nil, fmt.Errorf("missing envelope type")
	}
	return &envelope, nil
}
