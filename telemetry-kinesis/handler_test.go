package telemetrykinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	telemetryws "github.com/acmevideo/telemetry-fanout/telemetry-ws"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

// fakeBroadcaster records the batches handed to it.
type fakeBroadcaster struct {
	batches [][]json.RawMessage
	err     error
}

func (f *fakeBroadcaster) Broadcast(_ context.Context, batch []json.RawMessage) ([]telemetryws.Delivery, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.batches = append(f.batches, batch)
	return nil, nil
}

func kinesisEvent(payloads ...string) events.KinesisEvent {
	var records []events.KinesisEventRecord
	for i, payload := range payloads {
		records = append(records, events.KinesisEventRecord{
			EventID: fmt.Sprintf("seq-%03d", i),
			Kinesis: events.KinesisRecord{
				Data:         []byte(payload),
				PartitionKey: "cust_000001",
			},
		})
	}
	return events.KinesisEvent{Records: records}
}

func newTestHandler(b Broadcaster) *Handler {
	return &Handler{
		Logger:      zerolog.Nop(),
		Broadcaster: b,
	}
}

func TestHandler_Batch(t *testing.T) {
	b := &fakeBroadcaster{}
	h := newTestHandler(b)

	err := h.HandleKinesisEvent(context.Background(), kinesisEvent(
		`{"event_id":"e1"}`,
		`{"event_id":"e2"}`,
	))
	assert.NoError(t, err)
	assert.Len(t, b.batches, 1)
	assert.Equal(t, []json.RawMessage{
		json.RawMessage(`{"event_id":"e1"}`),
		json.RawMessage(`{"event_id":"e2"}`),
	}, b.batches[0])
}

func TestHandler_MalformedRecordDropped(t *testing.T) {
	b := &fakeBroadcaster{}
	h := newTestHandler(b)

	// record 3 of 5 is invalid JSON; the other four survive in order
	err := h.HandleKinesisEvent(context.Background(), kinesisEvent(
		`{"event_id":"e1"}`,
		`{"event_id":"e2"}`,
		`{"event_id":"e3"`,
		`{"event_id":"e4"}`,
		`{"event_id":"e5"}`,
	))
	assert.NoError(t, err)
	assert.Len(t, b.batches, 1)
	assert.Equal(t, []json.RawMessage{
		json.RawMessage(`{"event_id":"e1"}`),
		json.RawMessage(`{"event_id":"e2"}`),
		json.RawMessage(`{"event_id":"e4"}`),
		json.RawMessage(`{"event_id":"e5"}`),
	}, b.batches[0])
}

func TestHandler_AllRecordsMalformed(t *testing.T) {
	b := &fakeBroadcaster{}
	h := newTestHandler(b)

	err := h.HandleKinesisEvent(context.Background(), kinesisEvent(`nope`, `{broken`))
	assert.NoError(t, err)
	assert.Len(t, b.batches, 0)
}

func TestHandler_ChunksLargeBatches(t *testing.T) {
	b := &fakeBroadcaster{}
	h := newTestHandler(b)
	h.BatchSize = 100

	var payloads []string
	for i := 0; i < 250; i++ {
		payloads = append(payloads, fmt.Sprintf(`{"event_id":"e%03d"}`, i))
	}

	err := h.HandleKinesisEvent(context.Background(), kinesisEvent(payloads...))
	assert.NoError(t, err)
	assert.Len(t, b.batches, 3)
	assert.Len(t, b.batches[0], 100)
	assert.Len(t, b.batches[1], 100)
	assert.Len(t, b.batches[2], 50)

	// order preserved across chunks
	assert.Equal(t, json.RawMessage(`{"event_id":"e000"}`), b.batches[0][0])
	assert.Equal(t, json.RawMessage(`{"event_id":"e100"}`), b.batches[1][0])
	assert.Equal(t, json.RawMessage(`{"event_id":"e249"}`), b.batches[2][49])
}

func TestHandler_BroadcastErrorSurfaces(t *testing.T) {
	b := &fakeBroadcaster{err: fmt.Errorf("registry unavailable")}
	h := newTestHandler(b)

	// a failed cycle propagates so Kinesis redelivers the batch
	err := h.HandleKinesisEvent(context.Background(), kinesisEvent(`{"event_id":"e1"}`))
	assert.Error(t, err)
}

func TestParseRecord(t *testing.T) {
	assert.NoError(t, parseRecord([]byte(`{"event_id":"e1"}`)).err)
	assert.NoError(t, parseRecord([]byte(`[1,2,3]`)).err)
	assert.Error(t, parseRecord([]byte(`{"event_id":`)).err)
	assert.Error(t, parseRecord([]byte(``)).err)
}
