// Package telemetrykinesis consumes batches of telemetry events from the
// upstream Kinesis stream and hands them to the WebSocket dispatcher.
//
// Records are parsed independently and tolerantly: a malformed record is
// dropped and logged, never failing the batch it arrived in. In Lambda mode
// the event source mapping resumes each shard from its committed offset; in
// console mode a local consumer does the same through a DynamoDB checkpoint
// table. Neither mode rewinds to historical data.
package telemetrykinesis

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/acmevideo/telemetry-fanout/telemetry-kinesis/checkpointdao"
	telemetryws "github.com/acmevideo/telemetry-fanout/telemetry-ws"
	"github.com/acmevideo/telemetry-fanout/telemetry-ws/publish"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	consumer "github.com/harlow/kinesis-consumer"
	"github.com/rs/zerolog"
	"github.com/urfave/cli/v2"
)

// DefaultBatchSize bounds the events handed to one broadcast cycle so a
// single fan-out has predictable worst-case latency.
const DefaultBatchSize = 100

// Broadcaster fans one batch out to every connected client.
type Broadcaster interface {
	Broadcast(ctx context.Context, batch []json.RawMessage) ([]telemetryws.Delivery, error)
}

type Handler struct {
	Service     telemetrycli.Service
	Logger      zerolog.Logger
	Broadcaster Broadcaster
	Metrics     *telemetrycli.Metrics // optional
	BatchSize   int                   // max events per broadcast cycle (default 100)
}

func NewHandler(service telemetrycli.Service, broadcaster Broadcaster) *Handler {
	return &Handler{
		Service:     service,
		Logger:      telemetrycli.Logger(service),
		Broadcaster: broadcaster,
		BatchSize:   KinesisOpts.BatchSize,
	}
}

func (h *Handler) Start(_ *cli.Context) error {
	if !telemetrycli.CommonOpts.Console {
		lambda.Start(h.HandleKinesisEvent)
		return nil
	}
	return h.handleRealtime()
}

// HandleKinesisEvent processes one shard batch: tolerant per-record parsing,
// then one broadcast cycle per chunk of parsed events. Returning an error
// makes Kinesis redeliver the batch (at-least-once); clients may then see
// duplicates, which is accepted.
func (h *Handler) HandleKinesisEvent(ctx context.Context, event events.KinesisEvent) error {
	ctx = h.Logger.WithContext(ctx)

	parsed := h.parseRecords(ctx, event.Records)
	if len(parsed) == 0 {
		return nil
	}

	for _, batch := range chunk(parsed, h.batchSize()) {
		if _, err := h.Broadcaster.Broadcast(ctx, batch); err != nil {
			// The cycle could not run at all (registry snapshot failed).
			// Surface it so the batch is redelivered.
			return fmt.Errorf("broadcast cycle failed: %w", err)
		}
	}
	return nil
}

// recordResult is the per-record parse outcome: a valid event or the reason
// the record was dropped.
type recordResult struct {
	event json.RawMessage
	err   error
}

func parseRecord(data []byte) recordResult {
	if !json.Valid(data) {
		return recordResult{err: fmt.Errorf("record is not valid JSON")}
	}
	// The payload stays opaque past this point; the dispatcher only needs
	// bytes that parse.
	return recordResult{event: json.RawMessage(data)}
}

// parseRecords validates each record independently, preserving shard order of
// the survivors. One bad record never fails the batch.
func (h *Handler) parseRecords(ctx context.Context, records []events.KinesisEventRecord) []json.RawMessage {
	var (
		parsed  []json.RawMessage
		dropped int
	)
	for _, r := range records {
		result := parseRecord(r.Kinesis.Data)
		if result.err != nil {
			h.Logger.Warn().Err(result.err).
				Str("event_id", r.EventID).
				Str("partition_key", r.Kinesis.PartitionKey).
				Msg("dropping malformed record")
			dropped++
			continue
		}
		parsed = append(parsed, result.event)
	}
	if dropped > 0 && h.Metrics != nil {
		h.Metrics.Count(ctx, telemetrycli.MalformedRecordsMetric, float64(dropped))
	}
	return parsed
}

func (h *Handler) batchSize() int {
	if h.BatchSize > 0 {
		return h.BatchSize
	}
	return DefaultBatchSize
}

func chunk(events []json.RawMessage, size int) [][]json.RawMessage {
	var batches [][]json.RawMessage
	for i := 0; i < len(events); i += size {
		end := i + size
		if end > len(events) {
			end = len(events)
		}
		batches = append(batches, events[i:end])
	}
	return batches
}

// handleRealtime consumes the stream directly for local development,
// resuming each shard from its committed checkpoint and starting new shards
// at LATEST (no historical replay).
func (h *Handler) handleRealtime() error {
	streamName := KinesisOpts.StreamName
	if streamName == "" {
		streamName = publish.StreamName(telemetrycli.CommonOpts.Env)
	}

	sess := session.Must(session.NewSession(aws.NewConfig()))
	checkpoints := checkpointdao.Build(dynamodb.New(sess), telemetrycli.CommonOpts.Env)

	c, err := consumer.New(streamName,
		consumer.WithShardIteratorType("LATEST"),
		consumer.WithStore(checkpoints),
	)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(h.Logger.WithContext(context.Background()))
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		h.Logger.Info().Msg("caught signal, stopping consumer")
		cancel()
	}()

	callback := func(record *consumer.Record) error {
		er := events.KinesisEventRecord{
			EventID: aws.StringValue(record.SequenceNumber),
			Kinesis: events.KinesisRecord{
				Data:           record.Data,
				PartitionKey:   aws.StringValue(record.PartitionKey),
				SequenceNumber: aws.StringValue(record.SequenceNumber),
			},
		}
		return h.HandleKinesisEvent(ctx, events.KinesisEvent{Records: []events.KinesisEventRecord{er}})
	}

	h.Logger.Info().Str("stream", streamName).Msg("listening")
	return c.Scan(ctx, callback)
}
