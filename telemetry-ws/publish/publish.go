// Package publish produces telemetry events onto the upstream Kinesis stream
// consumed by the live fan-out dispatcher and, independently, by the
// durable-archive path.
package publish

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
)

// putRecordsLimit is the Kinesis PutRecords batch ceiling.
const putRecordsLimit = 500

// Publisher publishes telemetry events to the upstream stream.
type Publisher struct {
	client     kinesisiface.KinesisAPI
	streamName string
}

// New creates a new Publisher.
func New(client kinesisiface.KinesisAPI, streamName string) *Publisher {
	return &Publisher{
		client:     client,
		streamName: streamName,
	}
}

// Build creates a new Publisher using the standard stream name for the given
// environment.
func Build(env string) *Publisher {
	sess := session.Must(session.NewSession(aws.NewConfig()))
	client := kinesis.New(sess)
	return New(client, StreamName(env))
}

// StreamName returns the Kinesis stream name for the given environment.
func StreamName(env string) string {
	return env + "-acme-telemetry--events"
}

// Send publishes a single event. The customer id is used as the partition
// key so one customer's events stay ordered within a shard.
func (p *Publisher) Send(ctx context.Context, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	_, err = p.client.PutRecordWithContext(ctx, &kinesis.PutRecordInput{
		StreamName:   aws.String(p.streamName),
		PartitionKey: aws.String(partitionKey(data)),
		Data:         data,
	})
	if err != nil {
		return fmt.Errorf("publishing to kinesis stream %v: %w", p.streamName, err)
	}

	return nil
}

// SendBatch publishes events in PutRecords batches, returning the number of
// records the stream accepted. Records the stream rejected are counted, not
// retried; the live channel is best-effort.
func (p *Publisher) SendBatch(ctx context.Context, events []interface{}) (int, error) {
	var records []*kinesis.PutRecordsRequestEntry
	for _, event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			return 0, fmt.Errorf("marshalling event: %w", err)
		}
		records = append(records, &kinesis.PutRecordsRequestEntry{
			Data:         data,
			PartitionKey: aws.String(partitionKey(data)),
		})
	}

	var sent int
	for i := 0; i < len(records); i += putRecordsLimit {
		end := i + putRecordsLimit
		if end > len(records) {
			end = len(records)
		}
		chunk := records[i:end]

		output, err := p.client.PutRecordsWithContext(ctx, &kinesis.PutRecordsInput{
			StreamName: aws.String(p.streamName),
			Records:    chunk,
		})
		if err != nil {
			return sent, fmt.Errorf("publishing to kinesis stream %v: %w", p.streamName, err)
		}
		sent += len(chunk) - int(aws.Int64Value(output.FailedRecordCount))
	}

	return sent, nil
}

// partitionKey extracts the customer id from an event, falling back to a
// fixed key for events without one.
func partitionKey(data []byte) string {
	var event struct {
		CustomerID string `json:"customer_id"`
	}
	if err := json.Unmarshal(data, &event); err != nil || event.CustomerID == "" {
		return "default"
	}
	return event.CustomerID
}
