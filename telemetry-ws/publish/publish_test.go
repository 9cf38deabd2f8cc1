package publish

import (
	"context"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/kinesis"
	"github.com/aws/aws-sdk-go/service/kinesis/kinesisiface"
	"github.com/tj/assert"
)

type fakeKinesis struct {
	kinesisiface.KinesisAPI

	records []*kinesis.PutRecordsRequestEntry
	puts    []*kinesis.PutRecordInput
	batches int
}

func (f *fakeKinesis) PutRecordWithContext(_ aws.Context, input *kinesis.PutRecordInput, _ ...request.Option) (*kinesis.PutRecordOutput, error) {
	f.puts = append(f.puts, input)
	return &kinesis.PutRecordOutput{}, nil
}

func (f *fakeKinesis) PutRecordsWithContext(_ aws.Context, input *kinesis.PutRecordsInput, _ ...request.Option) (*kinesis.PutRecordsOutput, error) {
	f.batches++
	f.records = append(f.records, input.Records...)
	return &kinesis.PutRecordsOutput{FailedRecordCount: aws.Int64(0)}, nil
}

func TestPublisher_Send(t *testing.T) {
	api := &fakeKinesis{}
	p := New(api, "dev-acme-telemetry--events")

	err := p.Send(context.Background(), map[string]string{
		"event_id":    "e1",
		"customer_id": "cust_000042",
	})
	assert.NoError(t, err)
	assert.Len(t, api.puts, 1)
	assert.Equal(t, "cust_000042", aws.StringValue(api.puts[0].PartitionKey))
}

func TestPublisher_SendBatch(t *testing.T) {
	api := &fakeKinesis{}
	p := New(api, "dev-acme-telemetry--events")

	var events []interface{}
	for i := 0; i < 1200; i++ { // spans three PutRecords calls
		events = append(events, map[string]string{
			"event_id":    fmt.Sprintf("e%v", i),
			"customer_id": fmt.Sprintf("cust_%06d", i%7),
		})
	}

	sent, err := p.SendBatch(context.Background(), events)
	assert.NoError(t, err)
	assert.Equal(t, 1200, sent)
	assert.Equal(t, 3, api.batches)
	assert.Len(t, api.records, 1200)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "cust_000001", partitionKey([]byte(`{"customer_id":"cust_000001"}`)))
	assert.Equal(t, "default", partitionKey([]byte(`{"event_id":"e1"}`)))
	assert.Equal(t, "default", partitionKey([]byte(`not json`)))
}
