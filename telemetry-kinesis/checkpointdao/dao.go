package checkpointdao

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// checkpointTTL keeps stale checkpoints from accumulating; a consumer idle
// this long restarts from LATEST anyway.
const checkpointTTL = 15 * 24 * time.Hour

// DAO stores per-shard consumer checkpoints in DynamoDB. It satisfies the
// harlow/kinesis-consumer Store interface, which carries no context, so calls
// run under context.Background.
type DAO struct {
	table     *ddb.Table
	tableName string
}

// New creates a new checkpoints DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Record{}),
		tableName: tableName,
	}
}

// GetCheckpoint returns the committed sequence number for a shard, or the
// empty string when no checkpoint exists yet.
func (d *DAO) GetCheckpoint(streamName, shardID string) (string, error) {
	var r Record
	err := d.table.Get(streamName).Range(shardID).
		ConsistentRead(true).
		ScanWithContext(context.Background(), &r)
	if err != nil {
		if ddb.IsItemNotFoundError(err) {
			return "", nil
		}
		return "", fmt.Errorf("failed to get checkpoint for %v/%v: %w", streamName, shardID, err)
	}
	return r.SequenceNumber, nil
}

// SetCheckpoint commits the sequence number for a shard. Last writer wins;
// each shard has a single logical owner so concurrent writers never contend.
func (d *DAO) SetCheckpoint(streamName, shardID, sequenceNumber string) error {
	if sequenceNumber == "" {
		return fmt.Errorf("refusing to commit empty sequence number for %v/%v", streamName, shardID)
	}
	record := Record{
		StreamName:     streamName,
		ShardID:        shardID,
		SequenceNumber: sequenceNumber,
		UpdatedAt:      time.Now().UTC().Format(time.RFC3339),
		TTL:            time.Now().Add(checkpointTTL).Unix(),
	}
	if err := d.table.Put(record).RunWithContext(context.Background()); err != nil {
		return fmt.Errorf("failed to save checkpoint for %v/%v: %w", streamName, shardID, err)
	}
	return nil
}
