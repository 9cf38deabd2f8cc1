package connectiondao

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbattribute"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/savaki/ddb"
)

// DAO provides access to the WebSocket connections table.
type DAO struct {
	table     *ddb.Table
	api       dynamodbiface.DynamoDBAPI
	tableName string
}

// New creates a new connections DAO.
func New(api dynamodbiface.DynamoDBAPI, tableName string) *DAO {
	return &DAO{
		table:     ddb.New(api).MustTable(tableName, Connection{}),
		api:       api,
		tableName: tableName,
	}
}

// Put stores a connection record. Errors are surfaced to the caller so the
// connect path can refuse the handshake when the store is unavailable.
func (d *DAO) Put(ctx context.Context, conn Connection) error {
	if err := d.table.Put(conn).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to store connection %v: %w", conn.ConnectionID, err)
	}
	return nil
}

// Get retrieves a connection record by ID. Returns nil if not found.
func (d *DAO) Get(ctx context.Context, connectionID string) (*Connection, error) {
	var conn Connection
	if err := d.table.Get(connectionID).ScanWithContext(ctx, &conn); err != nil {
		if ddb.IsItemNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get connection %v: %w", connectionID, err)
	}
	return &conn, nil
}

// Delete removes a connection record by ID. Deleting an absent record is not
// an error.
func (d *DAO) Delete(ctx context.Context, connectionID string) error {
	if err := d.table.Delete(connectionID).RunWithContext(ctx); err != nil {
		return fmt.Errorf("failed to delete connection %v: %w", connectionID, err)
	}
	return nil
}

// DeleteAll removes multiple connection records, batching writes in chunks of
// 25 (the DynamoDB limit) with retries on unprocessed items.
func (d *DAO) DeleteAll(ctx context.Context, connectionIDs ...string) error {
	const batchSize = 25
	for i := 0; i < len(connectionIDs); i += batchSize {
		end := i + batchSize
		if end > len(connectionIDs) {
			end = len(connectionIDs)
		}
		chunk := connectionIDs[i:end]

		writeRequests := make([]*dynamodb.WriteRequest, len(chunk))
		for j, id := range chunk {
			key, err := dynamodbattribute.MarshalMap(map[string]string{"pk": id})
			if err != nil {
				return fmt.Errorf("failed to marshal key for connection %v: %w", id, err)
			}
			writeRequests[j] = &dynamodb.WriteRequest{
				DeleteRequest: &dynamodb.DeleteRequest{Key: key},
			}
		}

		unprocessed := map[string][]*dynamodb.WriteRequest{
			d.tableName: writeRequests,
		}

		const maxRetries = 5
		for attempt := 0; attempt < maxRetries; attempt++ {
			output, err := d.api.BatchWriteItemWithContext(ctx, &dynamodb.BatchWriteItemInput{
				RequestItems: unprocessed,
			})
			if err != nil {
				return fmt.Errorf("failed to batch delete connections: %w", err)
			}
			if len(output.UnprocessedItems) == 0 {
				break
			}
			unprocessed = output.UnprocessedItems
			if attempt < maxRetries-1 {
				backoff := time.Duration(1<<attempt) * 100 * time.Millisecond
				timer := time.NewTimer(backoff)
				select {
				case <-ctx.Done():
					timer.Stop()
					return fmt.Errorf("context cancelled during batch delete retry: %w", ctx.Err())
				case <-timer.C:
				}
			} else {
				return fmt.Errorf("failed to delete all connections: %d items unprocessed after %d retries", len(unprocessed[d.tableName]), maxRetries)
			}
		}
	}

	return nil
}

// ScanActive walks every live connection record, invoking fn for each one.
// Entries whose TTL has elapsed are filtered out server-side: DynamoDB's TTL
// deleter is lazy, so a record past its expiry may still be physically
// present, but it must never be handed to the dispatcher.
//
// This is an unsharded full-table scan; cost grows with registry size. That
// is an accepted scaling bound for this system, not hidden behind pagination.
func (d *DAO) ScanActive(ctx context.Context, fn func(Connection) error) error {
	input := &dynamodb.ScanInput{
		TableName:        aws.String(d.tableName),
		FilterExpression: aws.String("#ttl > :now"),
		ExpressionAttributeNames: map[string]*string{
			"#ttl": aws.String("ttl"),
		},
		ExpressionAttributeValues: map[string]*dynamodb.AttributeValue{
			":now": {N: aws.String(strconv.FormatInt(time.Now().Unix(), 10))},
		},
	}

	var callbackErr error
	err := d.api.ScanPagesWithContext(ctx, input, func(page *dynamodb.ScanOutput, lastPage bool) bool {
		for _, item := range page.Items {
			var conn Connection
			if err := dynamodbattribute.UnmarshalMap(item, &conn); err != nil {
				callbackErr = fmt.Errorf("failed to unmarshal connection record: %w", err)
				return false
			}
			if err := fn(conn); err != nil {
				callbackErr = err
				return false
			}
		}
		return true
	})
	if err != nil {
		return fmt.Errorf("failed to scan connections table %v: %w", d.tableName, err)
	}
	return callbackErr
}

// ListActive returns a snapshot of every live connection record.
func (d *DAO) ListActive(ctx context.Context) ([]Connection, error) {
	var conns []Connection
	err := d.ScanActive(ctx, func(conn Connection) error {
		conns = append(conns, conn)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conns, nil
}
