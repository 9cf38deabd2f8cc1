package connectiondao

import "time"

// Connection represents a WebSocket connection stored in DynamoDB.
//
// An entry in the table is a claim, not a guarantee, that the underlying
// transport connection is still live: clients can vanish without a
// $disconnect. Entries are removed on explicit disconnect, by DynamoDB's own
// TTL expiry, or when the dispatcher observes a GoneException.
type Connection struct {
	ConnectionID string `dynamodbav:"pk" ddb:"hash"`
	Endpoint     string `dynamodbav:"endpoint"`
	ConnectedAt  string `dynamodbav:"connected_at"` // ISO-8601
	TTL          int64  `dynamodbav:"ttl"`          // epoch seconds, consumed by the table's TTL setting
}

// NewConnection builds a registry entry with a fresh TTL.
func NewConnection(connectionID, endpoint string, ttl time.Duration) Connection {
	now := time.Now()
	return Connection{
		ConnectionID: connectionID,
		Endpoint:     endpoint,
		ConnectedAt:  now.UTC().Format(time.RFC3339),
		TTL:          now.Add(ttl).Unix(),
	}
}
