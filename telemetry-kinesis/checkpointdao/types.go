package checkpointdao

// Record is a per-shard consumer checkpoint. Console-mode consumers resume
// from the last committed sequence number; in Lambda mode the event source
// mapping owns checkpointing and this table is untouched.
type Record struct {
	StreamName     string `dynamodbav:"pk" ddb:"hash"`
	ShardID        string `dynamodbav:"shard_id" ddb:"range"`
	SequenceNumber string `dynamodbav:"sequence_number"`
	UpdatedAt      string `dynamodbav:"updated_at"` // ISO-8601
	TTL            int64  `dynamodbav:"ttl,omitempty"`
}
