package connectiondao

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/savaki/ddb"
	"github.com/tj/assert"
)

func withTable(t *testing.T, callback func(ctx context.Context, dao *DAO)) {
	var (
		s = session.Must(session.NewSession(aws.NewConfig().
			WithCredentials(credentials.NewStaticCredentials("blah", "blah", "")).
			WithEndpoint("http://localhost:8000").
			WithRegion("us-west-2")))
		api       = dynamodb.New(s)
		client    = ddb.New(api)
		tableName = fmt.Sprintf("table-%v", time.Now().UnixNano())
		table     = client.MustTable(tableName, Connection{})
		dao       = New(api, tableName)
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err := table.CreateTableIfNotExists(ctx)
	assert.Nil(t, err)
	defer table.DeleteTableIfExists(ctx)

	callback(ctx, dao)
}

func ids(conns []Connection) []string {
	var ss []string
	for _, conn := range conns {
		ss = append(ss, conn.ConnectionID)
	}
	return ss
}

func TestDAO(t *testing.T) {
	withTable(t, func(ctx context.Context, dao *DAO) {
		c1 := NewConnection("c1", "https://example.com/prod", time.Hour)
		c2 := NewConnection("c2", "https://example.com/prod", time.Hour)

		// read-after-write: registered connections show up in the next scan
		err := dao.Put(ctx, c1)
		assert.Nil(t, err)
		err = dao.Put(ctx, c2)
		assert.Nil(t, err)

		conns, err := dao.ListActive(ctx)
		assert.Nil(t, err)
		assert.Len(t, conns, 2)
		assert.Contains(t, ids(conns), "c1")
		assert.Contains(t, ids(conns), "c2")

		got, err := dao.Get(ctx, "c1")
		assert.Nil(t, err)
		assert.Equal(t, c1.ConnectionID, got.ConnectionID)
		assert.Equal(t, c1.Endpoint, got.Endpoint)

		// unregister removes the record from subsequent scans
		err = dao.Delete(ctx, "c1")
		assert.Nil(t, err)

		conns, err = dao.ListActive(ctx)
		assert.Nil(t, err)
		assert.Equal(t, []string{"c2"}, ids(conns))

		// unregistering an absent id is not an error
		err = dao.Delete(ctx, "c1")
		assert.Nil(t, err)

		got, err = dao.Get(ctx, "c1")
		assert.Nil(t, err)
		assert.Nil(t, got)
	})
}

func TestDAO_ExpiredTTL(t *testing.T) {
	withTable(t, func(ctx context.Context, dao *DAO) {
		// Local DynamoDB doesn't enact TTL expiry, which is exactly the lag
		// the scan filter covers: a record past its ttl must be invisible
		// even while physically present.
		expired := Connection{
			ConnectionID: "stale",
			Endpoint:     "https://example.com/prod",
			ConnectedAt:  time.Now().Add(-3 * time.Hour).UTC().Format(time.RFC3339),
			TTL:          time.Now().Add(-time.Hour).Unix(),
		}
		err := dao.Put(ctx, expired)
		assert.Nil(t, err)

		live := NewConnection("live", "https://example.com/prod", time.Hour)
		err = dao.Put(ctx, live)
		assert.Nil(t, err)

		conns, err := dao.ListActive(ctx)
		assert.Nil(t, err)
		assert.Equal(t, []string{"live"}, ids(conns))
	})
}

func TestDAO_DeleteAll(t *testing.T) {
	withTable(t, func(ctx context.Context, dao *DAO) {
		var expected []string
		for i := 0; i < 30; i++ { // more than one BatchWriteItem chunk
			id := fmt.Sprintf("conn-%02d", i)
			err := dao.Put(ctx, NewConnection(id, "https://example.com/prod", time.Hour))
			assert.Nil(t, err)
			if i%2 == 0 {
				expected = append(expected, id)
			}
		}

		var doomed []string
		for i := 1; i < 30; i += 2 {
			doomed = append(doomed, fmt.Sprintf("conn-%02d", i))
		}
		err := dao.DeleteAll(ctx, doomed...)
		assert.Nil(t, err)

		conns, err := dao.ListActive(ctx)
		assert.Nil(t, err)
		assert.Len(t, conns, len(expected))
		for _, id := range expected {
			assert.Contains(t, ids(conns), id)
		}
	})
}
