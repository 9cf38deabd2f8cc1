package telemetryws

import (
	"context"

	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
)

// ConnectionStore is the registry of live connections shared by the lifecycle
// handler and the dispatcher. All coordination between the otherwise
// stateless execution contexts goes through this store; there is no in-memory
// state carried between cycles.
type ConnectionStore interface {
	// Put registers a connection with a fresh TTL.
	Put(ctx context.Context, conn connectiondao.Connection) error
	// Delete unregisters a connection. Idempotent.
	Delete(ctx context.Context, connectionID string) error
	// DeleteAll unregisters multiple connections.
	DeleteAll(ctx context.Context, connectionIDs ...string) error
	// ListActive returns a snapshot of live connections, excluding entries
	// whose TTL has elapsed.
	ListActive(ctx context.Context) ([]connectiondao.Connection, error)
}

var _ ConnectionStore = (*connectiondao.DAO)(nil)
