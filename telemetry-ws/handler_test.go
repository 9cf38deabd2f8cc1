package telemetryws

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
	"github.com/tj/assert"
)

func wsRequest(route, connID string) events.APIGatewayWebsocketProxyRequest {
	return events.APIGatewayWebsocketProxyRequest{
		RequestContext: events.APIGatewayWebsocketProxyRequestContext{
			RouteKey:     route,
			ConnectionID: connID,
			DomainName:   "ws.example.com",
			Stage:        "prod",
		},
	}
}

func TestHandler_Connect(t *testing.T) {
	store := newFakeStore()
	h := &Handler{Connections: store, Logger: zerolog.Nop()}

	resp, err := h.HandleEvent(context.Background(), wsRequest("$connect", "c1"))
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	conns, err := store.ListActive(context.Background())
	assert.NoError(t, err)
	assert.Len(t, conns, 1)
	assert.Equal(t, "c1", conns[0].ConnectionID)
	assert.Equal(t, "https://ws.example.com/prod", conns[0].Endpoint)

	// connected_at is ISO-8601 and the TTL is in the future
	_, err = time.Parse(time.RFC3339, conns[0].ConnectedAt)
	assert.NoError(t, err)
	assert.True(t, conns[0].TTL > time.Now().Unix())
}

func TestHandler_ConnectStoreUnavailable(t *testing.T) {
	store := newFakeStore()
	store.putErr = fmt.Errorf("dynamodb unavailable")
	h := &Handler{Connections: store, Logger: zerolog.Nop()}

	// a failed registration refuses the handshake
	resp, err := h.HandleEvent(context.Background(), wsRequest("$connect", "c1"))
	assert.NoError(t, err)
	assert.Equal(t, 500, resp.StatusCode)

	conns, err := store.ListActive(context.Background())
	assert.NoError(t, err)
	assert.Len(t, conns, 0)
}

func TestHandler_Disconnect(t *testing.T) {
	store := newFakeStore()
	h := &Handler{Connections: store, Logger: zerolog.Nop()}

	_, err := h.HandleEvent(context.Background(), wsRequest("$connect", "c1"))
	assert.NoError(t, err)

	resp, err := h.HandleEvent(context.Background(), wsRequest("$disconnect", "c1"))
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	conns, err := store.ListActive(context.Background())
	assert.NoError(t, err)
	assert.Len(t, conns, 0)

	// disconnecting an unknown connection still acks
	resp, err = h.HandleEvent(context.Background(), wsRequest("$disconnect", "c1"))
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandler_ClientMessage(t *testing.T) {
	store := newFakeStore()
	h := &Handler{Connections: store, Logger: zerolog.Nop()}

	req := wsRequest("$default", "c1")
	req.Body = `{"hello":"server"}`

	// inbound payloads are acknowledged but never interpreted
	resp, err := h.HandleEvent(context.Background(), req)
	assert.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)
}

func TestHandler_UnknownRoute(t *testing.T) {
	h := &Handler{Connections: newFakeStore(), Logger: zerolog.Nop()}
	resp, err := h.HandleEvent(context.Background(), wsRequest("$bogus", "c1"))
	assert.NoError(t, err)
	assert.Equal(t, 400, resp.StatusCode)
}
