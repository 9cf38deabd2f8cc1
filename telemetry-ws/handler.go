package telemetryws

import (
	"context"
	"fmt"
	"time"

	"github.com/acmevideo/telemetry-fanout/telemetry-ws/connectiondao"
	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog"
)

// DefaultConnTTL is how long a registry entry lives without being refreshed.
// A connection that outlives its TTL without reconnecting simply stops
// receiving broadcasts once DynamoDB expires the record.
const DefaultConnTTL = 2 * time.Hour

// Handler handles API Gateway WebSocket lifecycle events and maintains the
// connection registry. Connections move Pending -> Registered -> Unregistered;
// a reconnecting client is assigned a new connection id by API Gateway, so
// there is no transition back into Registered for the same id.
type Handler struct {
	Connections ConnectionStore
	Logger      zerolog.Logger
	ConnTTL     time.Duration // TTL for connection records (default 2 hours)
}

// HandleEvent routes an API Gateway WebSocket event to the appropriate handler.
func (h *Handler) HandleEvent(ctx context.Context, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	logger := h.Logger.With().
		Str("connection_id", req.RequestContext.ConnectionID).
		Str("route", req.RequestContext.RouteKey).
		Logger()

	switch req.RequestContext.RouteKey {
	case "$connect":
		return h.handleConnect(ctx, logger, req)
	case "$disconnect":
		return h.handleDisconnect(ctx, logger, req)
	case "$default":
		return h.handleMessage(ctx, logger, req)
	default:
		logger.Warn().Str("route", req.RequestContext.RouteKey).Msg("unknown route")
		return events.APIGatewayProxyResponse{StatusCode: 400}, nil
	}
}

func (h *Handler) handleConnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID
	endpoint := fmt.Sprintf("https://%s/%s", req.RequestContext.DomainName, req.RequestContext.Stage)

	ttl := h.ConnTTL
	if ttl == 0 {
		ttl = DefaultConnTTL
	}

	conn := connectiondao.NewConnection(connID, endpoint, ttl)

	// Store unavailability is the one failure that reaches the client: a 500
	// here makes API Gateway refuse the handshake.
	if err := h.Connections.Put(ctx, conn); err != nil {
		logger.Error().Err(err).Msg("failed to store connection")
		return events.APIGatewayProxyResponse{StatusCode: 500}, nil
	}

	logger.Info().Msg("connection established")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleDisconnect(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	connID := req.RequestContext.ConnectionID

	// Best-effort cleanup: if the delete fails the entry is still pruned
	// later via TTL or dispatcher gone-detection.
	if err := h.Connections.Delete(ctx, connID); err != nil {
		logger.Error().Err(err).Msg("failed to delete connection")
	}

	logger.Info().Msg("connection closed")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}

func (h *Handler) handleMessage(ctx context.Context, logger zerolog.Logger, req events.APIGatewayWebsocketProxyRequest) (events.APIGatewayProxyResponse, error) {
	// The channel is server->client only. Inbound payloads are acknowledged
	// and ignored.
	logger.Debug().Int("bytes", len(req.Body)).Msg("ignoring client message")
	return events.APIGatewayProxyResponse{StatusCode: 200}, nil
}
