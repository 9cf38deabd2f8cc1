package telemetryws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi"
	"github.com/aws/aws-sdk-go/service/apigatewaymanagementapi/apigatewaymanagementapiiface"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DeliveryStatus classifies the outcome of one delivery attempt.
type DeliveryStatus int

const (
	// Delivered means the envelope was accepted by the management API.
	Delivered DeliveryStatus = iota
	// Gone means the transport reported the connection no longer exists;
	// the entry is pruned from the registry.
	Gone
	// Failed is any other delivery error. Best-effort: logged, not retried
	// within the cycle.
	Failed
)

// Delivery is the per-destination outcome of a broadcast cycle. Outcomes are
// independent; one failure never blocks or fails delivery to another
// connection.
type Delivery struct {
	ConnectionID string
	Status       DeliveryStatus
	Err          error
}

// Dispatcher fans one batch of telemetry events out to every connection in
// the registry snapshot taken at the start of the cycle. Connections
// registered mid-cycle may or may not receive the batch; that race is
// accepted.
type Dispatcher struct {
	Connections ConnectionStore
	Logger      zerolog.Logger
	Concurrency int                   // max concurrent PostToConnection calls (default 50)
	Metrics     *telemetrycli.Metrics // optional

	// NewManagementAPI overrides management client construction, for tests.
	NewManagementAPI func(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI

	// mgmtClients caches API Gateway Management API clients by endpoint
	mgmtMu      sync.RWMutex
	mgmtClients map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
}

// Broadcast serializes the batch once and attempts delivery to every
// connection concurrently, returning the per-destination outcomes. Gone
// connections are unregistered before the cycle ends. An error is returned
// only when the cycle cannot run at all (envelope marshalling or the registry
// snapshot failing); per-destination failures are contained in the outcome
// list.
func (d *Dispatcher) Broadcast(ctx context.Context, batch []json.RawMessage) ([]Delivery, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	defer func(begin time.Time) {
		if d.Metrics != nil {
			d.Metrics.Timing(ctx, telemetrycli.BroadcastLatencyMetric, begin)
		}
	}(time.Now())

	envelope, err := TelemetryEnvelope(batch)
	if err != nil {
		return nil, err
	}

	conns, err := d.Connections.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, nil
	}

	d.Logger.Debug().
		Int("events", len(batch)).
		Int("connections", len(conns)).
		Msg("broadcasting batch")

	concurrency := d.Concurrency
	if concurrency <= 0 {
		concurrency = 50
	}

	outcomes := make([]Delivery, len(conns))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, conn := range conns {
		i, conn := i, conn
		g.Go(func() error {
			outcomes[i] = d.send(gctx, conn.Endpoint, conn.ConnectionID, envelope)
			return nil
		})
	}
	g.Wait() // workers never return errors; outcomes carry the failures

	d.prune(ctx, outcomes)
	d.report(ctx, outcomes)

	return outcomes, nil
}

func (d *Dispatcher) send(ctx context.Context, endpoint, connID string, data []byte) Delivery {
	client := d.getManagementClient(endpoint)
	_, err := client.PostToConnectionWithContext(ctx, &apigatewaymanagementapi.PostToConnectionInput{
		ConnectionId: aws.String(connID),
		Data:         data,
	})
	if err != nil {
		if isGoneException(err) {
			// Steady-state condition, not an error: the client vanished
			// without a $disconnect.
			d.Logger.Info().
				Str("connection_id", connID).
				Msg("connection gone, pruning")
			return Delivery{ConnectionID: connID, Status: Gone, Err: err}
		}
		d.Logger.Warn().Err(err).
			Str("connection_id", connID).
			Msg("failed to post to connection")
		return Delivery{ConnectionID: connID, Status: Failed, Err: err}
	}
	return Delivery{ConnectionID: connID, Status: Delivered}
}

// prune unregisters every connection the cycle proved gone, so the next
// cycle's snapshot no longer includes it.
func (d *Dispatcher) prune(ctx context.Context, outcomes []Delivery) {
	var gone []string
	for _, outcome := range outcomes {
		if outcome.Status == Gone {
			gone = append(gone, outcome.ConnectionID)
		}
	}
	if len(gone) == 0 {
		return
	}
	if err := d.Connections.DeleteAll(ctx, gone...); err != nil {
		// The entries will still age out via TTL.
		d.Logger.Error().Err(err).
			Int("count", len(gone)).
			Msg("failed to prune gone connections")
	}
}

func (d *Dispatcher) report(ctx context.Context, outcomes []Delivery) {
	if d.Metrics == nil {
		return
	}
	var delivered, failed, pruned float64
	for _, outcome := range outcomes {
		switch outcome.Status {
		case Delivered:
			delivered++
		case Gone:
			pruned++
		case Failed:
			failed++
		}
	}
	if delivered > 0 {
		d.Metrics.Count(ctx, telemetrycli.DeliveredMessagesMetric, delivered)
	}
	if failed > 0 {
		d.Metrics.Count(ctx, telemetrycli.FailedDeliveriesMetric, failed)
	}
	if pruned > 0 {
		d.Metrics.Count(ctx, telemetrycli.PrunedConnectionsMetric, pruned)
	}
}

func (d *Dispatcher) getManagementClient(endpoint string) apigatewaymanagementapiiface.ApiGatewayManagementApiAPI {
	d.mgmtMu.RLock()
	if client, ok := d.mgmtClients[endpoint]; ok {
		d.mgmtMu.RUnlock()
		return client
	}
	d.mgmtMu.RUnlock()

	d.mgmtMu.Lock()
	defer d.mgmtMu.Unlock()

	// Double-check after acquiring write lock
	if client, ok := d.mgmtClients[endpoint]; ok {
		return client
	}

	if d.mgmtClients == nil {
		d.mgmtClients = make(map[string]apigatewaymanagementapiiface.ApiGatewayManagementApiAPI)
	}

	var client apigatewaymanagementapiiface.ApiGatewayManagementApiAPI
	if d.NewManagementAPI != nil {
		client = d.NewManagementAPI(endpoint)
	} else {
		sess := session.Must(session.NewSession(aws.NewConfig().WithEndpoint(endpoint)))
		client = apigatewaymanagementapi.New(sess)
	}
	d.mgmtClients[endpoint] = client
	return client
}

// isGoneException checks if the error is a GoneException (HTTP 410),
// indicating the WebSocket connection no longer exists.
func isGoneException(err error) bool {
	var aerr awserr.Error
	if errors.As(err, &aerr) && aerr.Code() == apigatewaymanagementapi.ErrCodeGoneException {
		return true
	}
	return strings.Contains(err.Error(), "GoneException") ||
		strings.Contains(err.Error(), "410")
}
