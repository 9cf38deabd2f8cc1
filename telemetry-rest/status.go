package telemetryrest

import (
	"encoding/json"
	"net/http"

	telemetrycli "github.com/acmevideo/telemetry-fanout/telemetry-cli"
	telemetryws "github.com/acmevideo/telemetry-fanout/telemetry-ws"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}

type ConnectionsResponse struct {
	ActiveConnections int    `json:"active_connections"`
	OldestConnectedAt string `json:"oldest_connected_at,omitempty"`
}

// NewRouter builds the operational status API for the fan-out service.
func NewRouter(service telemetrycli.Service, store telemetryws.ConnectionStore) chi.Router {
	routes := chi.NewRouter()
	Middlewares(service, routes)

	routes.Get("/health", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, HealthResponse{
			Status:  "ok",
			Service: service.Name,
			Version: service.Version,
		})
	})

	// Backed by the same full-table scan the dispatcher uses; fine for an
	// ops endpoint at demo scale.
	routes.Get("/v1/connections", func(w http.ResponseWriter, req *http.Request) {
		conns, err := store.ListActive(req.Context())
		if err != nil {
			zerolog.Ctx(req.Context()).Error().Err(err).Msg("failed to list connections")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "registry unavailable"})
			return
		}

		resp := ConnectionsResponse{ActiveConnections: len(conns)}
		for _, conn := range conns {
			if resp.OldestConnectedAt == "" || conn.ConnectedAt < resp.OldestConnectedAt {
				resp.OldestConnectedAt = conn.ConnectedAt
			}
		}
		writeJSON(w, http.StatusOK, resp)
	})

	return routes
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
