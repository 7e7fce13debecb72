// Package server builds the HTTP API: routing, handlers, and the
// instrumentation chain around them.
package server

import (
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"telemetry-bridge/backend/internal/monitoring"
	"telemetry-bridge/backend/internal/monitoring/errortrack"
	"telemetry-bridge/backend/internal/monitoring/tracing"
	"telemetry-bridge/backend/internal/server/middleware"
	"telemetry-bridge/backend/internal/telemetry"
	"telemetry-bridge/backend/internal/telemetry/domain"
)

// Deps holds the service dependencies for the HTTP handlers.
type Deps struct {
	// Tracing is the tracing/metrics adapter. May be disabled, never nil.
	Tracing *tracing.Adapter
	// ErrorTrack is the error-tracking adapter. May be disabled, never nil.
	ErrorTrack *errortrack.Adapter
	// Emitter mirrors events to the fan-out pipeline. Nil disables fan-out.
	Emitter telemetry.Emitter
}

// NewHandler builds the full request handler: routes wrapped in the tracking
// middleware and the OTel HTTP instrumentation.
func NewHandler(deps Deps) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("POST /v1/events", handleIngestEvent(deps))

	var handler http.Handler = mux
	handler = middleware.Track(deps.Tracing, deps.ErrorTrack, deps.Emitter)(handler)
	handler = otelhttp.NewHandler(handler, "http.server")
	return handler
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ingestRequest is the POST /v1/events body.
type ingestRequest struct {
	Name       string          `json:"name"`
	UserID     string          `json:"user_id"`
	AccountID  string          `json:"account_id"`
	Properties json.RawMessage `json:"properties"`
}

// handleIngestEvent accepts application-defined custom events and forwards
// them to both the tracking adapter and the fan-out pipeline.
func handleIngestEvent(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ingestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid JSON body", http.StatusBadRequest)
			return
		}
		if req.Name == "" {
			http.Error(w, "name is required", http.StatusBadRequest)
			return
		}

		ctx := r.Context()
		deps.Tracing.TrackEvent(ctx, req.Name, map[string]string{
			"user_id":    req.UserID,
			"account_id": req.AccountID,
		}, nil)
		deps.ErrorTrack.AddBreadcrumb(ctx, "event", req.Name, nil, monitoring.SeverityInfo)

		event := domain.NewEvent(req.Name, domain.KindCustom, "api")
		event.UserID = req.UserID
		event.AccountID = req.AccountID
		event.Properties = req.Properties
		telemetry.EmitAsync(deps.Emitter, ctx, event)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_ = json.NewEncoder(w).Encode(map[string]string{"id": event.ID})
	}
}
