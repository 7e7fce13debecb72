// Package middleware instruments inbound traffic: every request is timed and
// recorded on the telemetry adapters, and panics are captured before being
// re-raised.
package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"telemetry-bridge/backend/internal/monitoring"
	"telemetry-bridge/backend/internal/monitoring/errortrack"
	"telemetry-bridge/backend/internal/monitoring/tracing"
	"telemetry-bridge/backend/internal/telemetry"
	"telemetry-bridge/backend/internal/telemetry/domain"
)

// RequestTracker is the slice of the tracing adapter the middleware records
// to. Exactly one of the two methods fires per request: TrackRequest when the
// handler returns, TrackException when it panics.
type RequestTracker interface {
	TrackRequest(ctx context.Context, name, url string, duration time.Duration, responseCode int, success bool, properties map[string]string)
	TrackException(ctx context.Context, err error, severity monitoring.Severity, properties map[string]string)
}

// ErrorCapturer reports handler panics to the error-tracking backend.
type ErrorCapturer interface {
	CaptureError(ctx context.Context, err error, report *errortrack.ErrorReport)
}

var (
	_ RequestTracker = (*tracing.Adapter)(nil)
	_ ErrorCapturer  = (*errortrack.Adapter)(nil)
)

// statusWriter captures the status code written by the wrapped handler.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	if w.status == 0 {
		w.status = code
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	return w.ResponseWriter.Write(b)
}

// Flush forwards to the wrapped writer so streaming handlers keep working
// behind the middleware.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the wrapped writer to http.ResponseController, which covers
// the remaining optional interfaces (hijacking, deadlines).
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// httpRequestProperties is the JSON shape stored in Event.Properties for http_request events.
type httpRequestProperties struct {
	Method     string `json:"method"`
	Path       string `json:"path"`
	StatusCode int    `json:"status_code"`
	DurationMs int64  `json:"duration_ms"`
	ClientIP   string `json:"client_ip"`
}

// Track returns middleware that records every served request on the tracing
// adapter and mirrors it to the event pipeline. A panic in the handler is
// captured on both vendor adapters and then re-raised unchanged, so the
// server's own recovery still runs and the client still gets its 500.
//
// tr, et, and emitter may each be nil or disabled; the middleware then only
// times the request and re-raises panics.
func Track(tr RequestTracker, et ErrorCapturer, emitter telemetry.Emitter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w}

			defer func() {
				if rec := recover(); rec != nil {
					err := panicError(rec)
					if tr != nil {
						tr.TrackException(r.Context(), err, monitoring.SeverityCritical, map[string]string{
							"http.request.method": r.Method,
							"url.path":            r.URL.Path,
						})
					}
					if et != nil {
						et.CaptureError(r.Context(), err, &errortrack.ErrorReport{
							Level: monitoring.SeverityCritical,
							Tags:  map[string]string{"transaction": requestName(r)},
						})
					}
					panic(rec)
				}
			}()

			next.ServeHTTP(sw, r)

			duration := time.Since(start)
			status := sw.status
			if status == 0 {
				status = http.StatusOK
			}
			success := status < http.StatusBadRequest

			if tr != nil {
				tr.TrackRequest(r.Context(), requestName(r), r.URL.String(), duration, status, success, map[string]string{
					"http.request.method": r.Method,
					"url.path":            r.URL.Path,
				})
			}

			if emitter != nil {
				event := domain.NewEvent("http_request", domain.KindRequest, "http_middleware")
				event.UserID, _ = UserID(r.Context())
				event.AccountID, _ = AccountID(r.Context())
				props, _ := json.Marshal(httpRequestProperties{
					Method:     r.Method,
					Path:       r.URL.Path,
					StatusCode: status,
					DurationMs: duration.Milliseconds(),
					ClientIP:   r.RemoteAddr,
				})
				event.Properties = props
				telemetry.EmitAsync(emitter, r.Context(), event)
			}
		})
	}
}

func requestName(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// panicError turns an arbitrary panic value into an error for the adapters.
func panicError(rec interface{}) error {
	if err, ok := rec.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", rec)
}
