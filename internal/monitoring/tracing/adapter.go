package tracing

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"telemetry-bridge/backend/internal/monitoring"
)

// scopeName is the instrumentation scope for spans, metrics, and log records emitted here.
const scopeName = "telemetry-bridge/backend/internal/monitoring/tracing"

// Config carries the connection settings for the tracing/metrics backend.
type Config struct {
	// Endpoint is the OTLP endpoint (host:port or URL). Empty disables the adapter.
	Endpoint string
	// Insecure forces plaintext gRPC even for https endpoints.
	Insecure bool
	// ServiceName and ServiceVersion become resource attributes.
	ServiceName    string
	ServiceVersion string
	// Environment becomes the deployment environment resource attribute.
	Environment string
	// SampleRatio is the parent-based trace sampling ratio (0 or out of range means 1.0).
	SampleRatio float64
}

// recordEmitter is the slice of the OTel log API the adapter uses to emit
// telemetry records. Narrowed from otellog.Logger so tests can capture records.
type recordEmitter interface {
	Emit(ctx context.Context, record otellog.Record)
}

// Adapter forwards domain-level tracking calls to the tracing/metrics backend.
// A disabled Adapter (no endpoint configured, or vendor setup failed) accepts
// every call and does nothing; callers never need to check for that state.
// Safe for concurrent use.
type Adapter struct {
	enabled   bool
	providers *Providers
	tracer    trace.Tracer
	meter     metric.Meter
	logger    recordEmitter

	requestDuration    metric.Float64Histogram
	requestTotal       metric.Int64Counter
	dependencyDuration metric.Float64Histogram

	mu     sync.Mutex
	gauges map[string]metric.Float64Gauge
}

// globalOnce guards installing the providers as otel globals; installing twice
// would silently swap exporter state under running instrumentation.
var globalOnce sync.Once

// New builds the adapter. An empty endpoint yields a disabled adapter and no
// error: missing monitoring configuration is the expected default outside
// production and must not fail startup. Exporter setup failures are logged and
// likewise yield a disabled adapter. Only invalid configuration (a malformed
// endpoint) is returned as an error.
func New(ctx context.Context, cfg Config) (*Adapter, error) {
	if strings.TrimSpace(cfg.Endpoint) == "" {
		log.Printf("tracing: endpoint not configured, monitoring disabled")
		return disabledAdapter(), nil
	}

	providers, err := NewProviders(ctx, cfg)
	if err != nil {
		if isConfigError(err) {
			return nil, err
		}
		log.Printf("tracing: setup failed, monitoring disabled: %v", err)
		return disabledAdapter(), nil
	}

	a := &Adapter{
		enabled:   true,
		providers: providers,
		tracer:    providers.TracerProvider.Tracer(scopeName),
		meter:     providers.MeterProvider.Meter(scopeName),
		logger:    providers.LoggerProvider.Logger(scopeName),
		gauges:    make(map[string]metric.Float64Gauge),
	}
	a.initInstruments()

	log.Printf("tracing: initialized (environment: %s, sample ratio: %g)", cfg.Environment, cfg.SampleRatio)
	return a, nil
}

func disabledAdapter() *Adapter {
	return &Adapter{
		tracer: noop.NewTracerProvider().Tracer(scopeName),
	}
}

// isConfigError reports whether err is a configuration problem the caller
// should see, rather than a vendor/transport failure to degrade over.
func isConfigError(err error) bool {
	return errors.Is(err, ErrInvalidEndpoint)
}

func (a *Adapter) initInstruments() {
	var err error
	a.requestDuration, err = a.meter.Float64Histogram("http.server.request.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Inbound HTTP request duration"))
	if err != nil {
		log.Printf("tracing: request duration instrument: %v", err)
	}
	a.requestTotal, err = a.meter.Int64Counter("http.server.request.count",
		metric.WithDescription("Inbound HTTP requests by status"))
	if err != nil {
		log.Printf("tracing: request counter instrument: %v", err)
	}
	a.dependencyDuration, err = a.meter.Float64Histogram("dependency.duration",
		metric.WithUnit("ms"),
		metric.WithDescription("Outbound dependency call duration"))
	if err != nil {
		log.Printf("tracing: dependency duration instrument: %v", err)
	}
}

// Enabled reports whether tracking calls reach the backend.
func (a *Adapter) Enabled() bool {
	return a != nil && a.enabled
}

// SetGlobal installs the adapter's providers as the process-wide OTel globals
// so library instrumentation (otelhttp, otelgrpc) uses them. Idempotent; only
// the first call takes effect. No-op when disabled.
func (a *Adapter) SetGlobal() {
	if !a.Enabled() {
		return
	}
	globalOnce.Do(a.providers.setGlobal)
}

// TrackEvent records a custom event with optional string properties and numeric measurements.
func (a *Adapter) TrackEvent(ctx context.Context, name string, properties map[string]string, measurements map[string]float64) {
	if !a.Enabled() {
		return
	}
	rec := newRecord(monitoring.SeverityInfo, name)
	rec.AddAttributes(otellog.String("event.name", name))
	addProperties(&rec, properties)
	for k, v := range measurements {
		rec.AddAttributes(otellog.Float64(k, v))
	}
	a.logger.Emit(ctx, rec)
}

// TrackMetric records a point-in-time value for the named metric. The gauge
// instrument is created on first use and cached per name.
func (a *Adapter) TrackMetric(ctx context.Context, name string, value float64, properties map[string]string) {
	if !a.Enabled() {
		return
	}
	gauge := a.gauge(name)
	if gauge == nil {
		return
	}
	gauge.Record(ctx, value, metric.WithAttributes(propertyAttrs(properties)...))
}

// TrackException records an error with the given severity. If the context
// carries a recording span the error is recorded on it as well.
func (a *Adapter) TrackException(ctx context.Context, err error, severity monitoring.Severity, properties map[string]string) {
	if !a.Enabled() || err == nil {
		return
	}
	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.RecordError(err)
	}
	rec := newRecord(severity, err.Error())
	rec.AddAttributes(
		otellog.String("exception.type", fmt.Sprintf("%T", err)),
		otellog.String("exception.message", err.Error()),
	)
	addProperties(&rec, properties)
	a.logger.Emit(ctx, rec)
}

// TrackTrace records a free-form trace message with the given severity.
func (a *Adapter) TrackTrace(ctx context.Context, message string, severity monitoring.Severity, properties map[string]string) {
	if !a.Enabled() {
		return
	}
	rec := newRecord(severity, message)
	addProperties(&rec, properties)
	a.logger.Emit(ctx, rec)
}

// TrackRequest records one served HTTP request: duration histogram, request
// counter, and a log record carrying the request fields.
func (a *Adapter) TrackRequest(ctx context.Context, name, url string, duration time.Duration, responseCode int, success bool, properties map[string]string) {
	if !a.Enabled() {
		return
	}
	attrs := append(propertyAttrs(properties),
		attribute.String("http.request.name", name),
		attribute.Int("http.response.status_code", responseCode),
		attribute.Bool("success", success),
	)
	if a.requestDuration != nil {
		a.requestDuration.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}
	if a.requestTotal != nil {
		a.requestTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	}

	rec := newRecord(monitoring.SeverityInfo, name)
	rec.AddAttributes(
		otellog.String("http.request.name", name),
		otellog.String("url.full", url),
		otellog.Float64("duration_ms", float64(duration)/float64(time.Millisecond)),
		otellog.Int("http.response.status_code", responseCode),
		otellog.Bool("success", success),
	)
	addProperties(&rec, properties)
	a.logger.Emit(ctx, rec)
}

// TrackDependency records one outbound dependency call (database, HTTP API, cache).
// resultCode may be zero when the dependency has no status code concept.
func (a *Adapter) TrackDependency(ctx context.Context, name, depType, target string, duration time.Duration, success bool, resultCode int, properties map[string]string) {
	if !a.Enabled() {
		return
	}
	attrs := append(propertyAttrs(properties),
		attribute.String("dependency.name", name),
		attribute.String("dependency.type", depType),
		attribute.String("dependency.target", target),
		attribute.Bool("success", success),
	)
	if a.dependencyDuration != nil {
		a.dependencyDuration.Record(ctx, float64(duration)/float64(time.Millisecond), metric.WithAttributes(attrs...))
	}

	rec := newRecord(monitoring.SeverityInfo, name)
	rec.AddAttributes(
		otellog.String("dependency.name", name),
		otellog.String("dependency.type", depType),
		otellog.String("dependency.target", target),
		otellog.Float64("duration_ms", float64(duration)/float64(time.Millisecond)),
		otellog.Bool("success", success),
	)
	if resultCode != 0 {
		rec.AddAttributes(otellog.Int("dependency.result_code", resultCode))
	}
	addProperties(&rec, properties)
	a.logger.Emit(ctx, rec)
}

// SetUser attaches user attributes to the span in ctx. Without an active
// recording span this is a silent no-op.
func (a *Adapter) SetUser(ctx context.Context, userID, accountID string) {
	if !a.Enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String("user_id", userID))
	if accountID != "" {
		span.SetAttributes(attribute.String("account_id", accountID))
	}
}

// ClearUser detaches user attributes from the span in ctx. Span attributes
// cannot be removed once set, so they are overwritten with empty values.
func (a *Adapter) ClearUser(ctx context.Context) {
	if !a.Enabled() {
		return
	}
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(
		attribute.String("user_id", ""),
		attribute.String("account_id", ""),
	)
}

// StartSpan starts a span scoped to the returned context. Callers must end it
// on every exit path (defer span.End()). When disabled the returned span is
// the no-op implementation, so acquisition and release are inert.
func (a *Adapter) StartSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return a.tracer.Start(ctx, name)
}

// Flush forces export of buffered telemetry. Best-effort: nil when disabled
// or when nothing is buffered. Intended for shutdown or an explicit operator
// request, never the per-request path.
func (a *Adapter) Flush(ctx context.Context) error {
	if !a.Enabled() || a.providers == nil {
		return nil
	}
	return errors.Join(
		a.providers.TracerProvider.ForceFlush(ctx),
		a.providers.MeterProvider.ForceFlush(ctx),
		a.providers.LoggerProvider.ForceFlush(ctx),
	)
}

// Shutdown flushes and stops the providers. Call once at process exit.
func (a *Adapter) Shutdown(ctx context.Context) error {
	if !a.Enabled() || a.providers == nil {
		return nil
	}
	return a.providers.Shutdown(ctx)
}

func (a *Adapter) gauge(name string) metric.Float64Gauge {
	a.mu.Lock()
	defer a.mu.Unlock()
	if g, ok := a.gauges[name]; ok {
		return g
	}
	g, err := a.meter.Float64Gauge(name)
	if err != nil {
		log.Printf("tracing: metric instrument %q: %v", name, err)
		a.gauges[name] = nil
		return nil
	}
	a.gauges[name] = g
	return g
}

func newRecord(severity monitoring.Severity, body string) otellog.Record {
	var rec otellog.Record
	rec.SetTimestamp(time.Now().UTC())
	rec.SetSeverity(severity.OTelSeverity())
	rec.SetSeverityText(severity.String())
	rec.SetBody(otellog.StringValue(body))
	return rec
}

func addProperties(rec *otellog.Record, properties map[string]string) {
	for k, v := range properties {
		rec.AddAttributes(otellog.String(k, v))
	}
}

func propertyAttrs(properties map[string]string) []attribute.KeyValue {
	if len(properties) == 0 {
		return nil
	}
	attrs := make([]attribute.KeyValue, 0, len(properties))
	for k, v := range properties {
		attrs = append(attrs, attribute.String(k, v))
	}
	return attrs
}
