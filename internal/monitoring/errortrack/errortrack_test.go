package errortrack

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/getsentry/sentry-go"

	"telemetry-bridge/backend/internal/monitoring"
	"telemetry-bridge/backend/internal/monitoring/redact"
)

// captureTransport stores sent events instead of dispatching them.
type captureTransport struct {
	events []*sentry.Event
}

func (t *captureTransport) Configure(options sentry.ClientOptions) {}
func (t *captureTransport) SendEvent(event *sentry.Event)          { t.events = append(t.events, event) }
func (t *captureTransport) Flush(timeout time.Duration) bool       { return true }
func (t *captureTransport) FlushWithContext(ctx context.Context) bool { return true }
func (t *captureTransport) Close()                                    {}

func (t *captureTransport) last(tb *testing.T) *sentry.Event {
	tb.Helper()
	if len(t.events) == 0 {
		tb.Fatal("no events sent")
	}
	return t.events[len(t.events)-1]
}

// testAdapter builds an enabled adapter over the production client options
// (redaction hooks included) with the transport swapped for a capture.
func testAdapter(t *testing.T) (*Adapter, *captureTransport) {
	t.Helper()
	transport := &captureTransport{}
	opts := clientOptions(Config{
		DSN:         "https://key@sentry.example.com/1",
		Environment: "test",
	}, redact.DefaultURLDenylist)
	opts.Transport = transport
	client, err := sentry.NewClient(opts)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return &Adapter{
		enabled:  true,
		hub:      sentry.NewHub(client, sentry.NewScope()),
		denylist: redact.DefaultURLDenylist,
	}, transport
}

func TestNew_EmptyDSN_Disabled(t *testing.T) {
	a := New(Config{DSN: ""})
	if a == nil {
		t.Fatal("New returned nil adapter")
	}
	if a.Enabled() {
		t.Error("adapter should be disabled without a DSN")
	}

	// All calls must be inert.
	ctx := context.Background()
	a.CaptureError(ctx, errors.New("boom"), nil)
	a.CaptureMessage(ctx, "hello", monitoring.SeverityInfo, nil, nil)
	a.AddBreadcrumb(ctx, "http", "GET", nil, monitoring.SeverityInfo)
	a.SetUser(User{ID: "u1"})
	a.ClearUser()
	if tx := a.StartTransaction(ctx, "job", "task"); tx != nil {
		t.Errorf("StartTransaction on disabled adapter = %v, want nil", tx)
	}
	if !a.Flush(time.Millisecond) {
		t.Error("Flush on disabled adapter should report drained")
	}
}

func TestNew_MalformedDSN_Disabled(t *testing.T) {
	a := New(Config{DSN: "not a dsn"})
	if a.Enabled() {
		t.Error("adapter should be disabled when the DSN does not parse")
	}
}

func TestClientOptions_SampleRatio(t *testing.T) {
	tests := []struct {
		name  string
		ratio float64
		want  float64
	}{
		{"production ratio", 0.1, 0.1},
		{"full sampling", 1.0, 1.0},
		{"zero defaults to full", 0, 1.0},
		{"out of range defaults to full", 1.5, 1.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := clientOptions(Config{SampleRatio: tt.ratio}, nil)
			if !opts.EnableTracing {
				t.Error("EnableTracing should be set")
			}
			if opts.TracesSampleRate != tt.want {
				t.Errorf("TracesSampleRate = %v, want %v", opts.TracesSampleRate, tt.want)
			}
			if opts.ProfilesSampleRate != tt.want {
				t.Errorf("ProfilesSampleRate = %v, want %v", opts.ProfilesSampleRate, tt.want)
			}
		})
	}
}

func TestCaptureError_AppliesReport(t *testing.T) {
	a, transport := testAdapter(t)
	err := errors.New("payment declined")
	a.CaptureError(context.Background(), err, &ErrorReport{
		Level: monitoring.SeverityWarning,
		Tags:  map[string]string{"component": "billing"},
		Extra: map[string]interface{}{"order_id": "ord-42"},
		Contexts: map[string]map[string]interface{}{
			"payment": {"provider": "stripe"},
		},
		User: &User{ID: "u1", Email: "u1@example.com"},
	})

	event := transport.last(t)
	if len(event.Exception) == 0 {
		t.Fatal("event has no exception")
	}
	if got := event.Exception[len(event.Exception)-1].Value; got != "payment declined" {
		t.Errorf("exception value = %q", got)
	}
	if event.Level != sentry.LevelWarning {
		t.Errorf("level = %q, want warning", event.Level)
	}
	if event.Tags["component"] != "billing" {
		t.Errorf("tags = %v", event.Tags)
	}
	if event.Extra["order_id"] != "ord-42" {
		t.Errorf("extra = %v", event.Extra)
	}
	payment, ok := event.Contexts["payment"]
	if !ok || payment["provider"] != "stripe" {
		t.Errorf("contexts = %v", event.Contexts)
	}
	if event.User.ID != "u1" {
		t.Errorf("user = %+v", event.User)
	}
}

func TestCaptureError_ScopeDoesNotLeak(t *testing.T) {
	a, transport := testAdapter(t)
	a.CaptureError(context.Background(), errors.New("first"), &ErrorReport{
		Tags: map[string]string{"component": "billing"},
	})
	a.CaptureError(context.Background(), errors.New("second"), nil)

	if len(transport.events) != 2 {
		t.Fatalf("sent %d events, want 2", len(transport.events))
	}
	if _, ok := transport.events[1].Tags["component"]; ok {
		t.Error("tags from the first report leaked into the second event")
	}
}

func TestCaptureError_NilError_NoEvent(t *testing.T) {
	a, transport := testAdapter(t)
	a.CaptureError(context.Background(), nil, nil)
	if len(transport.events) != 0 {
		t.Errorf("nil error sent %d events", len(transport.events))
	}
}

func TestCaptureMessage_LevelApplied(t *testing.T) {
	a, transport := testAdapter(t)
	a.CaptureMessage(context.Background(), "cache warmed", monitoring.SeverityDebug, map[string]string{"component": "cache"}, nil)

	event := transport.last(t)
	if event.Message != "cache warmed" {
		t.Errorf("message = %q", event.Message)
	}
	if event.Level != sentry.LevelDebug {
		t.Errorf("level = %q, want debug", event.Level)
	}
}

func TestBeforeSend_ScrubsSentEvents(t *testing.T) {
	a, transport := testAdapter(t)
	a.hub.CaptureEvent(&sentry.Event{
		Message: "request failed",
		Request: &sentry.Request{
			Headers:     map[string]string{"Authorization": "Bearer tok", "Accept": "*/*"},
			QueryString: "token=abc&page=2",
		},
	})

	event := transport.last(t)
	if _, ok := event.Request.Headers["Authorization"]; ok {
		t.Error("Authorization header should be removed")
	}
	if got := event.Request.Headers["Accept"]; got != "*/*" {
		t.Errorf("Accept = %q, should pass through", got)
	}
	if got := event.Request.QueryString; got != "token=[REDACTED]&page=2" {
		t.Errorf("query = %q", got)
	}
}

func TestAddBreadcrumb_DropRules(t *testing.T) {
	a, transport := testAdapter(t)
	ctx := context.Background()

	a.AddBreadcrumb(ctx, "query", "SELECT * FROM users", nil, monitoring.SeverityDebug)
	a.AddBreadcrumb(ctx, "http", "GET", map[string]interface{}{
		"url": "https://analytics.example.com/collect",
	}, monitoring.SeverityInfo)
	a.AddBreadcrumb(ctx, "http", "GET", map[string]interface{}{
		"url": "https://api.example.com/orders",
	}, monitoring.SeverityInfo)
	a.CaptureError(ctx, errors.New("boom"), nil)

	event := transport.last(t)
	if len(event.Breadcrumbs) != 1 {
		t.Fatalf("event has %d breadcrumbs, want 1", len(event.Breadcrumbs))
	}
	if got := event.Breadcrumbs[0].Data["url"]; got != "https://api.example.com/orders" {
		t.Errorf("kept breadcrumb url = %v", got)
	}
}

func TestSetUser_ClearUser(t *testing.T) {
	a, transport := testAdapter(t)
	ctx := context.Background()

	a.SetUser(User{ID: "u1", Username: "alice"})
	a.CaptureError(ctx, errors.New("first"), nil)
	if got := transport.last(t).User.ID; got != "u1" {
		t.Errorf("user id = %q, want u1", got)
	}

	a.ClearUser()
	a.CaptureError(ctx, errors.New("second"), nil)
	if got := transport.last(t).User.ID; got != "" {
		t.Errorf("user id after clear = %q, want empty", got)
	}
}

func TestStartTransaction_NameAndOp(t *testing.T) {
	a, _ := testAdapter(t)
	tx := a.StartTransaction(context.Background(), "GET /orders", "http.server")
	if tx == nil {
		t.Fatal("StartTransaction returned nil on enabled adapter")
	}
	defer tx.Finish()
	if tx.Name != "GET /orders" {
		t.Errorf("name = %q", tx.Name)
	}
	if tx.Op != "http.server" {
		t.Errorf("op = %q", tx.Op)
	}
}

func TestNilAdapter_EnabledFalse(t *testing.T) {
	var a *Adapter
	if a.Enabled() {
		t.Error("nil adapter reports enabled")
	}
}
