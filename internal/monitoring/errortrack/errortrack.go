// Package errortrack is the error-tracking vendor adapter built on Sentry.
// It owns a dedicated hub so the rest of the codebase never touches the
// vendor globals, and it installs the redaction pipeline as BeforeSend and
// BeforeBreadcrumb hooks so no event leaves the process unscrubbed. Without
// a configured DSN the adapter runs disabled and every call is inert.
package errortrack

import (
	"context"
	"log"
	"time"

	"github.com/getsentry/sentry-go"

	"telemetry-bridge/backend/internal/monitoring"
	"telemetry-bridge/backend/internal/monitoring/redact"
)

// Config carries the connection settings for the error-tracking backend.
type Config struct {
	// DSN is the project ingest credential. Empty disables the adapter.
	DSN string
	// Environment tags captured events (production, staging, development).
	Environment string
	// Release is the deployed version string.
	Release string
	// ServerName identifies the reporting host.
	ServerName string
	// SampleRatio is the performance-transaction sampling ratio
	// (0 or out of range means 1.0).
	SampleRatio float64
	// URLDenylist overrides the breadcrumb URL drop list.
	// Nil keeps the default.
	URLDenylist []string
}

// User identifies the person associated with captured events.
type User struct {
	ID       string
	Email    string
	Username string
}

// ErrorReport carries optional annotations for a captured error. All fields
// may be zero; a nil report captures the bare error.
type ErrorReport struct {
	// Level overrides the event level. Unset keeps the vendor default.
	Level monitoring.Severity
	// Tags are indexed key/value pairs.
	Tags map[string]string
	// Extra is unindexed structured context attached to the event.
	Extra map[string]interface{}
	// Contexts are named context groups shown on the event page.
	Contexts map[string]map[string]interface{}
	// User overrides the scope user for this event only.
	User *User
}

// Adapter forwards error captures and breadcrumbs to the error-tracking
// backend. A disabled Adapter (no DSN, or client setup failed) accepts every
// call and does nothing. Safe for concurrent use; the underlying hub
// serializes scope access.
type Adapter struct {
	enabled  bool
	hub      *sentry.Hub
	denylist []string
}

// New builds the adapter. An empty DSN yields a disabled adapter: missing
// credentials are the expected default outside production and must not fail
// startup. Client setup failures (a malformed DSN) are logged and likewise
// yield a disabled adapter.
func New(cfg Config) *Adapter {
	if cfg.DSN == "" {
		log.Printf("errortrack: DSN not configured, error tracking disabled")
		return &Adapter{}
	}

	denylist := cfg.URLDenylist
	if denylist == nil {
		denylist = redact.DefaultURLDenylist
	}

	client, err := sentry.NewClient(clientOptions(cfg, denylist))
	if err != nil {
		log.Printf("errortrack: client setup failed, error tracking disabled: %v", err)
		return &Adapter{}
	}

	log.Printf("errortrack: initialized (environment: %s)", cfg.Environment)
	return &Adapter{
		enabled:  true,
		hub:      sentry.NewHub(client, sentry.NewScope()),
		denylist: denylist,
	}
}

// clientOptions assembles the vendor client options, wiring the redaction
// pipeline into the BeforeSend and BeforeBreadcrumb hooks. Every event and
// breadcrumb passes through these hooks; there is no unredacted send path.
func clientOptions(cfg Config, denylist []string) sentry.ClientOptions {
	sampleRatio := cfg.SampleRatio
	if sampleRatio <= 0 || sampleRatio > 1 {
		sampleRatio = 1.0
	}
	return sentry.ClientOptions{
		Dsn:                cfg.DSN,
		Environment:        cfg.Environment,
		Release:            cfg.Release,
		ServerName:         cfg.ServerName,
		EnableTracing:      true,
		TracesSampleRate:   sampleRatio,
		ProfilesSampleRate: sampleRatio,
		AttachStacktrace:   true,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			return redact.Event(event)
		},
		BeforeBreadcrumb: func(crumb *sentry.Breadcrumb, hint *sentry.BreadcrumbHint) *sentry.Breadcrumb {
			return redact.BreadcrumbWithDenylist(crumb, denylist)
		},
	}
}

// Enabled reports whether captures reach the backend.
func (a *Adapter) Enabled() bool {
	return a != nil && a.enabled
}

// CaptureError reports err with the annotations in report. The report is
// applied on a throwaway scope so it never leaks into later captures.
func (a *Adapter) CaptureError(ctx context.Context, err error, report *ErrorReport) {
	if !a.Enabled() || err == nil {
		return
	}
	hub := a.contextHub(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		applyReport(scope, report)
		hub.CaptureException(err)
	})
}

// CaptureMessage reports a free-form message at the given severity, with
// optional indexed tags and unindexed extra context.
func (a *Adapter) CaptureMessage(ctx context.Context, message string, severity monitoring.Severity, tags map[string]string, extra map[string]interface{}) {
	if !a.Enabled() || message == "" {
		return
	}
	hub := a.contextHub(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		scope.SetLevel(severity.SentryLevel())
		if len(tags) > 0 {
			scope.SetTags(tags)
		}
		if len(extra) > 0 {
			scope.SetExtras(extra)
		}
		hub.CaptureMessage(message)
	})
}

// AddBreadcrumb records a trail entry attached to subsequent captures. The
// breadcrumb drop rules run here as well: query breadcrumbs and HTTP-client
// breadcrumbs for denylisted URLs are discarded.
func (a *Adapter) AddBreadcrumb(ctx context.Context, category, message string, data map[string]interface{}, severity monitoring.Severity) {
	if !a.Enabled() {
		return
	}
	crumb := redact.BreadcrumbWithDenylist(&sentry.Breadcrumb{
		Category:  category,
		Message:   message,
		Data:      data,
		Level:     severity.SentryLevel(),
		Timestamp: time.Now().UTC(),
	}, a.denylist)
	if crumb == nil {
		return
	}
	a.contextHub(ctx).AddBreadcrumb(crumb, nil)
}

// SetUser binds the user to the hub scope; every later capture carries it
// until ClearUser.
func (a *Adapter) SetUser(u User) {
	if !a.Enabled() {
		return
	}
	a.hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentryUser(u))
	})
}

// ClearUser removes the bound user from the hub scope.
func (a *Adapter) ClearUser() {
	if !a.Enabled() {
		return
	}
	a.hub.ConfigureScope(func(scope *sentry.Scope) {
		scope.SetUser(sentry.User{})
	})
}

// StartTransaction begins a performance transaction with the given name and
// operation. The caller must Finish it. Returns nil when disabled; the
// vendor type tolerates method calls on nil, so callers need no check.
func (a *Adapter) StartTransaction(ctx context.Context, name, operation string) *sentry.Span {
	if !a.Enabled() {
		return nil
	}
	if sentry.GetHubFromContext(ctx) == nil {
		ctx = sentry.SetHubOnContext(ctx, a.hub)
	}
	return sentry.StartTransaction(ctx, name, sentry.WithOpName(operation))
}

// Flush blocks until buffered events are sent or the timeout elapses.
// Reports whether the queue drained in time. Call at process exit.
func (a *Adapter) Flush(timeout time.Duration) bool {
	if !a.Enabled() {
		return true
	}
	return a.hub.Flush(timeout)
}

// contextHub returns the hub bound to ctx when middleware has attached one,
// so captures inside a request land on that request's scope.
func (a *Adapter) contextHub(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return a.hub
}

func applyReport(scope *sentry.Scope, report *ErrorReport) {
	if report == nil {
		return
	}
	if report.Level != 0 {
		scope.SetLevel(report.Level.SentryLevel())
	}
	if len(report.Tags) > 0 {
		scope.SetTags(report.Tags)
	}
	if len(report.Extra) > 0 {
		scope.SetExtras(report.Extra)
	}
	for name, values := range report.Contexts {
		scope.SetContext(name, sentry.Context(values))
	}
	if report.User != nil {
		scope.SetUser(sentryUser(*report.User))
	}
}

func sentryUser(u User) sentry.User {
	return sentry.User{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
	}
}
