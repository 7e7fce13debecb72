// Package monitoring holds types shared by the vendor telemetry adapters.
package monitoring

import (
	"strings"

	"github.com/getsentry/sentry-go"
	otellog "go.opentelemetry.io/otel/log"
)

// Severity is the vendor-neutral severity of a telemetry record.
// It is parsed once from its string form and mapped to each vendor's
// own level type, so callers never branch on level strings.
type Severity int

// The zero value is deliberately no named severity so callers can
// distinguish "unset" from an explicit choice.
const (
	SeverityDebug Severity = iota + 1
	SeverityInfo
	SeverityWarning
	SeverityError
	SeverityCritical
)

// ParseSeverity maps a severity name (any casing) to a Severity.
// Unknown names map to SeverityInfo.
func ParseSeverity(s string) Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return SeverityDebug
	case "info":
		return SeverityInfo
	case "warning", "warn":
		return SeverityWarning
	case "error":
		return SeverityError
	case "critical", "fatal":
		return SeverityCritical
	default:
		return SeverityInfo
	}
}

// String returns the canonical lowercase name.
func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "info"
	}
}

// OTelSeverity maps to the OpenTelemetry log severity.
func (s Severity) OTelSeverity() otellog.Severity {
	switch s {
	case SeverityDebug:
		return otellog.SeverityDebug
	case SeverityWarning:
		return otellog.SeverityWarn
	case SeverityError:
		return otellog.SeverityError
	case SeverityCritical:
		return otellog.SeverityFatal
	default:
		return otellog.SeverityInfo
	}
}

// SentryLevel maps to the Sentry event level.
func (s Severity) SentryLevel() sentry.Level {
	switch s {
	case SeverityDebug:
		return sentry.LevelDebug
	case SeverityWarning:
		return sentry.LevelWarning
	case SeverityError:
		return sentry.LevelError
	case SeverityCritical:
		return sentry.LevelFatal
	default:
		return sentry.LevelInfo
	}
}
