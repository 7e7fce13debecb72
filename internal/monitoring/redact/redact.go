// Package redact scrubs sensitive fields from outbound error-tracking
// payloads and suppresses noisy breadcrumbs. It is wired into the Sentry
// client as the mandatory BeforeSend/BeforeBreadcrumb hooks, so every
// event and breadcrumb passes through here before leaving the process.
//
// All functions are stateless and total: missing sub-structures are
// no-ops, never errors, and applying a rule twice yields the same result
// as applying it once.
package redact

import (
	"strings"

	"github.com/getsentry/sentry-go"
)

// redactedValue replaces sensitive values in outbound payloads.
const redactedValue = "[REDACTED]"

// sensitiveHeaders are removed from request headers, matched case-insensitively.
var sensitiveHeaders = []string{"authorization", "cookie", "x-api-key"}

// sensitiveQueryParams have their values masked in query strings.
// Matched as substrings of the query string, mirroring header semantics.
var sensitiveQueryParams = []string{"token=", "api_key="}

// httpClientCategories are breadcrumb categories recording outbound HTTP
// calls; crumbs in these categories are dropped when the URL hits the
// analytics denylist.
var httpClientCategories = map[string]bool{
	"http":    true,
	"httplib": true,
}

// DefaultURLDenylist drops HTTP-client breadcrumbs whose URL contains any
// of these substrings. Calls to analytics vendors are pure noise in an
// error trail. Matching is case-sensitive.
var DefaultURLDenylist = []string{"analytics", "tracking", "segment", "mixpanel"}

// Event masks sensitive fields on the event in place and returns it.
// Events are never dropped here, only scrubbed. Safe on nil.
func Event(event *sentry.Event) *sentry.Event {
	if event == nil {
		return nil
	}

	if event.Request != nil {
		scrubHeaders(event.Request.Headers)
		event.Request.QueryString = SanitizeQueryString(event.Request.QueryString)
	}

	for key := range event.Extra {
		if sensitiveExtraKey(key) {
			event.Extra[key] = redactedValue
		}
	}

	if db, ok := event.Contexts["database"]; ok {
		if _, ok := db["connection_string"]; ok {
			db["connection_string"] = redactedValue
		}
	}
	if stripe, ok := event.Contexts["stripe"]; ok {
		delete(stripe, "secret_key")
		delete(stripe, "api_key")
	}

	return event
}

// Breadcrumb returns nil (drop) for database query crumbs and for
// HTTP-client crumbs calling analytics vendors (DefaultURLDenylist);
// every other crumb is returned unchanged.
func Breadcrumb(crumb *sentry.Breadcrumb) *sentry.Breadcrumb {
	return BreadcrumbWithDenylist(crumb, DefaultURLDenylist)
}

// BreadcrumbWithDenylist is Breadcrumb with a caller-supplied URL denylist.
// URL matching is case-sensitive; header and extra-key matching elsewhere
// in this package is not.
func BreadcrumbWithDenylist(crumb *sentry.Breadcrumb, denylist []string) *sentry.Breadcrumb {
	if crumb == nil {
		return nil
	}

	// Database query breadcrumbs are too noisy to keep.
	if crumb.Category == "query" {
		return nil
	}

	if httpClientCategories[crumb.Category] {
		url, _ := crumb.Data["url"].(string)
		for _, fragment := range denylist {
			if fragment != "" && strings.Contains(url, fragment) {
				return nil
			}
		}
	}

	return crumb
}

// SanitizeQueryString masks the value of every token= and api_key= pair
// in the query string with [REDACTED], leaving all other bytes unchanged.
// A value runs to the next '&' or end of string. Empty input is returned
// as is.
func SanitizeQueryString(query string) string {
	if query == "" {
		return query
	}
	for _, param := range sensitiveQueryParams {
		query = maskParamValue(query, param)
	}
	return query
}

// maskParamValue replaces the run after each occurrence of param (e.g.
// "token=") up to the next '&' with the redaction marker. Replacing an
// already-masked value writes the same marker again, keeping the
// operation idempotent.
func maskParamValue(query, param string) string {
	idx := strings.Index(query, param)
	if idx < 0 {
		return query
	}

	var b strings.Builder
	b.Grow(len(query))
	for i := 0; i < len(query); {
		j := strings.Index(query[i:], param)
		if j < 0 {
			b.WriteString(query[i:])
			break
		}
		j += i
		end := j + len(param)
		for end < len(query) && query[end] != '&' {
			end++
		}
		b.WriteString(query[i:j])
		b.WriteString(param)
		b.WriteString(redactedValue)
		i = end
	}
	return b.String()
}

func scrubHeaders(headers map[string]string) {
	for key := range headers {
		lower := strings.ToLower(key)
		for _, sensitive := range sensitiveHeaders {
			if lower == sensitive {
				delete(headers, key)
				break
			}
		}
	}
}

func sensitiveExtraKey(key string) bool {
	lower := strings.ToLower(key)
	return strings.Contains(lower, "password") || strings.Contains(lower, "secret")
}
