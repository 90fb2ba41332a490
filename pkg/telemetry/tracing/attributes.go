package tracing

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Attribute keys in the cwlens namespace.
const (
	AttrSession    = "cwlens.session"
	AttrProfile    = "cwlens.profile"
	AttrWindowType = "cwlens.window_type"
	AttrTurn       = "cwlens.turn"
	AttrLimit      = "cwlens.limit.tokens"
	AttrLimitSrc   = "cwlens.limit.source"
	AttrEndpoint   = "cwlens.upstream.endpoint"
	AttrRequestID  = "cwlens.request_id"
	AttrStale      = "cwlens.stale"
)

// SetSessionAttributes records which session and profile a span served.
// Empty values are skipped.
func SetSessionAttributes(span trace.Span, sessionID, profileID string) {
	var attrs []attribute.KeyValue
	if sessionID != "" {
		attrs = append(attrs, attribute.String(AttrSession, sessionID))
	}
	if profileID != "" {
		attrs = append(attrs, attribute.String(AttrProfile, profileID))
	}
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
}

// SetLimitAttributes records the resolved effective limit.
func SetLimitAttributes(span trace.Span, tokens int, source string) {
	span.SetAttributes(
		attribute.Int(AttrLimit, tokens),
		attribute.String(AttrLimitSrc, source),
	)
}

// SetUpstreamAttributes records an upstream call.
func SetUpstreamAttributes(span trace.Span, endpoint, method, url, requestID string) {
	span.SetAttributes(
		attribute.String(AttrEndpoint, endpoint),
		attribute.String("http.method", method),
		attribute.String("http.url", url),
		attribute.String(AttrRequestID, requestID),
	)
}

// MarkStale flags a span whose result was discarded.
func MarkStale(span trace.Span) {
	span.SetAttributes(attribute.Bool(AttrStale, true))
}
