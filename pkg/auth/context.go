package auth

import (
	"context"

	"go.opentelemetry.io/otel/trace"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// contextKey is an unexported type for context keys defined in this package,
// preventing collisions with keys defined elsewhere.
type contextKey int

const (
	principalKey contextKey = iota
	correlationIDKey
	callerServiceKey
)

// ContextWithPrincipal returns a new context carrying the given principal.
func ContextWithPrincipal(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, principalKey, principal)
}

// PrincipalFromContext returns the principal stored in the context, or nil
// and false if no principal is present.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	principal, ok := ctx.Value(principalKey).(*Principal)
	return principal, ok
}

// MustPrincipalFromContext returns the principal stored in the context, or
// an authentication error if none is present. Use in handlers that sit
// behind the authentication middleware, where a missing principal means the
// middleware was bypassed.
func MustPrincipalFromContext(ctx context.Context) (*Principal, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok || principal == nil {
		return nil, tkerr.New(tkerr.CodeAuthentication, "auth: no principal in request context")
	}
	return principal, nil
}

// ContextWithCorrelationID returns a new context carrying the correlation
// identifier used to tie denial logs to a request.
func ContextWithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationIDKey, id)
}

// CorrelationIDFromContext returns the correlation identifier from the
// context, or "" if none is present.
func CorrelationIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(correlationIDKey).(string)
	return id
}

// ContextWithCallerService returns a new context recording which upstream
// service propagated the request.
func ContextWithCallerService(ctx context.Context, service string) context.Context {
	return context.WithValue(ctx, callerServiceKey, service)
}

// CallerServiceFromContext returns the upstream service name from the
// context, or "" if the request arrived directly.
func CallerServiceFromContext(ctx context.Context) string {
	service, _ := ctx.Value(callerServiceKey).(string)
	return service
}

// TraceIDFromContext returns the OpenTelemetry trace ID from the context, or
// "" if no span is recording.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasTraceID() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// SpanIDFromContext returns the OpenTelemetry span ID from the context, or
// "" if no span is recording.
func SpanIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.HasSpanID() {
		return ""
	}
	return spanCtx.SpanID().String()
}
