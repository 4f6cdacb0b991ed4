package auth

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// HTTPMiddleware returns an HTTP middleware that authenticates incoming
// requests and attaches the resulting principal to the request context.
//
// The middleware performs the following steps:
//  1. Assigns a correlation identifier (propagated or freshly generated)
//  2. Extracts the "Authorization" header (bearer token)
//  3. Verifies the token using the provided [TokenVerifier]
//  4. Stores the resulting [Principal] in the request context
//  5. Extracts the propagated caller service header
//  6. Passes the enriched request to the next handler
//
// Rejections are written as JSON bodies carrying only the taxonomy code;
// the denial reason is logged with the correlation identifier, never sent
// to the caller.
//
// The serviceName parameter identifies the current service in denial logs
// and downstream propagation.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/api/tickets", handleTickets)
//	handler := auth.HTTPMiddleware(verifier, "tiketti-api")(mux)
//	http.ListenAndServe(":8080", handler)
func HTTPMiddleware(verifier TokenVerifier, serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			correlationID := r.Header.Get(HeaderCorrelationID)
			if correlationID == "" {
				correlationID = uuid.NewString()
			}
			ctx = ContextWithCorrelationID(ctx, correlationID)
			r = r.WithContext(ctx)

			// Extract the bearer token from the Authorization header.
			authHeader := r.Header.Get(HeaderAuthorization)
			token := ExtractBearerToken(authHeader)
			if token == "" {
				WriteError(w, r, tkerr.New(tkerr.CodeAuthentication,
					"auth: missing or invalid authorization header"))
				return
			}

			// Verify the token and resolve the principal.
			principal, err := verifier.Verify(ctx, token)
			if err != nil {
				slog.WarnContext(ctx, "auth: token verification failed",
					"error", err,
					"service", serviceName,
					"correlation_id", correlationID,
				)
				WriteError(w, r, err)
				return
			}

			ctx = ContextWithPrincipal(ctx, principal)

			// Extract propagated caller service header.
			if caller := r.Header.Get(HeaderCallerService); caller != "" {
				ctx = ContextWithCallerService(ctx, caller)
			}

			// Continue with the enriched context.
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// errorResponse is the JSON body written for rejected requests. It carries
// only the taxonomy code; human-readable reasons stay in the logs.
type errorResponse struct {
	Code string `json:"code"`
}

// WriteError writes the error to the response as a minimal JSON body with
// the HTTP status derived from the error's taxonomy category. Unclassified
// errors are treated as internal faults.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	tErr := tkerr.FromError(err)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(HeaderCorrelationID, CorrelationIDFromContext(r.Context()))
	w.WriteHeader(tErr.HTTPStatus())
	if encErr := json.NewEncoder(w).Encode(errorResponse{Code: tErr.Code.String()}); encErr != nil {
		slog.WarnContext(r.Context(), "auth: failed to encode error response", "error", encErr)
	}
}

// PropagatingRoundTripper wraps an [http.RoundTripper] to propagate the
// authenticated principal to outgoing HTTP requests. It reads the
// principal, caller service, and correlation identifier from the request
// context and adds them as HTTP headers.
//
// This is used when a service needs to make outgoing HTTP calls to
// downstream services while preserving the principal for authorization and
// audit.
//
// Example:
//
//	client := &http.Client{
//	    Transport: auth.NewPropagatingRoundTripper("tiketti-api", http.DefaultTransport),
//	}
//	// Requests made with this client automatically include principal headers.
//	resp, err := client.Do(req.WithContext(ctx))
type PropagatingRoundTripper struct {
	// serviceName identifies the current service to the downstream callee.
	serviceName string

	// wrapped is the underlying RoundTripper that performs the actual HTTP call.
	wrapped http.RoundTripper
}

// NewPropagatingRoundTripper creates a new PropagatingRoundTripper that
// wraps the given transport. If transport is nil, [http.DefaultTransport]
// is used.
func NewPropagatingRoundTripper(serviceName string, transport http.RoundTripper) *PropagatingRoundTripper {
	if transport == nil {
		transport = http.DefaultTransport
	}
	return &PropagatingRoundTripper{
		serviceName: serviceName,
		wrapped:     transport,
	}
}

// RoundTrip executes the HTTP request with principal headers injected from
// the request context. If no principal is present in the context, the
// request proceeds without modification.
//
// RoundTrip implements the [http.RoundTripper] interface.
func (t *PropagatingRoundTripper) RoundTrip(r *http.Request) (*http.Response, error) {
	principal, ok := PrincipalFromContext(r.Context())
	if !ok {
		return t.wrapped.RoundTrip(r)
	}

	headers, err := principalToHeaders(principal, t.serviceName, CorrelationIDFromContext(r.Context()))
	if err != nil {
		// Log but don't fail — propagation failure should not prevent
		// the outgoing request.
		slog.WarnContext(r.Context(), "auth: failed to serialize principal for HTTP propagation",
			"error", err,
			"service", t.serviceName,
		)
		return t.wrapped.RoundTrip(r)
	}

	// Clone the request to avoid mutating the original.
	clone := r.Clone(r.Context())
	for k, v := range headers {
		clone.Header.Set(k, v)
	}

	return t.wrapped.RoundTrip(clone)
}
