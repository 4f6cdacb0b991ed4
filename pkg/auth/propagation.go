package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
)

// Header and metadata key constants for principal propagation.
// These keys are used in both HTTP headers and gRPC metadata to carry the
// authenticated principal across service boundaries.
//
// All custom headers use the "x-" prefix to distinguish them from standard
// HTTP headers. The principal itself is base64url-encoded JSON to ensure
// safe transport.
const (
	// HeaderAuthorization is the standard authorization header carrying
	// the bearer token. This is the primary authentication credential
	// used by middleware and interceptors to verify the caller.
	HeaderAuthorization = "authorization"

	// HeaderPrincipal carries the verified principal as a base64url-encoded
	// JSON object, set by server-side middleware after verification and
	// forwarded by client-side interceptors to downstream services.
	//
	// Security: the value is encoded for transport safety, not for
	// confidentiality or integrity. A receiving service trusts it only
	// from inside the service mesh boundary.
	HeaderPrincipal = "x-principal"

	// HeaderCallerService carries the name of the service that forwarded
	// the request, so the receiver can identify its immediate upstream
	// caller for audit and authorization purposes.
	HeaderCallerService = "x-caller-service"

	// HeaderCorrelationID carries the request correlation identifier used
	// to tie denial logs across services to a single originating request.
	HeaderCorrelationID = "x-correlation-id"
)

// MaxHeaderValueSize is the maximum allowed size in bytes for the
// serialized principal header value. This limit prevents oversized headers
// that would be rejected by HTTP/2 (default SETTINGS_MAX_HEADER_LIST_SIZE
// is 16 KB) or HTTP/1.1 servers (commonly limited to 8 KB per header).
const MaxHeaderValueSize = 8192

// bearerPrefix is the standard "Bearer " prefix for authorization tokens.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts the token from an authorization header value.
// It handles the "Bearer " prefix case-insensitively.
// Returns an empty string if the header is empty or does not have a bearer prefix.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	// Case-insensitive comparison for "Bearer " prefix.
	prefix := authHeader[:len(bearerPrefix)]
	if !strings.EqualFold(prefix, bearerPrefix) {
		return ""
	}
	return authHeader[len(bearerPrefix):]
}

// SerializePrincipal encodes a principal as a base64url-encoded JSON string.
// This format is safe for use in HTTP headers and gRPC metadata values.
//
// Returns an empty string if principal is nil.
// Returns an error if the principal cannot be marshaled to JSON or if the
// encoded output exceeds [MaxHeaderValueSize].
func SerializePrincipal(principal *Principal) (string, error) {
	if principal == nil {
		return "", nil
	}
	data, err := json.Marshal(principal)
	if err != nil {
		return "", fmt.Errorf("auth: failed to marshal principal: %w", err)
	}
	encoded := base64.RawURLEncoding.EncodeToString(data)
	if len(encoded) > MaxHeaderValueSize {
		return "", fmt.Errorf("auth: serialized principal size %d exceeds maximum %d bytes", len(encoded), MaxHeaderValueSize)
	}
	return encoded, nil
}

// DeserializePrincipal decodes a base64url-encoded JSON string into a
// Principal. Returns nil if the encoded string is empty.
// Returns an error if the string cannot be decoded or parsed.
func DeserializePrincipal(encoded string) (*Principal, error) {
	if encoded == "" {
		return nil, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode principal: %w", err)
	}
	var principal Principal
	if err := json.Unmarshal(data, &principal); err != nil {
		return nil, fmt.Errorf("auth: failed to unmarshal principal: %w", err)
	}
	return &principal, nil
}

// principalToHeaders extracts the principal and request metadata into a set
// of key-value pairs suitable for use as HTTP headers or gRPC metadata.
// Returns nil if principal is nil.
func principalToHeaders(principal *Principal, callerService, correlationID string) (map[string]string, error) {
	if principal == nil {
		return nil, nil
	}

	encoded, err := SerializePrincipal(principal)
	if err != nil {
		return nil, err
	}
	headers := map[string]string{
		HeaderPrincipal: encoded,
	}

	if callerService != "" {
		headers[HeaderCallerService] = callerService
	}
	if correlationID != "" {
		headers[HeaderCorrelationID] = correlationID
	}
	return headers, nil
}

// headerGetter retrieves a single value for a given key from HTTP headers
// or gRPC metadata.
type headerGetter func(key string) string

// principalFromHeaders reconstructs a propagated principal and request
// metadata from a set of key-value pairs (HTTP headers or gRPC metadata).
// Returns a nil principal if no principal header is present.
func principalFromHeaders(getValue headerGetter) (*Principal, string, string, error) {
	encoded := getValue(HeaderPrincipal)
	if encoded == "" {
		return nil, "", "", nil
	}

	principal, err := DeserializePrincipal(encoded)
	if err != nil {
		return nil, "", "", fmt.Errorf("auth: invalid propagated principal: %w", err)
	}

	callerService := getValue(HeaderCallerService)
	correlationID := getValue(HeaderCorrelationID)
	return principal, callerService, correlationID, nil
}
