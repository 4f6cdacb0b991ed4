// Package auth implements request authentication for the Tiketti platform:
// bearer-token verification (local HMAC tokens and federated tokens with a
// two-source key-set fallback), principal resolution from token claims, and
// HTTP/gRPC plumbing for attaching and propagating the principal.
//
// Role and ownership decisions live in the authz package; this package only
// establishes who the caller is.
package auth

import "context"

// Principal is the authenticated identity extracted from a verified token.
// It carries only claim-derived facts; role and ownership are resolved later
// against the user store by the authorization layer.
type Principal struct {
	// Email is the principal's lowercase-normalized email address. It is
	// the join key between token identity and platform user records.
	Email string `json:"email"`

	// DisplayName is the human-readable name from the token claims, with
	// fallback to the local part of the email address.
	DisplayName string `json:"display_name"`

	// ExternalSubjectID is the stable identifier assigned by the identity
	// provider (directory object ID, falling back to the token subject).
	ExternalSubjectID string `json:"external_subject_id"`

	// IsDeveloperBypass reports whether the principal's email is on the
	// developer-bypass allowlist. True whenever the email matches,
	// regardless of which verification path accepted the token, so
	// downstream trust decisions always see the flag.
	IsDeveloperBypass bool `json:"is_developer_bypass,omitempty"`
}

// TokenVerifier verifies bearer tokens and resolves them to principals. It
// is the seam between transport middleware and the concrete [Verifier],
// allowing tests to substitute a stub.
type TokenVerifier interface {
	// Verify authenticates the given raw token and returns the principal
	// it asserts. Returns a *[tkerr.Error] from the authentication
	// taxonomy on rejection; infrastructure failures (key-set fetch,
	// rate limiting) carry retryable codes and must not be treated as
	// identity rejections.
	Verify(ctx context.Context, token string) (*Principal, error)
}
