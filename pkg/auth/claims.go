package auth

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// maxTokenSize is the maximum accepted token length in bytes. Tokens larger
// than this are rejected before any parsing to prevent resource exhaustion.
const maxTokenSize = 8192

// ---------------------------------------------------------------------------
// TokenKind — classification of a token before verification
// ---------------------------------------------------------------------------

// TokenKind classifies a token by its signing family, determined from the
// declared algorithm and (for asymmetric tokens) the issuer format. The kind
// selects the verification path: symmetric tokens are checked against the
// local shared secret, asymmetric tokens against remote key sets.
type TokenKind int

const (
	// KindSymmetric is a local token signed with the shared HMAC secret.
	KindSymmetric TokenKind = iota

	// KindAsymmetricV1 is a federated token carrying a legacy-format
	// issuer ("https://sts.windows.net/{tenant}/").
	KindAsymmetricV1

	// KindAsymmetricV2 is a federated token carrying a modern-format
	// issuer ("https://login.microsoftonline.com/{tenant}/v2.0").
	KindAsymmetricV2
)

// String returns a human-readable name for the token kind.
func (k TokenKind) String() string {
	switch k {
	case KindSymmetric:
		return "symmetric"
	case KindAsymmetricV1:
		return "asymmetric-v1"
	case KindAsymmetricV2:
		return "asymmetric-v2"
	default:
		return "unknown"
	}
}

// classifyToken determines the verification path from the declared signing
// algorithm and the issuer claim. Classification is purely syntactic; no
// claim is trusted until the signature has been verified.
//
// HMAC algorithms (HS*) select the symmetric path. RSA, ECDSA, and RSA-PSS
// algorithms (RS*, ES*, PS*) select an asymmetric path, split by issuer
// format. The "none" algorithm and anything unrecognized are rejected with
// [tkerr.CodeTokenAlgorithm].
func classifyToken(alg, issuer string) (TokenKind, *tkerr.Error) {
	switch {
	case strings.HasPrefix(alg, "HS"):
		return KindSymmetric, nil
	case strings.HasPrefix(alg, "RS"), strings.HasPrefix(alg, "ES"), strings.HasPrefix(alg, "PS"):
		if strings.HasPrefix(issuer, issuerV1Prefix) {
			return KindAsymmetricV1, nil
		}
		return KindAsymmetricV2, nil
	default:
		return 0, tkerr.Newf(tkerr.CodeTokenAlgorithm,
			"auth: unsupported signing algorithm %q", alg)
	}
}

// ---------------------------------------------------------------------------
// Unverified decode
// ---------------------------------------------------------------------------

// unverifiedToken holds the header fields and claims extracted from a token
// without signature verification. Nothing in it may be trusted until the
// token has been verified; it exists only to select the verification path
// and to supply claims after verification succeeds.
type unverifiedToken struct {
	alg    string
	kid    string
	claims tokenClaims
}

// decodeUnverified parses the token structure without verifying the
// signature. Structurally invalid tokens fail with
// [tkerr.CodeTokenMalformed].
func decodeUnverified(tokenStr string) (*unverifiedToken, *tkerr.Error) {
	claims := jwt.MapClaims{}
	token, _, err := jwt.NewParser().ParseUnverified(tokenStr, claims)
	if err != nil {
		return nil, tkerr.Wrap(err, tkerr.CodeTokenMalformed, "auth: failed to parse token")
	}

	alg, _ := token.Header["alg"].(string)
	if alg == "" || strings.EqualFold(alg, "none") {
		return nil, tkerr.New(tkerr.CodeTokenAlgorithm,
			"auth: token must declare a signing algorithm")
	}
	kid, _ := token.Header["kid"].(string)

	return &unverifiedToken{
		alg:    alg,
		kid:    kid,
		claims: tokenClaims(claims),
	}, nil
}

// ---------------------------------------------------------------------------
// tokenClaims — claim accessors with identity alias chains
// ---------------------------------------------------------------------------

// tokenClaims wraps a decoded claim set with accessors for the claims the
// platform cares about. Identity providers disagree on claim names, so the
// identity accessors walk an alias chain and return the first non-empty
// match.
type tokenClaims jwt.MapClaims

// str returns the claim value as a string, or "" if absent or not a string.
func (c tokenClaims) str(key string) string {
	s, _ := c[key].(string)
	return s
}

// Issuer returns the "iss" claim.
func (c tokenClaims) Issuer() string {
	return c.str("iss")
}

// Audiences returns the "aud" claim as a slice. The claim may be encoded as
// a single string or as an array of strings.
func (c tokenClaims) Audiences() []string {
	switch aud := c["aud"].(type) {
	case string:
		return []string{aud}
	case []any:
		out := make([]string, 0, len(aud))
		for _, a := range aud {
			if s, ok := a.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return aud
	default:
		return nil
	}
}

// HasAudience reports whether the "aud" claim contains the given value.
func (c tokenClaims) HasAudience(aud string) bool {
	for _, a := range c.Audiences() {
		if a == aud {
			return true
		}
	}
	return false
}

// ExpiresAt returns the "exp" claim as a time, and whether the claim is
// present and numeric.
func (c tokenClaims) ExpiresAt() (time.Time, bool) {
	switch exp := c["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case int64:
		return time.Unix(exp, 0), true
	case json.Number:
		v, err := exp.Int64()
		if err != nil {
			return time.Time{}, false
		}
		return time.Unix(v, 0), true
	default:
		return time.Time{}, false
	}
}

// Email returns the principal's email address, walking the alias chain
// preferred_username, upn, email, unique_name. The result is trimmed and
// lowercased. Returns "" when no alias carries a value.
func (c tokenClaims) Email() string {
	for _, key := range []string{"preferred_username", "upn", "email", "unique_name"} {
		if v := strings.TrimSpace(c.str(key)); v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// DisplayName returns the principal's display name, preferring the "name"
// claim, then "given_name", then the local part of the email address.
func (c tokenClaims) DisplayName() string {
	if v := strings.TrimSpace(c.str("name")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.str("given_name")); v != "" {
		return v
	}
	email := c.Email()
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}

// SubjectID returns the principal's stable external identifier, preferring
// the directory object ID ("oid"), then the token subject ("sub"), then the
// email address.
func (c tokenClaims) SubjectID() string {
	if v := strings.TrimSpace(c.str("oid")); v != "" {
		return v
	}
	if v := strings.TrimSpace(c.str("sub")); v != "" {
		return v
	}
	return c.Email()
}
