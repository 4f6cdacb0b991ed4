package auth

import (
	"net/http"
	"strings"
	"time"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// HTTPClient abstracts the HTTP client used for fetching key sets. This
// allows callers to provide custom HTTP clients with specific timeouts,
// transport settings, or middleware (e.g., for proxy configuration or
// request tracing).
//
// The standard [http.Client] satisfies this interface.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// issuerV1Prefix is the issuer prefix used by legacy (v1) federated tokens.
// A v1 issuer has the form "https://sts.windows.net/{tenant}/".
const issuerV1Prefix = "https://sts.windows.net/"

// issuerV2Host is the host serving modern (v2) federated issuers and all
// key-set endpoints. A v2 issuer has the form
// "https://login.microsoftonline.com/{tenant}/v2.0".
const issuerV2Host = "https://login.microsoftonline.com"

// VerifierConfig holds the configuration for [Verifier]. It covers both
// verification paths: symmetric local tokens signed with a shared secret,
// and asymmetric federated tokens verified against remote key sets.
//
// A configuration is usable when at least one path is configured. The
// symmetric path needs LocalTokenSecret; the asymmetric path needs TenantID
// and ClientID. A token arriving for an unconfigured path fails with
// [tkerr.CodeConfigurationMissing].
type VerifierConfig struct {
	// TenantID is the identity tenant the platform trusts. It qualifies
	// both expected issuer strings and the tenant-local key-set endpoints.
	// Required for asymmetric verification.
	TenantID string `json:"tenant_id" env:"AUTH_TENANT_ID" yaml:"tenant_id"`

	// ClientID is the application (client) identifier. Federated tokens
	// must carry it in their "aud" claim. Required for asymmetric
	// verification.
	ClientID string `json:"client_id" env:"AUTH_CLIENT_ID" yaml:"client_id"`

	// LocalTokenSecret is the shared HMAC secret used to verify local
	// (HS-signed) tokens. Must be at least 32 bytes when set. The Secret
	// type prevents accidental logging of the value.
	LocalTokenSecret Secret `json:"-" env:"AUTH_LOCAL_TOKEN_SECRET" yaml:"-"`

	// BypassEmails is the developer-bypass allowlist. A federated token
	// whose email claim (lowercase-normalized) appears here is accepted
	// without signature verification; expiry is still enforced. Entries
	// are normalized by [VerifierConfig.normalizedBypassSet].
	BypassEmails []string `json:"bypass_emails,omitempty" env:"AUTH_BYPASS_EMAILS" yaml:"bypass_emails"`

	// KeyFetchTimeout bounds a single key-set fetch. A fetch that exceeds
	// it fails with [tkerr.CodeKeyFetchFailed] rather than hanging the
	// verification. Defaults to 5 seconds.
	KeyFetchTimeout time.Duration `json:"key_fetch_timeout" env:"AUTH_KEY_FETCH_TIMEOUT" envDefault:"5s" yaml:"key_fetch_timeout"`

	// KeyFetchPerMinute caps key-set fetches per source endpoint. Exceeding
	// it yields [tkerr.CodeRateLimited], which callers must treat as
	// retryable, never as an identity rejection. Defaults to 5.
	KeyFetchPerMinute int `json:"key_fetch_per_minute" env:"AUTH_KEY_FETCH_PER_MINUTE" envDefault:"5" yaml:"key_fetch_per_minute"`

	// PrincipalCacheTTL is the maximum time a verified principal is cached
	// before re-verification is required. The actual cache TTL for a token
	// is the minimum of this value and the token's remaining lifetime
	// (exp - now). Must be non-negative. Defaults to 5 minutes.
	PrincipalCacheTTL time.Duration `json:"principal_cache_ttl" env:"AUTH_PRINCIPAL_CACHE_TTL" envDefault:"5m" yaml:"principal_cache_ttl"`

	// PrincipalCacheMaxSize is the maximum number of entries in the
	// principal cache. When the cache is full, expired entries are evicted
	// first, then the oldest entries are removed. Must be greater than
	// zero. Defaults to 10000.
	PrincipalCacheMaxSize int `json:"principal_cache_max_size" env:"AUTH_PRINCIPAL_CACHE_MAX_SIZE" envDefault:"10000" yaml:"principal_cache_max_size"`

	// HTTPClient is the HTTP client used for fetching key sets. If nil, a
	// default [http.Client] with KeyFetchTimeout is used.
	HTTPClient HTTPClient `json:"-" yaml:"-"`
}

// DefaultVerifierConfig returns a VerifierConfig with sensible defaults.
// Tenant, client, secret, and allowlist values must still be supplied by
// the deployment environment.
func DefaultVerifierConfig() VerifierConfig {
	return VerifierConfig{
		KeyFetchTimeout:       5 * time.Second,
		KeyFetchPerMinute:     5,
		PrincipalCacheTTL:     5 * time.Minute,
		PrincipalCacheMaxSize: 10000,
	}
}

// Validate checks the configuration for logical correctness and returns a
// *[tkerr.Error] with code [tkerr.CodeValidation] if any field is invalid.
//
// Validation rules:
//   - At least one verification path must be configured: LocalTokenSecret,
//     or TenantID together with ClientID
//   - LocalTokenSecret, when set, must be at least 32 bytes
//   - TenantID and ClientID must be set together
//   - KeyFetchTimeout and PrincipalCacheTTL must be non-negative
//   - KeyFetchPerMinute and PrincipalCacheMaxSize must be greater than zero
func (c *VerifierConfig) Validate() *tkerr.Error {
	symmetric := c.LocalTokenSecret.Value() != ""
	asymmetric := c.TenantID != "" || c.ClientID != ""

	if !symmetric && !asymmetric {
		return tkerr.New(tkerr.CodeValidation,
			"auth: at least one verification path must be configured (local secret or tenant/client)")
	}

	if symmetric && len(c.LocalTokenSecret.Value()) < 32 {
		return tkerr.New(tkerr.CodeValidation, "auth: local token secret must be at least 32 bytes")
	}

	if asymmetric && (c.TenantID == "" || c.ClientID == "") {
		return tkerr.New(tkerr.CodeValidation,
			"auth: tenant ID and client ID must be configured together")
	}

	if c.KeyFetchTimeout < 0 {
		return tkerr.New(tkerr.CodeValidation, "auth: key fetch timeout must be non-negative")
	}

	if c.KeyFetchPerMinute <= 0 {
		return tkerr.New(tkerr.CodeValidation, "auth: key fetch rate must be greater than zero")
	}

	if c.PrincipalCacheTTL < 0 {
		return tkerr.New(tkerr.CodeValidation, "auth: principal cache TTL must be non-negative")
	}

	if c.PrincipalCacheMaxSize <= 0 {
		return tkerr.New(tkerr.CodeValidation, "auth: principal cache max size must be greater than zero")
	}

	return nil
}

// IssuerV1 returns the expected legacy-format issuer string for the
// configured tenant: "https://sts.windows.net/{tenant}/".
func (c *VerifierConfig) IssuerV1() string {
	return issuerV1Prefix + c.TenantID + "/"
}

// IssuerV2 returns the expected modern-format issuer string for the
// configured tenant: "https://login.microsoftonline.com/{tenant}/v2.0".
func (c *VerifierConfig) IssuerV2() string {
	return issuerV2Host + "/" + c.TenantID + "/v2.0"
}

// normalizedBypassSet returns the bypass allowlist as a set of trimmed,
// lowercase email addresses for O(1) membership checks.
func (c *VerifierConfig) normalizedBypassSet() map[string]struct{} {
	set := make(map[string]struct{}, len(c.BypassEmails))
	for _, e := range c.BypassEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" {
			continue
		}
		set[e] = struct{}{}
	}
	return set
}
