package auth

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// KeySetSource — identifies a remote key-set endpoint
// ---------------------------------------------------------------------------

// KeySetSource identifies one of the remote key-set endpoints that publish
// federated signing keys. Federated tokens may be signed by either of two
// historical key families that are not always mirrored between endpoints,
// so verification may consult more than one source.
type KeySetSource string

const (
	// SourceLocalV1 is the tenant-local legacy key-set endpoint. Keys here
	// sign tokens carrying the legacy "sts.windows.net" issuer.
	SourceLocalV1 KeySetSource = "local-v1"

	// SourceLocalV2 is the tenant-local modern key-set endpoint. This is
	// the primary source for every asymmetric token.
	SourceLocalV2 KeySetSource = "local-v2"

	// SourceCommonV2 is the tenant-independent modern key-set endpoint,
	// consulted as a fallback for modern-issuer tokens whose key is not
	// mirrored on the tenant-local endpoint.
	SourceCommonV2 KeySetSource = "common-v2"
)

// String returns the string representation of the key-set source.
func (s KeySetSource) String() string {
	return string(s)
}

// Valid reports whether the source is one of the recognized endpoints.
func (s KeySetSource) Valid() bool {
	switch s {
	case SourceLocalV1, SourceLocalV2, SourceCommonV2:
		return true
	default:
		return false
	}
}

// JWKSURL returns the key-set URL for this source, qualified by the tenant
// identifier for the tenant-local endpoints.
func (s KeySetSource) JWKSURL(tenantID string) string {
	switch s {
	case SourceLocalV1:
		return issuerV2Host + "/" + tenantID + "/discovery/keys"
	case SourceLocalV2:
		return issuerV2Host + "/" + tenantID + "/discovery/v2.0/keys"
	case SourceCommonV2:
		return issuerV2Host + "/common/discovery/v2.0/keys"
	default:
		return ""
	}
}

// ---------------------------------------------------------------------------
// KeyResolver — fetches and caches public signing keys
// ---------------------------------------------------------------------------

// keyCacheKey addresses a cached public key by source endpoint and key ID.
type keyCacheKey struct {
	source KeySetSource
	kid    string
}

// KeyResolver fetches public signing keys from remote key-set endpoints and
// caches them in memory, keyed by (source, key ID). Entries are retained
// indefinitely once fetched (key rotation is rare); a caller that observes a
// signature mismatch with a cached key must call [KeyResolver.Invalidate]
// and re-resolve exactly once before giving up.
//
// Fetches are rate-limited per source endpoint. Exceeding the budget yields
// [tkerr.CodeRateLimited], which is a retryable failure, never an identity
// rejection.
//
// KeyResolver is safe for concurrent use by multiple goroutines. A duplicate
// fetch by two racing requests is tolerated: cache insertions are
// commutative and idempotent.
type KeyResolver struct {
	tenantID string
	client   HTTPClient
	tracer   trace.Tracer

	mu   sync.RWMutex
	keys map[keyCacheKey]any // *rsa.PublicKey or *ecdsa.PublicKey

	limMu    sync.Mutex
	limiters map[KeySetSource]*rate.Limiter
	perMin   int
}

// NewKeyResolver creates a KeyResolver for the given tenant. The client is
// used for all key-set fetches; pass an [http.Client] with a short timeout
// so a slow endpoint fails the verification instead of hanging it. If client
// is nil, a default client with a 5-second timeout is used.
//
// fetchPerMinute caps fetches per source endpoint; values below one fall
// back to 5.
func NewKeyResolver(tenantID string, client HTTPClient, fetchPerMinute int) *KeyResolver {
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if fetchPerMinute < 1 {
		fetchPerMinute = 5
	}
	return &KeyResolver{
		tenantID: tenantID,
		client:   client,
		tracer:   otel.Tracer(tracerName),
		keys:     make(map[keyCacheKey]any),
		limiters: make(map[KeySetSource]*rate.Limiter),
		perMin:   fetchPerMinute,
	}
}

// ResolveKey returns the public key with the given key ID from the given
// source, fetching the source's key set if the key is not cached.
//
// Errors:
//   - [tkerr.CodeRateLimited] when the source's fetch budget is exhausted
//   - [tkerr.CodeKeyFetchFailed] when the endpoint is unreachable or
//     returns an unusable response
//   - [tkerr.CodeNotFound] when the fetched key set does not contain the
//     key ID
func (r *KeyResolver) ResolveKey(ctx context.Context, source KeySetSource, kid string) (any, error) {
	ctx, span := startSpan(ctx, r.tracer, "auth.ResolveKey")
	defer span.End()
	span.SetAttributes(
		attribute.String("auth.keyset_source", string(source)),
		attribute.String("auth.key_id", kid),
	)

	if !source.Valid() {
		err := tkerr.Newf(tkerr.CodeKeyFetchFailed, "auth: unknown key-set source %q", source)
		finishSpan(span, err)
		return nil, err
	}

	cacheKey := keyCacheKey{source: source, kid: kid}

	r.mu.RLock()
	key, ok := r.keys[cacheKey]
	r.mu.RUnlock()
	if ok {
		span.SetAttributes(attribute.Bool("auth.cache_hit", true))
		return key, nil
	}
	span.SetAttributes(attribute.Bool("auth.cache_hit", false))

	if !r.limiter(source).Allow() {
		err := tkerr.Newf(tkerr.CodeRateLimited,
			"auth: key fetch budget exhausted for source %q", source)
		finishSpan(span, err)
		return nil, err
	}

	keys, err := r.fetchKeySet(ctx, source.JWKSURL(r.tenantID))
	if err != nil {
		wrapped := tkerr.Wrapf(err, tkerr.CodeKeyFetchFailed,
			"auth: key-set fetch failed for source %q", source)
		finishSpan(span, wrapped)
		return nil, wrapped
	}

	r.mu.Lock()
	for id, k := range keys {
		r.keys[keyCacheKey{source: source, kid: id}] = k
	}
	key, ok = r.keys[cacheKey]
	r.mu.Unlock()

	if !ok {
		err := tkerr.Newf(tkerr.CodeNotFound,
			"auth: key ID %q not found in key set from source %q", kid, source)
		finishSpan(span, err)
		return nil, err
	}
	return key, nil
}

// Invalidate evicts the cached key for (source, kid). Callers use this when
// a verification with a cached key fails with a signature mismatch: the key
// is treated as stale, evicted, and re-fetched exactly once by the next
// [KeyResolver.ResolveKey] call.
func (r *KeyResolver) Invalidate(source KeySetSource, kid string) {
	r.mu.Lock()
	delete(r.keys, keyCacheKey{source: source, kid: kid})
	r.mu.Unlock()
}

// limiter returns the rate limiter for the given source, creating it on
// first use. Each source gets its own budget.
func (r *KeyResolver) limiter(source KeySetSource) *rate.Limiter {
	r.limMu.Lock()
	defer r.limMu.Unlock()

	lim, ok := r.limiters[source]
	if !ok {
		lim = rate.NewLimiter(rate.Every(time.Minute/time.Duration(r.perMin)), r.perMin)
		r.limiters[source] = lim
	}
	return lim
}

// jwksResponse represents the JSON structure of a key-set endpoint response.
type jwksResponse struct {
	Keys []jwkKey `json:"keys"`
}

// jwkKey represents a single key in a key-set response. Only the fields
// needed for RSA and EC key reconstruction are included.
type jwkKey struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	// RSA fields
	N string `json:"n"`
	E string `json:"e"`
	// EC fields
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

// fetchKeySet makes an HTTP GET request to the key-set URL, parses the
// response, and constructs a map of key ID to public key. Supports RSA and
// ECDSA (P-256, P-384, P-521) key types.
//
// The response body is limited to 1 MB to prevent resource exhaustion.
func (r *KeyResolver) fetchKeySet(ctx context.Context, url string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to create key-set request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: key-set request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: key-set endpoint returned status %d", resp.StatusCode)
	}

	// Limit response body to 1 MB.
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("auth: failed to read key-set response: %w", err)
	}

	var jwks jwksResponse
	if err := json.Unmarshal(body, &jwks); err != nil {
		return nil, fmt.Errorf("auth: failed to parse key-set JSON: %w", err)
	}

	keys := make(map[string]any, len(jwks.Keys))
	for _, k := range jwks.Keys {
		if k.Kid == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			pubKey, err := parseRSAPublicKey(k.N, k.E)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		case "EC":
			pubKey, err := parseECPublicKey(k.Crv, k.X, k.Y)
			if err != nil {
				continue // Skip malformed keys.
			}
			keys[k.Kid] = pubKey
		}
	}
	return keys, nil
}

// parseRSAPublicKey constructs an *rsa.PublicKey from base64url-encoded
// modulus (n) and exponent (e) values.
func parseRSAPublicKey(nBase64, eBase64 string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(nBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA modulus: %w", err)
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(eBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode RSA exponent: %w", err)
	}

	n := new(big.Int).SetBytes(nBytes)
	e := new(big.Int).SetBytes(eBytes)

	return &rsa.PublicKey{
		N: n,
		E: int(e.Int64()),
	}, nil
}

// parseECPublicKey constructs an *ecdsa.PublicKey from a curve name and
// base64url-encoded x and y coordinates.
func parseECPublicKey(crv, xBase64, yBase64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	case "P-384":
		curve = elliptic.P384()
	case "P-521":
		curve = elliptic.P521()
	default:
		return nil, fmt.Errorf("auth: unsupported EC curve %q", crv)
	}

	xBytes, err := base64.RawURLEncoding.DecodeString(xBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC x coordinate: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(yBase64)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to decode EC y coordinate: %w", err)
	}

	return &ecdsa.PublicKey{
		Curve: curve,
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}
