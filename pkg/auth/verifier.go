package auth

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// principalCache — caches verified principals by token hash
// ---------------------------------------------------------------------------

// principalCacheEntry holds a cached principal with expiration metadata.
type principalCacheEntry struct {
	principal  *Principal
	expiresAt  time.Time
	insertedAt time.Time
}

// principalCache is a mutex-guarded in-memory cache mapping token hashes to
// verified principals. Entries expire at the earlier of the configured TTL
// and the token's own expiry, so a cached entry can never outlive the token
// that produced it.
type principalCache struct {
	mu      sync.Mutex
	entries map[string]principalCacheEntry
	ttl     time.Duration
	maxSize int
}

func newPrincipalCache(ttl time.Duration, maxSize int) *principalCache {
	return &principalCache{
		entries: make(map[string]principalCacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// get returns the cached principal for the token hash, or nil if absent or
// expired.
func (c *principalCache) get(hash string) (*Principal, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[hash]
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		delete(c.entries, hash)
		return nil, false
	}
	return entry.principal, true
}

// set stores a principal under the token hash. tokenExp is the token's own
// expiry; the cache entry expires at min(now+ttl, tokenExp). When the cache
// is full, expired entries are evicted first, then the oldest entry.
func (c *principalCache) set(hash string, principal *Principal, tokenExp time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	expiresAt := now.Add(c.ttl)
	if tokenExp.Before(expiresAt) {
		expiresAt = tokenExp
	}
	if !expiresAt.After(now) {
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}

	c.entries[hash] = principalCacheEntry{
		principal:  principal,
		expiresAt:  expiresAt,
		insertedAt: now,
	}
}

// evictLocked removes expired entries; if nothing expired, it removes the
// oldest entry. Caller must hold the mutex.
func (c *principalCache) evictLocked(now time.Time) {
	removed := false
	for hash, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, hash)
			removed = true
		}
	}
	if removed {
		return
	}

	var oldestHash string
	var oldestTime time.Time
	for hash, entry := range c.entries {
		if oldestHash == "" || entry.insertedAt.Before(oldestTime) {
			oldestHash = hash
			oldestTime = entry.insertedAt
		}
	}
	if oldestHash != "" {
		delete(c.entries, oldestHash)
	}
}

// ---------------------------------------------------------------------------
// Verifier
// ---------------------------------------------------------------------------

// Verifier authenticates bearer tokens and resolves them to principals. It
// supports two verification paths: local tokens signed with a shared HMAC
// secret, and federated tokens verified against remote key sets with a
// two-source fallback. Verified principals are cached by token hash.
//
// Verifier is safe for concurrent use by multiple goroutines.
type Verifier struct {
	config   VerifierConfig
	tracer   trace.Tracer
	cache    *principalCache
	resolver *KeyResolver
	bypass   map[string]struct{}
}

// Compile-time interface check.
var _ TokenVerifier = (*Verifier)(nil)

// NewVerifier creates a Verifier from the given configuration. Returns a
// validation error if the configuration is unusable.
func NewVerifier(cfg VerifierConfig) (*Verifier, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.KeyFetchTimeout}
	}

	return &Verifier{
		config:   cfg,
		tracer:   otel.Tracer(tracerName),
		cache:    newPrincipalCache(cfg.PrincipalCacheTTL, cfg.PrincipalCacheMaxSize),
		resolver: NewKeyResolver(cfg.TenantID, client, cfg.KeyFetchPerMinute),
		bypass:   cfg.normalizedBypassSet(),
	}, nil
}

// Verify authenticates the given raw token and returns the principal it
// asserts. It implements the [TokenVerifier] interface.
//
// The verification path is selected by the token's declared algorithm:
// HS-family tokens are checked against the local shared secret, RS/ES/PS
// tokens against the remote key sets. A token whose email claim is on the
// developer-bypass allowlist skips signature verification on the federated
// path; expiry is always enforced.
func (v *Verifier) Verify(ctx context.Context, tokenStr string) (*Principal, error) {
	ctx, span := startSpan(ctx, v.tracer, "auth.Verify")
	defer span.End()

	if tokenStr == "" {
		err := tkerr.New(tkerr.CodeTokenMalformed, "auth: token must not be empty")
		finishSpan(span, err)
		return nil, err
	}
	if len(tokenStr) > maxTokenSize {
		err := tkerr.New(tkerr.CodeTokenMalformed, "auth: token exceeds maximum size")
		finishSpan(span, err)
		return nil, err
	}

	hash := tokenHash(tokenStr)
	if principal, ok := v.cache.get(hash); ok {
		span.SetAttributes(attribute.Bool("auth.cache_hit", true))
		return principal, nil
	}
	span.SetAttributes(attribute.Bool("auth.cache_hit", false))

	ut, derr := decodeUnverified(tokenStr)
	if derr != nil {
		finishSpan(span, derr)
		return nil, derr
	}

	kind, cerr := classifyToken(ut.alg, ut.claims.Issuer())
	if cerr != nil {
		finishSpan(span, cerr)
		return nil, cerr
	}
	span.SetAttributes(attribute.String("auth.token_kind", kind.String()))

	// The bypass flag reflects allowlist membership on every path, so
	// downstream trust decisions always see it.
	bypassed := v.isBypass(ut.claims.Email())

	var verr *tkerr.Error
	switch kind {
	case KindSymmetric:
		verr = v.verifySymmetric(tokenStr, ut)
	default:
		verr = v.verifyAsymmetric(ctx, tokenStr, ut, kind, bypassed)
	}
	if verr != nil {
		finishSpan(span, verr)
		return nil, verr
	}

	principal, perr := resolvePrincipal(ut.claims, bypassed)
	if perr != nil {
		finishSpan(span, perr)
		return nil, perr
	}
	span.SetAttributes(attribute.String("auth.principal_email", principal.Email))

	if exp, ok := ut.claims.ExpiresAt(); ok {
		v.cache.set(hash, principal, exp)
	}
	return principal, nil
}

// isBypass reports whether the normalized email is on the developer-bypass
// allowlist.
func (v *Verifier) isBypass(email string) bool {
	if email == "" {
		return false
	}
	_, ok := v.bypass[email]
	return ok
}

// ---------------------------------------------------------------------------
// Symmetric path
// ---------------------------------------------------------------------------

// verifySymmetric checks a local token's HMAC signature against the shared
// secret and enforces expiry. Local tokens carry no issuer or audience
// contract.
func (v *Verifier) verifySymmetric(tokenStr string, ut *unverifiedToken) *tkerr.Error {
	secret := v.config.LocalTokenSecret.Value()
	if secret == "" {
		return tkerr.New(tkerr.CodeConfigurationMissing,
			"auth: local token secret is not configured")
	}

	_, err := jwt.Parse(tokenStr,
		func(token *jwt.Token) (any, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{ut.alg}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return classifySignatureError(err)
	}

	return checkExpiry(ut.claims)
}

// ---------------------------------------------------------------------------
// Asymmetric path
// ---------------------------------------------------------------------------

// verifyAsymmetric checks a federated token. The bypass path skips
// signature verification entirely for allowlisted emails; this accepts
// claims from an unverified token on the strength of the allowlist alone,
// a trust decision carried over deliberately for known accounts issued
// under foreign tenants. Expiry is enforced even for bypass tokens.
//
// Non-bypass tokens are checked for issuer, audience, and expiry, then
// verified against an ordered list of key-set sources: the primary source
// first, then exactly one fallback when the primary fails with a signature
// condition. Infrastructure failures (fetch errors, rate limits) stop the
// sequence immediately and propagate as retryable errors.
func (v *Verifier) verifyAsymmetric(ctx context.Context, tokenStr string, ut *unverifiedToken, kind TokenKind, bypassed bool) *tkerr.Error {
	if bypassed {
		return checkExpiry(ut.claims)
	}

	if v.config.TenantID == "" || v.config.ClientID == "" {
		return tkerr.New(tkerr.CodeConfigurationMissing,
			"auth: tenant and client must be configured for federated token verification")
	}

	iss := ut.claims.Issuer()
	if iss != v.config.IssuerV1() && iss != v.config.IssuerV2() {
		return tkerr.Newf(tkerr.CodeTokenIssuer, "auth: unexpected token issuer %q", iss)
	}

	if !ut.claims.HasAudience(v.config.ClientID) {
		return tkerr.New(tkerr.CodeTokenAudience,
			"auth: token audience does not include the configured client")
	}

	if err := checkExpiry(ut.claims); err != nil {
		return err
	}

	var lastErr *tkerr.Error
	for _, source := range keySetSources(kind) {
		err := v.verifyWithSource(ctx, tokenStr, ut, source)
		if err == nil {
			return nil
		}
		// Only a signature condition moves on to the next source;
		// infrastructure failures propagate immediately.
		if !isSignatureCondition(err) {
			return err
		}
		lastErr = err
	}
	if lastErr != nil && !tkerr.HasCode(lastErr, tkerr.CodeTokenSignature) {
		// A kid absent from every source is a signature failure, not a
		// missing resource.
		return tkerr.Wrap(lastErr, tkerr.CodeTokenSignature,
			"auth: no configured key set could vouch for the token")
	}
	if lastErr != nil {
		return lastErr
	}
	return tkerr.New(tkerr.CodeTokenSignature, "auth: token signature verification failed")
}

// keySetSources returns the ordered verification sources for an asymmetric
// token kind. The tenant-local modern endpoint is always primary; the
// fallback depends on the token's issuer family, because the two historical
// signing-key families are not always mirrored between endpoints.
func keySetSources(kind TokenKind) []KeySetSource {
	if kind == KindAsymmetricV1 {
		return []KeySetSource{SourceLocalV2, SourceLocalV1}
	}
	return []KeySetSource{SourceLocalV2, SourceCommonV2}
}

// verifyWithSource resolves the token's key from one source and checks the
// signature. A mismatch with a cached key evicts it and re-fetches exactly
// once before giving up, so a routine key rotation does not reject valid
// tokens.
func (v *Verifier) verifyWithSource(ctx context.Context, tokenStr string, ut *unverifiedToken, source KeySetSource) *tkerr.Error {
	key, err := v.resolver.ResolveKey(ctx, source, ut.kid)
	if err != nil {
		return tkerr.FromError(err)
	}

	if verr := verifySignature(tokenStr, ut.alg, key); verr == nil {
		return nil
	} else if !tkerr.HasCode(verr, tkerr.CodeTokenSignature) {
		return verr
	}

	// Stale-key recovery: evict, re-fetch once, re-verify.
	v.resolver.Invalidate(source, ut.kid)
	key, err = v.resolver.ResolveKey(ctx, source, ut.kid)
	if err != nil {
		return tkerr.FromError(err)
	}
	return verifySignature(tokenStr, ut.alg, key)
}

// verifySignature checks the token signature against a resolved public key,
// pinning the declared algorithm to prevent algorithm-confusion downgrades.
func verifySignature(tokenStr, alg string, key any) *tkerr.Error {
	_, err := jwt.Parse(tokenStr,
		func(token *jwt.Token) (any, error) { return key, nil },
		jwt.WithValidMethods([]string{alg}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return classifySignatureError(err)
	}
	return nil
}

// isSignatureCondition reports whether the error should trigger the
// secondary key-set fallback. Both a signature mismatch and a key ID absent
// from the fetched key set count: either way the source could not vouch for
// the token.
func isSignatureCondition(err *tkerr.Error) bool {
	return tkerr.HasCode(err, tkerr.CodeTokenSignature) || tkerr.HasCode(err, tkerr.CodeNotFound)
}

// ---------------------------------------------------------------------------
// Shared claim checks
// ---------------------------------------------------------------------------

// checkExpiry enforces the expiry claim against wall-clock seconds. A token
// whose exp is strictly in the past is expired; exp equal to now is still
// valid (inclusive boundary). A token without a numeric exp is rejected as
// malformed.
func checkExpiry(claims tokenClaims) *tkerr.Error {
	exp, ok := claims.ExpiresAt()
	if !ok {
		return tkerr.New(tkerr.CodeTokenMalformed, "auth: token has no expiry claim")
	}
	if exp.Unix() < time.Now().Unix() {
		return tkerr.New(tkerr.CodeTokenExpired, "auth: token has expired")
	}
	return nil
}

// classifySignatureError maps a jwt parsing error to the authentication
// taxonomy.
func classifySignatureError(err error) *tkerr.Error {
	switch {
	case errors.Is(err, jwt.ErrTokenMalformed):
		return tkerr.Wrap(err, tkerr.CodeTokenMalformed, "auth: failed to parse token")
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return tkerr.Wrap(err, tkerr.CodeTokenSignature, "auth: token signature verification failed")
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		return tkerr.Wrap(err, tkerr.CodeTokenSignature, "auth: token could not be verified")
	default:
		return tkerr.Wrap(err, tkerr.CodeTokenSignature, "auth: token verification failed")
	}
}

// ---------------------------------------------------------------------------
// Principal resolution
// ---------------------------------------------------------------------------

// resolvePrincipal maps verified claims to a Principal. The email alias
// chain must yield a value; non-bypass principals additionally require a
// display name and subject identifier, which in practice are satisfied by
// the email-based fallbacks.
func resolvePrincipal(claims tokenClaims, bypassed bool) (*Principal, *tkerr.Error) {
	email := claims.Email()
	if email == "" {
		return nil, tkerr.New(tkerr.CodeIdentityMissingEmail,
			"auth: token carries no email claim")
	}

	displayName := claims.DisplayName()
	subjectID := claims.SubjectID()
	if !bypassed && (displayName == "" || subjectID == "") {
		return nil, tkerr.New(tkerr.CodeIdentityIncomplete,
			"auth: token identity is missing a display name or subject")
	}

	return &Principal{
		Email:             email,
		DisplayName:       displayName,
		ExternalSubjectID: subjectID,
		IsDeveloperBypass: bypassed,
	}, nil
}
