package store

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TikettiLabs/tiketti-core/pkg/authz"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
	"github.com/TikettiLabs/tiketti-core/pkg/models"
)

// DefaultUserCacheTTL bounds how stale a cached user record may be. Role
// changes take at most this long to reach authorization decisions.
const DefaultUserCacheTTL = 30 * time.Second

// userCacheKeyPrefix namespaces cached user records in Redis.
const userCacheKeyPrefix = "authz:user:"

// RoleCache is the subset of the Redis client the user cache consumes.
// It is satisfied by [redis.Client] from pkg/clients/redis.
type RoleCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) (int64, error)
}

// CachedUserStore wraps a user store with a Redis read-through cache.
// Every authorized request performs one role lookup, so this is the hot
// path of the authorization evaluator; the cache keeps it off PostgreSQL.
//
// The cache is an optimization, never an authority: a cache failure falls
// through to the backing store, and only positive lookups are cached so an
// account created moments ago is visible immediately.
type CachedUserStore struct {
	inner  authz.UserStore
	cache  RoleCache
	ttl    time.Duration
	tracer trace.Tracer
}

// NewCachedUserStore wraps inner with a read-through cache. A zero or
// negative ttl falls back to [DefaultUserCacheTTL].
func NewCachedUserStore(inner authz.UserStore, cache RoleCache, ttl time.Duration) *CachedUserStore {
	if ttl <= 0 {
		ttl = DefaultUserCacheTTL
	}
	return &CachedUserStore{
		inner:  inner,
		cache:  cache,
		ttl:    ttl,
		tracer: otel.Tracer(tracerName),
	}
}

// UserByEmail returns the user with the given email, serving from the
// cache when a fresh entry exists and reading through to the backing store
// otherwise.
func (s *CachedUserStore) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	ctx, span := s.tracer.Start(ctx, "store.CachedUserByEmail")
	defer span.End()

	email = strings.ToLower(strings.TrimSpace(email))
	key := userCacheKeyPrefix + email

	if cached, err := s.cache.Get(ctx, key); err == nil {
		var user models.User
		if err := json.Unmarshal([]byte(cached), &user); err == nil {
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return &user, nil
		}
		// A corrupt entry is treated as a miss and overwritten below.
	} else if !tkerr.IsNotFound(err) {
		span.RecordError(err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	user, err := s.inner.UserByEmail(ctx, email)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(user); err == nil {
		if err := s.cache.Set(ctx, key, string(data), s.ttl); err != nil {
			span.RecordError(err)
		}
	}
	return user, nil
}

// Invalidate removes the cached entry for the given email. Call it after
// a role change so the new role takes effect before the TTL expires.
func (s *CachedUserStore) Invalidate(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	_, err := s.cache.Del(ctx, userCacheKeyPrefix+email)
	return err
}
