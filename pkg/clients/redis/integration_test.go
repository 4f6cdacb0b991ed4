//go:build integration

package redis_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/suite"

	"github.com/TikettiLabs/tiketti-core/internal/testutil/containers"
	"github.com/TikettiLabs/tiketti-core/pkg/clients/redis"
	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// RedisIntegrationSuite runs all Redis integration tests against a single
// shared container. Each test uses distinct keys so tests do not interfere
// with each other.
type RedisIntegrationSuite struct {
	suite.Suite

	ctx         context.Context
	redisResult *containers.RedisResult
	client      *redis.Client
}

// SetupSuite starts a single Redis container shared by all tests in the
// suite.
func (s *RedisIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()

	result, err := containers.StartRedis(s.ctx)
	s.Require().NoError(err, "failed to start redis container")
	s.redisResult = result

	cfg := redis.Config{
		URI:      result.ConnString,
		PoolSize: 10,
	}
	client, err := redis.NewClient(s.ctx, cfg)
	s.Require().NoError(err, "failed to create redis client")
	s.client = client
}

// TearDownSuite closes the client and terminates the container.
func (s *RedisIntegrationSuite) TearDownSuite() {
	if s.client != nil {
		_ = s.client.Close()
	}
	if s.redisResult != nil {
		_ = s.redisResult.Container.Terminate(s.ctx)
	}
}

func (s *RedisIntegrationSuite) TestHealth() {
	err := s.client.Health(s.ctx)
	s.NoError(err)
}

func (s *RedisIntegrationSuite) TestSetGet_RoundTrip() {
	err := s.client.Set(s.ctx, "authz:role:user@tiketti.io", "USER", time.Minute)
	s.Require().NoError(err)

	got, err := s.client.Get(s.ctx, "authz:role:user@tiketti.io")
	s.Require().NoError(err)
	s.Equal("USER", got)
}

func (s *RedisIntegrationSuite) TestGet_MissingKey() {
	_, err := s.client.Get(s.ctx, "authz:role:nobody@tiketti.io")
	s.Require().Error(err)
	s.True(tkerr.IsNotFound(err))
	s.ErrorIs(err, goredis.Nil)
}

func (s *RedisIntegrationSuite) TestDel_RemovesKey() {
	err := s.client.Set(s.ctx, "del-test", "value", time.Minute)
	s.Require().NoError(err)

	removed, err := s.client.Del(s.ctx, "del-test")
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	_, err = s.client.Get(s.ctx, "del-test")
	s.True(tkerr.IsNotFound(err))
}

func (s *RedisIntegrationSuite) TestExists() {
	err := s.client.Set(s.ctx, "exists-test", "value", time.Minute)
	s.Require().NoError(err)

	n, err := s.client.Exists(s.ctx, "exists-test")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.client.Exists(s.ctx, "exists-missing")
	s.Require().NoError(err)
	s.Equal(int64(0), n)
}

func (s *RedisIntegrationSuite) TestExpire_And_TTL() {
	err := s.client.Set(s.ctx, "ttl-test", "value", 0)
	s.Require().NoError(err)

	ok, err := s.client.Expire(s.ctx, "ttl-test", time.Hour)
	s.Require().NoError(err)
	s.True(ok)

	ttl, err := s.client.TTL(s.ctx, "ttl-test")
	s.Require().NoError(err)
	s.Greater(ttl, 59*time.Minute)
	s.LessOrEqual(ttl, time.Hour)
}

func (s *RedisIntegrationSuite) TestKeyExpiry() {
	err := s.client.Set(s.ctx, "expiry-test", "value", 100*time.Millisecond)
	s.Require().NoError(err)

	got, err := s.client.Get(s.ctx, "expiry-test")
	s.Require().NoError(err)
	s.Equal("value", got)

	time.Sleep(200 * time.Millisecond)

	_, err = s.client.Get(s.ctx, "expiry-test")
	s.True(tkerr.IsNotFound(err))
}

func (s *RedisIntegrationSuite) TestIncr() {
	n, err := s.client.Incr(s.ctx, "counter-test")
	s.Require().NoError(err)
	s.Equal(int64(1), n)

	n, err = s.client.Incr(s.ctx, "counter-test")
	s.Require().NoError(err)
	s.Equal(int64(2), n)
}

func (s *RedisIntegrationSuite) TestSetMembership() {
	added, err := s.client.SAdd(s.ctx, "bypass-test", "dev@tiketti.io")
	s.Require().NoError(err)
	s.Equal(int64(1), added)

	isMember, err := s.client.SIsMember(s.ctx, "bypass-test", "dev@tiketti.io")
	s.Require().NoError(err)
	s.True(isMember)

	isMember, err = s.client.SIsMember(s.ctx, "bypass-test", "other@tiketti.io")
	s.Require().NoError(err)
	s.False(isMember)

	removed, err := s.client.SRem(s.ctx, "bypass-test", "dev@tiketti.io")
	s.Require().NoError(err)
	s.Equal(int64(1), removed)

	isMember, err = s.client.SIsMember(s.ctx, "bypass-test", "dev@tiketti.io")
	s.Require().NoError(err)
	s.False(isMember)
}

func TestRedisIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisIntegrationSuite))
}
