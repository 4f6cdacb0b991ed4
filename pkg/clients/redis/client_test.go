package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	tkerr "github.com/TikettiLabs/tiketti-core/pkg/errors"
)

// ===========================================================================
// Mock Implementation
// ===========================================================================

// mockCmdable implements the Cmdable interface using testify/mock for unit
// testing. Each method delegates to mock.Called() and returns the
// appropriate go-redis command type.
type mockCmdable struct {
	mock.Mock
}

func (m *mockCmdable) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	args := m.Called(ctx, key, value, expiration)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Get(ctx context.Context, key string) *redis.StringCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.StringCmd)
}

func (m *mockCmdable) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) Exists(ctx context.Context, keys ...string) *redis.IntCmd {
	args := m.Called(ctx, keys)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) Expire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd {
	args := m.Called(ctx, key, expiration)
	return args.Get(0).(*redis.BoolCmd)
}

func (m *mockCmdable) TTL(ctx context.Context, key string) *redis.DurationCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.DurationCmd)
}

func (m *mockCmdable) Incr(ctx context.Context, key string) *redis.IntCmd {
	args := m.Called(ctx, key)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) SAdd(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	args := m.Called(ctx, key, members)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) SIsMember(ctx context.Context, key string, member interface{}) *redis.BoolCmd {
	args := m.Called(ctx, key, member)
	return args.Get(0).(*redis.BoolCmd)
}

func (m *mockCmdable) SRem(ctx context.Context, key string, members ...interface{}) *redis.IntCmd {
	args := m.Called(ctx, key, members)
	return args.Get(0).(*redis.IntCmd)
}

func (m *mockCmdable) Ping(ctx context.Context) *redis.StatusCmd {
	args := m.Called(ctx)
	return args.Get(0).(*redis.StatusCmd)
}

func (m *mockCmdable) Close() error {
	args := m.Called()
	return args.Error(0)
}

// ===========================================================================
// Command Result Helpers
// ===========================================================================

// newStatusCmd creates a *redis.StatusCmd with the given value or error.
func newStatusCmd(val string, err error) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newStringCmd creates a *redis.StringCmd with the given value or error.
func newStringCmd(val string, err error) *redis.StringCmd {
	cmd := redis.NewStringCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newIntCmd creates a *redis.IntCmd with the given value or error.
func newIntCmd(val int64, err error) *redis.IntCmd {
	cmd := redis.NewIntCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newBoolCmd creates a *redis.BoolCmd with the given value or error.
func newBoolCmd(val bool, err error) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(context.Background())
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// newDurationCmd creates a *redis.DurationCmd with the given value or error.
func newDurationCmd(val time.Duration, err error) *redis.DurationCmd {
	cmd := redis.NewDurationCmd(context.Background(), time.Second)
	if err != nil {
		cmd.SetErr(err)
	} else {
		cmd.SetVal(val)
	}
	return cmd
}

// ===========================================================================
// NewFromClient Tests
// ===========================================================================

// TestNewFromClient_WithConfig verifies that NewFromClient correctly
// initializes the client with the provided cmdable and config.
func TestNewFromClient_WithConfig(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)

	cfg := &Config{DB: 3}
	client := NewFromClient(m, cfg)

	assert.NotNil(t, client.cmdable)
	assert.Equal(t, cfg, client.config)
	assert.Equal(t, 3, client.dbIndex)
	assert.NotNil(t, client.tracer)
}

// TestNewFromClient_NilConfig verifies that NewFromClient handles a nil
// config gracefully by initializing a zero-value Config.
func TestNewFromClient_NilConfig(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)

	client := NewFromClient(m, nil)

	require.NotNil(t, client.config)
	assert.Equal(t, 0, client.dbIndex)
}

// ===========================================================================
// Set Tests
// ===========================================================================

func TestClient_Set_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Set", mock.Anything, "authz:role:user@tiketti.io", "USER", 30*time.Second).
		Return(newStatusCmd("OK", nil))

	client := NewFromClient(m, &Config{DB: 0})
	err := client.Set(context.Background(), "authz:role:user@tiketti.io", "USER", 30*time.Second)
	require.NoError(t, err)

	m.AssertExpectations(t)
}

func TestClient_Set_Error(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Set", mock.Anything, "key1", "value1", time.Duration(0)).
		Return(newStatusCmd("", errors.New("READONLY You can't write against a read only replica")))

	client := NewFromClient(m, &Config{DB: 0})
	err := client.Set(context.Background(), "key1", "value1", 0)
	require.Error(t, err)

	var tkErr *tkerr.Error
	require.True(t, errors.As(err, &tkErr), "Set() error type = %T, want *tkerr.Error", err)
	assert.Equal(t, tkerr.CodeInternalDatabase, tkErr.Code)

	m.AssertExpectations(t)
}

func TestClient_Set_TimeoutError(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Set", mock.Anything, "key1", "value1", time.Duration(0)).
		Return(newStatusCmd("", context.DeadlineExceeded))

	client := NewFromClient(m, &Config{DB: 0})
	err := client.Set(context.Background(), "key1", "value1", 0)
	require.Error(t, err)

	var tkErr *tkerr.Error
	require.True(t, errors.As(err, &tkErr), "Set() error type = %T, want *tkerr.Error", err)
	assert.Equal(t, tkerr.CodeTimeout, tkErr.Code)

	m.AssertExpectations(t)
}

// ===========================================================================
// Get Tests
// ===========================================================================

func TestClient_Get_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "authz:role:user@tiketti.io").
		Return(newStringCmd("USER", nil))

	client := NewFromClient(m, &Config{DB: 0})
	val, err := client.Get(context.Background(), "authz:role:user@tiketti.io")
	require.NoError(t, err)
	assert.Equal(t, "USER", val)

	m.AssertExpectations(t)
}

// TestClient_Get_MissingKey verifies that a missing key maps to a not-found
// error while still unwrapping to redis.Nil.
func TestClient_Get_MissingKey(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "nonexistent").
		Return(newStringCmd("", redis.Nil))

	client := NewFromClient(m, &Config{DB: 0})
	_, err := client.Get(context.Background(), "nonexistent")
	require.Error(t, err)

	assert.True(t, tkerr.IsNotFound(err))
	assert.True(t, errors.Is(err, redis.Nil), "error must unwrap to redis.Nil")

	m.AssertExpectations(t)
}

func TestClient_Get_ServerError(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Get", mock.Anything, "key1").
		Return(newStringCmd("", errors.New("LOADING Redis is loading the dataset in memory")))

	client := NewFromClient(m, &Config{DB: 0})
	_, err := client.Get(context.Background(), "key1")
	require.Error(t, err)

	var tkErr *tkerr.Error
	require.True(t, errors.As(err, &tkErr))
	assert.Equal(t, tkerr.CodeInternalDatabase, tkErr.Code)

	m.AssertExpectations(t)
}

// ===========================================================================
// Del / Exists / Expire / TTL Tests
// ===========================================================================

func TestClient_Del_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Del", mock.Anything, []string{"key1", "key2"}).
		Return(newIntCmd(2, nil))

	client := NewFromClient(m, &Config{DB: 0})
	deleted, err := client.Del(context.Background(), "key1", "key2")
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	m.AssertExpectations(t)
}

func TestClient_Exists_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Exists", mock.Anything, []string{"key1"}).
		Return(newIntCmd(1, nil))

	client := NewFromClient(m, &Config{DB: 0})
	count, err := client.Exists(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	m.AssertExpectations(t)
}

func TestClient_Expire_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Expire", mock.Anything, "key1", 30*time.Second).
		Return(newBoolCmd(true, nil))

	client := NewFromClient(m, &Config{DB: 0})
	ok, err := client.Expire(context.Background(), "key1", 30*time.Second)
	require.NoError(t, err)
	assert.True(t, ok)

	m.AssertExpectations(t)
}

func TestClient_TTL_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("TTL", mock.Anything, "key1").
		Return(newDurationCmd(25*time.Second, nil))

	client := NewFromClient(m, &Config{DB: 0})
	ttl, err := client.TTL(context.Background(), "key1")
	require.NoError(t, err)
	assert.Equal(t, 25*time.Second, ttl)

	m.AssertExpectations(t)
}

// ===========================================================================
// Incr and Set Operation Tests
// ===========================================================================

func TestClient_Incr_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Incr", mock.Anything, "counter").
		Return(newIntCmd(4, nil))

	client := NewFromClient(m, &Config{DB: 0})
	val, err := client.Incr(context.Background(), "counter")
	require.NoError(t, err)
	assert.Equal(t, int64(4), val)

	m.AssertExpectations(t)
}

func TestClient_SAdd_SIsMember_SRem(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("SAdd", mock.Anything, "bypass", []interface{}{"dev@tiketti.io"}).
		Return(newIntCmd(1, nil))
	m.On("SIsMember", mock.Anything, "bypass", "dev@tiketti.io").
		Return(newBoolCmd(true, nil))
	m.On("SRem", mock.Anything, "bypass", []interface{}{"dev@tiketti.io"}).
		Return(newIntCmd(1, nil))

	client := NewFromClient(m, &Config{DB: 0})
	ctx := context.Background()

	added, err := client.SAdd(ctx, "bypass", "dev@tiketti.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), added)

	isMember, err := client.SIsMember(ctx, "bypass", "dev@tiketti.io")
	require.NoError(t, err)
	assert.True(t, isMember)

	removed, err := client.SRem(ctx, "bypass", "dev@tiketti.io")
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	m.AssertExpectations(t)
}

// ===========================================================================
// Health Tests
// ===========================================================================

func TestClient_Health_Success(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Ping", mock.Anything).Return(newStatusCmd("PONG", nil))

	client := NewFromClient(m, &Config{DB: 0})
	require.NoError(t, client.Health(context.Background()))

	m.AssertExpectations(t)
}

func TestClient_Health_Failure(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Ping", mock.Anything).
		Return(newStatusCmd("", errors.New("connection refused")))

	client := NewFromClient(m, &Config{DB: 0})
	err := client.Health(context.Background())
	require.Error(t, err)

	var tkErr *tkerr.Error
	require.True(t, errors.As(err, &tkErr))
	assert.Equal(t, tkerr.CodeUnavailable, tkErr.Code)
	assert.True(t, tkerr.IsRetryable(err))

	m.AssertExpectations(t)
}

// ===========================================================================
// Close and Client Tests
// ===========================================================================

func TestClient_Close(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)
	m.On("Close").Return(nil)

	client := NewFromClient(m, &Config{DB: 0})
	require.NoError(t, client.Close())

	m.AssertExpectations(t)
}

func TestClient_Client_ExposesCmdable(t *testing.T) {
	t.Parallel()
	m := new(mockCmdable)

	client := NewFromClient(m, &Config{DB: 0})
	assert.Same(t, Cmdable(m), client.Client())
}

// ===========================================================================
// wrapError Tests
// ===========================================================================

func TestWrapError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		wantCode tkerr.Code
	}{
		{"missing key", redis.Nil, tkerr.CodeNotFound},
		{"deadline exceeded", context.DeadlineExceeded, tkerr.CodeTimeout},
		{"server error", errors.New("ERR unknown command"), tkerr.CodeInternalDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := wrapError(tt.err, "redis: test")
			require.NotNil(t, got)
			assert.Equal(t, tt.wantCode, got.Code)
			assert.True(t, errors.Is(got, tt.err))
		})
	}

	t.Run("nil error", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, wrapError(nil, "redis: test"))
	})
}
