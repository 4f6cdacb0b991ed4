package redis

import (
	"fmt"
	"net/url"
	"time"
)

// maxStatementTruncateLen is the maximum length of a Redis command recorded
// on a trace span. Longer statements are truncated so key material and PII
// do not leak into the telemetry backend.
const maxStatementTruncateLen = 100

// Default connection pool and timeout settings for the Tiketti Kubernetes
// deployment, where Redis runs behind a cluster Service.
const (
	// DefaultHost is the in-cluster Service DNS name of the Tiketti Redis
	// instance.
	DefaultHost = "redis.tiketti.svc.cluster.local"

	// DefaultPort is the standard Redis port.
	DefaultPort = 6379

	// DefaultDB is the default Redis database index.
	DefaultDB = 0

	// DefaultPoolSize is the maximum number of pooled connections.
	DefaultPoolSize = 25

	// DefaultMinIdleConns is the number of idle connections kept warm so
	// burst traffic does not pay connection establishment latency.
	DefaultMinIdleConns = 5

	// DefaultMaxRetries is the number of retries before giving up on a
	// command, covering transient network failures.
	DefaultMaxRetries = 3

	// DefaultDialTimeout is the maximum time to wait when establishing a
	// new connection.
	DefaultDialTimeout = 10 * time.Second

	// DefaultReadTimeout is the maximum time to wait for a read response.
	DefaultReadTimeout = 5 * time.Second

	// DefaultWriteTimeout is the maximum time to wait for a write to
	// complete.
	DefaultWriteTimeout = 5 * time.Second

	// DefaultHealthTimeout is applied to [Client.Health] when the caller's
	// context has no deadline.
	DefaultHealthTimeout = 5 * time.Second
)

// Secret is a string type that prevents accidental logging of the Redis
// password. Its [Secret.String] and [Secret.GoString] methods return a
// redacted placeholder; use [Secret.Value] to retrieve the actual value.
type Secret string

// redacted is the placeholder returned by Secret's string methods.
const redacted = "[REDACTED]"

// String returns "[REDACTED]" to prevent accidental logging of the secret.
func (s Secret) String() string {
	return redacted
}

// GoString returns "[REDACTED]" for fmt.Sprintf("%#v", secret) safety.
func (s Secret) GoString() string {
	return redacted
}

// Value returns the actual secret string. Avoid logging or serializing the
// returned value.
func (s Secret) Value() string {
	return string(s)
}

// MarshalText implements encoding.TextMarshaler, returning "[REDACTED]" so
// the secret never appears in JSON or YAML output.
func (s Secret) MarshalText() ([]byte, error) {
	return []byte(redacted), nil
}

// Config holds the Redis connection configuration. It supports both
// URI-based and structured configuration. When [Config.URI] is set, it
// takes precedence over the individual Host, Port, DB, and Password fields.
//
// In the Tiketti Kubernetes deployment the values are injected as
// environment variables; the env struct tags document the expected
// variable name for each field.
type Config struct {
	// URI is a Redis connection string (e.g.,
	// "redis://:password@host:6379/0"). When set, the structured fields
	// are ignored. Supports both "redis://" and "rediss://" (TLS) schemes.
	URI string `json:"uri,omitempty" env:"REDIS_URI" yaml:"uri"`

	// Host is the Redis server hostname or IP address.
	Host string `json:"host,omitempty" env:"REDIS_HOST" yaml:"host"`

	// Port is the Redis server port.
	Port int `json:"port,omitempty" env:"REDIS_PORT" yaml:"port"`

	// DB is the Redis database index (0-15 by default).
	DB int `json:"db" env:"REDIS_DB" yaml:"db"`

	// Password is the Redis password. The [Secret] type keeps it out of
	// logs and serialized output.
	Password Secret `json:"-" env:"REDIS_PASSWORD" yaml:"-"`

	// PoolSize is the maximum number of connections in the pool.
	PoolSize int `json:"pool_size,omitempty" env:"REDIS_POOL_SIZE" yaml:"pool_size"`

	// MinIdleConns is the minimum number of idle connections kept in the
	// pool.
	MinIdleConns int `json:"min_idle_conns,omitempty" env:"REDIS_MIN_IDLE_CONNS" yaml:"min_idle_conns"`

	// MaxRetries is the maximum number of retries before giving up on a
	// command. Set to -1 to disable retries.
	MaxRetries int `json:"max_retries,omitempty" env:"REDIS_MAX_RETRIES" yaml:"max_retries"`

	// DialTimeout is the maximum time to wait when establishing a new
	// connection.
	DialTimeout time.Duration `json:"dial_timeout,omitempty" env:"REDIS_DIAL_TIMEOUT" yaml:"dial_timeout"`

	// ReadTimeout is the maximum time to wait for a read response.
	ReadTimeout time.Duration `json:"read_timeout,omitempty" env:"REDIS_READ_TIMEOUT" yaml:"read_timeout"`

	// WriteTimeout is the maximum time to wait for a write to complete.
	WriteTimeout time.Duration `json:"write_timeout,omitempty" env:"REDIS_WRITE_TIMEOUT" yaml:"write_timeout"`

	// TLSEnabled indicates whether to use TLS for the connection. When
	// URI uses the "rediss://" scheme, TLS is enabled automatically.
	TLSEnabled bool `json:"tls_enabled,omitempty" env:"REDIS_TLS_ENABLED" yaml:"tls_enabled"`
}

// DefaultConfig returns a Config with values suitable for the Tiketti
// Kubernetes deployment. Callers should override fields as needed before
// passing the config to [NewClient].
func DefaultConfig() *Config {
	return &Config{
		Host:         DefaultHost,
		Port:         DefaultPort,
		DB:           DefaultDB,
		PoolSize:     DefaultPoolSize,
		MinIdleConns: DefaultMinIdleConns,
		MaxRetries:   DefaultMaxRetries,
		DialTimeout:  DefaultDialTimeout,
		ReadTimeout:  DefaultReadTimeout,
		WriteTimeout: DefaultWriteTimeout,
	}
}

// Validate checks the configuration for invalid values and applies defaults
// for zero-valued fields. Returns the first validation error encountered,
// or nil if the configuration is valid.
//
// When [Config.URI] is set, the structured fields are not validated because
// the URI takes precedence. Pool and timeout defaults are always applied
// when zero.
func (c *Config) Validate() error {
	c.applyDefaults()

	if c.URI != "" {
		u, err := url.Parse(c.URI)
		if err != nil {
			return fmt.Errorf("redis: config URI is invalid: %w", err)
		}
		if u.Scheme != "redis" && u.Scheme != "rediss" {
			return fmt.Errorf("redis: config URI scheme must be redis:// or rediss://, got %q", u.Scheme)
		}
		return nil
	}

	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("redis: config port must be between 1 and 65535, got %d", c.Port)
	}
	if c.PoolSize < 1 {
		return fmt.Errorf("redis: config pool_size must be >= 1, got %d", c.PoolSize)
	}
	if c.MinIdleConns < 0 {
		return fmt.Errorf("redis: config min_idle_conns must be >= 0, got %d", c.MinIdleConns)
	}
	if c.PoolSize < c.MinIdleConns {
		return fmt.Errorf("redis: config pool_size (%d) must be >= min_idle_conns (%d)", c.PoolSize, c.MinIdleConns)
	}
	if c.DialTimeout < 0 {
		return fmt.Errorf("redis: config dial_timeout must not be negative, got %v", c.DialTimeout)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("redis: config read_timeout must not be negative, got %v", c.ReadTimeout)
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("redis: config write_timeout must not be negative, got %v", c.WriteTimeout)
	}
	return nil
}

// applyDefaults sets default values for zero-valued pool and timeout fields.
func (c *Config) applyDefaults() {
	if c.PoolSize == 0 {
		c.PoolSize = DefaultPoolSize
	}
	if c.MinIdleConns == 0 {
		c.MinIdleConns = DefaultMinIdleConns
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = DefaultMaxRetries
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = DefaultDialTimeout
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = DefaultReadTimeout
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = DefaultWriteTimeout
	}
}

// truncateStatement truncates a Redis command to [maxStatementTruncateLen]
// runes for safe inclusion in trace spans. Truncation is rune-aware so
// multi-byte UTF-8 characters are never split.
func truncateStatement(s string) string {
	runes := []rune(s)
	if len(runes) <= maxStatementTruncateLen {
		return s
	}
	return string(runes[:maxStatementTruncateLen]) + "..."
}
