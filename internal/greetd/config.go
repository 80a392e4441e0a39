// Package greetd implements a small greeting service built on the filter
// and dispatch packages. It keeps per-language greetings in a pluggable
// store and serves them over HTTP, with the mutation endpoints guarded by
// bearer tokens.
package greetd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Jon-Davis/http-tools/observability"
)

// Store backend names accepted in the configuration.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

// Config is the greetd service configuration.
type Config struct {
	// Listen is the address the HTTP server binds to.
	Listen string `yaml:"listen"`

	// DefaultGreeting is used when no stored greeting matches.
	DefaultGreeting string `yaml:"default_greeting"`

	Log       observability.LogConfig    `yaml:"log"`
	Tracing   observability.TracerConfig `yaml:"tracing"`
	Metrics   MetricsConfig              `yaml:"metrics"`
	Store     StoreConfig                `yaml:"store"`
	Auth      AuthConfig                 `yaml:"auth"`
	RateLimit RateLimitConfig            `yaml:"rate_limit"`
}

// MetricsConfig configures the metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"`
}

// StoreConfig selects and configures the greeting store backend.
type StoreConfig struct {
	// Backend is either "memory" or "redis".
	Backend string `yaml:"backend"`

	Redis RedisConfig `yaml:"redis"`
}

// RedisConfig configures the Redis greeting store.
type RedisConfig struct {
	Address      string   `yaml:"address"`
	Password     string   `yaml:"password"`
	DB           int      `yaml:"db"`
	KeyPrefix    string   `yaml:"key_prefix"`
	DialTimeout  Duration `yaml:"dial_timeout"`
	ReadTimeout  Duration `yaml:"read_timeout"`
	WriteTimeout Duration `yaml:"write_timeout"`

	Breaker BreakerConfig `yaml:"breaker"`
}

// BreakerConfig configures the circuit breaker guarding the Redis store.
type BreakerConfig struct {
	// Threshold is the number of requests observed before the failure
	// ratio can trip the breaker.
	Threshold int `yaml:"threshold"`

	// Timeout is how long the breaker stays open before probing again.
	Timeout Duration `yaml:"timeout"`
}

// AuthConfig configures bearer token verification for mutation endpoints.
type AuthConfig struct {
	// Secret is the shared HMAC secret tokens must be signed with.
	Secret string `yaml:"secret"`

	// Issuer is the required token issuer.
	Issuer string `yaml:"issuer"`
}

// RateLimitConfig configures rate limiting on the hello endpoint.
type RateLimitConfig struct {
	Enabled   bool `yaml:"enabled"`
	RPS       int  `yaml:"rps"`
	Burst     int  `yaml:"burst"`
	PerClient bool `yaml:"per_client"`
}

// DefaultConfig returns a configuration with defaults filled in. The auth
// secret is deliberately left empty and must be provided.
func DefaultConfig() *Config {
	return &Config{
		Listen:          ":8080",
		DefaultGreeting: "Hello",
		Log:             observability.DefaultLogConfig(),
		Tracing: observability.TracerConfig{
			ServiceName:  "greetd",
			SamplingRate: 1.0,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Listen:  ":9090",
			Path:    "/metrics",
		},
		Store: StoreConfig{
			Backend: BackendMemory,
			Redis: RedisConfig{
				Address:      "localhost:6379",
				KeyPrefix:    "greetd:",
				DialTimeout:  Duration(5 * time.Second),
				ReadTimeout:  Duration(3 * time.Second),
				WriteTimeout: Duration(3 * time.Second),
				Breaker: BreakerConfig{
					Threshold: 5,
					Timeout:   Duration(30 * time.Second),
				},
			},
		},
		Auth: AuthConfig{
			Issuer: "greetd",
		},
		RateLimit: RateLimitConfig{
			Enabled:   true,
			RPS:       10,
			Burst:     20,
			PerClient: true,
		},
	}
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}
	return parseConfig(data)
}

// LoadConfigFromReader loads the configuration from an io.Reader.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return parseConfig(data)
}

// parseConfig substitutes environment variables, parses the YAML, and
// applies defaults for fields left unset.
func parseConfig(data []byte) (*Config, error) {
	content := substituteEnvVars(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// substituteEnvVars replaces ${VAR} and ${VAR:-default} references with
// environment values.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		if value, ok := os.LookupEnv(groups[1]); ok {
			return value
		}
		if len(groups) >= 3 {
			return groups[2]
		}
		return ""
	})
}

// applyDefaults fills zero fields that have sensible defaults.
func (c *Config) applyDefaults() {
	def := DefaultConfig()

	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.DefaultGreeting == "" {
		c.DefaultGreeting = def.DefaultGreeting
	}
	if c.Metrics.Listen == "" {
		c.Metrics.Listen = def.Metrics.Listen
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
	if c.Store.Backend == "" {
		c.Store.Backend = def.Store.Backend
	}
	if c.Store.Redis.Address == "" {
		c.Store.Redis.Address = def.Store.Redis.Address
	}
	if c.Store.Redis.KeyPrefix == "" {
		c.Store.Redis.KeyPrefix = def.Store.Redis.KeyPrefix
	}
	if c.Store.Redis.DialTimeout <= 0 {
		c.Store.Redis.DialTimeout = def.Store.Redis.DialTimeout
	}
	if c.Store.Redis.ReadTimeout <= 0 {
		c.Store.Redis.ReadTimeout = def.Store.Redis.ReadTimeout
	}
	if c.Store.Redis.WriteTimeout <= 0 {
		c.Store.Redis.WriteTimeout = def.Store.Redis.WriteTimeout
	}
	if c.Store.Redis.Breaker.Threshold <= 0 {
		c.Store.Redis.Breaker.Threshold = def.Store.Redis.Breaker.Threshold
	}
	if c.Store.Redis.Breaker.Timeout <= 0 {
		c.Store.Redis.Breaker.Timeout = def.Store.Redis.Breaker.Timeout
	}
	if c.Auth.Issuer == "" {
		c.Auth.Issuer = def.Auth.Issuer
	}
	if c.RateLimit.RPS <= 0 {
		c.RateLimit.RPS = def.RateLimit.RPS
	}
	if c.RateLimit.Burst <= 0 {
		c.RateLimit.Burst = def.RateLimit.Burst
	}
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = def.Tracing.ServiceName
	}
	if c.Tracing.SamplingRate <= 0 {
		c.Tracing.SamplingRate = def.Tracing.SamplingRate
	}
}

// Validate checks the configuration for problems that would prevent the
// service from running.
func (c *Config) Validate() error {
	var errs []error

	if c.Listen == "" {
		errs = append(errs, errors.New("listen address is required"))
	}

	switch c.Store.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Store.Redis.Address == "" {
			errs = append(errs, errors.New("store.redis.address is required for the redis backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	if c.Auth.Secret == "" {
		errs = append(errs, errors.New("auth.secret is required"))
	}

	if c.RateLimit.Enabled && c.RateLimit.Burst < 1 {
		errs = append(errs, errors.New("rate_limit.burst must be at least 1"))
	}

	return errors.Join(errs...)
}
