package greetd

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"

	"github.com/Jon-Davis/http-tools/observability"
)

// RedisStore keeps greetings in Redis. All operations go through a
// circuit breaker so a dead Redis fails fast instead of stalling every
// request on timeouts.
type RedisStore struct {
	client  *redis.Client
	breaker *gobreaker.CircuitBreaker
	prefix  string
	logger  observability.Logger
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithRedisLogger sets the store's logger.
func WithRedisLogger(logger observability.Logger) RedisStoreOption {
	return func(s *RedisStore) {
		s.logger = logger
	}
}

// NewRedisStore connects to Redis and verifies the connection.
func NewRedisStore(ctx context.Context, cfg RedisConfig, opts ...RedisStoreOption) (*RedisStore, error) {
	s := &RedisStore{
		client: redis.NewClient(&redis.Options{
			Addr:         cfg.Address,
			Password:     cfg.Password,
			DB:           cfg.DB,
			DialTimeout:  cfg.DialTimeout.Duration(),
			ReadTimeout:  cfg.ReadTimeout.Duration(),
			WriteTimeout: cfg.WriteTimeout.Duration(),
		}),
		prefix: cfg.KeyPrefix,
		logger: observability.NopLogger(),
	}

	for _, opt := range opts {
		opt(s)
	}

	s.breaker = gobreaker.NewCircuitBreaker(breakerSettings(cfg.Breaker, s.logger))

	pingCtx, cancel := context.WithTimeout(ctx, cfg.DialTimeout.Duration())
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		_ = s.client.Close()
		return nil, fmt.Errorf("connect to redis at %s: %w", cfg.Address, err)
	}

	return s, nil
}

// breakerSettings builds the gobreaker settings for the store. A missing
// greeting is a normal answer and must not count as a Redis failure.
func breakerSettings(cfg BreakerConfig, logger observability.Logger) gobreaker.Settings {
	threshold := uint32(5)
	if cfg.Threshold > 0 {
		threshold = uint32(cfg.Threshold)
	}

	return gobreaker.Settings{
		Name:        "greetd-redis",
		MaxRequests: threshold,
		Interval:    cfg.Timeout.Duration(),
		Timeout:     cfg.Timeout.Duration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= threshold && failureRatio >= 0.5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("redis breaker state change",
				observability.String("name", name),
				observability.String("from", from.String()),
				observability.String("to", to.String()),
			)
		},
	}
}

// key prefixes the language tag.
func (s *RedisStore) key(lang string) string {
	return s.prefix + lang
}

// Get returns the greeting for the language, or ErrNotFound.
func (s *RedisStore) Get(ctx context.Context, lang string) (string, error) {
	result, err := s.breaker.Execute(func() (interface{}, error) {
		val, err := s.client.Get(ctx, s.key(lang)).Result()
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return val, err
	})
	if err != nil {
		return "", err
	}
	greeting, _ := result.(string)
	return greeting, nil
}

// Set stores the greeting for the language.
func (s *RedisStore) Set(ctx context.Context, lang, greeting string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Set(ctx, s.key(lang), greeting, 0).Err()
	})
	return err
}

// Delete removes the greeting for the language.
func (s *RedisStore) Delete(ctx context.Context, lang string) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Del(ctx, s.key(lang)).Err()
	})
	return err
}

// Ping reports whether Redis is reachable.
func (s *RedisStore) Ping(ctx context.Context) error {
	_, err := s.breaker.Execute(func() (interface{}, error) {
		return nil, s.client.Ping(ctx).Err()
	})
	return err
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// State returns the breaker state, for health reporting.
func (s *RedisStore) State() gobreaker.State {
	return s.breaker.State()
}
