package cache

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/CodePnut/script-flow-sub001/internal/config"
	apperrors "github.com/CodePnut/script-flow-sub001/pkg/errors"
)

// RedisClient implements Client on top of go-redis. Every call carries a
// bounded timeout and passes through a circuit breaker, so a dead Redis
// degrades to fast Unavailable errors instead of a retry storm against a
// down dependency.
type RedisClient struct {
	rdb     *redis.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewRedisClient connects to Redis using the given settings. The connection
// is lazy; a down Redis at startup is tolerated and handled per call.
func NewRedisClient(cfg config.Redis, logger *zap.Logger) *RedisClient {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "redis-cache",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			// Only trip once there are enough requests to make a decision.
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.6
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("cache circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &RedisClient{
		rdb:     rdb,
		breaker: breaker,
		timeout: cfg.OperationTimeout,
		logger:  logger,
	}
}

// execute runs fn under the per-operation timeout and the circuit breaker,
// translating failures into the Unavailable/Operation taxonomy.
func (c *RedisClient) execute(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	_, err := c.breaker.Execute(func() (any, error) {
		return nil, fn(ctx)
	})
	if err == nil {
		return nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.NewUnavailable("redis circuit breaker open", err)
	}
	if isConnectionError(err) {
		return apperrors.NewUnavailable("redis unreachable", err)
	}
	return apperrors.NewOperation("redis "+op+" failed", err)
}

// isConnectionError reports whether err means the store never answered, as
// opposed to answering with a failure.
func isConnectionError(err error) bool {
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func (c *RedisClient) Get(ctx context.Context, key string) (string, bool, error) {
	var (
		value string
		found bool
	)
	err := c.execute(ctx, "get", func(ctx context.Context) error {
		res, err := c.rdb.Get(ctx, key).Result()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		value, found = res, true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return value, found, nil
}

func (c *RedisClient) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return c.execute(ctx, "set", func(ctx context.Context) error {
		return c.rdb.Set(ctx, key, value, ttl).Err()
	})
}

func (c *RedisClient) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return c.execute(ctx, "del", func(ctx context.Context) error {
		return c.rdb.Del(ctx, keys...).Err()
	})
}

func (c *RedisClient) ScanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	err := c.execute(ctx, "scan", func(ctx context.Context) error {
		iter := c.rdb.Scan(ctx, 0, pattern, 100).Iterator()
		for iter.Next(ctx) {
			keys = append(keys, iter.Val())
		}
		return iter.Err()
	})
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (c *RedisClient) Ping(ctx context.Context) error {
	return c.execute(ctx, "ping", func(ctx context.Context) error {
		return c.rdb.Ping(ctx).Err()
	})
}

func (c *RedisClient) Info(ctx context.Context) (string, error) {
	var info string
	err := c.execute(ctx, "info", func(ctx context.Context) error {
		res, err := c.rdb.Info(ctx, "memory").Result()
		if err != nil {
			return err
		}
		info = res
		return nil
	})
	if err != nil {
		return "", err
	}
	return info, nil
}

// Close releases the underlying connection pool.
func (c *RedisClient) Close() error {
	return c.rdb.Close()
}
