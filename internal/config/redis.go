package config

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// NewRedisClient connects to Redis for the response cache and the rate
// limiter. It returns nil when Redis is unreachable; both middlewares
// treat a nil client as "disabled" so the service degrades to uncached,
// unlimited operation instead of refusing to start.
func NewRedisClient() *redis.Client {
	addr := envStr("REDIS_ADDR", "localhost:6379")
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: envStr("REDIS_PASSWORD", ""),
		DB:       envInt("REDIS_DB", 0),
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.WithError(err).Warnf("redis: ping %s failed, cache and rate limiting disabled", addr)
		return nil
	}
	return client
}
