package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/phishguard/config"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// GetRedis returns a singleton Redis client, or nil when Redis is not configured.
func GetRedis() *redis.Client {
	redisOnce.Do(func() {
		rc := config.Get().Redis
		if rc.Host == "" {
			return
		}
		redisClient = redis.NewClient(&redis.Options{
			Addr:         net.JoinHostPort(rc.Host, strconv.Itoa(rc.Port)),
			Password:     rc.Password,
			DB:           rc.DB,
			DialTimeout:  3 * time.Second,
			ReadTimeout:  2 * time.Second,
			WriteTimeout: 2 * time.Second,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			Sugar.Warnf("redis ping failed, continuing with degraded cache: %v", err)
		}
	})
	return redisClient
}

// PingRedis reports Redis health for /health. A disabled Redis counts as healthy.
func PingRedis(ctx context.Context) error {
	rc := GetRedis()
	if rc == nil {
		return nil
	}
	return rc.Ping(ctx).Err()
}
