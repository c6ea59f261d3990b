package config

import (
	"context"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// InitRedis accepts a bare host:port or a redis:// / rediss:// URL.
func InitRedis(ctx context.Context, addr string) (*redis.Client, error) {
	var rdb *redis.Client
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		opt, err := redis.ParseURL(addr)
		if err != nil {
			return nil, err
		}
		rdb = redis.NewClient(opt)
	} else {
		rdb = redis.NewClient(&redis.Options{Addr: addr})
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, err
	}
	return rdb, nil
}
