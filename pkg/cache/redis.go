package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/lms-grades-api/pkg/config"
)

// NewRedis connects to the cache used for course blocks and offline
// gradesets. clientName is reported by CLIENT LIST.
func NewRedis(cfg config.RedisConfig, clientName string) (*redis.Client, error) {
	opts := redisOptions(cfg, clientName)
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return client, nil
}

func redisOptions(cfg config.RedisConfig, clientName string) *redis.Options {
	return &redis.Options{
		Addr:       fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		ClientName: clientName,
		Password:   cfg.Password,
		DB:         cfg.DB,
	}
}
