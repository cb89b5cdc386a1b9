package ratelimit

import (
	"context"
	"time"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/scribehq/scribe/internal/config"
)

var Module = fx.Module("rate.limit",
	fx.Provide(
		NewRedisClient,
		NewLocker,
		fx.Annotate(
			provideLockTTL,
			fx.ResultTags(`name:"generation_lock_ttl"`),
		),
		NewGenerationGuard,
	),
)

// NewRedisClient returns nil when redis is not configured; the guard then
// runs on the in-process mutex alone.
func NewRedisClient(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *redis.Client {
	if !cfg.Redis.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := client.Ping(ctx).Err(); err != nil {
				log.Warn("redis unreachable at startup", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
			}
			return nil
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	return client
}

func provideLockTTL(cfg config.Config) time.Duration {
	return time.Duration(cfg.Redis.LockTTL) * time.Second
}
