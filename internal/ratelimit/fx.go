package ratelimit

import (
	"context"

	"github.com/rankforge/rankforge/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func provideLimiter(lc fx.Lifecycle, cfg config.Config, log *zap.Logger) *Limiter {
	if !cfg.Rate.Enabled || cfg.Rate.RedisAddr == "" {
		log.Info("rate limiting disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Rate.RedisAddr,
		Password: cfg.Rate.RedisPassword,
		DB:       cfg.Rate.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return NewLimiter(NewTokenBucket(client), log, cfg.Rate.ToolRate, cfg.Rate.ToolBurst)
}

var Module = fx.Module("ratelimit",
	fx.Provide(provideLimiter),
)
