package eventbus

import (
	"context"

	"github.com/playpulse/clubsync/internal/config"
	redis "github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("eventbus",
	fx.Provide(NewBus),
	fx.Provide(NewRedisClient),
	fx.Provide(NewRedisBridge),
	fx.Invoke(registerBridge),
)

// NewRedisClient returns nil when redis is not configured; dependents treat a
// nil client as "single instance deployment".
func NewRedisClient(cfg config.Config) *redis.Client {
	if cfg.RedisAddr == "" {
		return nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
}

func registerBridge(lc fx.Lifecycle, bridge *RedisBridge, log *zap.Logger) {
	if bridge == nil {
		log.Info("redis not configured, collection signals stay local")
		return
	}
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error { return bridge.Start(ctx) },
		OnStop:  func(ctx context.Context) error { return bridge.Stop(ctx) },
	})
}
