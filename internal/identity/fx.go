package identity

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("identity",
	fx.Provide(NewStore),
	fx.Provide(NewResolver),
	fx.Invoke(runResolver),
)

func runResolver(lc fx.Lifecycle, resolver *Resolver, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				defer close(done)
				if err := resolver.Run(ctx); err != nil && ctx.Err() == nil {
					log.Error("identity resolver stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(stopCtx context.Context) error {
			cancel()
			select {
			case <-done:
			case <-stopCtx.Done():
			}
			return nil
		},
	})
}
