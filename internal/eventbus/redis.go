package eventbus

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisChannel = "clubsync.collection.changed"

// RedisBridge fans collection invalidation signals out to watchers running on
// other instances. Without it the bus degrades to local-only delivery.
type RedisBridge struct {
	client *redis.Client
	bus    *Bus
	log    *zap.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisBridge(client *redis.Client, bus *Bus, log *zap.Logger) *RedisBridge {
	if client == nil || bus == nil {
		return nil
	}
	return &RedisBridge{
		client: client,
		bus:    bus,
		log:    log.Named("eventbus.redis"),
	}
}

// Start attaches the bridge to the bus and begins relaying remote signals.
func (b *RedisBridge) Start(ctx context.Context) error {
	if b == nil {
		return nil
	}
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	b.cancel = cancel
	b.done = make(chan struct{})
	b.bus.remote = b

	sub := b.client.Subscribe(ctx, redisChannel)
	go func() {
		defer close(b.done)
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				// Remote signals re-enter locally only; forwarding them
				// again would loop between instances.
				b.bus.publishLocal(msg.Payload, nil)
			}
		}
	}()
	return nil
}

func (b *RedisBridge) Stop(ctx context.Context) error {
	if b == nil || b.cancel == nil {
		return nil
	}
	b.cancel()
	select {
	case <-b.done:
	case <-ctx.Done():
	}
	return nil
}

func (b *RedisBridge) forward(topic string) {
	if err := b.client.Publish(context.Background(), redisChannel, topic).Err(); err != nil {
		b.log.Warn("forward invalidation signal", zap.Error(err))
	}
}
