package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

const redisChannelPrefix = "chat:node:"

// RedisNotifier fans change signals out to every process subscribed to the
// same Redis instance.
type RedisNotifier struct {
	client *redis.Client
	logger zerolog.Logger
}

func NewRedisNotifier(client *redis.Client, logger zerolog.Logger) *RedisNotifier {
	return &RedisNotifier{
		client: client,
		logger: logger.With().Str("component", "redis_notifier").Logger(),
	}
}

func RedisChannel(root string) string {
	return redisChannelPrefix + root
}

func (n *RedisNotifier) Publish(ctx context.Context, root string) error {
	if err := n.client.Publish(ctx, RedisChannel(root), root).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", RedisChannel(root), err)
	}
	return nil
}

func (n *RedisNotifier) Listen(ctx context.Context, root string) (<-chan struct{}, func(), error) {
	channel := RedisChannel(root)
	pubsub := n.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}

	out := make(chan struct{}, 1)
	done := make(chan struct{})
	go func() {
		defer close(out)
		msgs := pubsub.Channel()
		for {
			select {
			case <-done:
				return
			case _, ok := <-msgs:
				if !ok {
					return
				}
				signal(out)
			}
		}
	}()

	var once sync.Once
	stop := func() {
		once.Do(func() {
			close(done)
			if err := pubsub.Close(); err != nil {
				n.logger.Debug().Err(err).Str("channel", channel).Msg("close pubsub")
			}
		})
	}
	return out, stop, nil
}
