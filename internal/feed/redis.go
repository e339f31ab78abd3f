package feed

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisBroker carries the feed over redis pub/sub so multiple service
// instances see the same mutation stream. Reconnection and backoff are
// go-redis's job; this side only guarantees idempotent handle teardown.
type RedisBroker struct {
	sugar       *zap.SugaredLogger
	redisClient *redis.Client
	ctx         context.Context
}

func NewRedisBroker(sugar *zap.SugaredLogger, redisClient *redis.Client) *RedisBroker {
	return &RedisBroker{
		sugar:       sugar,
		redisClient: redisClient,
		ctx:         context.Background(),
	}
}

func (b *RedisBroker) Publish(topic string, event Event) error {
	bytes, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return b.redisClient.Publish(b.ctx, topic, bytes).Err()
}

func (b *RedisBroker) Subscribe(topic string, handler Handler) (*Handle, error) {
	pubsub := b.redisClient.Subscribe(b.ctx, topic)

	// force the subscription to be established before returning the handle
	if _, err := pubsub.Receive(b.ctx); err != nil {
		pubsub.Close()
		return nil, err
	}

	go func() {
		for msg := range pubsub.Channel() {
			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				b.sugar.Errorf("Dropping malformed feed event on topic [%s]: %v", topic, err)
				continue
			}
			handler(event)
		}
	}()

	return newHandle(topic, func() error {
		if err := pubsub.Unsubscribe(b.ctx, topic); err != nil {
			return err
		}
		return pubsub.Close()
	}), nil
}
