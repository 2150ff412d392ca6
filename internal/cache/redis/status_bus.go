package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/dexiq/dexiq/internal/domain"
)

// StatusBus implements domain.StatusBus using Redis Pub/Sub. Each token has
// its own channel ("token_status:{id}") so subscribers receive only the
// tokens they watch. Delivery is at-most-once; nothing is awaited beyond the
// publish itself.
type StatusBus struct {
	rdb *redis.Client
}

// NewStatusBus creates a StatusBus backed by the given Client.
func NewStatusBus(c *Client) *StatusBus {
	return &StatusBus{rdb: c.Underlying()}
}

// ChannelFor returns the pub/sub channel name for a token id.
func ChannelFor(tokenID int64) string {
	return fmt.Sprintf("token_status:%d", tokenID)
}

// Publish serialises the event and sends it on the token's channel.
func (sb *StatusBus) Publish(ctx context.Context, tokenID int64, event domain.StatusEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("redis: encode status event for token %d: %w", tokenID, err)
	}
	if err := sb.rdb.Publish(ctx, ChannelFor(tokenID), payload).Err(); err != nil {
		return fmt.Errorf("redis: publish status for token %d: %w", tokenID, err)
	}
	return nil
}

// Subscribe creates a Redis Pub/Sub subscription for the given channel or
// glob pattern (e.g. "token_status:*") and returns a read-only channel of
// raw payloads. The subscription is closed when the context is cancelled;
// the returned channel is closed at that point as well.
func (sb *StatusBus) Subscribe(ctx context.Context, pattern string) (<-chan []byte, error) {
	var pubsub *redis.PubSub
	if strings.ContainsAny(pattern, "*?[") {
		pubsub = sb.rdb.PSubscribe(ctx, pattern)
	} else {
		pubsub = sb.rdb.Subscribe(ctx, pattern)
	}

	// Verify the subscription is established before handing it out.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", pattern, err)
	}

	out := make(chan []byte, 128)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				select {
				case out <- []byte(msg.Payload):
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
