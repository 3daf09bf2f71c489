package notify

import (
	"context"
	"encoding/json"
	"errors"

	"keepsafe/internal/domain"

	"github.com/redis/go-redis/v9"
)

type RedisPublisher struct {
	client  *redis.Client
	channel string
}

// NewRedisPublisher publishes events on "<channel>.<vault_id>" so
// subscribers can follow a single vault with a plain SUBSCRIBE or the whole
// stream with PSUBSCRIBE on "<channel>.*".
func NewRedisPublisher(client *redis.Client, channel string) (*RedisPublisher, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	if channel == "" {
		channel = "keepsafe.events"
	}
	return &RedisPublisher{client: client, channel: channel}, nil
}

func (p *RedisPublisher) Publish(ctx context.Context, event domain.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	channel := p.channel
	if event.VaultID != "" {
		channel = p.channel + "." + event.VaultID
	}
	return p.client.Publish(ctx, channel, payload).Err()
}
