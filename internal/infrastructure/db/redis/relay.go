package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/taskhub/task-tracker/internal/core/domain"
	"github.com/taskhub/task-tracker/internal/core/ports"
)

const defaultChannel = "tasks:notifications"

// Relay spreads notification events across replicas. Broadcast publishes to a
// Redis channel; Run subscribes to that channel and hands every message to the
// local broadcaster, so each replica's clients see every event exactly once.
type Relay struct {
	client  *redis.Client
	channel string
	local   ports.Broadcaster
	log     zerolog.Logger
}

func NewRelay(client *redis.Client, channel string, local ports.Broadcaster, log zerolog.Logger) *Relay {
	if channel == "" {
		channel = defaultChannel
	}
	return &Relay{client: client, channel: channel, local: local, log: log}
}

// Broadcast publishes event to every replica, this one included.
func (r *Relay) Broadcast(ctx context.Context, event domain.NotificationEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("relay encode: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel, payload).Err(); err != nil {
		return fmt.Errorf("relay publish: %w", err)
	}
	return nil
}

// Run forwards channel messages to the local broadcaster until ctx is done.
func (r *Relay) Run(ctx context.Context) error {
	sub := r.client.Subscribe(ctx, r.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("relay subscribe: %w", err)
	}
	r.log.Info().Str("channel", r.channel).Msg("relay subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event domain.NotificationEvent
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				r.log.Warn().Err(err).Msg("relay dropped undecodable message")
				continue
			}
			if err := r.local.Broadcast(ctx, event); err != nil {
				r.log.Warn().Err(err).Str("task_id", event.TaskID).Msg("local broadcast failed")
			}
		}
	}
}
