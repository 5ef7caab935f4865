package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/gwent-leaderboard/internal/config"
	"github.com/gwent-leaderboard/internal/domain"
	"github.com/redis/go-redis/v9"
)

// Notifier fans ranking change events out to every server instance over a
// Redis pub/sub channel
type Notifier struct {
	client  *redis.Client
	channel string
	logger  *slog.Logger
}

// NewNotifier creates a new Redis change notifier
func NewNotifier(ctx context.Context, cfg *config.RedisConfig, logger *slog.Logger) (*Notifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})

	// Test connection
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	return newNotifier(client, cfg.Channel, logger), nil
}

func newNotifier(client *redis.Client, channel string, logger *slog.Logger) *Notifier {
	return &Notifier{
		client:  client,
		channel: channel,
		logger:  logger,
	}
}

// Close closes the Redis connection
func (n *Notifier) Close() error {
	return n.client.Close()
}

// Publish announces a change event
func (n *Notifier) Publish(ctx context.Context, event domain.ChangeEvent) error {
	payload, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if err := n.client.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing change event: %w", err)
	}
	return nil
}

// Listen delivers every event published on the channel to fn until ctx is
// done. Malformed payloads are logged and skipped.
func (n *Notifier) Listen(ctx context.Context, fn func(domain.ChangeEvent)) error {
	sub := n.client.Subscribe(ctx, n.channel)
	defer sub.Close()

	// Wait for the subscription to be confirmed
	if _, err := sub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribing to %s: %w", n.channel, err)
	}
	n.logger.Info("listening for change events", "channel", n.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := decodeEvent([]byte(msg.Payload))
			if err != nil {
				n.logger.Warn("dropping malformed change event", "error", err)
				continue
			}
			fn(event)
		}
	}
}

func encodeEvent(event domain.ChangeEvent) ([]byte, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("encoding change event: %w", err)
	}
	return data, nil
}

func decodeEvent(data []byte) (domain.ChangeEvent, error) {
	var event domain.ChangeEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return domain.ChangeEvent{}, fmt.Errorf("decoding change event: %w", err)
	}
	if !event.Edition.Known() {
		return domain.ChangeEvent{}, fmt.Errorf("decoding change event: %w", domain.ErrUnknownEdition)
	}
	return event, nil
}
