package notify

import (
	"context"
	"errors"
	"strings"

	"github.com/redis/go-redis/v9"
)

const defaultChannel = "jewelry:changed"

// Notifier is the change feed for the jewelry collection. Writers publish
// after every mutation; the catalog subscribes and reloads a full snapshot
// per event.
type Notifier interface {
	PublishChange(ctx context.Context) error
	SubscribeChanges(ctx context.Context) (<-chan struct{}, error)
}

// RedisNotifier implements Notifier over redis pub/sub.
type RedisNotifier struct {
	client  *redis.Client
	channel string
}

// RedisNotifierConfig configures the change-feed connection.
type RedisNotifierConfig struct {
	Addr     string
	Password string
	Channel  string
}

// NewRedisNotifier builds a redis-backed change feed.
func NewRedisNotifier(cfg RedisNotifierConfig) (*RedisNotifier, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, errors.New("redis addr required")
	}
	channel := strings.TrimSpace(cfg.Channel)
	if channel == "" {
		channel = defaultChannel
	}
	return &RedisNotifier{
		client:  redis.NewClient(&redis.Options{Addr: addr, Password: cfg.Password}),
		channel: channel,
	}, nil
}

// PublishChange signals that the jewelry collection changed.
func (n *RedisNotifier) PublishChange(ctx context.Context) error {
	return n.client.Publish(ctx, n.channel, "1").Err()
}

// SubscribeChanges returns a channel that receives one signal per change.
// Signals are coalesced: a slow consumer sees at least one signal for any
// burst of publishes. The channel closes when ctx is canceled.
func (n *RedisNotifier) SubscribeChanges(ctx context.Context) (<-chan struct{}, error) {
	sub := n.client.Subscribe(ctx, n.channel)
	// Force the subscription to be established before returning, so
	// publishes after this call are never missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}
	events := make(chan struct{}, 1)
	go func() {
		defer close(events)
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-ch:
				if !ok {
					return
				}
				select {
				case events <- struct{}{}:
				default:
				}
			}
		}
	}()
	return events, nil
}
