package dashboard

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const (
	// RefreshChannel carries dataset refresh notices between the worker and the servers.
	RefreshChannel = "observatorio:dataset.refresh"
	refreshVersion = "observatorio:dataset:version"
)

// RefreshBus broadcasts "the published aggregates changed" over Redis pub/sub. Every
// notice bumps a monotonically increasing version. A nil bus or one without a client
// is a no-op.
type RefreshBus struct {
	client  *redis.Client
	channel string
}

// NewRefreshBus builds a bus on channel, defaulting to RefreshChannel.
func NewRefreshBus(client *redis.Client, channel string) *RefreshBus {
	if channel == "" {
		channel = RefreshChannel
	}
	return &RefreshBus{client: client, channel: channel}
}

// Version returns the current refresh version, 0 when nothing was published yet.
func (b *RefreshBus) Version(ctx context.Context) (int64, error) {
	if b == nil || b.client == nil {
		return 0, nil
	}
	ver, err := b.client.Get(ctx, refreshVersion).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return ver, err
}

// Publish bumps the version and notifies subscribers.
func (b *RefreshBus) Publish(ctx context.Context) (int64, error) {
	if b == nil || b.client == nil {
		return 0, nil
	}
	ver, err := b.client.Incr(ctx, refreshVersion).Result()
	if err != nil {
		return 0, err
	}
	if err := b.client.Publish(ctx, b.channel, strconv.FormatInt(ver, 10)).Err(); err != nil {
		return 0, err
	}
	return ver, nil
}

// Subscribe calls fn for every notice until ctx is done. It returns once the
// subscription is confirmed by Redis.
func (b *RefreshBus) Subscribe(ctx context.Context, fn func(version int64)) error {
	if b == nil || b.client == nil {
		return nil
	}
	if fn == nil {
		return errors.New("dashboard: refresh handler required")
	}
	pubsub := b.client.Subscribe(ctx, b.channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return err
	}
	go func() {
		defer func() { _ = pubsub.Close() }()
		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				ver, err := strconv.ParseInt(msg.Payload, 10, 64)
				if err != nil {
					ver = 0
				}
				fn(ver)
			}
		}
	}()
	return nil
}
