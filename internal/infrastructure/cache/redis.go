// Package cache publishes view-invalidation signals over Redis pub/sub.
// Frontend caches subscribe to the channel and drop the named routes.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"salesdesk/internal/domain/revalidate"
	"salesdesk/pkg/logger"
)

// DefaultChannel is the pub/sub channel invalidation paths are published to.
const DefaultChannel = "salesdesk:revalidate"

// Compile-time check.
var _ revalidate.Invalidator = (*Publisher)(nil)

// publishClient is the slice of the redis client the publisher needs.
type publishClient interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// Publisher implements revalidate.Invalidator over Redis PUBLISH.
// Publishing is best-effort: a down Redis must never fail the mutation that
// already committed, so errors are logged and swallowed.
type Publisher struct {
	client  publishClient
	channel string
}

// NewPublisher creates a publisher on the default channel.
func NewPublisher(client *redis.Client) *Publisher {
	return &Publisher{client: client, channel: DefaultChannel}
}

// Invalidate publishes each path to the channel. A failed publish skips only
// its own path: the remaining views still get their signal.
func (p *Publisher) Invalidate(ctx context.Context, paths ...string) {
	for _, path := range paths {
		if err := p.client.Publish(ctx, p.channel, path).Err(); err != nil {
			logger.Warn(ctx, "publish invalidation failed", "path", path, "error", err)
		}
	}
	logger.Debug(ctx, "invalidation published", "paths", paths)
}

// Connect creates and pings a Redis client.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}
