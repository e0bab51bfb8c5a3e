package domain

import (
	"context"
	"time"
)

// MarketCache provides fast market snapshot lookups.
type MarketCache interface {
	Set(ctx context.Context, market Market) error
	Get(ctx context.Context, id int64) (Market, error)
	Invalidate(ctx context.Context, id int64) error
}

// OrderBookCache stores the rendered order-book view of a market so read
// traffic does not hit the engine on every request.
type OrderBookCache interface {
	SetSnapshot(ctx context.Context, marketID int64, listings []Listing) error
	GetSnapshot(ctx context.Context, marketID int64) ([]Listing, error)
	Invalidate(ctx context.Context, marketID int64) error
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking, used to serialize distributeAll
// batches across nodes.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// StreamMessage represents a single entry from a durable event stream.
type StreamMessage struct {
	ID      string
	Payload []byte
}

// SignalBus provides pub/sub fan-out and durable streams for engine events.
type SignalBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
	StreamAppend(ctx context.Context, stream string, payload []byte) error
	StreamRead(ctx context.Context, stream string, lastID string, count int) ([]StreamMessage, error)
}
