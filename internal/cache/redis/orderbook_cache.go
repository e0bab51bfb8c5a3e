package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/easybet/easybet/internal/domain"
)

const bookTTL = 30 * time.Second

// OrderBookCache implements domain.OrderBookCache. The rendered order book
// of a market is small (listing order matters, prices do not sort it), so
// the whole snapshot is stored as one JSON value.
//
// Key schema:
//
//	book:{marketID} - JSON array of listings
type OrderBookCache struct {
	rdb *redis.Client
}

// NewOrderBookCache creates an OrderBookCache backed by the given Client.
func NewOrderBookCache(c *Client) *OrderBookCache {
	return &OrderBookCache{rdb: c.Underlying()}
}

func bookKey(marketID int64) string { return "book:" + strconv.FormatInt(marketID, 10) }

// SetSnapshot replaces the cached order book of a market. An empty book is
// cached too, as an empty array, so readers can distinguish "no listings"
// from "not cached".
func (oc *OrderBookCache) SetSnapshot(ctx context.Context, marketID int64, listings []domain.Listing) error {
	if listings == nil {
		listings = []domain.Listing{}
	}
	data, err := json.Marshal(listings)
	if err != nil {
		return fmt.Errorf("redis: marshal order book %d: %w", marketID, err)
	}
	if err := oc.rdb.Set(ctx, bookKey(marketID), data, bookTTL).Err(); err != nil {
		return fmt.Errorf("redis: set order book %d: %w", marketID, err)
	}
	return nil
}

// GetSnapshot retrieves the cached order book of a market.
// It returns domain.ErrNotFound when the key does not exist.
func (oc *OrderBookCache) GetSnapshot(ctx context.Context, marketID int64) ([]domain.Listing, error) {
	data, err := oc.rdb.Get(ctx, bookKey(marketID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("redis: get order book %d: %w", marketID, err)
	}

	var listings []domain.Listing
	if err := json.Unmarshal(data, &listings); err != nil {
		return nil, fmt.Errorf("redis: unmarshal order book %d: %w", marketID, err)
	}
	return listings, nil
}

// Invalidate removes a market's cached order book.
func (oc *OrderBookCache) Invalidate(ctx context.Context, marketID int64) error {
	if err := oc.rdb.Del(ctx, bookKey(marketID)).Err(); err != nil {
		return fmt.Errorf("redis: invalidate order book %d: %w", marketID, err)
	}
	return nil
}

// Compile-time interface check.
var _ domain.OrderBookCache = (*OrderBookCache)(nil)
