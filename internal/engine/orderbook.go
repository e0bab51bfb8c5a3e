package engine

import (
	"sync"

	"github.com/easybet/easybet/internal/domain"
)

// OrderBook holds the active sell listings of every market: at most one
// listing per token, order-of-listing preserved for deterministic display.
// It depends on TokenOwnership only, so it never sees mint details.
//
// The book stores data; command semantics (state checks, settlement
// atomicity) live in the engine, which calls these methods under the
// owning market's lock.
type OrderBook struct {
	mu        sync.RWMutex
	ownership TokenOwnership
	books     map[int64]*book
}

type book struct {
	order   []int64 // token ids in listing order
	byToken map[int64]domain.Listing
}

// NewOrderBook creates an empty order book over the given ownership source.
func NewOrderBook(ownership TokenOwnership) *OrderBook {
	return &OrderBook{
		ownership: ownership,
		books:     make(map[int64]*book),
	}
}

// Add inserts a listing. Fails with ErrAlreadyListed if the token already
// has an active listing.
func (ob *OrderBook) Add(l domain.Listing) error {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	b := ob.books[l.MarketID]
	if b == nil {
		b = &book{byToken: make(map[int64]domain.Listing)}
		ob.books[l.MarketID] = b
	}
	if _, exists := b.byToken[l.TokenID]; exists {
		return domain.ErrAlreadyListed
	}
	b.byToken[l.TokenID] = l
	b.order = append(b.order, l.TokenID)
	return nil
}

// Get returns the active listing for tokenID in marketID, if any.
func (ob *OrderBook) Get(marketID, tokenID int64) (domain.Listing, bool) {
	ob.mu.RLock()
	defer ob.mu.RUnlock()
	b := ob.books[marketID]
	if b == nil {
		return domain.Listing{}, false
	}
	l, ok := b.byToken[tokenID]
	return l, ok
}

// IsListed reports whether tokenID has a live listing in marketID. A
// listing whose token changed hands outside the book is stale; it is
// evicted here and reported as not listed.
func (ob *OrderBook) IsListed(marketID, tokenID int64) bool {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	b := ob.books[marketID]
	if b == nil {
		return false
	}
	l, ok := b.byToken[tokenID]
	if !ok {
		return false
	}
	owner, err := ob.ownership.OwnerOf(tokenID)
	if err != nil || owner != l.Seller {
		ob.remove(marketID, tokenID)
		return false
	}
	return true
}

// Remove deletes the listing for tokenID and returns it.
func (ob *OrderBook) Remove(marketID, tokenID int64) (domain.Listing, bool) {
	ob.mu.Lock()
	defer ob.mu.Unlock()
	return ob.remove(marketID, tokenID)
}

func (ob *OrderBook) remove(marketID, tokenID int64) (domain.Listing, bool) {
	b := ob.books[marketID]
	if b == nil {
		return domain.Listing{}, false
	}
	l, ok := b.byToken[tokenID]
	if !ok {
		return domain.Listing{}, false
	}
	delete(b.byToken, tokenID)
	for i, id := range b.order {
		if id == tokenID {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return l, true
}

// Snapshot returns the active listings of marketID in listing order.
// Listings whose token changed hands outside the book are stale; they are
// evicted here, on read, rather than tracked eagerly.
func (ob *OrderBook) Snapshot(marketID int64) []domain.Listing {
	ob.mu.Lock()
	defer ob.mu.Unlock()

	b := ob.books[marketID]
	if b == nil {
		return nil
	}

	var stale []int64
	out := make([]domain.Listing, 0, len(b.order))
	for _, id := range b.order {
		l := b.byToken[id]
		owner, err := ob.ownership.OwnerOf(id)
		if err != nil || owner != l.Seller {
			stale = append(stale, id)
			continue
		}
		out = append(out, l)
	}
	for _, id := range stale {
		ob.remove(marketID, id)
	}
	return out
}
