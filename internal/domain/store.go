package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
}

// MarketStore persists market snapshots. The in-memory engine is
// authoritative; the store is the durable historical record.
type MarketStore interface {
	Upsert(ctx context.Context, market Market) error
	GetByID(ctx context.Context, id int64) (Market, error)
	List(ctx context.Context, opts ListOpts) ([]Market, error)
	Count(ctx context.Context) (int64, error)
}

// ClaimStore persists claim tokens and ownership changes.
type ClaimStore interface {
	Insert(ctx context.Context, claim Claim) error
	UpdateOwner(ctx context.Context, tokenID int64, owner Account) error
	MarkPrizeClaimed(ctx context.Context, tokenID int64) error
	GetByID(ctx context.Context, tokenID int64) (Claim, error)
	ListByOwner(ctx context.Context, owner Account, opts ListOpts) ([]Claim, error)
	ListByMarket(ctx context.Context, marketID int64, opts ListOpts) ([]Claim, error)
}

// ListingStore persists the order-book history: one row per listing, closed
// when cancelled, settled, or evicted as stale.
type ListingStore interface {
	Insert(ctx context.Context, listing Listing) error
	Close(ctx context.Context, tokenID int64, reason string) error
	ListOpenByMarket(ctx context.Context, marketID int64) ([]Listing, error)
}

// TradeStore persists settled order-book trades.
type TradeStore interface {
	Insert(ctx context.Context, trade Trade) error
	ListByMarket(ctx context.Context, marketID int64, opts ListOpts) ([]Trade, error)
}

// PayoutStore persists committed prize payments.
type PayoutStore interface {
	Insert(ctx context.Context, payout Payout) error
	ListByMarket(ctx context.Context, marketID int64) ([]Payout, error)
	SumByMarket(ctx context.Context, marketID int64) (int64, error)
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64
	Event     string
	Detail    map[string]any
	CreatedAt time.Time
}

// AuditStore persists an append-only audit log.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}
