package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybet/easybet/internal/domain"
)

// ListingStore implements domain.ListingStore using PostgreSQL. A listing row
// stays open (closed_at IS NULL) until it is cancelled, settled by a trade,
// or evicted as stale; the close reason records which.
type ListingStore struct {
	pool *pgxpool.Pool
}

// NewListingStore creates a new ListingStore backed by the given connection pool.
func NewListingStore(pool *pgxpool.Pool) *ListingStore {
	return &ListingStore{pool: pool}
}

// Insert opens a new listing row.
func (s *ListingStore) Insert(ctx context.Context, l domain.Listing) error {
	const query = `
		INSERT INTO listings (token_id, market_id, price, seller, listed_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := s.pool.Exec(ctx, query,
		l.TokenID, l.MarketID, l.Price, l.Seller.Hex(), l.ListedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert listing for token %d: %w", l.TokenID, err)
	}
	return nil
}

// Close marks the open listing for tokenID closed with the given reason
// ("cancelled", "settled", "stale").
func (s *ListingStore) Close(ctx context.Context, tokenID int64, reason string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE listings SET closed_at = NOW(), close_reason = $2
		 WHERE token_id = $1 AND closed_at IS NULL`,
		tokenID, reason,
	)
	if err != nil {
		return fmt.Errorf("postgres: close listing for token %d: %w", tokenID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListOpenByMarket returns the open listings of a market in listing order.
func (s *ListingStore) ListOpenByMarket(ctx context.Context, marketID int64) ([]domain.Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT token_id, market_id, price, seller, listed_at
		 FROM listings WHERE market_id = $1 AND closed_at IS NULL
		 ORDER BY id`, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list open listings for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var listings []domain.Listing
	for rows.Next() {
		var l domain.Listing
		var seller string
		if err := rows.Scan(&l.TokenID, &l.MarketID, &l.Price, &seller, &l.ListedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan listing: %w", err)
		}
		l.Seller = common.HexToAddress(seller)
		listings = append(listings, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list open listings rows: %w", err)
	}
	return listings, nil
}

var _ domain.ListingStore = (*ListingStore)(nil)
