package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybet/easybet/internal/domain"
)

// PayoutStore implements domain.PayoutStore using PostgreSQL. A unique
// constraint on token_id backs up the engine's exactly-once guarantee at the
// storage layer.
type PayoutStore struct {
	pool *pgxpool.Pool
}

// NewPayoutStore creates a new PayoutStore backed by the given connection pool.
func NewPayoutStore(pool *pgxpool.Pool) *PayoutStore {
	return &PayoutStore{pool: pool}
}

// Insert records a committed prize payment.
func (s *PayoutStore) Insert(ctx context.Context, p domain.Payout) error {
	const query = `
		INSERT INTO payouts (market_id, token_id, recipient, amount, batch_id, paid_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		p.MarketID, p.TokenID, p.Recipient.Hex(), p.Amount, p.BatchID, p.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert payout for token %d: %w", p.TokenID, err)
	}
	return nil
}

// ListByMarket returns a market's payouts in payment order.
func (s *PayoutStore) ListByMarket(ctx context.Context, marketID int64) ([]domain.Payout, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT market_id, token_id, recipient, amount, batch_id, paid_at
		 FROM payouts WHERE market_id = $1 ORDER BY id`, marketID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payouts for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var payouts []domain.Payout
	for rows.Next() {
		var p domain.Payout
		var recipient string
		if err := rows.Scan(&p.MarketID, &p.TokenID, &recipient, &p.Amount, &p.BatchID, &p.PaidAt); err != nil {
			return nil, fmt.Errorf("postgres: scan payout: %w", err)
		}
		p.Recipient = common.HexToAddress(recipient)
		payouts = append(payouts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list payouts rows: %w", err)
	}
	return payouts, nil
}

// SumByMarket returns the total amount paid out for a market.
func (s *PayoutStore) SumByMarket(ctx context.Context, marketID int64) (int64, error) {
	var sum int64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payouts WHERE market_id = $1`, marketID,
	).Scan(&sum)
	if err != nil {
		return 0, fmt.Errorf("postgres: sum payouts for market %d: %w", marketID, err)
	}
	return sum, nil
}

var _ domain.PayoutStore = (*PayoutStore)(nil)
