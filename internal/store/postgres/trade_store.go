package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybet/easybet/internal/domain"
)

// TradeStore implements domain.TradeStore using PostgreSQL.
type TradeStore struct {
	pool *pgxpool.Pool
}

// NewTradeStore creates a new TradeStore backed by the given connection pool.
func NewTradeStore(pool *pgxpool.Pool) *TradeStore {
	return &TradeStore{pool: pool}
}

// Insert records a settled trade.
func (s *TradeStore) Insert(ctx context.Context, t domain.Trade) error {
	const query = `
		INSERT INTO trades (token_id, market_id, price, seller, buyer, traded_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		t.TokenID, t.MarketID, t.Price, t.Seller.Hex(), t.Buyer.Hex(), t.TradedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert trade for token %d: %w", t.TokenID, err)
	}
	return nil
}

// ListByMarket returns a market's trades, most recent first.
func (s *TradeStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Trade, error) {
	query := `SELECT token_id, market_id, price, seller, buyer, traded_at
		FROM trades WHERE market_id = $1 ORDER BY id DESC`
	args := []any{marketID}
	argIdx := 2

	if opts.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argIdx)
		args = append(args, opts.Limit)
		argIdx++
	}
	if opts.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argIdx)
		args = append(args, opts.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list trades for market %d: %w", marketID, err)
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var t domain.Trade
		var seller, buyer string
		if err := rows.Scan(&t.TokenID, &t.MarketID, &t.Price, &seller, &buyer, &t.TradedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan trade: %w", err)
		}
		t.Seller = common.HexToAddress(seller)
		t.Buyer = common.HexToAddress(buyer)
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list trades rows: %w", err)
	}
	return trades, nil
}

var _ domain.TradeStore = (*TradeStore)(nil)
