package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybet/easybet/internal/domain"
)

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	pool *pgxpool.Pool
}

// NewMarketStore creates a new MarketStore backed by the given connection pool.
func NewMarketStore(pool *pgxpool.Pool) *MarketStore {
	return &MarketStore{pool: pool}
}

// Upsert writes the full market snapshot. The engine assigns ids, so the row
// is keyed on the engine's id rather than a serial.
func (s *MarketStore) Upsert(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (
			id, name, side_a, side_b, options,
			ticket_price, result_time, pool, state, winning_option,
			prize_share, final_pool, winning_claims, paid_claims,
			claim_count, prizes_distributed, creator, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5,
			$6, $7, $8, $9, $10,
			$11, $12, $13, $14,
			$15, $16, $17, $18, $19
		)
		ON CONFLICT (id) DO UPDATE SET
			name               = EXCLUDED.name,
			side_a             = EXCLUDED.side_a,
			side_b             = EXCLUDED.side_b,
			options            = EXCLUDED.options,
			ticket_price       = EXCLUDED.ticket_price,
			result_time        = EXCLUDED.result_time,
			pool               = EXCLUDED.pool,
			state              = EXCLUDED.state,
			winning_option     = EXCLUDED.winning_option,
			prize_share        = EXCLUDED.prize_share,
			final_pool         = EXCLUDED.final_pool,
			winning_claims     = EXCLUDED.winning_claims,
			paid_claims        = EXCLUDED.paid_claims,
			claim_count        = EXCLUDED.claim_count,
			prizes_distributed = EXCLUDED.prizes_distributed,
			creator            = EXCLUDED.creator,
			updated_at         = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query,
		m.ID, m.Name, m.SideA, m.SideB, m.Options,
		m.TicketPrice, m.ResultTime, m.Pool, string(m.State), m.WinningOption,
		m.PrizeShare, m.FinalPool, m.WinningClaims, m.PaidClaims,
		m.ClaimCount, m.PrizesDistributed, m.Creator.Hex(), m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert market %d: %w", m.ID, err)
	}
	return nil
}

const marketCols = `id, name, side_a, side_b, options,
	ticket_price, result_time, pool, state, winning_option,
	prize_share, final_pool, winning_claims, paid_claims,
	claim_count, prizes_distributed, creator, created_at, updated_at`

// scanMarket scans a single market row into a domain.Market.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var m domain.Market
	var state, creator string
	err := row.Scan(
		&m.ID, &m.Name, &m.SideA, &m.SideB, &m.Options,
		&m.TicketPrice, &m.ResultTime, &m.Pool, &state, &m.WinningOption,
		&m.PrizeShare, &m.FinalPool, &m.WinningClaims, &m.PaidClaims,
		&m.ClaimCount, &m.PrizesDistributed, &creator, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.State = domain.MarketState(state)
	m.Creator = common.HexToAddress(creator)
	return m, nil
}

// GetByID retrieves a market by its primary key.
func (s *MarketStore) GetByID(ctx context.Context, id int64) (domain.Market, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE id = $1`, id)
	m, err := scanMarket(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", id, err)
	}
	return m, nil
}

// List returns markets in creation order with pagination and optional time
// filtering.
func (s *MarketStore) List(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	query := `SELECT ` + marketCols + ` FROM markets WHERE 1=1`
	args := []any{}
	argIdx := 1

	if opts.Since != nil {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, *opts.Since)
		argIdx++
	}
	if opts.Until != nil {
		query += fmt.Sprintf(" AND created_at <= $%d", argIdx)
		args = append(args, *opts.Until)
		argIdx++
	}

	query += " ORDER BY id"

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
		return nil, fmt.Errorf("postgres: list markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list markets rows: %w", err)
	}
	return markets, nil
}

// Count returns the total number of markets in the database.
func (s *MarketStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM markets").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count markets: %w", err)
	}
	return count, nil
}

var _ domain.MarketStore = (*MarketStore)(nil)
