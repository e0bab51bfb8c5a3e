package postgres

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/easybet/easybet/internal/domain"
)

// ClaimStore implements domain.ClaimStore using PostgreSQL.
type ClaimStore struct {
	pool *pgxpool.Pool
}

// NewClaimStore creates a new ClaimStore backed by the given connection pool.
func NewClaimStore(pool *pgxpool.Pool) *ClaimStore {
	return &ClaimStore{pool: pool}
}

// Insert records a freshly minted claim token.
func (s *ClaimStore) Insert(ctx context.Context, c domain.Claim) error {
	const query = `
		INSERT INTO claims (token_id, market_id, chosen_option, owner, prize_claimed, minted_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := s.pool.Exec(ctx, query,
		c.TokenID, c.MarketID, c.ChosenOption, c.Owner.Hex(), c.PrizeClaimed, c.MintedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert claim %d: %w", c.TokenID, err)
	}
	return nil
}

// UpdateOwner records an ownership change.
func (s *ClaimStore) UpdateOwner(ctx context.Context, tokenID int64, owner domain.Account) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE claims SET owner = $2, updated_at = NOW() WHERE token_id = $1`,
		tokenID, owner.Hex(),
	)
	if err != nil {
		return fmt.Errorf("postgres: update claim %d owner: %w", tokenID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// MarkPrizeClaimed flips the prize flag.
func (s *ClaimStore) MarkPrizeClaimed(ctx context.Context, tokenID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE claims SET prize_claimed = TRUE, updated_at = NOW() WHERE token_id = $1`,
		tokenID,
	)
	if err != nil {
		return fmt.Errorf("postgres: mark claim %d paid: %w", tokenID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

const claimCols = `token_id, market_id, chosen_option, owner, prize_claimed, minted_at`

func scanClaim(row pgx.Row) (domain.Claim, error) {
	var c domain.Claim
	var owner string
	err := row.Scan(&c.TokenID, &c.MarketID, &c.ChosenOption, &owner, &c.PrizeClaimed, &c.MintedAt)
	if err != nil {
		return domain.Claim{}, err
	}
	c.Owner = common.HexToAddress(owner)
	return c, nil
}

// GetByID retrieves a claim by token id.
func (s *ClaimStore) GetByID(ctx context.Context, tokenID int64) (domain.Claim, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+claimCols+` FROM claims WHERE token_id = $1`, tokenID)
	c, err := scanClaim(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.Claim{}, domain.ErrNotFound
		}
		return domain.Claim{}, fmt.Errorf("postgres: get claim %d: %w", tokenID, err)
	}
	return c, nil
}

// ListByOwner returns claims held by owner in mint order.
func (s *ClaimStore) ListByOwner(ctx context.Context, owner domain.Account, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.list(ctx, `owner = $1`, owner.Hex(), opts)
}

// ListByMarket returns claims minted for a market in mint order.
func (s *ClaimStore) ListByMarket(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Claim, error) {
	return s.list(ctx, `market_id = $1`, marketID, opts)
}

func (s *ClaimStore) list(ctx context.Context, where string, arg any, opts domain.ListOpts) ([]domain.Claim, error) {
	query := `SELECT ` + claimCols + ` FROM claims WHERE ` + where + ` ORDER BY token_id`
	args := []any{arg}
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
		return nil, fmt.Errorf("postgres: list claims: %w", err)
	}
	defer rows.Close()

	var claims []domain.Claim
	for rows.Next() {
		c, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan claim: %w", err)
		}
		claims = append(claims, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list claims rows: %w", err)
	}
	return claims, nil
}

var _ domain.ClaimStore = (*ClaimStore)(nil)
