package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/easybet/easybet/internal/domain"
)

// CreateMarketParams carries the createMarket command.
type CreateMarketParams struct {
	Name        string
	SideA       string
	SideB       string
	Options     []string
	TicketPrice int64
	ResultTime  time.Time
	Creator     domain.Account
}

func (p CreateMarketParams) validate(now time.Time) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("name is required: %w", domain.ErrInvalidParameters)
	}
	if len(p.Options) < 2 {
		return fmt.Errorf("need at least two options: %w", domain.ErrInvalidParameters)
	}
	if p.TicketPrice <= 0 {
		return fmt.Errorf("ticket price must be positive: %w", domain.ErrInvalidParameters)
	}
	if !p.ResultTime.After(now) {
		return fmt.Errorf("result time must be in the future: %w", domain.ErrInvalidParameters)
	}
	return nil
}

// CreateMarket registers a new market in state Created.
func (e *Engine) CreateMarket(_ context.Context, p CreateMarketParams) (domain.Market, error) {
	if !e.auth.CanCreate(p.Creator) {
		return domain.Market{}, domain.ErrUnauthorized
	}
	now := e.now()
	if err := p.validate(now); err != nil {
		return domain.Market{}, err
	}

	m := domain.Market{
		Name:          p.Name,
		SideA:         p.SideA,
		SideB:         p.SideB,
		Options:       append([]string(nil), p.Options...),
		TicketPrice:   p.TicketPrice,
		ResultTime:    p.ResultTime,
		State:         domain.MarketStateCreated,
		WinningOption: domain.NoWinningOption,
		Creator:       p.Creator,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	m.ID = e.dir.Add(m)
	return e.dir.Get(m.ID)
}

// Activate moves a Created or Inactive market to Active. Sales resume (or
// begin) immediately.
func (e *Engine) Activate(_ context.Context, marketID int64, caller domain.Account) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.dir.update(marketID, func(m *domain.Market) error {
		if m.State.Finalized() {
			return domain.ErrMarketFinished
		}
		if m.State == domain.MarketStateActive {
			return domain.ErrAlreadyActive
		}
		if !e.now().Before(m.ResultTime) {
			return domain.ErrMarketExpired
		}
		m.State = domain.MarketStateActive
		m.UpdatedAt = e.now()
		return nil
	})
}

// Deactivate pauses sales on an Active market without forfeiting the
// ability to resume before the deadline.
func (e *Engine) Deactivate(_ context.Context, marketID int64, caller domain.Account) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.dir.update(marketID, func(m *domain.Market) error {
		if m.State.Finalized() {
			return domain.ErrMarketFinished
		}
		if m.State != domain.MarketStateActive {
			return domain.ErrMarketNotActive
		}
		m.State = domain.MarketStateInactive
		m.UpdatedAt = e.now()
		return nil
	})
}

// PurchaseClaim debits the ticket price from buyer into escrow, credits the
// pool, and mints a claim on the chosen option. This is the only operation
// that increases a market's pool. The ledger debit is the last fallible
// step: if it fails nothing has been mutated, and once it commits the mint
// cannot fail.
func (e *Engine) PurchaseClaim(ctx context.Context, marketID int64, option int, buyer domain.Account) (domain.Claim, error) {
	var claim domain.Claim
	err := e.dir.update(marketID, func(m *domain.Market) error {
		if m.State != domain.MarketStateActive {
			return domain.ErrMarketNotActive
		}
		if !e.now().Before(m.ResultTime) {
			return domain.ErrMarketExpired
		}
		if option < 0 || option >= len(m.Options) {
			return domain.ErrInvalidOption
		}

		if err := e.ledger.TransferFrom(ctx, e.escrow, buyer, e.escrow, m.TicketPrice); err != nil {
			return err
		}

		claim = e.reg.Mint(m.ID, option, buyer, e.now())
		m.Pool += m.TicketPrice
		m.ClaimCount++
		m.UpdatedAt = e.now()
		return nil
	})
	if err != nil {
		return domain.Claim{}, err
	}
	return claim, nil
}

// TransferClaim moves a claim between accounts outside the order book, the
// way the original token contract allows direct transfers. Any listing for
// the token becomes stale and is evicted lazily on the next order-book
// read. Transfers stay legal after finalization; a paid or losing claim is
// a keepsake.
func (e *Engine) TransferClaim(_ context.Context, tokenID int64, from, to domain.Account, caller domain.Account) error {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return err
	}
	if caller != from {
		return domain.ErrUnauthorized
	}
	return e.dir.update(c.MarketID, func(_ *domain.Market) error {
		return e.reg.Transfer(tokenID, from, to)
	})
}

// AnnounceOutcome irreversibly finalizes a market: it records the winning
// option, snapshots the pool, and fixes the per-claim prize share as
// pool / winningClaimCount (integer division; the remainder stays in the
// pool as dust).
func (e *Engine) AnnounceOutcome(_ context.Context, marketID int64, option int, caller domain.Account) error {
	if err := e.requireAdmin(caller); err != nil {
		return err
	}
	return e.dir.update(marketID, func(m *domain.Market) error {
		if m.State.Finalized() {
			return domain.ErrMarketFinished
		}
		if m.State == domain.MarketStateCreated {
			return fmt.Errorf("market was never opened: %w", domain.ErrInvalidState)
		}
		if e.now().Before(m.ResultTime) {
			return domain.ErrTooEarly
		}
		if option < 0 || option >= len(m.Options) {
			return domain.ErrInvalidOption
		}

		m.WinningOption = option
		m.FinalPool = m.Pool
		m.WinningClaims = e.reg.CountWinners(m.ID, option)
		if m.WinningClaims > 0 {
			m.PrizeShare = m.Pool / int64(m.WinningClaims)
		}
		m.State = domain.MarketStateFinished
		m.UpdatedAt = e.now()
		return nil
	})
}
