package engine

import (
	"context"

	"github.com/google/uuid"

	"github.com/easybet/easybet/internal/domain"
)

// ClaimPrize pays one winning claim its fixed share of the pool, exactly
// once, to whoever owns the token at the moment of payout. The first payout
// moves the market into PayoutInProgress; paying the last outstanding
// winner completes the payout.
func (e *Engine) ClaimPrize(ctx context.Context, marketID, tokenID int64, caller domain.Account) (domain.Payout, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return domain.Payout{}, err
	}
	if c.MarketID != marketID {
		return domain.Payout{}, domain.ErrNotFound
	}

	var payout domain.Payout
	err = e.dir.update(marketID, func(m *domain.Market) error {
		if !m.State.Finalized() {
			return domain.ErrMarketNotFinished
		}
		owner, err := e.reg.OwnerOf(tokenID)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrNotOwner
		}
		// Re-read under the lock: the flag may have flipped since the
		// lookup above.
		cur, err := e.reg.DetailsOf(tokenID)
		if err != nil {
			return err
		}
		if cur.ChosenOption != m.WinningOption {
			return domain.ErrNotWinningTicket
		}
		if cur.PrizeClaimed {
			return domain.ErrAlreadyClaimed
		}

		p, err := e.payWinner(ctx, m, tokenID, owner, "")
		if err != nil {
			return err
		}
		payout = p
		return nil
	})
	if err != nil {
		return domain.Payout{}, err
	}
	return payout, nil
}

// DistributeAll pays every unclaimed winning claim of a finalized market in
// one batch. It is idempotent: already-paid tokens are skipped, and a
// failed payment for one token never blocks or reverts payments committed
// for others in the same call. PrizesDistributed is set only when no unpaid
// winning claim remains, so a re-run retries exactly the failures.
func (e *Engine) DistributeAll(ctx context.Context, marketID int64, caller domain.Account) (domain.Distribution, error) {
	if err := e.requireAdmin(caller); err != nil {
		return domain.Distribution{}, err
	}

	dist := domain.Distribution{
		MarketID: marketID,
		BatchID:  uuid.New().String(),
	}
	err := e.dir.update(marketID, func(m *domain.Market) error {
		if !m.State.Finalized() {
			return domain.ErrMarketNotFinished
		}
		dist.RanAt = e.now()

		for _, tokenID := range e.reg.ClaimsOfMarket(marketID) {
			c, err := e.reg.DetailsOf(tokenID)
			if err != nil {
				continue
			}
			if c.ChosenOption != m.WinningOption {
				continue
			}
			res := domain.PayoutResult{
				TokenID:   tokenID,
				Recipient: c.Owner,
				Amount:    m.PrizeShare,
			}
			if c.PrizeClaimed {
				res.Skipped = true
				dist.Results = append(dist.Results, res)
				continue
			}

			p, err := e.payWinner(ctx, m, tokenID, c.Owner, dist.BatchID)
			if err != nil {
				res.Error = err.Error()
				dist.Results = append(dist.Results, res)
				continue
			}
			res.Paid = true
			res.Amount = p.Amount
			dist.TotalPaid += p.Amount
			dist.Results = append(dist.Results, res)
		}

		if m.PaidClaims == m.WinningClaims {
			m.PrizesDistributed = true
			m.State = domain.MarketStatePayoutComplete
			m.UpdatedAt = e.now()
		}
		dist.Complete = m.PrizesDistributed
		dist.Remainder = m.Remainder()
		return nil
	})
	if err != nil {
		return domain.Distribution{}, err
	}
	return dist, nil
}

// RemainderOf returns the dust left in a finalized market's pool.
func (e *Engine) RemainderOf(marketID int64) (int64, error) {
	m, err := e.dir.Get(marketID)
	if err != nil {
		return 0, err
	}
	if !m.State.Finalized() {
		return 0, domain.ErrMarketNotFinished
	}
	return m.Remainder(), nil
}

// payWinner commits a single prize payment. Caller holds the market lock
// and has verified the token is an unpaid winner. The ledger transfer is
// the only fallible step; the flag flip and pool decrement after it cannot
// fail.
func (e *Engine) payWinner(ctx context.Context, m *domain.Market, tokenID int64, owner domain.Account, batchID string) (domain.Payout, error) {
	amount := m.PrizeShare
	if err := e.ledger.Transfer(ctx, e.escrow, owner, amount); err != nil {
		return domain.Payout{}, err
	}

	if err := e.reg.MarkPrizeClaimed(tokenID); err != nil {
		// Unreachable: claimed-state was checked under the market lock.
		return domain.Payout{}, err
	}
	m.Pool -= amount
	m.PaidClaims++
	if m.PaidClaims == m.WinningClaims {
		m.State = domain.MarketStatePayoutComplete
		m.PrizesDistributed = true
	} else {
		m.State = domain.MarketStatePayoutInProgress
	}
	m.UpdatedAt = e.now()

	return domain.Payout{
		MarketID:  m.ID,
		TokenID:   tokenID,
		Recipient: owner,
		Amount:    amount,
		BatchID:   batchID,
		PaidAt:    m.UpdatedAt,
	}, nil
}
