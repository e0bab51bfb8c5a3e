package engine

import (
	"context"
	"fmt"

	"github.com/easybet/easybet/internal/domain"
)

// List places a claim for sale at the given price. The seller is cached on
// the listing and re-validated at settlement. New listings are refused once
// the market is finalized; trading value is tied to an open outcome.
func (e *Engine) List(_ context.Context, marketID, tokenID int64, price int64, caller domain.Account) (domain.Listing, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return domain.Listing{}, err
	}
	if c.MarketID != marketID {
		return domain.Listing{}, fmt.Errorf("token belongs to another market: %w", domain.ErrInvalidParameters)
	}

	var listing domain.Listing
	err = e.dir.update(marketID, func(m *domain.Market) error {
		if m.State.Finalized() {
			return domain.ErrMarketFinished
		}
		if price <= 0 {
			return domain.ErrInvalidPrice
		}
		owner, err := e.reg.OwnerOf(tokenID)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrNotOwner
		}

		listing = domain.Listing{
			TokenID:  tokenID,
			MarketID: marketID,
			Price:    price,
			Seller:   caller,
			ListedAt: e.now(),
		}
		return e.book.Add(listing)
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return listing, nil
}

// Cancel withdraws a listing. Only the claim's current owner may cancel;
// cancellation stays legal after finalization so holders can clean up.
func (e *Engine) Cancel(_ context.Context, tokenID int64, caller domain.Account) (domain.Listing, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return domain.Listing{}, err
	}

	var cancelled domain.Listing
	err = e.dir.update(c.MarketID, func(_ *domain.Market) error {
		if _, ok := e.book.Get(c.MarketID, tokenID); !ok {
			return domain.ErrNotListed
		}
		owner, err := e.reg.OwnerOf(tokenID)
		if err != nil {
			return err
		}
		if owner != caller {
			return domain.ErrNotOwner
		}
		cancelled, _ = e.book.Remove(c.MarketID, tokenID)
		return nil
	})
	if err != nil {
		return domain.Listing{}, err
	}
	return cancelled, nil
}

// Buy settles a listing atomically: the credit transfer buyer→seller and
// the ownership transfer seller→buyer both happen or neither does. A
// listing whose seller no longer owns the token is purged and the purchase
// fails with a stale-listing error.
func (e *Engine) Buy(ctx context.Context, marketID, tokenID int64, buyer domain.Account) (domain.Trade, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return domain.Trade{}, err
	}
	if c.MarketID != marketID {
		return domain.Trade{}, fmt.Errorf("token belongs to another market: %w", domain.ErrInvalidParameters)
	}

	var trade domain.Trade
	err = e.dir.update(marketID, func(_ *domain.Market) error {
		listing, ok := e.book.Get(marketID, tokenID)
		if !ok {
			return domain.ErrNotListed
		}
		owner, err := e.reg.OwnerOf(tokenID)
		if err != nil {
			return err
		}
		if owner != listing.Seller {
			// Out-of-band transfer invalidated the listing; purge it.
			e.book.Remove(marketID, tokenID)
			return domain.ErrStaleListing
		}

		// Last fallible step before the registry mutation.
		if err := e.ledger.TransferFrom(ctx, e.escrow, buyer, listing.Seller, listing.Price); err != nil {
			return err
		}
		// Cannot fail: ownership was verified under this market's lock and
		// every transfer path serializes on the same lock.
		if err := e.reg.Transfer(tokenID, listing.Seller, buyer); err != nil {
			return err
		}
		e.book.Remove(marketID, tokenID)

		trade = domain.Trade{
			TokenID:  tokenID,
			MarketID: marketID,
			Price:    listing.Price,
			Seller:   listing.Seller,
			Buyer:    buyer,
			TradedAt: e.now(),
		}
		return nil
	})
	if err != nil {
		return domain.Trade{}, err
	}
	return trade, nil
}
