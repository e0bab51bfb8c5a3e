package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybet/easybet/internal/domain"
)

func TestList_And_OrderBook(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 20)
	c1, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	c2, err := f.engine.PurchaseClaim(f.ctx, m.ID, 1, alice)
	require.NoError(t, err)

	_, err = f.engine.List(f.ctx, m.ID, c1.TokenID, 15, alice)
	require.NoError(t, err)
	_, err = f.engine.List(f.ctx, m.ID, c2.TokenID, 25, alice)
	require.NoError(t, err)

	// Listing order preserved.
	book, err := f.engine.OrderBookOf(m.ID)
	require.NoError(t, err)
	require.Len(t, book, 2)
	assert.Equal(t, c1.TokenID, book[0].TokenID)
	assert.Equal(t, int64(15), book[0].Price)
	assert.Equal(t, c2.TokenID, book[1].TokenID)

	// Failure cases.
	_, err = f.engine.List(f.ctx, m.ID, c1.TokenID, 10, alice)
	assert.ErrorIs(t, err, domain.ErrAlreadyListed)
	_, err = f.engine.List(f.ctx, m.ID, c1.TokenID, 0, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	_, err = f.engine.List(f.ctx, m.ID, 999, 10, alice)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.engine.List(f.ctx, m.ID, c2.TokenID, 10, bob)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
}

func TestList_NotOwnerAndBadPrice(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)

	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, 10, bob)
	assert.ErrorIs(t, err, domain.ErrNotOwner)
	assert.ErrorIs(t, err, domain.ErrOwnership)

	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, -1, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidPrice)
}

func TestCancel(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)

	_, err = f.engine.Cancel(f.ctx, c.TokenID, alice)
	assert.ErrorIs(t, err, domain.ErrNotListed)

	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, 15, alice)
	require.NoError(t, err)

	_, err = f.engine.Cancel(f.ctx, c.TokenID, bob)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	cancelled, err := f.engine.Cancel(f.ctx, c.TokenID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(15), cancelled.Price)

	book, _ := f.engine.OrderBookOf(m.ID)
	assert.Empty(t, book)
}

func TestBuy_SettlesAtomically(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 50)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, 30, alice)
	require.NoError(t, err)

	trade, err := f.engine.Buy(f.ctx, m.ID, c.TokenID, bob)
	require.NoError(t, err)
	assert.Equal(t, alice, trade.Seller)
	assert.Equal(t, bob, trade.Buyer)
	assert.Equal(t, int64(30), trade.Price)

	// Ownership moved, credits moved, listing gone.
	owner, err := f.engine.Registry().OwnerOf(c.TokenID)
	require.NoError(t, err)
	assert.Equal(t, bob, owner)
	assert.Equal(t, int64(30), f.balance(t, alice)) // 10 - 10 stake + 30 sale
	assert.Equal(t, int64(20), f.balance(t, bob))   // 50 - 30
	book, _ := f.engine.OrderBookOf(m.ID)
	assert.Empty(t, book)

	// Listing is gone; a second buy fails.
	_, err = f.engine.Buy(f.ctx, m.ID, c.TokenID, carol)
	assert.ErrorIs(t, err, domain.ErrNotListed)
}

func TestBuy_InsufficientFundsLeavesNoPartialEffect(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 5) // not enough for the 30-credit listing
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, 30, alice)
	require.NoError(t, err)

	_, err = f.engine.Buy(f.ctx, m.ID, c.TokenID, bob)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Neither leg happened: seller still owns, listing still live.
	owner, _ := f.engine.Registry().OwnerOf(c.TokenID)
	assert.Equal(t, alice, owner)
	assert.Equal(t, int64(5), f.balance(t, bob))
	book, _ := f.engine.OrderBookOf(m.ID)
	assert.Len(t, book, 1)
}

func TestBuy_StaleListingPurged(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, carol, 50)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.List(f.ctx, m.ID, c.TokenID, 30, alice)
	require.NoError(t, err)

	// Alice transfers the claim out of band; the listing goes stale.
	require.NoError(t, f.engine.TransferClaim(f.ctx, c.TokenID, alice, bob, alice))

	_, err = f.engine.Buy(f.ctx, m.ID, c.TokenID, carol)
	assert.ErrorIs(t, err, domain.ErrStaleListing)
	assert.ErrorIs(t, err, domain.ErrOwnership)

	// The stale listing was purged, not silently settled.
	book, _ := f.engine.OrderBookOf(m.ID)
	assert.Empty(t, book)
	assert.Equal(t, int64(50), f.balance(t, carol))
	owner, _ := f.engine.Registry().OwnerOf(c.TokenID)
	assert.Equal(t, bob, owner)
}

func TestOrderBook_LazyEvictionOnRead(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 20)
	c1, _ := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	c2, _ := f.engine.PurchaseClaim(f.ctx, m.ID, 1, alice)
	_, err := f.engine.List(f.ctx, m.ID, c1.TokenID, 15, alice)
	require.NoError(t, err)
	_, err = f.engine.List(f.ctx, m.ID, c2.TokenID, 25, alice)
	require.NoError(t, err)

	require.NoError(t, f.engine.TransferClaim(f.ctx, c1.TokenID, alice, bob, alice))

	book, err := f.engine.OrderBookOf(m.ID)
	require.NoError(t, err)
	require.Len(t, book, 1)
	assert.Equal(t, c2.TokenID, book[0].TokenID)
}

func TestList_RejectedAfterFinalize_CancelAllowed(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 20)
	c1, _ := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	c2, _ := f.engine.PurchaseClaim(f.ctx, m.ID, 1, alice)
	_, err := f.engine.List(f.ctx, m.ID, c1.TokenID, 15, alice)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	// No new listings once resolved.
	_, err = f.engine.List(f.ctx, m.ID, c2.TokenID, 15, alice)
	assert.ErrorIs(t, err, domain.ErrMarketFinished)

	// Cancellation of a pre-existing listing still works.
	_, err = f.engine.Cancel(f.ctx, c1.TokenID, alice)
	require.NoError(t, err)
}

func TestDetailsOf_ListedFlag(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 20)
	c1, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	c2, err := f.engine.PurchaseClaim(f.ctx, m.ID, 1, alice)
	require.NoError(t, err)

	// Fresh claims are not listed.
	d, err := f.engine.DetailsOf(c1.TokenID)
	require.NoError(t, err)
	assert.False(t, d.Listed)

	_, err = f.engine.List(f.ctx, m.ID, c1.TokenID, 15, alice)
	require.NoError(t, err)
	d, err = f.engine.DetailsOf(c1.TokenID)
	require.NoError(t, err)
	assert.True(t, d.Listed)

	// Cancellation clears the flag.
	_, err = f.engine.Cancel(f.ctx, c1.TokenID, alice)
	require.NoError(t, err)
	d, err = f.engine.DetailsOf(c1.TokenID)
	require.NoError(t, err)
	assert.False(t, d.Listed)

	// An out-of-band transfer leaves the listing stale: the new owner's
	// claim reports not listed and the stale entry is evicted.
	_, err = f.engine.List(f.ctx, m.ID, c2.TokenID, 25, alice)
	require.NoError(t, err)
	require.NoError(t, f.engine.TransferClaim(f.ctx, c2.TokenID, alice, bob, alice))
	d, err = f.engine.DetailsOf(c2.TokenID)
	require.NoError(t, err)
	assert.False(t, d.Listed)
	book, _ := f.engine.OrderBookOf(m.ID)
	assert.Empty(t, book)
}

func TestTransferClaim(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, _ := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)

	// Only the owner may initiate.
	err := f.engine.TransferClaim(f.ctx, c.TokenID, alice, bob, carol)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// Wrong from.
	err = f.engine.TransferClaim(f.ctx, c.TokenID, bob, carol, bob)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	// Self-transfer is a no-op success.
	require.NoError(t, f.engine.TransferClaim(f.ctx, c.TokenID, alice, alice, alice))

	require.NoError(t, f.engine.TransferClaim(f.ctx, c.TokenID, alice, bob, alice))
	owner, _ := f.engine.Registry().OwnerOf(c.TokenID)
	assert.Equal(t, bob, owner)
}
