package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybet/easybet/internal/domain"
)

func TestCreateMarket_Validation(t *testing.T) {
	f := newFixture(t)

	base := CreateMarketParams{
		Name:        "m",
		Options:     []string{"a", "b"},
		TicketPrice: 10,
		ResultTime:  f.clock.Now().Add(time.Hour),
		Creator:     alice,
	}

	tests := []struct {
		name   string
		mutate func(*CreateMarketParams)
	}{
		{"one option", func(p *CreateMarketParams) { p.Options = []string{"only"} }},
		{"zero price", func(p *CreateMarketParams) { p.TicketPrice = 0 }},
		{"negative price", func(p *CreateMarketParams) { p.TicketPrice = -5 }},
		{"result time in past", func(p *CreateMarketParams) { p.ResultTime = f.clock.Now().Add(-time.Minute) }},
		{"result time now", func(p *CreateMarketParams) { p.ResultTime = f.clock.Now() }},
		{"blank name", func(p *CreateMarketParams) { p.Name = "  " }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := base
			tt.mutate(&p)
			_, err := f.engine.CreateMarket(f.ctx, p)
			assert.ErrorIs(t, err, domain.ErrInvalidParameters)
		})
	}

	m, err := f.engine.CreateMarket(f.ctx, base)
	require.NoError(t, err)
	assert.Equal(t, domain.MarketStateCreated, m.State)
	assert.Equal(t, domain.NoWinningOption, m.WinningOption)
	assert.Equal(t, int64(1), m.ID)
}

func TestActivate_Transitions(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)

	// Already active.
	err := f.engine.Activate(f.ctx, m.ID, admin)
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Non-admin.
	assert.ErrorIs(t, f.engine.Activate(f.ctx, m.ID, alice), domain.ErrUnauthorized)

	// Deactivate then reactivate.
	require.NoError(t, f.engine.Deactivate(f.ctx, m.ID, admin))
	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStateInactive, got.State)
	require.NoError(t, f.engine.Activate(f.ctx, m.ID, admin))

	// Expired markets cannot be re-activated.
	require.NoError(t, f.engine.Deactivate(f.ctx, m.ID, admin))
	f.clock.Advance(2 * time.Hour)
	assert.ErrorIs(t, f.engine.Activate(f.ctx, m.ID, admin), domain.ErrMarketExpired)

	// Unknown market.
	assert.ErrorIs(t, f.engine.Activate(f.ctx, 999, admin), domain.ErrNotFound)
}

func TestActivate_NeverFromFinished(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	assert.ErrorIs(t, f.engine.Activate(f.ctx, m.ID, admin), domain.ErrMarketFinished)
	assert.ErrorIs(t, f.engine.Deactivate(f.ctx, m.ID, admin), domain.ErrMarketFinished)
}

func TestPurchaseClaim(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 100)

	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(1), c.TokenID)
	assert.Equal(t, 0, c.ChosenOption)
	assert.Equal(t, alice, c.Owner)

	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, int64(10), got.Pool)
	assert.Equal(t, 1, got.ClaimCount)
	assert.Equal(t, int64(90), f.balance(t, alice))
	assert.Equal(t, int64(10), f.balance(t, f.engine.Escrow()))
}

func TestPurchaseClaim_Failures(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 100)

	// Option out of range.
	_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 3, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidOption)
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, -1, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidOption)

	// No allowance.
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, bob)
	assert.ErrorIs(t, err, domain.ErrInsufficientFunds)

	// Allowance but no balance.
	require.NoError(t, f.ledger.Approve(f.ctx, bob, f.engine.Escrow(), 100))
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, bob)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	// Inactive market.
	require.NoError(t, f.engine.Deactivate(f.ctx, m.ID, admin))
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Past result time.
	require.NoError(t, f.engine.Activate(f.ctx, m.ID, admin))
	f.clock.Advance(2 * time.Hour)
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	// Every failure left the pool untouched and minted nothing.
	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, int64(0), got.Pool)
	assert.Equal(t, 0, got.ClaimCount)
	assert.Equal(t, int64(100), f.balance(t, alice))
}

func TestAnnounceOutcome(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 10)
	_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 1, bob)
	require.NoError(t, err)

	// Too early.
	err = f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin)
	assert.ErrorIs(t, err, domain.ErrTooEarly)

	f.clock.Advance(2 * time.Hour)

	// Bad option, non-admin.
	assert.ErrorIs(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 9, admin), domain.ErrInvalidOption)
	assert.ErrorIs(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, alice), domain.ErrUnauthorized)

	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))
	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStateFinished, got.State)
	assert.Equal(t, 0, got.WinningOption)
	assert.Equal(t, int64(20), got.FinalPool)
	assert.Equal(t, 1, got.WinningClaims)
	assert.Equal(t, int64(20), got.PrizeShare)

	// Irreversible.
	err = f.engine.AnnounceOutcome(f.ctx, m.ID, 1, admin)
	assert.ErrorIs(t, err, domain.ErrMarketFinished)
	got, _ = f.engine.GetMarket(m.ID)
	assert.Equal(t, 0, got.WinningOption)
}

func TestAnnounceOutcome_NeverOpened(t *testing.T) {
	f := newFixture(t)
	m, err := f.engine.CreateMarket(f.ctx, CreateMarketParams{
		Name:        "never opened",
		Options:     []string{"a", "b"},
		TicketPrice: 1,
		ResultTime:  f.clock.Now().Add(time.Minute),
		Creator:     admin,
	})
	require.NoError(t, err)
	f.clock.Advance(time.Hour)
	assert.ErrorIs(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin), domain.ErrInvalidState)
}

func TestListMarketIDs_CreationOrder(t *testing.T) {
	f := newFixture(t)
	for range 3 {
		f.createActiveMarket(t, 5)
	}
	assert.Equal(t, []int64{1, 2, 3}, f.engine.ListMarketIDs())
	assert.Equal(t, 3, f.engine.CountMarkets())
}
