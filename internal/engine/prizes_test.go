package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/ledger"
)

// frozenPayeeLedger wraps the in-memory ledger and refuses transfers to one
// account while frozen, so a payout leg can fail mid-batch.
type frozenPayeeLedger struct {
	*ledger.Memory
	payee  domain.Account
	frozen bool
}

func (l *frozenPayeeLedger) Transfer(ctx context.Context, from, to domain.Account, amount int64) error {
	if l.frozen && to == l.payee {
		return errors.New("payee account frozen")
	}
	return l.Memory.Transfer(ctx, from, to, amount)
}

// newFrozenPayeeFixture is newFixture with the engine running over a ledger
// that rejects payouts to payee until unfrozen. The fixture's fund and
// balance helpers keep talking to the underlying in-memory ledger.
func newFrozenPayeeFixture(t *testing.T, payee domain.Account) (*fixture, *frozenPayeeLedger) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	mem := ledger.NewMemory(0)
	fl := &frozenPayeeLedger{Memory: mem, payee: payee, frozen: true}
	auth := StaticAuthorizer{
		Admins:       map[domain.Account]bool{admin: true},
		OpenCreation: true,
	}
	e := New(fl, auth, WithClock(clock.Now))
	f := &fixture{engine: e, ledger: mem, clock: clock, ctx: context.Background()}
	return f, fl
}

func TestClaimPrize_WinnerTakesPool(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 10)
	win, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	lose, err := f.engine.PurchaseClaim(f.ctx, m.ID, 1, bob)
	require.NoError(t, err)

	// Nothing to claim before the outcome is in.
	_, err = f.engine.ClaimPrize(f.ctx, m.ID, win.TokenID, alice)
	assert.ErrorIs(t, err, domain.ErrMarketNotFinished)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	p, err := f.engine.ClaimPrize(f.ctx, m.ID, win.TokenID, alice)
	require.NoError(t, err)
	assert.Equal(t, int64(20), p.Amount)
	assert.Equal(t, alice, p.Recipient)
	assert.Equal(t, int64(20), f.balance(t, alice))
	assert.Equal(t, int64(0), f.balance(t, f.engine.Escrow()))

	// The losing claim never pays.
	_, err = f.engine.ClaimPrize(f.ctx, m.ID, lose.TokenID, bob)
	assert.ErrorIs(t, err, domain.ErrNotWinningTicket)
	assert.Equal(t, int64(0), f.balance(t, bob))

	// Sole winner paid: the market is fully settled.
	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStatePayoutComplete, got.State)
	assert.True(t, got.PrizesDistributed)
	assert.Equal(t, int64(0), got.Pool)
}

func TestClaimPrize_ExactlyOnce(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	_, err = f.engine.ClaimPrize(f.ctx, m.ID, c.TokenID, alice)
	require.NoError(t, err)
	_, err = f.engine.ClaimPrize(f.ctx, m.ID, c.TokenID, alice)
	assert.ErrorIs(t, err, domain.ErrAlreadyClaimed)

	// Paid once, not twice.
	assert.Equal(t, int64(10), f.balance(t, alice))
}

func TestClaimPrize_OnlyCurrentOwner(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	// Winning claims stay transferable after finalization.
	require.NoError(t, f.engine.TransferClaim(f.ctx, c.TokenID, alice, bob, alice))

	_, err = f.engine.ClaimPrize(f.ctx, m.ID, c.TokenID, alice)
	assert.ErrorIs(t, err, domain.ErrNotOwner)

	p, err := f.engine.ClaimPrize(f.ctx, m.ID, c.TokenID, bob)
	require.NoError(t, err)
	assert.Equal(t, bob, p.Recipient)
	assert.Equal(t, int64(10), f.balance(t, bob))
	assert.Equal(t, int64(0), f.balance(t, alice))
}

func TestDistributeAll_IntegerShareAndDust(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	for _, a := range []domain.Account{alice, bob, carol, dave} {
		f.fund(t, a, 10)
	}
	for _, a := range []domain.Account{alice, bob, carol} {
		_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, a)
		require.NoError(t, err)
	}
	_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 1, dave)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	// 40 / 3 winners = 13 each, 1 credit of dust.
	got, _ := f.engine.GetMarket(m.ID)
	require.Equal(t, int64(13), got.PrizeShare)

	dist, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.True(t, dist.Complete)
	assert.Equal(t, int64(39), dist.TotalPaid)
	assert.Equal(t, int64(1), dist.Remainder)
	require.Len(t, dist.Results, 3) // losing claim never appears
	for _, r := range dist.Results {
		assert.True(t, r.Paid)
		assert.Equal(t, int64(13), r.Amount)
	}
	assert.NotEmpty(t, dist.BatchID)

	for _, a := range []domain.Account{alice, bob, carol} {
		assert.Equal(t, int64(13), f.balance(t, a))
	}
	assert.Equal(t, int64(0), f.balance(t, dave))

	// Dust stays in escrow; the pool retains exactly the remainder.
	assert.Equal(t, int64(1), f.balance(t, f.engine.Escrow()))
	got, _ = f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStatePayoutComplete, got.State)
	assert.Equal(t, int64(1), got.Pool)

	rem, err := f.engine.RemainderOf(m.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), rem)
}

func TestDistributeAll_Idempotent(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 10)
	_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, bob)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	first, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(20), first.TotalPaid)
	assert.True(t, first.Complete)

	second, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, int64(0), second.TotalPaid)
	assert.True(t, second.Complete)
	require.Len(t, second.Results, 2)
	for _, r := range second.Results {
		assert.True(t, r.Skipped)
		assert.False(t, r.Paid)
	}

	// Balances unchanged by the re-run.
	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Equal(t, int64(10), f.balance(t, bob))
}

func TestDistributeAll_SkipsManuallyClaimed(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	f.fund(t, bob, 10)
	c1, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)
	_, err = f.engine.PurchaseClaim(f.ctx, m.ID, 0, bob)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	_, err = f.engine.ClaimPrize(f.ctx, m.ID, c1.TokenID, alice)
	require.NoError(t, err)
	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStatePayoutInProgress, got.State)

	dist, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.True(t, dist.Complete)
	assert.Equal(t, int64(10), dist.TotalPaid)
	require.Len(t, dist.Results, 2)
	assert.True(t, dist.Results[0].Skipped)
	assert.True(t, dist.Results[1].Paid)

	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Equal(t, int64(10), f.balance(t, bob))
}

func TestDistributeAll_PaysCurrentOwnerAfterTrade(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	c, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, alice)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	require.NoError(t, f.engine.TransferClaim(f.ctx, c.TokenID, alice, carol, alice))

	dist, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	require.Len(t, dist.Results, 1)
	assert.Equal(t, carol, dist.Results[0].Recipient)
	assert.Equal(t, int64(10), f.balance(t, carol))
	assert.Equal(t, int64(0), f.balance(t, alice))
}

func TestDistributeAll_PartialFailureRetriesOnlyFailures(t *testing.T) {
	f, fl := newFrozenPayeeFixture(t, bob)
	m := f.createActiveMarket(t, 10)
	for _, a := range []domain.Account{alice, bob, carol} {
		f.fund(t, a, 10)
		_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 0, a)
		require.NoError(t, err)
	}

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	// Bob's payout fails; the other two commit and are never rolled back.
	dist, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	require.Len(t, dist.Results, 3)
	assert.True(t, dist.Results[0].Paid)
	assert.False(t, dist.Results[1].Paid)
	assert.False(t, dist.Results[1].Skipped)
	assert.NotEmpty(t, dist.Results[1].Error)
	assert.Equal(t, bob, dist.Results[1].Recipient)
	assert.True(t, dist.Results[2].Paid)
	assert.Equal(t, int64(20), dist.TotalPaid)
	assert.False(t, dist.Complete)

	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Equal(t, int64(0), f.balance(t, bob))
	assert.Equal(t, int64(10), f.balance(t, carol))

	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStatePayoutInProgress, got.State)
	assert.False(t, got.PrizesDistributed)
	assert.Equal(t, 2, got.PaidClaims)

	// A re-run after the payee unfreezes pays exactly the failed token.
	fl.frozen = false
	retry, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	require.Len(t, retry.Results, 3)
	assert.True(t, retry.Results[0].Skipped)
	assert.True(t, retry.Results[1].Paid)
	assert.True(t, retry.Results[2].Skipped)
	assert.Equal(t, int64(10), retry.TotalPaid)
	assert.True(t, retry.Complete)

	// No double pay on any leg.
	assert.Equal(t, int64(10), f.balance(t, alice))
	assert.Equal(t, int64(10), f.balance(t, bob))
	assert.Equal(t, int64(10), f.balance(t, carol))
	assert.Equal(t, int64(0), f.balance(t, f.engine.Escrow()))

	got, _ = f.engine.GetMarket(m.ID)
	assert.Equal(t, domain.MarketStatePayoutComplete, got.State)
	assert.True(t, got.PrizesDistributed)
}

func TestDistributeAll_Guards(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)

	_, err := f.engine.DistributeAll(f.ctx, m.ID, alice)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	_, err = f.engine.DistributeAll(f.ctx, m.ID, admin)
	assert.ErrorIs(t, err, domain.ErrMarketNotFinished)

	_, err = f.engine.DistributeAll(f.ctx, 999, admin)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.engine.RemainderOf(m.ID)
	assert.ErrorIs(t, err, domain.ErrMarketNotFinished)
}

func TestAnnounceOutcome_NoWinners(t *testing.T) {
	f := newFixture(t)
	m := f.createActiveMarket(t, 10)
	f.fund(t, alice, 10)
	_, err := f.engine.PurchaseClaim(f.ctx, m.ID, 1, alice)
	require.NoError(t, err)

	f.clock.Advance(2 * time.Hour)
	require.NoError(t, f.engine.AnnounceOutcome(f.ctx, m.ID, 0, admin))

	got, _ := f.engine.GetMarket(m.ID)
	assert.Equal(t, 0, got.WinningClaims)
	assert.Equal(t, int64(0), got.PrizeShare)

	// Nothing to pay; the whole pool is remainder.
	dist, err := f.engine.DistributeAll(f.ctx, m.ID, admin)
	require.NoError(t, err)
	assert.Empty(t, dist.Results)
	assert.True(t, dist.Complete)
	assert.Equal(t, int64(10), dist.Remainder)
}
