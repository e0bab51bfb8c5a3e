package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/ledger"
)

var (
	admin = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
	dave  = common.HexToAddress("0x00000000000000000000000000000000000000d4")
)

// fakeClock is a mutable time source shared with the engine under test.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	engine *Engine
	ledger *ledger.Memory
	clock  *fakeClock
	ctx    context.Context
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := ledger.NewMemory(0)
	auth := StaticAuthorizer{
		Admins:       map[domain.Account]bool{admin: true},
		OpenCreation: true,
	}
	e := New(l, auth, WithClock(clock.Now))
	return &fixture{engine: e, ledger: l, clock: clock, ctx: context.Background()}
}

// fund credits an account and approves the engine escrow for the full
// amount, mirroring the approve-then-purchase flow of the original system.
func (f *fixture) fund(t *testing.T, account domain.Account, amount int64) {
	t.Helper()
	if err := f.ledger.Grant(f.ctx, account, amount); err != nil {
		t.Fatalf("grant: %v", err)
	}
	if err := f.ledger.Approve(f.ctx, account, f.engine.Escrow(), amount); err != nil {
		t.Fatalf("approve: %v", err)
	}
}

// createActiveMarket creates and activates a two-sided market with a draw
// option, resolving one hour from the fixture's current time.
func (f *fixture) createActiveMarket(t *testing.T, price int64) domain.Market {
	t.Helper()
	m, err := f.engine.CreateMarket(f.ctx, CreateMarketParams{
		Name:        "Reds vs Blues",
		SideA:       "Reds",
		SideB:       "Blues",
		Options:     []string{"Reds", "Blues", "draw"},
		TicketPrice: price,
		ResultTime:  f.clock.Now().Add(time.Hour),
		Creator:     admin,
	})
	if err != nil {
		t.Fatalf("CreateMarket: %v", err)
	}
	if err := f.engine.Activate(f.ctx, m.ID, admin); err != nil {
		t.Fatalf("Activate: %v", err)
	}
	return m
}

func (f *fixture) balance(t *testing.T, account domain.Account) int64 {
	t.Helper()
	bal, err := f.ledger.BalanceOf(f.ctx, account)
	if err != nil {
		t.Fatalf("BalanceOf: %v", err)
	}
	return bal
}
