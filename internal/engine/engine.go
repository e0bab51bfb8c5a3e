// Package engine implements the market lifecycle state machine, the
// claim-token registry, the embedded order book, and the prize distributor.
// All state is in memory and authoritative; every state-mutating operation
// on a market runs under that market's mutex as one indivisible unit, so no
// partial effect is ever observable. Persistence and eventing happen in the
// service layer after the engine commits.
package engine

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/ledger"
)

// DefaultEscrow is the ledger account that holds every market's pool. The
// original system holds stakes in the marketplace contract's own balance;
// this is the in-process equivalent.
var DefaultEscrow = common.HexToAddress("0x000000000000000000000000000000000000ea5b")

// Authorizer answers the engine's two authorization questions. Identity and
// signature verification belong to the host environment; the engine only
// asks whether an already-authenticated account may act.
type Authorizer interface {
	IsAdmin(account domain.Account) bool
	CanCreate(account domain.Account) bool
}

// StaticAuthorizer is a fixed-set Authorizer: the listed admins may
// administer and create; anyone may create when OpenCreation is set.
type StaticAuthorizer struct {
	Admins       map[domain.Account]bool
	OpenCreation bool
}

func (a StaticAuthorizer) IsAdmin(account domain.Account) bool {
	return a.Admins[account]
}

func (a StaticAuthorizer) CanCreate(account domain.Account) bool {
	return a.OpenCreation || a.Admins[account]
}

// Engine composes the market directory, claim registry, order book, and
// credit ledger into the single command surface the service layer drives.
type Engine struct {
	dir    *Directory
	reg    *ClaimRegistry
	book   *OrderBook
	ledger ledger.CreditLedger
	auth   Authorizer
	escrow domain.Account
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithEscrow overrides the escrow account holding market pools.
func WithEscrow(escrow domain.Account) Option {
	return func(e *Engine) { e.escrow = escrow }
}

// New creates an Engine over the given ledger and authorizer.
func New(l ledger.CreditLedger, auth Authorizer, opts ...Option) *Engine {
	reg := NewClaimRegistry()
	e := &Engine{
		dir:    NewDirectory(),
		reg:    reg,
		book:   NewOrderBook(reg),
		ledger: l,
		auth:   auth,
		escrow: DefaultEscrow,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Escrow returns the ledger account holding market pools. Buyers must
// approve this account before purchasing.
func (e *Engine) Escrow() domain.Account {
	return e.escrow
}

// Registry exposes the claim registry's read surface.
func (e *Engine) Registry() *ClaimRegistry {
	return e.reg
}

// --- Read-only queries. These reflect the latest committed state and never
// block behind mutations on other markets.

// GetMarket returns the market record.
func (e *Engine) GetMarket(id int64) (domain.Market, error) {
	return e.dir.Get(id)
}

// ListMarketIDs returns every market id in creation order.
func (e *Engine) ListMarketIDs() []int64 {
	return e.dir.IDs()
}

// CountMarkets returns the number of markets ever created.
func (e *Engine) CountMarkets() int {
	return e.dir.Count()
}

// OrderBookOf returns the active listings of a market in listing order,
// lazily evicting listings whose token changed hands out of band.
func (e *Engine) OrderBookOf(marketID int64) ([]domain.Listing, error) {
	if _, err := e.dir.Get(marketID); err != nil {
		return nil, err
	}
	return e.book.Snapshot(marketID), nil
}

// DetailsOf returns the claim record enriched with outcome information when
// the owning market is finalized.
func (e *Engine) DetailsOf(tokenID int64) (domain.ClaimDetails, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return domain.ClaimDetails{}, err
	}
	m, err := e.dir.Get(c.MarketID)
	if err != nil {
		return domain.ClaimDetails{}, err
	}
	d := domain.ClaimDetails{Claim: c}
	if c.ChosenOption >= 0 && c.ChosenOption < len(m.Options) {
		d.OptionLabel = m.Options[c.ChosenOption]
	}
	d.Listed = e.book.IsListed(c.MarketID, tokenID)
	if m.State.Finalized() {
		d.Finalized = true
		d.Winner = c.ChosenOption == m.WinningOption
	}
	return d, nil
}

// ChoiceOf returns the option index a claim was minted on.
func (e *Engine) ChoiceOf(marketID, tokenID int64) (int, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return 0, err
	}
	if c.MarketID != marketID {
		return 0, domain.ErrNotFound
	}
	return c.ChosenOption, nil
}

// IsPrizeClaimed reports whether a claim's prize has been paid.
func (e *Engine) IsPrizeClaimed(marketID, tokenID int64) (bool, error) {
	c, err := e.reg.DetailsOf(tokenID)
	if err != nil {
		return false, err
	}
	if c.MarketID != marketID {
		return false, domain.ErrNotFound
	}
	return c.PrizeClaimed, nil
}

// ClaimsOf returns the details of every claim currently owned by owner, in
// mint order.
func (e *Engine) ClaimsOf(owner domain.Account) []domain.ClaimDetails {
	var out []domain.ClaimDetails
	for id := range e.reg.ClaimsOf(owner) {
		if d, err := e.DetailsOf(id); err == nil {
			out = append(out, d)
		}
	}
	return out
}

// requireAdmin maps a failed admin check to ErrUnauthorized.
func (e *Engine) requireAdmin(caller domain.Account) error {
	if !e.auth.IsAdmin(caller) {
		return domain.ErrUnauthorized
	}
	return nil
}
