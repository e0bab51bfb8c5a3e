package ledger

import (
	"context"
	"sync"

	"github.com/easybet/easybet/internal/domain"
)

// DefaultInitialGrant is the one-time faucet amount, in smallest credit
// units.
const DefaultInitialGrant int64 = 1000

// Memory is an in-process CreditLedger with allowance bookkeeping and a
// one-time faucet. Every operation is atomic under a single mutex; a
// transfer either fully commits or leaves no trace.
type Memory struct {
	mu           sync.RWMutex
	balances     map[domain.Account]int64
	allowances   map[domain.Account]map[domain.Account]int64
	claimed      map[domain.Account]bool
	initialGrant int64
}

// NewMemory creates an empty in-memory ledger with the given faucet amount.
// A non-positive grant disables the faucet.
func NewMemory(initialGrant int64) *Memory {
	return &Memory{
		balances:     make(map[domain.Account]int64),
		allowances:   make(map[domain.Account]map[domain.Account]int64),
		claimed:      make(map[domain.Account]bool),
		initialGrant: initialGrant,
	}
}

// BalanceOf returns the current balance of account.
func (l *Memory) BalanceOf(_ context.Context, account domain.Account) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balances[account], nil
}

// Allowance returns how much spender may still move out of owner's balance.
func (l *Memory) Allowance(_ context.Context, owner, spender domain.Account) (int64, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.allowances[owner][spender], nil
}

// Approve sets (not increments) spender's allowance over owner's balance.
func (l *Memory) Approve(_ context.Context, owner, spender domain.Account, amount int64) error {
	if amount < 0 {
		return domain.ErrInvalidParameters
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	m := l.allowances[owner]
	if m == nil {
		m = make(map[domain.Account]int64)
		l.allowances[owner] = m
	}
	m[spender] = amount
	return nil
}

// Transfer moves amount from from to to.
func (l *Memory) Transfer(_ context.Context, from, to domain.Account, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidParameters
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// TransferFrom moves amount from from to to, spending spender's allowance.
// A spender moving its own funds needs no allowance.
func (l *Memory) TransferFrom(_ context.Context, spender, from, to domain.Account, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidParameters
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if spender != from {
		if l.allowances[from][spender] < amount {
			return domain.ErrInsufficientAllowance
		}
	}
	if err := l.move(from, to, amount); err != nil {
		return err
	}
	if spender != from {
		l.allowances[from][spender] -= amount
	}
	return nil
}

// ClaimInitial pays the one-time faucet grant to account.
func (l *Memory) ClaimInitial(_ context.Context, account domain.Account) (int64, error) {
	if l.initialGrant <= 0 {
		return 0, domain.ErrInvalidState
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.claimed[account] {
		return 0, domain.ErrFaucetAlreadyClaimed
	}
	l.claimed[account] = true
	l.balances[account] += l.initialGrant
	return l.initialGrant, nil
}

// HasClaimedInitial reports whether account already used the faucet.
func (l *Memory) HasClaimedInitial(_ context.Context, account domain.Account) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.claimed[account], nil
}

// Grant mints amount new credits to to. Authorization is the caller's
// responsibility.
func (l *Memory) Grant(_ context.Context, to domain.Account, amount int64) error {
	if amount <= 0 {
		return domain.ErrInvalidParameters
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[to] += amount
	return nil
}

// move is the shared balance mutation; the caller holds the write lock.
func (l *Memory) move(from, to domain.Account, amount int64) error {
	if l.balances[from] < amount {
		return domain.ErrInsufficientBalance
	}
	l.balances[from] -= amount
	l.balances[to] += amount
	return nil
}

// Compile-time interface checks.
var (
	_ CreditLedger = (*Memory)(nil)
	_ Faucet       = (*Memory)(nil)
)
