// Package ledger defines the fungible credit ledger the engine consumes.
// The engine never owns balances: stakes and payouts move through this
// interface, and the concrete implementation (in-process here, a chain or a
// remote service elsewhere) enforces balance and allowance semantics.
package ledger

import (
	"context"

	"github.com/easybet/easybet/internal/domain"
)

// CreditLedger is the transfer primitive the engine depends on. Semantics
// follow the ERC-20 shape of the original BetToken: TransferFrom spends the
// spender's allowance granted by from.
type CreditLedger interface {
	BalanceOf(ctx context.Context, account domain.Account) (int64, error)
	Allowance(ctx context.Context, owner, spender domain.Account) (int64, error)
	Approve(ctx context.Context, owner, spender domain.Account, amount int64) error
	Transfer(ctx context.Context, from, to domain.Account, amount int64) error
	TransferFrom(ctx context.Context, spender, from, to domain.Account, amount int64) error
}

// Faucet is the optional self-service grant surface of the ledger. The
// original token contract hands every new account a one-time starting
// balance and lets the owner grant extra credits.
type Faucet interface {
	ClaimInitial(ctx context.Context, account domain.Account) (int64, error)
	HasClaimedInitial(ctx context.Context, account domain.Account) (bool, error)
	Grant(ctx context.Context, to domain.Account, amount int64) error
}
