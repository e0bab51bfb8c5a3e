package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
	"github.com/easybet/easybet/internal/ledger"
)

// LedgerService exposes the credit ledger over the API: faucet claims,
// admin grants, allowance approvals, and balance queries. The engine's
// authorizer guards the grant path.
type LedgerService struct {
	ledger        ledger.CreditLedger
	faucet        ledger.Faucet
	auth          engine.Authorizer
	escrow        domain.Account
	faucetEnabled bool
	audit         domain.AuditStore
	logger        *slog.Logger
}

// NewLedgerService creates a LedgerService with all required dependencies.
func NewLedgerService(
	l ledger.CreditLedger,
	faucet ledger.Faucet,
	auth engine.Authorizer,
	escrow domain.Account,
	faucetEnabled bool,
	audit domain.AuditStore,
	logger *slog.Logger,
) *LedgerService {
	return &LedgerService{
		ledger:        l,
		faucet:        faucet,
		auth:          auth,
		escrow:        escrow,
		faucetEnabled: faucetEnabled,
		audit:         audit,
		logger:        logger,
	}
}

// Escrow returns the account that holds market pools. Buyers approve it
// before purchasing.
func (s *LedgerService) Escrow() domain.Account {
	return s.escrow
}

// ClaimFaucet pays the one-time starting balance to a first-time account.
func (s *LedgerService) ClaimFaucet(ctx context.Context, account domain.Account) (int64, error) {
	if !s.faucetEnabled {
		return 0, fmt.Errorf("faucet is disabled: %w", domain.ErrInvalidState)
	}
	amount, err := s.faucet.ClaimInitial(ctx, account)
	if err != nil {
		return 0, err
	}
	auditLog(ctx, s.audit, s.logger, "ledger.faucet", map[string]any{
		"account": account.Hex(),
		"amount":  amount,
	})
	s.logger.InfoContext(ctx, "ledger_service: faucet claimed",
		slog.String("account", account.Hex()),
		slog.Int64("amount", amount),
	)
	return amount, nil
}

// HasClaimedFaucet reports whether the account already took its one-time
// grant.
func (s *LedgerService) HasClaimedFaucet(ctx context.Context, account domain.Account) (bool, error) {
	return s.faucet.HasClaimedInitial(ctx, account)
}

// Grant credits an account out of thin air. Admin only.
func (s *LedgerService) Grant(ctx context.Context, to domain.Account, amount int64, caller domain.Account) error {
	if !s.auth.IsAdmin(caller) {
		return domain.ErrUnauthorized
	}
	if amount <= 0 {
		return fmt.Errorf("grant amount must be positive: %w", domain.ErrInvalidParameters)
	}
	if err := s.faucet.Grant(ctx, to, amount); err != nil {
		return err
	}
	auditLog(ctx, s.audit, s.logger, "ledger.grant", map[string]any{
		"to":     to.Hex(),
		"amount": amount,
		"by":     caller.Hex(),
	})
	return nil
}

// Approve sets the caller's allowance for a spender. ApproveEscrow is the
// common case before a purchase.
func (s *LedgerService) Approve(ctx context.Context, owner, spender domain.Account, amount int64) error {
	if amount < 0 {
		return fmt.Errorf("allowance must not be negative: %w", domain.ErrInvalidParameters)
	}
	return s.ledger.Approve(ctx, owner, spender, amount)
}

// ApproveEscrow sets the caller's allowance for the engine escrow.
func (s *LedgerService) ApproveEscrow(ctx context.Context, owner domain.Account, amount int64) error {
	return s.Approve(ctx, owner, s.escrow, amount)
}

// Transfer moves credits directly between accounts.
func (s *LedgerService) Transfer(ctx context.Context, from, to domain.Account, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("transfer amount must be positive: %w", domain.ErrInvalidParameters)
	}
	start := time.Now()
	if err := s.ledger.Transfer(ctx, from, to, amount); err != nil {
		return err
	}
	s.logger.DebugContext(ctx, "ledger_service: transfer",
		slog.String("from", from.Hex()),
		slog.String("to", to.Hex()),
		slog.Int64("amount", amount),
		slog.Duration("took", time.Since(start)),
	)
	return nil
}

// BalanceOf returns an account's balance.
func (s *LedgerService) BalanceOf(ctx context.Context, account domain.Account) (int64, error) {
	return s.ledger.BalanceOf(ctx, account)
}

// AllowanceOf returns how much spender may move out of owner's balance.
func (s *LedgerService) AllowanceOf(ctx context.Context, owner, spender domain.Account) (int64, error) {
	return s.ledger.Allowance(ctx, owner, spender)
}
