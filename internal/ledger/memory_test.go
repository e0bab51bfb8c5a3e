package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/easybet/easybet/internal/domain"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	bob   = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	carol = common.HexToAddress("0x00000000000000000000000000000000000000c3")
)

func TestMemory_FaucetOnce(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(500)

	got, err := l.ClaimInitial(ctx, alice)
	if err != nil {
		t.Fatalf("ClaimInitial: %v", err)
	}
	if got != 500 {
		t.Errorf("grant = %d, want 500", got)
	}

	if _, err := l.ClaimInitial(ctx, alice); !errors.Is(err, domain.ErrFaucetAlreadyClaimed) {
		t.Errorf("second claim err = %v, want ErrFaucetAlreadyClaimed", err)
	}
	if !errors.Is(domain.ErrFaucetAlreadyClaimed, domain.ErrInvalidState) {
		t.Error("faucet error should map to the invalid-state category")
	}

	bal, _ := l.BalanceOf(ctx, alice)
	if bal != 500 {
		t.Errorf("balance = %d, want 500", bal)
	}
}

func TestMemory_TransferInsufficient(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(0)
	_ = l.Grant(ctx, alice, 100)

	err := l.Transfer(ctx, alice, bob, 101)
	if !errors.Is(err, domain.ErrInsufficientBalance) {
		t.Fatalf("err = %v, want ErrInsufficientBalance", err)
	}
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Error("balance error should map to the insufficient-funds category")
	}

	// Failed transfer leaves balances untouched.
	if bal, _ := l.BalanceOf(ctx, alice); bal != 100 {
		t.Errorf("alice balance = %d, want 100", bal)
	}
	if bal, _ := l.BalanceOf(ctx, bob); bal != 0 {
		t.Errorf("bob balance = %d, want 0", bal)
	}
}

func TestMemory_TransferFromAllowance(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(0)
	_ = l.Grant(ctx, alice, 100)

	// No allowance yet.
	if err := l.TransferFrom(ctx, carol, alice, bob, 40); !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Fatalf("err = %v, want ErrInsufficientAllowance", err)
	}

	if err := l.Approve(ctx, alice, carol, 50); err != nil {
		t.Fatalf("Approve: %v", err)
	}
	if err := l.TransferFrom(ctx, carol, alice, bob, 40); err != nil {
		t.Fatalf("TransferFrom: %v", err)
	}

	if rem, _ := l.Allowance(ctx, alice, carol); rem != 10 {
		t.Errorf("remaining allowance = %d, want 10", rem)
	}
	if bal, _ := l.BalanceOf(ctx, bob); bal != 40 {
		t.Errorf("bob balance = %d, want 40", bal)
	}

	// Allowance exhausted.
	if err := l.TransferFrom(ctx, carol, alice, bob, 11); !errors.Is(err, domain.ErrInsufficientAllowance) {
		t.Errorf("err = %v, want ErrInsufficientAllowance", err)
	}
}

func TestMemory_SelfTransferFromNeedsNoAllowance(t *testing.T) {
	ctx := context.Background()
	l := NewMemory(0)
	_ = l.Grant(ctx, alice, 30)

	if err := l.TransferFrom(ctx, alice, alice, bob, 30); err != nil {
		t.Fatalf("TransferFrom(self): %v", err)
	}
	if bal, _ := l.BalanceOf(ctx, bob); bal != 30 {
		t.Errorf("bob balance = %d, want 30", bal)
	}
}
