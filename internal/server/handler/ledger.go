package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/easybet/easybet/internal/domain"
)

// LedgerService defines the credit-ledger operations the handler needs.
type LedgerService interface {
	ClaimFaucet(ctx context.Context, account domain.Account) (int64, error)
	HasClaimedFaucet(ctx context.Context, account domain.Account) (bool, error)
	Grant(ctx context.Context, to domain.Account, amount int64, caller domain.Account) error
	Approve(ctx context.Context, owner, spender domain.Account, amount int64) error
	Transfer(ctx context.Context, from, to domain.Account, amount int64) error
	BalanceOf(ctx context.Context, account domain.Account) (int64, error)
	AllowanceOf(ctx context.Context, owner, spender domain.Account) (int64, error)
	Escrow() domain.Account
}

// LedgerHandler serves faucet, grant, approval, and balance endpoints.
type LedgerHandler struct {
	ledger LedgerService
	logger *slog.Logger
}

// NewLedgerHandler creates a LedgerHandler with the given service and logger.
func NewLedgerHandler(ledger LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger: ledger,
		logger: logHandler(logger, "ledger"),
	}
}

type faucetRequest struct {
	Account string `json:"account"`
}

// ClaimFaucet pays the one-time starting balance to a first-time account.
// POST /api/ledger/faucet
func (h *LedgerHandler) ClaimFaucet(w http.ResponseWriter, r *http.Request) {
	var req faucetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	account, ok := parseAccount(req.Account)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	amount, err := h.ledger.ClaimFaucet(r.Context(), account)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"account": account.Hex(),
		"amount":  amount,
	})
}

type grantRequest struct {
	To     string `json:"to"`
	Amount int64  `json:"amount"`
	Caller string `json:"caller"`
}

// Grant credits an account. Admin only.
// POST /api/ledger/grant
func (h *LedgerHandler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	to, ok := parseAccount(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid to address")
		return
	}
	caller, ok := parseAccount(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.ledger.Grant(r.Context(), to, req.Amount, caller); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"to":     to.Hex(),
		"amount": req.Amount,
	})
}

type approveRequest struct {
	Owner   string `json:"owner"`
	Spender string `json:"spender,omitempty"`
	Amount  int64  `json:"amount"`
}

// Approve sets the owner's allowance for a spender. When spender is omitted
// it defaults to the engine escrow, the common case before a purchase.
// POST /api/ledger/approve
func (h *LedgerHandler) Approve(w http.ResponseWriter, r *http.Request) {
	var req approveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	owner, ok := parseAccount(req.Owner)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid owner address")
		return
	}
	spender := h.ledger.Escrow()
	if req.Spender != "" {
		if spender, ok = parseAccount(req.Spender); !ok {
			writeError(w, http.StatusBadRequest, "invalid spender address")
			return
		}
	}

	if err := h.ledger.Approve(r.Context(), owner, spender, req.Amount); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":   owner.Hex(),
		"spender": spender.Hex(),
		"amount":  req.Amount,
	})
}

type ledgerTransferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Amount int64  `json:"amount"`
}

// Transfer moves credits directly between accounts.
// POST /api/ledger/transfer
func (h *LedgerHandler) Transfer(w http.ResponseWriter, r *http.Request) {
	var req ledgerTransferRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	from, ok := parseAccount(req.From)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid from address")
		return
	}
	to, ok := parseAccount(req.To)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid to address")
		return
	}

	if err := h.ledger.Transfer(r.Context(), from, to, req.Amount); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"from":   from.Hex(),
		"to":     to.Hex(),
		"amount": req.Amount,
	})
}

// GetBalance returns an account's balance, its allowance toward the escrow,
// and whether it has taken the faucet grant.
// GET /api/accounts/{addr}/balance
func (h *LedgerHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account, ok := parseAccount(pathParam(r, "addr"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	balance, err := h.ledger.BalanceOf(r.Context(), account)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	allowance, err := h.ledger.AllowanceOf(r.Context(), account, h.ledger.Escrow())
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	claimed, err := h.ledger.HasClaimedFaucet(r.Context(), account)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account":          account.Hex(),
		"balance":          balance,
		"escrow_allowance": allowance,
		"faucet_claimed":   claimed,
	})
}
