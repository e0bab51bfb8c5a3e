package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/easybet/easybet/internal/domain"
)

// ClaimService defines the claim-token operations the handler needs.
type ClaimService interface {
	ClaimDetails(ctx context.Context, tokenID int64) (domain.ClaimDetails, error)
	ClaimsOf(ctx context.Context, owner domain.Account) []domain.ClaimDetails
	Transfer(ctx context.Context, tokenID int64, from, to, caller domain.Account) error
}

// ClaimHandler serves claim-token queries and out-of-band transfers.
type ClaimHandler struct {
	claims ClaimService
	logger *slog.Logger
}

// NewClaimHandler creates a ClaimHandler with the given service and logger.
func NewClaimHandler(claims ClaimService, logger *slog.Logger) *ClaimHandler {
	return &ClaimHandler{
		claims: claims,
		logger: logHandler(logger, "claim"),
	}
}

// GetClaim returns the enriched view of one claim token.
// GET /api/claims/{tokenId}
func (h *ClaimHandler) GetClaim(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "tokenId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	details, err := h.claims.ClaimDetails(r.Context(), tokenID)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

type transferRequest struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Caller string `json:"caller"`
}

// TransferClaim moves a claim between accounts outside the order book.
// POST /api/claims/{tokenId}/transfer
func (h *ClaimHandler) TransferClaim(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "tokenId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	var req transferRequest
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
	caller := from
	if req.Caller != "" {
		if caller, ok = parseAccount(req.Caller); !ok {
			writeError(w, http.StatusBadRequest, "invalid caller address")
			return
		}
	}

	if err := h.claims.Transfer(r.Context(), tokenID, from, to, caller); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token_id": tokenID,
		"from":     from.Hex(),
		"to":       to.Hex(),
	})
}

// ListClaimsOf returns every claim currently owned by an account, in mint
// order.
// GET /api/accounts/{addr}/claims
func (h *ClaimHandler) ListClaimsOf(w http.ResponseWriter, r *http.Request) {
	owner, ok := parseAccount(pathParam(r, "addr"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid account address")
		return
	}

	claims := h.claims.ClaimsOf(r.Context(), owner)
	writeJSON(w, http.StatusOK, map[string]any{
		"owner":  owner.Hex(),
		"claims": claims,
		"count":  len(claims),
	})
}
