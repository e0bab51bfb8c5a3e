package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/easybet/easybet/internal/domain"
)

// PrizeService defines the payout operations the handler needs.
type PrizeService interface {
	ClaimPrize(ctx context.Context, marketID, tokenID int64, caller domain.Account) (domain.Payout, error)
	DistributeAll(ctx context.Context, marketID int64, caller domain.Account) (domain.Distribution, string, error)
	Payouts(ctx context.Context, marketID int64) ([]domain.Payout, error)
	Remainder(ctx context.Context, marketID int64) (int64, error)
	SettlementReports(ctx context.Context, marketID int64) ([]domain.BlobInfo, error)
}

// ClaimResolver resolves a claim token to its owning market.
type ClaimResolver interface {
	ClaimDetails(ctx context.Context, tokenID int64) (domain.ClaimDetails, error)
}

// PrizeHandler serves prize claims, batch distribution, and settlement
// queries.
type PrizeHandler struct {
	prizes   PrizeService
	resolver ClaimResolver
	logger   *slog.Logger
}

// NewPrizeHandler creates a PrizeHandler with the given services and logger.
func NewPrizeHandler(prizes PrizeService, resolver ClaimResolver, logger *slog.Logger) *PrizeHandler {
	return &PrizeHandler{
		prizes:   prizes,
		resolver: resolver,
		logger:   logHandler(logger, "prize"),
	}
}

// ClaimPrize pays one winning claim to its current owner.
// POST /api/claims/{tokenId}/prize
func (h *PrizeHandler) ClaimPrize(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "tokenId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	var req callerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAccount(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	details, err := h.resolver.ClaimDetails(r.Context(), tokenID)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	payout, err := h.prizes.ClaimPrize(r.Context(), details.MarketID, tokenID, caller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payout)
}

// distributionResponse pairs the distribution with its archived settlement
// report path (empty when the archive upload failed).
type distributionResponse struct {
	domain.Distribution
	Report string `json:"report,omitempty"`
}

// Distribute pays every unclaimed winning claim of a finalized market in one
// batch.
// POST /api/markets/{id}/distribute
func (h *PrizeHandler) Distribute(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req callerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAccount(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	dist, report, err := h.prizes.DistributeAll(r.Context(), marketID, caller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, distributionResponse{Distribution: dist, Report: report})
}

// ListPayouts returns a market's committed payouts.
// GET /api/markets/{id}/payouts
func (h *PrizeHandler) ListPayouts(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	payouts, err := h.prizes.Payouts(r.Context(), marketID)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	remainder, err := h.prizes.Remainder(r.Context(), marketID)
	if err != nil {
		// Remainder only exists for finalized markets; report payouts anyway.
		remainder = 0
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"payouts":   payouts,
		"remainder": remainder,
	})
}

// ListSettlements returns the archived settlement reports of a market.
// GET /api/markets/{id}/settlements
func (h *PrizeHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	reports, err := h.prizes.SettlementReports(r.Context(), marketID)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"reports":   reports,
	})
}
