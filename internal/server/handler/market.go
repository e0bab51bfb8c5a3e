package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
)

// MarketService defines the methods that the market handler requires from the
// service layer. It is declared locally so the handler package does not depend
// on the concrete service implementation.
type MarketService interface {
	Create(ctx context.Context, p engine.CreateMarketParams) (domain.Market, error)
	Activate(ctx context.Context, marketID int64, caller domain.Account) (domain.Market, error)
	Deactivate(ctx context.Context, marketID int64, caller domain.Account) (domain.Market, error)
	Announce(ctx context.Context, marketID int64, option int, caller domain.Account) (domain.Market, error)
	Purchase(ctx context.Context, marketID int64, option int, buyer domain.Account) (domain.Claim, error)
	Get(ctx context.Context, id int64) (domain.Market, error)
	List(ctx context.Context) []domain.Market
	Count(ctx context.Context) int
	History(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error)
}

// MarketHandler serves market lifecycle and claim purchase endpoints.
type MarketHandler struct {
	markets MarketService
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler with the given service and logger.
func NewMarketHandler(markets MarketService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		markets: markets,
		logger:  logHandler(logger, "market"),
	}
}

// marketResponse is a market plus its derived remainder, which only the
// engine can compute.
type marketResponse struct {
	domain.Market
	Remainder int64 `json:"remainder"`
}

func toMarketResponse(m domain.Market) marketResponse {
	return marketResponse{Market: m, Remainder: m.Remainder()}
}

type createMarketRequest struct {
	Name        string   `json:"name"`
	SideA       string   `json:"side_a"`
	SideB       string   `json:"side_b"`
	Options     []string `json:"options"`
	TicketPrice int64    `json:"ticket_price"`
	ResultTime  string   `json:"result_time"`
	Creator     string   `json:"creator"`
}

// CreateMarket registers a new market.
// POST /api/markets
func (h *MarketHandler) CreateMarket(w http.ResponseWriter, r *http.Request) {
	var req createMarketRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	creator, ok := parseAccount(req.Creator)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid creator address")
		return
	}
	resultTime, err := time.Parse(time.RFC3339, req.ResultTime)
	if err != nil {
		writeError(w, http.StatusBadRequest, "result_time must be RFC3339")
		return
	}

	m, err := h.markets.Create(r.Context(), engine.CreateMarketParams{
		Name:        req.Name,
		SideA:       req.SideA,
		SideB:       req.SideB,
		Options:     req.Options,
		TicketPrice: req.TicketPrice,
		ResultTime:  resultTime,
		Creator:     creator,
	})
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toMarketResponse(m))
}

// callerRequest is the body of lifecycle commands that only need the acting
// account.
type callerRequest struct {
	Caller string `json:"caller"`
}

func (h *MarketHandler) lifecycle(w http.ResponseWriter, r *http.Request,
	op func(ctx context.Context, id int64, caller domain.Account) (domain.Market, error),
) {
	id, ok := pathID(r, "id")
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

	m, err := op(r.Context(), id, caller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m))
}

// Activate opens (or reopens) sales on a market.
// POST /api/markets/{id}/activate
func (h *MarketHandler) Activate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.markets.Activate)
}

// Deactivate pauses sales on a market.
// POST /api/markets/{id}/deactivate
func (h *MarketHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, h.markets.Deactivate)
}

type announceRequest struct {
	Option int    `json:"option"`
	Caller string `json:"caller"`
}

// Announce finalizes a market's outcome.
// POST /api/markets/{id}/announce
func (h *MarketHandler) Announce(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req announceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, ok := parseAccount(req.Caller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	m, err := h.markets.Announce(r.Context(), id, req.Option, caller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m))
}

type purchaseRequest struct {
	Option int    `json:"option"`
	Buyer  string `json:"buyer"`
}

// PurchaseClaim buys one claim on an option of an active market.
// POST /api/markets/{id}/claims
func (h *MarketHandler) PurchaseClaim(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	var req purchaseRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buyer, ok := parseAccount(req.Buyer)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid buyer address")
		return
	}

	claim, err := h.markets.Purchase(r.Context(), id, req.Option, buyer)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, claim)
}

// listMarketsResponse wraps the list endpoint output with metadata.
type listMarketsResponse struct {
	Markets []marketResponse `json:"markets"`
	Total   int              `json:"total"`
	Limit   int              `json:"limit"`
	Offset  int              `json:"offset"`
}

// ListMarkets returns live markets from the engine with pagination.
// GET /api/markets?limit=50&offset=0
func (h *MarketHandler) ListMarkets(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	all := h.markets.List(r.Context())
	total := len(all)

	start := opts.Offset
	if start > total {
		start = total
	}
	end := start + opts.Limit
	if end > total {
		end = total
	}

	page := make([]marketResponse, 0, end-start)
	for _, m := range all[start:end] {
		page = append(page, toMarketResponse(m))
	}

	writeJSON(w, http.StatusOK, listMarketsResponse{
		Markets: page,
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
}

// GetMarket returns a single market by its ID.
// GET /api/markets/{id}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	m, err := h.markets.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toMarketResponse(m))
}

// MarketHistory returns persisted market snapshots, paginated. Unlike
// ListMarkets this survives restarts.
// GET /api/markets/history
func (h *MarketHandler) MarketHistory(w http.ResponseWriter, r *http.Request) {
	opts := parseListOpts(r)

	markets, err := h.markets.History(r.Context(), opts)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"markets": markets,
		"limit":   opts.Limit,
		"offset":  opts.Offset,
	})
}
