package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/easybet/easybet/internal/domain"
)

// TradeService defines the order-book operations the handler needs.
type TradeService interface {
	List(ctx context.Context, marketID, tokenID, price int64, caller domain.Account) (domain.Listing, error)
	Cancel(ctx context.Context, tokenID int64, caller domain.Account) (domain.Listing, error)
	Buy(ctx context.Context, marketID, tokenID int64, buyer domain.Account) (domain.Trade, error)
	OrderBook(ctx context.Context, marketID int64) ([]domain.Listing, error)
	TradesOf(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Trade, error)
}

// TradeHandler serves the resale order book: listing, cancelling, buying.
type TradeHandler struct {
	trades TradeService
	logger *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(trades TradeService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		trades: trades,
		logger: logHandler(logger, "trade"),
	}
}

type createListingRequest struct {
	MarketID int64  `json:"market_id"`
	TokenID  int64  `json:"token_id"`
	Price    int64  `json:"price"`
	Seller   string `json:"seller"`
}

// CreateListing places a claim for sale.
// POST /api/listings
func (h *TradeHandler) CreateListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	seller, ok := parseAccount(req.Seller)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid seller address")
		return
	}

	listing, err := h.trades.List(r.Context(), req.MarketID, req.TokenID, req.Price, seller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, listing)
}

// CancelListing withdraws a listing. The acting account comes from the
// `caller` query parameter since DELETE requests carry no body.
// DELETE /api/listings/{tokenId}?caller=0x...
func (h *TradeHandler) CancelListing(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "tokenId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	caller, ok := parseAccount(r.URL.Query().Get("caller"))
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	cancelled, err := h.trades.Cancel(r.Context(), tokenID, caller)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelled)
}

type buyRequest struct {
	MarketID int64  `json:"market_id"`
	Buyer    string `json:"buyer"`
}

// BuyListing settles a listing at its asked price.
// POST /api/listings/{tokenId}/buy
func (h *TradeHandler) BuyListing(w http.ResponseWriter, r *http.Request) {
	tokenID, ok := pathID(r, "tokenId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	var req buyRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	buyer, ok := parseAccount(req.Buyer)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid buyer address")
		return
	}

	trade, err := h.trades.Buy(r.Context(), req.MarketID, tokenID, buyer)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, trade)
}

// OrderBook returns a market's active listings.
// GET /api/markets/{id}/orderbook
func (h *TradeHandler) OrderBook(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}

	book, err := h.trades.OrderBook(r.Context(), marketID)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"listings":  book,
		"count":     len(book),
	})
}

// ListTrades returns a market's settled trades, most recent first.
// GET /api/markets/{id}/trades
func (h *TradeHandler) ListTrades(w http.ResponseWriter, r *http.Request) {
	marketID, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid market id")
		return
	}
	opts := parseListOpts(r)

	trades, err := h.trades.TradesOf(r.Context(), marketID, opts)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_id": marketID,
		"trades":    trades,
		"limit":     opts.Limit,
		"offset":    opts.Offset,
	})
}
