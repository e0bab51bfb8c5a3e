package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
)

// TradeService drives the order book: listing claims for resale, cancelling
// listings, and settling purchases. Listing rows in Postgres mirror the
// engine's book; the cached snapshot is invalidated on every mutation and
// rebuilt on read.
type TradeService struct {
	engine   *engine.Engine
	listings domain.ListingStore
	trades   domain.TradeStore
	books    domain.OrderBookCache
	bus      domain.SignalBus
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewTradeService creates a TradeService with all required dependencies.
func NewTradeService(
	eng *engine.Engine,
	listings domain.ListingStore,
	trades domain.TradeStore,
	books domain.OrderBookCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *TradeService {
	return &TradeService{
		engine:   eng,
		listings: listings,
		trades:   trades,
		books:    books,
		bus:      bus,
		audit:    audit,
		logger:   logger,
	}
}

func (s *TradeService) invalidateBook(ctx context.Context, marketID int64) {
	if err := s.books.Invalidate(ctx, marketID); err != nil {
		s.logger.WarnContext(ctx, "trade_service: book invalidate failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// closeListing marks the persisted listing row closed, tolerating rows the
// store never saw.
func (s *TradeService) closeListing(ctx context.Context, tokenID int64, reason string) {
	if err := s.listings.Close(ctx, tokenID, reason); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "trade_service: close listing failed",
			slog.Int64("token_id", tokenID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
	}
}

// List places a claim for sale.
func (s *TradeService) List(ctx context.Context, marketID, tokenID, price int64, caller domain.Account) (domain.Listing, error) {
	listing, err := s.engine.List(ctx, marketID, tokenID, price, caller)
	if err != nil {
		return domain.Listing{}, err
	}

	if err := s.listings.Insert(ctx, listing); err != nil {
		s.logger.ErrorContext(ctx, "trade_service: persist listing failed",
			slog.Int64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
	s.invalidateBook(ctx, marketID)
	publish(ctx, s.bus, s.logger, domain.BookChannel(marketID), domain.Event{
		Type:     domain.EventListingCreated,
		MarketID: marketID,
		TokenID:  tokenID,
		Payload:  listing,
		At:       listing.ListedAt,
	})

	s.logger.InfoContext(ctx, "trade_service: listing created",
		slog.Int64("market_id", marketID),
		slog.Int64("token_id", tokenID),
		slog.Int64("price", price),
	)
	return listing, nil
}

// Cancel withdraws a listing.
func (s *TradeService) Cancel(ctx context.Context, tokenID int64, caller domain.Account) (domain.Listing, error) {
	cancelled, err := s.engine.Cancel(ctx, tokenID, caller)
	if err != nil {
		return domain.Listing{}, err
	}

	s.closeListing(ctx, tokenID, "cancelled")
	s.invalidateBook(ctx, cancelled.MarketID)
	publish(ctx, s.bus, s.logger, domain.BookChannel(cancelled.MarketID), domain.Event{
		Type:     domain.EventListingCancelled,
		MarketID: cancelled.MarketID,
		TokenID:  tokenID,
		Payload:  cancelled,
		At:       cancelled.ListedAt,
	})
	return cancelled, nil
}

// Buy settles a listing. A stale listing (seller no longer owns the token)
// is purged by the engine; the persisted row is closed to match before the
// error is returned.
func (s *TradeService) Buy(ctx context.Context, marketID, tokenID int64, buyer domain.Account) (domain.Trade, error) {
	trade, err := s.engine.Buy(ctx, marketID, tokenID, buyer)
	if err != nil {
		if errors.Is(err, domain.ErrStaleListing) {
			s.closeListing(ctx, tokenID, "stale")
			s.invalidateBook(ctx, marketID)
		}
		return domain.Trade{}, err
	}

	if err := s.trades.Insert(ctx, trade); err != nil {
		s.logger.ErrorContext(ctx, "trade_service: persist trade failed",
			slog.Int64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
	s.closeListing(ctx, tokenID, "settled")
	s.invalidateBook(ctx, marketID)
	auditLog(ctx, s.audit, s.logger, "trade.settled", map[string]any{
		"market_id": marketID,
		"token_id":  tokenID,
		"price":     trade.Price,
		"seller":    trade.Seller.Hex(),
		"buyer":     trade.Buyer.Hex(),
	})
	publish(ctx, s.bus, s.logger, domain.BookChannel(marketID), domain.Event{
		Type:     domain.EventTradeSettled,
		MarketID: marketID,
		TokenID:  tokenID,
		Payload:  trade,
		At:       trade.TradedAt,
	})

	s.logger.InfoContext(ctx, "trade_service: trade settled",
		slog.Int64("market_id", marketID),
		slog.Int64("token_id", tokenID),
		slog.Int64("price", trade.Price),
	)
	return trade, nil
}

// OrderBook returns a market's active listings, cache-first. A miss reads
// the engine (which lazily evicts stale listings) and back-fills the cache.
func (s *TradeService) OrderBook(ctx context.Context, marketID int64) ([]domain.Listing, error) {
	if cached, err := s.books.GetSnapshot(ctx, marketID); err == nil {
		return cached, nil
	}

	book, err := s.engine.OrderBookOf(marketID)
	if err != nil {
		return nil, err
	}
	if cacheErr := s.books.SetSnapshot(ctx, marketID, book); cacheErr != nil {
		s.logger.WarnContext(ctx, "trade_service: book cache set failed",
			slog.Int64("market_id", marketID),
			slog.String("error", cacheErr.Error()),
		)
	}
	return book, nil
}

// TradesOf returns a market's settled trades, most recent first.
func (s *TradeService) TradesOf(ctx context.Context, marketID int64, opts domain.ListOpts) ([]domain.Trade, error) {
	trades, err := s.trades.ListByMarket(ctx, marketID, opts)
	if err != nil {
		return nil, fmt.Errorf("trade_service: list by market %d: %w", marketID, err)
	}
	return trades, nil
}
