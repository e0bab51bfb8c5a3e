package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
)

// MarketService drives the market lifecycle: creation, activation, claim
// purchases and transfers, and outcome announcement. The engine commits
// each operation; the service then records it in Postgres, refreshes the
// cache, and fans the event out on the bus.
type MarketService struct {
	engine  *engine.Engine
	markets domain.MarketStore
	claims  domain.ClaimStore
	cache   domain.MarketCache
	books   domain.OrderBookCache
	bus     domain.SignalBus
	audit   domain.AuditStore
	logger  *slog.Logger
}

// NewMarketService creates a MarketService with all required dependencies.
func NewMarketService(
	eng *engine.Engine,
	markets domain.MarketStore,
	claims domain.ClaimStore,
	cache domain.MarketCache,
	books domain.OrderBookCache,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *MarketService {
	return &MarketService{
		engine:  eng,
		markets: markets,
		claims:  claims,
		cache:   cache,
		books:   books,
		bus:     bus,
		audit:   audit,
		logger:  logger,
	}
}

// persistMarket snapshots the market's committed state to the store and the
// cache. Failures are logged, not returned: the engine is authoritative and
// the next snapshot of the same market heals the record.
func (s *MarketService) persistMarket(ctx context.Context, id int64) {
	m, err := s.engine.GetMarket(id)
	if err != nil {
		return
	}
	if err := s.markets.Upsert(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "market_service: persist market failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Int64("market_id", id),
			slog.String("error", err.Error()),
		)
	}
}

// Create registers a new market.
func (s *MarketService) Create(ctx context.Context, p engine.CreateMarketParams) (domain.Market, error) {
	m, err := s.engine.CreateMarket(ctx, p)
	if err != nil {
		return domain.Market{}, err
	}

	s.persistMarket(ctx, m.ID)
	auditLog(ctx, s.audit, s.logger, "market.created", map[string]any{
		"market_id": m.ID,
		"name":      m.Name,
		"creator":   m.Creator.Hex(),
	})
	publish(ctx, s.bus, s.logger, domain.ChannelMarket, domain.Event{
		Type:     domain.EventMarketCreated,
		MarketID: m.ID,
		Payload:  m,
		At:       m.CreatedAt,
	})

	s.logger.InfoContext(ctx, "market_service: market created",
		slog.Int64("market_id", m.ID),
		slog.String("name", m.Name),
	)
	return m, nil
}

// Activate opens (or reopens) sales on a market.
func (s *MarketService) Activate(ctx context.Context, marketID int64, caller domain.Account) (domain.Market, error) {
	if err := s.engine.Activate(ctx, marketID, caller); err != nil {
		return domain.Market{}, err
	}
	return s.afterStateChange(ctx, marketID, domain.EventMarketActivated, "market.activated")
}

// Deactivate pauses sales on a market.
func (s *MarketService) Deactivate(ctx context.Context, marketID int64, caller domain.Account) (domain.Market, error) {
	if err := s.engine.Deactivate(ctx, marketID, caller); err != nil {
		return domain.Market{}, err
	}
	return s.afterStateChange(ctx, marketID, domain.EventMarketDeactivated, "market.deactivated")
}

// Announce finalizes a market's outcome.
func (s *MarketService) Announce(ctx context.Context, marketID int64, option int, caller domain.Account) (domain.Market, error) {
	if err := s.engine.AnnounceOutcome(ctx, marketID, option, caller); err != nil {
		return domain.Market{}, err
	}
	m, err := s.afterStateChange(ctx, marketID, domain.EventOutcomeAnnounced, "market.announced")
	if err != nil {
		return domain.Market{}, err
	}
	auditLog(ctx, s.audit, s.logger, "market.outcome", map[string]any{
		"market_id":      marketID,
		"winning_option": m.WinningOption,
		"final_pool":     m.FinalPool,
		"prize_share":    m.PrizeShare,
		"winning_claims": m.WinningClaims,
	})
	return m, nil
}

func (s *MarketService) afterStateChange(ctx context.Context, marketID int64, evt domain.EventType, auditEvent string) (domain.Market, error) {
	m, err := s.engine.GetMarket(marketID)
	if err != nil {
		return domain.Market{}, err
	}
	s.persistMarket(ctx, marketID)
	auditLog(ctx, s.audit, s.logger, auditEvent, map[string]any{
		"market_id": marketID,
		"state":     string(m.State),
	})
	publish(ctx, s.bus, s.logger, domain.ChannelMarket, domain.Event{
		Type:     evt,
		MarketID: marketID,
		Payload:  m,
		At:       m.UpdatedAt,
	})
	return m, nil
}

// Purchase buys one claim on an option of an active market.
func (s *MarketService) Purchase(ctx context.Context, marketID int64, option int, buyer domain.Account) (domain.Claim, error) {
	claim, err := s.engine.PurchaseClaim(ctx, marketID, option, buyer)
	if err != nil {
		return domain.Claim{}, err
	}

	if err := s.claims.Insert(ctx, claim); err != nil {
		s.logger.ErrorContext(ctx, "market_service: persist claim failed",
			slog.Int64("token_id", claim.TokenID),
			slog.String("error", err.Error()),
		)
	}
	s.persistMarket(ctx, marketID)
	publish(ctx, s.bus, s.logger, domain.ChannelClaim, domain.Event{
		Type:     domain.EventClaimPurchased,
		MarketID: marketID,
		TokenID:  claim.TokenID,
		Payload:  claim,
		At:       claim.MintedAt,
	})

	s.logger.InfoContext(ctx, "market_service: claim purchased",
		slog.Int64("market_id", marketID),
		slog.Int64("token_id", claim.TokenID),
		slog.Int("option", option),
	)
	return claim, nil
}

// Transfer moves a claim between accounts outside the order book. Any open
// listing for the token goes stale, so the market's cached order book is
// invalidated.
func (s *MarketService) Transfer(ctx context.Context, tokenID int64, from, to, caller domain.Account) error {
	c, err := s.engine.Registry().DetailsOf(tokenID)
	if err != nil {
		return err
	}
	if err := s.engine.TransferClaim(ctx, tokenID, from, to, caller); err != nil {
		return err
	}

	if err := s.claims.UpdateOwner(ctx, tokenID, to); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "market_service: persist owner change failed",
			slog.Int64("token_id", tokenID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.books.Invalidate(ctx, c.MarketID); err != nil {
		s.logger.WarnContext(ctx, "market_service: book invalidate failed",
			slog.Int64("market_id", c.MarketID),
			slog.String("error", err.Error()),
		)
	}
	publish(ctx, s.bus, s.logger, domain.ChannelClaim, domain.Event{
		Type:     domain.EventClaimTransferred,
		MarketID: c.MarketID,
		TokenID:  tokenID,
		Payload:  map[string]string{"from": from.Hex(), "to": to.Hex()},
		At:       time.Now().UTC(),
	})
	return nil
}

// Get retrieves a market, checking the cache first and falling back to the
// engine on a miss.
func (s *MarketService) Get(ctx context.Context, id int64) (domain.Market, error) {
	m, err := s.cache.Get(ctx, id)
	if err == nil {
		return m, nil
	}

	m, err = s.engine.GetMarket(id)
	if err != nil {
		return domain.Market{}, err
	}

	// Back-fill cache; log but do not fail on cache write errors.
	if cacheErr := s.cache.Set(ctx, m); cacheErr != nil {
		s.logger.WarnContext(ctx, "market_service: cache set failed",
			slog.Int64("market_id", id),
			slog.String("error", cacheErr.Error()),
		)
	}
	return m, nil
}

// List returns every market in creation order, straight from the engine.
func (s *MarketService) List(_ context.Context) []domain.Market {
	ids := s.engine.ListMarketIDs()
	out := make([]domain.Market, 0, len(ids))
	for _, id := range ids {
		if m, err := s.engine.GetMarket(id); err == nil {
			out = append(out, m)
		}
	}
	return out
}

// Count returns the number of markets ever created.
func (s *MarketService) Count(_ context.Context) int {
	return s.engine.CountMarkets()
}

// History returns the persisted market record, paginated. Unlike List this
// survives restarts and supports time filtering.
func (s *MarketService) History(ctx context.Context, opts domain.ListOpts) ([]domain.Market, error) {
	markets, err := s.markets.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("market_service: history: %w", err)
	}
	return markets, nil
}

// ClaimDetails returns the enriched view of one claim.
func (s *MarketService) ClaimDetails(_ context.Context, tokenID int64) (domain.ClaimDetails, error) {
	return s.engine.DetailsOf(tokenID)
}

// ClaimsOf returns every claim currently owned by the account, in mint
// order.
func (s *MarketService) ClaimsOf(_ context.Context, owner domain.Account) []domain.ClaimDetails {
	return s.engine.ClaimsOf(owner)
}
