package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
)

// distributeLockTTL bounds how long a distribution batch may hold the
// per-market lock before it expires on its own.
const distributeLockTTL = time.Minute

// PrizeService drives prize payment: individual claims and batch
// distribution. Batches take a distributed lock so concurrent operators (or
// nodes) cannot run distributeAll for the same market at once, and each
// completed batch is archived to blob storage as a settlement report.
type PrizeService struct {
	engine   *engine.Engine
	markets  domain.MarketStore
	claims   domain.ClaimStore
	payouts  domain.PayoutStore
	cache    domain.MarketCache
	locks    domain.LockManager
	archiver domain.SettlementArchiver
	reports  domain.BlobReader
	bus      domain.SignalBus
	audit    domain.AuditStore
	logger   *slog.Logger
}

// NewPrizeService creates a PrizeService with all required dependencies.
func NewPrizeService(
	eng *engine.Engine,
	markets domain.MarketStore,
	claims domain.ClaimStore,
	payouts domain.PayoutStore,
	cache domain.MarketCache,
	locks domain.LockManager,
	archiver domain.SettlementArchiver,
	reports domain.BlobReader,
	bus domain.SignalBus,
	audit domain.AuditStore,
	logger *slog.Logger,
) *PrizeService {
	return &PrizeService{
		engine:   eng,
		markets:  markets,
		claims:   claims,
		payouts:  payouts,
		cache:    cache,
		locks:    locks,
		archiver: archiver,
		reports:  reports,
		bus:      bus,
		audit:    audit,
		logger:   logger,
	}
}

// recordPayout persists one committed payment: the payout row, the claim's
// prize flag, and the market snapshot. Failures are logged; the engine has
// already committed and the credits have moved.
func (s *PrizeService) recordPayout(ctx context.Context, p domain.Payout) {
	if err := s.payouts.Insert(ctx, p); err != nil {
		s.logger.ErrorContext(ctx, "prize_service: persist payout failed",
			slog.Int64("token_id", p.TokenID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.claims.MarkPrizeClaimed(ctx, p.TokenID); err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.logger.ErrorContext(ctx, "prize_service: persist claim flag failed",
			slog.Int64("token_id", p.TokenID),
			slog.String("error", err.Error()),
		)
	}
}

func (s *PrizeService) persistMarket(ctx context.Context, marketID int64) {
	m, err := s.engine.GetMarket(marketID)
	if err != nil {
		return
	}
	if err := s.markets.Upsert(ctx, m); err != nil {
		s.logger.ErrorContext(ctx, "prize_service: persist market failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
	if err := s.cache.Set(ctx, m); err != nil {
		s.logger.WarnContext(ctx, "prize_service: cache set failed",
			slog.Int64("market_id", marketID),
			slog.String("error", err.Error()),
		)
	}
}

// ClaimPrize pays one winning claim to its current owner.
func (s *PrizeService) ClaimPrize(ctx context.Context, marketID, tokenID int64, caller domain.Account) (domain.Payout, error) {
	payout, err := s.engine.ClaimPrize(ctx, marketID, tokenID, caller)
	if err != nil {
		return domain.Payout{}, err
	}

	s.recordPayout(ctx, payout)
	s.persistMarket(ctx, marketID)
	publish(ctx, s.bus, s.logger, domain.ChannelPayout, domain.Event{
		Type:     domain.EventPrizeClaimed,
		MarketID: marketID,
		TokenID:  tokenID,
		Payload:  payout,
		At:       payout.PaidAt,
	})

	s.logger.InfoContext(ctx, "prize_service: prize claimed",
		slog.Int64("market_id", marketID),
		slog.Int64("token_id", tokenID),
		slog.Int64("amount", payout.Amount),
	)
	return payout, nil
}

// DistributeAll pays every unclaimed winning claim of a finalized market in
// one batch, under a distributed lock, and archives the settlement report.
// It returns the distribution and the report's storage path (empty when the
// upload failed; the distribution itself stands).
func (s *PrizeService) DistributeAll(ctx context.Context, marketID int64, caller domain.Account) (domain.Distribution, string, error) {
	unlock, err := s.locks.Acquire(ctx, "distribute:"+strconv.FormatInt(marketID, 10), distributeLockTTL)
	if err != nil {
		return domain.Distribution{}, "", err
	}
	defer unlock()

	dist, err := s.engine.DistributeAll(ctx, marketID, caller)
	if err != nil {
		return domain.Distribution{}, "", err
	}

	for _, res := range dist.Results {
		if !res.Paid {
			continue
		}
		s.recordPayout(ctx, domain.Payout{
			MarketID:  marketID,
			TokenID:   res.TokenID,
			Recipient: res.Recipient,
			Amount:    res.Amount,
			BatchID:   dist.BatchID,
			PaidAt:    dist.RanAt,
		})
	}
	s.persistMarket(ctx, marketID)

	path, archiveErr := s.archiver.ArchiveSettlement(ctx, dist)
	if archiveErr != nil {
		s.logger.ErrorContext(ctx, "prize_service: settlement archive failed",
			slog.Int64("market_id", marketID),
			slog.String("batch_id", dist.BatchID),
			slog.String("error", archiveErr.Error()),
		)
		path = ""
	}

	auditLog(ctx, s.audit, s.logger, "prizes.distributed", map[string]any{
		"market_id":  marketID,
		"batch_id":   dist.BatchID,
		"total_paid": dist.TotalPaid,
		"remainder":  dist.Remainder,
		"complete":   dist.Complete,
		"report":     path,
	})
	publish(ctx, s.bus, s.logger, domain.ChannelPayout, domain.Event{
		Type:     domain.EventPrizesDistributed,
		MarketID: marketID,
		Payload:  dist,
		At:       dist.RanAt,
	})

	s.logger.InfoContext(ctx, "prize_service: distribution complete",
		slog.Int64("market_id", marketID),
		slog.String("batch_id", dist.BatchID),
		slog.Int64("total_paid", dist.TotalPaid),
		slog.Bool("complete", dist.Complete),
	)
	return dist, path, nil
}

// Payouts returns a market's committed payouts from the durable record.
func (s *PrizeService) Payouts(ctx context.Context, marketID int64) ([]domain.Payout, error) {
	payouts, err := s.payouts.ListByMarket(ctx, marketID)
	if err != nil {
		return nil, fmt.Errorf("prize_service: list payouts for market %d: %w", marketID, err)
	}
	return payouts, nil
}

// Remainder returns the dust left in a finalized market's pool.
func (s *PrizeService) Remainder(_ context.Context, marketID int64) (int64, error) {
	return s.engine.RemainderOf(marketID)
}

// SettlementReports lists the archived settlement reports of a market.
func (s *PrizeService) SettlementReports(ctx context.Context, marketID int64) ([]domain.BlobInfo, error) {
	prefix := "settlements/" + strconv.FormatInt(marketID, 10) + "/"
	infos, err := s.reports.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("prize_service: list settlement reports for market %d: %w", marketID, err)
	}
	return infos, nil
}
