package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/easybet/easybet/internal/server"
	"github.com/easybet/easybet/internal/server/handler"
	"github.com/easybet/easybet/internal/server/ws"
	"github.com/easybet/easybet/internal/service"
)

// pinger adapts a health-check function to the handler.Pinger interface.
type pinger func(context.Context) error

func (p pinger) Health(ctx context.Context) error { return p(ctx) }

// ServerMode runs the HTTP API without the WebSocket event fanout.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode")
	return a.runServer(ctx, deps, nil)
}

// FullMode runs the HTTP API plus the WebSocket hub bridging engine events to
// connected clients.
func (a *App) FullMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting full mode")

	hub := ws.NewHub(deps.SignalBus, a.logger, ws.Config{
		Mode:      a.cfg.Mode,
		StartedAt: time.Now().UTC(),
	})
	return a.runServer(ctx, deps, hub)
}

// runServer builds the service layer and HTTP server, starts them under an
// errgroup, and blocks until the context is cancelled or a subsystem fails.
func (a *App) runServer(ctx context.Context, deps *Dependencies, hub *ws.Hub) error {
	g, ctx := errgroup.WithContext(ctx)

	// Build services over the engine and its collaborators.
	marketSvc := service.NewMarketService(
		deps.Engine, deps.MarketStore, deps.ClaimStore, deps.MarketCache,
		deps.BookCache, deps.SignalBus, deps.AuditStore, a.logger,
	)
	tradeSvc := service.NewTradeService(
		deps.Engine, deps.ListingStore, deps.TradeStore, deps.BookCache,
		deps.SignalBus, deps.AuditStore, a.logger,
	)
	prizeSvc := service.NewPrizeService(
		deps.Engine, deps.MarketStore, deps.ClaimStore, deps.PayoutStore,
		deps.MarketCache, deps.LockManager, deps.Archiver, deps.BlobReader,
		deps.SignalBus, deps.AuditStore, a.logger,
	)
	ledgerSvc := service.NewLedgerService(
		deps.Ledger, deps.Ledger, deps.Auth, deps.Engine.Escrow(),
		a.cfg.Ledger.FaucetEnabled, deps.AuditStore, a.logger,
	)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.Pinger{
			"postgres": pinger(deps.PostgresHealth),
			"redis":    pinger(deps.RedisHealth),
			"s3":       pinger(deps.S3Health),
		}, a.logger),
		Markets: handler.NewMarketHandler(marketSvc, a.logger),
		Claims:  handler.NewClaimHandler(marketSvc, a.logger),
		Trades:  handler.NewTradeHandler(tradeSvc, a.logger),
		Prizes:  handler.NewPrizeHandler(prizeSvc, marketSvc, a.logger),
		Ledger:  handler.NewLedgerHandler(ledgerSvc, a.logger),
	}

	if hub != nil {
		g.Go(func() error {
			return hub.Run(ctx)
		})
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.AdminToken,
		RateLimitPerMin: a.cfg.Server.RateLimitPerMin,
	}, handlers, hub, deps.RateLimiter, a.logger)

	g.Go(srv.Start)

	g.Go(func() error {
		<-ctx.Done()
		timeout := a.cfg.Server.ShutdownTimeout.Duration
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		return srv.Shutdown(shutCtx)
	})

	return g.Wait()
}
