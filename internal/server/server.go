package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/server/handler"
	"github.com/easybet/easybet/internal/server/middleware"
	"github.com/easybet/easybet/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // if empty, authentication is disabled
	RateLimitPerMin int    // if zero, rate limiting is disabled
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Markets *handler.MarketHandler
	Claims  *handler.ClaimHandler
	Trades  *handler.TradeHandler
	Prizes  *handler.PrizeHandler
	Ledger  *handler.LedgerHandler
}

// Server is the HTTP + WebSocket API server for the betting engine.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth, rate limiting) and attaches
// the WebSocket hub. limiter may be nil to disable rate limiting.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	// --- Register routes ---

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Market lifecycle.
	mux.HandleFunc("POST /api/markets", handlers.Markets.CreateMarket)
	mux.HandleFunc("GET /api/markets", handlers.Markets.ListMarkets)
	mux.HandleFunc("GET /api/markets/history", handlers.Markets.MarketHistory)
	mux.HandleFunc("GET /api/markets/{id}", handlers.Markets.GetMarket)
	mux.HandleFunc("POST /api/markets/{id}/activate", handlers.Markets.Activate)
	mux.HandleFunc("POST /api/markets/{id}/deactivate", handlers.Markets.Deactivate)
	mux.HandleFunc("POST /api/markets/{id}/announce", handlers.Markets.Announce)
	mux.HandleFunc("POST /api/markets/{id}/claims", handlers.Markets.PurchaseClaim)

	// Claim tokens.
	mux.HandleFunc("GET /api/claims/{tokenId}", handlers.Claims.GetClaim)
	mux.HandleFunc("POST /api/claims/{tokenId}/transfer", handlers.Claims.TransferClaim)
	mux.HandleFunc("POST /api/claims/{tokenId}/prize", handlers.Prizes.ClaimPrize)
	mux.HandleFunc("GET /api/accounts/{addr}/claims", handlers.Claims.ListClaimsOf)

	// Order book.
	mux.HandleFunc("POST /api/listings", handlers.Trades.CreateListing)
	mux.HandleFunc("DELETE /api/listings/{tokenId}", handlers.Trades.CancelListing)
	mux.HandleFunc("POST /api/listings/{tokenId}/buy", handlers.Trades.BuyListing)
	mux.HandleFunc("GET /api/markets/{id}/orderbook", handlers.Trades.OrderBook)
	mux.HandleFunc("GET /api/markets/{id}/trades", handlers.Trades.ListTrades)

	// Payouts and settlement.
	mux.HandleFunc("POST /api/markets/{id}/distribute", handlers.Prizes.Distribute)
	mux.HandleFunc("GET /api/markets/{id}/payouts", handlers.Prizes.ListPayouts)
	mux.HandleFunc("GET /api/markets/{id}/settlements", handlers.Prizes.ListSettlements)

	// Ledger.
	mux.HandleFunc("POST /api/ledger/faucet", handlers.Ledger.ClaimFaucet)
	mux.HandleFunc("POST /api/ledger/grant", handlers.Ledger.Grant)
	mux.HandleFunc("POST /api/ledger/approve", handlers.Ledger.Approve)
	mux.HandleFunc("POST /api/ledger/transfer", handlers.Ledger.Transfer)
	mux.HandleFunc("GET /api/accounts/{addr}/balance", handlers.Ledger.GetBalance)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	// Apply auth middleware (skips if APIKey is empty).
	h = middleware.Auth(cfg.APIKey)(h)

	// Apply per-client rate limiting.
	if limiter != nil && cfg.RateLimitPerMin > 0 {
		h = middleware.RateLimit(limiter, cfg.RateLimitPerMin, time.Minute)(h)
	}

	// Apply request logging middleware.
	h = middleware.Logging(logger)(h)

	// Apply CORS middleware.
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
