package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	s3blob "github.com/easybet/easybet/internal/blob/s3"
	"github.com/easybet/easybet/internal/cache/redis"
	"github.com/easybet/easybet/internal/config"
	"github.com/easybet/easybet/internal/domain"
	"github.com/easybet/easybet/internal/engine"
	"github.com/easybet/easybet/internal/ledger"
	"github.com/easybet/easybet/internal/store/postgres"
)

// Dependencies bundles every domain-level dependency that the application
// needs to operate. It is constructed by Wire and torn down by the returned
// cleanup function.
type Dependencies struct {
	// Core
	Ledger *ledger.Memory
	Engine *engine.Engine
	Auth   engine.Authorizer

	// Stores
	MarketStore  domain.MarketStore
	ClaimStore   domain.ClaimStore
	ListingStore domain.ListingStore
	TradeStore   domain.TradeStore
	PayoutStore  domain.PayoutStore
	AuditStore   domain.AuditStore

	// Caches
	MarketCache domain.MarketCache
	BookCache   domain.OrderBookCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	SignalBus   domain.SignalBus

	// Blob storage
	BlobReader domain.BlobReader
	Archiver   domain.SettlementArchiver

	// Health checks
	PostgresHealth func(context.Context) error
	RedisHealth    func(context.Context) error
	S3Health       func(context.Context) error
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	// Run migrations if enabled.
	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.MarketStore = postgres.NewMarketStore(pool)
	deps.ClaimStore = postgres.NewClaimStore(pool)
	deps.ListingStore = postgres.NewListingStore(pool)
	deps.TradeStore = postgres.NewTradeStore(pool)
	deps.PayoutStore = postgres.NewPayoutStore(pool)
	deps.AuditStore = postgres.NewAuditStore(pool)
	deps.PostgresHealth = pool.Ping

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.MarketCache = redis.NewMarketCache(redisClient)
	deps.BookCache = redis.NewOrderBookCache(redisClient)
	deps.RateLimiter = redis.NewRateLimiter(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.RedisHealth = redisClient.Ping

	// --- S3 blob storage for settlement archival ---
	s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
		Endpoint:       cfg.S3.Endpoint,
		Region:         cfg.S3.Region,
		Bucket:         cfg.S3.Bucket,
		AccessKey:      cfg.S3.AccessKey,
		SecretKey:      cfg.S3.SecretKey,
		UseSSL:         cfg.S3.UseSSL,
		ForcePathStyle: cfg.S3.ForcePathStyle,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: s3: %w", err)
	}
	closers = append(closers, func() { _ = s3Client.Close() })

	deps.BlobReader = s3blob.NewReader(s3Client)
	deps.Archiver = s3blob.NewSettlementArchive(s3blob.NewWriter(s3Client), deps.AuditStore)
	deps.S3Health = s3Client.Health

	// --- Ledger and engine ---
	deps.Ledger = ledger.NewMemory(cfg.Ledger.InitialGrant)

	admins := make(map[domain.Account]bool, len(cfg.Engine.Admins))
	for _, a := range cfg.AdminAccounts() {
		admins[a] = true
	}
	auth := engine.StaticAuthorizer{
		Admins:       admins,
		OpenCreation: cfg.Engine.OpenCreation,
	}

	var opts []engine.Option
	if cfg.Engine.EscrowAddress != "" {
		opts = append(opts, engine.WithEscrow(common.HexToAddress(cfg.Engine.EscrowAddress)))
	}
	deps.Auth = auth
	deps.Engine = engine.New(deps.Ledger, auth, opts...)

	logger.InfoContext(ctx, "dependencies wired",
		slog.Int("admins", len(admins)),
		slog.Bool("open_creation", cfg.Engine.OpenCreation),
		slog.String("escrow", deps.Engine.Escrow().Hex()),
	)

	return deps, cleanup, nil
}
