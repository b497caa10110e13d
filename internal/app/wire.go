package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/access"
	s3blob "github.com/autentica/marketplace/internal/blob/s3"
	"github.com/autentica/marketplace/internal/cache/redis"
	"github.com/autentica/marketplace/internal/config"
	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/ledger"
	"github.com/autentica/marketplace/internal/market"
	"github.com/autentica/marketplace/internal/nft"
	"github.com/autentica/marketplace/internal/service"
	"github.com/autentica/marketplace/internal/store/postgres"
)

// Dependencies bundles everything the application modes need to operate. It
// is constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Core venue state.
	Signer      *crypto.Signer
	Collection  *nft.Collection
	Marketplace *market.Marketplace
	Coins       *ledger.CoinLedger
	Tokens      *ledger.TokenLedger

	// Persistence (nil in demo mode).
	SettlementStore domain.SettlementStore
	MintStore       domain.MintStore
	AuditStore      domain.AuditStore

	// Messaging (nil in demo mode).
	SignalBus domain.SignalBus

	// Blob storage (nil unless archival is enabled).
	BlobWriter domain.BlobWriter
	Archiver   *s3blob.Archiver
}

// collectionResolver maps collection addresses to their in-process objects.
type collectionResolver map[common.Address]any

func (m collectionResolver) Collection(addr common.Address) (any, bool) {
	obj, ok := m[addr]
	return obj, ok
}

// needsInfra returns true for modes that require Postgres and Redis.
func needsInfra(mode string) bool {
	return strings.ToLower(mode) == "server"
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that
// should be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Operator key ---
	keyHex, err := crypto.LoadKey(crypto.KeyConfig{
		RawPrivateKey:    cfg.Operator.PrivateKey,
		EncryptedKeyPath: cfg.Operator.EncryptedKeyPath,
		KeyPassword:      cfg.Operator.KeyPassword,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("wire: operator key: %w", err)
	}
	signer, err := crypto.NewSigner(keyHex)
	if err != nil {
		return nil, nil, fmt.Errorf("wire: operator signer: %w", err)
	}
	deps.Signer = signer

	// --- PostgreSQL (only for modes that need persistence) ---
	if needsInfra(cfg.Mode) {
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

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				cleanup()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}

		pool := pgClient.Pool()
		deps.SettlementStore = postgres.NewSettlementStore(pool)
		deps.MintStore = postgres.NewMintStore(pool)
		deps.AuditStore = postgres.NewAuditStore(pool)
	}

	// --- Redis ---
	if needsInfra(cfg.Mode) {
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

		deps.SignalBus = redis.NewSignalBus(redisClient)
	}

	// --- Collection and marketplace ---
	var events domain.EventSink
	if deps.SignalBus != nil {
		events = service.NewEventPublisher(deps.SignalBus, logger)
	}

	admin := cfg.AdminAddress()
	marketAddr := cfg.MarketAddress()

	collection := nft.NewCollection(cfg.CollectionAddress(), admin, events)
	if err := collection.SetMarketplace(admin, marketAddr); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: collection marketplace: %w", err)
	}
	deps.Collection = collection

	deps.Coins = ledger.NewCoinLedger()
	deps.Tokens = ledger.NewTokenLedger()

	marketplace := market.New(market.Config{
		Address:       marketAddr,
		Deployer:      admin,
		Autentica:     cfg.AutenticaAddress(),
		AllowedTokens: cfg.AllowedTokenAddresses(),
		Collections:   collectionResolver{cfg.CollectionAddress(): collection},
		Coins:         deps.Coins,
		Tokens:        deps.Tokens,
		Events:        events,
		Logger:        logger,
	})
	deps.Marketplace = marketplace

	// The operator key authorizes trades and mints on both contracts.
	if err := marketplace.Roles().Grant(admin, access.RoleOperator, signer.Address()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: marketplace operator role: %w", err)
	}
	if err := collection.Roles().Grant(admin, access.RoleOperator, signer.Address()); err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: collection operator role: %w", err)
	}

	// --- S3 blob storage (only when archival is enabled) ---
	if cfg.S3.Enabled {
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

		deps.BlobWriter = s3blob.NewWriter(s3Client)
		if deps.SettlementStore != nil && deps.AuditStore != nil {
			deps.Archiver = s3blob.NewArchiver(
				deps.BlobWriter,
				deps.SettlementStore,
				deps.AuditStore,
				logger,
			)
		}
	}

	return deps, cleanup, nil
}
