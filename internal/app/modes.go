package app

import (
	"context"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/server"
	"github.com/autentica/marketplace/internal/server/handler"
	"github.com/autentica/marketplace/internal/server/ws"
	"github.com/autentica/marketplace/internal/service"
)

// archiveInterval is how often settled trades older than archiveRetention
// are exported to blob storage.
const (
	archiveInterval  = 24 * time.Hour
	archiveRetention = 30 * 24 * time.Hour
)

// ServerMode runs the HTTP + WebSocket API, the signal-bus bridge and the
// settlement archival loop until the context is cancelled.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.String("operator", deps.Signer.Address().Hex()),
		slog.String("marketplace", deps.Marketplace.Address().Hex()),
	)

	settlements := service.NewSettlementService(deps.Marketplace, deps.SettlementStore, deps.SignalBus, a.logger)
	mints := service.NewMintService(deps.Collection, deps.MintStore, deps.SignalBus, a.logger)
	operator := service.NewOperatorService(deps.Signer, a.logger)

	handlers := server.Handlers{
		Health:   handler.NewHealthHandler(a.logger),
		Trades:   handler.NewTradeHandler(settlements, a.logger),
		Mints:    handler.NewMintHandler(mints, a.logger),
		Admin:    handler.NewAdminHandler(deps.Marketplace, deps.Signer.Address(), a.logger),
		Operator: handler.NewOperatorHandler(operator, a.logger),
	}

	var hub *ws.Hub
	if deps.SignalBus != nil {
		hub = ws.NewHub(deps.SignalBus, a.logger, ws.Config{
			Mode:      a.cfg.Mode,
			Paused:    deps.Marketplace.Paused,
			StartedAt: time.Now().UTC(),
		})
	}

	srv := server.NewServer(server.Config{
		Addr:        a.cfg.Server.Addr(),
		CORSOrigins: a.cfg.Server.AllowedOrigins,
		APIKey:      a.cfg.Server.APIKey,
	}, handlers, hub, a.logger)

	g, ctx := errgroup.WithContext(ctx)

	if hub != nil {
		g.Go(func() error {
			err := hub.Run(ctx)
			if err == context.Canceled {
				return nil
			}
			return err
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			return a.archiveLoop(ctx, deps)
		})
	}

	g.Go(func() error {
		return srv.Start()
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// archiveLoop periodically exports old settlements to blob storage.
func (a *App) archiveLoop(ctx context.Context, deps *Dependencies) error {
	ticker := time.NewTicker(archiveInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			before := time.Now().UTC().Add(-archiveRetention)
			path, count, err := deps.Archiver.ArchiveSettlements(ctx, before)
			if err != nil {
				a.logger.ErrorContext(ctx, "settlement archival failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if count > 0 {
				a.logger.InfoContext(ctx, "settlements archived",
					slog.String("path", path),
					slog.Int("count", count),
				)
			}
		}
	}
}

// DemoMode runs a scripted first sale and resale against in-memory state so
// the whole settlement path can be exercised without any infrastructure.
func (a *App) DemoMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting demo mode")

	settlements := service.NewSettlementService(deps.Marketplace, deps.SettlementStore, deps.SignalBus, a.logger)
	mints := service.NewMintService(deps.Collection, deps.MintStore, deps.SignalBus, a.logger)
	operator := service.NewOperatorService(deps.Signer, a.logger)

	creator := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	buyer := common.HexToAddress("0x0000000000000000000000000000000000000052")
	collector := common.HexToAddress("0x0000000000000000000000000000000000000053")

	tokenID := big.NewInt(1)
	royaltyFee := big.NewInt(1000) // 10.00%

	if _, err := mints.Mint(ctx, creator, tokenID, "ipfs://demo-token-1", royaltyFee); err != nil {
		return err
	}
	if err := deps.Collection.Approve(creator, deps.Marketplace.Address(), tokenID); err != nil {
		return err
	}

	deps.Coins.Mint(buyer, big.NewInt(10_000))
	deps.Coins.Mint(collector, big.NewInt(10_000))

	// First sale: creator sells to buyer.
	if err := a.demoTrade(ctx, deps, settlements, operator, creator, buyer, tokenID); err != nil {
		return err
	}

	// Resale: buyer sells to collector, the creator collects royalties.
	if err := deps.Collection.Approve(buyer, deps.Marketplace.Address(), tokenID); err != nil {
		return err
	}
	if err := a.demoTrade(ctx, deps, settlements, operator, buyer, collector, tokenID); err != nil {
		return err
	}

	for _, addr := range []common.Address{creator, buyer, collector, deps.Marketplace.Autentica()} {
		a.logger.InfoContext(ctx, "demo balance",
			slog.String("address", addr.Hex()),
			slog.String("coins", deps.Coins.BalanceOf(addr).String()),
		)
	}
	return nil
}

func (a *App) demoTrade(ctx context.Context, deps *Dependencies, settlements *service.SettlementService, operator *service.OperatorService, seller, buyer common.Address, tokenID *big.Int) error {
	price := big.NewInt(1000)
	mktFee := big.NewInt(250) // 2.50%

	royaltyFee, err := deps.Marketplace.GetRoyaltyFee(deps.Collection.Address(), tokenID)
	if err != nil {
		return err
	}
	investorFee, err := deps.Marketplace.GetInvestorFee(deps.Collection.Address(), tokenID)
	if err != nil {
		return err
	}

	sig, err := operator.SignTrade(domain.TradeIntent{
		Marketplace:    deps.Marketplace.Address(),
		Collection:     deps.Collection.Address(),
		TokenID:        tokenID,
		Seller:         seller,
		Buyer:          buyer,
		Price:          price,
		RoyaltyFee:     royaltyFee,
		InvestorFee:    investorFee,
		MarketplaceFee: mktFee,
	})
	if err != nil {
		return err
	}

	settlement, err := settlements.SettleForCoins(ctx, service.TradeParams{
		Caller:         buyer,
		Collection:     deps.Collection.Address(),
		TokenID:        tokenID,
		Price:          price,
		Buyer:          buyer,
		MarketplaceFee: mktFee,
		Signature:      sig,
		SentValue:      price,
	})
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "demo trade settled",
		slog.String("seller", seller.Hex()),
		slog.String("buyer", buyer.Hex()),
		slog.String("owner_proceeds", settlement.Proceeds.Owner.String()),
		slog.String("creator_proceeds", settlement.Proceeds.Creator.String()),
		slog.String("marketplace_cut", settlement.Proceeds.Marketplace.String()),
	)
	return nil
}
