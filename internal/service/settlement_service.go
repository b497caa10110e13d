// Package service orchestrates the settlement engine against persistence
// and event fan-out.
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/market"
)

// Pub/Sub channels and streams the services publish on.
const (
	ChannelSettlements = "marketplace:settlements"
	ChannelMints       = "marketplace:mints"
	StreamSettlements  = "marketplace:settlements:log"
)

// StreamAppender is the optional durable-stream capability of a signal bus.
type StreamAppender interface {
	StreamAppend(ctx context.Context, stream string, payload []byte) error
}

// TradeParams carries one settlement request.
type TradeParams struct {
	Caller         common.Address
	Collection     common.Address
	TokenID        *big.Int
	Price          *big.Int
	PaymentToken   common.Address // zero address for coin trades
	Buyer          common.Address
	MarketplaceFee *big.Int
	Signature      domain.Signature
	SentValue      *big.Int // coin trades only
}

// SettlementService runs trades through the marketplace, persists the
// resulting settlement records and publishes them on the signal bus.
//
// The marketplace ledgers are the source of truth: once a trade has
// settled, failures to persist or publish are logged but do not fail the
// call.
type SettlementService struct {
	market *market.Marketplace
	store  domain.SettlementStore
	bus    domain.SignalBus
	logger *slog.Logger
}

// NewSettlementService creates a SettlementService. The store and bus may
// be nil in demo wiring.
func NewSettlementService(m *market.Marketplace, store domain.SettlementStore, bus domain.SignalBus, logger *slog.Logger) *SettlementService {
	if logger == nil {
		logger = slog.Default()
	}
	return &SettlementService{
		market: m,
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "settlement_service")),
	}
}

// CanPerformTrade reports whether a trade would be accepted.
func (s *SettlementService) CanPerformTrade(ctx context.Context, p TradeParams) error {
	return s.market.CanPerformTrade(p.Collection, p.TokenID, p.Price, p.PaymentToken, p.Buyer, p.MarketplaceFee, p.Signature)
}

// SettleForCoins executes a native-coin trade.
func (s *SettlementService) SettleForCoins(ctx context.Context, p TradeParams) (domain.Settlement, error) {
	settlement, err := s.market.TradeForCoins(p.Caller, p.Collection, p.TokenID, p.Price, p.Buyer, p.MarketplaceFee, p.Signature, p.SentValue)
	if err != nil {
		return domain.Settlement{}, err
	}
	s.record(ctx, settlement)
	return settlement, nil
}

// SettleForTokens executes a trade denominated in an allow-listed token.
func (s *SettlementService) SettleForTokens(ctx context.Context, p TradeParams) (domain.Settlement, error) {
	settlement, err := s.market.TradeForTokens(p.Caller, p.Collection, p.TokenID, p.Price, p.PaymentToken, p.Buyer, p.MarketplaceFee, p.Signature)
	if err != nil {
		return domain.Settlement{}, err
	}
	s.record(ctx, settlement)
	return settlement, nil
}

// record assigns the settlement id, persists it and fans it out.
func (s *SettlementService) record(ctx context.Context, settlement domain.Settlement) {
	settlement.ID = uuid.NewString()

	if s.store != nil {
		if err := s.store.Insert(ctx, settlement); err != nil {
			s.logger.ErrorContext(ctx, "settlement persisted late or lost",
				slog.String("id", settlement.ID),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(settlement)
	if err != nil {
		s.logger.ErrorContext(ctx, "settlement marshal failed",
			slog.String("id", settlement.ID),
			slog.String("error", err.Error()),
		)
		return
	}
	if err := s.bus.Publish(ctx, ChannelSettlements, payload); err != nil {
		s.logger.WarnContext(ctx, "settlement publish failed",
			slog.String("id", settlement.ID),
			slog.String("error", err.Error()),
		)
	}
	if appender, ok := s.bus.(StreamAppender); ok {
		if err := appender.StreamAppend(ctx, StreamSettlements, payload); err != nil {
			s.logger.WarnContext(ctx, "settlement stream append failed",
				slog.String("id", settlement.ID),
				slog.String("error", err.Error()),
			)
		}
	}
}

// Recent returns the newest settlements across all collections.
func (s *SettlementService) Recent(ctx context.Context, opts domain.ListOpts) ([]domain.Settlement, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	out, err := s.store.ListRecent(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: list recent: %w", err)
	}
	return out, nil
}

// ByCollection returns settlements for one collection, newest first.
func (s *SettlementService) ByCollection(ctx context.Context, collection common.Address, opts domain.ListOpts) ([]domain.Settlement, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	out, err := s.store.ListByCollection(ctx, collection, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: list by collection: %w", err)
	}
	return out, nil
}

// ByAddress returns settlements where addr was seller or buyer.
func (s *SettlementService) ByAddress(ctx context.Context, addr common.Address, opts domain.ListOpts) ([]domain.Settlement, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	out, err := s.store.ListByAddress(ctx, addr, opts)
	if err != nil {
		return nil, fmt.Errorf("settlement_service: list by address: %w", err)
	}
	return out, nil
}
