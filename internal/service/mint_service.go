package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/nft"
)

// MintParams carries one investor-minting request.
type MintParams struct {
	Caller      common.Address // the investor
	Creator     common.Address
	TokenID     *big.Int
	URI         string
	RoyaltyFee  *big.Int
	InvestorFee *big.Int
	Signature   domain.Signature
}

// MintService runs mints through the collection, persists mint records and
// publishes them on the signal bus. Like settlements, the collection state
// is the source of truth; persistence failures are logged, not returned.
type MintService struct {
	collection *nft.Collection
	store      domain.MintStore
	bus        domain.SignalBus
	logger     *slog.Logger
}

// NewMintService creates a MintService. The store and bus may be nil.
func NewMintService(collection *nft.Collection, store domain.MintStore, bus domain.SignalBus, logger *slog.Logger) *MintService {
	if logger == nil {
		logger = slog.Default()
	}
	return &MintService{
		collection: collection,
		store:      store,
		bus:        bus,
		logger:     logger.With(slog.String("component", "mint_service")),
	}
}

// Mint creates a token owned and created by the caller, with no investor.
func (s *MintService) Mint(ctx context.Context, caller common.Address, tokenID *big.Int, uri string, royaltyFee *big.Int) (domain.MintRecord, error) {
	if err := s.collection.Mint(caller, tokenID, uri, royaltyFee); err != nil {
		return domain.MintRecord{}, err
	}
	rec := domain.MintRecord{
		Collection:  s.collection.Address(),
		TokenID:     tokenID,
		Creator:     caller,
		RoyaltyFee:  royaltyFee,
		InvestorFee: big.NewInt(0),
		URI:         uri,
		MintedAt:    time.Now().UTC(),
	}
	s.record(ctx, rec)
	return rec, nil
}

// CanPerformInvestorMinting reports whether InvestorMint would succeed.
func (s *MintService) CanPerformInvestorMinting(ctx context.Context, p MintParams) error {
	return s.collection.CanPerformInvestorMinting(p.Caller, p.Creator, p.TokenID, p.RoyaltyFee, p.InvestorFee, p.Signature)
}

// InvestorMint mints to the creator with the caller as investor and
// approves the marketplace for the new token.
func (s *MintService) InvestorMint(ctx context.Context, p MintParams) (domain.MintRecord, error) {
	err := s.collection.InvestorMintingAndApproveMarketplace(p.Caller, p.Creator, p.TokenID, p.URI, p.RoyaltyFee, p.InvestorFee, p.Signature)
	if err != nil {
		return domain.MintRecord{}, err
	}
	rec := domain.MintRecord{
		Collection:  s.collection.Address(),
		TokenID:     p.TokenID,
		Creator:     p.Creator,
		Investor:    p.Caller,
		RoyaltyFee:  p.RoyaltyFee,
		InvestorFee: p.InvestorFee,
		URI:         p.URI,
		MintedAt:    time.Now().UTC(),
	}
	s.record(ctx, rec)
	return rec, nil
}

func (s *MintService) record(ctx context.Context, rec domain.MintRecord) {
	rec.ID = uuid.NewString()

	if s.store != nil {
		if err := s.store.Insert(ctx, rec); err != nil {
			s.logger.ErrorContext(ctx, "mint record lost",
				slog.String("id", rec.ID),
				slog.String("tokenId", rec.TokenID.String()),
				slog.String("error", err.Error()),
			)
		}
	}

	if s.bus == nil {
		return
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		s.logger.ErrorContext(ctx, "mint marshal failed", slog.String("error", err.Error()))
		return
	}
	if err := s.bus.Publish(ctx, ChannelMints, payload); err != nil {
		s.logger.WarnContext(ctx, "mint publish failed",
			slog.String("id", rec.ID),
			slog.String("error", err.Error()),
		)
	}
}

// SetMarketplace changes the collection's approved marketplace address.
// Admin only; enforced by the collection's role set.
func (s *MintService) SetMarketplace(ctx context.Context, caller, marketplace common.Address) error {
	if err := s.collection.SetMarketplace(caller, marketplace); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "collection marketplace changed",
		slog.String("marketplace", marketplace.Hex()),
	)
	return nil
}

// TokenDetails returns the royalty record of one token.
func (s *MintService) TokenDetails(tokenID *big.Int) (domain.TokenDetails, error) {
	return s.collection.GetTokenDetails(tokenID)
}

// Mints returns persisted mint records for the collection, newest first.
func (s *MintService) Mints(ctx context.Context, opts domain.ListOpts) ([]domain.MintRecord, error) {
	if s.store == nil {
		return nil, domain.ErrNotFound
	}
	out, err := s.store.ListByCollection(ctx, s.collection.Address(), opts)
	if err != nil {
		return nil, fmt.Errorf("mint_service: list mints: %w", err)
	}
	return out, nil
}
