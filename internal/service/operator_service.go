package service

import (
	"log/slog"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
)

// OperatorService is the off-chain operator: it co-signs trade and mint
// tuples with the operator key so clients can submit them for settlement.
type OperatorService struct {
	signer *crypto.Signer
	logger *slog.Logger
}

// NewOperatorService creates an OperatorService around the loaded key.
func NewOperatorService(signer *crypto.Signer, logger *slog.Logger) *OperatorService {
	if logger == nil {
		logger = slog.Default()
	}
	return &OperatorService{
		signer: signer,
		logger: logger.With(slog.String("component", "operator_service")),
	}
}

// Address returns the operator's signing address. It must hold the
// operator role on the marketplace and the collection for its signatures
// to be accepted.
func (s *OperatorService) Address() common.Address {
	return s.signer.Address()
}

// SignTrade co-signs a trade tuple.
func (s *OperatorService) SignTrade(intent domain.TradeIntent) (domain.Signature, error) {
	sig, err := s.signer.SignTrade(intent)
	if err != nil {
		return domain.Signature{}, err
	}
	s.logger.Debug("trade intent signed",
		slog.String("collection", intent.Collection.Hex()),
		slog.String("tokenId", intent.TokenID.String()),
		slog.String("price", intent.Price.String()),
	)
	return sig, nil
}

// SignMint co-signs an investor-minting tuple.
func (s *OperatorService) SignMint(intent domain.MintIntent) (domain.Signature, error) {
	sig, err := s.signer.SignMint(intent)
	if err != nil {
		return domain.Signature{}, err
	}
	s.logger.Debug("mint intent signed",
		slog.String("collection", intent.Collection.Hex()),
		slog.String("tokenId", intent.TokenID.String()),
	)
	return sig, nil
}
