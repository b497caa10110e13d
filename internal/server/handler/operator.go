package handler

import (
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

// OperatorService defines the signing methods the operator handler exposes.
type OperatorService interface {
	Address() common.Address
	SignTrade(intent domain.TradeIntent) (domain.Signature, error)
	SignMint(intent domain.MintIntent) (domain.Signature, error)
}

// OperatorHandler serves the operator signing endpoints. These endpoints
// authorize trades and mints, so the server's API key should always be set
// when they are reachable.
type OperatorHandler struct {
	operator OperatorService
	logger   *slog.Logger
}

// NewOperatorHandler creates an OperatorHandler with the given service.
func NewOperatorHandler(operator OperatorService, logger *slog.Logger) *OperatorHandler {
	return &OperatorHandler{
		operator: operator,
		logger:   logger,
	}
}

// GetAddress returns the operator's signing address.
// GET /api/operator/address
func (h *OperatorHandler) GetAddress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"address": h.operator.Address().Hex(),
	})
}

// signTradeRequest mirrors the trade tuple bound into the signature.
type signTradeRequest struct {
	Marketplace    string `json:"marketplace"`
	Collection     string `json:"collection"`
	TokenID        string `json:"tokenId"`
	Seller         string `json:"seller"`
	Buyer          string `json:"buyer"`
	Price          string `json:"price"`
	PaymentToken   string `json:"paymentToken,omitempty"`
	RoyaltyFee     string `json:"royaltyFee"`
	InvestorFee    string `json:"investorFee"`
	MarketplaceFee string `json:"marketplaceFee"`
}

func (req signTradeRequest) toIntent() (domain.TradeIntent, error) {
	var intent domain.TradeIntent
	var err error

	if intent.Marketplace, err = parseAddress(req.Marketplace); err != nil {
		return intent, err
	}
	if intent.Collection, err = parseAddress(req.Collection); err != nil {
		return intent, err
	}
	if intent.Seller, err = parseAddress(req.Seller); err != nil {
		return intent, err
	}
	if intent.Buyer, err = parseAddress(req.Buyer); err != nil {
		return intent, err
	}
	if req.PaymentToken != "" {
		if intent.PaymentToken, err = parseAddress(req.PaymentToken); err != nil {
			return intent, err
		}
	}
	if intent.TokenID, err = parseAmount(req.TokenID); err != nil {
		return intent, err
	}
	if intent.Price, err = parseAmount(req.Price); err != nil {
		return intent, err
	}
	if intent.RoyaltyFee, err = parseAmount(req.RoyaltyFee); err != nil {
		return intent, err
	}
	if intent.InvestorFee, err = parseAmount(req.InvestorFee); err != nil {
		return intent, err
	}
	if intent.MarketplaceFee, err = parseAmount(req.MarketplaceFee); err != nil {
		return intent, err
	}
	return intent, nil
}

// SignTrade signs a trade tuple with the operator key.
// POST /api/operator/sign/trade
func (h *OperatorHandler) SignTrade(w http.ResponseWriter, r *http.Request) {
	var req signTradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	intent, err := req.toIntent()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sig, err := h.operator.SignTrade(intent)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: trade signing failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "signing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signature": signatureFromDomain(sig),
	})
}

// signMintRequest mirrors the mint tuple bound into the signature.
type signMintRequest struct {
	Collection  string `json:"collection"`
	Creator     string `json:"creator"`
	TokenID     string `json:"tokenId"`
	RoyaltyFee  string `json:"royaltyFee"`
	InvestorFee string `json:"investorFee"`
}

func (req signMintRequest) toIntent() (domain.MintIntent, error) {
	var intent domain.MintIntent
	var err error

	if intent.Collection, err = parseAddress(req.Collection); err != nil {
		return intent, err
	}
	if intent.Creator, err = parseAddress(req.Creator); err != nil {
		return intent, err
	}
	if intent.TokenID, err = parseAmount(req.TokenID); err != nil {
		return intent, err
	}
	if intent.RoyaltyFee, err = parseAmount(req.RoyaltyFee); err != nil {
		return intent, err
	}
	if intent.InvestorFee, err = parseAmount(req.InvestorFee); err != nil {
		return intent, err
	}
	return intent, nil
}

// SignMint signs an investor-mint tuple with the operator key.
// POST /api/operator/sign/mint
func (h *OperatorHandler) SignMint(w http.ResponseWriter, r *http.Request) {
	var req signMintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	intent, err := req.toIntent()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sig, err := h.operator.SignMint(intent)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: mint signing failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "signing failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"signature": signatureFromDomain(sig),
	})
}
