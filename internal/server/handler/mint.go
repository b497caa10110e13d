package handler

import (
	"context"
	"log/slog"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/service"
)

// MintService defines the methods that the mint handler requires from the
// service layer.
type MintService interface {
	Mint(ctx context.Context, caller common.Address, tokenID *big.Int, uri string, royaltyFee *big.Int) (domain.MintRecord, error)
	CanPerformInvestorMinting(ctx context.Context, p service.MintParams) error
	InvestorMint(ctx context.Context, p service.MintParams) (domain.MintRecord, error)
	SetMarketplace(ctx context.Context, caller, marketplace common.Address) error
	TokenDetails(tokenID *big.Int) (domain.TokenDetails, error)
	Mints(ctx context.Context, opts domain.ListOpts) ([]domain.MintRecord, error)
}

// MintHandler serves minting and token-detail endpoints.
type MintHandler struct {
	mints  MintService
	logger *slog.Logger
}

// NewMintHandler creates a MintHandler with the given service and logger.
func NewMintHandler(mints MintService, logger *slog.Logger) *MintHandler {
	return &MintHandler{
		mints:  mints,
		logger: logger,
	}
}

// mintRequest is the JSON body for a creator mint.
type mintRequest struct {
	Caller     string `json:"caller"`
	TokenID    string `json:"tokenId"`
	URI        string `json:"uri"`
	RoyaltyFee string `json:"royaltyFee"`
}

// Mint creates a token owned and created by the caller.
// POST /api/mints
func (h *MintHandler) Mint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	tokenID, err := parseAmount(req.TokenID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}
	royaltyFee, err := parseAmount(req.RoyaltyFee)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid royalty fee")
		return
	}

	rec, err := h.mints.Mint(r.Context(), caller, tokenID, req.URI, royaltyFee)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// investorMintRequest is the JSON body for investor minting.
type investorMintRequest struct {
	Caller      string        `json:"caller"`
	Creator     string        `json:"creator"`
	TokenID     string        `json:"tokenId"`
	URI         string        `json:"uri"`
	RoyaltyFee  string        `json:"royaltyFee"`
	InvestorFee string        `json:"investorFee"`
	Signature   signatureBody `json:"signature"`
}

func (req investorMintRequest) toParams() (service.MintParams, error) {
	var p service.MintParams
	var err error

	if p.Caller, err = parseAddress(req.Caller); err != nil {
		return p, err
	}
	if p.Creator, err = parseAddress(req.Creator); err != nil {
		return p, err
	}
	if p.TokenID, err = parseAmount(req.TokenID); err != nil {
		return p, err
	}
	if p.RoyaltyFee, err = parseAmount(req.RoyaltyFee); err != nil {
		return p, err
	}
	if p.InvestorFee, err = parseAmount(req.InvestorFee); err != nil {
		return p, err
	}
	p.URI = req.URI
	p.Signature = req.Signature.toDomain()
	return p, nil
}

// CheckInvestorMint validates an investor mint without executing it.
// POST /api/mints/investor/check
func (h *MintHandler) CheckInvestorMint(w http.ResponseWriter, r *http.Request) {
	var req investorMintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.mints.CanPerformInvestorMinting(r.Context(), p); err != nil {
		writeJSON(w, statusForError(err), map[string]any{
			"canPerform": false,
			"reason":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"canPerform": true})
}

// InvestorMint mints a token funded by an investor and approves the
// marketplace for it in the same call.
// POST /api/mints/investor
func (h *MintHandler) InvestorMint(w http.ResponseWriter, r *http.Request) {
	var req investorMintRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec, err := h.mints.InvestorMint(r.Context(), p)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: investor mint rejected",
			slog.String("creator", p.Creator.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// setMarketplaceRequest is the JSON body for pointing the collection at a
// marketplace address.
type setMarketplaceRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

// SetMarketplace changes the marketplace the collection auto-approves on
// investor mints.
// PUT /api/admin/marketplace
func (h *MintHandler) SetMarketplace(w http.ResponseWriter, r *http.Request) {
	var req setMarketplaceRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	addr, err := parseAddress(req.Address)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid address")
		return
	}

	if err := h.mints.SetMarketplace(r.Context(), caller, addr); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"marketplace": addr.Hex()})
}

// GetToken returns the royalty details of a minted token.
// GET /api/tokens/{id}
func (h *MintHandler) GetToken(w http.ResponseWriter, r *http.Request) {
	tokenID, err := parseAmount(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	details, err := h.mints.TokenDetails(tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, details)
}

// listMintsResponse wraps the mint history response.
type listMintsResponse struct {
	Mints []domain.MintRecord `json:"mints"`
}

// ListMints returns recorded mints for the collection.
// GET /api/mints?limit=50&offset=0
func (h *MintHandler) ListMints(w http.ResponseWriter, r *http.Request) {
	mints, err := h.mints.Mints(r.Context(), parseListOpts(r))
	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list mints failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list mints")
		return
	}
	if mints == nil {
		mints = []domain.MintRecord{}
	}
	writeJSON(w, http.StatusOK, listMintsResponse{Mints: mints})
}
