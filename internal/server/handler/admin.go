package handler

import (
	"log/slog"
	"math/big"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Market defines the marketplace methods the admin handler drives. Admin
// operations carry the acting address in the request body and are subject
// to the marketplace's own role checks.
type Market interface {
	Address() common.Address
	Decimals() uint8
	Autentica() common.Address
	SetAutentica(caller, addr common.Address) error
	Paused() bool
	Pause(caller common.Address) error
	Unpause(caller common.Address) error
	AllowedTokens() []common.Address
	AllowedTokensCount() int
	AllowedTokenAt(index int) (common.Address, error)
	IsTokenAllowed(addr common.Address) bool
	AddAllowedToken(caller, addr common.Address) error
	RemoveAllowedTokenAtIndex(caller common.Address, index int) error
	GetRoyaltyFee(collection common.Address, tokenID *big.Int) (*big.Int, error)
	GetInvestorFee(collection common.Address, tokenID *big.Int) (*big.Int, error)
}

// AdminHandler serves marketplace administration and inspection endpoints.
type AdminHandler struct {
	market    Market
	operator  common.Address
	startedAt time.Time
	logger    *slog.Logger
}

// NewAdminHandler creates an AdminHandler for the given marketplace.
func NewAdminHandler(market Market, operator common.Address, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		market:    market,
		operator:  operator,
		startedAt: time.Now().UTC(),
		logger:    logger,
	}
}

// callerRequest is the JSON body for admin operations that only need the
// acting address.
type callerRequest struct {
	Caller string `json:"caller"`
}

// Status reports the marketplace's runtime state.
// GET /api/status
func (h *AdminHandler) Status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"marketplace":   h.market.Address().Hex(),
		"autentica":     h.market.Autentica().Hex(),
		"operator":      h.operator.Hex(),
		"decimals":      h.market.Decimals(),
		"paused":        h.market.Paused(),
		"allowedTokens": h.market.AllowedTokensCount(),
		"uptimeSeconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// Pause halts trade settlement.
// POST /api/admin/pause
func (h *AdminHandler) Pause(w http.ResponseWriter, r *http.Request) {
	h.runAsCaller(w, r, h.market.Pause)
}

// Unpause resumes trade settlement.
// POST /api/admin/unpause
func (h *AdminHandler) Unpause(w http.ResponseWriter, r *http.Request) {
	h.runAsCaller(w, r, h.market.Unpause)
}

func (h *AdminHandler) runAsCaller(w http.ResponseWriter, r *http.Request, run func(common.Address) error) {
	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := run(caller); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"paused": h.market.Paused()})
}

// setAutenticaRequest is the JSON body for changing the treasury address.
type setAutenticaRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
}

// SetAutentica changes the treasury address receiving marketplace cuts.
// PUT /api/admin/autentica
func (h *AdminHandler) SetAutentica(w http.ResponseWriter, r *http.Request) {
	var req setAutenticaRequest
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

	if err := h.market.SetAutentica(caller, addr); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"autentica": h.market.Autentica().Hex()})
}

// ListAllowedTokens returns the payment-token allow-list.
// GET /api/tokens/allowed
func (h *AdminHandler) ListAllowedTokens(w http.ResponseWriter, r *http.Request) {
	tokens := h.market.AllowedTokens()
	hexed := make([]string, 0, len(tokens))
	for _, t := range tokens {
		hexed = append(hexed, t.Hex())
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"tokens": hexed,
		"count":  len(hexed),
	})
}

// GetAllowedTokenAt returns the payment token at a given list index.
// GET /api/tokens/allowed/{index}
func (h *AdminHandler) GetAllowedTokenAt(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	token, err := h.market.AllowedTokenAt(index)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"index": index,
		"token": token.Hex(),
	})
}

// allowTokenRequest is the JSON body for adding a payment token.
type allowTokenRequest struct {
	Caller string `json:"caller"`
	Token  string `json:"token"`
}

// AddAllowedToken adds a payment token to the allow-list.
// POST /api/tokens/allowed
func (h *AdminHandler) AddAllowedToken(w http.ResponseWriter, r *http.Request) {
	var req allowTokenRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}
	token, err := parseAddress(req.Token)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token address")
		return
	}

	if err := h.market.AddAllowedToken(caller, token); err != nil {
		writeDomainError(w, err)
		return
	}

	h.logger.InfoContext(r.Context(), "handler: payment token allowed",
		slog.String("token", token.Hex()),
	)
	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token.Hex(),
		"count": h.market.AllowedTokensCount(),
	})
}

// RemoveAllowedToken removes the payment token at a given list index.
// DELETE /api/tokens/allowed/{index}
func (h *AdminHandler) RemoveAllowedToken(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil || index < 0 {
		writeError(w, http.StatusBadRequest, "invalid index")
		return
	}

	var req callerRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	caller, err := parseAddress(req.Caller)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid caller address")
		return
	}

	if err := h.market.RemoveAllowedTokenAtIndex(caller, index); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count": h.market.AllowedTokensCount(),
	})
}

// GetFees returns a token's royalty and investor fee at marketplace
// decimals, regardless of the collection's native scale.
// GET /api/collections/{collection}/tokens/{id}/fees
func (h *AdminHandler) GetFees(w http.ResponseWriter, r *http.Request) {
	collection, err := parseAddress(r.PathValue("collection"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid collection address")
		return
	}
	tokenID, err := parseAmount(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid token id")
		return
	}

	royaltyFee, err := h.market.GetRoyaltyFee(collection, tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	investorFee, err := h.market.GetInvestorFee(collection, tokenID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"collection":  collection.Hex(),
		"tokenId":     tokenID.String(),
		"royaltyFee":  royaltyFee.String(),
		"investorFee": investorFee.String(),
		"decimals":    h.market.Decimals(),
	})
}
