package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/service"
)

// SettlementService defines the methods that the trade handler requires from
// the service layer.
type SettlementService interface {
	CanPerformTrade(ctx context.Context, p service.TradeParams) error
	SettleForCoins(ctx context.Context, p service.TradeParams) (domain.Settlement, error)
	SettleForTokens(ctx context.Context, p service.TradeParams) (domain.Settlement, error)
	Recent(ctx context.Context, opts domain.ListOpts) ([]domain.Settlement, error)
	ByCollection(ctx context.Context, collection common.Address, opts domain.ListOpts) ([]domain.Settlement, error)
	ByAddress(ctx context.Context, addr common.Address, opts domain.ListOpts) ([]domain.Settlement, error)
}

// TradeHandler serves trade submission and settlement history endpoints.
type TradeHandler struct {
	settlements SettlementService
	logger      *slog.Logger
}

// NewTradeHandler creates a TradeHandler with the given service and logger.
func NewTradeHandler(settlements SettlementService, logger *slog.Logger) *TradeHandler {
	return &TradeHandler{
		settlements: settlements,
		logger:      logger,
	}
}

// tradeRequest is the JSON body for trade submission and pre-checks.
// Amounts are base-10 strings so they survive uint256 magnitudes.
type tradeRequest struct {
	Caller         string        `json:"caller"`
	Collection     string        `json:"collection"`
	TokenID        string        `json:"tokenId"`
	Price          string        `json:"price"`
	PaymentToken   string        `json:"paymentToken,omitempty"`
	Buyer          string        `json:"buyer"`
	MarketplaceFee string        `json:"marketplaceFee"`
	Signature      signatureBody `json:"signature"`
	SentValue      string        `json:"sentValue,omitempty"`
}

func (req tradeRequest) toParams() (service.TradeParams, error) {
	var p service.TradeParams
	var err error

	if p.Caller, err = parseAddress(req.Caller); err != nil {
		return p, err
	}
	if p.Collection, err = parseAddress(req.Collection); err != nil {
		return p, err
	}
	if p.Buyer, err = parseAddress(req.Buyer); err != nil {
		return p, err
	}
	if req.PaymentToken != "" {
		if p.PaymentToken, err = parseAddress(req.PaymentToken); err != nil {
			return p, err
		}
	}
	if p.TokenID, err = parseAmount(req.TokenID); err != nil {
		return p, err
	}
	if p.Price, err = parseAmount(req.Price); err != nil {
		return p, err
	}
	if p.MarketplaceFee, err = parseAmount(req.MarketplaceFee); err != nil {
		return p, err
	}
	if req.SentValue != "" {
		if p.SentValue, err = parseAmount(req.SentValue); err != nil {
			return p, err
		}
	}
	p.Signature = req.Signature.toDomain()
	return p, nil
}

// CheckTrade validates a trade without settling it.
// POST /api/trades/check
func (h *TradeHandler) CheckTrade(w http.ResponseWriter, r *http.Request) {
	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.settlements.CanPerformTrade(r.Context(), p); err != nil {
		writeJSON(w, statusForError(err), map[string]any{
			"canPerform": false,
			"reason":     err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"canPerform": true})
}

// TradeForCoins settles a trade paid in the native coin.
// POST /api/trades/coins
func (h *TradeHandler) TradeForCoins(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settlements.SettleForCoins)
}

// TradeForTokens settles a trade paid in an allow-listed token.
// POST /api/trades/tokens
func (h *TradeHandler) TradeForTokens(w http.ResponseWriter, r *http.Request) {
	h.settle(w, r, h.settlements.SettleForTokens)
}

func (h *TradeHandler) settle(w http.ResponseWriter, r *http.Request, run func(context.Context, service.TradeParams) (domain.Settlement, error)) {
	var req tradeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	settlement, err := run(r.Context(), p)
	if err != nil {
		h.logger.WarnContext(r.Context(), "handler: trade rejected",
			slog.String("collection", p.Collection.Hex()),
			slog.String("error", err.Error()),
		)
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, settlement)
}

// listSettlementsResponse wraps the settlement history response.
type listSettlementsResponse struct {
	Settlements []domain.Settlement `json:"settlements"`
}

// ListSettlements returns recent settlements, optionally filtered by
// collection or participant address.
// GET /api/settlements?collection=0x...&address=0x...&limit=50&offset=0
func (h *TradeHandler) ListSettlements(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := parseListOpts(r)

	var settlements []domain.Settlement
	var err error

	switch {
	case q.Get("collection") != "":
		var collection common.Address
		if collection, err = parseAddress(q.Get("collection")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid collection address")
			return
		}
		settlements, err = h.settlements.ByCollection(r.Context(), collection, opts)
	case q.Get("address") != "":
		var addr common.Address
		if addr, err = parseAddress(q.Get("address")); err != nil {
			writeError(w, http.StatusBadRequest, "invalid address")
			return
		}
		settlements, err = h.settlements.ByAddress(r.Context(), addr, opts)
	default:
		settlements, err = h.settlements.Recent(r.Context(), opts)
	}

	if err != nil {
		h.logger.ErrorContext(r.Context(), "handler: list settlements failed",
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "failed to list settlements")
		return
	}

	if settlements == nil {
		settlements = []domain.Settlement{}
	}
	writeJSON(w, http.StatusOK, listSettlementsResponse{Settlements: settlements})
}
