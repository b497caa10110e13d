package handler

import (
	"encoding/json"
	"errors"
	"math/big"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps marketplace and collection errors onto HTTP status
// codes and sends the error message as the response body. Messages are the
// stable revert strings, so clients can match on them.
func writeDomainError(w http.ResponseWriter, err error) {
	writeError(w, statusForError(err), err.Error())
}

func statusForError(err error) int {
	switch {
	case errors.Is(err, domain.ErrNotFound),
		errors.Is(err, domain.ErrTokenDoesNotExist):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidSignature),
		errors.Is(err, domain.ErrMintInvalidSignature):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrOnlyAdminsCanAddTokens),
		errors.Is(err, domain.ErrOnlyAdminsCanRemoveTokens),
		errors.Is(err, domain.ErrOnlyAdminsCanChangeThis),
		errors.Is(err, domain.ErrOnlyAdminsCanPause),
		errors.Is(err, domain.ErrOnlyAdminsCanUnpause),
		errors.Is(err, domain.ErrOnlyTokenAdmins),
		errors.Is(err, domain.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrContractPaused):
		return http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrAlreadyMinted),
		errors.Is(err, domain.ErrAlreadyAllowed):
		return http.StatusConflict
	case errors.Is(err, domain.ErrInsufficientPayment),
		errors.Is(err, domain.ErrInsufficientBalance),
		errors.Is(err, domain.ErrInsufficientAllowance):
		return http.StatusPaymentRequired
	case errors.Is(err, domain.ErrUnsupportedCollection),
		errors.Is(err, domain.ErrNotApproved),
		errors.Is(err, domain.ErrFeesExceedMaximum),
		errors.Is(err, domain.ErrFeeExceedsMaximum),
		errors.Is(err, domain.ErrTokenNotAllowed),
		errors.Is(err, domain.ErrIndexOutOfBounds),
		errors.Is(err, domain.ErrZeroAddress),
		errors.Is(err, domain.ErrInvestorCannotBeCreator),
		errors.Is(err, domain.ErrMarketplaceNotSet),
		errors.Is(err, domain.ErrNotOwner),
		errors.Is(err, domain.ErrTransferNotAuthorized):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// parseListOpts extracts standard pagination parameters from the query string.
// Defaults: limit=50 (max 500), offset=0.
func parseListOpts(r *http.Request) domain.ListOpts {
	q := r.URL.Query()

	limit := 50
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}
	if limit > 500 {
		limit = 500
	}

	offset := 0
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	return domain.ListOpts{
		Limit:  limit,
		Offset: offset,
	}
}

// parseAddress validates and parses a hex address.
func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, errors.New("invalid address")
	}
	return common.HexToAddress(s), nil
}

// parseAmount parses a base-10 unsigned integer of arbitrary size.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return nil, errors.New("missing amount")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok || n.Sign() < 0 {
		return nil, errors.New("invalid amount")
	}
	return n, nil
}

// signatureBody is the wire form of an operator signature.
type signatureBody struct {
	V uint8  `json:"v"`
	R string `json:"r"`
	S string `json:"s"`
}

func (b signatureBody) toDomain() domain.Signature {
	return domain.Signature{
		V: b.V,
		R: common.HexToHash(b.R),
		S: common.HexToHash(b.S),
	}
}

func signatureFromDomain(sig domain.Signature) signatureBody {
	return signatureBody{
		V: sig.V,
		R: sig.R.Hex(),
		S: sig.S.Hex(),
	}
}

// decodeBody unmarshals a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}
