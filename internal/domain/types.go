// Package domain holds the core types, capability interfaces, and sentinel
// errors shared by every layer of the marketplace.
package domain

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Signature is an ECDSA signature split into its three canonical components,
// the shape in which the off-chain operator hands signatures to clients.
type Signature struct {
	V uint8       `json:"v"`
	R common.Hash `json:"r"`
	S common.Hash `json:"s"`
}

// Bytes returns the 65-byte r || s || v representation with v in {27, 28}.
func (s Signature) Bytes() []byte {
	out := make([]byte, 65)
	copy(out[0:32], s.R[:])
	copy(out[32:64], s.S[:])
	out[64] = s.V
	return out
}

// TokenDetails is the per-token royalty record kept by a collection. Fees are
// fixed-point percentages at the collection's own decimal precision; 100%
// equals 100 * 10^decimals. Creator and fees are immutable after mint.
type TokenDetails struct {
	Creator     common.Address `json:"creator"`
	Investor    common.Address `json:"investor"`
	RoyaltyFee  *big.Int       `json:"royaltyFee"`
	InvestorFee *big.Int       `json:"investorFee"`
}

// TradeIntent is the full parameter tuple an operator co-signs. It exists only
// for the duration of one settlement call and is never persisted; the
// signature binds every field, so any change invalidates it.
type TradeIntent struct {
	Marketplace    common.Address `json:"marketplace"`
	Collection     common.Address `json:"collection"`
	TokenID        *big.Int       `json:"tokenId"`
	Seller         common.Address `json:"seller"`
	Buyer          common.Address `json:"buyer"`
	Price          *big.Int       `json:"price"`
	PaymentToken   common.Address `json:"paymentToken"`
	RoyaltyFee     *big.Int       `json:"royaltyFee"`     // at marketplace decimals
	InvestorFee    *big.Int       `json:"investorFee"`    // at marketplace decimals
	MarketplaceFee *big.Int       `json:"marketplaceFee"` // at marketplace decimals
}

// MintIntent is the tuple an operator co-signs to authorize investor minting.
type MintIntent struct {
	Collection  common.Address `json:"collection"`
	Creator     common.Address `json:"creator"`
	TokenID     *big.Int       `json:"tokenId"`
	RoyaltyFee  *big.Int       `json:"royaltyFee"`  // at collection decimals
	InvestorFee *big.Int       `json:"investorFee"` // at collection decimals
}

// Proceeds is the outcome of the fee waterfall for a single settlement.
// Owner + Creator + Investor + Marketplace always equals the trade price.
type Proceeds struct {
	Owner       *big.Int `json:"owner"`
	Creator     *big.Int `json:"creator"`
	Investor    *big.Int `json:"investor"`
	Marketplace *big.Int `json:"marketplace"`
}

// Settlement is the persisted record of one executed trade.
type Settlement struct {
	ID           string         `json:"id"`
	Collection   common.Address `json:"collection"`
	TokenID      *big.Int       `json:"tokenId"`
	Seller       common.Address `json:"seller"`
	Buyer        common.Address `json:"buyer"`
	PaymentToken common.Address `json:"paymentToken"` // zero address for coin trades
	Price        *big.Int       `json:"price"`
	Proceeds     Proceeds       `json:"proceeds"`
	SettledAt    time.Time      `json:"settledAt"`
}

// MintRecord is the persisted record of one minted token.
type MintRecord struct {
	ID          string         `json:"id"`
	Collection  common.Address `json:"collection"`
	TokenID     *big.Int       `json:"tokenId"`
	Creator     common.Address `json:"creator"`
	Investor    common.Address `json:"investor"` // zero address for normal mints
	RoyaltyFee  *big.Int       `json:"royaltyFee"`
	InvestorFee *big.Int       `json:"investorFee"`
	URI         string         `json:"uri"`
	MintedAt    time.Time      `json:"mintedAt"`
}

// ListOpts carries standard pagination parameters for list queries.
type ListOpts struct {
	Limit  int
	Offset int
}
