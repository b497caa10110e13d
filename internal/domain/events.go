package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Event is a marketplace state-change notification. The field sets of the
// concrete events are part of the observable contract.
type Event interface {
	// EventName returns the stable event identifier, e.g. "TradedForCoins".
	EventName() string
}

// EventSink receives every event the marketplace and collection emit.
// Implementations must not fail the emitting operation.
type EventSink interface {
	Emit(event Event)
}

// EventSinkFunc adapts a function to the EventSink interface.
type EventSinkFunc func(Event)

func (f EventSinkFunc) Emit(e Event) { f(e) }

// TradedForCoins is emitted after a native-coin settlement.
type TradedForCoins struct {
	Collection       common.Address `json:"collection"`
	TokenID          *big.Int       `json:"tokenId"`
	Seller           common.Address `json:"seller"`
	Buyer            common.Address `json:"buyer"`
	Price            *big.Int       `json:"price"`
	OwnerProceeds    *big.Int       `json:"ownerProceeds"`
	CreatorProceeds  *big.Int       `json:"creatorProceeds"`
	InvestorProceeds *big.Int       `json:"investorProceeds"`
}

func (TradedForCoins) EventName() string { return "TradedForCoins" }

// TradedForTokens is emitted after an allow-listed-token settlement.
type TradedForTokens struct {
	Collection       common.Address `json:"collection"`
	TokenID          *big.Int       `json:"tokenId"`
	Seller           common.Address `json:"seller"`
	Buyer            common.Address `json:"buyer"`
	Token            common.Address `json:"token"`
	Price            *big.Int       `json:"price"`
	OwnerProceeds    *big.Int       `json:"ownerProceeds"`
	CreatorProceeds  *big.Int       `json:"creatorProceeds"`
	InvestorProceeds *big.Int       `json:"investorProceeds"`
}

func (TradedForTokens) EventName() string { return "TradedForTokens" }

// AllowedTokenAdded is emitted when a payment token joins the allow-list.
type AllowedTokenAdded struct {
	TokenAddress common.Address `json:"tokenAddress"`
}

func (AllowedTokenAdded) EventName() string { return "AllowedTokenAdded" }

// AllowedTokenRemoved is emitted when a payment token leaves the allow-list.
type AllowedTokenRemoved struct {
	TokenAddress common.Address `json:"tokenAddress"`
}

func (AllowedTokenRemoved) EventName() string { return "AllowedTokenRemoved" }

// ChangedAutentica is emitted when the marketplace treasury address changes.
type ChangedAutentica struct {
	OldAddress common.Address `json:"oldAddress"`
	NewAddress common.Address `json:"newAddress"`
}

func (ChangedAutentica) EventName() string { return "ChangedAutentica" }

// ChangedMarketplace is emitted when a collection's marketplace address
// changes.
type ChangedMarketplace struct {
	OldAddress common.Address `json:"oldAddress"`
	NewAddress common.Address `json:"newAddress"`
}

func (ChangedMarketplace) EventName() string { return "ChangedMarketplace" }

// Paused is emitted when an admin engages the circuit breaker.
type Paused struct {
	Account common.Address `json:"account"`
}

func (Paused) EventName() string { return "Paused" }

// Unpaused is emitted when an admin releases the circuit breaker.
type Unpaused struct {
	Account common.Address `json:"account"`
}

func (Unpaused) EventName() string { return "Unpaused" }
