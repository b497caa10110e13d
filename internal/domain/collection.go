package domain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ERC721 is the base NFT-transfer capability a collection must advertise
// before the marketplace will settle trades against it.
type ERC721 interface {
	Address() common.Address
	OwnerOf(tokenID *big.Int) (common.Address, error)
	GetApproved(tokenID *big.Int) (common.Address, error)
	IsApprovedForAll(owner, operator common.Address) bool
	// TransferFrom moves tokenID from `from` to `to` on behalf of `caller`,
	// which must be the owner, the approved address, or an approved operator.
	// Any per-token approval is cleared by the transfer.
	TransferFrom(caller, from, to common.Address, tokenID *big.Int) error
}

// NativeRoyalties is the paired NFT standard's royalty capability: the full
// creator/investor record at the collection's own decimal precision.
type NativeRoyalties interface {
	Decimals() uint8
	GetRoyaltyFee(tokenID *big.Int) (*big.Int, error)
	GetInvestorFee(tokenID *big.Int) (*big.Int, error)
	GetCreator(tokenID *big.Int) (common.Address, error)
	GetInvestor(tokenID *big.Int) (common.Address, error)
}

// RoyaltyInfo is the generic royalty-on-sale capability (the ERC-2981 shape):
// the collection computes the royalty amount owed for a hypothetical sale
// price and names the receiver. There is no investor concept here.
type RoyaltyInfo interface {
	RoyaltyInfo(tokenID *big.Int, salePrice *big.Int) (receiver common.Address, amount *big.Int, err error)
}

// CollectionResolver maps a collection address to whatever object is deployed
// there. The settlement engine probes the returned value for the capability
// interfaces above; an address that resolves to nothing, or to something
// without the ERC721 capability, is an unsupported collection.
type CollectionResolver interface {
	Collection(addr common.Address) (any, bool)
}
