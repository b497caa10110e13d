// Package royalty normalizes the royalty capabilities a collection may
// expose into a single record at the marketplace's fee precision.
package royalty

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/feemath"
)

// Resolution is a collection's royalty answer for one token, with all fee
// percentages converted to the marketplace's decimals.
type Resolution struct {
	RoyaltyFee  *big.Int
	InvestorFee *big.Int
	Creator     common.Address
	Investor    common.Address
}

// Resolver probes a collection object for royalty capabilities, preferring
// the richest one it finds:
//
//  1. The native capability (full creator/investor record at the
//     collection's own decimals).
//  2. The generic royalty-on-sale capability (ERC-2981 shape); the receiver
//     plays the creator role and there is no investor.
//  3. Neither: zero fees, zero addresses.
type Resolver struct {
	decimals uint8
}

// NewResolver creates a resolver producing fees at the given decimals.
func NewResolver(decimals uint8) *Resolver {
	return &Resolver{decimals: decimals}
}

// Resolve returns the royalty record of tokenID on the given collection
// object. Errors from the collection's own getters propagate unchanged, so
// a missing token surfaces as the collection's not-found error.
func (r *Resolver) Resolve(collection any, tokenID *big.Int) (Resolution, error) {
	if native, ok := collection.(domain.NativeRoyalties); ok {
		return r.resolveNative(native, tokenID)
	}
	if info, ok := collection.(domain.RoyaltyInfo); ok {
		return r.resolveRoyaltyInfo(info, tokenID)
	}
	return Resolution{RoyaltyFee: big.NewInt(0), InvestorFee: big.NewInt(0)}, nil
}

// RoyaltyFee returns only the royalty percentage for tokenID.
func (r *Resolver) RoyaltyFee(collection any, tokenID *big.Int) (*big.Int, error) {
	res, err := r.Resolve(collection, tokenID)
	if err != nil {
		return nil, err
	}
	return res.RoyaltyFee, nil
}

// InvestorFee returns only the investor percentage for tokenID.
func (r *Resolver) InvestorFee(collection any, tokenID *big.Int) (*big.Int, error) {
	res, err := r.Resolve(collection, tokenID)
	if err != nil {
		return nil, err
	}
	return res.InvestorFee, nil
}

// Payees returns the creator and investor addresses for tokenID.
func (r *Resolver) Payees(collection any, tokenID *big.Int) (creator, investor common.Address, err error) {
	res, err := r.Resolve(collection, tokenID)
	if err != nil {
		return common.Address{}, common.Address{}, err
	}
	return res.Creator, res.Investor, nil
}

func (r *Resolver) resolveNative(c domain.NativeRoyalties, tokenID *big.Int) (Resolution, error) {
	royaltyFee, err := c.GetRoyaltyFee(tokenID)
	if err != nil {
		return Resolution{}, err
	}
	investorFee, err := c.GetInvestorFee(tokenID)
	if err != nil {
		return Resolution{}, err
	}
	creator, err := c.GetCreator(tokenID)
	if err != nil {
		return Resolution{}, err
	}
	investor, err := c.GetInvestor(tokenID)
	if err != nil {
		return Resolution{}, err
	}
	from := c.Decimals()
	return Resolution{
		RoyaltyFee:  feemath.ConvertScale(royaltyFee, from, r.decimals),
		InvestorFee: feemath.ConvertScale(investorFee, from, r.decimals),
		Creator:     creator,
		Investor:    investor,
	}, nil
}

// resolveRoyaltyInfo derives the fee percentage by asking the collection
// about a hypothetical sale priced at exactly 100% in the resolver's
// decimals, so the returned amount IS the percentage.
func (r *Resolver) resolveRoyaltyInfo(c domain.RoyaltyInfo, tokenID *big.Int) (Resolution, error) {
	hypotheticalPrice := new(big.Int).Mul(big.NewInt(100), feemath.Pow10(r.decimals))
	receiver, amount, err := c.RoyaltyInfo(tokenID, hypotheticalPrice)
	if err != nil {
		return Resolution{}, err
	}
	if amount == nil {
		amount = big.NewInt(0)
	}
	return Resolution{
		RoyaltyFee:  new(big.Int).Set(amount),
		InvestorFee: big.NewInt(0),
		Creator:     receiver,
	}, nil
}
