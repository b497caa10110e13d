// Package nft implements the Autentica ERC-721 collection: token records with
// creator/investor royalty splits, operator-authorized investor minting, and
// the transfer/approval mechanics the settlement engine relies on.
package nft

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/access"
	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/feemath"
)

// collectionDecimals is the precision of fee percentages stored on tokens:
// a fee of 250 means 2.50%.
const collectionDecimals uint8 = 2

// tokenRecord holds everything the collection tracks per token.
type tokenRecord struct {
	owner    common.Address
	approved common.Address
	uri      string
	details  domain.TokenDetails
}

// Collection is the NFT token ledger. All state transitions are serialized
// behind one mutex; methods are safe for concurrent use.
type Collection struct {
	mu sync.Mutex

	addr        common.Address
	name        string
	symbol      string
	marketplace common.Address

	tokens    map[string]*tokenRecord
	operators map[common.Address]map[common.Address]bool

	roles  *access.RoleSet
	events domain.EventSink
}

// NewCollection creates a collection at addr. The deployer receives the admin
// role and may grant the operator role to minting co-signers.
func NewCollection(addr, deployer common.Address, events domain.EventSink) *Collection {
	if events == nil {
		events = domain.EventSinkFunc(func(domain.Event) {})
	}
	return &Collection{
		addr:      addr,
		name:      "Autentica",
		symbol:    "AUT",
		tokens:    make(map[string]*tokenRecord),
		operators: make(map[common.Address]map[common.Address]bool),
		roles:     access.NewRoleSet(deployer),
		events:    events,
	}
}

// Roles exposes the collection's role set for grant/revoke administration.
func (c *Collection) Roles() *access.RoleSet { return c.roles }

// Address returns the collection's address.
func (c *Collection) Address() common.Address { return c.addr }

// Name returns the collection name.
func (c *Collection) Name() string { return c.name }

// Symbol returns the collection symbol.
func (c *Collection) Symbol() string { return c.symbol }

// Decimals returns the precision used for fee percentages.
func (c *Collection) Decimals() uint8 { return collectionDecimals }

// Marketplace returns the marketplace address approved during investor
// minting, or the zero address if none is set.
func (c *Collection) Marketplace() common.Address {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.marketplace
}

// SetMarketplace changes the marketplace address. Admin only.
func (c *Collection) SetMarketplace(caller, marketplace common.Address) error {
	if !c.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyTokenAdmins
	}
	c.mu.Lock()
	old := c.marketplace
	c.marketplace = marketplace
	c.mu.Unlock()
	c.events.Emit(domain.ChangedMarketplace{OldAddress: old, NewAddress: marketplace})
	return nil
}

// CanPerformMint reports whether Mint would succeed for tokenID with the
// given royalty fee, returning the refusal reason otherwise.
func (c *Collection) CanPerformMint(tokenID, royaltyFee *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkMint(tokenID, royaltyFee)
}

func (c *Collection) checkMint(tokenID, royaltyFee *big.Int) error {
	if _, ok := c.tokens[tokenKey(tokenID)]; ok {
		return domain.ErrAlreadyMinted
	}
	if exceedsMaxFee(royaltyFee) {
		return domain.ErrFeeExceedsMaximum
	}
	return nil
}

// Mint creates tokenID owned by caller, with caller as creator and no
// investor.
func (c *Collection) Mint(caller common.Address, tokenID *big.Int, uri string, royaltyFee *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkMint(tokenID, royaltyFee); err != nil {
		return err
	}
	c.tokens[tokenKey(tokenID)] = &tokenRecord{
		owner: caller,
		uri:   uri,
		details: domain.TokenDetails{
			Creator:     caller,
			RoyaltyFee:  normalizeFee(royaltyFee),
			InvestorFee: big.NewInt(0),
		},
	}
	return nil
}

// CanPerformInvestorMinting reports whether InvestorMintingAndApproveMarketplace
// would succeed, returning the refusal reason otherwise. The caller is the
// prospective investor; the signature must come from an operator and cover
// (collection, creator, tokenId, royaltyFee, investorFee).
func (c *Collection) CanPerformInvestorMinting(caller, creator common.Address, tokenID, royaltyFee, investorFee *big.Int, sig domain.Signature) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.checkInvestorMinting(caller, creator, tokenID, royaltyFee, investorFee, sig)
}

func (c *Collection) checkInvestorMinting(caller, creator common.Address, tokenID, royaltyFee, investorFee *big.Int, sig domain.Signature) error {
	if _, ok := c.tokens[tokenKey(tokenID)]; ok {
		return domain.ErrAlreadyMinted
	}
	if exceedsMaxFee(royaltyFee) || exceedsMaxFee(investorFee) {
		return domain.ErrFeeExceedsMaximum
	}
	if caller == creator {
		return domain.ErrInvestorCannotBeCreator
	}
	if c.marketplace == (common.Address{}) {
		return domain.ErrMarketplaceNotSet
	}
	digest := crypto.MintDigest(domain.MintIntent{
		Collection:  c.addr,
		Creator:     creator,
		TokenID:     tokenID,
		RoyaltyFee:  royaltyFee,
		InvestorFee: investorFee,
	})
	signer, err := crypto.Recover(digest, sig)
	if err != nil || !c.roles.Has(access.RoleOperator, signer) {
		return domain.ErrMintInvalidSignature
	}
	return nil
}

// InvestorMintingAndApproveMarketplace mints tokenID to the creator with the
// caller recorded as investor, and approves the marketplace for the new token
// in the same step.
func (c *Collection) InvestorMintingAndApproveMarketplace(caller, creator common.Address, tokenID *big.Int, uri string, royaltyFee, investorFee *big.Int, sig domain.Signature) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkInvestorMinting(caller, creator, tokenID, royaltyFee, investorFee, sig); err != nil {
		return err
	}
	c.tokens[tokenKey(tokenID)] = &tokenRecord{
		owner:    creator,
		approved: c.marketplace,
		uri:      uri,
		details: domain.TokenDetails{
			Creator:     creator,
			Investor:    caller,
			RoyaltyFee:  normalizeFee(royaltyFee),
			InvestorFee: normalizeFee(investorFee),
		},
	}
	return nil
}

// Exists reports whether tokenID has been minted.
func (c *Collection) Exists(tokenID *big.Int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokens[tokenKey(tokenID)]
	return ok
}

// OwnerOf returns the current owner of tokenID.
func (c *Collection) OwnerOf(tokenID *big.Int) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return rec.owner, nil
}

// TokenURI returns the metadata URI of tokenID.
func (c *Collection) TokenURI(tokenID *big.Int) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return "", domain.ErrTokenDoesNotExist
	}
	return rec.uri, nil
}

// GetCreator returns the creator of tokenID.
func (c *Collection) GetCreator(tokenID *big.Int) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return rec.details.Creator, nil
}

// GetInvestor returns the investor of tokenID, or the zero address when the
// token was minted without one.
func (c *Collection) GetInvestor(tokenID *big.Int) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return rec.details.Investor, nil
}

// GetRoyaltyFee returns the royalty fee percentage of tokenID at the
// collection's decimals.
func (c *Collection) GetRoyaltyFee(tokenID *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return nil, domain.ErrTokenDoesNotExist
	}
	return new(big.Int).Set(rec.details.RoyaltyFee), nil
}

// GetInvestorFee returns the investor fee percentage of tokenID at the
// collection's decimals. Zero for tokens minted without an investor.
func (c *Collection) GetInvestorFee(tokenID *big.Int) (*big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return nil, domain.ErrTokenDoesNotExist
	}
	return new(big.Int).Set(rec.details.InvestorFee), nil
}

// GetTokenDetails returns the full royalty record of tokenID.
func (c *Collection) GetTokenDetails(tokenID *big.Int) (domain.TokenDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return domain.TokenDetails{}, domain.ErrTokenDoesNotExist
	}
	d := rec.details
	d.RoyaltyFee = new(big.Int).Set(rec.details.RoyaltyFee)
	d.InvestorFee = new(big.Int).Set(rec.details.InvestorFee)
	return d, nil
}

// RoyaltyInfo reports where royalties for a sale of tokenID at salePrice
// should go. Matches the ERC-2981 shape: a zero royalty fee yields a zero
// receiver and amount.
func (c *Collection) RoyaltyInfo(tokenID, salePrice *big.Int) (common.Address, *big.Int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return common.Address{}, nil, domain.ErrTokenDoesNotExist
	}
	if rec.details.RoyaltyFee.Sign() == 0 {
		return common.Address{}, big.NewInt(0), nil
	}
	amount := feemath.PercentOf(salePrice, rec.details.RoyaltyFee, collectionDecimals)
	return rec.details.Creator, amount, nil
}

// Approve sets the approved address for tokenID. The caller must be the
// owner or an operator approved for the owner.
func (c *Collection) Approve(caller, to common.Address, tokenID *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return domain.ErrTokenDoesNotExist
	}
	if caller != rec.owner && !c.operators[rec.owner][caller] {
		return domain.ErrNotOwner
	}
	rec.approved = to
	return nil
}

// GetApproved returns the approved address for tokenID, or the zero address.
func (c *Collection) GetApproved(tokenID *big.Int) (common.Address, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return rec.approved, nil
}

// SetApprovalForAll approves or revokes operator for all of caller's tokens.
func (c *Collection) SetApprovalForAll(caller, operator common.Address, approved bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.operators[caller] == nil {
		c.operators[caller] = make(map[common.Address]bool)
	}
	c.operators[caller][operator] = approved
}

// IsApprovedForAll reports whether operator may manage all of owner's tokens.
func (c *Collection) IsApprovedForAll(owner, operator common.Address) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.operators[owner][operator]
}

// TransferFrom moves tokenID from `from` to `to` on behalf of caller. The
// caller must be the owner, the approved address, or an approved operator.
// The per-token approval is cleared by the transfer.
func (c *Collection) TransferFrom(caller, from, to common.Address, tokenID *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	rec, ok := c.tokens[tokenKey(tokenID)]
	if !ok {
		return domain.ErrTokenDoesNotExist
	}
	if rec.owner != from {
		return domain.ErrNotOwner
	}
	if caller != rec.owner && caller != rec.approved && !c.operators[rec.owner][caller] {
		return domain.ErrTransferNotAuthorized
	}
	rec.owner = to
	rec.approved = common.Address{}
	return nil
}

func tokenKey(tokenID *big.Int) string {
	if tokenID == nil {
		return "0"
	}
	return tokenID.String()
}

// maxFee is 100% at the collection's decimals.
var maxFee = new(big.Int).Mul(big.NewInt(100), feemath.Pow10(collectionDecimals))

func exceedsMaxFee(fee *big.Int) bool {
	return fee != nil && fee.Cmp(maxFee) > 0
}

func normalizeFee(fee *big.Int) *big.Int {
	if fee == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(fee)
}
