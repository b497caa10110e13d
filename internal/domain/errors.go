package domain

import "errors"

// Marketplace rejection reasons. The exact strings are part of the observable
// contract: clients match on them when a settlement call is refused.
var (
	ErrUnsupportedCollection = errors.New("NFTMarketplace: Collection does not support the ERC-721 interface")
	ErrNotApproved           = errors.New("NFTMarketplace: Owner has not approved us for managing its NFTs")
	ErrFeesExceedMaximum     = errors.New("NFTMarketplace: Total fees cannot be greater than 100%")
	ErrInvalidSignature      = errors.New("NFTMarketplace: Invalid signature")
	ErrContractPaused        = errors.New("NFTMarketplace: Contract is paused")
	ErrInsufficientPayment   = errors.New("NFTMarketplace: Not enough coins sent")
	ErrTokenNotAllowed       = errors.New("NFTMarketplace: Token not allowed")
	ErrIndexOutOfBounds      = errors.New("NFTMarketplace: Index out of bounds")
	ErrZeroAddress           = errors.New("NFTMarketplace: Token address is the zero address")
	ErrAlreadyAllowed        = errors.New("NFTMarketplace: Token address is already allowed")
)

// Marketplace role-check rejections.
var (
	ErrOnlyAdminsCanAddTokens    = errors.New("NFTMarketplace: Only admins can add allowed tokens")
	ErrOnlyAdminsCanRemoveTokens = errors.New("NFTMarketplace: Only admins can remove allowed tokens")
	ErrOnlyAdminsCanChangeThis   = errors.New("NFTMarketplace: Only admins can change this")
	ErrOnlyAdminsCanPause        = errors.New("NFTMarketplace: Only admins can pause")
	ErrOnlyAdminsCanUnpause      = errors.New("NFTMarketplace: Only admins can unpause")
)

// Collection (token-side) rejection reasons.
var (
	ErrAlreadyMinted           = errors.New("AutenticaERC721: Token already minted")
	ErrTokenDoesNotExist       = errors.New("AutenticaERC721: Token doesn't exist")
	ErrFeeExceedsMaximum       = errors.New("AutenticaERC721: Fee must be less than or equal to 100%")
	ErrInvestorCannotBeCreator = errors.New("AutenticaERC721: Investor can't be the creator")
	ErrMintInvalidSignature    = errors.New("AutenticaERC721: Invalid signature")
	ErrMarketplaceNotSet       = errors.New("AutenticaERC721: Marketplace address not set")
	ErrOnlyTokenAdmins         = errors.New("AutenticaERC721: Only admins can change this")
)

// Ledger and infrastructure errors.
var (
	ErrInsufficientBalance   = errors.New("ledger: insufficient balance")
	ErrInsufficientAllowance = errors.New("ledger: insufficient allowance")
	ErrNotOwner              = errors.New("collection: caller is not the owner")
	ErrTransferNotAuthorized = errors.New("collection: transfer not authorized")
	ErrNotFound              = errors.New("not found")
	ErrUnauthorized          = errors.New("unauthorized")
)
