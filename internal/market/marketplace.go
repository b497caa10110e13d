// Package market implements the NFT trade settlement engine: operator
// co-signed trades settled in native coins or allow-listed ERC-20 tokens,
// with the fee waterfall splitting every sale between seller, creator,
// investor and the marketplace treasury.
package market

import (
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/access"
	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/feemath"
	"github.com/autentica/marketplace/internal/ledger"
	"github.com/autentica/marketplace/internal/registry"
	"github.com/autentica/marketplace/internal/royalty"
)

// marketDecimals is the precision of fee percentages on the settlement
// side: a marketplace fee of 250 means 2.50%.
const marketDecimals uint8 = 2

// maxTotalFee is 100% at the marketplace's decimals.
var maxTotalFee = new(big.Int).Mul(big.NewInt(100), feemath.Pow10(marketDecimals))

// Config carries the marketplace's collaborators.
type Config struct {
	// Address is the marketplace's own address, bound into every signed
	// trade tuple and used as the transfer caller on collections.
	Address common.Address

	// Deployer receives the admin role.
	Deployer common.Address

	// Autentica is the treasury address receiving marketplace cuts.
	Autentica common.Address

	// AllowedTokens seeds the payment-token allow-list.
	AllowedTokens []common.Address

	Collections domain.CollectionResolver
	Coins       *ledger.CoinLedger
	Tokens      *ledger.TokenLedger
	Events      domain.EventSink
	Logger      *slog.Logger
}

// Marketplace is the settlement venue. One mutex serializes every
// settlement and admin mutation, mirroring sequential transaction
// execution on the host ledger.
type Marketplace struct {
	mu sync.Mutex

	addr      common.Address
	autentica common.Address

	allowed     *registry.AllowedTokens
	roles       *access.RoleSet
	pausable    *access.Pausable
	resolver    *royalty.Resolver
	collections domain.CollectionResolver
	coins       *ledger.CoinLedger
	tokens      *ledger.TokenLedger
	events      domain.EventSink
	logger      *slog.Logger
}

// New creates a marketplace from cfg. The deployer holds the admin role;
// operator signers are granted through Roles.
func New(cfg Config) *Marketplace {
	events := cfg.Events
	if events == nil {
		events = domain.EventSinkFunc(func(domain.Event) {})
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Marketplace{
		addr:        cfg.Address,
		autentica:   cfg.Autentica,
		allowed:     registry.New(cfg.AllowedTokens),
		roles:       access.NewRoleSet(cfg.Deployer),
		pausable:    &access.Pausable{},
		resolver:    royalty.NewResolver(marketDecimals),
		collections: cfg.Collections,
		coins:       cfg.Coins,
		tokens:      cfg.Tokens,
		events:      events,
		logger:      logger.With(slog.String("component", "marketplace")),
	}
}

// Roles exposes the marketplace role set for grant/revoke administration.
func (m *Marketplace) Roles() *access.RoleSet { return m.roles }

// Address returns the marketplace's own address.
func (m *Marketplace) Address() common.Address { return m.addr }

// Decimals returns the precision of marketplace fee percentages.
func (m *Marketplace) Decimals() uint8 { return marketDecimals }

// Autentica returns the current treasury address.
func (m *Marketplace) Autentica() common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.autentica
}

// SetAutentica changes the treasury address. Admin only.
func (m *Marketplace) SetAutentica(caller, addr common.Address) error {
	if !m.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyAdminsCanChangeThis
	}
	m.mu.Lock()
	old := m.autentica
	m.autentica = addr
	m.mu.Unlock()
	m.events.Emit(domain.ChangedAutentica{OldAddress: old, NewAddress: addr})
	m.logger.Info("treasury changed", slog.String("old", old.Hex()), slog.String("new", addr.Hex()))
	return nil
}

// Paused reports whether settlement is halted.
func (m *Marketplace) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pausable.Paused()
}

// Pause halts all settlement entry points. Admin only.
func (m *Marketplace) Pause(caller common.Address) error {
	if !m.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyAdminsCanPause
	}
	m.mu.Lock()
	m.pausable.Pause()
	m.mu.Unlock()
	m.events.Emit(domain.Paused{Account: caller})
	m.logger.Warn("marketplace paused", slog.String("by", caller.Hex()))
	return nil
}

// Unpause resumes settlement. Admin only.
func (m *Marketplace) Unpause(caller common.Address) error {
	if !m.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyAdminsCanUnpause
	}
	m.mu.Lock()
	m.pausable.Unpause()
	m.mu.Unlock()
	m.events.Emit(domain.Unpaused{Account: caller})
	m.logger.Info("marketplace unpaused", slog.String("by", caller.Hex()))
	return nil
}

// AllowedTokensCount returns the size of the payment-token allow-list.
func (m *Marketplace) AllowedTokensCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowed.Count()
}

// AllowedTokenAt returns the allow-listed token at index.
func (m *Marketplace) AllowedTokenAt(index int) (common.Address, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowed.At(index)
}

// IsTokenAllowed reports whether addr may denominate trades.
func (m *Marketplace) IsTokenAllowed(addr common.Address) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowed.Contains(addr)
}

// AllowedTokens returns a copy of the allow-list in order.
func (m *Marketplace) AllowedTokens() []common.Address {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.allowed.All()
}

// AddAllowedToken adds addr to the payment-token allow-list. Admin only.
func (m *Marketplace) AddAllowedToken(caller, addr common.Address) error {
	if !m.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyAdminsCanAddTokens
	}
	m.mu.Lock()
	err := m.allowed.Add(addr)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.events.Emit(domain.AllowedTokenAdded{TokenAddress: addr})
	m.logger.Info("payment token allowed", slog.String("token", addr.Hex()))
	return nil
}

// RemoveAllowedTokenAtIndex removes the allow-list entry at index. The last
// entry takes the removed entry's position. Admin only.
func (m *Marketplace) RemoveAllowedTokenAtIndex(caller common.Address, index int) error {
	if !m.roles.Has(access.RoleAdmin, caller) {
		return domain.ErrOnlyAdminsCanRemoveTokens
	}
	m.mu.Lock()
	removed, err := m.allowed.RemoveAt(index)
	m.mu.Unlock()
	if err != nil {
		return err
	}
	m.events.Emit(domain.AllowedTokenRemoved{TokenAddress: removed})
	m.logger.Info("payment token removed", slog.String("token", removed.Hex()))
	return nil
}

// GetRoyaltyFee returns the royalty percentage of tokenID on the given
// collection, converted to marketplace decimals. Collections without a
// royalty capability answer zero.
func (m *Marketplace) GetRoyaltyFee(collection common.Address, tokenID *big.Int) (*big.Int, error) {
	obj, ok := m.collections.Collection(collection)
	if !ok {
		return nil, domain.ErrUnsupportedCollection
	}
	return m.resolver.RoyaltyFee(obj, tokenID)
}

// GetInvestorFee returns the investor percentage of tokenID on the given
// collection, converted to marketplace decimals.
func (m *Marketplace) GetInvestorFee(collection common.Address, tokenID *big.Int) (*big.Int, error) {
	obj, ok := m.collections.Collection(collection)
	if !ok {
		return nil, domain.ErrUnsupportedCollection
	}
	return m.resolver.InvestorFee(obj, tokenID)
}

// tradeContext is the validated state a settlement proceeds from.
type tradeContext struct {
	nft        domain.ERC721
	seller     common.Address
	resolution royalty.Resolution
}

// CanPerformTrade reports whether a trade would be accepted, returning the
// first refusal reason otherwise. Read-only. Pass the zero address as
// paymentToken for native-coin trades.
func (m *Marketplace) CanPerformTrade(collection common.Address, tokenID, price *big.Int, paymentToken, buyer common.Address, marketplaceFee *big.Int, sig domain.Signature) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.checkTrade(collection, tokenID, price, paymentToken, buyer, marketplaceFee, sig)
	return err
}

// checkTrade runs the validation chain in order, fail fast:
// collection capability, marketplace approval, fee ceiling, operator
// signature over the full tuple with seller = current owner.
func (m *Marketplace) checkTrade(collection common.Address, tokenID, price *big.Int, paymentToken, buyer common.Address, marketplaceFee *big.Int, sig domain.Signature) (tradeContext, error) {
	obj, ok := m.collections.Collection(collection)
	if !ok {
		return tradeContext{}, domain.ErrUnsupportedCollection
	}
	nft, ok := obj.(domain.ERC721)
	if !ok {
		return tradeContext{}, domain.ErrUnsupportedCollection
	}

	seller, err := nft.OwnerOf(tokenID)
	if err != nil {
		return tradeContext{}, err
	}
	approved, err := nft.GetApproved(tokenID)
	if err != nil {
		return tradeContext{}, err
	}
	if approved != m.addr && !nft.IsApprovedForAll(seller, m.addr) {
		return tradeContext{}, domain.ErrNotApproved
	}

	res, err := m.resolver.Resolve(obj, tokenID)
	if err != nil {
		return tradeContext{}, err
	}
	total := new(big.Int).Add(res.RoyaltyFee, marketplaceFee)
	if total.Cmp(maxTotalFee) > 0 {
		return tradeContext{}, domain.ErrFeesExceedMaximum
	}

	digest := crypto.TradeDigest(domain.TradeIntent{
		Marketplace:    m.addr,
		Collection:     collection,
		TokenID:        tokenID,
		Seller:         seller,
		Buyer:          buyer,
		Price:          price,
		PaymentToken:   paymentToken,
		RoyaltyFee:     res.RoyaltyFee,
		InvestorFee:    res.InvestorFee,
		MarketplaceFee: marketplaceFee,
	})
	signer, err := crypto.Recover(digest, sig)
	if err != nil || !m.roles.Has(access.RoleOperator, signer) {
		return tradeContext{}, domain.ErrInvalidSignature
	}

	return tradeContext{nft: nft, seller: seller, resolution: res}, nil
}

// TradeForCoins settles a trade denominated in the native coin. The caller
// pays sentValue from the coin ledger; any excess over the price is
// retained by the treasury.
func (m *Marketplace) TradeForCoins(caller, collection common.Address, tokenID, price *big.Int, buyer common.Address, marketplaceFee *big.Int, sig domain.Signature, sentValue *big.Int) (domain.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pausable.Paused() {
		return domain.Settlement{}, domain.ErrContractPaused
	}
	if sentValue == nil || sentValue.Cmp(price) < 0 {
		return domain.Settlement{}, domain.ErrInsufficientPayment
	}
	ctx, err := m.checkTrade(collection, tokenID, price, common.Address{}, buyer, marketplaceFee, sig)
	if err != nil {
		return domain.Settlement{}, err
	}

	proceeds := m.waterfall(price, marketplaceFee, ctx.seller, ctx.resolution)

	excess := new(big.Int).Sub(sentValue, price)
	legs := m.paymentLegs(ctx.seller, ctx.resolution, proceeds, excess)
	if err := m.coins.Settle(caller, legs); err != nil {
		return domain.Settlement{}, err
	}
	if err := ctx.nft.TransferFrom(m.addr, ctx.seller, buyer, tokenID); err != nil {
		return domain.Settlement{}, fmt.Errorf("market: transferring NFT: %w", err)
	}

	m.events.Emit(domain.TradedForCoins{
		Collection:       collection,
		TokenID:          tokenID,
		Seller:           ctx.seller,
		Buyer:            buyer,
		Price:            price,
		OwnerProceeds:    proceeds.Owner,
		CreatorProceeds:  proceeds.Creator,
		InvestorProceeds: proceeds.Investor,
	})
	m.logger.Info("trade settled for coins",
		slog.String("collection", collection.Hex()),
		slog.String("tokenId", tokenID.String()),
		slog.String("seller", ctx.seller.Hex()),
		slog.String("buyer", buyer.Hex()),
		slog.String("price", price.String()))

	return domain.Settlement{
		Collection:   collection,
		TokenID:      tokenID,
		Seller:       ctx.seller,
		Buyer:        buyer,
		PaymentToken: common.Address{},
		Price:        new(big.Int).Set(price),
		Proceeds:     proceeds,
		SettledAt:    time.Now().UTC(),
	}, nil
}

// TradeForTokens settles a trade denominated in an allow-listed ERC-20
// token. The buyer must have approved the marketplace to spend at least
// the price.
func (m *Marketplace) TradeForTokens(caller, collection common.Address, tokenID, price *big.Int, paymentToken, buyer common.Address, marketplaceFee *big.Int, sig domain.Signature) (domain.Settlement, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pausable.Paused() {
		return domain.Settlement{}, domain.ErrContractPaused
	}
	if !m.allowed.Contains(paymentToken) {
		return domain.Settlement{}, domain.ErrTokenNotAllowed
	}
	ctx, err := m.checkTrade(collection, tokenID, price, paymentToken, buyer, marketplaceFee, sig)
	if err != nil {
		return domain.Settlement{}, err
	}

	proceeds := m.waterfall(price, marketplaceFee, ctx.seller, ctx.resolution)

	legs := m.paymentLegs(ctx.seller, ctx.resolution, proceeds, nil)
	if err := m.tokens.Settle(paymentToken, buyer, m.addr, legs); err != nil {
		return domain.Settlement{}, err
	}
	if err := ctx.nft.TransferFrom(m.addr, ctx.seller, buyer, tokenID); err != nil {
		return domain.Settlement{}, fmt.Errorf("market: transferring NFT: %w", err)
	}

	m.events.Emit(domain.TradedForTokens{
		Collection:       collection,
		TokenID:          tokenID,
		Seller:           ctx.seller,
		Buyer:            buyer,
		Token:            paymentToken,
		Price:            price,
		OwnerProceeds:    proceeds.Owner,
		CreatorProceeds:  proceeds.Creator,
		InvestorProceeds: proceeds.Investor,
	})
	m.logger.Info("trade settled for tokens",
		slog.String("collection", collection.Hex()),
		slog.String("tokenId", tokenID.String()),
		slog.String("token", paymentToken.Hex()),
		slog.String("seller", ctx.seller.Hex()),
		slog.String("buyer", buyer.Hex()),
		slog.String("price", price.String()))

	return domain.Settlement{
		Collection:   collection,
		TokenID:      tokenID,
		Seller:       ctx.seller,
		Buyer:        buyer,
		PaymentToken: paymentToken,
		Price:        new(big.Int).Set(price),
		Proceeds:     proceeds,
		SettledAt:    time.Now().UTC(),
	}, nil
}

// waterfall splits price between owner, creator, investor and marketplace.
// When the seller is the creator the royalty is skipped and only the
// investor takes a cut of the remainder; otherwise the royalty is computed
// on the full price and split between creator and investor. The investor's
// share is derived in percentage space and truncated at market precision
// before being applied to the price.
func (m *Marketplace) waterfall(price, marketplaceFee *big.Int, seller common.Address, res royalty.Resolution) domain.Proceeds {
	marketplaceCut := feemath.PercentOf(price, marketplaceFee, marketDecimals)
	remaining := new(big.Int).Sub(price, marketplaceCut)

	if seller == res.Creator {
		remainingPct := new(big.Int).Sub(maxTotalFee, marketplaceFee)
		investorPct := feemath.CompoundPercent(res.InvestorFee, remainingPct, marketDecimals)
		investorCut := feemath.PercentOf(price, investorPct, marketDecimals)
		return domain.Proceeds{
			Owner:       new(big.Int).Sub(remaining, investorCut),
			Creator:     big.NewInt(0),
			Investor:    investorCut,
			Marketplace: marketplaceCut,
		}
	}

	royaltyTotal := feemath.PercentOf(price, res.RoyaltyFee, marketDecimals)
	investorPct := feemath.CompoundPercent(res.InvestorFee, res.RoyaltyFee, marketDecimals)
	investorCut := feemath.PercentOf(price, investorPct, marketDecimals)
	return domain.Proceeds{
		Owner:       new(big.Int).Sub(remaining, royaltyTotal),
		Creator:     new(big.Int).Sub(royaltyTotal, investorCut),
		Investor:    investorCut,
		Marketplace: marketplaceCut,
	}
}

// paymentLegs builds the transfer list for a settlement. Cuts owed to an
// unset payee fold into the treasury leg, as does any excess the payer
// sent over the price.
func (m *Marketplace) paymentLegs(seller common.Address, res royalty.Resolution, proceeds domain.Proceeds, excess *big.Int) []ledger.Payment {
	treasuryCut := new(big.Int).Set(proceeds.Marketplace)
	if excess != nil {
		treasuryCut.Add(treasuryCut, excess)
	}

	legs := []ledger.Payment{{To: seller, Amount: proceeds.Owner}}
	if res.Creator != (common.Address{}) {
		legs = append(legs, ledger.Payment{To: res.Creator, Amount: proceeds.Creator})
	} else {
		treasuryCut.Add(treasuryCut, proceeds.Creator)
	}
	if res.Investor != (common.Address{}) {
		legs = append(legs, ledger.Payment{To: res.Investor, Amount: proceeds.Investor})
	} else {
		treasuryCut.Add(treasuryCut, proceeds.Investor)
	}
	legs = append(legs, ledger.Payment{To: m.autentica, Amount: treasuryCut})
	return legs
}
