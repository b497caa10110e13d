package market

import (
	"math/big"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autentica/marketplace/internal/access"
	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/ledger"
	"github.com/autentica/marketplace/internal/nft"
)

var (
	marketAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	collectionAddr = common.HexToAddress("0xc011ec7104000000000000000000000000000001")
	deployer       = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	autentica      = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	seller         = common.HexToAddress("0x0000000000000000000000000000000000000051")
	buyer          = common.HexToAddress("0x0000000000000000000000000000000000000052")
	buyer2         = common.HexToAddress("0x0000000000000000000000000000000000000053")
	creator        = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	investor       = common.HexToAddress("0x00000000000000000000000000000000000000b1")
	user           = common.HexToAddress("0x00000000000000000000000000000000000000e1")
	erc20Token     = common.HexToAddress("0x0000000000000000000000000000000000000e20")
)

// collectionMap is a fixed address-to-object resolver.
type collectionMap map[common.Address]any

func (m collectionMap) Collection(addr common.Address) (any, bool) {
	obj, ok := m[addr]
	return obj, ok
}

// eventRecorder captures emitted events in order.
type eventRecorder struct {
	mu     sync.Mutex
	events []domain.Event
}

func (r *eventRecorder) Emit(e domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) last() domain.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

type fixture struct {
	market     *Marketplace
	collection *nft.Collection
	operator   *crypto.Signer
	coins      *ledger.CoinLedger
	tokens     *ledger.TokenLedger
	events     *eventRecorder
	resolver   collectionMap
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	operator, err := crypto.NewSigner(common.Bytes2Hex(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)

	events := &eventRecorder{}
	collection := nft.NewCollection(collectionAddr, deployer, events)
	require.NoError(t, collection.Roles().Grant(deployer, access.RoleOperator, operator.Address()))
	require.NoError(t, collection.SetMarketplace(deployer, marketAddr))

	coins := ledger.NewCoinLedger()
	tokens := ledger.NewTokenLedger()
	resolver := collectionMap{collectionAddr: collection}

	m := New(Config{
		Address:       marketAddr,
		Deployer:      deployer,
		Autentica:     autentica,
		AllowedTokens: []common.Address{erc20Token},
		Collections:   resolver,
		Coins:         coins,
		Tokens:        tokens,
		Events:        events,
	})
	require.NoError(t, m.Roles().Grant(deployer, access.RoleOperator, operator.Address()))

	return &fixture{
		market:     m,
		collection: collection,
		operator:   operator,
		coins:      coins,
		tokens:     tokens,
		events:     events,
		resolver:   resolver,
	}
}

func (f *fixture) signTrade(t *testing.T, tokenID, price *big.Int, owner, buyer, paymentToken common.Address, marketplaceFee *big.Int) domain.Signature {
	t.Helper()
	royaltyFee, err := f.market.GetRoyaltyFee(collectionAddr, tokenID)
	require.NoError(t, err)
	investorFee, err := f.market.GetInvestorFee(collectionAddr, tokenID)
	require.NoError(t, err)
	sig, err := f.operator.SignTrade(domain.TradeIntent{
		Marketplace:    marketAddr,
		Collection:     collectionAddr,
		TokenID:        tokenID,
		Seller:         owner,
		Buyer:          buyer,
		Price:          price,
		PaymentToken:   paymentToken,
		RoyaltyFee:     royaltyFee,
		InvestorFee:    investorFee,
		MarketplaceFee: marketplaceFee,
	})
	require.NoError(t, err)
	return sig
}

// mintInvestorToken mints tokenID to creator with investor backing:
// 10% royalty, 10% investor fee, marketplace pre-approved.
func (f *fixture) mintInvestorToken(t *testing.T, tokenID *big.Int) {
	t.Helper()
	sig, err := f.operator.SignMint(domain.MintIntent{
		Collection:  collectionAddr,
		Creator:     creator,
		TokenID:     tokenID,
		RoyaltyFee:  big.NewInt(1000),
		InvestorFee: big.NewInt(1000),
	})
	require.NoError(t, err)
	require.NoError(t, f.collection.InvestorMintingAndApproveMarketplace(investor, creator, tokenID, "uri", big.NewInt(1000), big.NewInt(1000), sig))
}

func TestDecimals(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, uint8(2), f.market.Decimals())
}

func TestAllowedTokenAdministration(t *testing.T) {
	f := newFixture(t)
	m := f.market

	assert.Equal(t, 1, m.AllowedTokensCount())
	assert.True(t, m.IsTokenAllowed(erc20Token))

	// Non-admins are refused with role-specific reasons.
	other := common.HexToAddress("0x0000000000000000000000000000000000000e21")
	assert.ErrorIs(t, m.AddAllowedToken(user, other), domain.ErrOnlyAdminsCanAddTokens)
	assert.ErrorIs(t, m.RemoveAllowedTokenAtIndex(user, 0), domain.ErrOnlyAdminsCanRemoveTokens)

	require.NoError(t, m.AddAllowedToken(deployer, other))
	assert.Equal(t, domain.AllowedTokenAdded{TokenAddress: other}, f.events.last())
	assert.Equal(t, 2, m.AllowedTokensCount())

	assert.ErrorIs(t, m.AddAllowedToken(deployer, other), domain.ErrAlreadyAllowed)
	assert.ErrorIs(t, m.AddAllowedToken(deployer, common.Address{}), domain.ErrZeroAddress)

	_, err := m.AllowedTokenAt(5)
	assert.ErrorIs(t, err, domain.ErrIndexOutOfBounds)

	require.NoError(t, m.RemoveAllowedTokenAtIndex(deployer, 0))
	assert.Equal(t, domain.AllowedTokenRemoved{TokenAddress: erc20Token}, f.events.last())
	// The last entry took the removed entry's position.
	got, err := m.AllowedTokenAt(0)
	require.NoError(t, err)
	assert.Equal(t, other, got)
}

func TestSetAutentica(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.market.SetAutentica(user, user), domain.ErrOnlyAdminsCanChangeThis)

	next := common.HexToAddress("0x00000000000000000000000000000000000000f2")
	require.NoError(t, f.market.SetAutentica(deployer, next))
	assert.Equal(t, next, f.market.Autentica())
	assert.Equal(t, domain.ChangedAutentica{OldAddress: autentica, NewAddress: next}, f.events.last())
}

func TestPauseGate(t *testing.T) {
	f := newFixture(t)
	m := f.market

	assert.ErrorIs(t, m.Pause(user), domain.ErrOnlyAdminsCanPause)
	require.NoError(t, m.Pause(deployer))
	assert.True(t, m.Paused())
	assert.Equal(t, domain.Paused{Account: deployer}, f.events.last())

	// Every mutating settlement entry point is gated.
	_, err := m.TradeForCoins(buyer, collectionAddr, big.NewInt(1), big.NewInt(100), buyer, big.NewInt(0), domain.Signature{}, big.NewInt(100))
	assert.ErrorIs(t, err, domain.ErrContractPaused)
	_, err = m.TradeForTokens(buyer, collectionAddr, big.NewInt(1), big.NewInt(100), erc20Token, buyer, big.NewInt(0), domain.Signature{})
	assert.ErrorIs(t, err, domain.ErrContractPaused)

	assert.ErrorIs(t, m.Unpause(user), domain.ErrOnlyAdminsCanUnpause)
	require.NoError(t, m.Unpause(deployer))
	assert.False(t, m.Paused())
	assert.Equal(t, domain.Unpaused{Account: deployer}, f.events.last())
}

func TestCanPerformTradeValidationOrder(t *testing.T) {
	f := newFixture(t)
	m := f.market
	tokenID := big.NewInt(1)
	price := big.NewInt(1000)
	mktFee := big.NewInt(250)

	// Unknown collection address fails first.
	err := m.CanPerformTrade(user, tokenID, price, common.Address{}, buyer, mktFee, domain.Signature{})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCollection)

	// Minted but not approved for the marketplace.
	require.NoError(t, f.collection.Mint(seller, tokenID, "", big.NewInt(1000)))
	err = m.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, domain.Signature{})
	assert.ErrorIs(t, err, domain.ErrNotApproved)

	// Approved, but royalty (10%) + marketplace fee (95%) exceeds 100%.
	require.NoError(t, f.collection.Approve(seller, marketAddr, tokenID))
	err = m.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, big.NewInt(9500), domain.Signature{})
	assert.ErrorIs(t, err, domain.ErrFeesExceedMaximum)

	// Garbage signature.
	err = m.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, domain.Signature{V: 27})
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// Signature over a different price.
	sig := f.signTrade(t, tokenID, big.NewInt(5000), seller, buyer, common.Address{}, mktFee)
	err = m.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, sig)
	assert.ErrorIs(t, err, domain.ErrInvalidSignature)

	// A valid tuple passes.
	sig = f.signTrade(t, tokenID, price, seller, buyer, common.Address{}, mktFee)
	assert.NoError(t, m.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, sig))
}

func TestTradeForCoinsFirstSale(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	price := big.NewInt(1000)
	mktFee := big.NewInt(250) // 2.5%
	f.coins.Mint(buyer, big.NewInt(2000))

	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	s, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	// First sale: seller is the creator, so the royalty is skipped and the
	// investor takes 10% of what remains after the marketplace cut.
	assert.Equal(t, int64(878), s.Proceeds.Owner.Int64())
	assert.Equal(t, int64(0), s.Proceeds.Creator.Int64())
	assert.Equal(t, int64(97), s.Proceeds.Investor.Int64())
	assert.Equal(t, int64(25), s.Proceeds.Marketplace.Int64())

	assert.Equal(t, int64(1000), f.coins.BalanceOf(buyer).Int64())
	assert.Equal(t, int64(878), f.coins.BalanceOf(creator).Int64())
	assert.Equal(t, int64(97), f.coins.BalanceOf(investor).Int64())
	assert.Equal(t, int64(25), f.coins.BalanceOf(autentica).Int64())

	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)

	evt, ok := f.events.last().(domain.TradedForCoins)
	require.True(t, ok)
	assert.Equal(t, int64(878), evt.OwnerProceeds.Int64())
	assert.Equal(t, int64(0), evt.CreatorProceeds.Int64())
	assert.Equal(t, int64(97), evt.InvestorProceeds.Int64())
}

func TestTradeForCoinsResale(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	price := big.NewInt(1000)
	mktFee := big.NewInt(250)
	f.coins.Mint(buyer, big.NewInt(1000))
	f.coins.Mint(buyer2, big.NewInt(1000))

	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	_, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	// The transfer cleared the approval; the new owner re-approves.
	require.NoError(t, f.collection.Approve(buyer, marketAddr, tokenID))

	sig = f.signTrade(t, tokenID, price, buyer, buyer2, common.Address{}, mktFee)
	s, err := f.market.TradeForCoins(buyer2, collectionAddr, tokenID, price, buyer2, mktFee, sig, price)
	require.NoError(t, err)

	// Resale: royalty of 10% on the full price, split 10% to the investor
	// and the rest to the creator.
	assert.Equal(t, int64(875), s.Proceeds.Owner.Int64())
	assert.Equal(t, int64(90), s.Proceeds.Creator.Int64())
	assert.Equal(t, int64(10), s.Proceeds.Investor.Int64())
	assert.Equal(t, int64(25), s.Proceeds.Marketplace.Int64())

	assert.Equal(t, int64(875), f.coins.BalanceOf(buyer).Int64())

	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer2, owner)
}

func TestTradeForCoinsConservation(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	// Awkward numbers: price 123, royalty 10%, investor 10%, fee 2.34%.
	price := big.NewInt(123)
	mktFee := big.NewInt(234)
	f.coins.Mint(buyer, price)

	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	s, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	total := new(big.Int).Add(s.Proceeds.Owner, s.Proceeds.Creator)
	total.Add(total, s.Proceeds.Investor)
	total.Add(total, s.Proceeds.Marketplace)
	assert.Zero(t, total.Cmp(price), "proceeds must sum to the price")
	assert.Zero(t, f.coins.BalanceOf(buyer).Sign())
}

func TestTradeForCoinsInsufficientPayment(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)
	f.coins.Mint(buyer, big.NewInt(1000))

	price := big.NewInt(1000)
	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, big.NewInt(250))
	_, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, big.NewInt(250), sig, big.NewInt(999))
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)

	// Nothing moved.
	assert.Equal(t, int64(1000), f.coins.BalanceOf(buyer).Int64())
	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, creator, owner)
}

func TestTradeForCoinsPaymentCheckedFirst(t *testing.T) {
	f := newFixture(t)

	// Underpaying for a token that was never minted: the payment check
	// answers before any token validation runs.
	price := big.NewInt(100)
	_, err := f.market.TradeForCoins(buyer, collectionAddr, big.NewInt(1), price, buyer, big.NewInt(250), domain.Signature{}, big.NewInt(99))
	assert.ErrorIs(t, err, domain.ErrInsufficientPayment)
	assert.NotErrorIs(t, err, domain.ErrTokenDoesNotExist)
}

func TestTradeForTokensAllowListCheckedFirst(t *testing.T) {
	f := newFixture(t)

	// A disallowed payment token is refused before any token validation,
	// even when the NFT was never minted.
	unlisted := common.HexToAddress("0x0000000000000000000000000000000000000e99")
	_, err := f.market.TradeForTokens(buyer, collectionAddr, big.NewInt(1), big.NewInt(100), unlisted, buyer, big.NewInt(250), domain.Signature{})
	assert.ErrorIs(t, err, domain.ErrTokenNotAllowed)
	assert.NotErrorIs(t, err, domain.ErrTokenDoesNotExist)
}

func wei(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok)
	return v
}

func TestTradeForCoinsTwoSaleAggregate(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)

	// 1.23 coins at 12.34% royalty, 43.12% investor fee, 2.34% marketplace
	// fee, sold creator -> buyer -> buyer2.
	price := wei(t, "1230000000000000000")
	mktFee := big.NewInt(234)
	royaltyFee := big.NewInt(1234)
	investorFee := big.NewInt(4312)

	mintSig, err := f.operator.SignMint(domain.MintIntent{
		Collection:  collectionAddr,
		Creator:     creator,
		TokenID:     tokenID,
		RoyaltyFee:  royaltyFee,
		InvestorFee: investorFee,
	})
	require.NoError(t, err)
	require.NoError(t, f.collection.InvestorMintingAndApproveMarketplace(investor, creator, tokenID, "uri", royaltyFee, investorFee, mintSig))

	f.coins.Mint(buyer, price)
	f.coins.Mint(buyer2, price)

	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	_, err = f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	require.NoError(t, f.collection.Approve(buyer, marketAddr, tokenID))
	sig = f.signTrade(t, tokenID, price, buyer, buyer2, common.Address{}, mktFee)
	_, err = f.market.TradeForCoins(buyer2, collectionAddr, tokenID, price, buyer2, mktFee, sig, price)
	require.NoError(t, err)

	// Aggregate proceeds across both sales: the creator nets 0.769611,
	// the investor 0.583389, the treasury 0.057564; the first buyer
	// recovers 1.049436 of the 1.23 paid and the second buyer holds
	// the token.
	assert.Equal(t, wei(t, "769611000000000000"), f.coins.BalanceOf(creator))
	assert.Equal(t, wei(t, "583389000000000000"), f.coins.BalanceOf(investor))
	assert.Equal(t, wei(t, "57564000000000000"), f.coins.BalanceOf(autentica))
	assert.Equal(t, wei(t, "1049436000000000000"), f.coins.BalanceOf(buyer))
	assert.Zero(t, f.coins.BalanceOf(buyer2).Sign())

	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer2, owner)
}

func TestTradeForCoinsExcessGoesToTreasury(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)
	f.coins.Mint(buyer, big.NewInt(1500))

	price := big.NewInt(1000)
	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, big.NewInt(250))
	_, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, big.NewInt(250), sig, big.NewInt(1200))
	require.NoError(t, err)

	assert.Equal(t, int64(300), f.coins.BalanceOf(buyer).Int64())
	assert.Equal(t, int64(225), f.coins.BalanceOf(autentica).Int64()) // 25 cut + 200 excess
}

func TestTradeForCoinsInsufficientBalance(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)
	f.coins.Mint(buyer, big.NewInt(500))

	price := big.NewInt(1000)
	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, big.NewInt(250))
	_, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, big.NewInt(250), sig, price)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, creator, owner)
}

func TestTradeForTokens(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	price := big.NewInt(1000)
	mktFee := big.NewInt(250)
	f.tokens.Mint(erc20Token, buyer, big.NewInt(1000))
	f.tokens.Approve(erc20Token, buyer, marketAddr, big.NewInt(1000))

	sig := f.signTrade(t, tokenID, price, creator, buyer, erc20Token, mktFee)
	s, err := f.market.TradeForTokens(buyer, collectionAddr, tokenID, price, erc20Token, buyer, mktFee, sig)
	require.NoError(t, err)

	assert.Equal(t, int64(878), s.Proceeds.Owner.Int64())
	assert.Equal(t, int64(97), s.Proceeds.Investor.Int64())

	assert.Zero(t, f.tokens.BalanceOf(erc20Token, buyer).Sign())
	assert.Equal(t, int64(878), f.tokens.BalanceOf(erc20Token, creator).Int64())
	assert.Equal(t, int64(97), f.tokens.BalanceOf(erc20Token, investor).Int64())
	assert.Equal(t, int64(25), f.tokens.BalanceOf(erc20Token, autentica).Int64())

	evt, ok := f.events.last().(domain.TradedForTokens)
	require.True(t, ok)
	assert.Equal(t, erc20Token, evt.Token)
}

func TestTradeForTokensRejectsUnlistedToken(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	unlisted := common.HexToAddress("0x0000000000000000000000000000000000000e99")
	price := big.NewInt(1000)
	sig := f.signTrade(t, tokenID, price, creator, buyer, unlisted, big.NewInt(250))
	_, err := f.market.TradeForTokens(buyer, collectionAddr, tokenID, price, unlisted, buyer, big.NewInt(250), sig)
	assert.ErrorIs(t, err, domain.ErrTokenNotAllowed)
}

func TestTradeForTokensRequiresAllowance(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	price := big.NewInt(1000)
	f.tokens.Mint(erc20Token, buyer, big.NewInt(1000))
	// No approval for the marketplace.

	sig := f.signTrade(t, tokenID, price, creator, buyer, erc20Token, big.NewInt(250))
	_, err := f.market.TradeForTokens(buyer, collectionAddr, tokenID, price, erc20Token, buyer, big.NewInt(250), sig)
	assert.ErrorIs(t, err, domain.ErrInsufficientAllowance)

	// Nothing moved.
	assert.Equal(t, int64(1000), f.tokens.BalanceOf(erc20Token, buyer).Int64())
	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, creator, owner)
}

func TestTradeWithZeroPrice(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID)

	price := big.NewInt(0)
	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, big.NewInt(250))
	s, err := f.market.TradeForCoins(buyer, collectionAddr, tokenID, price, buyer, big.NewInt(250), sig, price)
	require.NoError(t, err)

	assert.Zero(t, s.Proceeds.Owner.Sign())
	assert.Zero(t, s.Proceeds.Marketplace.Sign())
	owner, err := f.collection.OwnerOf(tokenID)
	require.NoError(t, err)
	assert.Equal(t, buyer, owner)
}

func TestFeeBoundaryAtExactlyOneHundredPercent(t *testing.T) {
	f := newFixture(t)
	tokenID := big.NewInt(1)
	f.mintInvestorToken(t, tokenID) // 10% royalty

	price := big.NewInt(1000)
	f.coins.Mint(buyer, price)

	// Royalty 10% + marketplace fee 90% == 100% exactly: allowed.
	mktFee := big.NewInt(9000)
	sig := f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	assert.NoError(t, f.market.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, sig))

	// One hundredth of a percent above: refused.
	mktFee = big.NewInt(9001)
	sig = f.signTrade(t, tokenID, price, creator, buyer, common.Address{}, mktFee)
	err := f.market.CanPerformTrade(collectionAddr, tokenID, price, common.Address{}, buyer, mktFee, sig)
	assert.ErrorIs(t, err, domain.ErrFeesExceedMaximum)
}

// foreignERC721 is a minimal transfer-only collection with no royalty
// capability at all.
type foreignERC721 struct {
	addr     common.Address
	owners   map[string]common.Address
	approved map[string]common.Address
}

func newForeignERC721(addr common.Address) *foreignERC721 {
	return &foreignERC721{
		addr:     addr,
		owners:   make(map[string]common.Address),
		approved: make(map[string]common.Address),
	}
}

func (c *foreignERC721) mint(to common.Address, tokenID *big.Int) {
	c.owners[tokenID.String()] = to
}

func (c *foreignERC721) approve(to common.Address, tokenID *big.Int) {
	c.approved[tokenID.String()] = to
}

func (c *foreignERC721) Address() common.Address { return c.addr }

func (c *foreignERC721) OwnerOf(tokenID *big.Int) (common.Address, error) {
	owner, ok := c.owners[tokenID.String()]
	if !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return owner, nil
}

func (c *foreignERC721) GetApproved(tokenID *big.Int) (common.Address, error) {
	if _, ok := c.owners[tokenID.String()]; !ok {
		return common.Address{}, domain.ErrTokenDoesNotExist
	}
	return c.approved[tokenID.String()], nil
}

func (c *foreignERC721) IsApprovedForAll(common.Address, common.Address) bool { return false }

func (c *foreignERC721) TransferFrom(caller, from, to common.Address, tokenID *big.Int) error {
	key := tokenID.String()
	if c.owners[key] != from {
		return domain.ErrNotOwner
	}
	if caller != from && caller != c.approved[key] {
		return domain.ErrTransferNotAuthorized
	}
	c.owners[key] = to
	delete(c.approved, key)
	return nil
}

// foreignERC2981 adds the royalty-on-sale capability to foreignERC721.
type foreignERC2981 struct {
	*foreignERC721
	receiver common.Address
	feePct   int64 // at 2 decimals
}

func (c *foreignERC2981) RoyaltyInfo(_, salePrice *big.Int) (common.Address, *big.Int, error) {
	amount := new(big.Int).Mul(salePrice, big.NewInt(c.feePct))
	amount.Div(amount, big.NewInt(10000))
	return c.receiver, amount, nil
}

func TestTradeForCoinsStandardERC721(t *testing.T) {
	f := newFixture(t)

	foreignAddr := common.HexToAddress("0xc011ec7104000000000000000000000000000002")
	foreign := newForeignERC721(foreignAddr)
	f.resolver[foreignAddr] = foreign

	tokenID := big.NewInt(7)
	foreign.mint(seller, tokenID)
	foreign.approve(marketAddr, tokenID)

	price := big.NewInt(1000)
	mktFee := big.NewInt(250)
	f.coins.Mint(buyer, price)

	sig, err := f.operator.SignTrade(domain.TradeIntent{
		Marketplace:    marketAddr,
		Collection:     foreignAddr,
		TokenID:        tokenID,
		Seller:         seller,
		Buyer:          buyer,
		Price:          price,
		RoyaltyFee:     big.NewInt(0),
		InvestorFee:    big.NewInt(0),
		MarketplaceFee: mktFee,
	})
	require.NoError(t, err)

	s, err := f.market.TradeForCoins(buyer, foreignAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	// No royalty capability: the seller keeps everything but the cut.
	assert.Equal(t, int64(975), s.Proceeds.Owner.Int64())
	assert.Zero(t, s.Proceeds.Creator.Sign())
	assert.Zero(t, s.Proceeds.Investor.Sign())
	assert.Equal(t, int64(975), f.coins.BalanceOf(seller).Int64())
	assert.Equal(t, int64(25), f.coins.BalanceOf(autentica).Int64())
}

func TestTradeForCoinsERC2981Collection(t *testing.T) {
	f := newFixture(t)

	foreignAddr := common.HexToAddress("0xc011ec7104000000000000000000000000000003")
	foreign := &foreignERC2981{
		foreignERC721: newForeignERC721(foreignAddr),
		receiver:      creator,
		feePct:        1000, // 10%
	}
	f.resolver[foreignAddr] = foreign

	tokenID := big.NewInt(7)
	foreign.mint(seller, tokenID)
	foreign.approve(marketAddr, tokenID)

	price := big.NewInt(1000)
	mktFee := big.NewInt(250)
	f.coins.Mint(buyer, price)

	sig, err := f.operator.SignTrade(domain.TradeIntent{
		Marketplace:    marketAddr,
		Collection:     foreignAddr,
		TokenID:        tokenID,
		Seller:         seller,
		Buyer:          buyer,
		Price:          price,
		RoyaltyFee:     big.NewInt(1000),
		InvestorFee:    big.NewInt(0),
		MarketplaceFee: mktFee,
	})
	require.NoError(t, err)

	s, err := f.market.TradeForCoins(buyer, foreignAddr, tokenID, price, buyer, mktFee, sig, price)
	require.NoError(t, err)

	// The royalty receiver plays the creator role: 10% of the full price.
	assert.Equal(t, int64(875), s.Proceeds.Owner.Int64())
	assert.Equal(t, int64(100), s.Proceeds.Creator.Int64())
	assert.Zero(t, s.Proceeds.Investor.Sign())
	assert.Equal(t, int64(100), f.coins.BalanceOf(creator).Int64())
}

func TestGetRoyaltyFeeAcrossCapabilities(t *testing.T) {
	f := newFixture(t)

	// Native collection: converted from collection decimals.
	tokenID := big.NewInt(1)
	require.NoError(t, f.collection.Mint(creator, tokenID, "", big.NewInt(250)))
	fee, err := f.market.GetRoyaltyFee(collectionAddr, tokenID)
	require.NoError(t, err)
	assert.Equal(t, int64(250), fee.Int64())

	// Missing token propagates the collection's error.
	_, err = f.market.GetRoyaltyFee(collectionAddr, big.NewInt(9))
	assert.ErrorIs(t, err, domain.ErrTokenDoesNotExist)

	// Unknown collection address.
	_, err = f.market.GetRoyaltyFee(user, tokenID)
	assert.ErrorIs(t, err, domain.ErrUnsupportedCollection)

	// No royalty capability answers zero.
	foreignAddr := common.HexToAddress("0xc011ec7104000000000000000000000000000002")
	foreign := newForeignERC721(foreignAddr)
	foreign.mint(seller, tokenID)
	f.resolver[foreignAddr] = foreign
	fee, err = f.market.GetRoyaltyFee(foreignAddr, tokenID)
	require.NoError(t, err)
	assert.Zero(t, fee.Sign())
}
