package service

import (
	"context"
	"encoding/json"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autentica/marketplace/internal/access"
	"github.com/autentica/marketplace/internal/crypto"
	"github.com/autentica/marketplace/internal/domain"
	"github.com/autentica/marketplace/internal/ledger"
	"github.com/autentica/marketplace/internal/market"
	"github.com/autentica/marketplace/internal/nft"
)

var (
	marketAddr     = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	collectionAddr = common.HexToAddress("0xc011ec7104000000000000000000000000000001")
	deployer       = common.HexToAddress("0x00000000000000000000000000000000000000d1")
	autentica      = common.HexToAddress("0x00000000000000000000000000000000000000f1")
	buyer          = common.HexToAddress("0x0000000000000000000000000000000000000052")
	creator        = common.HexToAddress("0x00000000000000000000000000000000000000c1")
	investor       = common.HexToAddress("0x00000000000000000000000000000000000000b1")
)

// memSettlementStore records inserts in memory.
type memSettlementStore struct {
	inserted []domain.Settlement
}

func (m *memSettlementStore) Insert(_ context.Context, s domain.Settlement) error {
	m.inserted = append(m.inserted, s)
	return nil
}

func (m *memSettlementStore) ListByCollection(context.Context, common.Address, domain.ListOpts) ([]domain.Settlement, error) {
	return m.inserted, nil
}

func (m *memSettlementStore) ListByAddress(context.Context, common.Address, domain.ListOpts) ([]domain.Settlement, error) {
	return m.inserted, nil
}

func (m *memSettlementStore) ListRecent(context.Context, domain.ListOpts) ([]domain.Settlement, error) {
	return m.inserted, nil
}

func (m *memSettlementStore) ListBefore(context.Context, time.Time) ([]domain.Settlement, error) {
	return m.inserted, nil
}

// memMintStore records inserts in memory.
type memMintStore struct {
	inserted []domain.MintRecord
}

func (m *memMintStore) Insert(_ context.Context, r domain.MintRecord) error {
	m.inserted = append(m.inserted, r)
	return nil
}

func (m *memMintStore) ListByCollection(context.Context, common.Address, domain.ListOpts) ([]domain.MintRecord, error) {
	return m.inserted, nil
}

// memBus records published payloads per channel.
type memBus struct {
	published map[string][][]byte
}

func newMemBus() *memBus {
	return &memBus{published: make(map[string][][]byte)}
}

func (b *memBus) Publish(_ context.Context, channel string, payload []byte) error {
	b.published[channel] = append(b.published[channel], payload)
	return nil
}

func (b *memBus) Subscribe(context.Context, string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

type fixture struct {
	settlements *SettlementService
	mints       *MintService
	operator    *OperatorService
	collection  *nft.Collection
	coins       *ledger.CoinLedger
	store       *memSettlementStore
	mintStore   *memMintStore
	bus         *memBus
	signer      *crypto.Signer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	signer, err := crypto.NewSigner(common.Bytes2Hex(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)

	collection := nft.NewCollection(collectionAddr, deployer, nil)
	require.NoError(t, collection.Roles().Grant(deployer, access.RoleOperator, signer.Address()))
	require.NoError(t, collection.SetMarketplace(deployer, marketAddr))

	coins := ledger.NewCoinLedger()
	m := market.New(market.Config{
		Address:     marketAddr,
		Deployer:    deployer,
		Autentica:   autentica,
		Collections: collectionMap{collectionAddr: collection},
		Coins:       coins,
		Tokens:      ledger.NewTokenLedger(),
	})
	require.NoError(t, m.Roles().Grant(deployer, access.RoleOperator, signer.Address()))

	store := &memSettlementStore{}
	mintStore := &memMintStore{}
	bus := newMemBus()

	return &fixture{
		settlements: NewSettlementService(m, store, bus, nil),
		mints:       NewMintService(collection, mintStore, bus, nil),
		operator:    NewOperatorService(signer, nil),
		collection:  collection,
		coins:       coins,
		store:       store,
		mintStore:   mintStore,
		bus:         bus,
		signer:      signer,
	}
}

type collectionMap map[common.Address]any

func (m collectionMap) Collection(addr common.Address) (any, bool) {
	obj, ok := m[addr]
	return obj, ok
}

func TestSettleForCoinsPersistsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tokenID := big.NewInt(1)
	require.NoError(t, f.collection.Mint(creator, tokenID, "uri", big.NewInt(1000)))
	require.NoError(t, f.collection.Approve(creator, marketAddr, tokenID))
	f.coins.Mint(buyer, big.NewInt(1000))

	price := big.NewInt(1000)
	mktFee := big.NewInt(250)
	sig, err := f.operator.SignTrade(domain.TradeIntent{
		Marketplace:    marketAddr,
		Collection:     collectionAddr,
		TokenID:        tokenID,
		Seller:         creator,
		Buyer:          buyer,
		Price:          price,
		RoyaltyFee:     big.NewInt(1000),
		InvestorFee:    big.NewInt(0),
		MarketplaceFee: mktFee,
	})
	require.NoError(t, err)

	params := TradeParams{
		Caller:         buyer,
		Collection:     collectionAddr,
		TokenID:        tokenID,
		Price:          price,
		Buyer:          buyer,
		MarketplaceFee: mktFee,
		Signature:      sig,
		SentValue:      price,
	}
	require.NoError(t, f.settlements.CanPerformTrade(ctx, params))

	settlement, err := f.settlements.SettleForCoins(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, int64(975), settlement.Proceeds.Owner.Int64())

	require.Len(t, f.store.inserted, 1)
	assert.NotEmpty(t, f.store.inserted[0].ID)

	payloads := f.bus.published[ChannelSettlements]
	require.Len(t, payloads, 1)
	var published domain.Settlement
	require.NoError(t, json.Unmarshal(payloads[0], &published))
	assert.Equal(t, collectionAddr, published.Collection)
	assert.Equal(t, buyer, published.Buyer)
}

func TestSettleForCoinsRejectionDoesNotPersist(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.settlements.SettleForCoins(ctx, TradeParams{
		Caller:         buyer,
		Collection:     common.HexToAddress("0xdead"),
		TokenID:        big.NewInt(1),
		Price:          big.NewInt(100),
		Buyer:          buyer,
		MarketplaceFee: big.NewInt(0),
		SentValue:      big.NewInt(100),
	})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCollection)
	assert.Empty(t, f.store.inserted)
	assert.Empty(t, f.bus.published[ChannelSettlements])
}

func TestMintServicePersistsAndPublishes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec, err := f.mints.Mint(ctx, creator, big.NewInt(1), "uri", big.NewInt(250))
	require.NoError(t, err)
	assert.Equal(t, creator, rec.Creator)
	assert.Equal(t, common.Address{}, rec.Investor)

	require.Len(t, f.mintStore.inserted, 1)
	require.Len(t, f.bus.published[ChannelMints], 1)

	// The token exists on the collection.
	assert.True(t, f.collection.Exists(big.NewInt(1)))
}

func TestInvestorMintService(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	params := MintParams{
		Caller:      investor,
		Creator:     creator,
		TokenID:     big.NewInt(7),
		URI:         "uri",
		RoyaltyFee:  big.NewInt(1000),
		InvestorFee: big.NewInt(2500),
	}
	sig, err := f.operator.SignMint(domain.MintIntent{
		Collection:  collectionAddr,
		Creator:     params.Creator,
		TokenID:     params.TokenID,
		RoyaltyFee:  params.RoyaltyFee,
		InvestorFee: params.InvestorFee,
	})
	require.NoError(t, err)
	params.Signature = sig

	require.NoError(t, f.mints.CanPerformInvestorMinting(ctx, params))
	rec, err := f.mints.InvestorMint(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, investor, rec.Investor)

	details, err := f.mints.TokenDetails(params.TokenID)
	require.NoError(t, err)
	assert.Equal(t, investor, details.Investor)

	// A second attempt for the same token is refused and not recorded.
	_, err = f.mints.InvestorMint(ctx, params)
	assert.ErrorIs(t, err, domain.ErrAlreadyMinted)
	assert.Len(t, f.mintStore.inserted, 1)
}

func TestEventPublisherEnvelope(t *testing.T) {
	bus := newMemBus()
	pub := NewEventPublisher(bus, nil)

	pub.Emit(domain.Paused{Account: deployer})

	payloads := bus.published[ChannelEvents]
	require.Len(t, payloads, 1)

	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(payloads[0], &envelope))
	assert.Equal(t, "Paused", envelope.Event)

	var data domain.Paused
	require.NoError(t, json.Unmarshal(envelope.Data, &data))
	assert.Equal(t, deployer, data.Account)
}
