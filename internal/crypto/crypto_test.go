package crypto

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/autentica/marketplace/internal/domain"
)

func newTestSigner(t *testing.T) *Signer {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	s, err := NewSigner(common.Bytes2Hex(ethcrypto.FromECDSA(key)))
	require.NoError(t, err)
	return s
}

func sampleTradeIntent() domain.TradeIntent {
	return domain.TradeIntent{
		Marketplace:    common.HexToAddress("0x1000000000000000000000000000000000000001"),
		Collection:     common.HexToAddress("0x2000000000000000000000000000000000000002"),
		TokenID:        big.NewInt(1),
		Seller:         common.HexToAddress("0x3000000000000000000000000000000000000003"),
		Buyer:          common.HexToAddress("0x4000000000000000000000000000000000000004"),
		Price:          big.NewInt(1000),
		PaymentToken:   common.Address{},
		RoyaltyFee:     big.NewInt(1000),
		InvestorFee:    big.NewInt(1000),
		MarketplaceFee: big.NewInt(250),
	}
}

func TestSignTradeRecoverRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	intent := sampleTradeIntent()

	sig, err := signer.SignTrade(intent)
	require.NoError(t, err)
	assert.Contains(t, []uint8{27, 28}, sig.V)

	recovered, err := Recover(TradeDigest(intent), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestSignMintRecoverRoundTrip(t *testing.T) {
	signer := newTestSigner(t)
	intent := domain.MintIntent{
		Collection:  common.HexToAddress("0x2000000000000000000000000000000000000002"),
		Creator:     common.HexToAddress("0x5000000000000000000000000000000000000005"),
		TokenID:     big.NewInt(42),
		RoyaltyFee:  big.NewInt(1500),
		InvestorFee: big.NewInt(500),
	}

	sig, err := signer.SignMint(intent)
	require.NoError(t, err)

	recovered, err := Recover(MintDigest(intent), sig)
	require.NoError(t, err)
	assert.Equal(t, signer.Address(), recovered)
}

func TestRecoverRejectsWrongSigner(t *testing.T) {
	operator := newTestSigner(t)
	impostor := newTestSigner(t)
	intent := sampleTradeIntent()

	sig, err := impostor.SignTrade(intent)
	require.NoError(t, err)

	recovered, err := Recover(TradeDigest(intent), sig)
	require.NoError(t, err)
	assert.NotEqual(t, operator.Address(), recovered)
}

func TestTamperedFieldChangesDigest(t *testing.T) {
	signer := newTestSigner(t)
	intent := sampleTradeIntent()

	sig, err := signer.SignTrade(intent)
	require.NoError(t, err)

	tampered := intent
	tampered.Price = big.NewInt(1)

	recovered, err := Recover(TradeDigest(tampered), sig)
	require.NoError(t, err)
	assert.NotEqual(t, signer.Address(), recovered)
}

func TestDigestBindsEveryTradeField(t *testing.T) {
	base := sampleTradeIntent()
	baseDigest := TradeDigest(base)

	variants := []domain.TradeIntent{}

	v := base
	v.Marketplace = common.HexToAddress("0xdead000000000000000000000000000000000001")
	variants = append(variants, v)
	v = base
	v.Collection = common.HexToAddress("0xdead000000000000000000000000000000000002")
	variants = append(variants, v)
	v = base
	v.TokenID = big.NewInt(99)
	variants = append(variants, v)
	v = base
	v.Seller = common.HexToAddress("0xdead000000000000000000000000000000000003")
	variants = append(variants, v)
	v = base
	v.Buyer = common.HexToAddress("0xdead000000000000000000000000000000000004")
	variants = append(variants, v)
	v = base
	v.Price = big.NewInt(999)
	variants = append(variants, v)
	v = base
	v.PaymentToken = common.HexToAddress("0xdead000000000000000000000000000000000005")
	variants = append(variants, v)
	v = base
	v.RoyaltyFee = big.NewInt(1)
	variants = append(variants, v)
	v = base
	v.InvestorFee = big.NewInt(1)
	variants = append(variants, v)
	v = base
	v.MarketplaceFee = big.NewInt(1)
	variants = append(variants, v)

	for _, variant := range variants {
		assert.NotEqual(t, baseDigest, TradeDigest(variant))
	}
}

func TestDigestTreatsNilAmountsAsZero(t *testing.T) {
	a := sampleTradeIntent()
	a.RoyaltyFee = nil
	b := sampleTradeIntent()
	b.RoyaltyFee = big.NewInt(0)

	assert.Equal(t, TradeDigest(a), TradeDigest(b))
}

func TestSignatureBytesLayout(t *testing.T) {
	signer := newTestSigner(t)
	sig, err := signer.SignTrade(sampleTradeIntent())
	require.NoError(t, err)

	raw := sig.Bytes()
	require.Len(t, raw, 65)
	assert.Equal(t, sig.R[:], raw[0:32])
	assert.Equal(t, sig.S[:], raw[32:64])
	assert.Equal(t, sig.V, raw[64])
}

func TestNewSignerAcceptsPrefixedHex(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(ethcrypto.FromECDSA(key))

	plain, err := NewSigner(hexKey)
	require.NoError(t, err)
	prefixed, err := NewSigner("0x" + hexKey)
	require.NoError(t, err)

	assert.Equal(t, plain.Address(), prefixed.Address())
}

func TestNewSignerRejectsBadHex(t *testing.T) {
	_, err := NewSigner("not-a-key")
	assert.Error(t, err)
}

func TestEncryptDecryptKeyRoundTrip(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(ethcrypto.FromECDSA(key))

	blob, err := EncryptKey(hexKey, "correct horse battery staple")
	require.NoError(t, err)

	decrypted, err := DecryptKey(blob, "correct horse battery staple")
	require.NoError(t, err)
	assert.Equal(t, hexKey, decrypted)

	_, err = DecryptKey(blob, "wrong password")
	assert.Error(t, err)
}

func TestLoadKeyPrefersRawKey(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(ethcrypto.FromECDSA(key))

	got, err := LoadKey(KeyConfig{RawPrivateKey: "0x" + hexKey})
	require.NoError(t, err)
	assert.Equal(t, hexKey, got)
}

func TestLoadKeyFromEncryptedFile(t *testing.T) {
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	hexKey := common.Bytes2Hex(ethcrypto.FromECDSA(key))

	blob, err := EncryptKey(hexKey, "pw")
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "operator.key.json")
	require.NoError(t, os.WriteFile(path, blob, 0o600))

	got, err := LoadKey(KeyConfig{EncryptedKeyPath: path, KeyPassword: "pw"})
	require.NoError(t, err)
	assert.Equal(t, hexKey, got)
}

func TestLoadKeyNoSource(t *testing.T) {
	_, err := LoadKey(KeyConfig{})
	assert.Error(t, err)
}
