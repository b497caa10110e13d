package crypto

import (
	"crypto/ecdsa"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/autentica/marketplace/internal/domain"
)

// Signer is the operator-side signing component. It holds the operator's
// secp256k1 private key and co-signs the exact economic terms of trades and
// investor mints. The Signer never stores what it has signed; treating a
// signed intent as single-use is the orchestration layer's responsibility.
type Signer struct {
	privateKey *ecdsa.PrivateKey
	address    common.Address
}

// NewSigner creates a Signer from a hex-encoded secp256k1 private key.
func NewSigner(privateKeyHex string) (*Signer, error) {
	keyHex := strings.TrimPrefix(privateKeyHex, "0x")
	pk, err := ethcrypto.HexToECDSA(keyHex)
	if err != nil {
		return nil, fmt.Errorf("crypto: invalid private key: %w", err)
	}
	return &Signer{
		privateKey: pk,
		address:    ethcrypto.PubkeyToAddress(pk.PublicKey),
	}, nil
}

// Address returns the address derived from the signer's private key.
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTrade signs the full trade parameter tuple.
func (s *Signer) SignTrade(intent domain.TradeIntent) (domain.Signature, error) {
	return s.signDigest(TradeDigest(intent))
}

// SignMint signs the investor-minting parameter tuple.
func (s *Signer) SignMint(intent domain.MintIntent) (domain.Signature, error) {
	return s.signDigest(MintDigest(intent))
}

// signDigest signs a 32-byte digest and splits the result into its three
// canonical components with v in {27, 28}.
func (s *Signer) signDigest(digest []byte) (domain.Signature, error) {
	raw, err := ethcrypto.Sign(digest, s.privateKey)
	if err != nil {
		return domain.Signature{}, fmt.Errorf("crypto: signing: %w", err)
	}

	var sig domain.Signature
	copy(sig.R[:], raw[0:32])
	copy(sig.S[:], raw[32:64])
	sig.V = raw[64]
	if sig.V < 27 {
		sig.V += 27
	}
	return sig, nil
}
