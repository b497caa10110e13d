// Package crypto implements the trade-authorization protocol: canonical
// encoding of trade and mint parameter tuples, operator-side signing, and
// signer recovery for verification. There is no nonce or expiry in the
// payloads; a signed intent stays valid until an on-chain precondition it
// references no longer holds.
package crypto

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"

	"github.com/autentica/marketplace/internal/domain"
)

// personalMsgPrefix is the eth_sign prefix applied to the 32-byte tuple hash
// before signing, matching the operator tooling's web3.eth.sign behaviour.
const personalMsgPrefix = "\x19Ethereum Signed Message:\n32"

// TradeDigest returns the signable digest of a trade intent: the keccak256 of
// the ABI-encoded 10-field tuple, wrapped in the personal-sign prefix.
func TradeDigest(intent domain.TradeIntent) []byte {
	hash := ethcrypto.Keccak256(
		concatWords(
			addressWord(intent.Marketplace),
			addressWord(intent.Collection),
			uintWord(intent.TokenID),
			addressWord(intent.Seller),
			addressWord(intent.Buyer),
			uintWord(intent.Price),
			addressWord(intent.PaymentToken),
			uintWord(intent.RoyaltyFee),
			uintWord(intent.InvestorFee),
			uintWord(intent.MarketplaceFee),
		),
	)
	return personalDigest(hash)
}

// MintDigest returns the signable digest of an investor-minting intent: the
// keccak256 of the ABI-encoded 5-field tuple, wrapped in the personal-sign
// prefix.
func MintDigest(intent domain.MintIntent) []byte {
	hash := ethcrypto.Keccak256(
		concatWords(
			addressWord(intent.Collection),
			addressWord(intent.Creator),
			uintWord(intent.TokenID),
			uintWord(intent.RoyaltyFee),
			uintWord(intent.InvestorFee),
		),
	)
	return personalDigest(hash)
}

// Recover returns the address that produced sig over digest. It fails when
// the signature components do not form a valid secp256k1 signature.
func Recover(digest []byte, sig domain.Signature) (common.Address, error) {
	raw := sig.Bytes()
	// go-ethereum expects the recovery id in {0,1}.
	if raw[64] >= 27 {
		raw[64] -= 27
	}
	pub, err := ethcrypto.SigToPub(digest, raw)
	if err != nil {
		return common.Address{}, fmt.Errorf("crypto: recover: %w", err)
	}
	return ethcrypto.PubkeyToAddress(*pub), nil
}

// personalDigest computes keccak256(prefix || hash).
func personalDigest(hash []byte) []byte {
	return ethcrypto.Keccak256(append([]byte(personalMsgPrefix), hash...))
}

// addressWord left-pads an address to a 32-byte ABI word.
func addressWord(addr common.Address) []byte {
	return common.LeftPadBytes(addr.Bytes(), 32)
}

// uintWord returns the 32-byte big-endian representation of n. A nil value
// encodes as zero.
func uintWord(n *big.Int) []byte {
	if n == nil {
		return make([]byte, 32)
	}
	b := n.Bytes()
	if len(b) >= 32 {
		return b[:32]
	}
	padded := make([]byte, 32)
	copy(padded[32-len(b):], b)
	return padded
}

// concatWords concatenates 32-byte words into one buffer.
func concatWords(words ...[]byte) []byte {
	buf := make([]byte, 0, len(words)*32)
	for _, w := range words {
		buf = append(buf, w...)
	}
	return buf
}
