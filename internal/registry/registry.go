// Package registry maintains the ordered set of payment-token addresses
// accepted for token-denominated trades.
package registry

import (
	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

// AllowedTokens is an index-addressed, duplicate-free sequence of payment
// token addresses. Removal uses swap-with-last-and-pop, so ordering is not
// preserved across removals; membership and O(1) deletion are.
type AllowedTokens struct {
	tokens []common.Address
	index  map[common.Address]struct{}
}

// New creates an AllowedTokens seeded with the initial set. The caller is
// responsible for the initial set already satisfying the invariants (no zero
// address, no duplicates), mirroring construction-time trust in the deployer.
func New(initial []common.Address) *AllowedTokens {
	r := &AllowedTokens{
		tokens: make([]common.Address, 0, len(initial)),
		index:  make(map[common.Address]struct{}, len(initial)),
	}
	for _, addr := range initial {
		r.tokens = append(r.tokens, addr)
		r.index[addr] = struct{}{}
	}
	return r
}

// Count returns the number of allowed tokens.
func (r *AllowedTokens) Count() int { return len(r.tokens) }

// At returns the token address at index.
func (r *AllowedTokens) At(index int) (common.Address, error) {
	if index < 0 || index >= len(r.tokens) {
		return common.Address{}, domain.ErrIndexOutOfBounds
	}
	return r.tokens[index], nil
}

// Contains reports whether addr is allow-listed.
func (r *AllowedTokens) Contains(addr common.Address) bool {
	_, ok := r.index[addr]
	return ok
}

// Add appends addr to the sequence.
func (r *AllowedTokens) Add(addr common.Address) error {
	if addr == (common.Address{}) {
		return domain.ErrZeroAddress
	}
	if r.Contains(addr) {
		return domain.ErrAlreadyAllowed
	}
	r.tokens = append(r.tokens, addr)
	r.index[addr] = struct{}{}
	return nil
}

// RemoveAt deletes the entry at index by moving the last entry into its slot
// and shrinking the sequence. It returns the removed address.
func (r *AllowedTokens) RemoveAt(index int) (common.Address, error) {
	if index < 0 || index >= len(r.tokens) {
		return common.Address{}, domain.ErrIndexOutOfBounds
	}
	removed := r.tokens[index]
	last := len(r.tokens) - 1
	r.tokens[index] = r.tokens[last]
	r.tokens = r.tokens[:last]
	delete(r.index, removed)
	return removed, nil
}

// All returns a copy of the current sequence.
func (r *AllowedTokens) All() []common.Address {
	out := make([]common.Address, len(r.tokens))
	copy(out, r.tokens)
	return out
}
