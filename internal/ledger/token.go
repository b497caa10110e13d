package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

type holderKey struct {
	token  common.Address
	holder common.Address
}

type allowanceKey struct {
	token   common.Address
	owner   common.Address
	spender common.Address
}

// TokenLedger tracks balances and spender allowances for any number of
// ERC-20-shaped payment tokens, keyed by token address.
type TokenLedger struct {
	balances   map[holderKey]*big.Int
	allowances map[allowanceKey]*big.Int

	mu sync.Mutex
}

// NewTokenLedger creates an empty TokenLedger.
func NewTokenLedger() *TokenLedger {
	return &TokenLedger{
		balances:   make(map[holderKey]*big.Int),
		allowances: make(map[allowanceKey]*big.Int),
	}
}

// Mint credits amount of token to addr.
func (l *TokenLedger) Mint(token, addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(token, addr, amount)
}

// BalanceOf returns a copy of addr's balance for token.
func (l *TokenLedger) BalanceOf(token, addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(token, addr))
}

// Approve sets spender's allowance over owner's tokens.
func (l *TokenLedger) Approve(token, owner, spender common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.allowances[allowanceKey{token, owner, spender}] = new(big.Int).Set(amount)
}

// Allowance returns a copy of spender's remaining allowance over owner's
// tokens.
func (l *TokenLedger) Allowance(token, owner, spender common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.allowance(token, owner, spender))
}

// Settle moves the sum of all legs of token from payer, spending spender's
// allowance, and credits each leg, as one atomic unit. It fails without any
// mutation when the payer balance or the spender allowance cannot cover the
// total.
func (l *TokenLedger) Settle(token, payer, spender common.Address, legs []Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := big.NewInt(0)
	for _, leg := range legs {
		total.Add(total, leg.Amount)
	}
	if l.balance(token, payer).Cmp(total) < 0 {
		return domain.ErrInsufficientBalance
	}
	if l.allowance(token, payer, spender).Cmp(total) < 0 {
		return domain.ErrInsufficientAllowance
	}

	l.balances[holderKey{token, payer}] = new(big.Int).Sub(l.balance(token, payer), total)
	l.allowances[allowanceKey{token, payer, spender}] = new(big.Int).Sub(l.allowance(token, payer, spender), total)
	for _, leg := range legs {
		if leg.Amount.Sign() == 0 {
			continue
		}
		l.credit(token, leg.To, leg.Amount)
	}
	return nil
}

func (l *TokenLedger) balance(token, addr common.Address) *big.Int {
	if b := l.balances[holderKey{token, addr}]; b != nil {
		return b
	}
	return big.NewInt(0)
}

func (l *TokenLedger) allowance(token, owner, spender common.Address) *big.Int {
	if a := l.allowances[allowanceKey{token, owner, spender}]; a != nil {
		return a
	}
	return big.NewInt(0)
}

func (l *TokenLedger) credit(token, addr common.Address, amount *big.Int) {
	l.balances[holderKey{token, addr}] = new(big.Int).Add(l.balance(token, addr), amount)
}
