// Package ledger provides the in-memory value ledgers the settlement engine
// moves funds on: a native-coin ledger and an ERC-20-shaped token ledger.
// Each settlement is applied as an all-or-nothing batch; a failed leg leaves
// every balance untouched.
package ledger

import (
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"

	"github.com/autentica/marketplace/internal/domain"
)

// Payment is one outbound leg of a settlement batch.
type Payment struct {
	To     common.Address
	Amount *big.Int
}

// CoinLedger tracks native-coin balances.
type CoinLedger struct {
	balances map[common.Address]*big.Int

	mu sync.Mutex
}

// NewCoinLedger creates an empty CoinLedger.
func NewCoinLedger() *CoinLedger {
	return &CoinLedger{balances: make(map[common.Address]*big.Int)}
}

// Mint credits amount to addr.
func (l *CoinLedger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
}

// BalanceOf returns a copy of addr's balance.
func (l *CoinLedger) BalanceOf(addr common.Address) *big.Int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return new(big.Int).Set(l.balance(addr))
}

// Settle debits the sum of all legs from payer and credits each leg, as one
// atomic unit. Zero-amount legs are skipped. It fails without any mutation if
// the payer cannot cover the total.
func (l *CoinLedger) Settle(payer common.Address, legs []Payment) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	total := big.NewInt(0)
	for _, leg := range legs {
		total.Add(total, leg.Amount)
	}
	if l.balance(payer).Cmp(total) < 0 {
		return domain.ErrInsufficientBalance
	}

	l.balances[payer] = new(big.Int).Sub(l.balance(payer), total)
	for _, leg := range legs {
		if leg.Amount.Sign() == 0 {
			continue
		}
		l.credit(leg.To, leg.Amount)
	}
	return nil
}

func (l *CoinLedger) balance(addr common.Address) *big.Int {
	if b := l.balances[addr]; b != nil {
		return b
	}
	return big.NewInt(0)
}

func (l *CoinLedger) credit(addr common.Address, amount *big.Int) {
	l.balances[addr] = new(big.Int).Add(l.balance(addr), amount)
}
