package parking

import "sync"

// Identity is an opaque caller address. The core never trusts a bare
// identity for privileged operations; those require an AdminCapability.
type Identity string

// Wallet is the fungible balance primitive: deposit, take, inspect.
// Balances never go negative; Take fails atomically instead.
type Wallet struct {
	mu      sync.Mutex
	owner   Identity
	balance int64
}

func NewWallet(owner Identity, initial int64) *Wallet {
	return &Wallet{owner: owner, balance: initial}
}

func (w *Wallet) Owner() Identity {
	return w.owner
}

func (w *Wallet) Deposit(amount int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.balance += amount
}

func (w *Wallet) Take(amount int64) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.balance < amount {
		return ErrInsufficientFunds
	}
	w.balance -= amount
	return nil
}

func (w *Wallet) Value() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.balance
}
