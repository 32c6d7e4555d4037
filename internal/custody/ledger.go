package custody

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// custodyAccount is the synthetic account holding pooled reserves.
const custodyAccount = "custody"

// Ledger is an in-memory Custodian that enforces balances. It backs tests and
// demo runs where no external custody substrate exists.
type Ledger struct {
	mu       sync.Mutex
	balances map[string]map[string]uint64
}

func NewLedger() *Ledger {
	return &Ledger{balances: make(map[string]map[string]uint64)}
}

// Mint credits an account with new tokens, for seeding test scenarios.
func (l *Ledger) Mint(account, token string, amount uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(account, token, amount)
}

// Balance returns an account's balance for a token.
func (l *Ledger) Balance(account, token string) uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[key(account)][key(token)]
}

// Custodied returns the pooled amount held for a token.
func (l *Ledger) Custodied(token string) uint64 {
	return l.Balance(custodyAccount, token)
}

func (l *Ledger) Deposit(_ context.Context, token, from string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(from, token, amount); err != nil {
		return err
	}
	l.credit(custodyAccount, token, amount)
	return nil
}

func (l *Ledger) Withdraw(_ context.Context, token, to string, amount uint64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.debit(custodyAccount, token, amount); err != nil {
		return err
	}
	l.credit(to, token, amount)
	return nil
}

func (l *Ledger) credit(account, token string, amount uint64) {
	acct := l.balances[key(account)]
	if acct == nil {
		acct = make(map[string]uint64)
		l.balances[key(account)] = acct
	}
	acct[key(token)] += amount
}

func (l *Ledger) debit(account, token string, amount uint64) error {
	acct := l.balances[key(account)]
	if acct[key(token)] < amount {
		return fmt.Errorf("insufficient balance: account %s token %s has %d, need %d",
			account, token, acct[key(token)], amount)
	}
	acct[key(token)] -= amount
	return nil
}

func key(s string) string {
	return strings.ToLower(s)
}
