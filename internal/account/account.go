// Package account implements the CLO's two cash accounts: bounded debit,
// unchecked credit, no negative balances.
package account

import "github.com/meridian-analytics/clo-engine/internal/clerr"

// Account is a cash balance mutated only through Debit and Credit.
type Account struct {
	id      string
	Balance float64
}

// New returns an Account seeded with balance.
func New(id string, balance float64) *Account {
	return &Account{id: id, Balance: balance}
}

// Debit attempts to remove amount from the balance, returning the amount
// actually removed. It never overdraws: requesting more than the balance
// (or a non-positive amount, or an already-negative balance) caps the
// debit at what's available.
func (a *Account) Debit(amount float64) float64 {
	if amount <= 0 || a.Balance <= 0 {
		return 0
	}
	if amount > a.Balance {
		debited := a.Balance
		a.Balance = 0
		return debited
	}
	a.Balance -= amount
	return amount
}

// Credit adds amount to the balance. A negative amount is a programmer
// error, not a recoverable business condition.
func (a *Account) Credit(amount float64) error {
	if amount < 0 {
		return clerr.New(clerr.InvalidInput, a.id, "cannot credit a negative amount")
	}
	a.Balance += amount
	return nil
}
