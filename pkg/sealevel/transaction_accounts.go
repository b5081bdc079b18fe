package sealevel

import (
	"github.com/Overclock-Validator/pdautil/pkg/accounts"
)

// TransactionAccounts is the ordered set of accounts loaded for one
// transaction. Touched records which accounts were written; borrowed guards
// against two live BorrowedAccounts aliasing the same account.
type TransactionAccounts struct {
	Accounts []*accounts.Account
	Touched  []bool
	borrowed []bool
}

func NewTransactionAccounts(accts []accounts.Account) *TransactionAccounts {
	txAccounts := &TransactionAccounts{
		Accounts: make([]*accounts.Account, 0, len(accts)),
		Touched:  make([]bool, len(accts)),
		borrowed: make([]bool, len(accts)),
	}
	for idx := range accts {
		acct := accts[idx]
		txAccounts.Accounts = append(txAccounts.Accounts, &acct)
	}
	return txAccounts
}

func (txAccounts *TransactionAccounts) Len() uint64 {
	return uint64(len(txAccounts.Accounts))
}

func (txAccounts *TransactionAccounts) GetAccount(idx uint64) (*accounts.Account, error) {
	if idx >= txAccounts.Len() {
		return nil, InstrErrNotEnoughAccountKeys
	}
	return txAccounts.Accounts[idx], nil
}

func (txAccounts *TransactionAccounts) Touch(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrNotEnoughAccountKeys
	}
	txAccounts.Touched[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) lock(idx uint64) error {
	if idx >= txAccounts.Len() {
		return InstrErrMissingAccount
	}
	if txAccounts.borrowed[idx] {
		return InstrErrAccountBorrowFailed
	}
	txAccounts.borrowed[idx] = true
	return nil
}

func (txAccounts *TransactionAccounts) Unlock(idx uint64) {
	if idx < txAccounts.Len() {
		txAccounts.borrowed[idx] = false
	}
}
