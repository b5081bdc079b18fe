package rent

import (
	"errors"
	"fmt"
	"math"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
)

var ErrInsufficientFundsForRent = errors.New("InsufficientFundsForRent")

const (
	RentStateUninitialized = iota
	RentStateRentPaying
	RentStateRentExempt
)

type RentPayingInfo struct {
	Lamports uint64
	DataSize uint64
}

type RentStateInfo struct {
	RentState      uint64
	RentPayingInfo RentPayingInfo
}

func RentStateFromAcct(acct *accounts.Account, rent *sealevel.SysvarRent) *RentStateInfo {
	if acct.Lamports == 0 {
		return &RentStateInfo{RentState: RentStateUninitialized}
	} else if rent.IsExempt(acct.Lamports, uint64(len(acct.Data))) {
		return &RentStateInfo{RentState: RentStateRentExempt}
	} else {
		return &RentStateInfo{RentState: RentStateRentPaying, RentPayingInfo: RentPayingInfo{Lamports: acct.Lamports, DataSize: uint64(len(acct.Data))}}
	}
}

// NewRentStateInfo snapshots the rent state of every writable account of tx.
// Read-only accounts get a nil entry.
func NewRentStateInfo(rent *sealevel.SysvarRent, txCtx *sealevel.TransactionCtx, tx *solana.Transaction) ([]*RentStateInfo, error) {
	rentStateInfos := make([]*RentStateInfo, 0, len(tx.Message.AccountKeys))

	for idx, pk := range tx.Message.AccountKeys {
		isWritable, err := tx.Message.IsWritable(pk)
		if err != nil {
			return nil, err
		}
		if !isWritable {
			rentStateInfos = append(rentStateInfos, nil)
			continue
		}

		acct, err := txCtx.AccountAtIndex(uint64(idx))
		if err != nil {
			return nil, err
		}
		rentStateInfos = append(rentStateInfos, RentStateFromAcct(acct, rent))
	}

	return rentStateInfos, nil
}

func checkRentStateTransitionAllowed(preRentState *RentStateInfo, postRentState *RentStateInfo) bool {
	switch postRentState.RentState {
	case RentStateUninitialized, RentStateRentExempt:
		return true
	}

	// a rent-paying account may only shrink its balance, keeping its size
	if preRentState.RentState != RentStateRentPaying {
		return false
	}
	return postRentState.RentPayingInfo.DataSize == preRentState.RentPayingInfo.DataSize &&
		postRentState.RentPayingInfo.Lamports <= preRentState.RentPayingInfo.Lamports
}

// VerifyRentStateChanges rejects any writable account that ends the
// transaction rent paying when it did not start that way.
func VerifyRentStateChanges(preStates []*RentStateInfo, postStates []*RentStateInfo) error {
	if len(preStates) != len(postStates) {
		panic("programming error - pre tx states and post tx states must be same length")
	}

	for idx := range preStates {
		pre, post := preStates[idx], postStates[idx]
		if pre == nil || post == nil {
			if pre != post {
				panic("programming error - writability changed during execution")
			}
			continue
		}

		if !checkRentStateTransitionAllowed(pre, post) {
			return fmt.Errorf("%w: account index %d", ErrInsufficientFundsForRent, idx)
		}
	}

	return nil
}

// SetRentExemptRentEpochMax marks rent-exempt accounts as never owing rent.
func SetRentExemptRentEpochMax(rent *sealevel.SysvarRent, txAccts *sealevel.TransactionAccounts) {
	for idx, acct := range txAccts.Accounts {
		if acct.RentEpoch != math.MaxUint64 && acct.Lamports >= rent.MinimumBalance(uint64(len(acct.Data))) {
			acct.RentEpoch = math.MaxUint64
			_ = txAccts.Touch(uint64(idx))
		}
	}
}
