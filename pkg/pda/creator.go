// Package pda creates program-owned accounts at program-derived addresses.
package pda

import (
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
	solanago "github.com/gagliardetto/solana-go"
)

// Account is the view of an account the creator needs.
// *sealevel.BorrowedAccount and AccountInfo both satisfy it.
type Account interface {
	Key() solanago.PublicKey
	Lamports() uint64
	IsSigner() bool
}

// Runtime supplies rent parameters and performs the signed system program
// CreateAccount. *sealevel.ExecutionCtx implements it.
type Runtime interface {
	Rent() (*sealevel.SysvarRent, error)
	CreateAccount(from, to solanago.PublicKey, lamports, space uint64, owner solanago.PublicKey, signerSeeds [][]byte) error
}

var _ Runtime = (*sealevel.ExecutionCtx)(nil)
var _ Account = (*sealevel.BorrowedAccount)(nil)

// CreatePdaAccount creates pda as a rent-exempt account of space zeroed bytes
// owned by programId, funded by payer. pda must be the address derived from
// seeds followed by bump under programId; the same seed list signs the
// creation. maxSeeds bounds len(seeds)+1.
//
// Every check runs before the runtime is called. Runtime errors are returned
// unchanged.
func CreatePdaAccount(rt Runtime, maxSeeds int, payer, pda Account, programId solanago.PublicKey, space uint64, seeds [][]byte, bump uint8) error {
	if !payer.IsSigner() {
		return sealevel.InstrErrMissingRequiredSignature
	}

	if pda.Lamports() != 0 {
		return sealevel.InstrErrAccountAlreadyInitialized
	}

	list, err := NewSeedList(maxSeeds)
	if err != nil {
		return err
	}
	if len(seeds)+1 > list.Cap() {
		return sealevel.InstrErrInvalidArgument
	}

	for _, seed := range seeds {
		if err = list.Push(seed); err != nil {
			return err
		}
	}
	if err = list.PushBump(bump); err != nil {
		return err
	}

	expected, err := solana.CreateProgramAddress(list.Seeds(), programId)
	if err != nil || expected != pda.Key() {
		return sealevel.InstrErrInvalidSeeds
	}

	rent, err := rt.Rent()
	if err != nil {
		return err
	}
	lamports := rent.MinimumBalance(space)

	return rt.CreateAccount(payer.Key(), pda.Key(), lamports, space, programId, list.Seeds())
}

// AccountInfo is a point-in-time copy of an account's key, balance and signer
// flag. Programs hand it to CreatePdaAccount so no borrow is held across the
// system program invocation.
type AccountInfo struct {
	key      solanago.PublicKey
	lamports uint64
	isSigner bool
}

func NewAccountInfo(key solanago.PublicKey, lamports uint64, isSigner bool) AccountInfo {
	return AccountInfo{key: key, lamports: lamports, isSigner: isSigner}
}

func (a AccountInfo) Key() solanago.PublicKey { return a.key }
func (a AccountInfo) Lamports() uint64        { return a.lamports }
func (a AccountInfo) IsSigner() bool          { return a.isSigner }
