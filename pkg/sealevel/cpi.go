package sealevel

import (
	"errors"

	"github.com/Overclock-Validator/pdautil/pkg/solana"
	solanago "github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const MaxSigners = 16

var ErrTooManySigners = errors.New("ErrTooManySigners")

// NativeInvokeSigned performs a cross-program invocation on behalf of the
// current program. Each entry of signersSeeds is a seed list (bump included)
// whose program address, derived under the current program id, is treated as
// a signer of the callee.
func (execCtx *ExecutionCtx) NativeInvokeSigned(instruction Instruction, signersSeeds ...[][]byte) error {
	err := execCtx.ComputeMeter.Consume(CUInvokeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	callerProgramId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return err
	}

	signers, err := deriveSigners(callerProgramId, signersSeeds)
	if err != nil {
		return err
	}

	return execCtx.NativeInvoke(instruction, signers)
}

func deriveSigners(programId solanago.PublicKey, signersSeeds [][][]byte) ([]solanago.PublicKey, error) {
	if len(signersSeeds) > MaxSigners {
		return nil, ErrTooManySigners
	}

	var signers []solanago.PublicKey
	for _, seeds := range signersSeeds {
		if len(seeds) > solana.MaxSeeds {
			return nil, InstrErrMaxSeedLengthExceeded
		}

		pda, err := solana.CreateProgramAddress(seeds, programId)
		if err != nil {
			klog.V(2).Infof("signer seeds rejected under %s: %s", programId, err)
			return nil, InstrErrInvalidSeeds
		}
		signers = append(signers, pda)
	}

	return signers, nil
}
