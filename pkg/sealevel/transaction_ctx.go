package sealevel

import (
	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/safemath"
	"github.com/gagliardetto/solana-go"
)

const (
	DefaultInstructionStackCapacity = 5
	DefaultInstructionTraceCapacity = 64
)

type TxReturnData struct {
	ProgramId solana.PublicKey
	Data      []byte
}

// TransactionCtx tracks the accounts of a transaction together with its
// instruction trace and the stack of currently executing instructions.
// The last entry of the trace is always the not-yet-pushed next instruction.
type TransactionCtx struct {
	Accounts                 TransactionAccounts
	InstructionStackCapacity uint64
	InstructionTraceCapacity uint64
	ReturnData               TxReturnData
	instructionStack         []uint64
	instructionTrace         []*InstructionCtx
}

func NewTransactionCtx(txAccts TransactionAccounts, instrStackCapacity uint64, instrTraceCapacity uint64) *TransactionCtx {
	return &TransactionCtx{
		Accounts:                 txAccts,
		InstructionStackCapacity: instrStackCapacity,
		InstructionTraceCapacity: instrTraceCapacity,
		instructionTrace:         []*InstructionCtx{new(InstructionCtx)},
	}
}

func (txCtx *TransactionCtx) KeyOfAccountAtIndex(index uint64) (solana.PublicKey, error) {
	acct, err := txCtx.Accounts.GetAccount(index)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return acct.Key, nil
}

func (txCtx *TransactionCtx) AccountAtIndex(index uint64) (*accounts.Account, error) {
	return txCtx.Accounts.GetAccount(index)
}

func (txCtx *TransactionCtx) IndexOfAccount(pubkey solana.PublicKey) (uint64, error) {
	for index, acct := range txCtx.Accounts.Accounts {
		if acct.Key == pubkey {
			return uint64(index), nil
		}
	}
	return 0, InstrErrMissingAccount
}

func (txCtx *TransactionCtx) InstructionTraceLength() uint64 {
	return uint64(len(txCtx.instructionTrace) - 1)
}

func (txCtx *TransactionCtx) InstructionCtxStackHeight() uint64 {
	return uint64(len(txCtx.instructionStack))
}

func (txCtx *TransactionCtx) InstructionCtxAtIndexInTrace(idx uint64) (*InstructionCtx, error) {
	if idx >= uint64(len(txCtx.instructionTrace)) {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[idx], nil
}

func (txCtx *TransactionCtx) InstructionCtxAtNestingLevel(level uint64) (*InstructionCtx, error) {
	if level >= txCtx.InstructionCtxStackHeight() {
		return nil, InstrErrCallDepth
	}
	return txCtx.InstructionCtxAtIndexInTrace(txCtx.instructionStack[level])
}

func (txCtx *TransactionCtx) CurrentInstructionCtx() (*InstructionCtx, error) {
	level := safemath.SaturatingSubU64(txCtx.InstructionCtxStackHeight(), 1)
	return txCtx.InstructionCtxAtNestingLevel(level)
}

func (txCtx *TransactionCtx) NextInstructionCtx() (*InstructionCtx, error) {
	if len(txCtx.instructionTrace) == 0 {
		return nil, InstrErrCallDepth
	}
	return txCtx.instructionTrace[len(txCtx.instructionTrace)-1], nil
}

func (txCtx *TransactionCtx) Push() error {
	nestingLevel := txCtx.InstructionCtxStackHeight()

	calleeInstrCtx, err := txCtx.NextInstructionCtx()
	if err != nil {
		return err
	}
	calleeLamportSum, err := txCtx.instructionAccountsLamportSum(calleeInstrCtx)
	if err != nil {
		return err
	}

	if nestingLevel != 0 {
		callerInstrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		currentCallerLamportSum, err := txCtx.instructionAccountsLamportSum(callerInstrCtx)
		if err != nil {
			return err
		}
		if currentCallerLamportSum != callerInstrCtx.lamportSum {
			return InstrErrUnbalancedInstruction
		}
	}

	calleeInstrCtx.nestingLevel = nestingLevel
	calleeInstrCtx.lamportSum = calleeLamportSum

	indexInTrace := txCtx.InstructionTraceLength()
	if indexInTrace >= txCtx.InstructionTraceCapacity {
		return InstrErrCallDepth
	}
	txCtx.instructionTrace = append(txCtx.instructionTrace, new(InstructionCtx))

	if nestingLevel >= txCtx.InstructionStackCapacity {
		return InstrErrCallDepth
	}
	txCtx.instructionStack = append(txCtx.instructionStack, indexInTrace)

	return nil
}

func (txCtx *TransactionCtx) Pop() error {
	if len(txCtx.instructionStack) == 0 {
		return InstrErrCallDepth
	}

	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}
	lamportSum, err := txCtx.instructionAccountsLamportSum(instrCtx)
	unbalanced := err != nil || lamportSum != instrCtx.lamportSum

	txCtx.instructionStack = txCtx.instructionStack[:len(txCtx.instructionStack)-1]

	if unbalanced {
		return InstrErrUnbalancedInstruction
	}
	return nil
}

func (txCtx *TransactionCtx) instructionAccountsLamportSum(instrCtx *InstructionCtx) (uint64, error) {
	var sum uint64
	for instrAcctIdx, instrAcct := range instrCtx.InstructionAccounts {
		if instrAcct.IndexInCallee != uint64(instrAcctIdx) {
			continue
		}
		acct, err := txCtx.Accounts.GetAccount(instrAcct.IndexInTransaction)
		if err != nil {
			return 0, err
		}
		sum, err = safemath.CheckedAddU64(sum, acct.Lamports)
		if err != nil {
			return 0, InstrErrArithmeticOverflow
		}
	}
	return sum, nil
}
