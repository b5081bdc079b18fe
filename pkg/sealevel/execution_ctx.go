package sealevel

import (
	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/cu"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

// ExecutionCtx is the state threaded through native programs while a
// transaction executes. Accounts holds sysvars; transaction accounts live in
// TransactionContext.
type ExecutionCtx struct {
	Log                Logger
	Accounts           accounts.Accounts
	TransactionContext *TransactionCtx
	ComputeMeter       cu.ComputeMeter
}

func (execCtx *ExecutionCtx) PrepareInstruction(ix Instruction, signers []solana.PublicKey) ([]InstructionAccount, []uint64, error) {
	txCtx := execCtx.TransactionContext

	ixCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return nil, nil, err
	}

	dedupInstructionAccounts := make([]InstructionAccount, 0)
	duplicateIndices := make([]uint64, 0)

	for instructionAcctIndex, accountMeta := range ix.Accounts {
		indexInTx, err := txCtx.IndexOfAccount(accountMeta.Pubkey)
		if err != nil {
			klog.Errorf("instruction references unknown account %s", accountMeta.Pubkey)
			return nil, nil, err
		}

		duplicateIndex := -1
		for index, instrAcct := range dedupInstructionAccounts {
			if instrAcct.IndexInTransaction == indexInTx {
				duplicateIndex = index
				break
			}
		}

		if duplicateIndex != -1 {
			duplicateIndices = append(duplicateIndices, uint64(duplicateIndex))
			dedupInstructionAccounts[duplicateIndex].IsSigner = dedupInstructionAccounts[duplicateIndex].IsSigner || accountMeta.IsSigner
			dedupInstructionAccounts[duplicateIndex].IsWritable = dedupInstructionAccounts[duplicateIndex].IsWritable || accountMeta.IsWritable
		} else {
			indexInCaller, err := ixCtx.IndexOfInstructionAccount(txCtx, accountMeta.Pubkey)
			if err != nil {
				return nil, nil, err
			}
			duplicateIndices = append(duplicateIndices, uint64(len(dedupInstructionAccounts)))

			instrAcct := InstructionAccount{IndexInTransaction: indexInTx,
				IndexInCaller: indexInCaller,
				IndexInCallee: uint64(instructionAcctIndex),
				IsSigner:      accountMeta.IsSigner,
				IsWritable:    accountMeta.IsWritable}

			dedupInstructionAccounts = append(dedupInstructionAccounts, instrAcct)
		}
	}

	for _, instructionAcct := range dedupInstructionAccounts {
		borrowedAcct, err := ixCtx.BorrowInstructionAccount(txCtx, instructionAcct.IndexInCaller)
		if err != nil {
			return nil, nil, err
		}
		key := borrowedAcct.Key()
		callerWritable := borrowedAcct.IsWritable()
		callerSigner := borrowedAcct.IsSigner()
		borrowedAcct.Drop()

		// read-only in caller cannot become writable in callee
		if instructionAcct.IsWritable && !callerWritable {
			klog.Errorf("%s: writable privilege escalated", key)
			return nil, nil, InstrErrPrivilegeEscalation
		}

		// to be signed in the callee, it must be signed in the caller or by the program
		if instructionAcct.IsSigner && !(callerSigner || verifySigner(key, signers) == nil) {
			klog.Errorf("%s: signer privilege escalated", key)
			return nil, nil, InstrErrPrivilegeEscalation
		}
	}

	instructionAccounts := make([]InstructionAccount, 0, len(duplicateIndices))
	for _, duplicateIndex := range duplicateIndices {
		if duplicateIndex >= uint64(len(dedupInstructionAccounts)) {
			return nil, nil, InstrErrNotEnoughAccountKeys
		}
		instrAcct := dedupInstructionAccounts[duplicateIndex]
		instructionAccounts = append(instructionAccounts, instrAcct)
	}

	calleeProgramId := ix.ProgramId
	programAcctIdx, err := ixCtx.IndexOfInstructionAccount(txCtx, calleeProgramId)
	if err != nil {
		klog.Errorf("unknown program %s", calleeProgramId)
		return nil, nil, err
	}

	borrowedProgramAcct, err := ixCtx.BorrowInstructionAccount(txCtx, programAcctIdx)
	if err != nil {
		return nil, nil, err
	}
	defer borrowedProgramAcct.Drop()

	if !borrowedProgramAcct.IsExecutable() {
		klog.Errorf("account %s is not executable", calleeProgramId)
		return nil, nil, InstrErrAccountNotExecutable
	}

	return instructionAccounts, []uint64{borrowedProgramAcct.IndexInTransaction}, nil
}

func (execCtx *ExecutionCtx) ProcessInstruction(instrData []byte, instructionAccts []InstructionAccount, programIndices []uint64) error {
	nextInstrCtx, err := execCtx.TransactionContext.NextInstructionCtx()
	if err != nil {
		return err
	}

	nextInstrCtx.Configure(programIndices, instructionAccts, instrData)

	err = execCtx.Push()
	if err != nil {
		return err
	}

	err1 := execCtx.ExecuteInstruction()

	err2 := execCtx.Pop()

	if err1 != nil {
		return err1
	}
	return err2
}

func (execCtx *ExecutionCtx) ExecuteInstruction() error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	borrowedRootAccount, err := instrCtx.BorrowProgramAccount(txCtx, 0)
	if err != nil {
		klog.V(2).Infof("BorrowProgramAccount failed: %s", err)
		return InstrErrUnsupportedProgramId
	}

	programKey := borrowedRootAccount.Key()
	ownerId := borrowedRootAccount.Owner()
	borrowedRootAccount.Drop()

	klog.V(3).Infof("ExecuteInstruction, account: %s, owner: %s", programKey, ownerId)

	if ownerId != NativeLoaderAddr {
		klog.Errorf("program %s is not a builtin (owner %s)", programKey, ownerId)
		return InstrErrUnsupportedProgramId
	}

	nativeProgramFn, err := resolveNativeProgramById(programKey)
	if err != nil {
		return err
	}

	klog.V(3).Infof("calling native program %s", programKey)
	return nativeProgramFn(execCtx)
}

// Push enters the next configured instruction, refusing reentrancy into a
// program already on the stack unless it is the immediate caller.
func (execCtx *ExecutionCtx) Push() error {
	txCtx := execCtx.TransactionContext

	idx := txCtx.InstructionTraceLength()
	instrCtx, err := txCtx.InstructionCtxAtIndexInTrace(idx)
	if err != nil {
		return err
	}

	programId, err := instrCtx.LastProgramKey(txCtx)
	if err != nil {
		return InstrErrUnsupportedProgramId
	}

	if txCtx.InstructionCtxStackHeight() != 0 {
		var contains bool
		for level := uint64(0); level < txCtx.InstructionCtxStackHeight(); level++ {
			ic, err := txCtx.InstructionCtxAtNestingLevel(level)
			if err != nil {
				continue
			}
			key, err := ic.LastProgramKey(txCtx)
			if err == nil && key == programId {
				contains = true
				break
			}
		}

		var isLast bool
		ic, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}
		key, err := ic.LastProgramKey(txCtx)
		if err == nil && key == programId {
			isLast = true
		}

		if contains && !isLast {
			return InstrErrReentrancyNotAllowed
		}
	}

	return txCtx.Push()
}

func (execCtx *ExecutionCtx) Pop() error {
	return execCtx.TransactionContext.Pop()
}

func (execCtx *ExecutionCtx) StackHeight() uint64 {
	return execCtx.TransactionContext.InstructionCtxStackHeight()
}

func (execCtx *ExecutionCtx) NativeInvoke(instruction Instruction, signers []solana.PublicKey) error {
	klog.V(3).Infof("NativeInvoke %s", instruction.ProgramId)
	instrAccts, programIndices, err := execCtx.PrepareInstruction(instruction, signers)
	if err != nil {
		return err
	}

	return execCtx.ProcessInstruction(instruction.Data, instrAccts, programIndices)
}

// Rent returns the rent sysvar visible to the executing transaction.
func (execCtx *ExecutionCtx) Rent() (*SysvarRent, error) {
	return ReadRentSysvar(execCtx.Accounts)
}

// CreateAccount invokes the system program to create to, funded by from and
// owned by owner. A non-empty signerSeeds lets the current program sign for
// the address it derives.
func (execCtx *ExecutionCtx) CreateAccount(from, to solana.PublicKey, lamports, space uint64, owner solana.PublicKey, signerSeeds [][]byte) error {
	instr := NewCreateAccountInstruction(from, to, lamports, space, owner)
	if len(signerSeeds) == 0 {
		return execCtx.NativeInvokeSigned(*instr)
	}
	return execCtx.NativeInvokeSigned(*instr, signerSeeds)
}
