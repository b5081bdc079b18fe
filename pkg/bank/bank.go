// Package bank executes signed transactions against an account store,
// committing their effects only when every instruction succeeds.
package bank

import (
	"errors"
	"fmt"
	"sync"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/cu"
	"github.com/Overclock-Validator/pdautil/pkg/rent"
	"github.com/Overclock-Validator/pdautil/pkg/safemath"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/samber/lo"
	"k8s.io/klog/v2"
)

var (
	ErrNoSignatures     = errors.New("transaction carries no signatures")
	ErrInvalidSignature = errors.New("transaction signature verification failed")
	ErrNotSystemOwned   = errors.New("airdrop recipient is not a system account")
)

type TxResult struct {
	Signature        solana.Signature
	Logs             []string
	ComputeUnitsUsed uint64
	// FailedInstruction is the index of the failing instruction, or -1.
	FailedInstruction int
	// Err is the instruction or rent-state error that rolled the transaction
	// back. Nil when the transaction committed.
	Err error
	// AccountsDeltaHash covers the accounts written by a committed
	// transaction.
	AccountsDeltaHash []byte
}

// ErrorCode returns the Solana instruction error code of Err and, for custom
// errors, the program-specific code.
func (r *TxResult) ErrorCode() (int, int) {
	return sealevel.TranslateErrToInstrErrCode(r.Err)
}

type Bank struct {
	mu               sync.Mutex
	store            accounts.Accounts
	sysvars          accounts.Accounts
	rent             sealevel.SysvarRent
	metrics          *Metrics
	ComputeUnitLimit uint64
}

// NewBank returns a bank over store. A nil metrics records into a private
// registry.
func NewBank(store accounts.Accounts, rentParams sealevel.SysvarRent, metrics *Metrics) (*Bank, error) {
	if metrics == nil {
		var err error
		metrics, err = NewMetrics(prometheus.NewRegistry())
		if err != nil {
			return nil, err
		}
	}

	sysvars := accounts.NewMemAccounts()
	err := sealevel.WriteRentSysvar(sysvars, &rentParams)
	if err != nil {
		return nil, fmt.Errorf("writing rent sysvar: %w", err)
	}

	return &Bank{
		store:            store,
		sysvars:          sysvars,
		rent:             rentParams,
		metrics:          metrics,
		ComputeUnitLimit: cu.DefaultComputeUnitLimit,
	}, nil
}

func (b *Bank) Rent() sealevel.SysvarRent {
	return b.rent
}

// GetAccount returns the stored state of pubkey, or nil if it was never
// funded.
func (b *Bank) GetAccount(pubkey solana.PublicKey) (*accounts.Account, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.store.GetAccount((*[32]byte)(&pubkey))
}

// Airdrop credits lamports to a system-owned account, creating it if absent.
func (b *Bank) Airdrop(pubkey solana.PublicKey, lamports uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	acct, err := b.loadAccount(pubkey)
	if err != nil {
		return err
	}
	if acct.Owner != sealevel.SystemProgramAddr {
		return ErrNotSystemOwned
	}

	acct.Lamports, err = safemath.CheckedAddU64(acct.Lamports, lamports)
	if err != nil {
		return err
	}

	err = b.store.SetAccount((*[32]byte)(&pubkey), acct)
	if err != nil {
		return err
	}

	klog.V(2).Infof("airdropped %d lamports to %s", lamports, pubkey)
	b.metrics.airdrops.Inc()
	return nil
}

func (b *Bank) loadAccount(pubkey solana.PublicKey) (*accounts.Account, error) {
	acct, err := b.store.GetAccount((*[32]byte)(&pubkey))
	if err != nil {
		return nil, fmt.Errorf("loading account %s: %w", pubkey, err)
	}
	if acct == nil {
		acct = &accounts.Account{Key: pubkey, Owner: sealevel.SystemProgramAddr}
	}
	return acct, nil
}

// ProcessTransaction verifies and executes tx. A returned error means the
// transaction was rejected before execution; instruction failures are
// reported in TxResult.Err and leave the store untouched.
func (b *Bank) ProcessTransaction(tx *solana.Transaction) (*TxResult, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	result, err := b.processTransaction(tx)
	if err != nil {
		b.metrics.txsRejected.Inc()
		return nil, err
	}

	b.metrics.txsProcessed.Inc()
	b.metrics.computeUnits.Observe(float64(result.ComputeUnitsUsed))
	if result.Err == nil {
		b.metrics.txsSucceeded.Inc()
	} else {
		b.metrics.txsFailed.Inc()
	}

	return result, nil
}

func (b *Bank) processTransaction(tx *solana.Transaction) (*TxResult, error) {
	if len(tx.Signatures) == 0 {
		return nil, ErrNoSignatures
	}
	err := tx.VerifySignatures()
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err)
	}

	instrs, err := instrsFromTx(tx)
	if err != nil {
		return nil, err
	}

	transactionAccts, err := b.transactionAcctsFromTx(tx)
	if err != nil {
		return nil, err
	}

	var log sealevel.LogRecorder
	execCtx := &sealevel.ExecutionCtx{
		Log:                &log,
		Accounts:           b.sysvars,
		TransactionContext: sealevel.NewTransactionCtx(*transactionAccts, sealevel.DefaultInstructionStackCapacity, sealevel.DefaultInstructionTraceCapacity),
		ComputeMeter:       cu.NewComputeMeter(b.ComputeUnitLimit),
	}
	txAccts := &execCtx.TransactionContext.Accounts

	rent.SetRentExemptRentEpochMax(&b.rent, txAccts)
	preTxRentStates, err := rent.NewRentStateInfo(&b.rent, execCtx.TransactionContext, tx)
	if err != nil {
		return nil, err
	}

	result := &TxResult{Signature: tx.Signatures[0], FailedInstruction: -1}

	for instrIdx, instr := range instrs {
		instructionAccts := sealevel.InstructionAcctsFromAccountMetas(instr.Accounts, *txAccts)
		programIdx := uint64(tx.Message.Instructions[instrIdx].ProgramIDIndex)

		err = execCtx.ProcessInstruction(instr.Data, instructionAccts, []uint64{programIdx})
		if err != nil {
			klog.V(2).Infof("tx %s: instruction %d failed: %s", result.Signature, instrIdx, err)
			result.FailedInstruction = instrIdx
			result.Err = err
			break
		}
	}

	result.Logs = log.Logs
	result.ComputeUnitsUsed = execCtx.ComputeMeter.Used()
	for _, l := range log.Logs {
		klog.V(3).Infof("%s", l)
	}

	if result.Err == nil {
		postTxRentStates, err := rent.NewRentStateInfo(&b.rent, execCtx.TransactionContext, tx)
		if err != nil {
			return nil, err
		}
		result.Err = rent.VerifyRentStateChanges(preTxRentStates, postTxRentStates)
	}

	klog.V(2).Infof("tx %s - compute units consumed: %d", result.Signature, result.ComputeUnitsUsed)

	if result.Err != nil {
		return result, nil
	}

	result.AccountsDeltaHash, err = b.recordModifiedAccounts(tx, txAccts)
	if err != nil {
		return nil, fmt.Errorf("committing tx %s: %w", result.Signature, err)
	}

	return result, nil
}

func (b *Bank) transactionAcctsFromTx(tx *solana.Transaction) (*sealevel.TransactionAccounts, error) {
	acctsForTx := make([]accounts.Account, 0, len(tx.Message.AccountKeys))

	for _, pubkey := range tx.Message.AccountKeys {
		var acct *accounts.Account

		if sealevel.IsNativeProgram(pubkey) {
			acct = &accounts.Account{Key: pubkey, Lamports: 1, Owner: sealevel.NativeLoaderAddr, Executable: true}
		} else {
			var err error
			acct, err = b.loadAccount(pubkey)
			if err != nil {
				return nil, err
			}
		}

		acctsForTx = append(acctsForTx, *acct)
	}

	return sealevel.NewTransactionAccounts(acctsForTx), nil
}

func instrsFromTx(tx *solana.Transaction) ([]sealevel.Instruction, error) {
	instrs := make([]sealevel.Instruction, len(tx.Message.Instructions))
	for idx, compiledInstr := range tx.Message.Instructions {
		programId, err := tx.ResolveProgramIDIndex(compiledInstr.ProgramIDIndex)
		if err != nil {
			return nil, err
		}

		ams, err := compiledInstr.ResolveInstructionAccounts(&tx.Message)
		if err != nil {
			return nil, err
		}

		acctMetas := make([]sealevel.AccountMeta, 0, len(ams))
		for _, am := range ams {
			acctMeta := sealevel.AccountMeta{Pubkey: am.PublicKey, IsSigner: am.IsSigner, IsWritable: isWritable(tx, am.PublicKey)}
			acctMetas = append(acctMetas, acctMeta)
		}

		instrs[idx] = sealevel.Instruction{Accounts: acctMetas, ProgramId: programId, Data: compiledInstr.Data}
	}

	return instrs, nil
}

// isWritable demotes builtins and invoked programs to read-only.
func isWritable(tx *solana.Transaction, pubkey solana.PublicKey) bool {
	writable, err := tx.Message.IsWritable(pubkey)
	if err != nil || !writable {
		return false
	}

	if sealevel.IsNativeProgram(pubkey) || pubkey == sealevel.SysvarRentAddr {
		return false
	}

	invoked := lo.ContainsBy(tx.Message.Instructions, func(compiledInstr solana.CompiledInstruction) bool {
		programId, err := tx.ResolveProgramIDIndex(compiledInstr.ProgramIDIndex)
		return err == nil && programId == pubkey
	})
	return !invoked
}

// recordModifiedAccounts writes back every writable account touched during
// execution, in one batch when the store supports it, and returns their
// delta hash.
func (b *Bank) recordModifiedAccounts(tx *solana.Transaction, txAccts *sealevel.TransactionAccounts) ([]byte, error) {
	modified := lo.Filter(txAccts.Accounts, func(acct *accounts.Account, idx int) bool {
		return txAccts.Touched[idx] && isWritable(tx, acct.Key)
	})
	for _, acct := range modified {
		klog.V(3).Infof("modified account %s after tx", acct.Key)
	}

	if batcher, ok := b.store.(accounts.BatchStorer); ok {
		err := batcher.StoreAccounts(modified)
		if err != nil {
			return nil, err
		}
	} else {
		for _, acct := range modified {
			err := b.store.SetAccount((*[32]byte)(&acct.Key), acct)
			if err != nil {
				return nil, err
			}
		}
	}

	b.metrics.accountsSaved.Add(float64(len(modified)))
	return AccountsDeltaHash(modified), nil
}
