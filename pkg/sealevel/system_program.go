package sealevel

import (
	"bytes"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"k8s.io/klog/v2"
)

const SystemProgMaxPermittedDataLen = 10 * 1024 * 1024

const (
	SystemProgramInstrTypeCreateAccount = iota
	SystemProgramInstrTypeAssign
	SystemProgramInstrTypeTransfer
	SystemProgramInstrTypeCreateAccountWithSeed
	SystemProgramInstrTypeAdvanceNonceAccount
	SystemProgramInstrTypeWithdrawNonceAccount
	SystemProgramInstrTypeInitializeNonceAccount
	SystemProgramInstrTypeAuthorizeNonceAccount
	SystemProgramInstrTypeAllocate
)

// System instruction bodies. The u32 instruction type precedes each body on
// the wire.
type SystemInstrCreateAccount struct {
	Lamports uint64
	Space    uint64
	Owner    solana.PublicKey
}

type SystemInstrAssign struct {
	Owner solana.PublicKey
}

type SystemInstrTransfer struct {
	Lamports uint64
}

type SystemInstrAllocate struct {
	Space uint64
}

const systemInstrMaxSerializedLen = 1232

func checkWithinDeserializationLimit(decoder *bin.Decoder) error {
	if decoder.Position() > systemInstrMaxSerializedLen {
		return InstrErrInvalidInstructionData
	}
	return nil
}

func readPubkey(decoder *bin.Decoder, pubkey *solana.PublicKey) error {
	b, err := decoder.ReadBytes(solana.PublicKeyLength)
	if err != nil {
		return err
	}
	copy(pubkey[:], b)
	return nil
}

func (instr *SystemInstrCreateAccount) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if instr.Lamports, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if instr.Space, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	if err = readPubkey(decoder, &instr.Owner); err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrCreateAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	if err := encoder.WriteUint64(instr.Lamports, bin.LE); err != nil {
		return err
	}
	if err := encoder.WriteUint64(instr.Space, bin.LE); err != nil {
		return err
	}
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *SystemInstrAssign) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	if err := readPubkey(decoder, &instr.Owner); err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrAssign) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteBytes(instr.Owner[:], false)
}

func (instr *SystemInstrTransfer) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if instr.Lamports, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrTransfer) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(instr.Lamports, bin.LE)
}

func (instr *SystemInstrAllocate) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	if instr.Space, err = decoder.ReadUint64(bin.LE); err != nil {
		return err
	}
	return checkWithinDeserializationLimit(decoder)
}

func (instr *SystemInstrAllocate) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encoder.WriteUint64(instr.Space, bin.LE)
}

func newSystemInstruction(accountMetas []AccountMeta, instrType uint32, body bin.BinaryMarshaler) *Instruction {
	buf := new(bytes.Buffer)
	encoder := bin.NewBinEncoder(buf)

	err := encoder.WriteUint32(instrType, bin.LE)
	if err == nil {
		err = body.MarshalWithEncoder(encoder)
	}
	if err != nil {
		panic("writing to a bytes.Buffer cannot fail")
	}

	return &Instruction{Accounts: accountMetas, Data: buf.Bytes(), ProgramId: SystemProgramAddr}
}

func NewCreateAccountInstruction(from, to solana.PublicKey, lamports, space uint64, owner solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: from, IsSigner: true, IsWritable: true},
		{Pubkey: to, IsSigner: true, IsWritable: true},
	}
	return newSystemInstruction(accountMetas, SystemProgramInstrTypeCreateAccount, &SystemInstrCreateAccount{Lamports: lamports, Space: space, Owner: owner})
}

func NewTransferInstruction(from, to solana.PublicKey, lamports uint64) *Instruction {
	accountMetas := []AccountMeta{
		{Pubkey: from, IsSigner: true, IsWritable: true},
		{Pubkey: to, IsSigner: false, IsWritable: true},
	}
	return newSystemInstruction(accountMetas, SystemProgramInstrTypeTransfer, &SystemInstrTransfer{Lamports: lamports})
}

func NewAllocateInstruction(pubkey solana.PublicKey, space uint64) *Instruction {
	accountMetas := []AccountMeta{{Pubkey: pubkey, IsSigner: true, IsWritable: true}}
	return newSystemInstruction(accountMetas, SystemProgramInstrTypeAllocate, &SystemInstrAllocate{Space: space})
}

func NewAssignInstruction(pubkey, owner solana.PublicKey) *Instruction {
	accountMetas := []AccountMeta{{Pubkey: pubkey, IsSigner: true, IsWritable: true}}
	return newSystemInstruction(accountMetas, SystemProgramInstrTypeAssign, &SystemInstrAssign{Owner: owner})
}

type systemInstrHandler func(execCtx *ExecutionCtx, decoder *bin.Decoder, signers []solana.PublicKey) error

var systemInstrHandlers = map[uint32]systemInstrHandler{
	SystemProgramInstrTypeCreateAccount: execCreateAccount,
	SystemProgramInstrTypeAssign:        execAssign,
	SystemProgramInstrTypeTransfer:      execTransfer,
	SystemProgramInstrTypeAllocate:      execAllocate,
}

func SystemProgramExecute(execCtx *ExecutionCtx) error {
	err := execCtx.ComputeMeter.Consume(CUSystemProgramDefaultComputeUnits)
	if err != nil {
		return InstrErrComputationalBudgetExceeded
	}

	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	decoder := bin.NewBinDecoder(instrCtx.Data)
	instrType, err := decoder.ReadUint32(bin.LE)
	if err != nil {
		return InstrErrInvalidInstructionData
	}

	handler, ok := systemInstrHandlers[instrType]
	if !ok {
		klog.V(2).Infof("unsupported system program instruction %d", instrType)
		return InstrErrInvalidInstructionData
	}

	signers, err := instrCtx.Signers(txCtx)
	if err != nil {
		return err
	}

	return handler(execCtx, decoder, signers)
}

// decodeSystemInstr decodes the instruction body and checks the instruction
// carries at least numAccounts accounts.
func decodeSystemInstr(execCtx *ExecutionCtx, decoder *bin.Decoder, body bin.BinaryUnmarshaler, numAccounts uint64) (*InstructionCtx, error) {
	if err := body.UnmarshalWithDecoder(decoder); err != nil {
		return nil, InstrErrInvalidInstructionData
	}

	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return nil, err
	}
	return instrCtx, instrCtx.CheckNumOfInstructionAccounts(numAccounts)
}

func instrAcctAddress(txCtx *TransactionCtx, instrCtx *InstructionCtx, instrAcctIdx uint64) (solana.PublicKey, error) {
	idx, err := instrCtx.IndexOfInstructionAccountInTransaction(instrAcctIdx)
	if err != nil {
		return solana.PublicKey{}, err
	}
	return txCtx.KeyOfAccountAtIndex(idx)
}

func execCreateAccount(execCtx *ExecutionCtx, decoder *bin.Decoder, signers []solana.PublicKey) error {
	var instr SystemInstrCreateAccount
	instrCtx, err := decodeSystemInstr(execCtx, decoder, &instr, 2)
	if err != nil {
		return err
	}

	toAddr, err := instrAcctAddress(execCtx.TransactionContext, instrCtx, 1)
	if err != nil {
		return err
	}
	return SystemProgramCreateAccount(execCtx, toAddr, instr.Lamports, instr.Space, instr.Owner, signers)
}

func execTransfer(execCtx *ExecutionCtx, decoder *bin.Decoder, _ []solana.PublicKey) error {
	var instr SystemInstrTransfer
	_, err := decodeSystemInstr(execCtx, decoder, &instr, 2)
	if err != nil {
		return err
	}
	return SystemProgramTransfer(execCtx, 0, 1, instr.Lamports)
}

func execAssign(execCtx *ExecutionCtx, decoder *bin.Decoder, signers []solana.PublicKey) error {
	var instr SystemInstrAssign
	return withFirstAccount(execCtx, decoder, &instr, func(acct *BorrowedAccount) error {
		return SystemProgramAssign(acct, acct.Key(), instr.Owner, signers)
	})
}

func execAllocate(execCtx *ExecutionCtx, decoder *bin.Decoder, signers []solana.PublicKey) error {
	var instr SystemInstrAllocate
	return withFirstAccount(execCtx, decoder, &instr, func(acct *BorrowedAccount) error {
		return SystemProgramAllocate(acct, acct.Key(), instr.Space, signers)
	})
}

// withFirstAccount decodes body, then runs fn with the instruction's first
// account borrowed.
func withFirstAccount(execCtx *ExecutionCtx, decoder *bin.Decoder, body bin.BinaryUnmarshaler, fn func(acct *BorrowedAccount) error) error {
	instrCtx, err := decodeSystemInstr(execCtx, decoder, body, 1)
	if err != nil {
		return err
	}

	acct, err := instrCtx.BorrowInstructionAccount(execCtx.TransactionContext, 0)
	if err != nil {
		return err
	}
	defer acct.Drop()

	return fn(acct)
}

func SystemProgramCreateAccount(execCtx *ExecutionCtx, toAddr solana.PublicKey, lamports uint64, space uint64, owner solana.PublicKey, signers []solana.PublicKey) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	toAcct, err := instrCtx.BorrowInstructionAccount(txCtx, 1)
	if err != nil {
		return err
	}

	if toAcct.Lamports() > 0 {
		toAcct.Drop()
		klog.Errorf("CreateAccount: account %s already in use (non-zero lamports)", toAddr)
		return SystemProgErrAccountAlreadyInUse
	}

	err = SystemProgramAllocateAndAssign(toAcct, toAddr, space, owner, signers)
	toAcct.Drop()
	if err != nil {
		return err
	}

	return SystemProgramTransfer(execCtx, 0, 1, lamports)
}

func SystemProgramAllocateAndAssign(toAcct *BorrowedAccount, toAddr solana.PublicKey, space uint64, owner solana.PublicKey, signers []solana.PublicKey) error {
	err := SystemProgramAllocate(toAcct, toAddr, space, signers)
	if err != nil {
		return err
	}

	return SystemProgramAssign(toAcct, toAddr, owner, signers)
}

func SystemProgramAllocate(acct *BorrowedAccount, address solana.PublicKey, space uint64, signers []solana.PublicKey) error {
	err := verifySigner(address, signers)
	if err != nil {
		klog.Errorf("Allocate: 'to' account %s must sign", address)
		return err
	}

	if len(acct.Data()) != 0 || acct.Owner() != SystemProgramAddr {
		klog.Errorf("Allocate: account %s already in use", address)
		return SystemProgErrAccountAlreadyInUse
	}

	if space > SystemProgMaxPermittedDataLen {
		klog.Errorf("Allocate: requested %d, max allowed %d", space, SystemProgMaxPermittedDataLen)
		return SystemProgErrInvalidAccountDataLength
	}

	return acct.SetDataLength(space)
}

func SystemProgramAssign(acct *BorrowedAccount, address solana.PublicKey, owner solana.PublicKey, signers []solana.PublicKey) error {
	if acct.Owner() == owner {
		return nil
	}

	err := verifySigner(address, signers)
	if err != nil {
		klog.Errorf("Assign: account %s must sign", address)
		return err
	}

	return acct.SetOwner(owner)
}

func SystemProgramTransfer(execCtx *ExecutionCtx, fromAcctIdx uint64, toAcctIdx uint64, lamports uint64) error {
	instrCtx, err := execCtx.TransactionContext.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	isSigner, err := instrCtx.IsInstructionAccountSigner(fromAcctIdx)
	if err != nil {
		return err
	}

	if !isSigner {
		klog.Errorf("Transfer: 'from' account must sign")
		return InstrErrMissingRequiredSignature
	}

	return transferInternal(execCtx, fromAcctIdx, toAcctIdx, lamports)
}

func transferInternal(execCtx *ExecutionCtx, fromAcctIdx uint64, toAcctIdx uint64, lamports uint64) error {
	txCtx := execCtx.TransactionContext
	instrCtx, err := txCtx.CurrentInstructionCtx()
	if err != nil {
		return err
	}

	from, err := instrCtx.BorrowInstructionAccount(txCtx, fromAcctIdx)
	if err != nil {
		return err
	}

	if len(from.Data()) != 0 {
		from.Drop()
		klog.Errorf("Transfer: 'from' must not carry data")
		return InstrErrInvalidArgument
	}

	if lamports > from.Lamports() {
		klog.Errorf("Transfer: insufficient lamports %d, need %d", from.Lamports(), lamports)
		from.Drop()
		return SystemProgErrResultWithNegativeLamports
	}

	err = from.CheckedSubLamports(lamports)
	from.Drop()
	if err != nil {
		return err
	}

	to, err := instrCtx.BorrowInstructionAccount(txCtx, toAcctIdx)
	if err != nil {
		return err
	}
	defer to.Drop()

	return to.CheckedAddLamports(lamports)
}
