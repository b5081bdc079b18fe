package sealevel

import (
	"testing"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/cu"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSystemProgramAcct() accounts.Account {
	return accounts.Account{Key: SystemProgramAddr, Lamports: 1, Owner: NativeLoaderAddr, Executable: true}
}

func newWalletAcct(t *testing.T, lamports uint64) accounts.Account {
	privKey, err := solana.NewRandomPrivateKey()
	require.NoError(t, err)
	return accounts.Account{Key: privKey.PublicKey(), Lamports: lamports, Owner: SystemProgramAddr}
}

func newTestExecCtx(t *testing.T, accts []accounts.Account) *ExecutionCtx {
	txAccts := NewTransactionAccounts(accts)
	txCtx := NewTransactionCtx(*txAccts, DefaultInstructionStackCapacity, DefaultInstructionTraceCapacity)

	sysvars := accounts.NewMemAccounts()
	rent := DefaultRent()
	require.NoError(t, WriteRentSysvar(sysvars, &rent))

	return &ExecutionCtx{
		Log:                &LogRecorder{},
		Accounts:           sysvars,
		TransactionContext: txCtx,
		ComputeMeter:       cu.NewComputeMeterDefault(),
	}
}

// processSystemInstruction runs instr at the top level with the system
// program at transaction index 0.
func processSystemInstruction(execCtx *ExecutionCtx, instr *Instruction) error {
	instrAccts := InstructionAcctsFromAccountMetas(instr.Accounts, execCtx.TransactionContext.Accounts)
	return execCtx.ProcessInstruction(instr.Data, instrAccts, []uint64{0})
}

func TestSystemProgram_CreateAccount_Success(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	funder := newWalletAcct(t, 10_000)
	newAcct := newWalletAcct(t, 0)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), funder, newAcct})

	instr := NewCreateAccountInstruction(funder.Key, newAcct.Key, 1234, 64, owner)
	err := processSystemInstruction(execCtx, instr)
	require.NoError(t, err)

	newAcctPost, err := execCtx.TransactionContext.Accounts.GetAccount(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(1234), newAcctPost.Lamports)
	assert.Equal(t, make([]byte, 64), newAcctPost.Data)
	assert.Equal(t, owner, newAcctPost.Owner)

	funderPost, err := execCtx.TransactionContext.Accounts.GetAccount(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(10_000-1234), funderPost.Lamports)

	assert.True(t, execCtx.TransactionContext.Accounts.Touched[1])
	assert.True(t, execCtx.TransactionContext.Accounts.Touched[2])
	assert.Equal(t, uint64(CUSystemProgramDefaultComputeUnits), execCtx.ComputeMeter.Used())
}

func TestSystemProgram_CreateAccount_AlreadyInUse(t *testing.T) {
	funder := newWalletAcct(t, 10_000)
	newAcct := newWalletAcct(t, 1)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), funder, newAcct})

	instr := NewCreateAccountInstruction(funder.Key, newAcct.Key, 1234, 0, SystemProgramAddr)
	err := processSystemInstruction(execCtx, instr)
	require.ErrorIs(t, err, SystemProgErrAccountAlreadyInUse)

	code, custom := TranslateErrToInstrErrCode(err)
	assert.Equal(t, InstrErrCodeCustom, code)
	assert.Equal(t, SystemProgErrCodeAccountAlreadyInUse, custom)
}

func TestSystemProgram_CreateAccount_InsufficientFunds(t *testing.T) {
	funder := newWalletAcct(t, 100)
	newAcct := newWalletAcct(t, 0)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), funder, newAcct})

	instr := NewCreateAccountInstruction(funder.Key, newAcct.Key, 101, 0, SystemProgramAddr)
	err := processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, SystemProgErrResultWithNegativeLamports)
}

func TestSystemProgram_CreateAccount_TooLarge(t *testing.T) {
	funder := newWalletAcct(t, 10_000)
	newAcct := newWalletAcct(t, 0)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), funder, newAcct})

	instr := NewCreateAccountInstruction(funder.Key, newAcct.Key, 1, SystemProgMaxPermittedDataLen+1, SystemProgramAddr)
	err := processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, SystemProgErrInvalidAccountDataLength)
}

func TestSystemProgram_CreateAccount_ToMustSign(t *testing.T) {
	funder := newWalletAcct(t, 10_000)
	newAcct := newWalletAcct(t, 0)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), funder, newAcct})

	instr := NewCreateAccountInstruction(funder.Key, newAcct.Key, 1, 0, SystemProgramAddr)
	instr.Accounts[1].IsSigner = false
	err := processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)

	newAcctPost, err := execCtx.TransactionContext.Accounts.GetAccount(2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), newAcctPost.Lamports)
}

func TestSystemProgram_Transfer(t *testing.T) {
	from := newWalletAcct(t, 500)
	to := newWalletAcct(t, 7)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), from, to})

	err := processSystemInstruction(execCtx, NewTransferInstruction(from.Key, to.Key, 200))
	require.NoError(t, err)

	fromPost, _ := execCtx.TransactionContext.Accounts.GetAccount(1)
	toPost, _ := execCtx.TransactionContext.Accounts.GetAccount(2)
	assert.Equal(t, uint64(300), fromPost.Lamports)
	assert.Equal(t, uint64(207), toPost.Lamports)

	instr := NewTransferInstruction(from.Key, to.Key, 1)
	instr.Accounts[0].IsSigner = false
	err = processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, InstrErrMissingRequiredSignature)
}

func TestSystemProgram_AllocateAndAssign(t *testing.T) {
	owner := solana.NewWallet().PublicKey()
	acct := newWalletAcct(t, 0)

	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), acct})

	require.NoError(t, processSystemInstruction(execCtx, NewAllocateInstruction(acct.Key, 10)))
	require.NoError(t, processSystemInstruction(execCtx, NewAssignInstruction(acct.Key, owner)))

	post, _ := execCtx.TransactionContext.Accounts.GetAccount(1)
	assert.Len(t, post.Data, 10)
	assert.Equal(t, owner, post.Owner)

	// no longer system owned
	err := processSystemInstruction(execCtx, NewAllocateInstruction(acct.Key, 20))
	assert.ErrorIs(t, err, SystemProgErrAccountAlreadyInUse)
}

func TestSystemProgram_InvalidInstructionData(t *testing.T) {
	acct := newWalletAcct(t, 0)
	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), acct})

	instr := &Instruction{
		Accounts:  []AccountMeta{{Pubkey: acct.Key, IsSigner: true, IsWritable: true}},
		Data:      []byte{0x01, 0x00},
		ProgramId: SystemProgramAddr,
	}
	err := processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
}

func TestSystemProgram_InstructionEncodingMatchesSolanaGo(t *testing.T) {
	funder := solana.NewWallet().PublicKey()
	newAcct := solana.NewWallet().PublicKey()
	owner := solana.NewWallet().PublicKey()

	ours := NewCreateAccountInstruction(funder, newAcct, 890_880, 64, owner)
	theirs, err := system.NewCreateAccountInstruction(890_880, 64, owner, funder, newAcct).Build().Data()
	require.NoError(t, err)
	assert.Equal(t, theirs, ours.Data)

	ours = NewTransferInstruction(funder, newAcct, 42)
	theirs, err = system.NewTransferInstruction(42, funder, newAcct).Build().Data()
	require.NoError(t, err)
	assert.Equal(t, theirs, ours.Data)

	ours = NewAllocateInstruction(newAcct, 64)
	theirs, err = system.NewAllocateInstruction(64, newAcct).Build().Data()
	require.NoError(t, err)
	assert.Equal(t, theirs, ours.Data)

	ours = NewAssignInstruction(newAcct, owner)
	theirs, err = system.NewAssignInstruction(owner, newAcct).Build().Data()
	require.NoError(t, err)
	assert.Equal(t, theirs, ours.Data)
}

func TestSystemProgram_UnsupportedInstruction(t *testing.T) {
	acct := newWalletAcct(t, 0)
	execCtx := newTestExecCtx(t, []accounts.Account{newSystemProgramAcct(), acct})

	instr := &Instruction{
		Accounts:  []AccountMeta{{Pubkey: acct.Key, IsSigner: true, IsWritable: true}},
		Data:      []byte{byte(SystemProgramInstrTypeCreateAccountWithSeed), 0, 0, 0},
		ProgramId: SystemProgramAddr,
	}
	err := processSystemInstruction(execCtx, instr)
	assert.ErrorIs(t, err, InstrErrInvalidInstructionData)
}

