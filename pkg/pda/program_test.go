package pda_test

import (
	"strings"
	"testing"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/bank"
	"github.com/Overclock-Validator/pdautil/pkg/pda"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var vaultProgramId = func() solana.PublicKey {
	programId := solana.NewWallet().PublicKey()
	err := sealevel.RegisterNativeProgram(programId, pda.VaultProgram(programId))
	if err != nil {
		panic(err)
	}
	return programId
}()

type vaultEnv struct {
	bank  *bank.Bank
	payer solana.PrivateKey
	pda   solana.PublicKey
	bump  uint8
}

func newVaultEnv(t *testing.T, payerLamports uint64) *vaultEnv {
	b, err := bank.NewBank(accounts.NewMemAccounts(), sealevel.DefaultRent(), nil)
	require.NoError(t, err)

	payer := solana.NewWallet().PrivateKey
	require.NoError(t, b.Airdrop(payer.PublicKey(), payerLamports))

	pdaKey, bump, err := pda.FindVaultAddress(vaultProgramId, payer.PublicKey())
	require.NoError(t, err)

	return &vaultEnv{bank: b, payer: payer, pda: pdaKey, bump: bump}
}

func (env *vaultEnv) send(t *testing.T, instr solana.Instruction) *bank.TxResult {
	tx, err := solana.NewTransaction([]solana.Instruction{instr}, solana.Hash{}, solana.TransactionPayer(env.payer.PublicKey()))
	require.NoError(t, err)
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(env.payer.PublicKey()) {
			return &env.payer
		}
		return nil
	})
	require.NoError(t, err)

	result, err := env.bank.ProcessTransaction(tx)
	require.NoError(t, err)
	return result
}

func (env *vaultEnv) create(t *testing.T, ix *pda.VaultInstruction) *bank.TxResult {
	instr, err := pda.NewVaultInstruction(vaultProgramId, env.payer.PublicKey(), env.pda, ix)
	require.NoError(t, err)
	return env.send(t, instr)
}

func (env *vaultEnv) lamports(t *testing.T, pubkey solana.PublicKey) uint64 {
	acct, err := env.bank.GetAccount(pubkey)
	require.NoError(t, err)
	if acct == nil {
		return 0
	}
	return acct.Lamports
}

func TestVaultProgram_CreatesAccount(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    64,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 3,
	})
	require.NoError(t, result.Err)

	rent := env.bank.Rent()
	minBalance := rent.MinimumBalance(64)
	assert.Equal(t, uint64(1_336_320), minBalance)

	acct, err := env.bank.GetAccount(env.pda)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, vaultProgramId, acct.Owner)
	assert.Equal(t, make([]byte, 64), acct.Data)
	assert.Equal(t, minBalance, acct.Lamports)
	assert.False(t, acct.Executable)

	assert.Equal(t, 10_000_000_000-minBalance, env.lamports(t, env.payer.PublicKey()))

	expectedCU := uint64(pda.VaultProgramDefaultComputeUnits + sealevel.CUCreateProgramAddressUnits +
		sealevel.CUInvokeUnits + sealevel.CUSystemProgramDefaultComputeUnits)
	assert.Equal(t, expectedCU, result.ComputeUnitsUsed)

	require.NotEmpty(t, result.Logs)
	assert.True(t, strings.HasPrefix(result.Logs[len(result.Logs)-1], "Program log: created"))

	// a second attempt finds the account funded
	result = env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    64,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 3,
	})
	assert.ErrorIs(t, result.Err, sealevel.InstrErrAccountAlreadyInitialized)
	assert.Equal(t, minBalance, env.lamports(t, env.pda))
}

func TestVaultProgram_WrongBump(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump - 1,
		Space:    64,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 3,
	})
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidSeeds)

	code, _ := result.ErrorCode()
	assert.Equal(t, sealevel.InstrErrCodeInvalidSeeds, code)

	assert.Equal(t, uint64(10_000_000_000), env.lamports(t, env.payer.PublicKey()))
	acct, err := env.bank.GetAccount(env.pda)
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestVaultProgram_ReorderedSeeds(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)
	seeds := pda.VaultSeeds(env.payer.PublicKey())

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    64,
		Seeds:    [][]byte{seeds[1], seeds[0]},
		MaxSeeds: 3,
	})
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidSeeds)
}

func TestVaultProgram_PreFundedTarget(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)
	require.NoError(t, env.bank.Airdrop(env.pda, 1_000_000))

	for _, seeds := range [][][]byte{pda.VaultSeeds(env.payer.PublicKey()), {[]byte("anything")}} {
		result := env.create(t, &pda.VaultInstruction{Bump: env.bump, Space: 64, Seeds: seeds, MaxSeeds: 3})
		assert.ErrorIs(t, result.Err, sealevel.InstrErrAccountAlreadyInitialized)
	}
	assert.Equal(t, uint64(1_000_000), env.lamports(t, env.pda))
}

func TestVaultProgram_CapacityExceeded(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    64,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 2,
	})
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidArgument)
}

func TestVaultProgram_PayerMustSign(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	other := solana.NewWallet().PublicKey()
	require.NoError(t, env.bank.Airdrop(other, 10_000_000_000))
	otherPda, bump, err := pda.FindVaultAddress(vaultProgramId, other)
	require.NoError(t, err)

	ix := pda.VaultInstruction{Bump: bump, Space: 0, Seeds: pda.VaultSeeds(other), MaxSeeds: 3}
	data, err := ix.Marshal()
	require.NoError(t, err)

	instr := solana.NewInstruction(vaultProgramId, solana.AccountMetaSlice{
		solana.Meta(other).WRITE(),
		solana.Meta(otherPda).WRITE(),
		solana.Meta(sealevel.SystemProgramAddr),
	}, data)

	result := env.send(t, instr)
	assert.ErrorIs(t, result.Err, sealevel.InstrErrMissingRequiredSignature)
	assert.Equal(t, uint64(10_000_000_000), env.lamports(t, other))
}

func TestVaultProgram_InsufficientFunds(t *testing.T) {
	env := newVaultEnv(t, 1_000_000)

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    64,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 3,
	})
	assert.ErrorIs(t, result.Err, sealevel.SystemProgErrResultWithNegativeLamports)
	assert.Equal(t, uint64(1_000_000), env.lamports(t, env.payer.PublicKey()))
}

func TestVaultProgram_OversizedSpace(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	result := env.create(t, &pda.VaultInstruction{
		Bump:     env.bump,
		Space:    sealevel.SystemProgMaxPermittedDataLen + 1,
		Seeds:    pda.VaultSeeds(env.payer.PublicKey()),
		MaxSeeds: 3,
	})
	assert.ErrorIs(t, result.Err, sealevel.SystemProgErrInvalidAccountDataLength)
}

func TestVaultProgram_InvalidInstructionData(t *testing.T) {
	env := newVaultEnv(t, 10_000_000_000)

	instr := solana.NewInstruction(vaultProgramId, solana.AccountMetaSlice{
		solana.Meta(env.payer.PublicKey()).WRITE().SIGNER(),
		solana.Meta(env.pda).WRITE(),
		solana.Meta(sealevel.SystemProgramAddr),
	}, []byte{1})

	result := env.send(t, instr)
	assert.ErrorIs(t, result.Err, sealevel.InstrErrInvalidInstructionData)
}

func TestVaultInstruction_Encoding(t *testing.T) {
	ix := pda.VaultInstruction{Bump: 254, Space: 64, Seeds: [][]byte{[]byte("vault"), {1, 2}}, MaxSeeds: 3}
	data, err := ix.Marshal()
	require.NoError(t, err)

	expected := []byte{
		254,
		64, 0, 0, 0, 0, 0, 0, 0,
		2, 0, 0, 0,
		5, 0, 0, 0, 'v', 'a', 'u', 'l', 't',
		2, 0, 0, 0, 1, 2,
		3,
	}
	assert.Equal(t, expected, data)

	decoded, err := pda.UnmarshalVaultInstruction(data)
	require.NoError(t, err)
	assert.Equal(t, ix, *decoded)
}
