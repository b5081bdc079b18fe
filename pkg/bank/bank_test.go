package bank

import (
	"testing"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/rent"
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBank(t *testing.T) (*Bank, *Metrics) {
	metrics, err := NewMetrics(prometheus.NewRegistry())
	require.NoError(t, err)
	b, err := NewBank(accounts.NewMemAccounts(), sealevel.DefaultRent(), metrics)
	require.NoError(t, err)
	return b, metrics
}

func signedTx(t *testing.T, payer solana.PrivateKey, instrs ...solana.Instruction) *solana.Transaction {
	tx, err := solana.NewTransaction(instrs, solana.Hash{}, solana.TransactionPayer(payer.PublicKey()))
	require.NoError(t, err)

	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer.PublicKey()) {
			return &payer
		}
		return nil
	})
	require.NoError(t, err)
	return tx
}

func lamportsOf(t *testing.T, b *Bank, pubkey solana.PublicKey) uint64 {
	acct, err := b.GetAccount(pubkey)
	require.NoError(t, err)
	if acct == nil {
		return 0
	}
	return acct.Lamports
}

func TestBank_Transfer(t *testing.T) {
	b, metrics := newTestBank(t)
	payer := solana.NewWallet().PrivateKey
	recipient := solana.NewWallet().PublicKey()

	require.NoError(t, b.Airdrop(payer.PublicKey(), 10_000_000))

	tx := signedTx(t, payer, system.NewTransferInstruction(2_000_000, payer.PublicKey(), recipient).Build())
	result, err := b.ProcessTransaction(tx)
	require.NoError(t, err)
	require.NoError(t, result.Err)
	assert.Equal(t, -1, result.FailedInstruction)
	assert.Equal(t, uint64(sealevel.CUSystemProgramDefaultComputeUnits), result.ComputeUnitsUsed)

	assert.Equal(t, uint64(8_000_000), lamportsOf(t, b, payer.PublicKey()))
	assert.Equal(t, uint64(2_000_000), lamportsOf(t, b, recipient))

	recipientAcct, err := b.GetAccount(recipient)
	require.NoError(t, err)
	assert.Equal(t, solana.PublicKey(sealevel.SystemProgramAddr), recipientAcct.Owner)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.txsProcessed))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.txsSucceeded))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.airdrops))
	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.accountsSaved))

	payerAcct, err := b.GetAccount(payer.PublicKey())
	require.NoError(t, err)
	assert.Equal(t, AccountsDeltaHash([]*accounts.Account{payerAcct, recipientAcct}), result.AccountsDeltaHash)
}

func TestBank_FailedInstructionRollsBack(t *testing.T) {
	b, metrics := newTestBank(t)
	payer := solana.NewWallet().PrivateKey
	recipient := solana.NewWallet().PublicKey()

	require.NoError(t, b.Airdrop(payer.PublicKey(), 5_000_000))

	// the first transfer succeeds inside the transaction, the second overdraws
	tx := signedTx(t, payer,
		system.NewTransferInstruction(1_000_000, payer.PublicKey(), recipient).Build(),
		system.NewTransferInstruction(9_000_000, payer.PublicKey(), recipient).Build(),
	)
	result, err := b.ProcessTransaction(tx)
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, sealevel.SystemProgErrResultWithNegativeLamports)
	assert.Equal(t, 1, result.FailedInstruction)
	assert.Nil(t, result.AccountsDeltaHash)

	code, custom := result.ErrorCode()
	assert.Equal(t, sealevel.InstrErrCodeCustom, code)
	assert.Equal(t, sealevel.SystemProgErrCodeResultWithNegativeLamports, custom)

	assert.Equal(t, uint64(5_000_000), lamportsOf(t, b, payer.PublicKey()))
	assert.Equal(t, uint64(0), lamportsOf(t, b, recipient))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.txsFailed))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.accountsSaved))
}

func TestBank_RentStateViolation(t *testing.T) {
	b, _ := newTestBank(t)
	payer := solana.NewWallet().PrivateKey
	recipient := solana.NewWallet().PublicKey()

	require.NoError(t, b.Airdrop(payer.PublicKey(), 5_000_000))

	tx := signedTx(t, payer, system.NewTransferInstruction(1_000, payer.PublicKey(), recipient).Build())
	result, err := b.ProcessTransaction(tx)
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, rent.ErrInsufficientFundsForRent)
	assert.Equal(t, -1, result.FailedInstruction)

	assert.Equal(t, uint64(5_000_000), lamportsOf(t, b, payer.PublicKey()))
	assert.Equal(t, uint64(0), lamportsOf(t, b, recipient))
}

func TestBank_RejectsBadSignature(t *testing.T) {
	b, metrics := newTestBank(t)
	payer := solana.NewWallet().PrivateKey
	require.NoError(t, b.Airdrop(payer.PublicKey(), 5_000_000))

	tx := signedTx(t, payer, system.NewTransferInstruction(1, payer.PublicKey(), solana.NewWallet().PublicKey()).Build())
	tx.Signatures[0][0] ^= 0xff

	_, err := b.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ErrInvalidSignature)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.txsRejected))
	assert.Equal(t, 0.0, testutil.ToFloat64(metrics.txsProcessed))

	tx.Signatures = nil
	_, err = b.ProcessTransaction(tx)
	assert.ErrorIs(t, err, ErrNoSignatures)
}

func TestBank_UnknownProgram(t *testing.T) {
	b, _ := newTestBank(t)
	payer := solana.NewWallet().PrivateKey
	require.NoError(t, b.Airdrop(payer.PublicKey(), 5_000_000))

	instr := solana.NewInstruction(solana.NewWallet().PublicKey(), solana.AccountMetaSlice{
		solana.Meta(payer.PublicKey()).WRITE().SIGNER(),
	}, nil)
	result, err := b.ProcessTransaction(signedTx(t, payer, instr))
	require.NoError(t, err)
	assert.ErrorIs(t, result.Err, sealevel.InstrErrUnsupportedProgramId)
	assert.Equal(t, 0, result.FailedInstruction)
}

func TestBank_Airdrop(t *testing.T) {
	b, _ := newTestBank(t)
	pubkey := solana.NewWallet().PublicKey()

	acct, err := b.GetAccount(pubkey)
	require.NoError(t, err)
	assert.Nil(t, acct)

	require.NoError(t, b.Airdrop(pubkey, 10))
	require.NoError(t, b.Airdrop(pubkey, 5))
	assert.Equal(t, uint64(15), lamportsOf(t, b, pubkey))

	owned := solana.NewWallet().PublicKey()
	require.NoError(t, b.store.SetAccount((*[32]byte)(&owned), &accounts.Account{Key: owned, Owner: solana.NewWallet().PublicKey()}))
	assert.ErrorIs(t, b.Airdrop(owned, 1), ErrNotSystemOwned)
}

func TestBank_RentSysvar(t *testing.T) {
	b, _ := newTestBank(t)
	got, err := sealevel.ReadRentSysvar(b.sysvars)
	require.NoError(t, err)
	assert.Equal(t, b.Rent(), *got)
}
