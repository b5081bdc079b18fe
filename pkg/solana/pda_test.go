package solana

import (
	"bytes"
	"testing"

	solanago "github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testProgramId = solanago.MustPublicKeyFromBase58("BPFLoaderUpgradeab1e11111111111111111111111")

func TestFindProgramAddress_MatchesSolanaGo(t *testing.T) {
	seeds := [][]byte{[]byte("vault"), testProgramId[:]}

	addr, bump, err := FindProgramAddress(seeds, testProgramId)
	require.NoError(t, err)

	expectedAddr, expectedBump, err := solanago.FindProgramAddress(seeds, testProgramId)
	require.NoError(t, err)

	assert.Equal(t, expectedAddr, addr)
	assert.Equal(t, expectedBump, bump)
	assert.False(t, IsOnCurve(addr[:]))
}

func TestCreateProgramAddress_Deterministic(t *testing.T) {
	seeds := [][]byte{[]byte("test")}
	addr, bump, err := FindProgramAddress(seeds, testProgramId)
	require.NoError(t, err)

	withBump := [][]byte{[]byte("test"), {bump}}
	for i := 0; i < 3; i++ {
		again, err := CreateProgramAddress(withBump, testProgramId)
		require.NoError(t, err)
		assert.Equal(t, addr, again)
	}
}

func TestCreateProgramAddress_OrderSensitive(t *testing.T) {
	a, err := CreateProgramAddressBytes([][]byte{[]byte("ab"), []byte("cd")}, testProgramId[:])
	if err != nil {
		t.Skip("first ordering landed on curve")
	}
	b, err := CreateProgramAddressBytes([][]byte{[]byte("cd"), []byte("ab")}, testProgramId[:])
	if err != nil {
		t.Skip("second ordering landed on curve")
	}
	assert.False(t, bytes.Equal(a, b))
}

func TestCreateProgramAddressBytes_Limits(t *testing.T) {
	tooMany := make([][]byte, MaxSeeds+1)
	_, err := CreateProgramAddressBytes(tooMany, testProgramId[:])
	assert.ErrorIs(t, err, ErrSeedLength)

	_, err = CreateProgramAddressBytes([][]byte{make([]byte, MaxSeedLen+1)}, testProgramId[:])
	assert.ErrorIs(t, err, ErrSeedTooLong)

	_, err = CreateProgramAddressBytes(nil, testProgramId[:31])
	assert.ErrorIs(t, err, ErrAddressLength)

	_, _, err = FindProgramAddress(make([][]byte, MaxSeeds), testProgramId)
	assert.ErrorIs(t, err, ErrSeedLength)
}

func TestIsOnCurve(t *testing.T) {
	wallet := solanago.NewWallet()
	pk := wallet.PublicKey()
	assert.True(t, IsOnCurve(pk[:]))
}
