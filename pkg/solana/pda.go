package solana

import (
	"errors"
	"math"

	"filippo.io/edwards25519"
	solanago "github.com/gagliardetto/solana-go"
	"github.com/minio/sha256-simd"
)

const MaxSeeds = 16
const MaxSeedLen = 32
const PublicKeyLength = 32
const PdaMarker = "ProgramDerivedAddress"

var (
	ErrSeedLength          = errors.New("Max seeds (16) exceeded")
	ErrSeedTooLong         = errors.New("Max seed length (32) exceeded")
	ErrAddressLength       = errors.New("Wrong key length; addresses are 32 bytes long")
	ErrOnCurveInvalidSeeds = errors.New("Invalid seeds - generated address must be off-curve")
	ErrNoViableBump        = errors.New("Unable to find a viable program address bump seed")
)

// CreateProgramAddressBytes hashes seeds || programID || PdaMarker and
// rejects results that land on the ed25519 curve. Seed order is significant;
// callers passing a bump must pass it as the final seed.
func CreateProgramAddressBytes(seeds [][]byte, programID []byte) ([]byte, error) {
	if len(seeds) > MaxSeeds {
		return nil, ErrSeedLength
	}

	if len(programID) != PublicKeyLength {
		return nil, ErrAddressLength
	}

	hasher := sha256.New()
	for _, seed := range seeds {
		if len(seed) > MaxSeedLen {
			return nil, ErrSeedTooLong
		}
		hasher.Write(seed)
	}

	hasher.Write(programID)
	hasher.Write([]byte(PdaMarker))
	hash := hasher.Sum(nil)

	if IsOnCurve(hash) {
		return nil, ErrOnCurveInvalidSeeds
	}

	return hash, nil
}

func CreateProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, error) {
	b, err := CreateProgramAddressBytes(seeds, programID[:])
	if err != nil {
		return solanago.PublicKey{}, err
	}
	return solanago.PublicKeyFromBytes(b), nil
}

// FindProgramAddress searches for the canonical bump: the highest bump in
// [1, 255] whose address is off-curve.
func FindProgramAddress(seeds [][]byte, programID solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	if len(seeds) >= MaxSeeds {
		return solanago.PublicKey{}, 0, ErrSeedLength
	}

	seedsWithBump := make([][]byte, len(seeds)+1)
	copy(seedsWithBump, seeds)
	bumpSeed := []byte{0}
	seedsWithBump[len(seeds)] = bumpSeed

	for bump := uint8(math.MaxUint8); bump > 0; bump-- {
		bumpSeed[0] = bump
		addr, err := CreateProgramAddress(seedsWithBump, programID)
		if err == nil {
			return addr, bump, nil
		}
		if err != ErrOnCurveInvalidSeeds {
			return solanago.PublicKey{}, 0, err
		}
	}

	return solanago.PublicKey{}, 0, ErrNoViableBump
}

// IsOnCurve checks if 'b' is on the ed25519 curve
func IsOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	onCurve := err == nil
	return onCurve
}
