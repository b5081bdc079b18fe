package bank

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/minio/sha256-simd"
	"github.com/zeebo/blake3"
)

const merkleFanout = 16

// AccountHash is the blake3 hash of an account's lamports, rent epoch, data,
// executable flag, owner and key.
func AccountHash(acct *accounts.Account) [32]byte {
	hasher := blake3.New()

	var u64 [8]byte
	binary.LittleEndian.PutUint64(u64[:], acct.Lamports)
	_, _ = hasher.Write(u64[:])
	binary.LittleEndian.PutUint64(u64[:], acct.RentEpoch)
	_, _ = hasher.Write(u64[:])

	_, _ = hasher.Write(acct.Data)

	if acct.Executable {
		_, _ = hasher.Write([]byte{1})
	} else {
		_, _ = hasher.Write([]byte{0})
	}

	_, _ = hasher.Write(acct.Owner[:])
	_, _ = hasher.Write(acct.Key[:])

	var out [32]byte
	copy(out[:], hasher.Sum(nil))
	return out
}

// AccountsDeltaHash is the fanout-16 sha256 merkle root over the account
// hashes of accts, ordered by pubkey. Nil for no accounts.
func AccountsDeltaHash(accts []*accounts.Account) []byte {
	sorted := make([]*accounts.Account, len(accts))
	copy(sorted, accts)
	sort.SliceStable(sorted, func(i, j int) bool {
		return bytes.Compare(sorted[i].Key[:], sorted[j].Key[:]) < 0
	})

	hashes := make([][]byte, len(sorted))
	for idx, acct := range sorted {
		h := AccountHash(acct)
		hashes[idx] = h[:]
	}
	return merkleRoot(hashes)
}

func merkleRoot(hashes [][]byte) []byte {
	if len(hashes) == 0 {
		return nil
	}

	chunks := (len(hashes) + merkleFanout - 1) / merkleFanout
	results := make([][]byte, chunks)
	for i := 0; i < chunks; i++ {
		end := min((i+1)*merkleFanout, len(hashes))

		hasher := sha256.New()
		for _, h := range hashes[i*merkleFanout : end] {
			hasher.Write(h)
		}
		results[i] = hasher.Sum(nil)
	}

	if len(results) == 1 {
		return results[0]
	}
	return merkleRoot(results)
}
