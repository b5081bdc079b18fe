package pda

import (
	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
)

// SeedList is a fixed-capacity seed buffer. Only the first Len() slots are
// ever initialized or exposed. The bump byte is stored inline so appending it
// needs no allocation. A SeedList must not be copied once seeds are pushed.
type SeedList struct {
	slots    [solana.MaxSeeds][]byte
	len      int
	capacity int
	bump     [1]byte
}

// NewSeedList returns an empty list holding at most capacity seeds, bump
// included. capacity must be in [1, solana.MaxSeeds].
func NewSeedList(capacity int) (*SeedList, error) {
	if capacity < 1 || capacity > solana.MaxSeeds {
		return nil, sealevel.InstrErrInvalidArgument
	}
	return &SeedList{capacity: capacity}, nil
}

func (l *SeedList) Len() int {
	return l.len
}

func (l *SeedList) Cap() int {
	return l.capacity
}

func (l *SeedList) Push(seed []byte) error {
	if l.len >= l.capacity {
		return sealevel.InstrErrInvalidArgument
	}
	l.slots[l.len] = seed
	l.len++
	return nil
}

func (l *SeedList) PushBump(bump uint8) error {
	if l.len >= l.capacity {
		return sealevel.InstrErrInvalidArgument
	}
	l.bump[0] = bump
	l.slots[l.len] = l.bump[:]
	l.len++
	return nil
}

// Seeds returns the initialized prefix of the list.
func (l *SeedList) Seeds() [][]byte {
	return l.slots[:l.len:l.len]
}
