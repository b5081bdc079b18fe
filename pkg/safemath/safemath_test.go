package safemath

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCheckedArithmetic(t *testing.T) {
	sum, err := CheckedAddU64(1, 2)
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), sum)

	_, err = CheckedAddU64(math.MaxUint64, 1)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedSubU64(1, 2)
	assert.ErrorIs(t, err, ErrOverflow)

	_, err = CheckedMulU64(math.MaxUint64, 2)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestSaturatingArithmetic(t *testing.T) {
	assert.Equal(t, uint64(0), SaturatingSubU64(1, 2))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingAddU64(math.MaxUint64, 5))
	assert.Equal(t, uint64(math.MaxUint64), SaturatingMulU64(math.MaxUint64, 2))
	assert.Equal(t, uint64(12), SaturatingMulU64(3, 4))
}
