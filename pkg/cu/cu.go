// Package cu meters compute units consumed by a transaction.
package cu

import (
	"errors"
	"fmt"

	"github.com/Overclock-Validator/pdautil/pkg/safemath"
)

var ErrComputeExceeded = errors.New("Compute exceeded")

const DefaultComputeUnitLimit = 200_000

// ComputeMeter is a budget that only counts down. Once a charge does not fit,
// the meter is drained and stays exhausted.
type ComputeMeter struct {
	remaining uint64
	limit     uint64
	exceeded  bool
}

func NewComputeMeter(limit uint64) ComputeMeter {
	return ComputeMeter{remaining: limit, limit: limit}
}

func NewComputeMeterDefault() ComputeMeter {
	return NewComputeMeter(DefaultComputeUnitLimit)
}

func (cm *ComputeMeter) Consume(cost uint64) error {
	if cm.exceeded || cm.remaining < cost {
		remaining := cm.remaining
		cm.exceeded = true
		cm.remaining = 0
		return fmt.Errorf("%w: charged %d with %d of %d left", ErrComputeExceeded, cost, remaining, cm.limit)
	}

	cm.remaining = safemath.SaturatingSubU64(cm.remaining, cost)
	return nil
}

func (cm *ComputeMeter) Used() uint64 {
	return cm.limit - cm.remaining
}

func (cm *ComputeMeter) Limit() uint64 {
	return cm.limit
}

func (cm *ComputeMeter) Exceeded() bool {
	return cm.exceeded
}

func (cm *ComputeMeter) Remaining() uint64 {
	return cm.remaining
}
