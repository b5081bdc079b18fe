package sealevel

import (
	"errors"

	"github.com/Overclock-Validator/pdautil/pkg/base58"
	"github.com/gagliardetto/solana-go"
)

const NativeLoaderAddrStr = "NativeLoader1111111111111111111111111111111"

var NativeLoaderAddr = base58.MustDecodeFromString(NativeLoaderAddrStr)

var SystemProgramAddrStr = "11111111111111111111111111111111"

var SystemProgramAddr = base58.MustDecodeFromString(SystemProgramAddrStr)

const SysvarOwnerAddrStr = "Sysvar1111111111111111111111111111111111111"

var SysvarOwnerAddr = base58.MustDecodeFromString(SysvarOwnerAddrStr)

var ErrProgramAlreadyRegistered = errors.New("native program already registered")

// NativeProgramFn executes the current instruction of execCtx.
type NativeProgramFn func(execCtx *ExecutionCtx) error

var nativePrograms = make(map[solana.PublicKey]NativeProgramFn)

func init() {
	nativePrograms[SystemProgramAddr] = SystemProgramExecute
}

// RegisterNativeProgram installs fn as the builtin for programId. Not
// thread-safe; call during setup, before any transaction executes.
func RegisterNativeProgram(programId solana.PublicKey, fn NativeProgramFn) error {
	if _, exists := nativePrograms[programId]; exists {
		return ErrProgramAlreadyRegistered
	}
	nativePrograms[programId] = fn
	return nil
}

func IsNativeProgram(programId solana.PublicKey) bool {
	_, ok := nativePrograms[programId]
	return ok
}

func resolveNativeProgramById(programId solana.PublicKey) (NativeProgramFn, error) {
	fn, ok := nativePrograms[programId]
	if !ok {
		return nil, InstrErrUnsupportedProgramId
	}
	return fn, nil
}

func verifySigner(authorized solana.PublicKey, signers []solana.PublicKey) error {
	for _, signer := range signers {
		if signer == authorized {
			return nil
		}
	}
	return InstrErrMissingRequiredSignature
}
