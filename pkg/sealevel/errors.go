package sealevel

import "errors"

// instruction errors
var (
	InstrErrInvalidArgument             = errors.New("InstrErrInvalidArgument")
	InstrErrInvalidInstructionData      = errors.New("InstrErrInvalidInstructionData")
	InstrErrInvalidAccountData          = errors.New("InstrErrInvalidAccountData")
	InstrErrAccountDataTooSmall         = errors.New("InstrErrAccountDataTooSmall")
	InstrErrInsufficientFunds           = errors.New("InstrErrInsufficientFunds")
	InstrErrMissingRequiredSignature    = errors.New("InstrErrMissingRequiredSignature")
	InstrErrAccountAlreadyInitialized   = errors.New("InstrErrAccountAlreadyInitialized")
	InstrErrUnbalancedInstruction       = errors.New("InstrErrUnbalancedInstruction")
	InstrErrModifiedProgramId           = errors.New("InstrErrModifiedProgramId")
	InstrErrExternalAccountLamportSpend = errors.New("InstrErrExternalAccountLamportSpend")
	InstrErrExternalAccountDataModified = errors.New("InstrErrExternalAccountDataModified")
	InstrErrReadonlyLamportChange       = errors.New("InstrErrReadonlyLamportChange")
	InstrErrReadonlyDataModified        = errors.New("InstrErrReadonlyDataModified")
	InstrErrNotEnoughAccountKeys        = errors.New("InstrErrNotEnoughAccountKeys")
	InstrErrAccountDataSizeChanged      = errors.New("InstrErrAccountDataSizeChanged")
	InstrErrAccountNotExecutable        = errors.New("InstrErrAccountNotExecutable")
	InstrErrAccountBorrowFailed         = errors.New("InstrErrAccountBorrowFailed")
	InstrErrExecutableDataModified      = errors.New("InstrErrExecutableDataModified")
	InstrErrExecutableLamportChange     = errors.New("InstrErrExecutableLamportChange")
	InstrErrUnsupportedProgramId        = errors.New("InstrErrUnsupportedProgramId")
	InstrErrCallDepth                   = errors.New("InstrErrCallDepth")
	InstrErrMissingAccount              = errors.New("InstrErrMissingAccount")
	InstrErrReentrancyNotAllowed        = errors.New("InstrErrReentrancyNotAllowed")
	InstrErrMaxSeedLengthExceeded       = errors.New("InstrErrMaxSeedLengthExceeded")
	InstrErrInvalidSeeds                = errors.New("InstrErrInvalidSeeds")
	InstrErrComputationalBudgetExceeded = errors.New("InstrErrComputationalBudgetExceeded")
	InstrErrPrivilegeEscalation         = errors.New("InstrErrPrivilegeEscalation")
	InstrErrArithmeticOverflow          = errors.New("InstrErrArithmeticOverflow")
	InstrErrUnsupportedSysvar           = errors.New("InstrErrUnsupportedSysvar")
)

// system program errors, surfaced as InstructionError::Custom
var (
	SystemProgErrAccountAlreadyInUse        = errors.New("SystemProgErrAccountAlreadyInUse")
	SystemProgErrResultWithNegativeLamports = errors.New("SystemProgErrResultWithNegativeLamports")
	SystemProgErrInvalidProgramId           = errors.New("SystemProgErrInvalidProgramId")
	SystemProgErrInvalidAccountDataLength   = errors.New("SystemProgErrInvalidAccountDataLength")
)

// instruction errors - Solana numerical error codes (enum index + 1; zero is success)
const (
	InstrErrCodeSuccess                     = 0
	InstrErrCodeGenericError                = 1
	InstrErrCodeInvalidArgument             = 2
	InstrErrCodeInvalidInstructionData      = 3
	InstrErrCodeInvalidAccountData          = 4
	InstrErrCodeAccountDataTooSmall         = 5
	InstrErrCodeInsufficientFunds           = 6
	InstrErrCodeMissingRequiredSignature    = 8
	InstrErrCodeAccountAlreadyInitialized   = 9
	InstrErrCodeUnbalancedInstruction       = 11
	InstrErrCodeModifiedProgramId           = 12
	InstrErrCodeExternalAccountLamportSpend = 13
	InstrErrCodeExternalAccountDataModified = 14
	InstrErrCodeReadonlyLamportChange       = 15
	InstrErrCodeReadonlyDataModified        = 16
	InstrErrCodeNotEnoughAccountKeys        = 20
	InstrErrCodeAccountDataSizeChanged      = 21
	InstrErrCodeAccountNotExecutable        = 22
	InstrErrCodeAccountBorrowFailed         = 23
	InstrErrCodeCustom                      = 26
	InstrErrCodeExecutableDataModified      = 28
	InstrErrCodeExecutableLamportChange     = 29
	InstrErrCodeUnsupportedProgramId        = 31
	InstrErrCodeCallDepth                   = 32
	InstrErrCodeMissingAccount              = 33
	InstrErrCodeReentrancyNotAllowed        = 34
	InstrErrCodeMaxSeedLengthExceeded       = 35
	InstrErrCodeInvalidSeeds                = 36
	InstrErrCodeComputationalBudgetExceeded = 38
	InstrErrCodePrivilegeEscalation         = 39
	InstrErrCodeArithmeticOverflow          = 48
	InstrErrCodeUnsupportedSysvar           = 49
)

// system program custom error codes
const (
	SystemProgErrCodeAccountAlreadyInUse        = 0
	SystemProgErrCodeResultWithNegativeLamports = 1
	SystemProgErrCodeInvalidProgramId           = 2
	SystemProgErrCodeInvalidAccountDataLength   = 3
)

var instrErrCodes = map[error]int{
	InstrErrInvalidArgument:             InstrErrCodeInvalidArgument,
	InstrErrInvalidInstructionData:      InstrErrCodeInvalidInstructionData,
	InstrErrInvalidAccountData:          InstrErrCodeInvalidAccountData,
	InstrErrAccountDataTooSmall:         InstrErrCodeAccountDataTooSmall,
	InstrErrInsufficientFunds:           InstrErrCodeInsufficientFunds,
	InstrErrMissingRequiredSignature:    InstrErrCodeMissingRequiredSignature,
	InstrErrAccountAlreadyInitialized:   InstrErrCodeAccountAlreadyInitialized,
	InstrErrUnbalancedInstruction:       InstrErrCodeUnbalancedInstruction,
	InstrErrModifiedProgramId:           InstrErrCodeModifiedProgramId,
	InstrErrExternalAccountLamportSpend: InstrErrCodeExternalAccountLamportSpend,
	InstrErrExternalAccountDataModified: InstrErrCodeExternalAccountDataModified,
	InstrErrReadonlyLamportChange:       InstrErrCodeReadonlyLamportChange,
	InstrErrReadonlyDataModified:        InstrErrCodeReadonlyDataModified,
	InstrErrNotEnoughAccountKeys:        InstrErrCodeNotEnoughAccountKeys,
	InstrErrAccountDataSizeChanged:      InstrErrCodeAccountDataSizeChanged,
	InstrErrAccountNotExecutable:        InstrErrCodeAccountNotExecutable,
	InstrErrAccountBorrowFailed:         InstrErrCodeAccountBorrowFailed,
	InstrErrExecutableDataModified:      InstrErrCodeExecutableDataModified,
	InstrErrExecutableLamportChange:     InstrErrCodeExecutableLamportChange,
	InstrErrUnsupportedProgramId:        InstrErrCodeUnsupportedProgramId,
	InstrErrCallDepth:                   InstrErrCodeCallDepth,
	InstrErrMissingAccount:              InstrErrCodeMissingAccount,
	InstrErrReentrancyNotAllowed:        InstrErrCodeReentrancyNotAllowed,
	InstrErrMaxSeedLengthExceeded:       InstrErrCodeMaxSeedLengthExceeded,
	InstrErrInvalidSeeds:                InstrErrCodeInvalidSeeds,
	InstrErrComputationalBudgetExceeded: InstrErrCodeComputationalBudgetExceeded,
	InstrErrPrivilegeEscalation:         InstrErrCodePrivilegeEscalation,
	InstrErrArithmeticOverflow:          InstrErrCodeArithmeticOverflow,
	InstrErrUnsupportedSysvar:           InstrErrCodeUnsupportedSysvar,
}

var systemProgErrCodes = map[error]int{
	SystemProgErrAccountAlreadyInUse:        SystemProgErrCodeAccountAlreadyInUse,
	SystemProgErrResultWithNegativeLamports: SystemProgErrCodeResultWithNegativeLamports,
	SystemProgErrInvalidProgramId:           SystemProgErrCodeInvalidProgramId,
	SystemProgErrInvalidAccountDataLength:   SystemProgErrCodeInvalidAccountDataLength,
}

// TranslateErrToInstrErrCode maps an error returned by instruction execution
// to its Solana instruction error code. For InstrErrCodeCustom, the second
// return value carries the program-specific code. Errors with no mapping are
// reported as a generic error.
func TranslateErrToInstrErrCode(err error) (int, int) {
	if err == nil {
		return InstrErrCodeSuccess, 0
	}
	for target, code := range systemProgErrCodes {
		if errors.Is(err, target) {
			return InstrErrCodeCustom, code
		}
	}
	for target, code := range instrErrCodes {
		if errors.Is(err, target) {
			return code, 0
		}
	}
	return InstrErrCodeGenericError, 0
}
