package sealevel

const (
	CUCreateProgramAddressUnits        = 1500
	CUInvokeUnits                      = 1000
	CUSystemProgramDefaultComputeUnits = 150
	CUMaxCpiInstructionSize            = 1280
)
