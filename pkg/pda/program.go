package pda

import (
	"bytes"
	"fmt"

	"github.com/Overclock-Validator/pdautil/pkg/sealevel"
	"github.com/Overclock-Validator/pdautil/pkg/solana"
	bin "github.com/gagliardetto/binary"
	solanago "github.com/gagliardetto/solana-go"
)

const VaultProgramDefaultComputeUnits = 150

// VaultInstruction is the borsh-encoded instruction data of the vault program.
type VaultInstruction struct {
	Bump     uint8
	Space    uint64
	Seeds    [][]byte
	MaxSeeds uint8
}

func (ix *VaultInstruction) Marshal() ([]byte, error) {
	buf := new(bytes.Buffer)
	err := bin.NewBorshEncoder(buf).Encode(*ix)
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func UnmarshalVaultInstruction(data []byte) (*VaultInstruction, error) {
	var ix VaultInstruction
	err := bin.NewBorshDecoder(data).Decode(&ix)
	if err != nil {
		return nil, err
	}
	return &ix, nil
}

// NewVaultInstruction builds the instruction creating pda for payer.
func NewVaultInstruction(programId, payer, pda solanago.PublicKey, ix *VaultInstruction) (*solanago.GenericInstruction, error) {
	data, err := ix.Marshal()
	if err != nil {
		return nil, err
	}

	accts := solanago.AccountMetaSlice{
		solanago.Meta(payer).WRITE().SIGNER(),
		solanago.Meta(pda).WRITE(),
		solanago.Meta(sealevel.SystemProgramAddr),
	}
	return solanago.NewInstruction(programId, accts, data), nil
}

// VaultProgram returns a native program, running as programId, that creates
// a program-owned account at the address given by the instruction's seeds and
// bump. Accounts: [payer (signer, writable), pda (writable), system program].
func VaultProgram(programId solanago.PublicKey) sealevel.NativeProgramFn {
	return func(execCtx *sealevel.ExecutionCtx) error {
		err := execCtx.ComputeMeter.Consume(VaultProgramDefaultComputeUnits + sealevel.CUCreateProgramAddressUnits)
		if err != nil {
			return sealevel.InstrErrComputationalBudgetExceeded
		}

		txCtx := execCtx.TransactionContext
		instrCtx, err := txCtx.CurrentInstructionCtx()
		if err != nil {
			return err
		}

		ix, err := UnmarshalVaultInstruction(instrCtx.Data)
		if err != nil {
			return sealevel.InstrErrInvalidInstructionData
		}

		err = instrCtx.CheckNumOfInstructionAccounts(3)
		if err != nil {
			return err
		}

		payer, err := accountInfoAt(txCtx, instrCtx, 0)
		if err != nil {
			return err
		}
		pda, err := accountInfoAt(txCtx, instrCtx, 1)
		if err != nil {
			return err
		}

		logf(execCtx, "Program log: creating %s with %d seeds, bump %d, space %d", pda.Key(), len(ix.Seeds), ix.Bump, ix.Space)

		err = CreatePdaAccount(execCtx, int(ix.MaxSeeds), payer, pda, programId, ix.Space, ix.Seeds, ix.Bump)
		if err != nil {
			logf(execCtx, "Program log: create failed: %s", err)
			return err
		}

		logf(execCtx, "Program log: created %s", pda.Key())
		return nil
	}
}

// FindVaultAddress derives the canonical vault address for payer.
func FindVaultAddress(programId, payer solanago.PublicKey) (solanago.PublicKey, uint8, error) {
	return solana.FindProgramAddress(VaultSeeds(payer), programId)
}

// VaultSeeds are the seeds of a payer's vault, without the bump.
func VaultSeeds(payer solanago.PublicKey) [][]byte {
	return [][]byte{[]byte("vault"), payer.Bytes()}
}

func accountInfoAt(txCtx *sealevel.TransactionCtx, instrCtx *sealevel.InstructionCtx, instrAcctIdx uint64) (AccountInfo, error) {
	acct, err := instrCtx.BorrowInstructionAccount(txCtx, instrAcctIdx)
	if err != nil {
		return AccountInfo{}, err
	}
	defer acct.Drop()

	return NewAccountInfo(acct.Key(), acct.Lamports(), acct.IsSigner()), nil
}

func logf(execCtx *sealevel.ExecutionCtx, format string, args ...interface{}) {
	if execCtx.Log != nil {
		execCtx.Log.Log(fmt.Sprintf(format, args...))
	}
}
