package sealevel

import (
	"bytes"
	"fmt"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/base58"
	bin "github.com/gagliardetto/binary"
)

const SysvarRentAddrStr = "SysvarRent111111111111111111111111111111111"

var SysvarRentAddr = base58.MustDecodeFromString(SysvarRentAddrStr)

const SysvarRentStructLen = 17

// AccountStorageOverhead is the per-account metadata size charged for rent.
const AccountStorageOverhead = 128

const (
	DefaultLamportsPerByteYear = 1_000_000_000 / 100 * 365 / (1024 * 1024)
	DefaultExemptionThreshold  = 2.0
	DefaultBurnPercent         = 50
)

type SysvarRent struct {
	LamportsPerUint8Year uint64
	ExemptionThreshold   float64
	BurnPercent          byte
}

func DefaultRent() SysvarRent {
	return SysvarRent{
		LamportsPerUint8Year: DefaultLamportsPerByteYear,
		ExemptionThreshold:   DefaultExemptionThreshold,
		BurnPercent:          DefaultBurnPercent,
	}
}

func (sr *SysvarRent) UnmarshalWithDecoder(decoder *bin.Decoder) (err error) {
	lamportsPerUint8Year, err := decoder.ReadUint64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read LamportsPerUint8Year when decoding SysvarRent: %w", err)
	}
	sr.LamportsPerUint8Year = lamportsPerUint8Year

	exemptionThreshold, err := decoder.ReadFloat64(bin.LE)
	if err != nil {
		return fmt.Errorf("failed to read ExemptionThreshold when decoding SysvarRent: %w", err)
	}
	sr.ExemptionThreshold = exemptionThreshold

	burnPercent, err := decoder.ReadByte()
	if err != nil {
		return fmt.Errorf("failed to read BurnPercent when decoding SysvarRent: %w", err)
	}
	sr.BurnPercent = burnPercent

	return
}

func (sr *SysvarRent) MarshalWithEncoder(encoder *bin.Encoder) error {
	err := encoder.WriteUint64(sr.LamportsPerUint8Year, bin.LE)
	if err != nil {
		return err
	}
	err = encoder.WriteFloat64(sr.ExemptionThreshold, bin.LE)
	if err != nil {
		return err
	}
	return encoder.WriteByte(sr.BurnPercent)
}

// MinimumBalance returns the lamports an account holding dataLen bytes needs
// to be rent exempt.
func (sr *SysvarRent) MinimumBalance(dataLen uint64) uint64 {
	size := dataLen + AccountStorageOverhead
	return uint64(float64(size*sr.LamportsPerUint8Year) * sr.ExemptionThreshold)
}

func (sr *SysvarRent) IsExempt(balance uint64, dataLen uint64) bool {
	return balance >= sr.MinimumBalance(dataLen)
}

func ReadRentSysvar(accts accounts.Accounts) (*SysvarRent, error) {
	rentAcct, err := accts.GetAccount(&SysvarRentAddr)
	if err != nil {
		return nil, err
	}
	if rentAcct == nil {
		return nil, InstrErrUnsupportedSysvar
	}

	dec := bin.NewBinDecoder(rentAcct.Data)

	var rent SysvarRent
	err = rent.UnmarshalWithDecoder(dec)
	if err != nil {
		return nil, err
	}

	return &rent, nil
}

// WriteRentSysvar stores rent as the rent sysvar account of accts.
func WriteRentSysvar(accts accounts.Accounts, rent *SysvarRent) error {
	buf := new(bytes.Buffer)
	err := rent.MarshalWithEncoder(bin.NewBinEncoder(buf))
	if err != nil {
		return err
	}

	rentAcct := &accounts.Account{
		Key:        SysvarRentAddr,
		Lamports:   rent.MinimumBalance(SysvarRentStructLen),
		Data:       buf.Bytes(),
		Owner:      SysvarOwnerAddr,
		Executable: false,
	}
	return accts.SetAccount(&SysvarRentAddr, rentAcct)
}
