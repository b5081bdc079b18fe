//go:build !lite

// Package accountsdb persists ledger accounts in RocksDB, keyed by pubkey.
package accountsdb

import (
	"bytes"
	"fmt"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/base58"
	bin "github.com/gagliardetto/binary"
	"github.com/linxGnu/grocksdb"
	"k8s.io/klog/v2"
)

type AccountsDb struct {
	db *grocksdb.DB
	ro *grocksdb.ReadOptions
	wo *grocksdb.WriteOptions
}

func OpenDb(accountsDbDir string) (*AccountsDb, error) {
	opts := grocksdb.NewDefaultOptions()
	opts.SetCreateIfMissing(true)
	defer opts.Destroy()

	db, err := grocksdb.OpenDb(opts, accountsDbDir)
	if err != nil {
		return nil, fmt.Errorf("opening accounts db %s: %w", accountsDbDir, err)
	}

	wo := grocksdb.NewDefaultWriteOptions()
	wo.SetSync(true)

	klog.V(2).Infof("opened accounts db at %s", accountsDbDir)
	return &AccountsDb{db: db, ro: grocksdb.NewDefaultReadOptions(), wo: wo}, nil
}

func (accountsDb *AccountsDb) CloseDb() {
	accountsDb.ro.Destroy()
	accountsDb.wo.Destroy()
	accountsDb.db.Close()
}

func (accountsDb *AccountsDb) GetAccount(pubkey *[32]byte) (*accounts.Account, error) {
	slice, err := accountsDb.db.Get(accountsDb.ro, pubkey[:])
	if err != nil {
		return nil, fmt.Errorf("error whilst retrieving account %s: %w", base58.Encode(pubkey[:]), err)
	}
	defer slice.Free()

	if !slice.Exists() {
		return nil, nil
	}

	acct := new(accounts.Account)
	err = acct.UnmarshalWithDecoder(bin.NewBinDecoder(slice.Data()))
	if err != nil {
		return nil, fmt.Errorf("failed to deserialize account %s: %w", base58.Encode(pubkey[:]), err)
	}

	return acct, nil
}

func (accountsDb *AccountsDb) SetAccount(pubkey *[32]byte, acct *accounts.Account) error {
	acctBytes, err := marshalAccount(acct)
	if err != nil {
		return err
	}

	err = accountsDb.db.Put(accountsDb.wo, pubkey[:], acctBytes)
	if err != nil {
		return fmt.Errorf("error setting account for %s: %w", base58.Encode(pubkey[:]), err)
	}

	return nil
}

// StoreAccounts writes all accounts in a single write batch.
func (accountsDb *AccountsDb) StoreAccounts(accts []*accounts.Account) error {
	wb := grocksdb.NewWriteBatch()
	defer wb.Destroy()

	for _, acct := range accts {
		acctBytes, err := marshalAccount(acct)
		if err != nil {
			return err
		}
		wb.Put(acct.Key[:], acctBytes)
	}

	return accountsDb.db.Write(accountsDb.wo, wb)
}

func marshalAccount(acct *accounts.Account) ([]byte, error) {
	writer := new(bytes.Buffer)
	err := acct.MarshalWithEncoder(bin.NewBinEncoder(writer))
	if err != nil {
		return nil, fmt.Errorf("failed to serialize account %s: %w", acct.Key, err)
	}
	return writer.Bytes(), nil
}
