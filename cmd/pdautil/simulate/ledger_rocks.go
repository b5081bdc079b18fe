//go:build !lite

package simulate

import (
	"github.com/Overclock-Validator/pdautil/pkg/accounts"
	"github.com/Overclock-Validator/pdautil/pkg/accountsdb"
)

func openLedger(dir string) (accounts.Accounts, func(), error) {
	if dir == "" {
		return accounts.NewMemAccounts(), func() {}, nil
	}
	db, err := accountsdb.OpenDb(dir)
	if err != nil {
		return nil, nil, err
	}
	return db, db.CloseDb, nil
}
