//go:build lite

package simulate

import (
	"errors"

	"github.com/Overclock-Validator/pdautil/pkg/accounts"
)

func openLedger(dir string) (accounts.Accounts, func(), error) {
	if dir != "" {
		return nil, nil, errors.New("RocksDB ledgers are not supported in lite builds")
	}
	return accounts.NewMemAccounts(), func() {}, nil
}
