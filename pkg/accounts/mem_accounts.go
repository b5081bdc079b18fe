package accounts

type MemAccounts struct {
	Map map[[32]byte]*Account
}

func NewMemAccounts() MemAccounts {
	return MemAccounts{
		Map: make(map[[32]byte]*Account),
	}
}

func (m MemAccounts) GetAccount(pubkey *[32]byte) (*Account, error) {
	acct, ok := m.Map[*pubkey]
	if !ok {
		return nil, nil
	}
	return acct.Clone(), nil
}

func (m MemAccounts) SetAccount(pubkey *[32]byte, acc *Account) error {
	m.Map[*pubkey] = acc.Clone()
	return nil
}
