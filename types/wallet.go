package types

// Wallet holds a participant's funds, split between the balance that is free
// to spend and the amount frozen behind an active highest bid.
//
// Available+Frozen only changes through a validated transaction; neither part
// ever goes negative (amounts are unsigned and every debit is checked first).
type Wallet struct {
	PubKey    PubKey `json:"pub_key"`
	Name      string `json:"name"`
	Available uint64 `json:"available"`
	Frozen    uint64 `json:"frozen"`
}

// NewWallet returns a wallet with the whole starting balance available.
func NewWallet(pubKey PubKey, name string, balance uint64) Wallet {
	return Wallet{PubKey: pubKey, Name: name, Available: balance}
}

// Freeze moves amount from the available to the frozen balance, or returns
// ErrInsufficientFunds if the available balance does not cover it.
func (w Wallet) Freeze(amount uint64) (Wallet, *TxError) {
	if w.Available < amount {
		return w, ErrInsufficientFunds
	}
	w.Available -= amount
	w.Frozen += amount
	return w, nil
}

// Release moves amount back from the frozen to the available balance. If the
// requested amount exceeds the currently frozen one, everything is released.
func (w Wallet) Release(amount uint64) Wallet {
	if amount > w.Frozen {
		amount = w.Frozen
	}
	w.Frozen -= amount
	w.Available += amount
	return w
}
