package types

import (
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"

	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
)

// PubKey identifies a wallet. It is an opaque byte string assigned by the
// (external) key-management layer; the ledger only compares it for equality.
type PubKey = tmbytes.HexBytes

// TxKey is the fixed length array key used as an index into a transaction's
// outcome and waiter registries.
type TxKey [sha256.Size]byte

// TxKind discriminates the payload carried by a Tx envelope.
type TxKind string

const (
	TxKindCreateWallet TxKind = "create_wallet"
	TxKindCreateLot    TxKind = "create_lot"
	TxKindPlaceBid     TxKind = "place_bid"
)

// CreateWalletTx registers a new wallet with an initial balance.
type CreateWalletTx struct {
	PubKey  PubKey `json:"pub_key"`
	Name    string `json:"name"`
	Balance uint64 `json:"balance"`
}

// CreateLotTx opens a new auction lot. The lot is identified by the hash of
// the transaction that created it.
type CreateLotTx struct {
	Owner  PubKey `json:"owner"`
	Name   string `json:"name"`
	MinBid uint64 `json:"min_bid"`
}

// PlaceBidTx bids Amount on the lot identified by Lot.
type PlaceBidTx struct {
	Owner  PubKey           `json:"owner"`
	Lot    tmbytes.HexBytes `json:"lot"`
	Amount uint64           `json:"amount"`
}

// Tx is the envelope for every transaction accepted by the ledger. Exactly one
// payload field must be set, matching Kind. Its canonical encoding, and hence
// its hash, is the deterministic JSON serialization of the envelope.
type Tx struct {
	Kind TxKind `json:"kind"`

	CreateWallet *CreateWalletTx `json:"create_wallet,omitempty"`
	CreateLot    *CreateLotTx    `json:"create_lot,omitempty"`
	PlaceBid     *PlaceBidTx     `json:"place_bid,omitempty"`
}

// NewCreateWalletTx wraps a CreateWalletTx payload in an envelope.
func NewCreateWalletTx(pubKey PubKey, name string, balance uint64) Tx {
	return Tx{Kind: TxKindCreateWallet, CreateWallet: &CreateWalletTx{PubKey: pubKey, Name: name, Balance: balance}}
}

// NewCreateLotTx wraps a CreateLotTx payload in an envelope.
func NewCreateLotTx(owner PubKey, name string, minBid uint64) Tx {
	return Tx{Kind: TxKindCreateLot, CreateLot: &CreateLotTx{Owner: owner, Name: name, MinBid: minBid}}
}

// NewPlaceBidTx wraps a PlaceBidTx payload in an envelope.
func NewPlaceBidTx(owner PubKey, lot tmbytes.HexBytes, amount uint64) Tx {
	return Tx{Kind: TxKindPlaceBid, PlaceBid: &PlaceBidTx{Owner: owner, Lot: lot, Amount: amount}}
}

// Bytes returns the canonical encoding of the transaction. Two transactions
// with the same content always produce the same bytes.
func (tx Tx) Bytes() []byte {
	bz, err := json.Marshal(tx)
	if err != nil {
		// all payload types are plain data; this cannot fail
		panic(err)
	}
	return bz
}

// Key produces a fixed length key for use in maps.
func (tx Tx) Key() TxKey { return sha256.Sum256(tx.Bytes()) }

// Hash computes the transaction hash from its canonical encoding. It is
// assigned at submission time and never changes.
func (tx Tx) Hash() tmbytes.HexBytes {
	key := tx.Key()
	return key[:]
}

// ValidateBasic performs stateless checks on the envelope: the payload must
// match Kind and carry non-empty identifiers. Stateful checks are done by the
// validator against ledger state.
func (tx Tx) ValidateBasic() error {
	switch tx.Kind {
	case TxKindCreateWallet:
		if tx.CreateWallet == nil || tx.CreateLot != nil || tx.PlaceBid != nil {
			return errTxPayloadMismatch(tx.Kind)
		}
		if len(tx.CreateWallet.PubKey) == 0 {
			return errors.New("create_wallet: empty pub_key")
		}
	case TxKindCreateLot:
		if tx.CreateLot == nil || tx.CreateWallet != nil || tx.PlaceBid != nil {
			return errTxPayloadMismatch(tx.Kind)
		}
		if len(tx.CreateLot.Owner) == 0 {
			return errors.New("create_lot: empty owner")
		}
	case TxKindPlaceBid:
		if tx.PlaceBid == nil || tx.CreateWallet != nil || tx.CreateLot != nil {
			return errTxPayloadMismatch(tx.Kind)
		}
		if len(tx.PlaceBid.Owner) == 0 {
			return errors.New("place_bid: empty owner")
		}
		if len(tx.PlaceBid.Lot) == 0 {
			return errors.New("place_bid: empty lot")
		}
		if tx.PlaceBid.Amount == 0 {
			return errors.New("place_bid: zero amount")
		}
	default:
		return fmt.Errorf("unknown tx kind %q", tx.Kind)
	}
	return nil
}

func errTxPayloadMismatch(kind TxKind) error {
	return fmt.Errorf("tx payload does not match kind %q", kind)
}

// String returns a short human readable description used in logs.
func (tx Tx) String() string {
	return fmt.Sprintf("Tx{%s %X}", tx.Kind, tx.Hash())
}
