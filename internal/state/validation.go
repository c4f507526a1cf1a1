package state

import (
	"github.com/pkg/errors"

	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/types"
)

// View is the read-only ledger state a transaction is checked against. Both
// the committed store and an in-flight block batch satisfy it; validation is
// re-run at execution time against the batch so a transaction observes the
// effects of earlier transactions in the same block.
type View interface {
	Wallet(pubKey types.PubKey) (types.Wallet, error)
	Lot(id tmbytes.HexBytes) (types.Lot, error)
}

// CheckTx validates a transaction against the given ledger view without any
// side effects. A non-nil *types.TxError is a rejection of the transaction;
// a non-nil error is a storage fault and aborts block processing.
func CheckTx(view View, tx types.Tx) (*types.TxError, error) {
	switch tx.Kind {
	case types.TxKindCreateWallet:
		return checkCreateWallet(view, tx.CreateWallet)
	case types.TxKindCreateLot:
		return checkCreateLot(view, tx.CreateLot)
	case types.TxKindPlaceBid:
		return checkPlaceBid(view, tx.PlaceBid)
	default:
		return nil, errors.Errorf("unknown tx kind %q", tx.Kind)
	}
}

func checkCreateWallet(view View, tx *types.CreateWalletTx) (*types.TxError, error) {
	_, err := view.Wallet(tx.PubKey)
	switch {
	case err == nil:
		return types.ErrDuplicateWallet, nil
	case errors.Is(err, store.ErrNotFound):
		return nil, nil
	default:
		return nil, err
	}
}

func checkCreateLot(view View, tx *types.CreateLotTx) (*types.TxError, error) {
	_, err := view.Wallet(tx.Owner)
	switch {
	case err == nil:
		return nil, nil
	case errors.Is(err, store.ErrNotFound):
		return types.ErrUnknownOwner, nil
	default:
		return nil, err
	}
}

func checkPlaceBid(view View, tx *types.PlaceBidTx) (*types.TxError, error) {
	bidder, err := view.Wallet(tx.Owner)
	if errors.Is(err, store.ErrNotFound) {
		return types.ErrUnknownBidder, nil
	} else if err != nil {
		return nil, err
	}

	lot, err := view.Lot(tx.Lot)
	if errors.Is(err, store.ErrNotFound) {
		return types.ErrUnknownLot, nil
	} else if err != nil {
		return nil, err
	}

	if lot.Owner.Equal(tx.Owner) {
		return types.ErrSelfBid, nil
	}

	// strict-greater: a bid equal to the current highest (which starts at
	// the minimum bid) is rejected
	if tx.Amount <= lot.HighestBid {
		return types.ErrBidTooLow, nil
	}

	if bidder.Available < tx.Amount {
		return types.ErrInsufficientFunds, nil
	}

	return nil, nil
}
