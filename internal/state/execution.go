package state

import (
	"errors"
	"fmt"

	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/types"
)

// BlockExecutor applies ordered blocks of transactions to the ledger store.
// It is the only writer: every mutation of wallet, lot or bid state happens
// inside ApplyBlock, one block at a time, strictly in transaction order.
// Replicas feeding it the same transaction sequence end up with identical
// state, so nothing in here may be parallelized or reordered.
type BlockExecutor struct {
	store  *store.Store
	logger log.Logger
}

// NewBlockExecutor returns a new BlockExecutor writing to the given store.
func NewBlockExecutor(s *store.Store, logger log.Logger) *BlockExecutor {
	return &BlockExecutor{store: s, logger: logger}
}

// ApplyBlock executes txs in order against one staged batch, commits the
// batch atomically and returns the per-transaction outcomes along with the
// new height. Invalid transactions are recorded as rejected and do not stop
// the block. A storage fault aborts the whole block: nothing is written and
// the height does not advance.
func (blockExec *BlockExecutor) ApplyBlock(txs []types.Tx) ([]*types.TxResult, int64, error) {
	batch, err := blockExec.store.NewBlockBatch()
	if err != nil {
		return nil, 0, fmt.Errorf("opening block batch: %w", err)
	}
	defer batch.Discard()

	height := batch.Height() + 1

	results := make([]*types.TxResult, len(txs))
	for i, tx := range txs {
		// A terminal outcome never changes. A duplicate that slipped back
		// into the queue after its block committed keeps the recorded
		// result instead of being re-executed.
		res, err := batch.TxResult(tx.Hash())
		if err == nil {
			results[i] = res
			blockExec.logger.Debug("skipping tx with recorded outcome", "tx", tx.Hash(), "height", res.Height)
			continue
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, 0, fmt.Errorf("checking outcome of tx %X: %w", tx.Hash(), err)
		}

		res, err = applyTx(batch, tx, height)
		if err != nil {
			return nil, 0, fmt.Errorf("applying tx %X in block %d: %w", tx.Hash(), height, err)
		}
		if err := batch.SetTxResult(res); err != nil {
			return nil, 0, fmt.Errorf("recording result of tx %X: %w", tx.Hash(), err)
		}
		results[i] = res

		if !res.IsOK() {
			blockExec.logger.Debug("rejected tx", "tx", tx.Hash(), "code", res.Code, "reason", res.Reason)
		}
	}

	if err := batch.Commit(height); err != nil {
		return nil, 0, err
	}

	blockExec.logger.Info("committed block", "height", height, "num_txs", len(txs))
	return results, height, nil
}

// applyTx validates a single transaction against the block's staged state and,
// if it passes, stages its mutations. All writes of one transaction land in
// the same batch, so they commit or vanish together.
func applyTx(batch *store.BlockBatch, tx types.Tx, height int64) (*types.TxResult, error) {
	txErr, err := CheckTx(batch, tx)
	if err != nil {
		return nil, err
	}
	if txErr != nil {
		return types.NewTxResultError(tx.Hash(), height, txErr), nil
	}

	switch tx.Kind {
	case types.TxKindCreateWallet:
		t := tx.CreateWallet
		if err := batch.SetWallet(types.NewWallet(t.PubKey, t.Name, t.Balance)); err != nil {
			return nil, err
		}

	case types.TxKindCreateLot:
		t := tx.CreateLot
		if err := batch.SetLot(types.NewLot(tx.Hash(), t.Owner, t.Name, t.MinBid)); err != nil {
			return nil, err
		}

	case types.TxKindPlaceBid:
		if err := execPlaceBid(batch, tx.PlaceBid, height); err != nil {
			return nil, err
		}
	}

	return types.NewTxResultOK(tx.Hash(), height), nil
}

// execPlaceBid moves the new bidder's funds into the frozen balance, refunds
// the superseded bidder, updates the lot and appends the bid record. The
// staged batch makes the whole transition atomic: no state where two bidders
// (or none) hold frozen funds for the lot is ever observable.
func execPlaceBid(batch *store.BlockBatch, tx *types.PlaceBidTx, height int64) error {
	bidder, err := batch.Wallet(tx.Owner)
	if err != nil {
		return err
	}
	lot, err := batch.Lot(tx.Lot)
	if err != nil {
		return err
	}

	frozen, txErr := bidder.Freeze(tx.Amount)
	if txErr != nil {
		// CheckTx passed against this same view; the balance cannot have
		// moved under us
		return fmt.Errorf("freezing %d for %X: %s", tx.Amount, tx.Owner, txErr.Reason)
	}
	if err := batch.SetWallet(frozen); err != nil {
		return err
	}

	if lot.HasBidder() {
		prev, err := batch.Wallet(lot.HighestBidder)
		if err != nil {
			return fmt.Errorf("loading superseded bidder %X: %w", lot.HighestBidder, err)
		}
		if err := batch.SetWallet(prev.Release(lot.HighestBid)); err != nil {
			return err
		}
	}

	lot.HighestBid = tx.Amount
	lot.HighestBidder = tx.Owner
	if err := batch.SetLot(lot); err != nil {
		return err
	}

	return batch.AppendBid(types.Bid{
		Bidder: tx.Owner,
		LotID:  tx.Lot,
		Amount: tx.Amount,
		Height: height,
	})
}
