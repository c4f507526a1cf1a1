package store

import (
	"encoding/json"

	"github.com/pkg/errors"

	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
	"github.com/auctionledger/auctiond/types"
)

// BlockBatch stages every mutation of one block and commits them as a single
// atomic database write. It takes the store's write lock on creation and
// releases it on Commit or Discard, so queries only ever observe block
// boundaries.
//
// Reads through the batch see the staged writes of earlier transactions in
// the same block, which is what lets a later transaction supersede a bid
// placed a few positions before it.
type BlockBatch struct {
	s     *Store
	batch dbmBatch

	// overlay of staged objects, consulted before the database
	wallets  map[string]types.Wallet
	lots     map[string]types.Lot
	bidCount map[string]uint64

	walletSeq uint64
	height    int64
	done      bool
}

// dbmBatch is the slice of dbm.Batch the block batch needs.
type dbmBatch interface {
	Set(key, value []byte) error
	WriteSync() error
	Close() error
}

// NewBlockBatch locks the store for writing and returns a batch for applying
// the next block. The caller must finish with Commit or Discard, typically
//
//	b := s.NewBlockBatch()
//	defer b.Discard()
func (s *Store) NewBlockBatch() (*BlockBatch, error) {
	s.mtx.Lock()

	height, err := getHeight(s.db)
	if err != nil {
		s.mtx.Unlock()
		return nil, err
	}

	return &BlockBatch{
		s:         s,
		batch:     s.db.NewBatch(),
		wallets:   make(map[string]types.Wallet),
		lots:      make(map[string]types.Lot),
		bidCount:  make(map[string]uint64),
		walletSeq: s.walletSeq,
		height:    height,
	}, nil
}

// Height returns the height committed before this block started.
func (b *BlockBatch) Height() int64 { return b.height }

// Wallet returns the wallet as staged within this block, falling back to the
// committed state.
func (b *BlockBatch) Wallet(pubKey types.PubKey) (types.Wallet, error) {
	if w, ok := b.wallets[string(pubKey)]; ok {
		return w, nil
	}
	return getWallet(b.s.db, pubKey)
}

// Lot returns the lot as staged within this block, falling back to the
// committed state.
func (b *BlockBatch) Lot(id tmbytes.HexBytes) (types.Lot, error) {
	if l, ok := b.lots[string(id)]; ok {
		return l, nil
	}
	return getLot(b.s.db, id)
}

// SetWallet stages a wallet write. A wallet seen for the first time is also
// appended to the insertion-order index.
func (b *BlockBatch) SetWallet(w types.Wallet) error {
	if _, staged := b.wallets[string(w.PubKey)]; !staged {
		exists, err := b.s.db.Has(walletKey(w.PubKey))
		if err != nil {
			return errors.Wrap(err, "checking wallet existence")
		}
		if !exists {
			if err := b.batch.Set(walletSeqKey(b.walletSeq), w.PubKey); err != nil {
				return errors.Wrap(err, "staging wallet index")
			}
			b.walletSeq++
		}
	}
	if err := b.setJSON(walletKey(w.PubKey), w); err != nil {
		return err
	}
	b.wallets[string(w.PubKey)] = w
	return nil
}

// SetLot stages a lot write.
func (b *BlockBatch) SetLot(l types.Lot) error {
	if err := b.setJSON(lotKey(l.ID), l); err != nil {
		return err
	}
	b.lots[string(l.ID)] = l
	return nil
}

// AppendBid stages a bid at the end of its lot's history.
func (b *BlockBatch) AppendBid(bid types.Bid) error {
	n, ok := b.bidCount[string(bid.LotID)]
	if !ok {
		var err error
		n, err = recoverSeq(b.s.db, bidKeyPrefix(bid.LotID))
		if err != nil {
			return errors.Wrap(err, "recovering bid sequence")
		}
	}
	if err := b.setJSON(bidKey(bid.LotID, n), bid); err != nil {
		return err
	}
	b.bidCount[string(bid.LotID)] = n + 1
	return nil
}

// TxResult returns the outcome committed for a transaction before this block
// started, or ErrNotFound. Outcomes staged within this block are not visible;
// the duplicate index keeps a transaction from appearing twice in one block.
func (b *BlockBatch) TxResult(hash tmbytes.HexBytes) (*types.TxResult, error) {
	return getTxResult(b.s.db, hash)
}

// SetTxResult stages a transaction's terminal outcome.
func (b *BlockBatch) SetTxResult(res *types.TxResult) error {
	return b.setJSON(txResultKey(res.Hash), res)
}

// Commit writes the staged block atomically at the given height and releases
// the store for readers. The batch must not be used afterwards.
func (b *BlockBatch) Commit(height int64) error {
	if b.done {
		return errors.New("block batch already finished")
	}
	b.done = true
	defer b.s.mtx.Unlock()
	defer b.batch.Close()

	if err := b.batch.Set(heightKey, be64(uint64(height))); err != nil {
		return errors.Wrap(err, "staging height")
	}
	if err := b.batch.WriteSync(); err != nil {
		return errors.Wrapf(err, "committing block %d", height)
	}
	b.s.walletSeq = b.walletSeq
	return nil
}

// Discard drops all staged writes and releases the store. Calling it after
// Commit is a no-op, so it is safe to defer unconditionally.
func (b *BlockBatch) Discard() {
	if b.done {
		return
	}
	b.done = true
	_ = b.batch.Close()
	b.s.mtx.Unlock()
}

func (b *BlockBatch) setJSON(key []byte, v interface{}) error {
	bz, err := json.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "marshalling %s", key)
	}
	return errors.Wrapf(b.batch.Set(key, bz), "staging %s", key)
}
