package store

import (
	"encoding/binary"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	dbm "github.com/tendermint/tm-db"

	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
	"github.com/auctionledger/auctiond/types"
)

// ErrNotFound is returned by read queries for identifiers that have no entry.
var ErrNotFound = errors.New("not found")

var (
	walletPrefix    = []byte("wallet/")
	walletSeqPrefix = []byte("walletseq/")
	lotPrefix       = []byte("lot/")
	bidPrefix       = []byte("bid/")
	txResultPrefix  = []byte("txresult/")
	heightKey       = []byte("height")
)

// Store is the ledger state: wallets, lots, per-lot bid histories, transaction
// outcomes and the committed block height, all backed by any dbm.DB.
//
// Reads always observe the last committed block. All writes go through a
// BlockBatch, which holds the write half of the lock for the whole block and
// lands every mutation of the block in a single atomic database write, so a
// reader can never see a block mid-application.
type Store struct {
	db dbm.DB

	mtx sync.RWMutex
	// next wallet insertion index, recovered from the db at open
	walletSeq uint64
}

// NewStore opens a ledger store over db.
func NewStore(db dbm.DB) (*Store, error) {
	seq, err := recoverSeq(db, walletSeqPrefix)
	if err != nil {
		return nil, errors.Wrap(err, "recovering wallet sequence")
	}
	return &Store{db: db, walletSeq: seq}, nil
}

// Wallet returns the wallet for the given public key, or ErrNotFound.
func (s *Store) Wallet(pubKey types.PubKey) (types.Wallet, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return getWallet(s.db, pubKey)
}

// Wallets returns all wallets in insertion order.
func (s *Store) Wallets() ([]types.Wallet, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	itr, err := s.db.Iterator(walletSeqPrefix, prefixEnd(walletSeqPrefix))
	if err != nil {
		return nil, errors.Wrap(err, "iterating wallet index")
	}
	defer itr.Close()

	var wallets []types.Wallet
	for ; itr.Valid(); itr.Next() {
		w, err := getWallet(s.db, itr.Value())
		if err != nil {
			return nil, errors.Wrapf(err, "wallet %X from index", itr.Value())
		}
		wallets = append(wallets, w)
	}
	return wallets, itr.Error()
}

// Lot returns the lot with the given id (creating tx hash), or ErrNotFound.
func (s *Store) Lot(id tmbytes.HexBytes) (types.Lot, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return getLot(s.db, id)
}

// Bids returns the bid history of a lot in chronological order. It returns
// ErrNotFound if the lot itself does not exist; a lot without bids yields an
// empty history.
func (s *Store) Bids(lotID tmbytes.HexBytes) ([]types.Bid, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()

	if _, err := getLot(s.db, lotID); err != nil {
		return nil, err
	}

	start := bidKeyPrefix(lotID)
	itr, err := s.db.Iterator(start, prefixEnd(start))
	if err != nil {
		return nil, errors.Wrap(err, "iterating bids")
	}
	defer itr.Close()

	bids := []types.Bid{}
	for ; itr.Valid(); itr.Next() {
		var bid types.Bid
		if err := json.Unmarshal(itr.Value(), &bid); err != nil {
			return nil, errors.Wrap(err, "unmarshalling bid")
		}
		bids = append(bids, bid)
	}
	return bids, itr.Error()
}

// TxResult returns the terminal outcome recorded for a transaction hash, or
// ErrNotFound while the transaction is unknown or still pending.
func (s *Store) TxResult(hash tmbytes.HexBytes) (*types.TxResult, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return getTxResult(s.db, hash)
}

// Height returns the last committed block height, zero for an empty ledger.
func (s *Store) Height() (int64, error) {
	s.mtx.RLock()
	defer s.mtx.RUnlock()
	return getHeight(s.db)
}

// Close releases the underlying database.
func (s *Store) Close() error { return s.db.Close() }

//---------------------------------------------------------------------------
// raw accessors, shared between Store (under RLock) and BlockBatch (under the
// write lock)

func getWallet(db dbm.DB, pubKey []byte) (types.Wallet, error) {
	var w types.Wallet
	err := getJSON(db, walletKey(pubKey), &w)
	return w, err
}

func getLot(db dbm.DB, id []byte) (types.Lot, error) {
	var l types.Lot
	err := getJSON(db, lotKey(id), &l)
	return l, err
}

func getTxResult(db dbm.DB, hash []byte) (*types.TxResult, error) {
	var res types.TxResult
	if err := getJSON(db, txResultKey(hash), &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func getHeight(db dbm.DB) (int64, error) {
	bz, err := db.Get(heightKey)
	if err != nil {
		return 0, errors.Wrap(err, "reading height")
	}
	if len(bz) == 0 {
		return 0, nil
	}
	return int64(binary.BigEndian.Uint64(bz)), nil
}

func getJSON(db dbm.DB, key []byte, v interface{}) error {
	bz, err := db.Get(key)
	if err != nil {
		return errors.Wrapf(err, "reading %s", key)
	}
	if len(bz) == 0 {
		return ErrNotFound
	}
	return errors.Wrapf(json.Unmarshal(bz, v), "unmarshalling %s", key)
}

func recoverSeq(db dbm.DB, prefix []byte) (uint64, error) {
	itr, err := db.ReverseIterator(prefix, prefixEnd(prefix))
	if err != nil {
		return 0, err
	}
	defer itr.Close()
	if !itr.Valid() {
		return 0, nil
	}
	key := itr.Key()
	return binary.BigEndian.Uint64(key[len(prefix):]) + 1, nil
}

//---------------------------------------------------------------------------
// keys

func walletKey(pubKey []byte) []byte {
	return append(cp(walletPrefix), pubKey...)
}

func walletSeqKey(seq uint64) []byte {
	return append(cp(walletSeqPrefix), be64(seq)...)
}

func lotKey(id []byte) []byte {
	return append(cp(lotPrefix), id...)
}

func bidKeyPrefix(lotID []byte) []byte {
	return append(append(cp(bidPrefix), lotID...), '/')
}

func bidKey(lotID []byte, n uint64) []byte {
	return append(bidKeyPrefix(lotID), be64(n)...)
}

func txResultKey(hash []byte) []byte {
	return append(cp(txResultPrefix), hash...)
}

func be64(n uint64) []byte {
	bz := make([]byte, 8)
	binary.BigEndian.PutUint64(bz, n)
	return bz
}

func cp(bz []byte) []byte {
	ret := make([]byte, len(bz))
	copy(ret, bz)
	return ret
}

// prefixEnd returns the smallest key strictly greater than all keys with the
// given prefix, for use as an iterator upper bound.
func prefixEnd(prefix []byte) []byte {
	end := cp(prefix)
	for i := len(end) - 1; i >= 0; i-- {
		if end[i] != 0xff {
			end[i]++
			return end[:i+1]
		}
	}
	return nil // prefix is all 0xff: iterate to the end of the keyspace
}
