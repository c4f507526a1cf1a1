package store

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/auctionledger/auctiond/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(dbm.NewMemDB())
	require.NoError(t, err)
	return s
}

func commitWallets(t *testing.T, s *Store, wallets ...types.Wallet) {
	t.Helper()
	b, err := s.NewBlockBatch()
	require.NoError(t, err)
	defer b.Discard()
	for _, w := range wallets {
		require.NoError(t, b.SetWallet(w))
	}
	require.NoError(t, b.Commit(b.Height()+1))
}

func TestStoreWalletRoundTrip(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Wallet(types.PubKey{0x01})
	require.ErrorIs(t, err, ErrNotFound)

	w := types.NewWallet(types.PubKey{0x01}, "phobos", 100)
	commitWallets(t, s, w)

	got, err := s.Wallet(w.PubKey)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	height, err := s.Height()
	require.NoError(t, err)
	assert.EqualValues(t, 1, height)
}

func TestStoreWalletsInsertionOrder(t *testing.T) {
	s := newTestStore(t)

	// keys deliberately in descending byte order so key order != insertion order
	var created []types.Wallet
	for i := 0; i < 5; i++ {
		w := types.NewWallet(types.PubKey{byte(0xf0 - i)}, fmt.Sprintf("wallet-%d", i), 10)
		created = append(created, w)
		commitWallets(t, s, w)
	}

	wallets, err := s.Wallets()
	require.NoError(t, err)
	require.Equal(t, created, wallets, "list order must be insertion order")
}

func TestStoreWalletSeqSurvivesReopen(t *testing.T) {
	db := dbm.NewMemDB()
	s, err := NewStore(db)
	require.NoError(t, err)

	commitWallets(t, s, types.NewWallet(types.PubKey{0x01}, "a", 1))
	commitWallets(t, s, types.NewWallet(types.PubKey{0x02}, "b", 1))

	// a store reopened over the same db must keep appending, not overwrite
	reopened, err := NewStore(db)
	require.NoError(t, err)
	commitWallets(t, reopened, types.NewWallet(types.PubKey{0x03}, "c", 1))

	wallets, err := reopened.Wallets()
	require.NoError(t, err)
	require.Len(t, wallets, 3)
	assert.Equal(t, "c", wallets[2].Name)
}

func TestStoreBidsChronological(t *testing.T) {
	s := newTestStore(t)

	lotID := types.PubKey{0xaa, 0xbb}
	owner := types.PubKey{0x01}
	bidder := types.PubKey{0x02}

	_, err := s.Bids(lotID)
	require.ErrorIs(t, err, ErrNotFound, "unknown lot has no bid history")

	b, err := s.NewBlockBatch()
	require.NoError(t, err)
	require.NoError(t, b.SetLot(types.NewLot(lotID, owner, "lot", 10)))
	for i := 0; i < 3; i++ {
		require.NoError(t, b.AppendBid(types.Bid{Bidder: bidder, LotID: lotID, Amount: uint64(11 + i), Height: 1}))
	}
	require.NoError(t, b.Commit(1))

	bids, err := s.Bids(lotID)
	require.NoError(t, err)
	require.Len(t, bids, 3)
	for i, bid := range bids {
		assert.EqualValues(t, 11+i, bid.Amount)
	}

	// a later block appends after the recovered sequence
	b2, err := s.NewBlockBatch()
	require.NoError(t, err)
	require.NoError(t, b2.AppendBid(types.Bid{Bidder: bidder, LotID: lotID, Amount: 20, Height: 2}))
	require.NoError(t, b2.Commit(2))

	bids, err = s.Bids(lotID)
	require.NoError(t, err)
	require.Len(t, bids, 4)
	assert.EqualValues(t, 20, bids[3].Amount)
}

func TestBlockBatchDiscard(t *testing.T) {
	s := newTestStore(t)

	b, err := s.NewBlockBatch()
	require.NoError(t, err)
	require.NoError(t, b.SetWallet(types.NewWallet(types.PubKey{0x01}, "ghost", 5)))
	b.Discard()

	_, err = s.Wallet(types.PubKey{0x01})
	require.ErrorIs(t, err, ErrNotFound, "discarded writes must not be visible")

	height, err := s.Height()
	require.NoError(t, err)
	assert.Zero(t, height)

	// double Discard and post-Commit Discard are no-ops
	b.Discard()
	commitWallets(t, s, types.NewWallet(types.PubKey{0x02}, "real", 5))
}

func TestBlockBatchOverlayReads(t *testing.T) {
	s := newTestStore(t)

	b, err := s.NewBlockBatch()
	require.NoError(t, err)
	defer b.Discard()

	w := types.NewWallet(types.PubKey{0x07}, "staged", 50)
	require.NoError(t, b.SetWallet(w))

	// a read through the batch sees the staged wallet before commit
	got, err := b.Wallet(w.PubKey)
	require.NoError(t, err)
	assert.Equal(t, w, got)

	updated, txErr := got.Freeze(20)
	require.Nil(t, txErr)
	require.NoError(t, b.SetWallet(updated))

	got, err = b.Wallet(w.PubKey)
	require.NoError(t, err)
	assert.EqualValues(t, 30, got.Available)
	assert.EqualValues(t, 20, got.Frozen)
}

func TestStoreTxResult(t *testing.T) {
	s := newTestStore(t)

	hash := types.PubKey{0x11, 0x22}
	_, err := s.TxResult(hash)
	require.ErrorIs(t, err, ErrNotFound)

	b, err := s.NewBlockBatch()
	require.NoError(t, err)
	require.NoError(t, b.SetTxResult(types.NewTxResultError(hash, 1, types.ErrBidTooLow)))
	require.NoError(t, b.Commit(1))

	res, err := s.TxResult(hash)
	require.NoError(t, err)
	assert.Equal(t, types.CodeBidTooLow, res.Code)
	assert.EqualValues(t, 1, res.Height)
	assert.False(t, res.IsOK())
}
