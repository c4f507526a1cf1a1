package consensus

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	dbm "github.com/tendermint/tm-db"

	"github.com/auctionledger/auctiond/config"
	"github.com/auctionledger/auctiond/internal/eventbus"
	"github.com/auctionledger/auctiond/internal/mempool"
	"github.com/auctionledger/auctiond/internal/state"
	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/types"
)

var (
	alice = types.PubKey{0x0a}
	bob   = types.PubKey{0x0b}
)

func newCoordinator(t *testing.T, cfg *config.ConsensusConfig) (*Coordinator, *store.Store) {
	t.Helper()

	s, err := store.NewStore(dbm.NewMemDB())
	require.NoError(t, err)

	logger := log.NewNopLogger()
	cs := NewCoordinator(
		cfg,
		s,
		state.NewBlockExecutor(s, logger),
		mempool.NewMempool(100, mempool.NopMetrics()),
		eventbus.NewEventBus(),
		NopMetrics(),
		logger,
	)
	return cs, s
}

// manualConfig produces blocks only when the test calls Commit directly.
func manualConfig() *config.ConsensusConfig {
	cfg := config.TestConfig().Consensus
	cfg.CreateBlockInterval = time.Hour
	return cfg
}

func TestCoordinatorSubmitAndCommit(t *testing.T) {
	cs, s := newCoordinator(t, manualConfig())

	tx := types.NewCreateWalletTx(alice, "alice", 100)
	key, err := cs.SubmitTx(tx)
	require.NoError(t, err)
	assert.Equal(t, tx.Key(), key)

	// not committed yet
	_, err = s.TxResult(tx.Hash())
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, cs.Commit())

	res, err := s.TxResult(tx.Hash())
	require.NoError(t, err)
	assert.True(t, res.IsOK())
	assert.EqualValues(t, 1, res.Height)

	w, err := s.Wallet(alice)
	require.NoError(t, err)
	assert.EqualValues(t, 100, w.Available)
}

func TestCoordinatorSubmitInvalidTx(t *testing.T) {
	cs, _ := newCoordinator(t, manualConfig())

	_, err := cs.SubmitTx(types.Tx{Kind: types.TxKindPlaceBid})
	require.Error(t, err)
}

func TestCoordinatorIdempotentResubmission(t *testing.T) {
	cs, _ := newCoordinator(t, manualConfig())

	tx := types.NewCreateWalletTx(alice, "alice", 100)

	// duplicate while queued: same key, no error, queued once
	key1, err := cs.SubmitTx(tx)
	require.NoError(t, err)
	key2, err := cs.SubmitTx(tx)
	require.NoError(t, err)
	assert.Equal(t, key1, key2)

	require.NoError(t, cs.Commit())

	// duplicate after commit: same key, answered from the stored outcome,
	// never re-executed
	key3, err := cs.SubmitTx(tx)
	require.NoError(t, err)
	assert.Equal(t, key1, key3)

	require.NoError(t, cs.Commit())
	h, err := cs.store.Height()
	require.NoError(t, err)
	assert.EqualValues(t, 1, h, "resubmission must not form another block")
}

func TestCoordinatorResubmissionRaceKeepsOutcome(t *testing.T) {
	cs, s := newCoordinator(t, manualConfig())

	tx := types.NewCreateWalletTx(alice, "alice", 100)
	_, err := cs.SubmitTx(tx)
	require.NoError(t, err)
	require.NoError(t, cs.Commit())

	res, err := s.TxResult(tx.Hash())
	require.NoError(t, err)
	require.True(t, res.IsOK())
	require.EqualValues(t, 1, res.Height)

	// a resubmitter whose stored-outcome check raced the commit enqueues
	// the duplicate again; the next block must keep the recorded outcome
	// rather than re-execute and reject it
	require.NoError(t, cs.mempool.AddTx(tx))
	require.NoError(t, cs.Commit())

	res, err = s.TxResult(tx.Hash())
	require.NoError(t, err)
	assert.True(t, res.IsOK(), "terminal outcome must not change")
	assert.EqualValues(t, 1, res.Height)
}

func TestCoordinatorConcurrentSubmit(t *testing.T) {
	cs, s := newCoordinator(t, manualConfig())

	// stays under the 100-tx queue built by newCoordinator
	const (
		submitters    = 8
		txsPerRoutine = 10
	)

	// distinct txs from several goroutines, plus every goroutine racing to
	// submit one shared tx
	shared := types.NewCreateWalletTx(types.PubKey{0xff}, "shared", 1)

	var wg sync.WaitGroup
	errs := make(chan error, submitters*(txsPerRoutine+1))
	for g := 0; g < submitters; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < txsPerRoutine; i++ {
				tx := types.NewCreateWalletTx(types.PubKey{byte(g), byte(i)}, fmt.Sprintf("w-%d-%d", g, i), 1)
				if _, err := cs.SubmitTx(tx); err != nil {
					errs <- err
				}
			}
			if _, err := cs.SubmitTx(shared); err != nil {
				errs <- err
			}
		}(g)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Errorf("concurrent submit: %v", err)
	}

	require.NoError(t, cs.Commit())

	wallets, err := s.Wallets()
	require.NoError(t, err)
	assert.Len(t, wallets, submitters*txsPerRoutine+1, "every distinct tx committed exactly once")

	res, err := s.TxResult(shared.Hash())
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestCoordinatorEmptyBlockSkipped(t *testing.T) {
	cfg := manualConfig()
	cfg.CreateEmptyBlocks = false
	cs, s := newCoordinator(t, cfg)

	require.NoError(t, cs.Commit())
	h, err := s.Height()
	require.NoError(t, err)
	assert.Zero(t, h)

	cfg.CreateEmptyBlocks = true
	require.NoError(t, cs.Commit())
	h, err = s.Height()
	require.NoError(t, err)
	assert.EqualValues(t, 1, h)
}

func TestCoordinatorWaitTx(t *testing.T) {
	defer leaktest.Check(t)()

	cs, _ := newCoordinator(t, manualConfig())

	tx := types.NewCreateWalletTx(alice, "alice", 100)
	key, err := cs.SubmitTx(tx)
	require.NoError(t, err)

	done := make(chan *types.TxResult, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		res, err := cs.WaitTx(ctx, key)
		require.NoError(t, err)
		done <- res
	}()

	// give the waiter a moment to subscribe, then form the block
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, cs.Commit())

	select {
	case res := <-done:
		assert.True(t, res.IsOK())
		assert.EqualValues(t, 1, res.Height)
	case <-time.After(5 * time.Second):
		t.Fatal("waiter never released")
	}

	// waiting on an already committed tx returns straight from the store
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	res, err := cs.WaitTx(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestCoordinatorWaitTxTimeout(t *testing.T) {
	defer leaktest.Check(t)()

	cs, s := newCoordinator(t, manualConfig())

	tx := types.NewCreateWalletTx(alice, "alice", 100)
	key, err := cs.SubmitTx(tx)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = cs.WaitTx(ctx, key)
	require.ErrorIs(t, err, ErrTxTimedOut)

	// the timed out tx stayed queued; a later block still commits it and
	// its outcome is queryable by hash
	require.NoError(t, cs.Commit())
	res, err := s.TxResult(tx.Hash())
	require.NoError(t, err)
	assert.True(t, res.IsOK())
}

func TestCoordinatorBlockRoutine(t *testing.T) {
	defer leaktest.CheckTimeout(t, 5*time.Second)()

	cfg := config.TestConfig().Consensus
	cfg.CreateBlockInterval = 10 * time.Millisecond
	cs, _ := newCoordinator(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, cs.Start(ctx))
	t.Cleanup(cs.Wait)

	tx := types.NewCreateWalletTx(bob, "bob", 100)
	key, err := cs.SubmitTx(tx)
	require.NoError(t, err)

	waitCtx, waitCancel := context.WithTimeout(ctx, 5*time.Second)
	defer waitCancel()
	res, err := cs.WaitTx(waitCtx, key)
	require.NoError(t, err)
	assert.True(t, res.IsOK())

	cancel()
	cs.Wait()
}
