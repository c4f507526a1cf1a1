package consensus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/auctionledger/auctiond/config"
	"github.com/auctionledger/auctiond/internal/eventbus"
	"github.com/auctionledger/auctiond/internal/mempool"
	"github.com/auctionledger/auctiond/internal/state"
	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/libs/service"
	"github.com/auctionledger/auctiond/types"
)

// ErrTxTimedOut is returned by WaitTx when the caller's deadline passes
// before the transaction reaches a terminal state. The transaction is not
// cancelled; its outcome can be fetched later by hash.
var ErrTxTimedOut = errors.New("timed out waiting for tx to commit; it remains queued, query its status later")

// Coordinator accepts submitted transactions, assigns each its content hash,
// batches accepted transactions into ordered blocks and notifies waiters once
// a block is finalized.
//
// Per transaction it drives the Submitted -> Queued -> Committed|Rejected
// state machine: hashing and duplicate detection at submission, strict
// arrival-order validation and execution inside the block, a persisted
// terminal outcome afterwards.
type Coordinator struct {
	service.BaseService
	logger log.Logger

	config    *config.ConsensusConfig
	store     *store.Store
	blockExec *state.BlockExecutor
	mempool   *mempool.Mempool
	eventBus  *eventbus.EventBus
	metrics   *Metrics

	// serializes block formation between the interval loop and Commit
	// callers
	commitMtx sync.Mutex
}

// NewCoordinator wires a coordinator over the given store and queue.
func NewCoordinator(
	cfg *config.ConsensusConfig,
	s *store.Store,
	blockExec *state.BlockExecutor,
	mem *mempool.Mempool,
	bus *eventbus.EventBus,
	metrics *Metrics,
	logger log.Logger,
) *Coordinator {
	cs := &Coordinator{
		logger:    logger,
		config:    cfg,
		store:     s,
		blockExec: blockExec,
		mempool:   mem,
		eventBus:  bus,
		metrics:   metrics,
	}
	cs.BaseService = *service.NewBaseService(logger, "Coordinator", cs)
	return cs
}

// OnStart launches the block production loop.
func (cs *Coordinator) OnStart(ctx context.Context) error {
	height, err := cs.store.Height()
	if err != nil {
		return fmt.Errorf("reading committed height: %w", err)
	}
	cs.metrics.Height.Set(float64(height))
	cs.logger.Info("starting block production", "height", height, "interval", cs.config.CreateBlockInterval)

	go cs.blockRoutine(ctx)
	return nil
}

func (cs *Coordinator) OnStop() {}

// SubmitTx queues a transaction and returns its hash key. Submission is
// asynchronous: the transaction commits with a later block. Resubmitting
// identical content returns the same key with no error, whether the original
// is still queued or already has a recorded outcome.
//
// Safe for concurrent use.
func (cs *Coordinator) SubmitTx(tx types.Tx) (types.TxKey, error) {
	key := tx.Key()

	if err := tx.ValidateBasic(); err != nil {
		return key, fmt.Errorf("invalid tx: %w", err)
	}

	// known terminal outcome: idempotent duplicate submission
	if _, err := cs.store.TxResult(tx.Hash()); err == nil {
		return key, nil
	} else if !errors.Is(err, store.ErrNotFound) {
		return key, err
	}

	err := cs.mempool.AddTx(tx)
	switch {
	case err == nil:
		cs.logger.Debug("queued tx", "tx", tx.Hash())
		return key, nil
	case errors.Is(err, mempool.ErrTxInMempool):
		// already queued: same key, same eventual outcome
		return key, nil
	default:
		return key, err
	}
}

// WaitTx blocks until the transaction with the given key reaches a terminal
// state, returning its outcome. If ctx expires first it returns
// ErrTxTimedOut; the transaction stays queued and may still commit.
func (cs *Coordinator) WaitTx(ctx context.Context, key types.TxKey) (*types.TxResult, error) {
	sub := cs.eventBus.SubscribeTx(key)
	defer cs.eventBus.UnsubscribeTx(sub)

	// the outcome may have been recorded before we subscribed
	res, err := cs.store.TxResult(key[:])
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}

	select {
	case res := <-sub.Out():
		return res, nil
	case <-ctx.Done():
		return nil, ErrTxTimedOut
	}
}

// Commit drains the queue into one block and applies it, advancing the
// height by exactly one. With an empty queue it produces an empty block only
// if the configuration asks for them. This is the hook an external ordering
// layer (or a test) uses to drive block formation directly.
func (cs *Coordinator) Commit() error {
	cs.commitMtx.Lock()
	defer cs.commitMtx.Unlock()

	txs := cs.mempool.Reap()
	if len(txs) == 0 && !cs.config.CreateEmptyBlocks {
		return nil
	}

	start := time.Now()
	results, height, err := cs.blockExec.ApplyBlock(txs)
	if err != nil {
		// nothing was written and the height did not advance; this is a
		// service-level failure, not a tx rejection
		return fmt.Errorf("block application failed: %w", err)
	}

	keys := make([]types.TxKey, len(txs))
	for i, tx := range txs {
		keys[i] = tx.Key()
	}
	cs.mempool.Update(keys)

	cs.eventBus.PublishBlock(results)

	cs.metrics.Height.Set(float64(height))
	cs.metrics.BlockProcessingTime.Observe(time.Since(start).Seconds())
	for _, res := range results {
		if res.IsOK() {
			cs.metrics.CommittedTxs.Add(1)
		} else {
			cs.metrics.RejectedTxs.Add(1)
		}
	}
	return nil
}

func (cs *Coordinator) blockRoutine(ctx context.Context) {
	ticker := time.NewTicker(cs.config.CreateBlockInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-cs.Quit():
			return
		case <-ticker.C:
			if err := cs.Commit(); err != nil {
				// a failed block must not be skipped over: stop instead
				// of silently advancing past it
				cs.logger.Error("halting block production", "err", err)
				if serr := cs.Stop(); serr != nil {
					cs.logger.Error("error stopping coordinator", "err", serr)
				}
				return
			}
		}
	}
}
