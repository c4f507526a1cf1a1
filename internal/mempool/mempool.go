package mempool

import (
	"errors"
	"sync"

	"github.com/auctionledger/auctiond/types"
)

// ErrTxInMempool is returned when an identical transaction is already queued.
// Duplicate submission is not a failure: the caller already holds the hash
// and can wait on it.
var ErrTxInMempool = errors.New("tx already in mempool")

// ErrMempoolIsFull is returned when the queue has reached its configured
// capacity.
var ErrMempoolIsFull = errors.New("mempool is full")

// Mempool is the pending-transaction queue feeding block formation.
// Submission may happen concurrently from many callers; draining into a block
// is done by the commit coordinator alone, preserving best-effort FIFO
// arrival order.
//
// A transaction stays in the duplicate-detection index from AddTx until
// Update after its block commits, so a resubmission between Reap and commit
// still maps onto the original entry.
type Mempool struct {
	maxSize int
	metrics *Metrics

	mtx   sync.Mutex
	queue []types.Tx
	index map[types.TxKey]struct{}
}

// NewMempool returns an empty mempool holding at most maxSize transactions.
func NewMempool(maxSize int, metrics *Metrics) *Mempool {
	return &Mempool{
		maxSize: maxSize,
		metrics: metrics,
		index:   make(map[types.TxKey]struct{}),
	}
}

// AddTx appends a transaction to the queue. It returns ErrTxInMempool if an
// identical transaction is queued or awaiting commit, and ErrMempoolIsFull if
// the queue is at capacity.
func (mem *Mempool) AddTx(tx types.Tx) error {
	mem.mtx.Lock()
	defer mem.mtx.Unlock()

	key := tx.Key()
	if _, ok := mem.index[key]; ok {
		return ErrTxInMempool
	}
	if len(mem.queue) >= mem.maxSize {
		mem.metrics.FullRejections.Add(1)
		return ErrMempoolIsFull
	}

	mem.index[key] = struct{}{}
	mem.queue = append(mem.queue, tx)
	mem.metrics.Size.Set(float64(len(mem.queue)))
	return nil
}

// Has reports whether a transaction with the given key is queued or awaiting
// commit.
func (mem *Mempool) Has(key types.TxKey) bool {
	mem.mtx.Lock()
	defer mem.mtx.Unlock()
	_, ok := mem.index[key]
	return ok
}

// Reap drains the queue in arrival order for block formation. The reaped
// transactions remain in the duplicate index until Update is called with
// their keys.
func (mem *Mempool) Reap() []types.Tx {
	mem.mtx.Lock()
	defer mem.mtx.Unlock()

	txs := mem.queue
	mem.queue = nil
	mem.metrics.Size.Set(0)
	return txs
}

// Update removes committed transactions from the duplicate index. From this
// point a duplicate submission is answered from the stored outcome instead.
func (mem *Mempool) Update(keys []types.TxKey) {
	mem.mtx.Lock()
	defer mem.mtx.Unlock()

	for _, key := range keys {
		delete(mem.index, key)
	}
}

// Size returns the number of queued transactions.
func (mem *Mempool) Size() int {
	mem.mtx.Lock()
	defer mem.mtx.Unlock()
	return len(mem.queue)
}
