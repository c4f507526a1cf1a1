package eventbus

import (
	"sync"

	"github.com/google/uuid"

	"github.com/auctionledger/auctiond/types"
)

// EventBus fans block-commit notifications out to callers blocked on a
// transaction reaching its terminal state. There is a single publisher (the
// commit coordinator) and any number of waiters.
type EventBus struct {
	mtx       sync.Mutex
	txWaiters map[types.TxKey]map[string]chan *types.TxResult
}

// NewEventBus returns an event bus with no subscribers.
func NewEventBus() *EventBus {
	return &EventBus{
		txWaiters: make(map[types.TxKey]map[string]chan *types.TxResult),
	}
}

// TxSubscription delivers the terminal outcome of one transaction on Out.
// The channel is buffered: publishing never blocks on a slow waiter, and a
// waiter that gave up just leaves the value for garbage collection.
type TxSubscription struct {
	id  string
	key types.TxKey
	ch  chan *types.TxResult
}

// Out returns the channel the outcome is delivered on. It receives at most
// one value.
func (sub *TxSubscription) Out() <-chan *types.TxResult { return sub.ch }

// SubscribeTx registers a waiter for the transaction with the given key.
// Subscribe before checking the stored outcome, otherwise a commit can slip
// between the check and the subscription.
func (b *EventBus) SubscribeTx(key types.TxKey) *TxSubscription {
	sub := &TxSubscription{
		id:  uuid.NewString(),
		key: key,
		ch:  make(chan *types.TxResult, 1),
	}

	b.mtx.Lock()
	defer b.mtx.Unlock()

	waiters, ok := b.txWaiters[key]
	if !ok {
		waiters = make(map[string]chan *types.TxResult)
		b.txWaiters[key] = waiters
	}
	waiters[sub.id] = sub.ch
	return sub
}

// UnsubscribeTx removes a waiter. The submitted transaction is unaffected: it
// stays queued and may still commit later.
func (b *EventBus) UnsubscribeTx(sub *TxSubscription) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	waiters, ok := b.txWaiters[sub.key]
	if !ok {
		return
	}
	delete(waiters, sub.id)
	if len(waiters) == 0 {
		delete(b.txWaiters, sub.key)
	}
}

// PublishBlock releases every waiter whose transaction reached a terminal
// state in the just-committed block.
func (b *EventBus) PublishBlock(results []*types.TxResult) {
	b.mtx.Lock()
	defer b.mtx.Unlock()

	for _, res := range results {
		var key types.TxKey
		copy(key[:], res.Hash)

		for _, ch := range b.txWaiters[key] {
			ch <- res
		}
		delete(b.txWaiters, key)
	}
}
