package eventbus

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auctionledger/auctiond/types"
)

func TestEventBusDeliversToAllWaiters(t *testing.T) {
	bus := NewEventBus()

	tx := types.NewCreateWalletTx(types.PubKey{0x01}, "alice", 100)
	sub1 := bus.SubscribeTx(tx.Key())
	sub2 := bus.SubscribeTx(tx.Key())

	res := types.NewTxResultOK(tx.Hash(), 3)
	bus.PublishBlock([]*types.TxResult{res})

	for _, sub := range []*TxSubscription{sub1, sub2} {
		select {
		case got := <-sub.Out():
			assert.Equal(t, res, got)
		case <-time.After(time.Second):
			t.Fatal("waiter did not receive result")
		}
	}
}

func TestEventBusUnsubscribe(t *testing.T) {
	bus := NewEventBus()

	tx := types.NewCreateWalletTx(types.PubKey{0x02}, "bob", 100)
	sub := bus.SubscribeTx(tx.Key())
	kept := bus.SubscribeTx(tx.Key())
	bus.UnsubscribeTx(sub)

	bus.PublishBlock([]*types.TxResult{types.NewTxResultOK(tx.Hash(), 1)})

	select {
	case <-kept.Out():
	case <-time.After(time.Second):
		t.Fatal("remaining waiter did not receive result")
	}
	select {
	case <-sub.Out():
		t.Fatal("unsubscribed waiter received result")
	default:
	}

	// unsubscribing twice, or after publication, is harmless
	bus.UnsubscribeTx(sub)
	bus.UnsubscribeTx(kept)
}

func TestEventBusPublishWithoutWaiters(t *testing.T) {
	bus := NewEventBus()

	tx := types.NewCreateWalletTx(types.PubKey{0x03}, "carol", 100)
	bus.PublishBlock([]*types.TxResult{types.NewTxResultOK(tx.Hash(), 1)})

	// a subscription made after the block committed is never released by
	// that block; the caller must consult the store
	sub := bus.SubscribeTx(tx.Key())
	select {
	case <-sub.Out():
		t.Fatal("late subscriber must not see a past block")
	default:
	}
	bus.UnsubscribeTx(sub)
}

func TestEventBusUnrelatedTx(t *testing.T) {
	bus := NewEventBus()

	waiting := types.NewCreateWalletTx(types.PubKey{0x04}, "dave", 100)
	other := types.NewCreateWalletTx(types.PubKey{0x05}, "erin", 100)

	sub := bus.SubscribeTx(waiting.Key())
	bus.PublishBlock([]*types.TxResult{types.NewTxResultOK(other.Hash(), 1)})

	select {
	case <-sub.Out():
		t.Fatal("received result for an unrelated tx")
	default:
	}

	require.NotNil(t, sub.Out())
	bus.UnsubscribeTx(sub)
}
