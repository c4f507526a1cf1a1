package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/auctionledger/auctiond/libs/log"
)

type testService struct {
	BaseService
	started chan struct{}
}

func newTestService() *testService {
	ts := &testService{started: make(chan struct{}, 1)}
	ts.BaseService = *NewBaseService(log.NewNopLogger(), "TestService", ts)
	return ts
}

func (ts *testService) OnStart(ctx context.Context) error {
	ts.started <- struct{}{}
	return nil
}

func (ts *testService) OnStop() {}

func TestBaseServiceStartStop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ts := newTestService()
	require.NoError(t, ts.Start(ctx))
	<-ts.started
	require.True(t, ts.IsRunning())

	require.Error(t, ts.Start(ctx), "second Start must fail")

	require.NoError(t, ts.Stop())
	require.False(t, ts.IsRunning())
	require.Error(t, ts.Stop(), "second Stop must fail")

	ts.Wait()
}

func TestBaseServiceContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	ts := newTestService()
	require.NoError(t, ts.Start(ctx))
	<-ts.started

	cancel()

	select {
	case <-ts.Quit():
	case <-time.After(time.Second):
		t.Fatal("service did not stop after context cancellation")
	}
	require.False(t, ts.IsRunning())
}
