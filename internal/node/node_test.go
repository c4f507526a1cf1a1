package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/auctionledger/auctiond/config"
	"github.com/auctionledger/auctiond/internal/rpc"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/types"
)

// One node per test binary: the Prometheus collectors register globally.
func TestNodeLifecycle(t *testing.T) {
	defer leaktest.CheckTimeout(t, 10*time.Second)()

	cfg := config.TestConfig()
	cfg.RootDir = t.TempDir()

	n, err := NewNode(cfg, log.NewNopLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, n.Start(ctx))
	defer func() {
		cancel()
		n.Wait()
	}()

	base := "http://" + n.RPCAddr()

	// submit a wallet over HTTP and wait for its block
	pubKey := types.PubKey{0x01, 0x02}
	body, err := json.Marshal(rpc.CreateWalletRequest{PubKey: pubKey, Name: "alice", Balance: 100})
	require.NoError(t, err)

	resp, err := http.Post(base+"/v1/wallets", "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	var walletResp rpc.CreateWalletResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&walletResp))
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Eventually(t, func() bool {
		resp, err := http.Get(fmt.Sprintf("%s/v1/tx?hash=%X", base, []byte(walletResp.TxHash)))
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond, "wallet tx never committed")

	w, err := n.Store().Wallet(pubKey)
	require.NoError(t, err)
	assert.EqualValues(t, 100, w.Available)

	// metrics endpoint is wired
	resp, err = http.Get(base + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, n.Stop())
	n.Wait()
}

func TestNewNodeRejectsInvalidConfig(t *testing.T) {
	cfg := config.TestConfig()
	cfg.RootDir = t.TempDir()
	cfg.Mempool.Size = 0

	_, err := NewNode(cfg, log.NewNopLogger())
	require.Error(t, err)
}
