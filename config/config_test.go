package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.ValidateBasic())

	assert.Equal(t, "goleveldb", cfg.DBBackend)
	assert.Equal(t, "127.0.0.1:8000", cfg.RPC.ListenAddress)

	cfg.RootDir = "/tmp/auctiond"
	assert.Equal(t, "/tmp/auctiond/data", cfg.DBDir())
}

func TestTestConfig(t *testing.T) {
	cfg := TestConfig()
	require.NoError(t, cfg.ValidateBasic())
	assert.Equal(t, "memdb", cfg.DBBackend)
}

func TestValidateBasic(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"empty rpc laddr", func(cfg *Config) { cfg.RPC.ListenAddress = "" }, "[rpc]"},
		{"zero wait timeout", func(cfg *Config) { cfg.RPC.TimeoutWaitTx = 0 }, "[rpc]"},
		{"zero mempool size", func(cfg *Config) { cfg.Mempool.Size = 0 }, "[mempool]"},
		{"zero block interval", func(cfg *Config) { cfg.Consensus.CreateBlockInterval = 0 }, "[consensus]"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			err := cfg.ValidateBasic()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
