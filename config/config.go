package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

// DefaultAuctiondDir is the default home directory, relative to $HOME.
var DefaultAuctiondDir = ".auctiond"

var defaultDataDir = "data"

// Config defines the top level configuration for an auctiond node.
type Config struct {
	// Top level options use an anonymous struct
	BaseConfig `mapstructure:",squash"`

	// Options for services
	RPC       *RPCConfig       `mapstructure:"rpc"`
	Mempool   *MempoolConfig   `mapstructure:"mempool"`
	Consensus *ConsensusConfig `mapstructure:"consensus"`
}

// DefaultConfig returns a default configuration for an auctiond node.
func DefaultConfig() *Config {
	return &Config{
		BaseConfig: DefaultBaseConfig(),
		RPC:        DefaultRPCConfig(),
		Mempool:    DefaultMempoolConfig(),
		Consensus:  DefaultConsensusConfig(),
	}
}

// TestConfig returns a configuration that can be used for testing: in-memory
// database and a fast block cadence.
func TestConfig() *Config {
	cfg := DefaultConfig()
	cfg.DBBackend = "memdb"
	cfg.RPC.ListenAddress = "127.0.0.1:0"
	cfg.Consensus.CreateBlockInterval = 10 * time.Millisecond
	return cfg
}

// ValidateBasic performs basic validation (checking param bounds, etc.) and
// returns an error if any check fails.
func (cfg *Config) ValidateBasic() error {
	if err := cfg.RPC.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [rpc] section")
	}
	if err := cfg.Mempool.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [mempool] section")
	}
	if err := cfg.Consensus.ValidateBasic(); err != nil {
		return errors.Wrap(err, "error in [consensus] section")
	}
	return nil
}

//-----------------------------------------------------------------------------
// BaseConfig

// BaseConfig defines the base configuration for an auctiond node.
type BaseConfig struct {
	// The root directory for all data.
	RootDir string `mapstructure:"home"`

	// Database backend: goleveldb | memdb
	DBBackend string `mapstructure:"db-backend"`

	// Database directory, relative to RootDir
	DBPath string `mapstructure:"db-dir"`

	// Output level for logging
	LogLevel string `mapstructure:"log-level"`

	// Output format: 'plain' (colored text) or 'json'
	LogFormat string `mapstructure:"log-format"`
}

// DefaultBaseConfig returns a default base configuration.
func DefaultBaseConfig() BaseConfig {
	return BaseConfig{
		DBBackend: "goleveldb",
		DBPath:    defaultDataDir,
		LogLevel:  "info",
		LogFormat: "plain",
	}
}

// DBDir returns the full path to the database directory.
func (cfg BaseConfig) DBDir() string {
	return filepath.Join(cfg.RootDir, cfg.DBPath)
}

//-----------------------------------------------------------------------------
// RPCConfig

// RPCConfig defines the configuration for the HTTP API server.
type RPCConfig struct {
	// TCP address for the server to listen on
	ListenAddress string `mapstructure:"laddr"`

	// A list of origins a cross-domain request can be executed from.
	// If the special '*' value is present in the list, all origins will
	// be allowed.
	CORSAllowedOrigins []string `mapstructure:"cors-allowed-origins"`

	// How long a synchronous bid placement waits for its transaction to
	// reach a terminal state before telling the caller to retry. The
	// transaction itself is not cancelled on timeout.
	TimeoutWaitTx time.Duration `mapstructure:"timeout-wait-tx"`
}

// DefaultRPCConfig returns a default configuration for the HTTP API server.
func DefaultRPCConfig() *RPCConfig {
	return &RPCConfig{
		ListenAddress: "127.0.0.1:8000",
		TimeoutWaitTx: 10 * time.Second,
	}
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (cfg *RPCConfig) ValidateBasic() error {
	if cfg.ListenAddress == "" {
		return errors.New("laddr must not be empty")
	}
	if cfg.TimeoutWaitTx <= 0 {
		return errors.New("timeout-wait-tx must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// MempoolConfig

// MempoolConfig defines the configuration for the transaction queue.
type MempoolConfig struct {
	// Maximum number of queued transactions
	Size int `mapstructure:"size"`
}

// DefaultMempoolConfig returns a default configuration for the queue.
func DefaultMempoolConfig() *MempoolConfig {
	return &MempoolConfig{
		Size: 5000,
	}
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (cfg *MempoolConfig) ValidateBasic() error {
	if cfg.Size <= 0 {
		return errors.New("size must be positive")
	}
	return nil
}

//-----------------------------------------------------------------------------
// ConsensusConfig

// ConsensusConfig defines the cadence at which queued transactions are formed
// into blocks. In a replicated deployment the external ordering layer drives
// block formation instead; the interval here stands in for it.
type ConsensusConfig struct {
	// How often the queue is drained into a block
	CreateBlockInterval time.Duration `mapstructure:"create-block-interval"`

	// EmptyBlocks controls whether a block is produced when the queue is
	// empty at the tick
	CreateEmptyBlocks bool `mapstructure:"create-empty-blocks"`
}

// DefaultConsensusConfig returns a default configuration for block formation.
func DefaultConsensusConfig() *ConsensusConfig {
	return &ConsensusConfig{
		CreateBlockInterval: time.Second,
		CreateEmptyBlocks:   false,
	}
}

// ValidateBasic performs basic validation and returns an error if any check
// fails.
func (cfg *ConsensusConfig) ValidateBasic() error {
	if cfg.CreateBlockInterval <= 0 {
		return fmt.Errorf("create-block-interval must be positive, got %v", cfg.CreateBlockInterval)
	}
	return nil
}
