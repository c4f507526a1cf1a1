package node

import (
	"context"
	"fmt"

	dbm "github.com/tendermint/tm-db"

	"github.com/auctionledger/auctiond/config"
	"github.com/auctionledger/auctiond/internal/consensus"
	"github.com/auctionledger/auctiond/internal/eventbus"
	"github.com/auctionledger/auctiond/internal/mempool"
	"github.com/auctionledger/auctiond/internal/rpc"
	"github.com/auctionledger/auctiond/internal/state"
	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/libs/service"
)

const metricsNamespace = "auctiond"

// Node assembles the ledger store, the commit coordinator and the HTTP
// server into one runnable service.
type Node struct {
	service.BaseService
	logger log.Logger

	config      *config.Config
	db          dbm.DB
	store       *store.Store
	coordinator *consensus.Coordinator
	rpcServer   *rpc.Server
}

// NewNode opens the database and wires all components. Nothing runs until
// Start.
func NewNode(cfg *config.Config, logger log.Logger) (*Node, error) {
	if err := cfg.ValidateBasic(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := dbm.NewDB("ledger", dbm.BackendType(cfg.DBBackend), cfg.DBDir())
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.DBBackend, err)
	}

	ledgerStore, err := store.NewStore(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("opening ledger store: %w", err)
	}

	blockExec := state.NewBlockExecutor(ledgerStore, logger.With("module", "state"))
	mem := mempool.NewMempool(cfg.Mempool.Size, mempool.PrometheusMetrics(metricsNamespace))
	bus := eventbus.NewEventBus()

	coordinator := consensus.NewCoordinator(
		cfg.Consensus,
		ledgerStore,
		blockExec,
		mem,
		bus,
		consensus.PrometheusMetrics(metricsNamespace),
		logger.With("module", "consensus"),
	)

	rpcServer := rpc.NewServer(&rpc.Environment{
		Logger:      logger.With("module", "rpc"),
		Config:      cfg.RPC,
		Store:       ledgerStore,
		Coordinator: coordinator,
	}, logger.With("module", "rpc"))

	n := &Node{
		logger:      logger,
		config:      cfg,
		db:          db,
		store:       ledgerStore,
		coordinator: coordinator,
		rpcServer:   rpcServer,
	}
	n.BaseService = *service.NewBaseService(logger, "Node", n)
	return n, nil
}

// OnStart starts the coordinator and then the HTTP server.
func (n *Node) OnStart(ctx context.Context) error {
	if err := n.coordinator.Start(ctx); err != nil {
		return fmt.Errorf("starting coordinator: %w", err)
	}
	if err := n.rpcServer.Start(ctx); err != nil {
		_ = n.coordinator.Stop()
		return fmt.Errorf("starting rpc server: %w", err)
	}
	return nil
}

// OnStop shuts components down in reverse start order and closes the
// database.
func (n *Node) OnStop() {
	if err := n.rpcServer.Stop(); err != nil {
		n.logger.Error("stopping rpc server", "err", err)
	}
	if err := n.coordinator.Stop(); err != nil && err != service.ErrAlreadyStopped {
		n.logger.Error("stopping coordinator", "err", err)
	}
	if err := n.db.Close(); err != nil {
		n.logger.Error("closing database", "err", err)
	}
}

// Coordinator exposes the commit coordinator, mainly for tests.
func (n *Node) Coordinator() *consensus.Coordinator { return n.coordinator }

// Store exposes the ledger store for read-only queries.
func (n *Node) Store() *store.Store { return n.store }

// RPCAddr returns the HTTP server's bound address once started.
func (n *Node) RPCAddr() string { return n.rpcServer.Addr() }
