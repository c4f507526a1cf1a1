package rpc

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/libs/service"
)

// Server exposes the ledger over HTTP: asynchronous transaction submission,
// the synchronous wait-for-commit bid endpoint and read-only queries, plus
// Prometheus metrics.
type Server struct {
	service.BaseService
	logger log.Logger

	env      *Environment
	srv      *http.Server
	listener net.Listener
}

// NewServer returns an HTTP server for the given environment.
func NewServer(env *Environment, logger log.Logger) *Server {
	s := &Server{
		logger: logger,
		env:    env,
	}
	s.BaseService = *service.NewBaseService(logger, "RPCServer", s)
	return s
}

// Router builds the route table. Exposed for tests driving handlers through
// httptest.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/v1/wallets", s.env.PostWallet).Methods(http.MethodPost)
	r.HandleFunc("/v1/wallets", s.env.GetWallets).Methods(http.MethodGet)
	r.HandleFunc("/v1/wallet", s.env.GetWallet).Methods(http.MethodGet)
	r.HandleFunc("/v1/lots", s.env.PostLot).Methods(http.MethodPost)
	r.HandleFunc("/v1/bids", s.env.PostBid).Methods(http.MethodPost)
	r.HandleFunc("/v1/bids", s.env.GetBids).Methods(http.MethodGet)
	r.HandleFunc("/v1/tx", s.env.GetTx).Methods(http.MethodGet)
	r.HandleFunc("/v1/status", s.env.GetStatus).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var handler http.Handler = r
	if len(s.env.Config.CORSAllowedOrigins) > 0 {
		handler = cors.New(cors.Options{
			AllowedOrigins: s.env.Config.CORSAllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}).Handler(handler)
	}
	return handler
}

// OnStart binds the listen address and begins serving.
func (s *Server) OnStart(ctx context.Context) error {
	listener, err := net.Listen("tcp", s.env.Config.ListenAddress)
	if err != nil {
		return err
	}
	s.listener = listener
	s.srv = &http.Server{
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Info("serving HTTP", "addr", listener.Addr().String())
	go func() {
		if err := s.srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			s.logger.Error("HTTP server terminated", "err", err)
		}
	}()
	return nil
}

// OnStop closes the server, interrupting in-flight requests.
func (s *Server) OnStop() {
	if s.srv != nil {
		_ = s.srv.Close()
	}
}

// Addr returns the bound listen address, useful when the configuration asked
// for an ephemeral port.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}
