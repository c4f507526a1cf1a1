package rpc

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/auctionledger/auctiond/config"
	"github.com/auctionledger/auctiond/internal/consensus"
	"github.com/auctionledger/auctiond/internal/mempool"
	"github.com/auctionledger/auctiond/internal/store"
	"github.com/auctionledger/auctiond/libs/log"
	"github.com/auctionledger/auctiond/types"
)

// Environment bundles everything the HTTP handlers need: the coordinator for
// the write path and the store for read-only queries against committed state.
type Environment struct {
	Logger      log.Logger
	Config      *config.RPCConfig
	Store       *store.Store
	Coordinator *consensus.Coordinator
}

// PostWallet queues a create-wallet transaction and returns its hash without
// waiting for commitment.
func (env *Environment) PostWallet(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx := types.NewCreateWalletTx(req.PubKey, req.Name, req.Balance)
	if _, err := env.Coordinator.SubmitTx(tx); err != nil {
		env.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CreateWalletResponse{TxHash: tx.Hash(), PubKey: req.PubKey})
}

// PostLot queues a create-lot transaction and returns its hash without
// waiting for commitment. The hash doubles as the future lot identifier.
func (env *Environment) PostLot(w http.ResponseWriter, r *http.Request) {
	var req CreateLotRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx := types.NewCreateLotTx(req.Owner, req.Name, req.MinBid)
	if _, err := env.Coordinator.SubmitTx(tx); err != nil {
		env.writeSubmitError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, TxResponse{TxHash: tx.Hash()})
}

// PostBid queues a place-bid transaction and blocks until it reaches a
// terminal state, so the caller learns the exact block height at which the
// bid took effect. On timeout the transaction stays queued and the caller is
// told to poll /v1/tx.
func (env *Environment) PostBid(w http.ResponseWriter, r *http.Request) {
	var req PlaceBidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tx := types.NewPlaceBidTx(req.Owner, req.Lot, req.Amount)
	key, err := env.Coordinator.SubmitTx(tx)
	if err != nil {
		env.writeSubmitError(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), env.Config.TimeoutWaitTx)
	defer cancel()

	res, err := env.Coordinator.WaitTx(ctx, key)
	if errors.Is(err, consensus.ErrTxTimedOut) {
		writeJSON(w, http.StatusRequestTimeout, ErrorResponse{Error: err.Error()})
		return
	}
	if err != nil {
		env.Logger.Error("waiting for bid commit", "tx", tx.Hash(), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusOK, TxSyncResponse{
		TxHash: res.Hash,
		Height: res.Height,
		Code:   res.Code,
		Reason: res.Reason,
	})
}

// GetWallet serves a single wallet by public key.
func (env *Environment) GetWallet(w http.ResponseWriter, r *http.Request) {
	pubKey, ok := hexQueryParam(w, r, "pub_key")
	if !ok {
		return
	}

	wallet, err := env.Store.Wallet(pubKey)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "wallet not found")
		return
	}
	if err != nil {
		env.Logger.Error("reading wallet", "pub_key", types.PubKey(pubKey), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

// GetWallets serves all wallets in creation order.
func (env *Environment) GetWallets(w http.ResponseWriter, r *http.Request) {
	wallets, err := env.Store.Wallets()
	if err != nil {
		env.Logger.Error("listing wallets", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if wallets == nil {
		wallets = []types.Wallet{}
	}
	writeJSON(w, http.StatusOK, wallets)
}

// GetBids serves the full bid history of a lot, oldest first.
func (env *Environment) GetBids(w http.ResponseWriter, r *http.Request) {
	id, ok := hexQueryParam(w, r, "id")
	if !ok {
		return
	}

	bids, err := env.Store.Bids(id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "lot not found")
		return
	}
	if err != nil {
		env.Logger.Error("reading bid history", "lot", types.PubKey(id), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, BidHistoryResponse{Bids: bids})
}

// GetTx serves the terminal outcome of a transaction; a transaction that is
// unknown or still pending is a 404, so callers poll until it appears.
func (env *Environment) GetTx(w http.ResponseWriter, r *http.Request) {
	hash, ok := hexQueryParam(w, r, "hash")
	if !ok {
		return
	}

	res, err := env.Store.TxResult(hash)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "tx not committed yet or unknown")
		return
	}
	if err != nil {
		env.Logger.Error("reading tx result", "hash", types.PubKey(hash), "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// GetStatus serves the last committed block height.
func (env *Environment) GetStatus(w http.ResponseWriter, r *http.Request) {
	height, err := env.Store.Height()
	if err != nil {
		env.Logger.Error("reading height", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, StatusResponse{Height: height})
}

func (env *Environment) writeSubmitError(w http.ResponseWriter, err error) {
	// an over-full queue is the server's fault, a malformed tx the caller's
	if errors.Is(err, mempool.ErrMempoolIsFull) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeError(w, http.StatusBadRequest, err.Error())
}

func hexQueryParam(w http.ResponseWriter, r *http.Request, name string) ([]byte, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		writeError(w, http.StatusBadRequest, "missing query parameter "+name)
		return nil, false
	}
	bz, err := hex.DecodeString(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "query parameter "+name+" is not valid hex")
		return nil, false
	}
	return bz, true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
