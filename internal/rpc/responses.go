package rpc

import (
	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
	"github.com/auctionledger/auctiond/types"
)

// CreateWalletRequest is the body of POST /v1/wallets.
type CreateWalletRequest struct {
	PubKey  types.PubKey `json:"pub_key"`
	Name    string       `json:"name"`
	Balance uint64       `json:"balance"`
}

// CreateLotRequest is the body of POST /v1/lots.
type CreateLotRequest struct {
	Owner  types.PubKey `json:"owner"`
	Name   string       `json:"name"`
	MinBid uint64       `json:"min_bid"`
}

// PlaceBidRequest is the body of POST /v1/bids.
type PlaceBidRequest struct {
	Owner  types.PubKey     `json:"owner"`
	Lot    tmbytes.HexBytes `json:"lot"`
	Amount uint64           `json:"amount"`
}

// TxResponse is the asynchronous response to a queued transaction.
type TxResponse struct {
	TxHash tmbytes.HexBytes `json:"tx_hash"`
}

// CreateWalletResponse echoes the wallet key along with the transaction hash.
type CreateWalletResponse struct {
	TxHash tmbytes.HexBytes `json:"tx_hash"`
	PubKey types.PubKey     `json:"pub_key"`
}

// TxSyncResponse is returned once a synchronously-awaited transaction reaches
// its terminal state. Height is the block at which it took effect; a non-zero
// code means it was rejected with the given reason.
type TxSyncResponse struct {
	TxHash tmbytes.HexBytes `json:"tx_hash"`
	Height int64            `json:"tx_block_height"`
	Code   types.TxCode     `json:"code"`
	Reason string           `json:"reason,omitempty"`
}

// BidHistoryResponse holds a lot's full bid history.
type BidHistoryResponse struct {
	Bids []types.Bid `json:"bids"`
}

// StatusResponse reports the node's last committed height.
type StatusResponse struct {
	Height int64 `json:"height"`
}

// ErrorResponse is the envelope for every non-2xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}
