package types

import (
	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
)

// TxResult is the terminal outcome of a transaction: either committed at a
// height, or rejected with a coded reason. It is persisted so duplicate
// submissions and later status queries get the same answer.
type TxResult struct {
	Hash   tmbytes.HexBytes `json:"tx_hash"`
	Height int64            `json:"height"`
	Code   TxCode           `json:"code"`
	Reason string           `json:"reason,omitempty"`
}

// IsOK reports whether the transaction was applied.
func (r *TxResult) IsOK() bool { return r.Code == CodeOK }

// NewTxResultOK records a committed transaction.
func NewTxResultOK(hash tmbytes.HexBytes, height int64) *TxResult {
	return &TxResult{Hash: hash, Height: height}
}

// NewTxResultError records a rejected transaction.
func NewTxResultError(hash tmbytes.HexBytes, height int64, txErr *TxError) *TxResult {
	return &TxResult{Hash: hash, Height: height, Code: txErr.Code, Reason: txErr.Reason}
}
