package types

import "fmt"

// TxCode classifies the outcome of an executed transaction. Code zero means
// the transaction was applied; every other code is a rejection reason.
type TxCode uint32

const (
	CodeOK TxCode = iota
	CodeDuplicateWallet
	CodeUnknownOwner
	CodeUnknownBidder
	CodeUnknownLot
	CodeInsufficientFunds
	CodeBidTooLow
	CodeSelfBid
)

// TxError is a coded validation failure. It is recorded as the transaction's
// terminal outcome and surfaced to the submitter; it is never retried.
type TxError struct {
	Code   TxCode
	Reason string
}

func (e *TxError) Error() string {
	return fmt.Sprintf("tx rejected (code %d): %s", e.Code, e.Reason)
}

var (
	// ErrDuplicateWallet is emitted by create-wallet when the public key
	// already has a wallet.
	ErrDuplicateWallet = &TxError{CodeDuplicateWallet, "wallet already exists"}

	// ErrUnknownOwner is emitted by create-lot when the owner wallet does
	// not exist.
	ErrUnknownOwner = &TxError{CodeUnknownOwner, "owner wallet does not exist"}

	// ErrUnknownBidder is emitted by place-bid when the bidder wallet does
	// not exist.
	ErrUnknownBidder = &TxError{CodeUnknownBidder, "bidder wallet does not exist"}

	// ErrUnknownLot is emitted by place-bid when the lot does not exist.
	ErrUnknownLot = &TxError{CodeUnknownLot, "lot does not exist"}

	// ErrInsufficientFunds is emitted by place-bid when the bidder's
	// available balance is below the bid amount.
	ErrInsufficientFunds = &TxError{CodeInsufficientFunds, "available balance insufficient for bid"}

	// ErrBidTooLow is emitted by place-bid unless the amount strictly
	// exceeds the lot's current highest bid. Ties are rejected.
	ErrBidTooLow = &TxError{CodeBidTooLow, "bid not above current highest bid"}

	// ErrSelfBid is emitted by place-bid when the bidder owns the lot.
	ErrSelfBid = &TxError{CodeSelfBid, "bidding not allowed on one's own lot"}
)
