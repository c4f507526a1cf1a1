package types

import (
	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
)

// Bid is an immutable entry in a lot's bid history, recorded with the height
// of the block that committed it. Per-lot insertion order is chronological.
type Bid struct {
	Bidder PubKey           `json:"bidder"`
	LotID  tmbytes.HexBytes `json:"lot_id"`
	Amount uint64           `json:"amount"`
	Height int64            `json:"height"`
}
