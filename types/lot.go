package types

import (
	tmbytes "github.com/auctionledger/auctiond/libs/bytes"
)

// Lot is a single auction item. It is identified by the hash of the
// transaction that created it and never deleted; there is no closing
// transaction, so the highest bidder's funds stay frozen until superseded.
type Lot struct {
	ID     tmbytes.HexBytes `json:"id"`
	Owner  PubKey           `json:"owner"`
	Name   string           `json:"name"`
	MinBid uint64           `json:"min_bid"`

	// HighestBid starts at MinBid; a new bid must strictly exceed it.
	HighestBid uint64 `json:"highest_bid"`
	// HighestBidder is empty until the first bid is accepted.
	HighestBidder PubKey `json:"highest_bidder,omitempty"`
}

// NewLot returns a lot with the highest bid initialized to the minimum bid
// and no bidder.
func NewLot(id tmbytes.HexBytes, owner PubKey, name string, minBid uint64) Lot {
	return Lot{
		ID:         id,
		Owner:      owner,
		Name:       name,
		MinBid:     minBid,
		HighestBid: minBid,
	}
}

// HasBidder reports whether any bid has been accepted on the lot.
func (l Lot) HasBidder() bool { return len(l.HighestBidder) > 0 }
