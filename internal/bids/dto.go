package bids

import (
	"time"

	"github.com/shopspring/decimal"
)

// BidDTO is the read model for an accepted bid.
type BidDTO struct {
	ID             int64           `json:"id"`
	ListingID      int64           `json:"listing_id"`
	BidderID       int64           `json:"bidder_id"`
	BidderUsername string          `json:"bidder_username"`
	Amount         decimal.Decimal `json:"amount"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BidPagination carries cursor pagination metadata for bid pages.
type BidPagination struct {
	Total   int    `json:"total"`
	Current string `json:"current"`
	Next    string `json:"next"`
}

// BidsPageDTO is one page of bids for a listing, newest first.
type BidsPageDTO struct {
	Items      []BidDTO      `json:"items"`
	Pagination BidPagination `json:"pagination"`
}

// Rejection reasons reported in error details and metrics labels.
const (
	ReasonAmountTooLow   = "amount_too_low"
	ReasonListingNotOpen = "listing_not_open"
	ReasonSelfBid        = "self_bid"
)
