package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bid is an accepted offer on a listing. Rejected offers are never
// persisted, so the table only ever holds a strictly increasing series
// per listing.
type Bid struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID int64           `gorm:"column:listing_id;not null;index:bids_listing_id_idx"`
	BidderID  int64           `gorm:"column:bidder_id;not null;index:bids_bidder_id_idx"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
