package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlots/openlots-backend/pkg/enums"
)

// Listing is an auction lot. Whether it is open for bidding is never
// stored; it is derived from the start/end window, the current time, and
// the owner-settable closed flag.
type Listing struct {
	ID            int64                  `gorm:"column:id;primaryKey;autoIncrement"`
	OwnerID       int64                  `gorm:"column:owner_id;not null;index:listings_owner_id_idx"`
	Title         string                 `gorm:"column:title;not null"`
	Description   string                 `gorm:"column:description;not null"`
	Category      enums.ListingCategory  `gorm:"column:category;not null"`
	Condition     enums.ListingCondition `gorm:"column:condition;not null"`
	ImageURL      *string                `gorm:"column:image_url"`
	StartingPrice decimal.Decimal        `gorm:"column:starting_price;type:numeric(12,2);not null"`
	StartDatetime time.Time              `gorm:"column:start_datetime;not null;index:listings_start_datetime_idx"`
	EndDatetime   time.Time              `gorm:"column:end_datetime;not null;index:listings_end_datetime_idx"`
	Closed        bool                   `gorm:"column:closed;not null;default:false"`
	Owner         *User                  `gorm:"foreignKey:OwnerID"`
	Bids          []Bid                  `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	Comments      []Comment              `gorm:"foreignKey:ListingID;constraint:OnDelete:CASCADE"`
	CreatedAt     time.Time              `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time              `gorm:"column:updated_at;autoUpdateTime"`
}
