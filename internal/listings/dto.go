package listings

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/enums"
)

// CreateListingInput carries validated fields for a new listing.
type CreateListingInput struct {
	Title         string
	Description   string
	Category      enums.ListingCategory
	Condition     enums.ListingCondition
	ImageURL      *string
	StartingPrice decimal.Decimal
	StartDatetime time.Time
	EndDatetime   time.Time
}

// UpdateListingInput carries the fields a seller may change. Nil fields are
// left untouched.
type UpdateListingInput struct {
	Title         *string
	Description   *string
	Category      *enums.ListingCategory
	Condition     *enums.ListingCondition
	ImageURL      *string
	StartingPrice *decimal.Decimal
	StartDatetime *time.Time
	EndDatetime   *time.Time
}

// TouchesBidding reports whether the update changes the price or window,
// which is off limits once bids exist.
func (in UpdateListingInput) TouchesBidding() bool {
	return in.StartingPrice != nil || in.StartDatetime != nil || in.EndDatetime != nil
}

// ListingDTO is the read model for a listing with derived lifecycle state.
type ListingDTO struct {
	ID            int64               `json:"id"`
	OwnerID       int64               `json:"owner_id"`
	OwnerUsername string              `json:"owner_username"`
	Title         string              `json:"title"`
	Description   string              `json:"description"`
	Category      string              `json:"category,omitempty"`
	Condition     string              `json:"condition"`
	ImageURL      *string             `json:"image_url,omitempty"`
	StartingPrice decimal.Decimal     `json:"starting_price"`
	CurrentBid    decimal.Decimal     `json:"current_bid"`
	MinNextBid    decimal.Decimal     `json:"min_next_bid"`
	BidCount      int                 `json:"bid_count"`
	StartDatetime time.Time           `json:"start_datetime"`
	EndDatetime   time.Time           `json:"end_datetime"`
	IsStarted     bool                `json:"is_started"`
	Active        bool                `json:"active"`
	Closed        bool                `json:"closed"`
	Status        enums.ListingStatus `json:"status"`
	CreatedAt     time.Time           `json:"created_at"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// ListingPagination carries cursor pagination metadata for listing pages.
type ListingPagination struct {
	Page    int    `json:"page"`
	Total   int    `json:"total"`
	Current string `json:"current"`
	First   string `json:"first"`
	Last    string `json:"last"`
	Prev    string `json:"prev"`
	Next    string `json:"next"`
}

// ListingsPageDTO is one page of listing summaries.
type ListingsPageDTO struct {
	Items      []ListingDTO      `json:"items"`
	Pagination ListingPagination `json:"pagination"`
}

// DerivedState captures the lifecycle values computed from the bidding
// window and the closed flag at a point in time.
type DerivedState struct {
	IsStarted bool
	Active    bool
	Status    enums.ListingStatus
}

// DeriveState computes lifecycle state at the provided instant. The window
// bounds are strict: a listing is not yet started at exactly start_datetime
// and no longer active at exactly end_datetime.
func DeriveState(l *models.Listing, now time.Time) DerivedState {
	started := now.After(l.StartDatetime)
	ended := !now.Before(l.EndDatetime)

	state := DerivedState{
		IsStarted: started,
		Active:    started && !ended && !l.Closed,
	}

	switch {
	case l.Closed:
		state.Status = enums.ListingStatusClosed
	case !started:
		state.Status = enums.ListingStatusPending
	case ended:
		state.Status = enums.ListingStatusEnded
	default:
		state.Status = enums.ListingStatusOpen
	}
	return state
}

// CurrentBid resolves the standing price: the highest accepted bid, or the
// starting price when no bids exist.
func CurrentBid(startingPrice decimal.Decimal, maxBid *decimal.Decimal) decimal.Decimal {
	if maxBid == nil {
		return startingPrice
	}
	return *maxBid
}

// MinNextBid is the smallest amount the next bid may carry.
func MinNextBid(startingPrice decimal.Decimal, maxBid *decimal.Decimal) decimal.Decimal {
	return CurrentBid(startingPrice, maxBid).Add(decimal.NewFromInt(1))
}
