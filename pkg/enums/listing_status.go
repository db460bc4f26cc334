package enums

// ListingStatus is the derived lifecycle phase of a listing. It is
// computed from the start/end window and the closed flag at read time
// and never written to storage.
type ListingStatus string

const (
	// ListingStatusPending means the start time has not been reached yet.
	ListingStatusPending ListingStatus = "pending"
	// ListingStatusOpen means bidding is live.
	ListingStatusOpen ListingStatus = "open"
	// ListingStatusEnded means the end time passed without the owner
	// closing the listing.
	ListingStatusEnded ListingStatus = "ended"
	// ListingStatusClosed means the owner closed the listing.
	ListingStatusClosed ListingStatus = "closed"
)

// String implements fmt.Stringer.
func (s ListingStatus) String() string {
	return string(s)
}
