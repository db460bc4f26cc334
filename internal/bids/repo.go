package bids

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/pagination"
)

// Repository encapsulates bid persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a bid repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the bid and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, bid *models.Bid) (*models.Bid, error) {
	if err := r.db.WithContext(ctx).Create(bid).Error; err != nil {
		return nil, err
	}
	return bid, nil
}

// MaxAmount returns the highest bid amount on the listing, or nil when the
// listing has no bids.
func (r *Repository) MaxAmount(ctx context.Context, listingID int64) (*decimal.Decimal, error) {
	var max decimal.NullDecimal
	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Select("MAX(amount)").
		Where("listing_id = ?", listingID).
		Scan(&max).
		Error; err != nil {
		return nil, err
	}
	if !max.Valid {
		return nil, nil
	}
	return &max.Decimal, nil
}

// Top returns the standing winning bid: highest amount, and among equal
// amounts the most recently inserted row.
func (r *Repository) Top(ctx context.Context, listingID int64) (*Record, error) {
	var record Record
	err := r.bidQuery(ctx).
		Where("b.listing_id = ?", listingID).
		Order("b.amount DESC").
		Order("b.id DESC").
		Limit(1).
		Take(&record).
		Error
	if err != nil {
		return nil, err
	}
	return &record, nil
}

// CountAtAmount returns how many bids on the listing carry the given amount.
func (r *Repository) CountAtAmount(ctx context.Context, listingID int64, amount decimal.Decimal) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("listing_id = ? AND amount = ?", listingID, amount).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Count returns the total number of bids on the listing.
func (r *Repository) Count(ctx context.Context, listingID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Bid{}).
		Where("listing_id = ?", listingID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ListByListing returns one page of bids for the listing, newest first.
func (r *Repository) ListByListing(ctx context.Context, listingID int64, cursor string, limit int) ([]Record, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.bidQuery(ctx).Where("b.listing_id = ?", listingID)

	if decodedCursor != nil {
		query = query.Where("(b.created_at < ?) OR (b.created_at = ? AND b.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	query = query.Order("b.created_at DESC").Order("b.id DESC").Limit(limitWithBuffer)

	var records []Record
	if err := query.Scan(&records).Error; err != nil {
		return nil, "", err
	}

	nextCursor := ""
	if len(records) > normalizedLimit {
		records = records[:normalizedLimit]
		last := records[len(records)-1]
		nextCursor = pagination.EncodeCursor(pagination.Cursor{
			CreatedAt: last.CreatedAt,
			ID:        last.ID,
		})
	}

	return records, nextCursor, nil
}

func (r *Repository) bidQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("bids b").
		Select("b.id, b.listing_id, b.bidder_id, u.username AS bidder_username, b.amount, b.created_at").
		Joins("JOIN users u ON u.id = b.bidder_id")
}

// IsNotFound reports whether err signals a missing row.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// Record is the raw scan target for bids joined with bidder usernames.
type Record struct {
	ID             int64           `gorm:"column:id"`
	ListingID      int64           `gorm:"column:listing_id"`
	BidderID       int64           `gorm:"column:bidder_id"`
	BidderUsername string          `gorm:"column:bidder_username"`
	Amount         decimal.Decimal `gorm:"column:amount"`
	CreatedAt      time.Time       `gorm:"column:created_at"`
}

// ToDTO converts the record into the read model.
func (rec Record) ToDTO() BidDTO {
	return BidDTO{
		ID:             rec.ID,
		ListingID:      rec.ListingID,
		BidderID:       rec.BidderID,
		BidderUsername: rec.BidderUsername,
		Amount:         rec.Amount,
		CreatedAt:      rec.CreatedAt,
	}
}
