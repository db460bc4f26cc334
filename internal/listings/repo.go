package listings

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/pagination"
)

func rowLockClause() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

const (
	bidCountClause = "(SELECT COUNT(*) FROM bids b WHERE b.listing_id = l.id)"
	maxBidClause   = "(SELECT MAX(b.amount) FROM bids b WHERE b.listing_id = l.id)"
)

// Filters narrows listing pages.
type Filters struct {
	// ActiveOnly keeps rows whose window contains Now and that are not closed.
	ActiveOnly bool
	// Now is the instant used for the ActiveOnly window check.
	Now time.Time
	// OwnerID keeps rows owned by the given user when non-zero.
	OwnerID int64
	// WatchedBy keeps rows on the given user's watchlist when non-zero.
	WatchedBy int64
	// Category keeps rows in the named category when non-empty.
	Category string
}

// Repository encapsulates listing persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a listing repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the listing and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, listing *models.Listing) (*models.Listing, error) {
	if err := r.db.WithContext(ctx).Create(listing).Error; err != nil {
		return nil, err
	}
	return listing, nil
}

// FindByID loads the listing row without associations.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Listing, error) {
	var listing models.Listing
	if err := r.db.WithContext(ctx).First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// FindByIDForUpdate loads the listing under a row lock so concurrent bid
// transactions serialize. SQLite rejects FOR UPDATE and serializes writers
// on its own, so the clause only applies on Postgres.
func (r *Repository) FindByIDForUpdate(ctx context.Context, id int64) (*models.Listing, error) {
	query := r.db.WithContext(ctx)
	if r.db.Dialector.Name() == "postgres" {
		query = query.Clauses(rowLockClause())
	}

	var listing models.Listing
	if err := query.First(&listing, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &listing, nil
}

// UpdateFields applies the given column updates to the listing row.
func (r *Repository) UpdateFields(ctx context.Context, id int64, fields map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Updates(fields).
		Error
}

// DeleteCascade removes the listing together with its bids, comments and
// watch entries. Callers run it inside a transaction holding the listing
// row lock so the delete serializes against in-flight bids.
func (r *Repository) DeleteCascade(ctx context.Context, id int64) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("listing_id = ?", id).Delete(&models.Bid{}).Error; err != nil {
		return err
	}
	if err := db.Where("listing_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
		return err
	}
	if err := db.Where("listing_id = ?", id).Delete(&models.WatchItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&models.Listing{}).Error
}

// SetClosed flips the closed flag on the listing row.
func (r *Repository) SetClosed(ctx context.Context, id int64, closed bool) error {
	return r.db.WithContext(ctx).
		Model(&models.Listing{}).
		Where("id = ?", id).
		Update("closed", closed).
		Error
}

// GetSummaryByID returns the listing joined with its owner and bid stats.
func (r *Repository) GetSummaryByID(ctx context.Context, id int64) (*SummaryRecord, error) {
	query := r.summaryQuery(ctx).Where("l.id = ?", id)

	var record SummaryRecord
	if err := query.Take(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListSummaries returns one page of listing summaries matching the filters,
// newest first.
func (r *Repository) ListSummaries(ctx context.Context, filters Filters, cursor string, limit int) ([]SummaryRecord, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.applyFilters(r.summaryQuery(ctx), filters)

	if decodedCursor != nil {
		query = query.Where("(l.created_at < ?) OR (l.created_at = ? AND l.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	query = query.Order("l.created_at DESC").Order("l.id DESC").Limit(limitWithBuffer)

	var records []SummaryRecord
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

// Count returns how many listings match the filters.
func (r *Repository) Count(ctx context.Context, filters Filters) (int64, error) {
	query := r.applyFilters(
		r.db.WithContext(ctx).Table("listings l"),
		filters,
	)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// BoundaryCursor returns the cursor of the first or last row matching the
// filters, or empty when no rows match.
func (r *Repository) BoundaryCursor(ctx context.Context, filters Filters, ascending bool) (string, error) {
	order := "l.created_at DESC, l.id DESC"
	if ascending {
		order = "l.created_at ASC, l.id ASC"
	}

	var row struct {
		CreatedAt time.Time
		ID        int64
	}

	query := r.applyFilters(
		r.db.WithContext(ctx).Table("listings l").Select("l.created_at", "l.id"),
		filters,
	).Order(order).Limit(1)

	if err := query.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}

	return pagination.EncodeCursor(pagination.Cursor{
		CreatedAt: row.CreatedAt,
		ID:        row.ID,
	}), nil
}

func (r *Repository) summaryQuery(ctx context.Context) *gorm.DB {
	selectColumns := []string{
		"l.id",
		"l.owner_id",
		"u.username AS owner_username",
		"l.title",
		"l.description",
		"l.category",
		"l.condition",
		"l.image_url",
		"l.starting_price",
		"l.start_datetime",
		"l.end_datetime",
		"l.closed",
		"l.created_at",
		"l.updated_at",
		bidCountClause + " AS bid_count",
		maxBidClause + " AS max_bid",
	}

	return r.db.WithContext(ctx).
		Table("listings l").
		Select(strings.Join(selectColumns, ", ")).
		Joins("JOIN users u ON u.id = l.owner_id")
}

func (r *Repository) applyFilters(query *gorm.DB, filters Filters) *gorm.DB {
	if filters.ActiveOnly {
		query = query.Where(
			"l.start_datetime < ? AND l.end_datetime > ? AND l.closed = ?",
			filters.Now, filters.Now, false,
		)
	}
	if filters.OwnerID != 0 {
		query = query.Where("l.owner_id = ?", filters.OwnerID)
	}
	if filters.WatchedBy != 0 {
		query = query.Where("EXISTS (SELECT 1 FROM watch_items wi WHERE wi.listing_id = l.id AND wi.user_id = ?)", filters.WatchedBy)
	}
	if filters.Category != "" {
		query = query.Where("l.category = ?", filters.Category)
	}
	return query
}

// SummaryRecord is the raw scan target for listing summaries.
type SummaryRecord struct {
	ID            int64               `gorm:"column:id"`
	OwnerID       int64               `gorm:"column:owner_id"`
	OwnerUsername string              `gorm:"column:owner_username"`
	Title         string              `gorm:"column:title"`
	Description   string              `gorm:"column:description"`
	Category      string              `gorm:"column:category"`
	Condition     string              `gorm:"column:condition"`
	ImageURL      sql.NullString      `gorm:"column:image_url"`
	StartingPrice decimal.Decimal     `gorm:"column:starting_price"`
	StartDatetime time.Time           `gorm:"column:start_datetime"`
	EndDatetime   time.Time           `gorm:"column:end_datetime"`
	Closed        bool                `gorm:"column:closed"`
	BidCount      int                 `gorm:"column:bid_count"`
	MaxBid        decimal.NullDecimal `gorm:"column:max_bid"`
	CreatedAt     time.Time           `gorm:"column:created_at"`
	UpdatedAt     time.Time           `gorm:"column:updated_at"`
}

// ToDTO converts the record into the read model at the provided instant.
func (rec SummaryRecord) ToDTO(now time.Time) ListingDTO {
	listing := models.Listing{
		StartDatetime: rec.StartDatetime,
		EndDatetime:   rec.EndDatetime,
		Closed:        rec.Closed,
	}
	state := DeriveState(&listing, now)

	var maxBid *decimal.Decimal
	if rec.MaxBid.Valid {
		maxBid = &rec.MaxBid.Decimal
	}

	return ListingDTO{
		ID:            rec.ID,
		OwnerID:       rec.OwnerID,
		OwnerUsername: rec.OwnerUsername,
		Title:         rec.Title,
		Description:   rec.Description,
		Category:      rec.Category,
		Condition:     rec.Condition,
		ImageURL:      nullStringPtr(rec.ImageURL),
		StartingPrice: rec.StartingPrice,
		CurrentBid:    CurrentBid(rec.StartingPrice, maxBid),
		MinNextBid:    MinNextBid(rec.StartingPrice, maxBid),
		BidCount:      rec.BidCount,
		StartDatetime: rec.StartDatetime,
		EndDatetime:   rec.EndDatetime,
		IsStarted:     state.IsStarted,
		Active:        state.Active,
		Closed:        rec.Closed,
		Status:        state.Status,
		CreatedAt:     rec.CreatedAt,
		UpdatedAt:     rec.UpdatedAt,
	}
}

func nullStringPtr(value sql.NullString) *string {
	if !value.Valid {
		return nil
	}
	v := value.String
	return &v
}
