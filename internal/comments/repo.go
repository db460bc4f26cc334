package comments

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/pkg/db/models"
	"github.com/openlots/openlots-backend/pkg/pagination"
)

// Repository encapsulates comment persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a comment repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Create inserts the comment and returns it with generated fields populated.
func (r *Repository) Create(ctx context.Context, comment *models.Comment) (*models.Comment, error) {
	if err := r.db.WithContext(ctx).Create(comment).Error; err != nil {
		return nil, err
	}
	return comment, nil
}

// FindByID loads the comment row without associations.
func (r *Repository) FindByID(ctx context.Context, id int64) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// UpdateBody replaces the comment body; edited_at is bumped, created_at is not.
func (r *Repository) UpdateBody(ctx context.Context, id int64, body string, editedAt time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("id = ?", id).
		Updates(map[string]any{"body": body, "edited_at": editedAt}).
		Error
}

// GetByID returns the comment joined with its author username.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Record, error) {
	var record Record
	if err := r.commentQuery(ctx).Where("c.id = ?", id).Take(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

// ListByListing returns one page of comments for the listing, newest first.
func (r *Repository) ListByListing(ctx context.Context, listingID int64, cursor string, limit int) ([]Record, string, error) {
	normalizedLimit := pagination.NormalizeLimit(limit)
	limitWithBuffer := pagination.LimitWithBuffer(limit)
	decodedCursor, err := pagination.ParseCursor(strings.TrimSpace(cursor))
	if err != nil {
		return nil, "", err
	}

	query := r.commentQuery(ctx).Where("c.listing_id = ?", listingID)

	if decodedCursor != nil {
		query = query.Where("(c.created_at < ?) OR (c.created_at = ? AND c.id < ?)", decodedCursor.CreatedAt, decodedCursor.CreatedAt, decodedCursor.ID)
	}

	query = query.Order("c.created_at DESC").Order("c.id DESC").Limit(limitWithBuffer)

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

func (r *Repository) commentQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("comments c").
		Select("c.id, c.listing_id, c.author_id, u.username AS author_username, c.body, c.created_at, c.edited_at").
		Joins("JOIN users u ON u.id = c.author_id")
}

// Count returns the total number of comments on the listing.
func (r *Repository) Count(ctx context.Context, listingID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.Comment{}).
		Where("listing_id = ?", listingID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Record is the raw scan target for comments joined with author usernames.
type Record struct {
	ID             int64     `gorm:"column:id"`
	ListingID      int64     `gorm:"column:listing_id"`
	AuthorID       int64     `gorm:"column:author_id"`
	AuthorUsername string    `gorm:"column:author_username"`
	Body           string    `gorm:"column:body"`
	CreatedAt      time.Time `gorm:"column:created_at"`
	EditedAt       time.Time `gorm:"column:edited_at"`
}

// ToDTO converts the record into the read model.
func (rec Record) ToDTO() CommentDTO {
	return CommentDTO{
		ID:             rec.ID,
		ListingID:      rec.ListingID,
		AuthorID:       rec.AuthorID,
		AuthorUsername: rec.AuthorUsername,
		Body:           rec.Body,
		CreatedAt:      rec.CreatedAt,
		EditedAt:       rec.EditedAt,
	}
}
