package watchlist

import (
	"context"

	"gorm.io/gorm"

	"github.com/openlots/openlots-backend/pkg/db/models"
)

// Repository encapsulates watchlist persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository constructs a watchlist repository bound to the provided gorm DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// Add inserts a watch entry and ignores duplicates.
func (r *Repository) Add(ctx context.Context, userID, listingID int64) error {
	if userID <= 0 || listingID <= 0 {
		return gorm.ErrInvalidValue
	}

	return r.db.WithContext(ctx).
		Exec(`INSERT INTO watch_items (user_id, listing_id) VALUES (?, ?) ON CONFLICT (user_id, listing_id) DO NOTHING`, userID, listingID).
		Error
}

// Remove deletes the watch entry if it exists.
func (r *Repository) Remove(ctx context.Context, userID, listingID int64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Delete(&models.WatchItem{}).
		Error
}

// Exists reports whether the user watches the listing.
func (r *Repository) Exists(ctx context.Context, userID, listingID int64) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WatchItem{}).
		Where("user_id = ? AND listing_id = ?", userID, listingID).
		Count(&count).
		Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Count returns how many listings the user watches.
func (r *Repository) Count(ctx context.Context, userID int64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.WatchItem{}).
		Where("user_id = ?", userID).
		Count(&count).
		Error; err != nil {
		return 0, err
	}
	return count, nil
}
