package models

import "time"

// WatchItem links a user to a listing on their watchlist.
type WatchItem struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	UserID    int64     `gorm:"column:user_id;not null;index:watch_items_user_id_idx;uniqueIndex:watch_items_user_listing_key"`
	ListingID int64     `gorm:"column:listing_id;not null;index:watch_items_listing_id_idx;uniqueIndex:watch_items_user_listing_key"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
