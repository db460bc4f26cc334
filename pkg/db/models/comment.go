package models

import "time"

// Comment is a public remark on a listing.
type Comment struct {
	ID        int64     `gorm:"column:id;primaryKey;autoIncrement"`
	ListingID int64     `gorm:"column:listing_id;not null;index:comments_listing_id_idx"`
	AuthorID  int64     `gorm:"column:author_id;not null"`
	Body      string    `gorm:"column:body;not null"`
	Author    *User     `gorm:"foreignKey:AuthorID"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	// EditedAt tracks the last body change; CreatedAt never moves.
	EditedAt time.Time `gorm:"column:edited_at;autoUpdateTime"`
}
