package models

import "time"

// User is a registered account. Usernames are unique and double as the
// login identity.
type User struct {
	ID           int64     `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string    `gorm:"column:username;not null;uniqueIndex:users_username_key"`
	Email        *string   `gorm:"column:email;uniqueIndex:users_email_key"`
	Phone        *string   `gorm:"column:phone;uniqueIndex:users_phone_key"`
	PasswordHash string    `gorm:"column:password_hash;not null"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
