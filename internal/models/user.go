package models

import "time"

// User is a consumer account that claims and redeems coupons.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Login name.
	Password string `gorm:"type:text;not null"`             // bcrypt hash.
	Email    string `gorm:"type:text"`                      // Contact email.

	Disabled bool `gorm:"not null;default:false"` // Account disabled flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
