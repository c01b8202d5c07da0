package models

import "time"

// Merchant is a restaurant account that publishes deals.
type Merchant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Username string `gorm:"type:text;not null;uniqueIndex"` // Login name.
	Password string `gorm:"type:text;not null"`             // bcrypt hash.

	Name     string `gorm:"type:text;not null"` // Restaurant display name.
	Category string `gorm:"type:text"`          // Cuisine/category label.

	Latitude  float64 `gorm:"not null;default:0"` // Storefront latitude.
	Longitude float64 `gorm:"not null;default:0"` // Storefront longitude.

	StaffTOTPSecret  string `gorm:"type:text"`               // TOTP secret for the staff stamp device.
	RequireStaffCode bool   `gorm:"not null;default:false"` // Whether redemption demands a live staff code.

	Disabled bool `gorm:"not null;default:false"` // Account disabled flag.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
