package models

import "time"

// CouponStatus is the lifecycle state of a claimed coupon.
type CouponStatus string

// Coupon states. The only transition is AVAILABLE -> USED.
const (
	// CouponStatusAvailable marks an unredeemed coupon.
	CouponStatusAvailable CouponStatus = "AVAILABLE"
	// CouponStatusUsed marks a redeemed coupon.
	CouponStatusUsed CouponStatus = "USED"
)

// Coupon is one user's claim against a deal. Deal attributes are
// snapshotted at claim time so later edits never alter an issued coupon.
type Coupon struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID     uint64 `gorm:"not null;index:idx_coupons_user_deal"` // Owning user ID.
	DealID     uint64 `gorm:"not null;index:idx_coupons_user_deal"` // Originating deal ID.
	MerchantID uint64 `gorm:"not null;index"`                       // Merchant at claim time.

	Title          string  `gorm:"type:text;not null"`                   // Deal title snapshot.
	RestaurantName string  `gorm:"type:text;not null"`                   // Merchant name snapshot.
	DiscountAmount float64 `gorm:"type:decimal(12,2);not null;default:0"` // Discount snapshot.
	BenefitType    BenefitType `gorm:"type:varchar(16);not null;default:'DISCOUNT'"` // Benefit snapshot.
	BenefitText    string  `gorm:"type:text"`                            // Custom benefit snapshot.
	ImageURL       string  `gorm:"type:text"`                            // Image reference snapshot.
	UsageCondition string  `gorm:"type:text"`                            // Usage condition snapshot.
	Latitude       float64 `gorm:"not null;default:0"`                   // Merchant latitude snapshot.
	Longitude      float64 `gorm:"not null;default:0"`                   // Merchant longitude snapshot.

	ExpiresAt time.Time    `gorm:"not null;index"`                                       // Expiry copied from the deal.
	Status    CouponStatus `gorm:"type:varchar(16);not null;default:'AVAILABLE';index"` // Lifecycle state.

	ClaimedAt    time.Time  `gorm:"not null"` // Claim timestamp.
	UsedAt       *time.Time // Redemption timestamp; set iff Status is USED.
	HasGoldenKey bool       `gorm:"not null;default:false"` // Granted with the USED transition.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
