package models

import (
	"time"

	"github.com/hotplate-app/hotplate/internal/expiry"
)

// DealStatus is the persisted lifecycle state of a deal.
type DealStatus string

// Deal lifecycle states. Transitions are one-directional: ACTIVE may move
// to any terminal state, terminal states never move back.
const (
	// DealStatusActive marks a claimable deal.
	DealStatusActive DealStatus = "ACTIVE"
	// DealStatusEnded marks a deal past its expiry.
	DealStatusEnded DealStatus = "ENDED"
	// DealStatusCanceled marks a deal withdrawn by its merchant.
	DealStatusCanceled DealStatus = "CANCELED"
	// DealStatusDeleted marks a soft-deleted deal.
	DealStatusDeleted DealStatus = "DELETED"
)

// BenefitType classifies what a deal grants on redemption.
type BenefitType string

// Benefit types.
const (
	// BenefitDiscount grants a monetary discount.
	BenefitDiscount BenefitType = "DISCOUNT"
	// BenefitCustom grants a free-text benefit.
	BenefitCustom BenefitType = "CUSTOM"
	// BenefitAd is a promotion-only listing with nothing to redeem for money.
	BenefitAd BenefitType = "AD"
)

// Deal is a merchant-published, time-boxed offer with finite inventory.
type Deal struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	MerchantID uint64    `gorm:"not null;index"`         // Owning merchant ID.
	Merchant   *Merchant `gorm:"foreignKey:MerchantID"`  // Owning merchant record.

	Title          string  `gorm:"type:text;not null"`                   // Display title.
	OriginalPrice  float64 `gorm:"type:decimal(12,2);not null;default:0"` // Price before discount.
	DiscountAmount float64 `gorm:"type:decimal(12,2);not null;default:0"` // Discount value; 0 means promotion only.
	ImageURL       string  `gorm:"type:text"`                            // Opaque image reference.

	TotalCoupons     int `gorm:"not null;default:0"` // Coupons issued in total.
	RemainingCoupons int `gorm:"not null;default:0"` // Coupons still claimable.

	ExpiresAt time.Time  `gorm:"not null;index"`                              // Expiry timestamp.
	Status    DealStatus `gorm:"type:varchar(16);not null;default:'ACTIVE';index"` // Persisted lifecycle status.

	UsageCondition string      `gorm:"type:text"`                                  // Optional usage condition text.
	BenefitType    BenefitType `gorm:"type:varchar(16);not null;default:'DISCOUNT'"` // Benefit classification.
	BenefitText    string      `gorm:"type:text"`                                  // Custom benefit description.

	IsGhost bool `gorm:"not null;default:false;index"` // Hidden behind the reveal gate.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// EffectiveStatus computes the read-time status: an ACTIVE deal whose
// expiry has passed reads as ENDED even before any writer persists the
// correction.
func (d *Deal) EffectiveStatus(now time.Time) DealStatus {
	if d.Status == DealStatusActive && expiry.IsExpired(d.ExpiresAt, now) {
		return DealStatusEnded
	}
	return d.Status
}
