package models

import (
	"time"

	"gorm.io/datatypes"
)

// Event types recorded by the event trail.
const (
	// EventTypeClaim records a claim attempt.
	EventTypeClaim = "claim"
	// EventTypeUse records a redemption attempt.
	EventTypeUse = "use"
)

// Event is one claim or redemption attempt, successful or not.
type Event struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Type string `gorm:"type:varchar(16);not null;index"` // claim or use.

	UserID   uint64  `gorm:"not null;index"` // Acting user ID.
	DealID   uint64  `gorm:"not null;index"` // Target deal ID.
	CouponID *uint64 `gorm:"index"`          // Resulting/target coupon ID, when known.

	Failed  bool           `gorm:"not null;default:false"` // Whether the attempt failed.
	Outcome string         `gorm:"type:varchar(32);index"` // Error kind code, or "OK".
	Detail  datatypes.JSON `gorm:"type:jsonb"`             // Structured context for failures.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Attempt timestamp.
}
