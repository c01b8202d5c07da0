// Package claim converts available deal inventory into user-owned
// coupons. It is the single authoritative writer of the inventory
// decrement and the only place a coupon row is born.
package claim

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hotplate-app/hotplate/internal/apperr"
	dbutil "github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/events"
	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/reveal"
)

const (
	// maxAttempts bounds internal retries of the atomic section under
	// contention before the failure surfaces as TRANSIENT.
	maxAttempts = 4
	// backoffBase seeds the jittered retry delay.
	backoffBase = 25 * time.Millisecond
)

// Engine validates and executes the deal-to-coupon transition.
type Engine struct {
	db       *gorm.DB
	gate     reveal.Gate
	recorder *events.Recorder
	now      func() time.Time
}

// NewEngine constructs a claim engine.
func NewEngine(db *gorm.DB, gate reveal.Gate, recorder *events.Recorder) *Engine {
	return &Engine{
		db:       db,
		gate:     gate,
		recorder: recorder,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Claim issues a coupon for (userID, dealID) as one atomic transaction:
// effective-status check, sold-out check, duplicate check, inventory
// decrement, snapshot insert. Concurrent claims on the last coupon
// resolve to exactly one winner.
//
// On KindAlreadyClaimed the existing coupon is returned alongside the
// error so callers can route the user straight to it.
func (e *Engine) Claim(ctx context.Context, userID, dealID uint64) (*models.Coupon, error) {
	coupon, err := e.claimWithRetry(ctx, userID, dealID)

	var couponID *uint64
	if coupon != nil {
		couponID = &coupon.ID
	}
	e.recorder.Record(models.EventTypeClaim, userID, dealID, couponID, err)
	return coupon, err
}

// claimWithRetry retries the atomic section on infrastructure conflicts.
// Semantic outcomes are never retried.
func (e *Engine) claimWithRetry(ctx context.Context, userID, dealID uint64) (*models.Coupon, error) {
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			delay := backoffBase << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.KindTransient, ctx.Err(), "claim canceled")
			case <-time.After(delay):
			}
		}

		coupon, err := e.claimOnce(ctx, userID, dealID)
		if err == nil {
			return coupon, nil
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind != apperr.KindTransient {
			return coupon, err
		}
		lastErr = err
	}
	return nil, apperr.Wrap(apperr.KindTransient, lastErr, "claim contention not resolved after %d attempts", maxAttempts)
}

// claimOnce runs the read-decrement-insert sequence in one transaction.
func (e *Engine) claimOnce(ctx context.Context, userID, dealID uint64) (*models.Coupon, error) {
	var issued *models.Coupon
	var existing *models.Coupon

	errTx := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loader := tx
		if dbutil.SupportsRowLocking(tx) {
			loader = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var deal models.Deal
		if errFind := loader.First(&deal, dealID).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "deal %d not found", dealID)
			}
			return apperr.Wrap(apperr.KindTransient, errFind, "load deal failed")
		}

		now := e.now()
		// Expiry outranks the reveal gate: a dead deal is EXPIRED even to
		// users who never revealed it.
		if status := deal.EffectiveStatus(now); status != models.DealStatusActive {
			// Keep the stored row honest while we hold it.
			if deal.Status == models.DealStatusActive {
				tx.Model(&deal).UpdateColumn("status", models.DealStatusEnded)
			}
			return apperr.New(apperr.KindExpired, "deal %d is %s", dealID, status)
		}

		if deal.IsGhost {
			revealed, errRevealed := e.gate.Revealed(ctx, userID, dealID)
			if errRevealed != nil {
				return apperr.Wrap(apperr.KindTransient, errRevealed, "reveal lookup failed")
			}
			if !revealed {
				return apperr.New(apperr.KindNotRevealed, "deal %d must be revealed before claiming", dealID)
			}
		}
		if deal.RemainingCoupons <= 0 {
			return apperr.New(apperr.KindSoldOut, "deal %d is sold out", dealID)
		}

		var outstanding models.Coupon
		errDup := tx.Where("user_id = ? AND deal_id = ? AND status = ?", userID, dealID, models.CouponStatusAvailable).
			First(&outstanding).Error
		if errDup == nil {
			existing = &outstanding
			return apperr.New(apperr.KindAlreadyClaimed, "deal %d already claimed", dealID)
		}
		if !errors.Is(errDup, gorm.ErrRecordNotFound) {
			return apperr.Wrap(apperr.KindTransient, errDup, "duplicate check failed")
		}

		// The guard in the WHERE clause makes the decrement safe on both
		// dialects even without the row lock: only one of two concurrent
		// claims on the last coupon can match remaining_coupons > 0.
		result := tx.Model(&models.Deal{}).
			Where("id = ? AND status = ? AND remaining_coupons > 0", dealID, models.DealStatusActive).
			UpdateColumn("remaining_coupons", gorm.Expr("remaining_coupons - 1"))
		if result.Error != nil {
			return apperr.Wrap(apperr.KindTransient, result.Error, "decrement failed")
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.KindSoldOut, "deal %d is sold out", dealID)
		}

		var merchant models.Merchant
		if errMerchant := tx.First(&merchant, deal.MerchantID).Error; errMerchant != nil {
			return apperr.Wrap(apperr.KindTransient, errMerchant, "load merchant failed")
		}

		coupon := models.Coupon{
			UserID:         userID,
			DealID:         deal.ID,
			MerchantID:     merchant.ID,
			Title:          deal.Title,
			RestaurantName: merchant.Name,
			DiscountAmount: deal.DiscountAmount,
			BenefitType:    deal.BenefitType,
			BenefitText:    deal.BenefitText,
			ImageURL:       deal.ImageURL,
			UsageCondition: deal.UsageCondition,
			Latitude:       merchant.Latitude,
			Longitude:      merchant.Longitude,
			ExpiresAt:      deal.ExpiresAt,
			Status:         models.CouponStatusAvailable,
			ClaimedAt:      now,
		}
		if errCreate := tx.Create(&coupon).Error; errCreate != nil {
			return apperr.Wrap(apperr.KindTransient, errCreate, "create coupon failed")
		}
		issued = &coupon
		return nil
	})

	if errTx != nil {
		if existing != nil {
			return existing, errTx
		}
		return nil, errTx
	}
	return issued, nil
}
