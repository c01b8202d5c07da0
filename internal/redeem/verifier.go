// Package redeem gates the AVAILABLE -> USED coupon transition behind
// physical presence and a staff confirmation ritual. Each coupon gets a
// server-held session state machine so the gate cannot be bypassed by a
// modified client.
package redeem

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/hotplate-app/hotplate/internal/apperr"
	dbutil "github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/events"
	"github.com/hotplate-app/hotplate/internal/expiry"
	"github.com/hotplate-app/hotplate/internal/geo"
	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/security"
	"github.com/hotplate-app/hotplate/internal/settings"
)

// State is a redemption session state.
type State string

// Session states. LOCKED and UNLOCKED flip with location updates;
// CONFIRMING pins the session until canceled or committed; USED is
// terminal.
const (
	// StateLocked means the user is outside the proximity threshold.
	StateLocked State = "LOCKED"
	// StateUnlocked means the user is within the proximity threshold.
	StateUnlocked State = "UNLOCKED"
	// StateConfirming means the staff-facing confirmation is in progress.
	StateConfirming State = "CONFIRMING"
	// StateUsed means the coupon has been redeemed.
	StateUsed State = "USED"
)

const (
	useMaxAttempts = 4
	useBackoffBase = 25 * time.Millisecond
)

// Session reports a redemption session to the client.
type Session struct {
	CouponID       uint64  `json:"coupon_id"`
	State          State   `json:"state"`
	DistanceMeters float64 `json:"distance_m"`
	RadiusMeters   float64 `json:"radius_m"`
	Observed       bool    `json:"observed"`
}

type sessionState struct {
	userID   uint64
	state    State
	distance float64
	observed bool
}

// Verifier drives redemption sessions and commits the USED transition.
type Verifier struct {
	db       *gorm.DB
	recorder *events.Recorder
	radius   func() float64
	now      func() time.Time

	mu       sync.Mutex
	sessions map[uint64]*sessionState
}

// NewVerifier constructs a redemption verifier.
func NewVerifier(db *gorm.DB, recorder *events.Recorder) *Verifier {
	return &Verifier{
		db:       db,
		recorder: recorder,
		radius:   settings.ProximityRadiusMeters,
		now:      func() time.Time { return time.Now().UTC() },
		sessions: make(map[uint64]*sessionState),
	}
}

// loadCoupon fetches a coupon owned by userID.
func (v *Verifier) loadCoupon(ctx context.Context, userID, couponID uint64) (*models.Coupon, error) {
	var row models.Coupon
	if errFind := v.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", couponID, userID).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "coupon %d not found", couponID)
		}
		return nil, apperr.Wrap(apperr.KindTransient, errFind, "load coupon failed")
	}
	return &row, nil
}

// Open starts (or resumes) the redemption session for a coupon.
func (v *Verifier) Open(ctx context.Context, userID, couponID uint64) (Session, error) {
	coupon, errLoad := v.loadCoupon(ctx, userID, couponID)
	if errLoad != nil {
		return Session{}, errLoad
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.sessionLocked(coupon, userID)
	return v.snapshotLocked(couponID, s), nil
}

// ObserveLocation feeds a live location reading into the session. The
// session flips LOCKED and UNLOCKED with the reading unless a
// confirmation is in progress; readings arrive at irregular intervals and
// never assume improving accuracy.
func (v *Verifier) ObserveLocation(ctx context.Context, userID, couponID uint64, lat, lng float64) (Session, error) {
	coupon, errLoad := v.loadCoupon(ctx, userID, couponID)
	if errLoad != nil {
		return Session{}, errLoad
	}
	if lat < -90 || lat > 90 || lng < -180 || lng > 180 {
		return Session{}, apperr.New(apperr.KindValidation, "coordinates out of range")
	}

	distance := geo.Distance(lat, lng, coupon.Latitude, coupon.Longitude)

	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.sessionLocked(coupon, userID)
	s.distance = distance
	s.observed = true
	if s.state == StateLocked || s.state == StateUnlocked {
		if distance <= v.radius() {
			s.state = StateUnlocked
		} else {
			s.state = StateLocked
		}
	}
	return v.snapshotLocked(couponID, s), nil
}

// BeginConfirm moves an UNLOCKED session into CONFIRMING. While
// confirming, moving out of range no longer re-locks the session.
func (v *Verifier) BeginConfirm(ctx context.Context, userID, couponID uint64) (Session, error) {
	coupon, errLoad := v.loadCoupon(ctx, userID, couponID)
	if errLoad != nil {
		return Session{}, errLoad
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.sessionLocked(coupon, userID)
	switch s.state {
	case StateUnlocked:
		s.state = StateConfirming
	case StateConfirming:
		// already confirming, idempotent
	case StateUsed:
		return Session{}, apperr.New(apperr.KindAlreadyUsed, "coupon %d already used", couponID)
	default:
		return Session{}, apperr.New(apperr.KindValidation, "coupon %d is not unlocked", couponID)
	}
	return v.snapshotLocked(couponID, s), nil
}

// CancelConfirm abandons the confirmation and returns to UNLOCKED,
// leaving no partial state behind.
func (v *Verifier) CancelConfirm(ctx context.Context, userID, couponID uint64) (Session, error) {
	coupon, errLoad := v.loadCoupon(ctx, userID, couponID)
	if errLoad != nil {
		return Session{}, errLoad
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	s := v.sessionLocked(coupon, userID)
	if s.state == StateConfirming {
		s.state = StateUnlocked
	}
	return v.snapshotLocked(couponID, s), nil
}

// Commit finishes a CONFIRMING session: validates the staff code when the
// merchant requires one, then performs the idempotent USED transition.
func (v *Verifier) Commit(ctx context.Context, userID, couponID uint64, staffCode string) (*models.Coupon, error) {
	coupon, errLoad := v.loadCoupon(ctx, userID, couponID)
	if errLoad != nil {
		return nil, errLoad
	}

	v.mu.Lock()
	s := v.sessionLocked(coupon, userID)
	state := s.state
	v.mu.Unlock()

	if state == StateUsed {
		return nil, apperr.New(apperr.KindAlreadyUsed, "coupon %d already used", couponID)
	}
	if state != StateConfirming {
		return nil, apperr.New(apperr.KindValidation, "coupon %d confirmation has not begun", couponID)
	}

	var merchant models.Merchant
	if errMerchant := v.db.WithContext(ctx).First(&merchant, coupon.MerchantID).Error; errMerchant != nil {
		if errors.Is(errMerchant, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "merchant %d not found", coupon.MerchantID)
		}
		return nil, apperr.Wrap(apperr.KindTransient, errMerchant, "load merchant failed")
	}
	if merchant.RequireStaffCode && !security.ValidateStaffCode(merchant.StaffTOTPSecret, staffCode) {
		return nil, apperr.New(apperr.KindValidation, "invalid staff code")
	}

	used, errUse := v.UseCoupon(ctx, userID, couponID)
	if errUse != nil {
		return nil, errUse
	}

	// The persisted USED status reseeds terminal sessions on reopen, so
	// the live entry can go.
	v.mu.Lock()
	delete(v.sessions, couponID)
	v.mu.Unlock()
	return used, nil
}

// UseCoupon marks a coupon USED, setting usedAt and the golden key in the
// same atomic write. A second call finds no AVAILABLE row and reports
// AlreadyUsed without touching usedAt.
func (v *Verifier) UseCoupon(ctx context.Context, userID, couponID uint64) (*models.Coupon, error) {
	coupon, err := v.useWithRetry(ctx, userID, couponID)

	dealID := uint64(0)
	if coupon != nil {
		dealID = coupon.DealID
	}
	v.recorder.Record(models.EventTypeUse, userID, dealID, &couponID, err)
	return coupon, err
}

func (v *Verifier) useWithRetry(ctx context.Context, userID, couponID uint64) (*models.Coupon, error) {
	var lastErr error
	for attempt := 0; attempt < useMaxAttempts; attempt++ {
		if attempt > 0 {
			delay := useBackoffBase << (attempt - 1)
			delay += time.Duration(rand.Int63n(int64(delay)))
			select {
			case <-ctx.Done():
				return nil, apperr.Wrap(apperr.KindTransient, ctx.Err(), "use canceled")
			case <-time.After(delay):
			}
		}

		coupon, err := v.useOnce(ctx, userID, couponID)
		if err == nil {
			return coupon, nil
		}
		var appErr *apperr.Error
		if errors.As(err, &appErr) && appErr.Kind != apperr.KindTransient {
			return coupon, err
		}
		lastErr = err
	}
	return nil, apperr.Wrap(apperr.KindTransient, lastErr, "use contention not resolved after %d attempts", useMaxAttempts)
}

func (v *Verifier) useOnce(ctx context.Context, userID, couponID uint64) (*models.Coupon, error) {
	var used *models.Coupon

	errTx := v.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		loader := tx
		if dbutil.SupportsRowLocking(tx) {
			loader = tx.Clauses(clause.Locking{Strength: "UPDATE"})
		}

		var coupon models.Coupon
		if errFind := loader.Where("id = ? AND user_id = ?", couponID, userID).First(&coupon).Error; errFind != nil {
			if errors.Is(errFind, gorm.ErrRecordNotFound) {
				return apperr.New(apperr.KindNotFound, "coupon %d not found", couponID)
			}
			return apperr.Wrap(apperr.KindTransient, errFind, "load coupon failed")
		}

		if coupon.Status == models.CouponStatusUsed {
			used = &coupon
			return apperr.New(apperr.KindAlreadyUsed, "coupon %d already used", couponID)
		}

		now := v.now()
		if expiry.IsExpired(coupon.ExpiresAt, now) {
			return apperr.New(apperr.KindExpired, "coupon %d expired", couponID)
		}

		result := tx.Model(&models.Coupon{}).
			Where("id = ? AND status = ?", couponID, models.CouponStatusAvailable).
			Updates(map[string]any{
				"status":         models.CouponStatusUsed,
				"used_at":        now,
				"has_golden_key": true,
			})
		if result.Error != nil {
			return apperr.Wrap(apperr.KindTransient, result.Error, "use coupon failed")
		}
		if result.RowsAffected == 0 {
			return apperr.New(apperr.KindAlreadyUsed, "coupon %d already used", couponID)
		}

		coupon.Status = models.CouponStatusUsed
		coupon.UsedAt = &now
		coupon.HasGoldenKey = true
		used = &coupon
		return nil
	})

	if errTx != nil {
		return used, errTx
	}
	return used, nil
}

// sessionLocked returns the session for a coupon, creating it from the
// coupon's persisted state when absent. Terminal sessions are never
// retained in the map; they reseed from the row on every call. Callers
// hold v.mu.
func (v *Verifier) sessionLocked(coupon *models.Coupon, userID uint64) *sessionState {
	s, ok := v.sessions[coupon.ID]
	if !ok {
		s = &sessionState{userID: userID, state: StateLocked}
		if coupon.Status == models.CouponStatusUsed {
			s.state = StateUsed
			return s
		}
		v.sessions[coupon.ID] = s
	}
	return s
}

func (v *Verifier) snapshotLocked(couponID uint64, s *sessionState) Session {
	return Session{
		CouponID:       couponID,
		State:          s.state,
		DistanceMeters: s.distance,
		RadiusMeters:   v.radius(),
		Observed:       s.observed,
	}
}
