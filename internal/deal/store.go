// Package deal persists deal definitions and serves filtered views with
// read-time expiry reconciliation.
package deal

import (
	"context"
	"errors"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/apperr"
	dbutil "github.com/hotplate-app/hotplate/internal/db"
	"github.com/hotplate-app/hotplate/internal/models"
)

// Store is the durable record of deals and their remaining inventory.
type Store struct {
	db  *gorm.DB
	now func() time.Time
}

// NewStore constructs a Store backed by GORM.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Definition holds the fields a merchant supplies when publishing a deal.
type Definition struct {
	Title          string
	OriginalPrice  float64
	DiscountAmount float64
	ImageURL       string
	TotalCoupons   int
	ExpiresAt      time.Time
	UsageCondition string
	BenefitType    models.BenefitType
	BenefitText    string
	IsGhost        bool
}

func (d Definition) validate(now time.Time) error {
	if strings.TrimSpace(d.Title) == "" {
		return apperr.New(apperr.KindValidation, "title is required")
	}
	if d.TotalCoupons < 0 {
		return apperr.New(apperr.KindValidation, "total coupons must not be negative")
	}
	if !d.ExpiresAt.After(now) {
		return apperr.New(apperr.KindValidation, "expiry must be in the future")
	}
	if d.OriginalPrice < 0 || d.DiscountAmount < 0 {
		return apperr.New(apperr.KindValidation, "prices must not be negative")
	}
	switch d.BenefitType {
	case "", models.BenefitDiscount, models.BenefitCustom, models.BenefitAd:
	default:
		return apperr.New(apperr.KindValidation, "unknown benefit type %q", d.BenefitType)
	}
	return nil
}

// Create publishes a new deal owned by merchantID. Remaining inventory
// starts equal to the issued total and status starts ACTIVE.
func (s *Store) Create(ctx context.Context, merchantID uint64, def Definition) (*models.Deal, error) {
	if errValidate := def.validate(s.now()); errValidate != nil {
		return nil, errValidate
	}

	benefitType := def.BenefitType
	if benefitType == "" {
		benefitType = models.BenefitDiscount
	}
	row := models.Deal{
		MerchantID:       merchantID,
		Title:            strings.TrimSpace(def.Title),
		OriginalPrice:    def.OriginalPrice,
		DiscountAmount:   def.DiscountAmount,
		ImageURL:         strings.TrimSpace(def.ImageURL),
		TotalCoupons:     def.TotalCoupons,
		RemainingCoupons: def.TotalCoupons,
		ExpiresAt:        def.ExpiresAt.UTC(),
		Status:           models.DealStatusActive,
		UsageCondition:   def.UsageCondition,
		BenefitType:      benefitType,
		BenefitText:      def.BenefitText,
		IsGhost:          def.IsGhost,
	}
	if errCreate := s.db.WithContext(ctx).Create(&row).Error; errCreate != nil {
		return nil, apperr.Wrap(apperr.KindTransient, errCreate, "create deal failed")
	}
	return &row, nil
}

// Filter narrows deal listings.
type Filter struct {
	Status        *models.DealStatus
	MerchantID    *uint64
	TitleSearch   string
	IncludeGhosts bool
}

// List returns deals matching the filter ordered soonest-expiring first.
// Ghost deals are excluded unless the filter opts in; effective status is
// reconciled on every row before it is returned.
func (s *Store) List(ctx context.Context, f Filter) ([]models.Deal, error) {
	q := s.db.WithContext(ctx).Model(&models.Deal{}).Preload("Merchant")
	if !f.IncludeGhosts {
		q = q.Where("is_ghost = ?", false)
	}
	if f.MerchantID != nil {
		q = q.Where("merchant_id = ?", *f.MerchantID)
	}
	if search := strings.TrimSpace(f.TitleSearch); search != "" {
		q = q.Where(dbutil.CaseInsensitiveLikeExpr(s.db, "title"), dbutil.NormalizeLikePattern(s.db, "%"+search+"%"))
	}

	var rows []models.Deal
	if errFind := q.Order("expires_at ASC").Find(&rows).Error; errFind != nil {
		return nil, apperr.Wrap(apperr.KindTransient, errFind, "list deals failed")
	}

	now := s.now()
	out := rows[:0]
	for i := range rows {
		s.reconcileExpired(ctx, &rows[i], now)
		if f.Status != nil && rows[i].EffectiveStatus(now) != *f.Status {
			continue
		}
		out = append(out, rows[i])
	}
	return out, nil
}

// Get loads one deal by id, reconciling its effective status.
func (s *Store) Get(ctx context.Context, dealID uint64) (*models.Deal, error) {
	var row models.Deal
	if errFind := s.db.WithContext(ctx).Preload("Merchant").First(&row, dealID).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, apperr.New(apperr.KindNotFound, "deal %d not found", dealID)
		}
		return nil, apperr.Wrap(apperr.KindTransient, errFind, "load deal failed")
	}
	s.reconcileExpired(ctx, &row, s.now())
	return &row, nil
}

// Update applies merchant field edits to a deal. Status transitions are
// one-directional; a terminal deal rejects every edit.
type Update struct {
	Title          *string
	OriginalPrice  *float64
	DiscountAmount *float64
	ImageURL       *string
	ExpiresAt      *time.Time
	UsageCondition *string
	BenefitText    *string
	Status         *models.DealStatus
}

// Update edits an existing deal owned by merchantID.
func (s *Store) Update(ctx context.Context, merchantID, dealID uint64, u Update) error {
	var row models.Deal
	if errFind := s.db.WithContext(ctx).
		Where("id = ? AND merchant_id = ?", dealID, merchantID).
		First(&row).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return apperr.New(apperr.KindNotFound, "deal %d not found", dealID)
		}
		return apperr.Wrap(apperr.KindTransient, errFind, "load deal failed")
	}

	if row.Status != models.DealStatusActive {
		return apperr.New(apperr.KindValidation, "deal %d is %s and can no longer be edited", dealID, row.Status)
	}

	fields := map[string]any{}
	if u.Title != nil {
		if strings.TrimSpace(*u.Title) == "" {
			return apperr.New(apperr.KindValidation, "title is required")
		}
		fields["title"] = strings.TrimSpace(*u.Title)
	}
	if u.OriginalPrice != nil {
		fields["original_price"] = *u.OriginalPrice
	}
	if u.DiscountAmount != nil {
		fields["discount_amount"] = *u.DiscountAmount
	}
	if u.ImageURL != nil {
		fields["image_url"] = strings.TrimSpace(*u.ImageURL)
	}
	if u.ExpiresAt != nil {
		if !u.ExpiresAt.After(s.now()) {
			return apperr.New(apperr.KindValidation, "expiry must be in the future")
		}
		fields["expires_at"] = u.ExpiresAt.UTC()
	}
	if u.UsageCondition != nil {
		fields["usage_condition"] = *u.UsageCondition
	}
	if u.BenefitText != nil {
		fields["benefit_text"] = *u.BenefitText
	}
	if u.Status != nil {
		switch *u.Status {
		case models.DealStatusEnded, models.DealStatusCanceled, models.DealStatusDeleted:
			fields["status"] = *u.Status
		default:
			return apperr.New(apperr.KindValidation, "status may only move to a terminal state")
		}
	}
	if len(fields) == 0 {
		return nil
	}

	if errUpdate := s.db.WithContext(ctx).Model(&row).Updates(fields).Error; errUpdate != nil {
		return apperr.Wrap(apperr.KindTransient, errUpdate, "update deal failed")
	}
	return nil
}

// AddQuantity raises both the issued total and the remaining count by the
// same amount. This is a merchant restock, not a claim, so the two move
// together in one statement.
func (s *Store) AddQuantity(ctx context.Context, merchantID, dealID uint64, add int) error {
	if add <= 0 {
		return apperr.New(apperr.KindValidation, "added quantity must be positive")
	}

	result := s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ? AND merchant_id = ? AND status = ?", dealID, merchantID, models.DealStatusActive).
		Updates(map[string]any{
			"total_coupons":     gorm.Expr("total_coupons + ?", add),
			"remaining_coupons": gorm.Expr("remaining_coupons + ?", add),
		})
	if result.Error != nil {
		return apperr.Wrap(apperr.KindTransient, result.Error, "add quantity failed")
	}
	if result.RowsAffected == 0 {
		return apperr.New(apperr.KindNotFound, "no active deal %d for merchant %d", dealID, merchantID)
	}
	return nil
}

// Copy creates a brand-new deal from an existing one with fresh inventory
// and a fresh id. Terminal deals may be copied; the copy itself always
// starts ACTIVE.
func (s *Store) Copy(ctx context.Context, merchantID, dealID uint64, expiresAt time.Time) (*models.Deal, error) {
	src, errGet := s.Get(ctx, dealID)
	if errGet != nil {
		return nil, errGet
	}
	if src.MerchantID != merchantID {
		return nil, apperr.New(apperr.KindNotFound, "deal %d not found", dealID)
	}

	return s.Create(ctx, merchantID, Definition{
		Title:          src.Title,
		OriginalPrice:  src.OriginalPrice,
		DiscountAmount: src.DiscountAmount,
		ImageURL:       src.ImageURL,
		TotalCoupons:   src.TotalCoupons,
		ExpiresAt:      expiresAt,
		UsageCondition: src.UsageCondition,
		BenefitType:    src.BenefitType,
		BenefitText:    src.BenefitText,
		IsGhost:        src.IsGhost,
	})
}

// reconcileExpired opportunistically persists the ACTIVE -> ENDED
// correction when a read observes an expired deal. Reads never depend on
// this write having happened; it only keeps the stored row honest.
func (s *Store) reconcileExpired(ctx context.Context, row *models.Deal, now time.Time) {
	if row.Status != models.DealStatusActive || row.EffectiveStatus(now) != models.DealStatusEnded {
		return
	}
	if errUpdate := s.db.WithContext(ctx).Model(&models.Deal{}).
		Where("id = ? AND status = ?", row.ID, models.DealStatusActive).
		UpdateColumn("status", models.DealStatusEnded).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("deal_id", row.ID).Warn("expired status reconcile failed")
		return
	}
	row.Status = models.DealStatusEnded
}
