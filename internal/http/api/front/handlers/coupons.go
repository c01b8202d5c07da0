package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/expiry"
	"github.com/hotplate-app/hotplate/internal/models"
)

type couponDTO struct {
	ID             uint64              `json:"id"`
	DealID         uint64              `json:"deal_id"`
	Title          string              `json:"title"`
	RestaurantName string              `json:"restaurant_name"`
	DiscountAmount float64             `json:"discount_amount"`
	BenefitType    models.BenefitType  `json:"benefit_type"`
	BenefitText    string              `json:"benefit_text"`
	ImageURL       string              `json:"image_url"`
	UsageCondition string              `json:"usage_condition"`
	Lat            float64             `json:"lat"`
	Lng            float64             `json:"lng"`
	ExpiresAt      time.Time           `json:"expires_at"`
	Remaining      expiry.Breakdown    `json:"remaining"`
	Status         models.CouponStatus `json:"status"`
	ClaimedAt      time.Time           `json:"claimed_at"`
	UsedAt         *time.Time          `json:"used_at,omitempty"`
	HasGoldenKey   bool                `json:"has_golden_key"`
}

func newCouponDTO(row *models.Coupon, now time.Time) couponDTO {
	return couponDTO{
		ID:             row.ID,
		DealID:         row.DealID,
		Title:          row.Title,
		RestaurantName: row.RestaurantName,
		DiscountAmount: row.DiscountAmount,
		BenefitType:    row.BenefitType,
		BenefitText:    row.BenefitText,
		ImageURL:       row.ImageURL,
		UsageCondition: row.UsageCondition,
		Lat:            row.Latitude,
		Lng:            row.Longitude,
		ExpiresAt:      row.ExpiresAt,
		Remaining:      expiry.Remaining(row.ExpiresAt, now),
		Status:         row.Status,
		ClaimedAt:      row.ClaimedAt,
		UsedAt:         row.UsedAt,
		HasGoldenKey:   row.HasGoldenKey,
	}
}

// Coupons lists the authenticated user's coupons, newest claim first.
func (h *Handler) Coupons(c *gin.Context) {
	var rows []models.Coupon
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("user_id = ?", getUserID(c)).
		Order("claimed_at DESC").
		Find(&rows).Error; errFind != nil {
		writeError(c, apperr.Wrap(apperr.KindTransient, errFind, "list coupons failed"))
		return
	}

	now := time.Now().UTC()
	out := make([]couponDTO, 0, len(rows))
	for i := range rows {
		out = append(out, newCouponDTO(&rows[i], now))
	}
	c.JSON(http.StatusOK, gin.H{"coupons": out})
}
