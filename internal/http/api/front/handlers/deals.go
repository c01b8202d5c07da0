package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/expiry"
	"github.com/hotplate-app/hotplate/internal/models"
)

type restaurantDTO struct {
	ID       uint64  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
}

type dealDTO struct {
	ID               uint64             `json:"id"`
	Title            string             `json:"title"`
	OriginalPrice    float64            `json:"original_price"`
	DiscountAmount   float64            `json:"discount_amount"`
	ImageURL         string             `json:"image_url"`
	TotalCoupons     int                `json:"total_coupons"`
	RemainingCoupons int                `json:"remaining_coupons"`
	ExpiresAt        time.Time          `json:"expires_at"`
	Remaining        expiry.Breakdown   `json:"remaining"`
	Status           models.DealStatus  `json:"status"`
	UsageCondition   string             `json:"usage_condition"`
	BenefitType      models.BenefitType `json:"benefit_type"`
	BenefitText      string             `json:"benefit_text"`
	IsGhost          bool               `json:"is_ghost"`
	Masked           bool               `json:"masked"`
	Restaurant       *restaurantDTO     `json:"restaurant,omitempty"`
}

// newDealDTO renders a deal for the consumer API. A ghost deal the viewer
// has not revealed keeps its benefit terms hidden.
func newDealDTO(row *models.Deal, now time.Time, revealed bool) dealDTO {
	dto := dealDTO{
		ID:               row.ID,
		Title:            row.Title,
		OriginalPrice:    row.OriginalPrice,
		DiscountAmount:   row.DiscountAmount,
		ImageURL:         row.ImageURL,
		TotalCoupons:     row.TotalCoupons,
		RemainingCoupons: row.RemainingCoupons,
		ExpiresAt:        row.ExpiresAt,
		Remaining:        expiry.Remaining(row.ExpiresAt, now),
		Status:           row.EffectiveStatus(now),
		UsageCondition:   row.UsageCondition,
		BenefitType:      row.BenefitType,
		BenefitText:      row.BenefitText,
		IsGhost:          row.IsGhost,
	}
	if row.Merchant != nil {
		dto.Restaurant = &restaurantDTO{
			ID:       row.Merchant.ID,
			Name:     row.Merchant.Name,
			Category: row.Merchant.Category,
			Lat:      row.Merchant.Latitude,
			Lng:      row.Merchant.Longitude,
		}
	}
	if row.IsGhost && !revealed {
		dto.Masked = true
		dto.OriginalPrice = 0
		dto.DiscountAmount = 0
		dto.BenefitText = ""
		dto.UsageCondition = ""
	}
	return dto
}

// Feed serves the cached public deal listing, falling back to the store
// when the cache has not warmed up yet.
func (h *Handler) Feed(c *gin.Context) {
	now := time.Now().UTC()

	rows, ok := h.feed.Snapshot()
	if !ok {
		active := models.DealStatusActive
		var errList error
		rows, errList = h.deals.List(c.Request.Context(), deal.Filter{Status: &active})
		if errList != nil {
			writeError(c, errList)
			return
		}
	}

	out := make([]dealDTO, 0, len(rows))
	for i := range rows {
		if rows[i].EffectiveStatus(now) != models.DealStatusActive {
			continue
		}
		out = append(out, newDealDTO(&rows[i], now, false))
	}
	c.JSON(http.StatusOK, gin.H{"deals": out})
}

// DealDetail serves one deal, unmasking ghost terms for viewers who have
// completed the reveal.
func (h *Handler) DealDetail(c *gin.Context) {
	dealID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid deal id"))
		return
	}

	row, errGet := h.deals.Get(c.Request.Context(), dealID)
	if errGet != nil {
		writeError(c, errGet)
		return
	}

	revealed := false
	if row.IsGhost {
		var errRevealed error
		revealed, errRevealed = h.gate.Revealed(c.Request.Context(), getUserID(c), dealID)
		if errRevealed != nil {
			writeError(c, apperr.Wrap(apperr.KindTransient, errRevealed, "reveal lookup failed"))
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"deal": newDealDTO(row, time.Now().UTC(), revealed)})
}
