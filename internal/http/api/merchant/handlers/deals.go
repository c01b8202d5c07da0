package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/models"
)

type createDealRequest struct {
	Title          string             `json:"title" binding:"required"`
	OriginalPrice  float64            `json:"original_price"`
	DiscountAmount float64            `json:"discount_amount"`
	ImageURL       string             `json:"image_url"`
	TotalCoupons   int                `json:"total_coupons"`
	ExpiresAt      time.Time          `json:"expires_at" binding:"required"`
	UsageCondition string             `json:"usage_condition"`
	BenefitType    models.BenefitType `json:"benefit_type"`
	BenefitText    string             `json:"benefit_text"`
	IsGhost        bool               `json:"is_ghost"`
}

type updateDealRequest struct {
	Title          *string            `json:"title"`
	OriginalPrice  *float64           `json:"original_price"`
	DiscountAmount *float64           `json:"discount_amount"`
	ImageURL       *string            `json:"image_url"`
	ExpiresAt      *time.Time         `json:"expires_at"`
	UsageCondition *string            `json:"usage_condition"`
	BenefitText    *string            `json:"benefit_text"`
	Status         *models.DealStatus `json:"status"`
}

type quantityRequest struct {
	Add int `json:"add" binding:"required"`
}

type copyRequest struct {
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}

func parseDealID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid deal id"))
		return 0, false
	}
	return id, true
}

// CreateDeal publishes a new deal for the authenticated merchant.
func (h *Handler) CreateDeal(c *gin.Context) {
	var req createDealRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "title and expires_at are required"))
		return
	}

	row, errCreate := h.deals.Create(c.Request.Context(), getMerchantID(c), deal.Definition{
		Title:          req.Title,
		OriginalPrice:  req.OriginalPrice,
		DiscountAmount: req.DiscountAmount,
		ImageURL:       req.ImageURL,
		TotalCoupons:   req.TotalCoupons,
		ExpiresAt:      req.ExpiresAt,
		UsageCondition: req.UsageCondition,
		BenefitType:    req.BenefitType,
		BenefitText:    req.BenefitText,
		IsGhost:        req.IsGhost,
	})
	if errCreate != nil {
		writeError(c, errCreate)
		return
	}
	h.feed.ApplyLocal(*row)
	c.JSON(http.StatusCreated, gin.H{"deal": row})
}

// ListDeals returns every deal owned by the merchant, ghosts included.
func (h *Handler) ListDeals(c *gin.Context) {
	merchantID := getMerchantID(c)
	filter := deal.Filter{MerchantID: &merchantID, IncludeGhosts: true}
	if search := c.Query("q"); search != "" {
		filter.TitleSearch = search
	}
	if status := c.Query("status"); status != "" {
		s := models.DealStatus(status)
		filter.Status = &s
	}

	rows, errList := h.deals.List(c.Request.Context(), filter)
	if errList != nil {
		writeError(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deals": rows})
}

// UpdateDeal applies partial edits to an active deal.
func (h *Handler) UpdateDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	var req updateDealRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid update payload"))
		return
	}

	errUpdate := h.deals.Update(c.Request.Context(), getMerchantID(c), dealID, deal.Update{
		Title:          req.Title,
		OriginalPrice:  req.OriginalPrice,
		DiscountAmount: req.DiscountAmount,
		ImageURL:       req.ImageURL,
		ExpiresAt:      req.ExpiresAt,
		UsageCondition: req.UsageCondition,
		BenefitText:    req.BenefitText,
		Status:         req.Status,
	})
	if errUpdate != nil {
		writeError(c, errUpdate)
		return
	}
	h.refreshFeedRow(c, dealID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// AddQuantity restocks an active deal, raising total and remaining
// together.
func (h *Handler) AddQuantity(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	var req quantityRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "add is required"))
		return
	}

	if errAdd := h.deals.AddQuantity(c.Request.Context(), getMerchantID(c), dealID, req.Add); errAdd != nil {
		writeError(c, errAdd)
		return
	}
	h.refreshFeedRow(c, dealID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// CopyDeal republishes an existing deal with fresh inventory and a new
// expiry.
func (h *Handler) CopyDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}
	var req copyRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "expires_at is required"))
		return
	}

	row, errCopy := h.deals.Copy(c.Request.Context(), getMerchantID(c), dealID, req.ExpiresAt)
	if errCopy != nil {
		writeError(c, errCopy)
		return
	}
	h.feed.ApplyLocal(*row)
	c.JSON(http.StatusCreated, gin.H{"deal": row})
}

// CancelDeal withdraws an active deal. Already-claimed coupons are
// untouched; the deal just stops being claimable.
func (h *Handler) CancelDeal(c *gin.Context) {
	dealID, ok := parseDealID(c)
	if !ok {
		return
	}

	status := models.DealStatusCanceled
	if errCancel := h.deals.Update(c.Request.Context(), getMerchantID(c), dealID, deal.Update{Status: &status}); errCancel != nil {
		writeError(c, errCancel)
		return
	}
	h.refreshFeedRow(c, dealID)
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// refreshFeedRow pushes the stored row into the feed cache after a write.
func (h *Handler) refreshFeedRow(c *gin.Context, dealID uint64) {
	if row, errGet := h.deals.Get(c.Request.Context(), dealID); errGet == nil {
		h.feed.ApplyLocal(*row)
	}
}
