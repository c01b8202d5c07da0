package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
)

// Claim issues a coupon for the authenticated user. On ALREADY_CLAIMED
// the 409 payload carries the outstanding coupon so the client can jump
// straight to it.
func (h *Handler) Claim(c *gin.Context) {
	dealID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid deal id"))
		return
	}

	coupon, errClaim := h.claims.Claim(c.Request.Context(), getUserID(c), dealID)
	if errClaim != nil {
		if apperr.IsKind(errClaim, apperr.KindAlreadyClaimed) && coupon != nil {
			c.JSON(http.StatusConflict, gin.H{
				"error":  gin.H{"code": apperr.KindAlreadyClaimed, "message": "deal already claimed"},
				"coupon": newCouponDTO(coupon, time.Now().UTC()),
			})
			return
		}
		writeError(c, errClaim)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"coupon": newCouponDTO(coupon, time.Now().UTC())})
}
