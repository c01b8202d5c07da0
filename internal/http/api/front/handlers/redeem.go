package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/redeem"
)

// Zero is a legal coordinate, so range checks live in the verifier
// instead of binding tags.
type locationRequest struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type confirmRequest struct {
	Action    string `json:"action" binding:"required"`
	StaffCode string `json:"staff_code"`
}

func parseCouponID(c *gin.Context) (uint64, bool) {
	id, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid coupon id"))
		return 0, false
	}
	return id, true
}

// Session opens (or resumes) the redemption session for a coupon.
func (h *Handler) Session(c *gin.Context) {
	couponID, ok := parseCouponID(c)
	if !ok {
		return
	}
	session, errOpen := h.verifier.Open(c.Request.Context(), getUserID(c), couponID)
	if errOpen != nil {
		writeError(c, errOpen)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Location feeds a live GPS reading into the redemption session.
func (h *Handler) Location(c *gin.Context) {
	couponID, ok := parseCouponID(c)
	if !ok {
		return
	}
	var req locationRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "lat and lng are required"))
		return
	}
	session, errObserve := h.verifier.ObserveLocation(c.Request.Context(), getUserID(c), couponID, req.Lat, req.Lng)
	if errObserve != nil {
		writeError(c, errObserve)
		return
	}
	c.JSON(http.StatusOK, session)
}

// Confirm drives the staff-facing confirmation: begin pins the session,
// cancel backs out cleanly, commit performs the USED transition.
func (h *Handler) Confirm(c *gin.Context) {
	couponID, ok := parseCouponID(c)
	if !ok {
		return
	}
	var req confirmRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "action is required"))
		return
	}

	userID := getUserID(c)
	switch req.Action {
	case "begin":
		session, errBegin := h.verifier.BeginConfirm(c.Request.Context(), userID, couponID)
		if errBegin != nil {
			writeError(c, errBegin)
			return
		}
		c.JSON(http.StatusOK, session)
	case "cancel":
		session, errCancel := h.verifier.CancelConfirm(c.Request.Context(), userID, couponID)
		if errCancel != nil {
			writeError(c, errCancel)
			return
		}
		c.JSON(http.StatusOK, session)
	case "commit":
		used, errCommit := h.verifier.Commit(c.Request.Context(), userID, couponID, req.StaffCode)
		if errCommit != nil {
			writeError(c, errCommit)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"state":  redeem.StateUsed,
			"coupon": newCouponDTO(used, time.Now().UTC()),
		})
	default:
		writeError(c, apperr.New(apperr.KindValidation, "unknown action %q", req.Action))
	}
}
