package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/reveal"
)

type revealRequest struct {
	Holding bool `json:"holding"`
}

// Reveal processes one tick of the ghost-deal press-and-hold. holding=true
// advances progress; holding=false releases, resetting partial progress.
func (h *Handler) Reveal(c *gin.Context) {
	dealID, errParse := strconv.ParseUint(c.Param("id"), 10, 64)
	if errParse != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid deal id"))
		return
	}
	var req revealRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		writeError(c, apperr.New(apperr.KindValidation, "invalid reveal payload"))
		return
	}

	userID := getUserID(c)
	row, errGet := h.deals.Get(c.Request.Context(), dealID)
	if errGet != nil {
		writeError(c, errGet)
		return
	}
	if !row.IsGhost {
		writeError(c, apperr.New(apperr.KindValidation, "deal %d has nothing to reveal", dealID))
		return
	}

	var progress reveal.Progress
	if req.Holding {
		var errHold error
		progress, errHold = h.gate.Hold(c.Request.Context(), userID, dealID)
		if errHold != nil {
			writeError(c, apperr.Wrap(apperr.KindTransient, errHold, "reveal hold failed"))
			return
		}
	} else {
		if errRelease := h.gate.Release(c.Request.Context(), userID, dealID); errRelease != nil {
			writeError(c, apperr.Wrap(apperr.KindTransient, errRelease, "reveal release failed"))
			return
		}
		revealed, errRevealed := h.gate.Revealed(c.Request.Context(), userID, dealID)
		if errRevealed != nil {
			writeError(c, apperr.Wrap(apperr.KindTransient, errRevealed, "reveal lookup failed"))
			return
		}
		progress = reveal.Progress{Revealed: revealed}
		if revealed {
			progress.Percent = 100
		}
	}
	c.JSON(http.StatusOK, progress)
}
