package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hotplate-app/hotplate/internal/apperr"
)

// getUserID extracts the authenticated user ID from gin context.
func getUserID(c *gin.Context) uint64 {
	val, exists := c.Get("userID")
	if !exists {
		return 0
	}
	id, ok := val.(uint64)
	if !ok {
		return 0
	}
	return id
}

// writeError renders an error as the shared {"error": {code, message}}
// payload with the status its kind maps to.
func writeError(c *gin.Context, err error) {
	kind, ok := apperr.KindOf(err)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "internal error"}})
		return
	}
	var message string
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		message = appErr.Message
	}
	c.JSON(apperr.HTTPStatus(kind), gin.H{"error": gin.H{"code": kind, "message": message}})
}
