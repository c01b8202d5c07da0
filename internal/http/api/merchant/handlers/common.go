// Package handlers implements the merchant-facing API endpoints.
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/apperr"
	"github.com/hotplate-app/hotplate/internal/config"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/feed"
)

// Handler bundles the services the merchant endpoints depend on.
type Handler struct {
	db    *gorm.DB
	jwt   config.JWTConfig
	deals *deal.Store
	feed  *feed.Refresher
}

// NewHandler constructs the merchant handler set.
func NewHandler(db *gorm.DB, jwt config.JWTConfig, deals *deal.Store, feedCache *feed.Refresher) *Handler {
	return &Handler{db: db, jwt: jwt, deals: deals, feed: feedCache}
}

// JWTSecret exposes the signing secret to the route-level auth middleware.
func (h *Handler) JWTSecret() string { return h.jwt.Secret }

// getMerchantID extracts the authenticated merchant ID from gin context.
func getMerchantID(c *gin.Context) uint64 {
	val, exists := c.Get("merchantID")
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
