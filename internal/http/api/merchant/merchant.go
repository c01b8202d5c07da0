// Package merchant wires the merchant-facing routes under /v0/merchant.
package merchant

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/http/api/merchant/handlers"
	"github.com/hotplate-app/hotplate/internal/security"
)

// RegisterRoutes mounts the merchant API on the engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	group := r.Group("/v0/merchant")

	group.POST("/register", h.Register)
	group.POST("/login", h.Login)

	authed := group.Group("")
	authed.Use(merchantAuthMiddleware(h.JWTSecret()))
	authed.POST("/deals", h.CreateDeal)
	authed.GET("/deals", h.ListDeals)
	authed.PUT("/deals/:id", h.UpdateDeal)
	authed.POST("/deals/:id/quantity", h.AddQuantity)
	authed.POST("/deals/:id/copy", h.CopyDeal)
	authed.POST("/deals/:id/cancel", h.CancelDeal)
}

// merchantAuthMiddleware validates the bearer token and stashes the
// merchant ID in the request context.
func merchantAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "missing bearer token"}})
			return
		}
		claims, errParse := security.ParseMerchantToken(secret, strings.TrimPrefix(header, "Bearer "))
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": errParse.Error()}})
			return
		}
		c.Set("merchantID", claims.MerchantID)
		c.Next()
	}
}
