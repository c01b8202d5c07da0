// Package front wires the consumer-facing routes under /v0/front.
package front

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/hotplate-app/hotplate/internal/http/api/front/handlers"
	"github.com/hotplate-app/hotplate/internal/security"
)

// RegisterRoutes mounts the consumer API on the engine.
func RegisterRoutes(r *gin.Engine, h *handlers.Handler) {
	group := r.Group("/v0/front")

	group.POST("/register", h.Register)
	group.POST("/login", h.Login)
	group.GET("/feed", h.Feed)

	authed := group.Group("")
	authed.Use(userAuthMiddleware(h.JWTSecret()))
	authed.GET("/deals/:id", h.DealDetail)
	authed.POST("/deals/:id/reveal", h.Reveal)
	authed.POST("/deals/:id/claim", h.Claim)
	authed.GET("/coupons", h.Coupons)
	authed.POST("/coupons/:id/session", h.Session)
	authed.POST("/coupons/:id/location", h.Location)
	authed.POST("/coupons/:id/confirm", h.Confirm)
}

// userAuthMiddleware validates the bearer token and stashes the user ID in
// the request context.
func userAuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "missing bearer token"}})
			return
		}
		claims, errParse := security.ParseUserToken(secret, strings.TrimPrefix(header, "Bearer "))
		if errParse != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": errParse.Error()}})
			return
		}
		c.Set("userID", claims.UserID)
		c.Next()
	}
}
