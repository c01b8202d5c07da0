// Package handlers implements the consumer-facing API endpoints.
package handlers

import (
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/claim"
	"github.com/hotplate-app/hotplate/internal/config"
	"github.com/hotplate-app/hotplate/internal/deal"
	"github.com/hotplate-app/hotplate/internal/feed"
	"github.com/hotplate-app/hotplate/internal/redeem"
	"github.com/hotplate-app/hotplate/internal/reveal"
)

// Handler bundles the services the front endpoints depend on.
type Handler struct {
	db       *gorm.DB
	jwt      config.JWTConfig
	deals    *deal.Store
	claims   *claim.Engine
	verifier *redeem.Verifier
	gate     reveal.Gate
	feed     *feed.Refresher
}

// NewHandler constructs the front handler set.
func NewHandler(db *gorm.DB, jwt config.JWTConfig, deals *deal.Store, claims *claim.Engine, verifier *redeem.Verifier, gate reveal.Gate, feedCache *feed.Refresher) *Handler {
	return &Handler{
		db:       db,
		jwt:      jwt,
		deals:    deals,
		claims:   claims,
		verifier: verifier,
		gate:     gate,
		feed:     feedCache,
	}
}

// JWTSecret exposes the signing secret to the route-level auth middleware.
func (h *Handler) JWTSecret() string { return h.jwt.Secret }
