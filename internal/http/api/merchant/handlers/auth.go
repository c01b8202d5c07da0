package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/hotplate-app/hotplate/internal/models"
	"github.com/hotplate-app/hotplate/internal/security"
)

type registerRequest struct {
	Username         string  `json:"username" binding:"required"`
	Password         string  `json:"password" binding:"required"`
	Name             string  `json:"name" binding:"required"`
	Category         string  `json:"category"`
	Lat              float64 `json:"lat"`
	Lng              float64 `json:"lng"`
	RequireStaffCode bool    `json:"require_staff_code"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a merchant account. The response carries the staff
// TOTP provisioning URI exactly once; it is never shown again.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username, password, and name are required"}})
		return
	}
	username := strings.TrimSpace(req.Username)
	name := strings.TrimSpace(req.Name)
	if username == "" || name == "" || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username and name are required and password must be at least 6 characters"}})
		return
	}
	if req.Lat < -90 || req.Lat > 90 || req.Lng < -180 || req.Lng > 180 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "coordinates out of range"}})
		return
	}

	var existing models.Merchant
	errFind := h.db.Where("username = ?", username).First(&existing).Error
	if errFind == nil {
		c.JSON(http.StatusConflict, gin.H{"error": gin.H{"code": "CONFLICT", "message": "username already taken"}})
		return
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "TRANSIENT", "message": "lookup failed"}})
		return
	}

	hash, errHash := security.HashPassword(req.Password)
	if errHash != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "hash failed"}})
		return
	}
	secret, uri, errSecret := security.NewStaffSecret(name)
	if errSecret != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "staff secret generation failed"}})
		return
	}

	merchant := models.Merchant{
		Username:         username,
		Password:         hash,
		Name:             name,
		Category:         strings.TrimSpace(req.Category),
		Latitude:         req.Lat,
		Longitude:        req.Lng,
		StaffTOTPSecret:  secret,
		RequireStaffCode: req.RequireStaffCode,
	}
	if errCreate := h.db.Create(&merchant).Error; errCreate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "TRANSIENT", "message": "create account failed"}})
		return
	}

	token, errToken := security.GenerateMerchantToken(h.jwt.Secret, merchant.ID, merchant.Username, h.jwt.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "token signing failed"}})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"token":          token,
		"merchant":       gin.H{"id": merchant.ID, "username": merchant.Username, "name": merchant.Name},
		"staff_totp_uri": uri,
	})
}

// Login authenticates a merchant and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username and password are required"}})
		return
	}

	var merchant models.Merchant
	if errFind := h.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&merchant).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "invalid credentials"}})
		return
	}
	if merchant.Disabled || !security.CheckPassword(merchant.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "invalid credentials"}})
		return
	}

	token, errToken := security.GenerateMerchantToken(h.jwt.Secret, merchant.ID, merchant.Username, h.jwt.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "token signing failed"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"merchant": gin.H{"id": merchant.ID, "username": merchant.Username, "name": merchant.Name},
	})
}
