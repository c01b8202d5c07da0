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
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Email    string `json:"email"`
}

type loginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Register creates a consumer account and returns a session token.
func (h *Handler) Register(c *gin.Context) {
	var req registerRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username and password are required"}})
		return
	}
	username := strings.TrimSpace(req.Username)
	if username == "" || len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username is required and password must be at least 6 characters"}})
		return
	}

	var existing models.User
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
	user := models.User{Username: username, Password: hash, Email: strings.TrimSpace(req.Email)}
	if errCreate := h.db.Create(&user).Error; errCreate != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": gin.H{"code": "TRANSIENT", "message": "create account failed"}})
		return
	}

	token, errToken := security.GenerateUserToken(h.jwt.Secret, user.ID, user.Username, h.jwt.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "token signing failed"}})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
}

// Login authenticates a consumer and returns a session token.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if errBind := c.ShouldBindJSON(&req); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": gin.H{"code": "VALIDATION", "message": "username and password are required"}})
		return
	}

	var user models.User
	if errFind := h.db.Where("username = ?", strings.TrimSpace(req.Username)).First(&user).Error; errFind != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "invalid credentials"}})
		return
	}
	if user.Disabled || !security.CheckPassword(user.Password, req.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": gin.H{"code": "VALIDATION", "message": "invalid credentials"}})
		return
	}

	token, errToken := security.GenerateUserToken(h.jwt.Secret, user.ID, user.Username, h.jwt.Expiry)
	if errToken != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": "INTERNAL", "message": "token signing failed"}})
		return
	}
	c.JSON(http.StatusOK, gin.H{"token": token, "user": gin.H{"id": user.ID, "username": user.Username}})
}
