package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/domain"
	"github.com/harbordocs/harbor/internal/logger"
	"github.com/harbordocs/harbor/internal/service"
)

// UserHandler handles profile and account administration endpoints.
type UserHandler struct {
	accounts *service.AccountService
}

// NewUserHandler creates a new user handler.
func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// Profile handles GET /api/v1/users/profile.
func (h *UserHandler) Profile(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile handles PUT /api/v1/users/profile.
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	user, err := h.accounts.UpdateProfile(c.Request.Context(), middleware.UserID(c), req.Name)
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Update rejected: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, user)
}

// List handles GET /api/v1/users. Admin only.
func (h *UserHandler) List(c *gin.Context) {
	caller, err := h.accounts.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}
	if caller.Role != domain.RoleAdmin {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access required"})
		return
	}

	limit := 20
	if raw := c.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}
	offset := 0
	if raw := c.Query("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
			offset = n
		}
	}

	users, total, err := h.accounts.ListUsers(c.Request.Context(), limit, offset)
	if err != nil {
		logger.CtxError(c.Request.Context(), "user listing failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list users"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users":  users,
		"total":  total,
		"limit":  limit,
		"offset": offset,
	})
}
