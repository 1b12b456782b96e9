package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/harbordocs/harbor/internal/api/middleware"
	"github.com/harbordocs/harbor/internal/service"
)

// AuthHandler handles login, token refresh, and profile endpoints.
type AuthHandler struct {
	accounts *service.AccountService
}

// NewAuthHandler creates a new auth handler.
func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// Login handles GET /api/v1/auth/google. Redirects to the Google consent
// page with a fresh state value.
func (h *AuthHandler) Login(c *gin.Context) {
	state := uuid.NewString()
	c.SetCookie("oauth_state", state, 600, "/", "", false, true)
	c.Redirect(http.StatusTemporaryRedirect, h.accounts.ConsentURL(state))
}

// Callback handles GET /api/v1/auth/google/callback.
func (h *AuthHandler) Callback(c *gin.Context) {
	state := c.Query("state")
	cookie, err := c.Cookie("oauth_state")
	if err != nil || state == "" || state != cookie {
		c.JSON(http.StatusBadRequest, gin.H{"error": "state mismatch"})
		return
	}

	code := c.Query("code")
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter 'code' is required"})
		return
	}

	result, err := h.accounts.HandleCallback(c.Request.Context(), code)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Login failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, result)
}

// Refresh handles POST /api/v1/auth/refresh.
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}

	pair, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}

	c.JSON(http.StatusOK, pair)
}

// Logout handles POST /api/v1/auth/logout. Sessions are stateless JWTs, so
// the server only clears the state cookie; clients discard their tokens.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetCookie("oauth_state", "", -1, "/", "", false, true)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /api/v1/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.accounts.GetUser(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		return
	}

	c.JSON(http.StatusOK, user)
}
