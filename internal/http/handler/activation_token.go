package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/service"
)

type ActivationTokenHandler struct {
	tokenService service.ActivationTokenService
	adminAPIKey  string
}

func NewActivationTokenHandler(tokenService service.ActivationTokenService, adminAPIKey string) *ActivationTokenHandler {
	return &ActivationTokenHandler{
		tokenService: tokenService,
		adminAPIKey:  adminAPIKey,
	}
}

type createActivationTokenRequest struct {
	CompanyName    string     `json:"companyName" binding:"required,min=1,max=255"`
	Plan           string     `json:"plan" binding:"omitempty,max=100"`
	MaxUsers       int        `json:"maxUsers" binding:"omitempty,min=1"`
	MaxConnections int        `json:"maxConnections" binding:"omitempty,min=1"`
	ExpiresAt      *time.Time `json:"expiresAt,omitempty"`
	Notes          string     `json:"notes" binding:"omitempty,max=1000"`
}

// Create mints a new activation token (admin only).
func (h *ActivationTokenHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var req createActivationTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: companyName is required", "code": "bad_request"})
		return
	}

	token, err := h.tokenService.Create(ctx, service.CreateActivationTokenInput{
		CompanyName:    req.CompanyName,
		Plan:           req.Plan,
		MaxUsers:       req.MaxUsers,
		MaxConnections: req.MaxConnections,
		ExpiresAt:      req.ExpiresAt,
		Notes:          req.Notes,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create activation token", "error", err, "company_name", req.CompanyName)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create activation token"})
		return
	}

	slog.InfoContext(ctx, "activation token created via admin API",
		"token_id", token.ID,
		"company_name", token.CompanyName,
	)

	c.JSON(http.StatusCreated, token)
}

// List lists activation tokens, newest first (admin only).
func (h *ActivationTokenHandler) List(c *gin.Context) {
	ctx := c.Request.Context()

	tokens, err := h.tokenService.List(ctx, 100, 0)
	if err != nil {
		slog.ErrorContext(ctx, "failed to list activation tokens", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list activation tokens"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"tokens": tokens})
}

// Show returns one activation token by id (admin only).
func (h *ActivationTokenHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()

	tokenID, ok := pathID(c, "id")
	if !ok {
		return
	}

	token, err := h.tokenService.Get(ctx, tokenID)
	if err != nil {
		if errors.Is(err, service.ErrTokenNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "activation token not found", "code": "not_found"})
			return
		}
		slog.ErrorContext(ctx, "failed to load activation token", "error", err, "token_id", tokenID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load activation token"})
		return
	}

	c.JSON(http.StatusOK, token)
}

// Delete removes a token that was never consumed (admin only).
func (h *ActivationTokenHandler) Delete(c *gin.Context) {
	ctx := c.Request.Context()

	tokenID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.tokenService.Delete(ctx, tokenID); err != nil {
		switch {
		case errors.Is(err, service.ErrTokenNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "activation token not found", "code": "not_found"})
		case errors.Is(err, service.ErrTokenUsed):
			c.JSON(http.StatusConflict, gin.H{"error": "token was already consumed", "code": "already_used"})
		default:
			slog.ErrorContext(ctx, "failed to delete activation token", "error", err, "token_id", tokenID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete activation token"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

// RequireAdminAPIKey guards the provisioning endpoints.
func (h *ActivationTokenHandler) RequireAdminAPIKey() gin.HandlerFunc {
	return func(c *gin.Context) {
		if h.adminAPIKey == "" {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "admin API not configured"})
			c.Abort()
			return
		}

		apiKey := c.GetHeader("X-Admin-API-Key")
		if apiKey == "" {
			apiKey = c.GetHeader("Authorization")
			if len(apiKey) > 7 && apiKey[:7] == "Bearer " {
				apiKey = apiKey[7:]
			}
		}

		if apiKey != h.adminAPIKey {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or missing API key"})
			c.Abort()
			return
		}

		c.Next()
	}
}
