package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

// accessTokenTTL matches the dashboard session length.
const accessTokenTTL = 7 * 24 * time.Hour

type SignUpHandler struct {
	signUpService service.SignUpService
	jwtSecret     string
}

func NewSignUpHandler(signUpService service.SignUpService, jwtSecret string) *SignUpHandler {
	return &SignUpHandler{
		signUpService: signUpService,
		jwtSecret:     jwtSecret,
	}
}

type signUpRequest struct {
	ActivationToken string `json:"activationToken" binding:"required"`
	Name            string `json:"name" binding:"required,min=1,max=255"`
	Email           string `json:"email" binding:"required,email,max=255"`
	Password        string `json:"password" binding:"required,min=8,max=128"`
	Phone           string `json:"phone" binding:"omitempty,max=30"`
}

type signUpResponse struct {
	*service.SignUpResult
	AccessToken string `json:"accessToken"`
}

// SignUp provisions a company from an activation token (public endpoint).
// The response carries an access token so the new admin lands logged in.
func (h *SignUpHandler) SignUp(c *gin.Context) {
	ctx := c.Request.Context()

	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	result, err := h.signUpService.SignUpCompany(ctx, service.SignUpInput{
		Token:     req.ActivationToken,
		AdminName: req.Name,
		Email:     req.Email,
		Password:  req.Password,
		Phone:     req.Phone,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	accessToken, err := middleware.SignToken(h.jwtSecret, result.Admin, accessTokenTTL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to issue access token after signup", "error", err, "company_id", result.Company.ID)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "signup succeeded but login failed, sign in manually"})
		return
	}

	c.JSON(http.StatusCreated, signUpResponse{
		SignUpResult: result,
		AccessToken:  accessToken,
	})
}

func (h *SignUpHandler) respondError(c *gin.Context, err error) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrTokenNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "activation token not found", "code": "not_found"})
	case errors.Is(err, service.ErrTokenUsed):
		c.JSON(http.StatusGone, gin.H{"error": "activation token was already used", "code": "already_used"})
	case errors.Is(err, service.ErrTokenExpired):
		c.JSON(http.StatusGone, gin.H{"error": "activation token has expired", "code": "expired"})
	case errors.Is(err, service.ErrInvalidSignup):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
	case errors.Is(err, service.ErrEmailTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "email is already registered", "code": "email_taken"})
	case errors.Is(err, service.ErrCompanyNameTaken):
		c.JSON(http.StatusConflict, gin.H{"error": "company name is already registered", "code": "company_taken"})
	default:
		slog.ErrorContext(ctx, "failed to sign up company", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to sign up"})
	}
}
