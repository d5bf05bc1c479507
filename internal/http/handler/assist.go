package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

type AssistHandler struct {
	assistService service.AssistService
}

func NewAssistHandler(assistService service.AssistService) *AssistHandler {
	return &AssistHandler{assistService: assistService}
}

type improveTextRequest struct {
	Text string `json:"text" binding:"required"`
}

type assistResponse struct {
	Text string `json:"text"`
}

func (h *AssistHandler) Improve(c *gin.Context) {
	ctx := c.Request.Context()

	var req improveTextRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required", "code": "bad_request"})
		return
	}

	improved, err := h.assistService.ImproveText(ctx, middleware.CompanyID(c), req.Text)
	if err != nil {
		h.respondError(c, err, "failed to improve text")
		return
	}

	c.JSON(http.StatusOK, assistResponse{Text: improved})
}

type generateReplyRequest struct {
	TicketID int64 `json:"ticketId" binding:"required"`
}

func (h *AssistHandler) Reply(c *gin.Context) {
	ctx := c.Request.Context()

	var req generateReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ticketId is required", "code": "bad_request"})
		return
	}

	reply, err := h.assistService.GenerateReply(ctx, middleware.CompanyID(c), req.TicketID)
	if err != nil {
		h.respondError(c, err, "failed to generate reply")
		return
	}

	c.JSON(http.StatusOK, assistResponse{Text: reply})
}

func (h *AssistHandler) respondError(c *gin.Context, err error, fallback string) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrAssistDisabled):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "AI assist is not configured", "code": "assist_disabled"})
	case errors.Is(err, service.ErrEmptyText):
		c.JSON(http.StatusBadRequest, gin.H{"error": "text is required", "code": "bad_request"})
	case errors.Is(err, service.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found", "code": "not_found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "ticket belongs to another company", "code": "ERR_FORBIDDEN"})
	default:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
