package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

type TicketHandler struct {
	ticketService   service.TicketService
	outboundService service.OutboundService
}

func NewTicketHandler(ticketService service.TicketService, outboundService service.OutboundService) *TicketHandler {
	return &TicketHandler{ticketService: ticketService, outboundService: outboundService}
}

// Show returns the ticket with its contact embedded, the projection the
// dashboard loads when a realtime event points at a ticket id.
func (h *TicketHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()

	ticketID, ok := pathID(c, "ticketId")
	if !ok {
		return
	}

	ticket, err := h.ticketService.Show(ctx, middleware.CompanyID(c), ticketID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found", "code": "not_found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "ticket belongs to another company", "code": "ERR_FORBIDDEN"})
		default:
			slog.ErrorContext(ctx, "failed to load ticket", "error", err, "ticket_id", ticketID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load ticket"})
		}
		return
	}

	c.JSON(http.StatusOK, ticket)
}

type sendMessageRequest struct {
	Body string `json:"body" binding:"required"`
}

// SendMessage sends an agent reply over the ticket's channel connection. The
// outbound message comes back recorded, so the response includes its wire id.
func (h *TicketHandler) SendMessage(c *gin.Context) {
	ctx := c.Request.Context()

	ticketID, ok := pathID(c, "ticketId")
	if !ok {
		return
	}

	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	msg, err := h.outboundService.SendText(ctx, middleware.CompanyID(c), ticketID, req.Body)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEmptyBody):
			c.JSON(http.StatusBadRequest, gin.H{"error": "message body is empty", "code": "bad_request"})
		case errors.Is(err, service.ErrTicketNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found", "code": "not_found"})
		case errors.Is(err, service.ErrForbidden):
			c.JSON(http.StatusForbidden, gin.H{"error": "ticket belongs to another company", "code": "ERR_FORBIDDEN"})
		case errors.Is(err, service.ErrChannelUnavailable):
			c.Header("Retry-After", "30")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "channel connection unavailable", "code": "channel_unavailable"})
		default:
			slog.ErrorContext(ctx, "failed to send message", "error", err, "ticket_id", ticketID)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to send message"})
		}
		return
	}

	c.JSON(http.StatusCreated, msg)
}
