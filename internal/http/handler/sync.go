package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/dto"
	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

type SyncHandler struct {
	syncService service.SyncService
}

func NewSyncHandler(syncService service.SyncService) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

// Check compares external and stored message counts without writing anything.
func (h *SyncHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()

	contactID, ok := pathID(c, "contactId")
	if !ok {
		return
	}
	connectionID, ok := pathID(c, "connectionId")
	if !ok {
		return
	}

	result, err := h.syncService.CheckSync(ctx, middleware.CompanyID(c), contactID, connectionID)
	if err != nil {
		h.respondError(c, err, "failed to check message sync")
		return
	}

	c.JSON(http.StatusOK, result)
}

// Sync backfills the messages missing locally for one contact.
func (h *SyncHandler) Sync(c *gin.Context) {
	ctx := c.Request.Context()

	contactID, ok := pathID(c, "contactId")
	if !ok {
		return
	}
	connectionID, ok := pathID(c, "connectionId")
	if !ok {
		return
	}
	limit, ok := h.bindLimit(c)
	if !ok {
		return
	}

	result, err := h.syncService.SyncMessages(ctx, middleware.CompanyID(c), contactID, connectionID, limit)
	if err != nil {
		h.respondError(c, err, "failed to sync messages")
		return
	}

	slog.InfoContext(ctx, "messages synced",
		"contact_id", contactID,
		"missing", result.MissingMessages,
		"synced", result.SyncedMessages,
		"errors", len(result.Errors))

	c.JSON(http.StatusOK, result)
}

// SyncTicket backfills through a ticket id instead of a contact id.
func (h *SyncHandler) SyncTicket(c *gin.Context) {
	ctx := c.Request.Context()

	ticketID, ok := pathID(c, "ticketId")
	if !ok {
		return
	}
	limit, ok := h.bindLimit(c)
	if !ok {
		return
	}

	result, err := h.syncService.SyncTicketMessages(ctx, middleware.CompanyID(c), ticketID, limit)
	if err != nil {
		h.respondError(c, err, "failed to sync ticket messages")
		return
	}

	c.JSON(http.StatusOK, result)
}

// bindLimit reads the optional request body. An empty body means the server
// default limit.
func (h *SyncHandler) bindLimit(c *gin.Context) (int, bool) {
	var req dto.SyncMessagesRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return 0, false
	}
	return req.Limit, true
}

func (h *SyncHandler) respondError(c *gin.Context, err error, fallback string) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found", "code": "not_found"})
	case errors.Is(err, service.ErrTicketNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "ticket not found", "code": "not_found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "contact belongs to another company", "code": "ERR_FORBIDDEN"})
	case errors.Is(err, service.ErrChannelUnavailable):
		c.Header("Retry-After", "30")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "whatsapp connection unavailable, retry once the session reconnects",
			"code":  "channel_unavailable",
		})
	default:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
