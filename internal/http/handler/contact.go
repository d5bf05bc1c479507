package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/dto"
	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

type ContactHandler struct {
	contactService service.ContactService
	mergeService   service.MergeService
}

func NewContactHandler(contactService service.ContactService, mergeService service.MergeService) *ContactHandler {
	return &ContactHandler{contactService: contactService, mergeService: mergeService}
}

func (h *ContactHandler) Show(c *gin.Context) {
	ctx := c.Request.Context()

	contactID, ok := pathID(c, "contactId")
	if !ok {
		return
	}

	contact, err := h.contactService.Get(ctx, middleware.CompanyID(c), contactID)
	if err != nil {
		h.respondError(c, err, "failed to load contact")
		return
	}

	c.JSON(http.StatusOK, contact)
}

// Update applies partial changes. Changing the number to one another contact
// already holds merges that contact into this one before responding.
func (h *ContactHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	contactID, ok := pathID(c, "contactId")
	if !ok {
		return
	}

	var req dto.UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		slog.WarnContext(ctx, "invalid contact update body", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "bad_request"})
		return
	}

	contact, err := h.contactService.Update(ctx, middleware.CompanyID(c), contactID, req.ToInput())
	if err != nil {
		h.respondError(c, err, "failed to update contact")
		return
	}

	c.JSON(http.StatusOK, contact)
}

// DedupScan sweeps the company's contacts for linked-device artifacts and
// absorbs them into their real counterparts. Safe to re-run; a clean company
// yields an empty report.
func (h *ContactHandler) DedupScan(c *gin.Context) {
	ctx := c.Request.Context()

	report, err := h.mergeService.ScanLinkedDeviceArtifacts(ctx, middleware.CompanyID(c))
	if err != nil {
		slog.ErrorContext(ctx, "contact dedup scan failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "dedup scan failed"})
		return
	}

	c.JSON(http.StatusOK, report)
}

func (h *ContactHandler) respondError(c *gin.Context, err error, fallback string) {
	ctx := c.Request.Context()
	switch {
	case errors.Is(err, service.ErrContactNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "contact not found", "code": "not_found"})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "contact belongs to another company", "code": "ERR_FORBIDDEN"})
	case errors.Is(err, service.ErrInvalidNumber):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": "invalid_number"})
	default:
		slog.ErrorContext(ctx, fallback, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": fallback})
	}
}
