package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

func SyncRouter(rg *gin.RouterGroup, h *handler.SyncHandler) {
	rg.GET("/messages/check/:contactId/:connectionId", h.Check)
	rg.POST("/messages/ticket/:ticketId", h.SyncTicket)
	rg.POST("/messages/:contactId/:connectionId", h.Sync)
}
