package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

func TicketRouter(rg *gin.RouterGroup, h *handler.TicketHandler) {
	rg.GET("/:ticketId", h.Show)
	rg.POST("/:ticketId/messages", h.SendMessage)
}
