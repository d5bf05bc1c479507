package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

func ContactRouter(rg *gin.RouterGroup, h *handler.ContactHandler) {
	rg.POST("/dedup-scan", h.DedupScan)
	rg.GET("/:contactId", h.Show)
	rg.PUT("/:contactId", h.Update)
}
