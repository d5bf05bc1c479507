package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

func AssistRouter(rg *gin.RouterGroup, h *handler.AssistHandler) {
	rg.POST("/improve", h.Improve)
	rg.POST("/reply", h.Reply)
}
