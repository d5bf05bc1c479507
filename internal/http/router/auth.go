package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

func AuthRouter(rg *gin.RouterGroup, h *handler.SignUpHandler) {
	rg.POST("/signup", h.SignUp)
}
