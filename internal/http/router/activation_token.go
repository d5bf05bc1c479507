package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
)

// ActivationTokenRouter sets up the provisioning routes. Everything here
// requires the admin API key.
func ActivationTokenRouter(rg *gin.RouterGroup, h *handler.ActivationTokenHandler) {
	rg.Use(h.RequireAdminAPIKey())
	{
		rg.POST("", h.Create)
		rg.GET("", h.List)
		rg.GET("/:id", h.Show)
		rg.DELETE("/:id", h.Delete)
	}
}
