package router

import (
	"github.com/gin-gonic/gin"

	"atendo.app/desk/internal/http/handler"
	"atendo.app/desk/internal/http/middleware"
	"atendo.app/desk/internal/service"
)

type RouterConfig struct {
	JWTSecret   string
	AdminAPIKey string
}

func SetupRoutes(router *gin.Engine, services *service.Services, cfg RouterConfig) {
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	signUpHandler := handler.NewSignUpHandler(services.SignUp(), cfg.JWTSecret)
	AuthRouter(router.Group("/auth"), signUpHandler)

	tokenHandler := handler.NewActivationTokenHandler(services.ActivationTokens(), cfg.AdminAPIKey)
	ActivationTokenRouter(router.Group("/activation-tokens"), tokenHandler)

	authed := router.Group("")
	authed.Use(middleware.RequireAuth(cfg.JWTSecret))
	{
		syncHandler := handler.NewSyncHandler(services.Sync())
		SyncRouter(authed.Group("/sync"), syncHandler)

		contactHandler := handler.NewContactHandler(services.Contacts(), services.Merge())
		ContactRouter(authed.Group("/contacts"), contactHandler)

		ticketHandler := handler.NewTicketHandler(services.Tickets(), services.Outbound())
		TicketRouter(authed.Group("/tickets"), ticketHandler)

		assistHandler := handler.NewAssistHandler(services.Assist())
		AssistRouter(authed.Group("/ai"), assistHandler)
	}
}
