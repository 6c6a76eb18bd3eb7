package api

import (
	"net/http"

	"mail-triage-backend/internal/auth/delivery"
	emailDelivery "mail-triage-backend/internal/email/delivery"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func SetupRoutes(r *gin.Engine, emailHandler *emailDelivery.EmailHandler, settingsHandler *SettingsHandler) {
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		// Health check (no auth required)
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})

		emails := api.Group("/emails")
		{
			emails.GET("", delivery.AuthMiddleware(), emailHandler.FetchEmails)
			// Classification only needs a model credential, not a mailbox session
			emails.POST("/classify", emailHandler.ClassifyEmails)
		}

		// Settings routes (public) - Runtime configuration
		settings := api.Group("/settings")
		{
			settings.GET("/model", settingsHandler.GetModelSettings)
			settings.PUT("/model", settingsHandler.UpdateModelSettings)
			settings.POST("/ollama/test", settingsHandler.TestOllamaConnection)
		}
	}
}
