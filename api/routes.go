package api

import (
	"github.com/gin-gonic/gin"
	"github.com/opentracing/opentracing-go"

	"github.com/mailgrove/mailgrove/api/handlers"
	"github.com/mailgrove/mailgrove/api/middleware"
	"github.com/mailgrove/mailgrove/config"
	"github.com/mailgrove/mailgrove/internal/tracing"
	"github.com/mailgrove/mailgrove/services"
)

// RegisterRoutes sets up all API endpoints
func RegisterRoutes(r *gin.Engine, s *services.Services, cfg *config.Config) {
	if s == nil {
		panic("Services cannot be nil")
	}

	r.Use(gin.Recovery())
	r.Use(tracing.RecoveryWithJaeger(opentracing.GlobalTracer()))

	apiHandlers := handlers.InitHandlers(s)

	r.GET("/health", handlers.HealthCheck)

	apiKeyMiddleware := middleware.APIKeyMiddleware(middleware.APIKeyConfig{
		HeaderName:  "X-MAILGROVE-API-KEY",
		ValidAPIKey: cfg.AppConfig.APIKey,
	})

	api := r.Group("/v1")
	api.Use(apiKeyMiddleware)
	api.Use(middleware.UserIdMiddleware())
	api.Use(middleware.CustomContextMiddleware(cfg.AppConfig.AppSource))
	api.Use(middleware.TracingMiddleware())
	{
		conversations := api.Group("/conversations")
		{
			conversations.GET("", apiHandlers.Conversations.List())
			conversations.GET("/search", apiHandlers.Conversations.Search())
			conversations.POST("/bulk", apiHandlers.Conversations.Bulk())
			conversations.GET("/:id", apiHandlers.Conversations.Get())
			conversations.PUT("/:id/read", apiHandlers.Conversations.SetRead())
			conversations.PUT("/:id/starred", apiHandlers.Conversations.SetStarred())
			conversations.PUT("/:id/folder", apiHandlers.Conversations.MoveToFolder())
			conversations.DELETE("/:id", apiHandlers.Conversations.Delete())
		}

		emails := api.Group("/emails")
		{
			emails.POST("", apiHandlers.Emails.Send())
			emails.PUT("/:id/read", apiHandlers.Emails.SetRead())
			emails.PUT("/:id/starred", apiHandlers.Emails.SetStarred())
			emails.PUT("/:id/folder", apiHandlers.Emails.MoveToFolder())
			emails.DELETE("/:id", apiHandlers.Emails.Delete())
		}
	}
}
