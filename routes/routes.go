package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"gymbuddy/handlers"
	"gymbuddy/utils"
)

// HandlerBundle groups the handlers the route tables need.
type HandlerBundle struct {
	Matchup      *handlers.MatchupHandler
	Availability *handlers.AvailabilityHandler
	Notification *handlers.NotificationHandler
}

// RegisterAvailabilityRoutes registers calendar endpoints.
func RegisterAvailabilityRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/availability")
	{
		api.GET("/:userID", hb.Availability.GetAvailabilityHandler)
		api.PUT("/:userID", hb.Availability.SetAvailabilityHandler)
	}
}

// RegisterMatchupRoutes registers the negotiation endpoints.
func RegisterMatchupRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/matchup")
	{
		api.GET("/overlap", hb.Matchup.GetOverlapHandler)
		api.GET("/plans", hb.Matchup.GetWeeklyPlansHandler)
		api.POST("/propose", hb.Matchup.ProposeHandler)
		api.POST("/suggest", hb.Matchup.SuggestHandler)
		api.POST("/proposals/:proposalID/respond", hb.Matchup.RespondHandler)
		api.GET("/sessions", hb.Matchup.GetSessionsHandler)
		api.POST("/sessions/:sessionID/cancel", hb.Matchup.CancelSessionHandler)
		api.POST("/sessions/:sessionID/complete", hb.Matchup.CompleteSessionHandler)
	}
}

// RegisterNotificationRoutes registers notification listing endpoints.
func RegisterNotificationRoutes(r *gin.Engine, hb *HandlerBundle) {
	api := r.Group("/api/notifications")
	{
		api.GET("/:userID", hb.Notification.ListNotificationsHandler)
		api.POST("/:userID/:notificationID/read", hb.Notification.MarkNotificationReadHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	RegisterHealthRoute(r)
	RegisterAvailabilityRoutes(r, hb)
	RegisterMatchupRoutes(r, hb)
	RegisterNotificationRoutes(r, hb)
}
