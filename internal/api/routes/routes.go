package routes

import (
	"github.com/careerforge/backend/internal/api/handlers"
	"github.com/careerforge/backend/internal/api/middleware"
	"github.com/gin-gonic/gin"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Analytics *handlers.AnalyticsHandler
	WS        *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/interviews", d.Interview.Create)
	auth.GET("/interviews", d.Interview.List)
	auth.GET("/interviews/:id", d.Interview.Get)
	auth.POST("/interviews/:id/start", d.Interview.Start)
	auth.GET("/interviews/:id/next-question", d.Interview.NextQuestion)
	auth.POST("/interviews/:id/answer", d.Interview.SubmitAnswer)
	auth.POST("/interviews/:id/complete", d.Interview.Complete)
	auth.POST("/interviews/:id/cancel", d.Interview.Cancel)
	auth.GET("/interviews/:id/evaluation", d.Interview.GetEvaluation)
	auth.GET("/interviews/:id/metrics", d.Interview.GetMetrics)

	auth.GET("/analytics/placements/summary", middleware.RequireAdmin(), d.Analytics.PlacementSummary)

	// WebSocket
	auth.GET("/ws/interviews/:id", d.WS.InterviewWS)
}
