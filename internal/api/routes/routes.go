package routes

import (
	"net/http"

	"github.com/dmalikzadeh/ai-interview/internal/api/handlers"
	"github.com/dmalikzadeh/ai-interview/internal/api/middleware"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Deps struct {
	Auth         middleware.AuthConfig
	Interview    *handlers.InterviewHandler
	Profile      *handlers.ProfileHandler
	Conversation *handlers.ConversationHandler
	CV           *handlers.CVHandler
	Admin        *handlers.AdminHandler
	WS           *handlers.WSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth(d.Auth))

	auth.POST("/interview/prepare", d.Interview.Prepare)
	auth.GET("/interview", d.Interview.List)
	auth.GET("/interview/:session_id", d.Interview.Get)
	auth.DELETE("/interview/:session_id", d.Interview.Discard)
	auth.GET("/interview/:session_id/results", d.Interview.Results)
	auth.POST("/interview/:session_id/results/retry", d.Interview.RetryResults)

	auth.GET("/profile/me", d.Profile.Me)
	auth.PUT("/profile/update", d.Profile.Update)

	auth.POST("/cv", d.CV.Upload)
	auth.GET("/cv/latest", d.CV.Latest)

	auth.GET("/conversation/search", d.Conversation.Search)
	auth.GET("/conversation/:session_id", d.Conversation.ListBySession)

	admin := auth.Group("/admin")
	admin.Use(middleware.RequireAdmin())
	admin.GET("/live", d.Admin.Live)
	admin.GET("/ai-log/:session_id", d.Admin.AILog)

	// WebSocket
	auth.GET("/ws/interview/:session_id", d.WS.LiveInterview)
}
