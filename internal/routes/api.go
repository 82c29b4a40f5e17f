package routes

import (
	"strangerchat/internal/config"
	"strangerchat/internal/handlers"
	"strangerchat/internal/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers bundles the HTTP surface wired in main. Routes never construct
// services themselves.
type Handlers struct {
	Queue      *handlers.QueueHandler
	Chat       *handlers.ChatHandler
	Stats      *handlers.StatsHandler
	Connection *handlers.ConnectionHandler
	WebSocket  *handlers.WebSocketHandler
}

func SetupRoutes(router *gin.Engine, cfg *config.Config, h Handlers) {
	// Global middleware
	router.Use(middleware.CORS(cfg.Server.CORS))
	router.Use(middleware.RateLimit())
	router.Use(middleware.Logger())

	// Health check
	router.GET("/health", h.Connection.Health)

	api := router.Group("/api")
	{
		// Waiting queue
		queue := api.Group("/queue")
		{
			queue.POST("", middleware.QueueRateLimit(), h.Queue.Enqueue)
			queue.DELETE("/:user_id", h.Queue.Cancel)
			queue.GET("/:user_id", h.Queue.Status)
		}

		// Chat sessions. The wildcard is a room id on the end route and a
		// user id on the listing routes; gin requires one name per segment.
		chats := api.Group("/chats")
		{
			chats.POST("/:id/end", h.Chat.EndChat)
			chats.GET("/:id", h.Chat.ListChats)
			chats.GET("/:id/active", h.Chat.GetActiveChat)
		}

		// User statistics
		api.GET("/stats/:user_id", h.Stats.GetUserStatistics)

		// Store connectivity
		connection := api.Group("/connection")
		{
			connection.GET("", h.Connection.GetStatus)
			connection.POST("/check", h.Connection.CheckNow)
		}
	}

	// WebSocket connection
	router.GET("/ws", middleware.WebSocketRateLimit(), h.WebSocket.HandleWebSocket)
}
