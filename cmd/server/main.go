package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"strangerchat/internal/config"
	"strangerchat/internal/handlers"
	"strangerchat/internal/routes"
	"strangerchat/internal/services"
	"strangerchat/internal/store"
	"strangerchat/internal/websocket"
	"strangerchat/pkg/database"
	"strangerchat/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	// Initialize logger
	logger.Init()

	// Load configuration
	cfg := config.Load()

	// Initialize database
	if err := database.InitMongoDB(cfg.MongoDB); err != nil {
		logger.Fatal("Failed to connect to MongoDB: " + err.Error())
	}
	defer database.Disconnect()

	mongoStore := store.NewMongoStore(database.GetDatabase())

	// Connection monitor probes the store and drives retry/backoff
	monitor := services.NewConnectionMonitor(mongoStore, services.MonitorOptions{
		CheckInterval: cfg.Connection.CheckInterval,
		RetryDelay:    services.FixedDelay(cfg.Connection.RetryDelay),
		MaxRetries:    cfg.Connection.MaxRetries,
		ProbeTimeout:  cfg.Connection.ProbeTimeout,
	})

	// WebSocket hub
	hub := websocket.NewHub()
	go hub.Run()
	monitor.AddConnectionListener(hub.BroadcastConnectionStatus)
	monitor.StartConnectionCheck()
	defer monitor.StopConnectionCheck()

	// Services
	statsService := services.NewStatsService(store.NewStatsView(mongoStore))
	chatService := services.NewChatService(mongoStore, statsService, hub)
	queueService := services.NewQueueService(mongoStore, monitor, cfg.Matching.TicketTTL)
	matchmaker := services.NewMatchmaker(mongoStore, statsService, hub, cfg.Matching.PairInterval)
	queueService.SetEnqueueHook(matchmaker.Trigger)

	go matchmaker.Run()
	defer matchmaker.Stop()

	// Periodic cleanup of expired queue tickets
	cleanupDone := make(chan struct{})
	go func() {
		ticker := time.NewTicker(cfg.Matching.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
				queueService.CleanupExpired(ctx)
				cancel()
			case <-cleanupDone:
				return
			}
		}
	}()
	defer close(cleanupDone)

	// Initialize Gin router
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())

	routes.SetupRoutes(router, cfg, routes.Handlers{
		Queue:      handlers.NewQueueHandler(queueService),
		Chat:       handlers.NewChatHandler(chatService),
		Stats:      handlers.NewStatsHandler(statsService),
		Connection: handlers.NewConnectionHandler(monitor),
		WebSocket:  handlers.NewWebSocketHandler(hub, chatService),
	})

	// Start server
	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  cfg.Server.HTTP.ReadTimeout,
		WriteTimeout: cfg.Server.HTTP.WriteTimeout,
		IdleTimeout:  cfg.Server.HTTP.IdleTimeout,
	}

	go func() {
		logger.Info("Server starting on port: " + port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server: " + err.Error())
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Forced server shutdown: " + err.Error())
	}
}
