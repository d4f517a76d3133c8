package main

import (
	"log"
	"strconv"
	"strings"

	"github.com/MrMnky/ai-primer-live-server-sub000/internal/config"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/database"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/handlers"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/middleware"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/services"
	"github.com/MrMnky/ai-primer-live-server-sub000/internal/ws"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

// @title           Live Slides API
// @version         1.0
// @description     Real-time presentation sessions with live polls, quizzes and word clouds
// @host            localhost:8080
// @BasePath        /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Enter "Bearer {token}"

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := config.Load()

	db := database.Connect(cfg)
	database.AutoMigrate(db)

	hub := ws.NewHub()

	buffer, _ := strconv.Atoi(cfg.JournalBuffer)
	journal := services.NewLogWriter(db, buffer)
	defer journal.Close()

	store := services.NewSessionStore(db)
	if err := store.LoadActiveSessions(); err != nil {
		log.Fatalf("failed to rehydrate sessions: %v", err)
	}

	eventRouter := services.NewEventRouter(store, journal, hub)

	authService := services.NewAuthService(db, cfg.JWTSecret)

	authHandler := handlers.NewAuthHandler(authService)
	sessionHandler := handlers.NewSessionHandler(store, journal)
	liveHandler := handlers.NewLiveHandler(eventRouter)

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Split(cfg.AllowedOrigins, ","),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
	}))

	r.GET("/ws/session/:code", liveHandler.HandleLive)

	api := r.Group("/api/v1")
	{
		auth := api.Group("/auth")
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
		}

		sessions := api.Group("/sessions")
		{
			sessions.POST("", middleware.JWTAuth(authService), sessionHandler.CreateSession)
			sessions.GET("", middleware.JWTAuth(authService), sessionHandler.ListSessions)
			sessions.GET("/:code", sessionHandler.GetSession)
			sessions.GET("/:code/export", middleware.JWTAuth(authService), sessionHandler.ExportSession)
		}
	}

	log.Printf("server starting on :%s", cfg.ServerPort)
	if err := r.Run(":" + cfg.ServerPort); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
