package main

import (
	"log"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"confmate/backend/internal/auth"
	"confmate/backend/internal/cache"
	"confmate/backend/internal/config"
	"confmate/backend/internal/database"
	"confmate/backend/internal/handler"
	"confmate/backend/internal/logger"

	// Swagger imports
	_ "confmate/backend/docs" // This is important for swag to find the generated docs

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func init() {
	config.LoadConfig()
}

// @title           Confmate Rooming API
// @version         1.0
// @description     Conference room self-assignment with time-boxed locks.
// @host            localhost:8080
// @BasePath        /api/v1
// @securityDefinitions.apiKey BearerAuth
// @in header
// @name Authorization
func main() {
	zlog, err := logger.New(config.AppConfig.LogLevel)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer zlog.Sync()

	database.Connect(config.AppConfig.DatabaseURL)

	if config.AppConfig.RedisURL != "" {
		if err := cache.Connect(config.AppConfig.RedisURL); err != nil {
			zlog.Warn("redis unavailable, room list cache disabled", zap.Error(err))
		}
	}

	router := gin.New()
	router.Use(logger.RequestLogger(zlog), gin.Recovery())

	// Swagger route
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Health check endpoint
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// API v1 routes
	apiV1 := router.Group("/api/v1")
	{
		// Auth routes
		authRoutes := apiV1.Group("/auth")
		{
			authRoutes.POST("/register", handler.RegisterUser)
			authRoutes.POST("/login", handler.LoginUser)
		}

		// User routes (protected)
		userRoutes := apiV1.Group("/users")
		userRoutes.Use(auth.AuthMiddleware())
		{
			userRoutes.GET("/me", handler.GetMe)
		}

		// Event routes (protected)
		eventRoutes := apiV1.Group("/events")
		eventRoutes.Use(auth.AuthMiddleware())
		{
			eventRoutes.GET("", handler.ListEvents)
			eventRoutes.GET("/:id", handler.GetEvent)
			eventRoutes.POST("", auth.StaffMiddleware(), handler.CreateEvent)

			eventRoutes.GET("/:id/rooms", handler.ListRooms)
			eventRoutes.POST("/:id/rooms", auth.StaffMiddleware(), handler.CreateRoom)
			eventRoutes.GET("/:id/rooms/mine", handler.MyRoom)
			eventRoutes.GET("/:id/rooms/stream", handler.StreamRooms)

			eventRoutes.POST("/:id/registrations", handler.CreateRegistration)
			eventRoutes.GET("/:id/registrations/me", handler.GetMyRegistration)
			eventRoutes.PUT("/:id/registrations/:userID", auth.StaffMiddleware(), handler.UpdateRegistration)
		}

		// Room routes (protected)
		roomRoutes := apiV1.Group("/rooms")
		roomRoutes.Use(auth.AuthMiddleware())
		{
			roomRoutes.GET("/:id", handler.GetRoom)
			roomRoutes.PUT("/:id", auth.StaffMiddleware(), handler.UpdateRoom)
			roomRoutes.DELETE("/:id", auth.StaffMiddleware(), handler.DeleteRoom)

			roomRoutes.POST("/:id/member", handler.JoinRoom)
			roomRoutes.DELETE("/:id/member", handler.LeaveRoom)

			roomRoutes.POST("/:id/lock", handler.LockRoom)
			roomRoutes.DELETE("/:id/lock", handler.UnlockRoom)

			roomRoutes.POST("/:id/hidden", auth.StaffMiddleware(), handler.HideRoom)
			roomRoutes.DELETE("/:id/hidden", auth.StaffMiddleware(), handler.UnhideRoom)
		}
	}

	zlog.Info("server starting",
		zap.String("addr", config.AppConfig.ListenAddr),
		zap.String("swagger", "/swagger/index.html"),
	)
	log.Fatal(router.Run(config.AppConfig.ListenAddr))
}
