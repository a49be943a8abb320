package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"tritmo/internal/booking"
	"tritmo/internal/config"
	"tritmo/internal/mailer"
	"tritmo/internal/models"
	"tritmo/internal/payments"
	"tritmo/internal/realtime"
	"tritmo/internal/routes"
	"tritmo/internal/storage"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file found, relying on the environment: %v", err)
	}

	// Initialize configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	logger, err := newLogger(cfg.Environment)
	if err != nil {
		log.Fatalf("Error creating logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database connection
	db, err := models.InitDB(models.DatabaseConfig{DSN: cfg.Database.DSN})
	if err != nil {
		logger.Fatal("Error connecting to database", zap.Error(err))
	}

	// Redis keeps the per-user booking wizard sessions
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Fatal("Error connecting to redis", zap.Error(err))
	}
	sessions := booking.NewRedisStore(redisClient, time.Duration(cfg.BookingSessionTTLMinutes)*time.Minute)

	// Object storage for profile images and signatures
	uploader, err := storage.NewUploader(context.Background(), cfg.Storage, logger)
	if err != nil {
		logger.Fatal("Error connecting to object storage", zap.Error(err))
	}

	hub := realtime.NewHub(logger)
	mail := mailer.New(cfg.Mailer, logger)
	gateway := payments.NewGateway(cfg.Razorpay)

	// Initialize Gin router
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// Configure CORS
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowCredentials = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	router.Use(cors.New(corsConfig))

	routes.SetupRoutes(router, routes.Dependencies{
		DB:       db,
		Cfg:      cfg,
		Sessions: sessions,
		Hub:      hub,
		Mailer:   mail,
		Gateway:  gateway,
		Uploader: uploader,
		Log:      logger,
	})

	// Start server
	serverAddr := fmt.Sprintf(":%s", cfg.Port)
	logger.Info("Server starting", zap.String("port", cfg.Port))
	if err := router.Run(serverAddr); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}

func newLogger(environment string) (*zap.Logger, error) {
	if environment == "development" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
