package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nivello/rewards/internal/codegen"
	"github.com/nivello/rewards/internal/config"
	"github.com/nivello/rewards/internal/database"
	"github.com/nivello/rewards/internal/handlers"
	"github.com/nivello/rewards/internal/notifier"
	"github.com/nivello/rewards/internal/repository"
	"github.com/nivello/rewards/internal/service"
)

func main() {
	ctx := context.Background()

	// Load .env if present, then configuration from environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting reward service in %s mode", cfg.App.Environment)

	// Initialize database connections
	db, err := database.NewDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("Error closing database connections: %v", err)
		}
	}()

	if err := db.RunMigrations(cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Outbound notification dispatch: Kafka when brokers are configured,
	// log-only otherwise
	var notify notifier.Notifier
	if len(cfg.Kafka.Brokers) > 0 {
		kafkaNotifier := notifier.NewKafkaNotifier(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaNotifier.Close()
		notify = kafkaNotifier
	} else {
		notify = notifier.LogNotifier{}
	}

	codes, err := codegen.New(cfg.Referral.CodePrefix)
	if err != nil {
		log.Fatalf("Failed to build code generator: %v", err)
	}

	// Wire repositories and services
	campaignRepo := repository.NewCampaignRepository(db.Postgres)
	endorsementRepo := repository.NewEndorsementRepository(db.Postgres)
	promoRepo := repository.NewPromoCodeRepository(db.Postgres)
	settingsRepo := repository.NewSettingsRepository(db.Postgres)

	campaignSvc := service.NewCampaignService(campaignRepo, promoRepo, settingsRepo, codes, notify)
	endorsementSvc := service.NewEndorsementService(campaignSvc, endorsementRepo, settingsRepo, notify)
	redemptionSvc := service.NewRedemptionService(promoRepo, codes)

	campaignHandler := handlers.NewCampaignHandler(campaignSvc)
	endorsementHandler := handlers.NewEndorsementHandler(endorsementSvc)
	promoHandler := handlers.NewPromoHandler(redemptionSvc)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo)

	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())

	router.POST("/campaigns", campaignHandler.Create)
	router.GET("/campaigns/:code", campaignHandler.Get)
	router.POST("/campaigns/:code/cancel", campaignHandler.Cancel)
	router.POST("/campaigns/:code/endorsements", endorsementHandler.Submit)
	router.POST("/verify", endorsementHandler.Verify)
	router.GET("/promo-codes", promoHandler.Preview)
	router.POST("/promo-codes", promoHandler.Create)
	router.POST("/promo-codes/apply", promoHandler.Apply)
	router.GET("/referral-settings", settingsHandler.Get)
	router.PUT("/referral-settings", settingsHandler.Update)

	// Health check endpoints
	router.GET("/health", func(c *gin.Context) {
		hostname, _ := os.Hostname()
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "reward-engine", "hostname": hostname})
	})
	router.GET("/health/db", func(c *gin.Context) {
		if err := db.Postgres.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "postgres unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "postgres": "connected"})
	})

	// Prometheus metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Create server with configuration optimized for high concurrency
	server := &http.Server{
		Addr:           cfg.Server.GetServerAddr(),
		ReadTimeout:    time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:    120 * time.Second, // Keep connections alive longer
		MaxHeaderBytes: 1 << 20,           // 1MB
		// Use h2c so we can serve HTTP/2 without TLS
		Handler: h2c.NewHandler(router, &http2.Server{
			MaxConcurrentStreams: 1000, // Allow more concurrent streams
		}),
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting reward service on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
