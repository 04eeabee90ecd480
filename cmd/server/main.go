package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/staylane/reservation-backend/internal/config"
	"github.com/staylane/reservation-backend/internal/database"
	"github.com/staylane/reservation-backend/internal/handlers"
	"github.com/staylane/reservation-backend/internal/middleware"
	"github.com/staylane/reservation-backend/internal/services"
	"github.com/staylane/reservation-backend/pkg/jwt"
)

var (
	version   = "1.0.0"
	buildTime = "unknown"
)

func main() {
	// Initialize logger
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(os.Stdout)

	logger.Info("Starting StayLane Reservation Backend")
	logger.Infof("Version: %s, Build Time: %s", version, buildTime)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("Failed to load configuration: %v", err)
	}

	// Set log level
	logLevel, err := logrus.ParseLevel(cfg.Server.LogLevel)
	if err != nil {
		logger.Warn("Invalid log level, using INFO")
		logLevel = logrus.InfoLevel
	}
	logger.SetLevel(logLevel)

	// Set Gin mode
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	// Initialize database connection
	logger.Info("Connecting to database...")
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	logger.Info("Database connection established")

	// Redis backs the booking rate limiter. Without it the limiter is a no-op.
	rdb := newRedisClient(cfg.Redis, logger)
	if rdb != nil {
		defer rdb.Close()
	}

	publisher := services.NewEventPublisher(cfg.RabbitMQ, logger)
	defer publisher.Close()

	// Initialize repositories
	conn := db.Conn()
	catalogRepository := database.NewCatalogRepository(conn)
	reservationRepository := database.NewReservationRepository(conn)
	paymentRepository := database.NewPaymentRepository(conn)
	webhookEventRepository := database.NewWebhookEventRepository(conn)
	paymentAuditRepository := database.NewPaymentAuditRepository(conn, logger)

	// Initialize services
	logger.Info("Initializing services...")
	jwtService := jwt.NewService(cfg.JWT.Secret, cfg.JWT.AccessTokenExpiry)
	payMongoService := services.NewPayMongoService(&cfg.Payment, logger)
	if cfg.Payment.Mock {
		logger.Warn("PayMongo mock mode enabled, checkout sessions are not real")
	}

	bookingValidator := services.NewBookingValidator(catalogRepository)
	paymentSessionService := services.NewPaymentSessionService(
		payMongoService,
		paymentRepository,
		paymentAuditRepository,
		&cfg.Payment,
		logger,
	)
	bookingService := services.NewBookingService(bookingValidator, reservationRepository, paymentSessionService, logger)
	reconciliationService := services.NewReconciliationService(
		reservationRepository,
		paymentRepository,
		paymentAuditRepository,
		publisher,
		logger,
	)
	webhookService := services.NewWebhookService(
		payMongoService,
		webhookEventRepository,
		reconciliationService,
		paymentAuditRepository,
		logger,
	)
	operatorAuthService := services.NewOperatorAuthService(cfg.Operator, jwtService, logger)
	auditService := services.NewAuditService(paymentAuditRepository, reservationRepository)
	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(bookingService, logger)
	webhookHandler := handlers.NewWebhookHandler(webhookService, logger)
	operatorHandler := handlers.NewOperatorHandler(operatorAuthService, webhookService, auditService, logger)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint
	router.GET("/health", handlers.HealthCheck(db, version))

	handlers.RegisterRoutes(router, handlers.Routes{
		Booking:        bookingHandler,
		Webhook:        webhookHandler,
		Operator:       operatorHandler,
		JWT:            jwtService,
		BookingLimiter: middleware.RateLimit(cfg.RateLimit, rdb, logger),
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Infof("Server listening on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}

// newRedisClient connects to Redis, returning nil when it is not configured
// or not reachable
func newRedisClient(cfg config.RedisConfig, logger *logrus.Logger) *redis.Client {
	if cfg.Addr == "" {
		logger.Info("Redis not configured, booking rate limiting disabled")
		return nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.WithError(err).Warn("Redis unreachable, booking rate limiting disabled")
		rdb.Close()
		return nil
	}

	logger.WithField("addr", cfg.Addr).Info("Redis connection established")
	return rdb
}

// requestLogger logs every request with latency and outcome
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      c.Request.URL.RawQuery,
			"ip":         c.ClientIP(),
			"latency_ms": time.Since(start).Milliseconds(),
			"user_agent": c.Request.UserAgent(),
			"has_auth":   c.GetHeader("Authorization") != "",
		}

		if opCtx, ok := middleware.GetOperatorContext(c); ok {
			fields["operator"] = opCtx.Email
		}

		entry := logger.WithFields(fields)

		if len(c.Errors) > 0 {
			for i, err := range c.Errors {
				entry = entry.WithField(fmt.Sprintf("error_%d", i), err.Error())
			}
			entry.Error("Request failed with errors")
			return
		}

		status := c.Writer.Status()
		if status >= 500 {
			entry.Error("Request completed with server error")
		} else if status >= 400 {
			entry.Warn("Request completed with client error")
		} else {
			entry.Info("Request completed successfully")
		}
	}
}
