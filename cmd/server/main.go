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
	"github.com/seatrans/ferry-booking-backend/internal/config"
	"github.com/seatrans/ferry-booking-backend/internal/database"
	"github.com/seatrans/ferry-booking-backend/internal/handlers"
	"github.com/seatrans/ferry-booking-backend/internal/middleware"
	"github.com/seatrans/ferry-booking-backend/internal/services"
	"github.com/seatrans/ferry-booking-backend/internal/utils"
	"github.com/seatrans/ferry-booking-backend/pkg/notify"
	"github.com/sirupsen/logrus"
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

	logger.Info("Starting SeaTrans Ferry Booking Backend")
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

	// Repositories need *sqlx.DB for transaction support
	pgDB, ok := db.(*database.PostgresDB)
	if !ok {
		logger.Fatal("Failed to cast database connection to PostgresDB")
	}

	// Initialize repositories
	bookingRepo := database.NewBookingRepository(pgDB.DB)
	ticketRepo := database.NewTicketRepository(pgDB.DB)
	vehicleRepo := database.NewVehicleRepository(pgDB.DB)
	paymentRepo := database.NewPaymentRepository(pgDB.DB)
	bookingLogRepo := database.NewBookingLogRepository(pgDB.DB)
	scheduleRepo := database.NewScheduleRepository(pgDB.DB)
	scheduleDateRepo := database.NewScheduleDateRepository(pgDB.DB)
	routeRepo := database.NewRouteRepository(pgDB.DB)
	ferryRepo := database.NewFerryRepository(pgDB.DB)

	// Notification sink: webhook when configured, log-only otherwise
	var sink notify.Sink
	if cfg.Notification.WebhookURL != "" {
		sink = notify.NewWebhookSink(cfg.Notification.WebhookURL)
		logger.Info("Notification webhook sink enabled")
	} else {
		sink = notify.NewLogSink(logger)
		logger.Info("Notification log sink enabled (no webhook configured)")
	}

	// Initialize services
	logger.Info("Initializing services...")
	clock := services.SystemClock()
	ledger := services.NewCapacityLedger(scheduleDateRepo, logger)
	statusService := services.NewBookingStatusService(db, bookingRepo, ticketRepo, bookingLogRepo, ledger, sink, logger)
	midtransService := services.NewMidtransService(&cfg.Midtrans, logger)
	identityService := services.NewIdentityService(&cfg.Identity, logger)
	paymentService := services.NewPaymentService(paymentRepo, bookingRepo, statusService, midtransService, sink, clock, logger)
	rateLimitService := services.NewRateLimitService(db, clock)
	reservationService := services.NewReservationService(
		db, bookingRepo, ticketRepo, vehicleRepo, paymentRepo, bookingLogRepo,
		scheduleRepo, routeRepo, ferryRepo,
		ledger, statusService, midtransService, identityService,
		sink, clock, &cfg.Booking, logger,
	)
	scheduleService := services.NewScheduleService(scheduleRepo, scheduleDateRepo, ferryRepo, sink, clock, &cfg.Booking, logger)
	reconciliationService := services.NewReconciliationService(
		db, bookingRepo, ticketRepo, paymentRepo, scheduleDateRepo,
		statusService, paymentService, midtransService,
		sink, clock, &cfg.Sweep, logger,
	)

	// Initialize and start cron service
	cronService := services.NewCronService(reconciliationService, scheduleService, scheduleRepo, &cfg.Sweep, logger)
	if err := cronService.Start(); err != nil {
		logger.Fatalf("Failed to start cron service: %v", err)
	}

	logger.Info("Services initialized")

	// Initialize handlers
	bookingHandler := handlers.NewBookingHandler(reservationService, statusService, rateLimitService)
	ticketHandler := handlers.NewTicketHandler(ticketRepo)
	scheduleHandler := handlers.NewScheduleHandler(scheduleService, scheduleRepo, scheduleDateRepo)
	webhookHandler := handlers.NewPaymentWebhookHandler(paymentService, logger)
	opsHandler := handlers.NewOpsHandler(db, reconciliationService)

	// Initialize Gin router
	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	router.Use(requestLogger(logger))

	// CORS configuration
	corsConfig := cors.Config{
		AllowOrigins:     cfg.CORS.AllowedOrigins,
		AllowMethods:     cfg.CORS.AllowedMethods,
		AllowHeaders:     cfg.CORS.AllowedHeaders,
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	// Health check endpoint
	router.GET("/health", opsHandler.Health)

	api := router.Group("/api/v1")
	{
		// Public schedule browsing
		api.GET("/schedules", scheduleHandler.ListSchedules)
		api.GET("/schedules/:id/sailings", scheduleHandler.ListSailings)
		api.GET("/availability", scheduleHandler.FindAvailability)

		// Gateway webhook (authenticated by signature, not identity)
		api.POST("/payments/notifications", webhookHandler.HandleNotification)

		// Passenger booking operations
		bookings := api.Group("/bookings")
		bookings.Use(middleware.RequireUser())
		{
			bookings.POST("", bookingHandler.CreateBooking)
			bookings.GET("", bookingHandler.ListMyBookings)
			bookings.GET("/:id", bookingHandler.GetBooking)
			bookings.POST("/:id/cancel", bookingHandler.CancelBooking)
			bookings.POST("/:id/reschedule", bookingHandler.RescheduleBooking)
		}

		// Operator endpoints
		admin := api.Group("/admin")
		admin.Use(middleware.RequireAdmin())
		{
			admin.PUT("/schedules/:id/status", scheduleHandler.UpdateScheduleStatus)
			admin.POST("/schedules/:id/generate-dates", scheduleHandler.GenerateDates)
			admin.PUT("/sailings/:id/status", scheduleHandler.SetSailingStatus)
			admin.GET("/bookings/:code", bookingHandler.LookupBookingByCode)
			admin.POST("/tickets/:code/check-in", ticketHandler.CheckIn)
			admin.POST("/sweeps/run", opsHandler.RunSweep)
		}
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Infof("Server starting on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	cronService.Stop()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited successfully")
}

// requestLogger middleware for logging HTTP requests
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		latency := time.Since(start)

		fields := logrus.Fields{
			"status":     c.Writer.Status(),
			"method":     c.Request.Method,
			"path":       path,
			"query":      query,
			"ip":         utils.GetRealIP(c),
			"latency_ms": latency.Milliseconds(),
		}

		if userID := c.GetHeader(middleware.HeaderUserID); userID != "" {
			fields["user_id"] = userID
		}

		status := c.Writer.Status()
		switch {
		case status >= 500:
			logger.WithFields(fields).Error("Request failed")
		case status >= 400:
			logger.WithFields(fields).Warn("Request rejected")
		default:
			logger.WithFields(fields).Info("Request completed")
		}
	}
}
