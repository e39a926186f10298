// File: homely/main.go
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"homely/config"
	"homely/cron"
	"homely/database"
	ledgerRepo "homely/database/repository/ledger"
	"homely/handlers"
	"homely/middleware"
	"homely/routes"
	"homely/services/booking"
	"homely/services/gateway"
	"homely/services/notification"
	"homely/services/settlement"
	"homely/services/webhook"
	"homely/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())
	stripe.Key = config.AppConfig.StripeKey

	// repositories.
	ledger := ledgerRepo.NewMongoLedgerRepo()

	// task queue client for fire-and-forget notifications.
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	defer asynqClient.Close()

	// services.
	notificationService := notification.NewAsynqNotificationService(asynqClient, logger)
	gatewayClient := gateway.NewStripeClient(logger)

	bookingService := &booking.DefaultBookingService{
		Repo:     ledger,
		Gateway:  gatewayClient,
		Notifier: notificationService,
		Logger:   logger,
	}

	ingestor := &webhook.Ingestor{
		Secret:   config.AppConfig.StripeWebhookSecret,
		Bookings: bookingService,
		Guard:    ledger,
		Notifier: notificationService,
		Logger:   logger,
	}

	hostname, _ := os.Hostname()
	settlementService := &settlement.SettlementService{
		Repo:     ledger,
		Locks:    &settlement.LockManager{Repo: ledger, Logger: logger},
		Gateway:  gatewayClient,
		Notifier: notificationService,
		Logger:   logger,
		FeeBps:   config.AppConfig.PlatformFeeBps,
		Weekdays: settlement.ParseWeekdays(config.SettlementWeekdayList()),
		MaxHold:  time.Duration(config.AppConfig.SettlementLockHoldMins) * time.Minute,
		HolderID: fmt.Sprintf("%s-%s", hostname, uuid.New().String()),
	}

	// Start the background settlement worker and schedule.
	cron.InitSettlementWorker(settlementService, logger)

	// Assemble the handler bundle.
	handlerBundle := &routes.HandlerBundle{
		Booking: handlers.NewBookingHandler(bookingService, utils.GetCacheClient(), logger),
		Webhook: handlers.NewWebhookHandler(ingestor, logger),
		Admin:   handlers.NewAdminHandler(settlementService, ledger, ledger, ledger, logger),
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	logger.Sugar().Info("main: server stopped gracefully")
}
