// File: gymbuddy/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"gymbuddy/config"
	"gymbuddy/cron"
	"gymbuddy/database"
	availabilityRepo "gymbuddy/database/repository/availability"
	matchupRepo "gymbuddy/database/repository/matchup"
	notificationRepo "gymbuddy/database/repository/notification"
	"gymbuddy/handlers"
	"gymbuddy/middleware"
	"gymbuddy/routes"
	"gymbuddy/services/availability"
	"gymbuddy/services/matchup"
	"gymbuddy/services/notification"
	"gymbuddy/utils"
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

	// repositories.
	availRepo := availabilityRepo.NewMongoAvailabilityRepo()
	negotiationRepo := matchupRepo.NewMongoMatchupRepo()
	notifRepo := notificationRepo.NewMongoNotificationRepo()

	// services.
	notificationService, err := notification.NewDefaultNotificationService(notifRepo, notification.LogSink{})
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize notification service: %v", err)
	}

	availabilityService := availability.NewDefaultAvailabilityService(availRepo, utils.GetCacheClient())

	matchupService := matchup.NewDefaultMatchupService(availabilityService, negotiationRepo, notificationService)
	matchupService.ProposalTTL = config.ProposalTTL()
	matchupService.SessionHours = config.AppConfig.SessionHours
	matchupService.MaxCountersPerThread = config.AppConfig.MaxCountersPerThread

	// Every availability edit re-validates that user's in-flight proposals.
	availabilityService.OnChange(func(userID string) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := matchupService.Reconcile(ctx, userID); err != nil {
			logger.Error("reconcile after availability change failed",
				zap.String("userId", userID), zap.Error(err))
		}
	})

	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()
	availabilityService.StartChangeSubscriber(subCtx)

	// Background expiry sweep.
	cron.InitSweepWorker(matchupService)

	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// handlers.
	handlerBundle := &routes.HandlerBundle{
		Matchup:      handlers.NewMatchupHandler(matchupService, logger),
		Availability: handlers.NewAvailabilityHandler(availabilityService, logger),
		Notification: handlers.NewNotificationHandler(notifRepo, logger),
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
