package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"salescompagent/config"
	"salescompagent/cron"
	"salescompagent/database"
	bookingRepo "salescompagent/database/repository/booking"
	sessionArchiveRepo "salescompagent/database/repository/sessionarchive"
	"salescompagent/handlers"
	"salescompagent/middleware"
	"salescompagent/models"
	"salescompagent/routes"
	"salescompagent/services/agent"
	"salescompagent/services/calendar"
	"salescompagent/services/schedule"
	"salescompagent/services/tasks"
	"salescompagent/utils"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitSessionCache()
	utils.InitLockCache()

	auth, err := schedule.NewTimeAuthority(config.AppConfig.ReferenceTimezone)
	if err != nil {
		logger.Sugar().Fatalf("main: invalid reference timezone: %v", err)
	}

	calendarGateway, err := calendar.NewGoogleGateway(context.Background())
	if err != nil {
		logger.Sugar().Fatalf("main: failed to initialize calendar gateway: %v", err)
	}

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(utils.ErrorHandler())
	router.Use(gin.Logger())
	router.Use(middleware.RateLimitMiddleware())

	// repositories.
	bookings := bookingRepo.NewMongoBookingRepo()
	archive := sessionArchiveRepo.NewMongoSessionArchiveRepo()

	// services.
	sessionStore := agent.NewRedisSessionStore(utils.GetSessionCacheClient(), 30*time.Minute)
	taskClient := tasks.NewClient()

	coordinator := &schedule.BookingCoordinator{
		Calendar:   calendarGateway,
		Locks:      calendar.NewRedisLocker(utils.GetLockCacheClient()),
		Sessions:   sessionStore,
		Records:    bookings,
		Auth:       auth,
		CalendarID: config.AppConfig.CalendarID,
	}

	agentRouter := &agent.Router{
		Store:            sessionStore,
		Responder:        agent.NewGeminiResponder(config.AppConfig.GeminiAPIKey),
		Availability:     &schedule.AvailabilityEngine{Auth: auth},
		Coordinator:      coordinator,
		Calendar:         calendarGateway,
		Tickets:          taskClient,
		Archiver:         taskClient,
		FollowUp:         taskClient,
		Auth:             auth,
		CalendarID:       config.AppConfig.CalendarID,
		EntryAgent:       models.AgentRole(config.AppConfig.EntryAgent),
		MaxHistory:       config.AppConfig.MaxHistory,
		ResponderTimeout: time.Duration(config.AppConfig.ResponderTimeoutSecs) * time.Second,
	}

	// Background worker for ticket and archive tasks.
	cron.InitTaskWorker(sessionStore, archive)

	// Health monitor over the shared backends.
	utils.StartHealthMonitor(
		[]*redis.Client{utils.GetSessionCacheClient(), utils.GetLockCacheClient()},
		database.MongoClient,
	)

	// Assemble the handler bundle and register routes.
	handlerBundle := &routes.HandlerBundle{
		Chat:    handlers.NewChatHandler(agentRouter),
		Records: handlers.NewRecordsHandler(archive, bookings),
	}
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
