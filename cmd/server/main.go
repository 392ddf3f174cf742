package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/app"
	"github.com/avtoshkola/lesson-scheduler/internal/config"
	"github.com/avtoshkola/lesson-scheduler/internal/controller/httpapi"
	"github.com/avtoshkola/lesson-scheduler/internal/repository"
	"github.com/avtoshkola/lesson-scheduler/internal/service"
	"github.com/avtoshkola/lesson-scheduler/pkg/txmanager"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Info("Starting lesson scheduler",
		zap.String("environment", cfg.Environment),
		zap.String("http_port", cfg.HTTPPort),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	// Репозитории
	appointmentRepo := repository.NewAppointmentRepository(pool)
	ruleRepo := repository.NewRecurrenceRuleRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	messageRepo := repository.NewMessageRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	availabilityRepo := repository.NewAvailabilityRepository(pool)

	tx := txmanager.New(pool)

	// Сервисы
	userService := service.NewUserService(userRepo)
	chatService := service.NewChatService(messageRepo, logger)
	notificationService := service.NewNotificationService(notificationRepo, logger)

	appointmentService := service.NewAppointmentService(
		appointmentRepo, commentRepo, availabilityRepo,
		userService, chatService, tx, logger,
	)
	recurrenceService := service.NewRecurrenceService(ruleRepo, appointmentRepo, tx, logger)
	maintenanceService := service.NewMaintenanceService(
		appointmentRepo, userService, notificationService,
		service.MaintenanceConfig{
			AutoCompleteDelay:      cfg.AutoCompleteDelay,
			AutoCancelPendingAfter: cfg.AutoCancelPendingAfter,
			BatchSize:              cfg.MaintenanceBatchSize,
		},
		logger,
	)

	// Фоновые задачи
	scheduler := app.NewScheduler(
		maintenanceService, recurrenceService,
		cfg.MaintenanceInterval, cfg.RecurrenceInterval,
		logger,
	)
	scheduler.Start(ctx)
	defer scheduler.Stop()

	handler := httpapi.NewHandler(
		appointmentService, recurrenceService, maintenanceService,
		notificationService, userService, logger,
	)
	router := httpapi.NewRouter(handler, logger)

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown failed", zap.Error(err))
	}
}
