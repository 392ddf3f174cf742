package main

import (
	"context"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/app"
	"github.com/avtoshkola/lesson-scheduler/internal/config"
	"github.com/avtoshkola/lesson-scheduler/internal/repository"
	"github.com/avtoshkola/lesson-scheduler/internal/service"
	"github.com/avtoshkola/lesson-scheduler/pkg/txmanager"
)

// Одноразовый запуск из cron: миграции, проход уборки и одна
// генерация занятий по еженедельным правилам
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.DBDSN)
	if err != nil {
		logger.Fatal("Failed to create database pool", zap.Error(err))
	}
	defer pool.Close()

	migrator, err := app.NewMigrator(pool, cfg.MigrationsPath, logger)
	if err != nil {
		logger.Fatal("Failed to create migrator", zap.Error(err))
	}
	if err := migrator.Run(ctx); err != nil {
		logger.Fatal("Failed to apply migrations", zap.Error(err))
	}
	migrator.Close()

	appointmentRepo := repository.NewAppointmentRepository(pool)
	ruleRepo := repository.NewRecurrenceRuleRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	notificationRepo := repository.NewNotificationRepository(pool)

	maintenance := service.NewMaintenanceService(
		appointmentRepo,
		service.NewUserService(userRepo),
		service.NewNotificationService(notificationRepo, logger),
		service.MaintenanceConfig{
			AutoCompleteDelay:      cfg.AutoCompleteDelay,
			AutoCancelPendingAfter: cfg.AutoCancelPendingAfter,
			BatchSize:              cfg.MaintenanceBatchSize,
		},
		logger,
	)

	res, err := maintenance.Run(ctx)
	if err != nil {
		logger.Fatal("Maintenance pass failed", zap.Error(err))
	}

	recurrence := service.NewRecurrenceService(ruleRepo, appointmentRepo, txmanager.New(pool), logger)
	generated, err := recurrence.GenerateUpcoming(ctx)
	if err != nil {
		logger.Fatal("Recurrence generation failed", zap.Error(err))
	}

	logger.Info("Maintenance pass finished",
		zap.Int("completed", res.Completed),
		zap.Int("cancelled", res.Cancelled),
		zap.Int("generated", generated),
	)
}
