package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/service"
	"github.com/avtoshkola/lesson-scheduler/pkg/metrics"
)

// Scheduler управляет фоновыми задачами: уборкой записей и генерацией
// занятий по еженедельным правилам
type Scheduler struct {
	maintenance *service.MaintenanceService
	recurrence  *service.RecurrenceService
	logger      *zap.Logger
	stopChan    chan struct{}

	maintenanceInterval time.Duration
	recurrenceInterval  time.Duration
}

// NewScheduler создаёт новый планировщик
func NewScheduler(
	maintenance *service.MaintenanceService,
	recurrence *service.RecurrenceService,
	maintenanceInterval, recurrenceInterval time.Duration,
	logger *zap.Logger,
) *Scheduler {
	return &Scheduler{
		maintenance:         maintenance,
		recurrence:          recurrence,
		logger:              logger,
		stopChan:            make(chan struct{}),
		maintenanceInterval: maintenanceInterval,
		recurrenceInterval:  recurrenceInterval,
	}
}

// Start запускает фоновые задачи
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting background scheduler",
		zap.Duration("maintenance_interval", s.maintenanceInterval),
		zap.Duration("recurrence_interval", s.recurrenceInterval),
	)

	go s.runMaintenanceTask(ctx)
	go s.runRecurrenceTask(ctx)
}

// Stop останавливает фоновые задачи
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	close(s.stopChan)
}

// runMaintenanceTask периодически запускает проход уборки
func (s *Scheduler) runMaintenanceTask(ctx context.Context) {
	// Первый запуск сразу при старте
	s.runMaintenance(ctx)

	ticker := time.NewTicker(s.maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runMaintenance(ctx)
		case <-s.stopChan:
			s.logger.Info("Maintenance task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Maintenance task cancelled")
			return
		}
	}
}

func (s *Scheduler) runMaintenance(ctx context.Context) {
	res, err := s.maintenance.Run(ctx)
	if err != nil {
		s.logger.Error("Maintenance pass failed", zap.Error(err))
		return
	}
	metrics.MaintenanceCompleted.Add(float64(res.Completed))
	metrics.MaintenanceCancelled.Add(float64(res.Cancelled))
}

// runRecurrenceTask периодически разворачивает еженедельные правила
func (s *Scheduler) runRecurrenceTask(ctx context.Context) {
	s.runRecurrence(ctx)

	ticker := time.NewTicker(s.recurrenceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.runRecurrence(ctx)
		case <-s.stopChan:
			s.logger.Info("Recurrence task stopped")
			return
		case <-ctx.Done():
			s.logger.Info("Recurrence task cancelled")
			return
		}
	}
}

func (s *Scheduler) runRecurrence(ctx context.Context) {
	created, err := s.recurrence.GenerateUpcoming(ctx)
	if err != nil {
		s.logger.Error("Recurring generation failed", zap.Error(err))
		return
	}
	metrics.RecurrenceGenerated.Add(float64(created))
}
