package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

const (
	defaultMaintenanceBatch = 100
	maxMaintenanceBatch     = 500
)

// MaintenanceConfig настройки фоновой уборки
type MaintenanceConfig struct {
	// AutoCompleteDelay сколько ждать после конца занятия,
	// прежде чем закрыть его автоматически
	AutoCompleteDelay time.Duration
	// AutoCancelPendingAfter возраст pending-записи, после которого
	// она считается брошенной
	AutoCancelPendingAfter time.Duration
	// BatchSize размер пачки на один запрос
	BatchSize int
}

// MaintenanceResult итог одного прохода уборки
type MaintenanceResult struct {
	Completed int `json:"completed"`
	Cancelled int `json:"cancelled"`
}

// MaintenanceService закрывает прошедшие подтверждённые занятия и
// отменяет брошенные pending-записи. Проход идемпотентен: повторный
// запуск на том же состоянии ничего не меняет.
type MaintenanceService struct {
	appointments AppointmentStore
	directory    UserDirectory
	notifier     Notifier
	logger       *zap.Logger
	cfg          MaintenanceConfig
	now          func() time.Time

	running atomic.Bool
}

func NewMaintenanceService(
	appointments AppointmentStore,
	directory UserDirectory,
	notifier Notifier,
	cfg MaintenanceConfig,
	logger *zap.Logger,
) *MaintenanceService {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultMaintenanceBatch
	}
	if cfg.BatchSize > maxMaintenanceBatch {
		cfg.BatchSize = maxMaintenanceBatch
	}
	return &MaintenanceService{
		appointments: appointments,
		directory:    directory,
		notifier:     notifier,
		logger:       logger,
		cfg:          cfg,
		now:          time.Now,
	}
}

// Run выполняет один проход уборки. Если предыдущий проход ещё идёт,
// возвращает нулевые счётчики без работы: пересекающиеся проходы
// не дают ничего, кроме лишней нагрузки на базу.
func (s *MaintenanceService) Run(ctx context.Context) (*MaintenanceResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		s.logger.Debug("Maintenance pass already running, skipping")
		return &MaintenanceResult{}, nil
	}
	defer s.running.Store(false)

	res := &MaintenanceResult{}

	completed, err := s.completeExpired(ctx)
	res.Completed = completed
	if err != nil {
		return res, err
	}

	cancelled, err := s.cancelStalePending(ctx)
	res.Cancelled = cancelled
	if err != nil {
		return res, err
	}

	if res.Completed > 0 || res.Cancelled > 0 {
		s.logger.Info("Maintenance pass finished",
			zap.Int("completed", res.Completed),
			zap.Int("cancelled", res.Cancelled),
		)
	}

	return res, nil
}

// completeExpired закрывает подтверждённые занятия, закончившиеся
// раньше now-delay. Пачками, пока есть кандидаты.
func (s *MaintenanceService) completeExpired(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-s.cfg.AutoCompleteDelay)

	total := 0
	for {
		batch, err := s.appointments.ListConfirmedEndedBefore(ctx, cutoff, s.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list expired appointments: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		ids := make([]uuid.UUID, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}

		n, err := s.appointments.UpdateStatuses(ctx, ids, model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted)
		if err != nil {
			return total, fmt.Errorf("complete expired appointments: %w", err)
		}
		total += int(n)

		if len(batch) < s.cfg.BatchSize {
			return total, nil
		}
	}
}

// cancelStalePending отменяет pending-записи, которые либо висят без
// ответа дольше порога, либо уже начались. Обе стороны получают
// системное уведомление; его неудача отмену не откатывает.
func (s *MaintenanceService) cancelStalePending(ctx context.Context) (int, error) {
	now := s.now()
	createdBefore := now.Add(-s.cfg.AutoCancelPendingAfter)

	total := 0
	for {
		batch, err := s.appointments.ListStalePending(ctx, createdBefore, now, s.cfg.BatchSize)
		if err != nil {
			return total, fmt.Errorf("list stale pending appointments: %w", err)
		}
		if len(batch) == 0 {
			return total, nil
		}

		ids := make([]uuid.UUID, len(batch))
		for i, a := range batch {
			ids[i] = a.ID
		}

		n, err := s.appointments.UpdateStatuses(ctx, ids, model.AppointmentStatusPending, model.AppointmentStatusCancelled)
		if err != nil {
			return total, fmt.Errorf("cancel stale appointments: %w", err)
		}
		total += int(n)

		for _, a := range batch {
			s.notifyAutoCancel(ctx, a)
		}

		if len(batch) < s.cfg.BatchSize {
			return total, nil
		}
	}
}

func (s *MaintenanceService) notifyAutoCancel(ctx context.Context, a *model.Appointment) {
	when := a.StartTime.Format("2006-01-02 15:04")

	studentName := "Student"
	if u, err := s.directory.FindUser(ctx, a.StudentID); err == nil && u != nil {
		studentName = u.Name
	}

	toStudent := fmt.Sprintf("Your appointment on %s was cancelled because it was not confirmed in time.", when)
	if err := s.notifier.SendSystemNotification(ctx, a.StudentID, "Appointment auto-cancelled", toStudent); err != nil {
		s.logger.Warn("Failed to notify student about auto-cancel",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err))
	}

	toCoach := fmt.Sprintf("The pending appointment with %s on %s was cancelled automatically.", studentName, when)
	if err := s.notifier.SendSystemNotification(ctx, a.CoachID, "Appointment auto-cancelled", toCoach); err != nil {
		s.logger.Warn("Failed to notify coach about auto-cancel",
			zap.String("appointment_id", a.ID.String()),
			zap.Error(err))
	}
}
