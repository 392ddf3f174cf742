package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

const (
	recurrencePeriod  = 7 * 24 * time.Hour
	seedWeeks         = 4
	generationHorizon = 7 * 24 * time.Hour
)

// RecurrenceRuleParams параметры еженедельного правила
type RecurrenceRuleParams struct {
	StudentID int64
	CoachID   int64
	Window    TimeWindow
}

// RecurrenceService управляет еженедельными правилами и разворачивает
// их в конкретные записи. Генерация идемпотентна: повторный прогон
// с тем же состоянием ничего не добавляет.
type RecurrenceService struct {
	rules        RuleStore
	appointments AppointmentStore
	tx           TxManager
	logger       *zap.Logger
	now          func() time.Time
}

func NewRecurrenceService(rules RuleStore, appointments AppointmentStore, tx TxManager, logger *zap.Logger) *RecurrenceService {
	return &RecurrenceService{
		rules:        rules,
		appointments: appointments,
		tx:           tx,
		logger:       logger,
		now:          time.Now,
	}
}

// CreateRule создаёт правило и сразу сеет занятия на первые недели.
// Правило и посев пишутся одной транзакцией: наполовину засеянное
// правило хуже отсутствующего.
func (s *RecurrenceService) CreateRule(ctx context.Context, p RecurrenceRuleParams) (*model.RecurrenceRule, error) {
	now := s.now()

	if err := validateWindow(p.Window.Start, p.Window.End, now); err != nil {
		return nil, err
	}

	rule := &model.RecurrenceRule{
		ID:        uuid.New(),
		StudentID: p.StudentID,
		CoachID:   p.CoachID,
		StartTime: p.Window.Start,
		EndTime:   p.Window.End,
		Repeat:    model.RecurrenceRepeatWeekly,
		IsActive:  true,
	}

	var seeded int
	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		if err := s.rules.Create(txCtx, rule); err != nil {
			return fmt.Errorf("create recurrence rule: %w", err)
		}

		duration := rule.Duration()
		last := rule.StartTime
		for i := 0; i < seedWeeks; i++ {
			start := rule.StartTime.Add(time.Duration(i) * recurrencePeriod)
			created, err := s.generateOccurrence(txCtx, rule, start, duration)
			if err != nil {
				return err
			}
			if created {
				seeded++
			}
			last = start
		}

		if err := s.rules.AdvanceLastGeneratedAt(txCtx, rule.ID, last); err != nil {
			return fmt.Errorf("advance last generated at: %w", err)
		}
		rule.LastGeneratedAt = &last
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Recurrence rule created",
		zap.String("rule_id", rule.ID.String()),
		zap.Int64("student_id", p.StudentID),
		zap.Int64("coach_id", p.CoachID),
		zap.Int("seeded", seeded),
	)

	return rule, nil
}

// DeactivateRule выключает правило; уже созданные занятия остаются
func (s *RecurrenceService) DeactivateRule(ctx context.Context, id uuid.UUID, coachID int64) error {
	rule, err := s.rules.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if rule == nil {
		return ErrRuleNotFound
	}
	if rule.CoachID != coachID {
		return ErrForbidden
	}

	if err := s.rules.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("Recurrence rule deactivated", zap.String("rule_id", id.String()))
	return nil
}

// ListRulesForCoach получает правила инструктора
func (s *RecurrenceService) ListRulesForCoach(ctx context.Context, coachID int64) ([]*model.RecurrenceRule, error) {
	return s.rules.ListByCoach(ctx, coachID)
}

// GenerateUpcoming разворачивает все активные правила до горизонта
// now+7 дней. Ошибка одного правила не прерывает остальные.
// Возвращает число созданных занятий.
func (s *RecurrenceService) GenerateUpcoming(ctx context.Context) (int, error) {
	rules, err := s.rules.ListActive(ctx)
	if err != nil {
		return 0, fmt.Errorf("list active rules: %w", err)
	}

	total := 0
	for _, rule := range rules {
		created, err := s.generateForRule(ctx, rule)
		if err != nil {
			s.logger.Error("Failed to generate appointments for rule",
				zap.String("rule_id", rule.ID.String()),
				zap.Error(err))
			continue
		}
		total += created
	}

	if total > 0 {
		s.logger.Info("Recurring appointments generated", zap.Int("count", total))
	}

	return total, nil
}

// generateForRule разворачивает одно правило. Курсор last_generated_at
// двигается только вперёд, поэтому гонка двух генераторов не приводит
// к дублям: проигравший увидит, что занятие уже есть.
func (s *RecurrenceService) generateForRule(ctx context.Context, rule *model.RecurrenceRule) (int, error) {
	now := s.now()
	horizon := now.Add(generationHorizon)

	duration := rule.Duration()
	if duration <= 0 {
		return 0, nil
	}

	next := rule.StartTime
	if rule.LastGeneratedAt != nil && rule.LastGeneratedAt.After(next) {
		next = *rule.LastGeneratedAt
	}

	// Пропускаем уже прошедшие вхождения
	for next.Add(duration).Before(now) {
		next = next.Add(recurrencePeriod)
	}

	created := 0
	err := s.tx.Do(ctx, func(txCtx context.Context) error {
		last := time.Time{}
		for !next.After(horizon) {
			added, err := s.generateOccurrence(txCtx, rule, next, duration)
			if err != nil {
				return err
			}
			if added {
				created++
			}
			last = next
			next = next.Add(recurrencePeriod)
		}

		if created > 0 {
			if err := s.rules.AdvanceLastGeneratedAt(txCtx, rule.ID, last); err != nil {
				return fmt.Errorf("advance last generated at: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// generateOccurrence создаёт одно вхождение правила, если точно такого
// занятия ещё нет
func (s *RecurrenceService) generateOccurrence(ctx context.Context, rule *model.RecurrenceRule, start time.Time, duration time.Duration) (bool, error) {
	end := start.Add(duration)

	existing, err := s.appointments.FindExact(ctx, rule.CoachID, rule.StudentID, start, end)
	if err != nil {
		return false, fmt.Errorf("find exact appointment: %w", err)
	}
	if existing != nil {
		return false, nil
	}

	a := &model.Appointment{
		ID:        uuid.New(),
		StudentID: rule.StudentID,
		CoachID:   rule.CoachID,
		StartTime: start,
		EndTime:   end,
		Status:    model.AppointmentStatusPending,
		Type:      model.AppointmentTypeRegular,
	}
	if err := s.appointments.Create(ctx, a); err != nil {
		return false, fmt.Errorf("create recurring appointment: %w", err)
	}

	return true, nil
}
