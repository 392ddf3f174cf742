package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// CreationMode кто инициирует запись. От этого зависит начальный
// статус: запись инструктора сразу подтверждена — он сам
// распоряжается своей доступностью.
type CreationMode string

const (
	CreationModeStudent CreationMode = "student"
	CreationModeCoach   CreationMode = "coach"
)

// TimeWindow окно занятия
type TimeWindow struct {
	Start time.Time
	End   time.Time
}

// CreateParams параметры создания записи
type CreateParams struct {
	StudentID int64
	CoachID   *int64 // nil — подобрать инструктора автоматически
	Mode      CreationMode
	Window    TimeWindow
	Type      model.AppointmentType
	Notes     *string
	Location  *string
}

// Slot 30-минутный слот дня с признаком доступности
type Slot struct {
	StartTime   time.Time `json:"start_time"`
	EndTime     time.Time `json:"end_time"`
	IsAvailable bool      `json:"is_available"`
	Reason      string    `json:"reason,omitempty"`
}

// Stats сводные счётчики занятий пользователя
type Stats struct {
	Total     int `json:"total"`
	Confirmed int `json:"confirmed"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Cancelled int `json:"cancelled"`
	ThisMonth int `json:"this_month"`
}

// AppointmentService оркестрирует жизненный цикл записей на занятия.
// Единственный писатель статусов по действиям пользователей.
type AppointmentService struct {
	appointments   AppointmentStore
	comments       CommentStore
	availabilities AvailabilityStore
	directory      UserDirectory
	messenger      Messenger
	tx             TxManager
	logger         *zap.Logger
	now            func() time.Time
}

func NewAppointmentService(
	appointments AppointmentStore,
	comments CommentStore,
	availabilities AvailabilityStore,
	directory UserDirectory,
	messenger Messenger,
	tx TxManager,
	logger *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		appointments:   appointments,
		comments:       comments,
		availabilities: availabilities,
		directory:      directory,
		messenger:      messenger,
		tx:             tx,
		logger:         logger,
		now:            time.Now,
	}
}

// Create создаёт запись на занятие.
// Проверка конфликта и вставка выполняются в serializable-транзакции,
// чтобы два одновременных бронирования пересекающихся окон не прошли оба.
func (s *AppointmentService) Create(ctx context.Context, p CreateParams) (*model.Appointment, error) {
	now := s.now()

	if p.Type == "" {
		p.Type = model.AppointmentTypeRegular
	}

	if err := validateWindow(p.Window.Start, p.Window.End, now); err != nil {
		return nil, err
	}

	student, err := s.directory.FindUser(ctx, p.StudentID)
	if err != nil {
		return nil, fmt.Errorf("find student: %w", err)
	}
	if student == nil {
		return nil, ErrStudentNotFound
	}

	coach, err := s.resolveCoach(ctx, student, p.CoachID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureUserAvailable(ctx, student.ID, p.Window.Start, p.Window.End, model.UserRoleStudent); err != nil {
		return nil, err
	}
	if err := s.ensureUserAvailable(ctx, coach.ID, p.Window.Start, p.Window.End, model.UserRoleCoach); err != nil {
		return nil, err
	}

	status := model.AppointmentStatusPending
	initiator := model.UserRoleStudent
	if p.Mode == CreationModeCoach {
		status = model.AppointmentStatusConfirmed
		initiator = model.UserRoleCoach
	}

	a := &model.Appointment{
		ID:        uuid.New(),
		StudentID: student.ID,
		CoachID:   coach.ID,
		StartTime: p.Window.Start,
		EndTime:   p.Window.End,
		Status:    status,
		Type:      p.Type,
		Location:  p.Location,
		Notes:     p.Notes,
	}

	err = s.tx.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := s.ensureNoConflict(txCtx, coach.ID, p.Window.Start, p.Window.End, nil); err != nil {
			return err
		}
		return s.appointments.Create(txCtx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment created",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("student_id", student.ID),
		zap.Int64("coach_id", coach.ID),
		zap.String("status", string(status)),
		zap.String("mode", string(p.Mode)),
	)

	s.notifyParties(ctx, AppointmentEvent{Kind: EventCreated, Appointment: a, Initiator: initiator})

	return a, nil
}

// Confirm подтверждает pending-запись от имени инструктора.
// Конфликт перепроверяется: между созданием и подтверждением
// могли появиться пересекающиеся брони.
func (s *AppointmentService) Confirm(ctx context.Context, id uuid.UUID, coachID int64, coachNotes *string) (*model.Appointment, error) {
	a, err := s.getOwnedByCoach(ctx, id, coachID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AppointmentStatusPending {
		return nil, fmt.Errorf("%w: only pending appointments can be confirmed", ErrInvalidState)
	}

	if err := s.ensureUserAvailable(ctx, a.StudentID, a.StartTime, a.EndTime, model.UserRoleStudent); err != nil {
		return nil, err
	}
	if err := s.ensureUserAvailable(ctx, a.CoachID, a.StartTime, a.EndTime, model.UserRoleCoach); err != nil {
		return nil, err
	}

	err = s.tx.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := s.ensureNoConflict(txCtx, a.CoachID, a.StartTime, a.EndTime, &a.ID); err != nil {
			return err
		}
		if coachNotes != nil {
			a.CoachNotes = coachNotes
		}
		return s.transitionTo(txCtx, a, model.AppointmentStatusConfirmed)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment confirmed",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("coach_id", coachID),
	)

	s.notifyParties(ctx, AppointmentEvent{Kind: EventConfirmed, Appointment: a, Initiator: model.UserRoleCoach})

	return a, nil
}

// Reject отклоняет pending-запись от имени инструктора
func (s *AppointmentService) Reject(ctx context.Context, id uuid.UUID, coachID int64, reason *string) (*model.Appointment, error) {
	a, err := s.getOwnedByCoach(ctx, id, coachID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AppointmentStatusPending {
		return nil, fmt.Errorf("%w: only pending appointments can be rejected", ErrInvalidState)
	}

	if reason != nil {
		a.CoachNotes = reason
	}
	if err := s.transitionTo(ctx, a, model.AppointmentStatusRejected); err != nil {
		return nil, err
	}

	s.logger.Info("Appointment rejected",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("coach_id", coachID),
	)

	ev := AppointmentEvent{Kind: EventRejected, Appointment: a, Initiator: model.UserRoleCoach}
	if reason != nil {
		ev.Reason = *reason
	}
	s.notifyParties(ctx, ev)

	return a, nil
}

// Cancel отменяет запись. Ограничение «не позже чем за 2 часа»
// действует только для ученика, инструктор может отменить в любой момент.
func (s *AppointmentService) Cancel(ctx context.Context, id uuid.UUID, userID int64, notes *string) (*model.Appointment, error) {
	a, err := s.getForParty(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	if a.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("%w: completed appointments cannot be cancelled", ErrInvalidState)
	}
	if a.Status.IsTerminal() {
		return nil, fmt.Errorf("%w: appointment already cancelled", ErrInvalidState)
	}

	if userID == a.StudentID && a.StartTime.Sub(s.now()) < minLeadTime {
		return nil, ErrTooLateToCancel
	}

	if notes != nil {
		a.Notes = notes
	}
	if err := s.transitionTo(ctx, a, model.AppointmentStatusCancelled); err != nil {
		return nil, err
	}

	initiator := model.UserRoleCoach
	if userID == a.StudentID {
		initiator = model.UserRoleStudent
	}

	s.logger.Info("Appointment cancelled",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("user_id", userID),
		zap.String("initiator", string(initiator)),
	)

	s.notifyParties(ctx, AppointmentEvent{Kind: EventCancelled, Appointment: a, Initiator: initiator})

	return a, nil
}

// Complete отмечает подтверждённое занятие проведённым
func (s *AppointmentService) Complete(ctx context.Context, id uuid.UUID, coachID int64, coachNotes, studentNotes *string) (*model.Appointment, error) {
	a, err := s.getOwnedByCoach(ctx, id, coachID)
	if err != nil {
		return nil, err
	}
	if a.Status != model.AppointmentStatusConfirmed {
		return nil, fmt.Errorf("%w: only confirmed appointments can be completed", ErrInvalidState)
	}

	if coachNotes != nil {
		a.CoachNotes = coachNotes
	}
	if studentNotes != nil {
		a.StudentNotes = studentNotes
	}
	if err := s.transitionTo(ctx, a, model.AppointmentStatusCompleted); err != nil {
		return nil, err
	}

	s.logger.Info("Appointment completed",
		zap.String("appointment_id", a.ID.String()),
		zap.Int64("coach_id", coachID),
	)

	s.notifyParties(ctx, AppointmentEvent{Kind: EventCompleted, Appointment: a, Initiator: model.UserRoleCoach})

	return a, nil
}

// Reschedule переносит занятие на новое окно. Правила окна и конфликт
// перепроверяются против нового времени, сама запись исключается.
func (s *AppointmentService) Reschedule(ctx context.Context, id uuid.UUID, coachID int64, w TimeWindow, notes *string) (*model.Appointment, error) {
	a, err := s.getOwnedByCoach(ctx, id, coachID)
	if err != nil {
		return nil, err
	}

	if err := validateWindow(w.Start, w.End, s.now()); err != nil {
		return nil, err
	}
	if err := s.ensureUserAvailable(ctx, a.StudentID, w.Start, w.End, model.UserRoleStudent); err != nil {
		return nil, err
	}
	if err := s.ensureUserAvailable(ctx, a.CoachID, w.Start, w.End, model.UserRoleCoach); err != nil {
		return nil, err
	}

	err = s.tx.DoSerializable(ctx, func(txCtx context.Context) error {
		if err := s.ensureNoConflict(txCtx, a.CoachID, w.Start, w.End, &a.ID); err != nil {
			return err
		}
		a.StartTime = w.Start
		a.EndTime = w.End
		if notes != nil {
			a.Notes = notes
		}
		ok, err := s.appointments.Update(txCtx, a, a.Status)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: appointment was modified concurrently", ErrInvalidState)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Appointment rescheduled",
		zap.String("appointment_id", a.ID.String()),
		zap.Time("start_time", w.Start),
	)

	s.notifyParties(ctx, AppointmentEvent{Kind: EventRescheduled, Appointment: a, Initiator: model.UserRoleCoach})

	return a, nil
}

// ListForUser получает занятия пользователя с фильтрами
func (s *AppointmentService) ListForUser(ctx context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	return s.appointments.ListForUser(ctx, f)
}

// GetByID получает занятие; доступно только его участникам
func (s *AppointmentService) GetByID(ctx context.Context, id uuid.UUID, userID int64) (*model.Appointment, error) {
	return s.getForParty(ctx, id, userID)
}

// UpdateNotes обновляет заметки занятия
func (s *AppointmentService) UpdateNotes(ctx context.Context, id uuid.UUID, userID int64, notes string) (*model.Appointment, error) {
	a, err := s.getForParty(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if a.Status == model.AppointmentStatusCompleted {
		return nil, fmt.Errorf("%w: completed appointments cannot be updated", ErrInvalidState)
	}

	a.Notes = &notes
	ok, err := s.appointments.Update(ctx, a, a.Status)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: appointment was modified concurrently", ErrInvalidState)
	}

	return a, nil
}

// AddComment добавляет комментарий участника к занятию
func (s *AppointmentService) AddComment(ctx context.Context, id uuid.UUID, userID int64, content string) (*model.AppointmentComment, error) {
	a, err := s.getForParty(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	role := model.UserRoleCoach
	if userID == a.StudentID {
		role = model.UserRoleStudent
	}

	userName := ""
	if u, err := s.directory.FindUser(ctx, userID); err == nil && u != nil {
		userName = u.Name
	}

	c := &model.AppointmentComment{
		AppointmentID: a.ID,
		UserID:        userID,
		UserName:      userName,
		Role:          role,
		Content:       content,
	}
	if err := s.comments.Create(ctx, c); err != nil {
		return nil, err
	}

	return c, nil
}

// ListComments получает комментарии занятия
func (s *AppointmentService) ListComments(ctx context.Context, id uuid.UUID, userID int64) ([]*model.AppointmentComment, error) {
	if _, err := s.getForParty(ctx, id, userID); err != nil {
		return nil, err
	}
	return s.comments.ListByAppointment(ctx, id)
}

// SlotsParams параметры запроса слотов дня
type SlotsParams struct {
	CoachID     *int64 // nil — инструктор ученика-запросившего
	Date        time.Time
	RequesterID int64
}

// Slots строит сетку 30-минутных слотов дня (09:00–18:00) и помечает
// занятые, прошедшие и попавшие в недоступность. Ничего не пишет.
func (s *AppointmentService) Slots(ctx context.Context, p SlotsParams) ([]Slot, error) {
	coachID := int64(0)
	if p.CoachID != nil {
		coachID = *p.CoachID
	} else {
		coach, err := s.directory.FindCoachForStudent(ctx, p.RequesterID)
		if err != nil {
			return nil, fmt.Errorf("find coach for student: %w", err)
		}
		if coach == nil {
			return nil, ErrNoCoachAvailable
		}
		coachID = coach.ID
	}

	loc := p.Date.Location()
	dayStart := time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	dayApps, err := s.appointments.ListForCoachBetween(ctx, coachID, dayStart, dayEnd)
	if err != nil {
		return nil, err
	}

	items, err := s.availabilities.ListByUser(ctx, coachID)
	if err != nil {
		return nil, err
	}
	unavailable := unavailableWindowsFor(items, dayStart, dayEnd)

	now := s.now()
	gridStart := time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), slotDayStartHour, 0, 0, 0, loc)
	gridEnd := time.Date(p.Date.Year(), p.Date.Month(), p.Date.Day(), slotDayEndHour, 0, 0, 0, loc)

	var slots []Slot
	for start := gridStart; start.Before(gridEnd); start = start.Add(slotStep) {
		end := start.Add(slotStep)

		expired := start.Before(now)

		booked := false
		for _, a := range dayApps {
			if a.Status == model.AppointmentStatusCancelled || a.Status == model.AppointmentStatusRejected {
				continue
			}
			if overlaps(start, end, a.StartTime, a.EndTime) {
				booked = true
				break
			}
		}

		blocked := false
		for _, w := range unavailable {
			if overlaps(start, end, w[0], w[1]) {
				blocked = true
				break
			}
		}

		slot := Slot{StartTime: start, EndTime: end, IsAvailable: !expired && !booked && !blocked}
		switch {
		case booked:
			slot.Reason = "Booked"
		case blocked:
			slot.Reason = "Unavailable"
		case expired:
			slot.Reason = "Expired"
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

// Stats считает сводные счётчики по всем занятиям пользователя.
// Полный скан допустим: это отчётная, а не горячая операция.
func (s *AppointmentService) Stats(ctx context.Context, userID int64, role model.UserRole) (*Stats, error) {
	list, err := s.appointments.ListForUser(ctx, model.AppointmentFilter{UserID: userID, Role: role})
	if err != nil {
		return nil, err
	}

	now := s.now()
	st := &Stats{Total: len(list)}
	for _, a := range list {
		switch a.Status {
		case model.AppointmentStatusConfirmed:
			st.Confirmed++
		case model.AppointmentStatusCompleted:
			st.Completed++
		case model.AppointmentStatusPending:
			st.Pending++
		case model.AppointmentStatusCancelled:
			st.Cancelled++
		}
		if a.StartTime.Year() == now.Year() && a.StartTime.Month() == now.Month() {
			st.ThisMonth++
		}
	}

	return st, nil
}

// resolveCoach определяет инструктора для записи: явный ID либо
// автоподбор через связку ученика, с откатом на инструктора автошколы
func (s *AppointmentService) resolveCoach(ctx context.Context, student *model.User, coachID *int64) (*model.User, error) {
	if coachID != nil {
		coach, err := s.directory.FindUser(ctx, *coachID)
		if err != nil {
			return nil, fmt.Errorf("find coach: %w", err)
		}
		if coach == nil {
			return nil, ErrCoachNotFound
		}
		return coach, nil
	}

	coach, err := s.directory.FindCoachForStudent(ctx, student.ID)
	if err != nil {
		return nil, fmt.Errorf("find coach for student: %w", err)
	}

	if coach == nil && student.SchoolID != nil {
		coach, err = s.directory.FindCoachBySchool(ctx, *student.SchoolID)
		if err != nil {
			return nil, fmt.Errorf("find coach by school: %w", err)
		}
		if coach != nil {
			// Автопривязка; её неудача запись не блокирует
			if err := s.directory.AssignStudentToCoach(ctx, student.ID, coach.ID); err != nil {
				s.logger.Warn("Failed to assign student to coach",
					zap.Int64("student_id", student.ID),
					zap.Int64("coach_id", coach.ID),
					zap.Error(err))
			}
		}
	}

	if coach == nil {
		return nil, ErrNoCoachAvailable
	}

	return coach, nil
}

// ensureNoConflict проверяет отсутствие пересечений с незавершёнными
// записями инструктора
func (s *AppointmentService) ensureNoConflict(ctx context.Context, coachID int64, start, end time.Time, excludeID *uuid.UUID) error {
	existing, err := s.appointments.FindConflicting(ctx, coachID, start, end, excludeID)
	if err != nil {
		return fmt.Errorf("find conflicting appointment: %w", err)
	}
	if existing != nil {
		return fmt.Errorf("%w: %s - %s", ErrSchedulingConflict,
			existing.StartTime.Format("2006-01-02 15:04"), existing.EndTime.Format("15:04"))
	}
	return nil
}

// transitionTo переводит запись в новый статус. Переход проверяется
// по машине состояний, а запись уходит в базу с условием на исходный
// статус: конкурентный переход, закоммиченный между чтением и записью,
// не затирается, а всплывает как ErrInvalidState.
func (s *AppointmentService) transitionTo(ctx context.Context, a *model.Appointment, to model.AppointmentStatus) error {
	from := a.Status
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: cannot move %s appointment to %s", ErrInvalidState, from, to)
	}

	a.Status = to
	ok, err := s.appointments.Update(ctx, a, from)
	if err != nil {
		a.Status = from
		return err
	}
	if !ok {
		a.Status = from
		return fmt.Errorf("%w: appointment was modified concurrently", ErrInvalidState)
	}
	return nil
}

func (s *AppointmentService) getForParty(ctx context.Context, id uuid.UUID, userID int64) (*model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if !a.IsParty(userID) {
		return nil, ErrForbidden
	}
	return a, nil
}

func (s *AppointmentService) getOwnedByCoach(ctx context.Context, id uuid.UUID, coachID int64) (*model.Appointment, error) {
	a, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, ErrNotFound
	}
	if a.CoachID != coachID {
		return nil, ErrForbidden
	}
	return a, nil
}

// notifyParties отправляет сообщение о событии в чат пары.
// Отправка best-effort: неудача логируется и не откатывает переход.
func (s *AppointmentService) notifyParties(ctx context.Context, ev AppointmentEvent) {
	if err := s.messenger.SendAppointmentMessage(ctx, ev); err != nil {
		s.logger.Warn("Failed to send appointment message",
			zap.String("event", string(ev.Kind)),
			zap.String("appointment_id", ev.Appointment.ID.String()),
			zap.Error(err))
	}
}
