package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// Контракты хранилищ и внешних участников. Реализуются репозиториями
// и сервисами-коллабораторами; в тестах подменяются фейками.

type AppointmentStore interface {
	Create(ctx context.Context, a *model.Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	ListForUser(ctx context.Context, f model.AppointmentFilter) ([]*model.Appointment, error)
	FindConflicting(ctx context.Context, coachID int64, start, end time.Time, excludeID *uuid.UUID) (*model.Appointment, error)
	FindExact(ctx context.Context, coachID, studentID int64, start, end time.Time) (*model.Appointment, error)
	ListForCoachBetween(ctx context.Context, coachID int64, from, to time.Time) ([]*model.Appointment, error)
	// Update перезаписывает запись только из ожидаемого статуса;
	// false — строка уже переведена кем-то другим
	Update(ctx context.Context, a *model.Appointment, expected model.AppointmentStatus) (bool, error)
	ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error)
	ListStalePending(ctx context.Context, createdBefore, now time.Time, limit int) ([]*model.Appointment, error)
	UpdateStatuses(ctx context.Context, ids []uuid.UUID, from, to model.AppointmentStatus) (int64, error)
}

type RuleStore interface {
	Create(ctx context.Context, rule *model.RecurrenceRule) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error)
	ListActive(ctx context.Context) ([]*model.RecurrenceRule, error)
	ListByCoach(ctx context.Context, coachID int64) ([]*model.RecurrenceRule, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	AdvanceLastGeneratedAt(ctx context.Context, id uuid.UUID, t time.Time) error
}

type CommentStore interface {
	Create(ctx context.Context, c *model.AppointmentComment) error
	ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentComment, error)
}

type AvailabilityStore interface {
	ListByUser(ctx context.Context, userID int64) ([]*model.Availability, error)
}

// UserDirectory доступ к пользователям и связкам ученик-инструктор
type UserDirectory interface {
	FindUser(ctx context.Context, id int64) (*model.User, error)
	FindCoachForStudent(ctx context.Context, studentID int64) (*model.User, error)
	FindCoachBySchool(ctx context.Context, schoolID int64) (*model.User, error)
	AssignStudentToCoach(ctx context.Context, studentID, coachID int64) error
}

type AppointmentEventKind string

const (
	EventCreated     AppointmentEventKind = "created"
	EventConfirmed   AppointmentEventKind = "confirmed"
	EventRejected    AppointmentEventKind = "rejected"
	EventCancelled   AppointmentEventKind = "cancelled"
	EventCompleted   AppointmentEventKind = "completed"
	EventRescheduled AppointmentEventKind = "rescheduled"
)

// AppointmentEvent событие жизненного цикла записи для чата
type AppointmentEvent struct {
	Kind        AppointmentEventKind
	Appointment *model.Appointment
	Initiator   model.UserRole
	Reason      string
}

// Messenger отправляет сообщение о событии записи в диалог пары
type Messenger interface {
	SendAppointmentMessage(ctx context.Context, ev AppointmentEvent) error
}

// Notifier отправляет системное уведомление пользователю
type Notifier interface {
	SendSystemNotification(ctx context.Context, userID int64, title, content string) error
}

// TxManager выполняет функцию внутри транзакции
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error
}
