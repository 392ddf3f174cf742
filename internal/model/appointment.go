package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"   // Ожидает подтверждения инструктора
	AppointmentStatusConfirmed AppointmentStatus = "confirmed" // Подтверждено инструктором
	AppointmentStatusRejected  AppointmentStatus = "rejected"  // Отклонено инструктором
	AppointmentStatusCancelled AppointmentStatus = "cancelled" // Отменено одной из сторон
	AppointmentStatusCompleted AppointmentStatus = "completed" // Занятие проведено
	AppointmentStatusNoShow    AppointmentStatus = "no_show"   // Ученик не явился
)

type AppointmentType string

const (
	AppointmentTypeRegular AppointmentType = "regular"
	AppointmentTypeTrial   AppointmentType = "trial"
	AppointmentTypeExam    AppointmentType = "exam"
	AppointmentTypeMakeup  AppointmentType = "makeup"
)

// IsTerminal сообщает, является ли статус конечным
func (s AppointmentStatus) IsTerminal() bool {
	switch s {
	case AppointmentStatusRejected, AppointmentStatusCancelled,
		AppointmentStatusCompleted, AppointmentStatusNoShow:
		return true
	}
	return false
}

// CanTransitionTo проверяет допустимость перехода статусов.
// pending -> confirmed | rejected | cancelled
// confirmed -> completed | cancelled | no_show
// Конечные статусы переходов не имеют.
func (s AppointmentStatus) CanTransitionTo(to AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return to == AppointmentStatusConfirmed ||
			to == AppointmentStatusRejected ||
			to == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return to == AppointmentStatusCompleted ||
			to == AppointmentStatusCancelled ||
			to == AppointmentStatusNoShow
	default:
		return false
	}
}

type Appointment struct {
	ID           uuid.UUID         `json:"id"`
	StudentID    int64             `json:"student_id"`
	CoachID      int64             `json:"coach_id"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      time.Time         `json:"end_time"`
	Status       AppointmentStatus `json:"status"`
	Type         AppointmentType   `json:"type"`
	Location     *string           `json:"location,omitempty"`
	Notes        *string           `json:"notes,omitempty"`
	CoachNotes   *string           `json:"coach_notes,omitempty"`
	StudentNotes *string           `json:"student_notes,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// IsParty проверяет, что пользователь — участник занятия
func (a *Appointment) IsParty(userID int64) bool {
	return a.StudentID == userID || a.CoachID == userID
}

// OtherParty возвращает второго участника занятия
func (a *Appointment) OtherParty(userID int64) int64 {
	if a.StudentID == userID {
		return a.CoachID
	}
	return a.StudentID
}
