package model

import (
	"time"

	"github.com/google/uuid"
)

type RecurrenceRepeat string

const (
	// RecurrenceRepeatWeekly единственная поддерживаемая периодичность
	RecurrenceRepeatWeekly RecurrenceRepeat = "weekly"
)

// RecurrenceRule шаблон еженедельного занятия.
// StartTime/EndTime задают якорное занятие одной недели; из него
// разворачиваются конкретные записи. Сгенерированные записи обратной
// ссылки на правило не несут.
type RecurrenceRule struct {
	ID              uuid.UUID        `json:"id"`
	StudentID       int64            `json:"student_id"`
	CoachID         int64            `json:"coach_id"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
	Repeat          RecurrenceRepeat `json:"repeat"`
	IsActive        bool             `json:"is_active"`
	LastGeneratedAt *time.Time       `json:"last_generated_at"` // high-water mark, nil до первой генерации
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// Duration длительность одного занятия по правилу
func (r *RecurrenceRule) Duration() time.Duration {
	return r.EndTime.Sub(r.StartTime)
}
