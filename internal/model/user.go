package model

import "time"

type UserRole string

const (
	UserRoleStudent UserRole = "student"
	UserRoleCoach   UserRole = "coach"
)

type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Role      UserRole  `json:"role"`
	SchoolID  *int64    `json:"school_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type RelationStatus string

const (
	RelationStatusActive   RelationStatus = "active"
	RelationStatusInactive RelationStatus = "inactive"
)

// CoachStudentRelation связка ученик-инструктор.
// Планировщик её только читает (подбор инструктора при записи)
// и активирует при автопривязке.
type CoachStudentRelation struct {
	ID        int64          `json:"id"`
	StudentID int64          `json:"student_id"`
	CoachID   int64          `json:"coach_id"`
	Status    RelationStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
}
