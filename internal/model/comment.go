package model

import (
	"time"

	"github.com/google/uuid"
)

// AppointmentComment комментарий участника к занятию
type AppointmentComment struct {
	ID            int64     `json:"id"`
	AppointmentID uuid.UUID `json:"appointment_id"`
	UserID        int64     `json:"user_id"`
	UserName      string    `json:"user_name"`
	Role          UserRole  `json:"role"`
	Content       string    `json:"content"`
	CreatedAt     time.Time `json:"created_at"`
}
