package model

import "time"

// AppointmentFilter параметры выборки занятий пользователя
type AppointmentFilter struct {
	UserID int64
	Role   UserRole
	From   *time.Time
	To     *time.Time
	Status *AppointmentStatus
}
