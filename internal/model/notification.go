package model

import "time"

type NotificationKind string

const (
	NotificationKindSystem      NotificationKind = "system"
	NotificationKindAppointment NotificationKind = "appointment"
	NotificationKindMessage     NotificationKind = "message"
)

type Notification struct {
	ID        int64            `json:"id"`
	UserID    int64            `json:"user_id"`
	Kind      NotificationKind `json:"kind"`
	Title     string           `json:"title"`
	Content   string           `json:"content"`
	IsRead    bool             `json:"is_read"`
	CreatedAt time.Time        `json:"created_at"`
}
