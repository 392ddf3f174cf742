package model

import "time"

type AvailabilityRepeat string

const (
	AvailabilityRepeatOnce   AvailabilityRepeat = "once"
	AvailabilityRepeatAlways AvailabilityRepeat = "always" // ежедневно, по времени суток из StartTime/EndTime
)

// Availability окно личной недоступности пользователя.
// При Repeat=always на дату смотрим только часы и минуты.
type Availability struct {
	ID            int64              `json:"id"`
	UserID        int64              `json:"user_id"`
	StartTime     time.Time          `json:"start_time"`
	EndTime       time.Time          `json:"end_time"`
	Repeat        AvailabilityRepeat `json:"repeat"`
	IsUnavailable bool               `json:"is_unavailable"`
	CreatedAt     time.Time          `json:"created_at"`
}
