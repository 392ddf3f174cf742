package service

import (
	"context"
	"fmt"
	"time"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// Правила бронирования
const (
	minLeadTime     = 2 * time.Hour
	maxAdvance      = 30 * 24 * time.Hour
	minLessonLength = 30 * time.Minute
	maxLessonLength = 3 * time.Hour
)

// Сетка слотов на день
const (
	slotDayStartHour = 9
	slotDayEndHour   = 18
	slotStep         = 30 * time.Minute
)

// validateWindow проверяет окно занятия против правил бронирования.
// Вызывается на каждой мутации, меняющей окно (create, reschedule),
// а не только при создании.
func validateWindow(start, end, now time.Time) error {
	if !end.After(start) {
		return fmt.Errorf("%w: end time must be after start time", ErrInvalidTimeWindow)
	}
	if start.Before(now) {
		return fmt.Errorf("%w: cannot book appointments in the past", ErrInvalidTimeWindow)
	}
	if start.After(now.Add(maxAdvance)) {
		return fmt.Errorf("%w: bookings can only be made up to 30 days in advance", ErrInvalidTimeWindow)
	}
	if start.Sub(now) < minLeadTime {
		return fmt.Errorf("%w: bookings require at least 2 hours notice", ErrInvalidTimeWindow)
	}

	length := end.Sub(start)
	if length < minLessonLength {
		return fmt.Errorf("%w: minimum booking duration is 30 minutes", ErrInvalidTimeWindow)
	}
	if length > maxLessonLength {
		return fmt.Errorf("%w: maximum booking duration is 3 hours", ErrInvalidTimeWindow)
	}

	return nil
}

// overlaps проверяет пересечение полуоткрытых интервалов [aStart, aEnd) и [bStart, bEnd)
func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && aEnd.After(bStart)
}

// unavailableWindowsFor проецирует окна недоступности на дни интервала [start, end).
// Окна с repeat=always повторяются ежедневно, от их времени суток.
func unavailableWindowsFor(items []*model.Availability, start, end time.Time) [][2]time.Time {
	var windows [][2]time.Time

	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	dayEnd := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, end.Location())

	for _, item := range items {
		if !item.IsUnavailable {
			continue
		}

		if item.Repeat == model.AvailabilityRepeatAlways {
			for day := dayStart; !day.After(dayEnd); day = day.AddDate(0, 0, 1) {
				ws := time.Date(day.Year(), day.Month(), day.Day(),
					item.StartTime.Hour(), item.StartTime.Minute(), 0, 0, day.Location())
				we := time.Date(day.Year(), day.Month(), day.Day(),
					item.EndTime.Hour(), item.EndTime.Minute(), 0, 0, day.Location())
				if !we.After(ws) {
					// Окно через полночь
					we = we.AddDate(0, 0, 1)
				}
				windows = append(windows, [2]time.Time{ws, we})
			}
			continue
		}

		windows = append(windows, [2]time.Time{item.StartTime, item.EndTime})
	}

	return windows
}

// ensureUserAvailable проверяет, что окно занятия не попадает
// в личную недоступность пользователя
func (s *AppointmentService) ensureUserAvailable(ctx context.Context, userID int64, start, end time.Time, label model.UserRole) error {
	items, err := s.availabilities.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("list availabilities: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	for _, w := range unavailableWindowsFor(items, start, end) {
		if overlaps(start, end, w[0], w[1]) {
			return fmt.Errorf("%w: %s unavailable %s - %s", ErrSchedulingConflict,
				label, w[0].Format("2006-01-02 15:04"), w[1].Format("15:04"))
		}
	}

	return nil
}
