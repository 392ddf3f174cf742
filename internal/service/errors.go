package service

import "errors"

// Ошибки уровня домена. HTTP-слой отображает их в клиентские статусы;
// автоматически они не ретраятся.
var (
	ErrNotFound           = errors.New("appointment not found")
	ErrForbidden          = errors.New("not a party to this appointment")
	ErrInvalidState       = errors.New("operation not allowed in current status")
	ErrInvalidTimeWindow  = errors.New("invalid time window")
	ErrSchedulingConflict = errors.New("time conflict with existing booking")
	ErrTooLateToCancel    = errors.New("cannot cancel within 2 hours of start time")
	ErrStudentNotFound    = errors.New("student not found")
	ErrCoachNotFound      = errors.New("coach not found")
	ErrNoCoachAvailable   = errors.New("no available coach found")
	ErrRuleNotFound       = errors.New("recurrence rule not found")
)
