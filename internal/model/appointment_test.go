package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentStatusTransitions(t *testing.T) {
	all := []AppointmentStatus{
		AppointmentStatusPending,
		AppointmentStatusConfirmed,
		AppointmentStatusRejected,
		AppointmentStatusCancelled,
		AppointmentStatusCompleted,
		AppointmentStatusNoShow,
	}

	allowed := map[AppointmentStatus][]AppointmentStatus{
		AppointmentStatusPending: {
			AppointmentStatusConfirmed,
			AppointmentStatusRejected,
			AppointmentStatusCancelled,
		},
		AppointmentStatusConfirmed: {
			AppointmentStatusCompleted,
			AppointmentStatusCancelled,
			AppointmentStatusNoShow,
		},
	}

	for _, from := range all {
		ok := map[AppointmentStatus]bool{}
		for _, to := range allowed[from] {
			ok[to] = true
		}
		for _, to := range all {
			assert.Equal(t, ok[to], from.CanTransitionTo(to),
				"transition %s -> %s", from, to)
		}
	}
}

func TestAppointmentStatusIsTerminal(t *testing.T) {
	assert.False(t, AppointmentStatusPending.IsTerminal())
	assert.False(t, AppointmentStatusConfirmed.IsTerminal())
	assert.True(t, AppointmentStatusRejected.IsTerminal())
	assert.True(t, AppointmentStatusCancelled.IsTerminal())
	assert.True(t, AppointmentStatusCompleted.IsTerminal())
	assert.True(t, AppointmentStatusNoShow.IsTerminal())
}

func TestAppointmentParties(t *testing.T) {
	a := &Appointment{StudentID: 1, CoachID: 2}

	assert.True(t, a.IsParty(1))
	assert.True(t, a.IsParty(2))
	assert.False(t, a.IsParty(3))

	assert.Equal(t, int64(2), a.OtherParty(1))
	assert.Equal(t, int64(1), a.OtherParty(2))
}
