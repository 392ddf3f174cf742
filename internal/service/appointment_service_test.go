package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

const (
	studentID = int64(1)
	coachID   = int64(2)
)

type apptEnv struct {
	svc      *AppointmentService
	store    *fakeAppointmentStore
	dir      *fakeDirectory
	msgr     *fakeMessenger
	avail    *fakeAvailabilityStore
	comments *fakeCommentStore
	now      time.Time
}

func newApptEnv(t *testing.T) *apptEnv {
	t.Helper()

	env := &apptEnv{
		store:    newFakeAppointmentStore(),
		dir:      newFakeDirectory(),
		msgr:     &fakeMessenger{},
		avail:    newFakeAvailabilityStore(),
		comments: &fakeCommentStore{},
		now:      time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
	}

	env.dir.addUser(&model.User{ID: studentID, Name: "Ivan", Role: model.UserRoleStudent})
	env.dir.addUser(&model.User{ID: coachID, Name: "Pavel", Role: model.UserRoleCoach})
	env.dir.coachOf[studentID] = coachID

	env.svc = NewAppointmentService(env.store, env.comments, env.avail, env.dir, env.msgr, noopTx{}, zap.NewNop())
	env.svc.now = func() time.Time { return env.now }

	return env
}

func (e *apptEnv) window(offset, length time.Duration) TimeWindow {
	start := e.now.Add(offset)
	return TimeWindow{Start: start, End: start.Add(length)}
}

func (e *apptEnv) mustCreate(t *testing.T, p CreateParams) *model.Appointment {
	t.Helper()
	a, err := e.svc.Create(context.Background(), p)
	require.NoError(t, err)
	return a
}

func TestCreate_StudentBookingIsPending(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	assert.Equal(t, model.AppointmentStatusPending, a.Status)
	assert.Equal(t, coachID, a.CoachID)
	assert.Equal(t, model.AppointmentTypeRegular, a.Type)

	require.Len(t, env.msgr.events, 1)
	assert.Equal(t, EventCreated, env.msgr.events[0].Kind)
	assert.Equal(t, model.UserRoleStudent, env.msgr.events[0].Initiator)
}

func TestCreate_CoachBookingIsConfirmed(t *testing.T) {
	env := newApptEnv(t)

	cID := coachID
	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		CoachID:   &cID,
		Mode:      CreationModeCoach,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	assert.Equal(t, model.AppointmentStatusConfirmed, a.Status)
	require.Len(t, env.msgr.events, 1)
	assert.Equal(t, model.UserRoleCoach, env.msgr.events[0].Initiator)
}

func TestCreate_ConflictRejected(t *testing.T) {
	env := newApptEnv(t)

	env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Пересекается с существующей на полчаса
	_, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour+30*time.Minute, time.Hour),
	})
	assert.ErrorIs(t, err, ErrSchedulingConflict)
}

func TestCreate_BackToBackAllowed(t *testing.T) {
	env := newApptEnv(t)

	env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Начинается ровно в конец предыдущей
	_, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(4*time.Hour, time.Hour),
	})
	assert.NoError(t, err)
}

func TestCreate_CancelledDoesNotBlock(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(5*time.Hour, time.Hour),
	})
	_, err := env.svc.Cancel(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(5*time.Hour, time.Hour),
	})
	assert.NoError(t, err)
}

func TestCreate_AutoAssignsCoachBySchool(t *testing.T) {
	env := newApptEnv(t)

	schoolID := int64(7)
	newStudent := int64(3)
	env.dir.addUser(&model.User{ID: newStudent, Name: "Oleg", Role: model.UserRoleStudent, SchoolID: &schoolID})
	env.dir.schoolCoach[schoolID] = coachID

	a := env.mustCreate(t, CreateParams{
		StudentID: newStudent,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	assert.Equal(t, coachID, a.CoachID)
	require.Len(t, env.dir.assigned, 1)
	assert.Equal(t, [2]int64{newStudent, coachID}, env.dir.assigned[0])
}

func TestCreate_NoCoachAvailable(t *testing.T) {
	env := newApptEnv(t)

	lonely := int64(4)
	env.dir.addUser(&model.User{ID: lonely, Name: "Nina", Role: model.UserRoleStudent})

	_, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: lonely,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	assert.ErrorIs(t, err, ErrNoCoachAvailable)
}

func TestCreate_UnknownStudent(t *testing.T) {
	env := newApptEnv(t)

	_, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: 999,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	assert.ErrorIs(t, err, ErrStudentNotFound)
}

func TestCreate_CoachUnavailabilityBlocks(t *testing.T) {
	env := newApptEnv(t)

	start := env.now.Add(3 * time.Hour)
	env.avail.items[coachID] = []*model.Availability{{
		UserID:        coachID,
		StartTime:     start,
		EndTime:       start.Add(2 * time.Hour),
		Repeat:        model.AvailabilityRepeatOnce,
		IsUnavailable: true,
	}}

	_, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	assert.ErrorIs(t, err, ErrSchedulingConflict)
}

func TestConfirm(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	got, err := env.svc.Confirm(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, got.Status)

	// Повторное подтверждение — уже не pending
	_, err = env.svc.Confirm(context.Background(), a.ID, coachID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestConfirm_WrongCoachForbidden(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	_, err := env.svc.Confirm(context.Background(), a.ID, int64(77), nil)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestReject(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	reason := "schedule full"
	got, err := env.svc.Reject(context.Background(), a.ID, coachID, &reason)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusRejected, got.Status)
	require.NotNil(t, got.CoachNotes)
	assert.Equal(t, reason, *got.CoachNotes)

	last := env.msgr.events[len(env.msgr.events)-1]
	assert.Equal(t, EventRejected, last.Kind)
	assert.Equal(t, reason, last.Reason)
}

// staleReadStore отдаёт прочитанную копию, а затем переводит запись
// в другой статус: так выглядит переход, закоммиченный второй стороной
// между чтением и записью.
type staleReadStore struct {
	*fakeAppointmentStore
	flipTo model.AppointmentStatus
}

func (s *staleReadStore) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, err := s.fakeAppointmentStore.GetByID(ctx, id)
	if a != nil {
		s.items[id].Status = s.flipTo
	}
	return a, err
}

func TestReject_ConcurrentConfirmIsNotClobbered(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Ученик видел pending, но инструктор уже успел подтвердить
	env.svc.appointments = &staleReadStore{
		fakeAppointmentStore: env.store,
		flipTo:               model.AppointmentStatusConfirmed,
	}

	_, err := env.svc.Reject(context.Background(), a.ID, coachID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Equal(t, model.AppointmentStatusConfirmed, env.store.items[a.ID].Status)
}

func TestCancel_StudentTooLate(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Занятие через полтора часа
	env.now = env.now.Add(90 * time.Minute)

	_, err := env.svc.Cancel(context.Background(), a.ID, studentID, nil)
	assert.ErrorIs(t, err, ErrTooLateToCancel)

	// Инструктору ограничение не мешает
	got, err := env.svc.Cancel(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCancelled, got.Status)
}

func TestCancel_TerminalStates(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	_, err := env.svc.Cancel(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)

	_, err = env.svc.Cancel(context.Background(), a.ID, coachID, nil)
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestComplete(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Из pending завершить нельзя
	_, err := env.svc.Complete(context.Background(), a.ID, coachID, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidState)

	_, err = env.svc.Confirm(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)

	notes := "good progress"
	got, err := env.svc.Complete(context.Background(), a.ID, coachID, &notes, nil)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, got.Status)
	require.NotNil(t, got.CoachNotes)
	assert.Equal(t, notes, *got.CoachNotes)
}

func TestReschedule_ExcludesSelfFromConflictCheck(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	// Новое окно пересекается со старым временем самой записи
	got, err := env.svc.Reschedule(context.Background(), a.ID, coachID,
		env.window(3*time.Hour+30*time.Minute, time.Hour), nil)
	require.NoError(t, err)
	assert.Equal(t, env.now.Add(3*time.Hour+30*time.Minute), got.StartTime)

	last := env.msgr.events[len(env.msgr.events)-1]
	assert.Equal(t, EventRescheduled, last.Kind)
}

func TestReschedule_ValidatesNewWindow(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	_, err := env.svc.Reschedule(context.Background(), a.ID, coachID,
		env.window(time.Hour, time.Hour), nil)
	assert.ErrorIs(t, err, ErrInvalidTimeWindow)
}

func TestMessengerFailureDoesNotBlockTransition(t *testing.T) {
	env := newApptEnv(t)
	env.msgr.err = errors.New("chat is down")

	a, err := env.svc.Create(context.Background(), CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, a.Status)
}

func TestGetByID_OnlyParties(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	_, err := env.svc.GetByID(context.Background(), a.ID, studentID)
	assert.NoError(t, err)

	_, err = env.svc.GetByID(context.Background(), a.ID, int64(77))
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestUpdateNotes_CompletedLocked(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	_, err := env.svc.Confirm(context.Background(), a.ID, coachID, nil)
	require.NoError(t, err)
	_, err = env.svc.Complete(context.Background(), a.ID, coachID, nil, nil)
	require.NoError(t, err)

	_, err = env.svc.UpdateNotes(context.Background(), a.ID, studentID, "late note")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestComments(t *testing.T) {
	env := newApptEnv(t)

	a := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	c, err := env.svc.AddComment(context.Background(), a.ID, coachID, "bring documents")
	require.NoError(t, err)
	assert.Equal(t, model.UserRoleCoach, c.Role)
	assert.Equal(t, "Pavel", c.UserName)

	_, err = env.svc.AddComment(context.Background(), a.ID, int64(77), "hi")
	assert.ErrorIs(t, err, ErrForbidden)

	list, err := env.svc.ListComments(context.Background(), a.ID, studentID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestSlots(t *testing.T) {
	env := newApptEnv(t)

	// now = 10:00, бронь на 13:00-14:00
	env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})

	blockStart := time.Date(2026, 3, 2, 16, 0, 0, 0, time.UTC)
	env.avail.items[coachID] = []*model.Availability{{
		UserID:        coachID,
		StartTime:     blockStart,
		EndTime:       blockStart.Add(time.Hour),
		Repeat:        model.AvailabilityRepeatOnce,
		IsUnavailable: true,
	}}

	slots, err := env.svc.Slots(context.Background(), SlotsParams{
		Date:        time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC),
		RequesterID: studentID,
	})
	require.NoError(t, err)
	// 09:00-18:00 с шагом 30 минут
	require.Len(t, slots, 18)

	byStart := make(map[string]Slot, len(slots))
	for _, s := range slots {
		byStart[s.StartTime.Format("15:04")] = s
	}

	assert.False(t, byStart["09:00"].IsAvailable)
	assert.Equal(t, "Expired", byStart["09:00"].Reason)

	assert.False(t, byStart["13:00"].IsAvailable)
	assert.Equal(t, "Booked", byStart["13:00"].Reason)
	assert.Equal(t, "Booked", byStart["13:30"].Reason)

	assert.False(t, byStart["16:00"].IsAvailable)
	assert.Equal(t, "Unavailable", byStart["16:30"].Reason)

	assert.True(t, byStart["14:00"].IsAvailable)
	assert.Empty(t, byStart["14:00"].Reason)
}

func TestStats(t *testing.T) {
	env := newApptEnv(t)

	a1 := env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(3*time.Hour, time.Hour),
	})
	env.mustCreate(t, CreateParams{
		StudentID: studentID,
		Mode:      CreationModeStudent,
		Window:    env.window(5*time.Hour, time.Hour),
	})
	_, err := env.svc.Confirm(context.Background(), a1.ID, coachID, nil)
	require.NoError(t, err)

	st, err := env.svc.Stats(context.Background(), studentID, model.UserRoleStudent)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Total)
	assert.Equal(t, 1, st.Confirmed)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, 2, st.ThisMonth)
}
