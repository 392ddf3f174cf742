package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// Фейки хранилищ для тестов сервисного слоя

type fakeAppointmentStore struct {
	items map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentStore() *fakeAppointmentStore {
	return &fakeAppointmentStore{items: make(map[uuid.UUID]*model.Appointment)}
}

func (s *fakeAppointmentStore) Create(_ context.Context, a *model.Appointment) error {
	cp := *a
	s.items[a.ID] = &cp
	return nil
}

func (s *fakeAppointmentStore) GetByID(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	a, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (s *fakeAppointmentStore) ListForUser(_ context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.items {
		if f.Role == model.UserRoleCoach {
			if a.CoachID != f.UserID {
				continue
			}
		} else if a.StudentID != f.UserID {
			continue
		}
		if f.From != nil && a.StartTime.Before(*f.From) {
			continue
		}
		if f.To != nil && a.StartTime.After(*f.To) {
			continue
		}
		if f.Status != nil && a.Status != *f.Status {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	sortByStart(out)
	return out, nil
}

func (s *fakeAppointmentStore) FindConflicting(_ context.Context, coachID int64, start, end time.Time, excludeID *uuid.UUID) (*model.Appointment, error) {
	for _, a := range s.items {
		if a.CoachID != coachID {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.Status != model.AppointmentStatusPending && a.Status != model.AppointmentStatusConfirmed {
			continue
		}
		if a.StartTime.Before(end) && a.EndTime.After(start) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeAppointmentStore) FindExact(_ context.Context, coachID, studentID int64, start, end time.Time) (*model.Appointment, error) {
	for _, a := range s.items {
		if a.CoachID == coachID && a.StudentID == studentID &&
			a.StartTime.Equal(start) && a.EndTime.Equal(end) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeAppointmentStore) ListForCoachBetween(_ context.Context, coachID int64, from, to time.Time) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.items {
		if a.CoachID == coachID && a.StartTime.Before(to) && a.EndTime.After(from) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	return out, nil
}

func (s *fakeAppointmentStore) Update(_ context.Context, a *model.Appointment, expected model.AppointmentStatus) (bool, error) {
	cur, ok := s.items[a.ID]
	if !ok || cur.Status != expected {
		return false, nil
	}
	cp := *a
	s.items[a.ID] = &cp
	return true, nil
}

func (s *fakeAppointmentStore) ListConfirmedEndedBefore(_ context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.items {
		if a.Status == model.AppointmentStatusConfirmed && !a.EndTime.After(cutoff) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAppointmentStore) ListStalePending(_ context.Context, createdBefore, now time.Time, limit int) ([]*model.Appointment, error) {
	var out []*model.Appointment
	for _, a := range s.items {
		if a.Status != model.AppointmentStatusPending {
			continue
		}
		if !a.CreatedAt.After(createdBefore) || !a.StartTime.After(now) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortByStart(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeAppointmentStore) UpdateStatuses(_ context.Context, ids []uuid.UUID, from, to model.AppointmentStatus) (int64, error) {
	var n int64
	for _, id := range ids {
		if a, ok := s.items[id]; ok && a.Status == from {
			a.Status = to
			n++
		}
	}
	return n, nil
}

func sortByStart(items []*model.Appointment) {
	sort.Slice(items, func(i, j int) bool {
		return items[i].StartTime.Before(items[j].StartTime)
	})
}

type fakeRuleStore struct {
	items map[uuid.UUID]*model.RecurrenceRule
}

func newFakeRuleStore() *fakeRuleStore {
	return &fakeRuleStore{items: make(map[uuid.UUID]*model.RecurrenceRule)}
}

func (s *fakeRuleStore) Create(_ context.Context, rule *model.RecurrenceRule) error {
	cp := *rule
	s.items[rule.ID] = &cp
	return nil
}

func (s *fakeRuleStore) GetByID(_ context.Context, id uuid.UUID) (*model.RecurrenceRule, error) {
	r, ok := s.items[id]
	if !ok {
		return nil, nil
	}
	cp := *r
	return &cp, nil
}

func (s *fakeRuleStore) ListActive(_ context.Context) ([]*model.RecurrenceRule, error) {
	var out []*model.RecurrenceRule
	for _, r := range s.items {
		if r.IsActive {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeRuleStore) ListByCoach(_ context.Context, coachID int64) ([]*model.RecurrenceRule, error) {
	var out []*model.RecurrenceRule
	for _, r := range s.items {
		if r.CoachID == coachID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *fakeRuleStore) Deactivate(_ context.Context, id uuid.UUID) error {
	if r, ok := s.items[id]; ok {
		r.IsActive = false
	}
	return nil
}

func (s *fakeRuleStore) AdvanceLastGeneratedAt(_ context.Context, id uuid.UUID, t time.Time) error {
	r, ok := s.items[id]
	if !ok {
		return nil
	}
	// Курсор двигается только вперёд
	if r.LastGeneratedAt == nil || r.LastGeneratedAt.Before(t) {
		tt := t
		r.LastGeneratedAt = &tt
	}
	return nil
}

type fakeCommentStore struct {
	items []*model.AppointmentComment
}

func (s *fakeCommentStore) Create(_ context.Context, c *model.AppointmentComment) error {
	cp := *c
	s.items = append(s.items, &cp)
	return nil
}

func (s *fakeCommentStore) ListByAppointment(_ context.Context, appointmentID uuid.UUID) ([]*model.AppointmentComment, error) {
	var out []*model.AppointmentComment
	for _, c := range s.items {
		if c.AppointmentID == appointmentID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

type fakeAvailabilityStore struct {
	items map[int64][]*model.Availability
}

func newFakeAvailabilityStore() *fakeAvailabilityStore {
	return &fakeAvailabilityStore{items: make(map[int64][]*model.Availability)}
}

func (s *fakeAvailabilityStore) ListByUser(_ context.Context, userID int64) ([]*model.Availability, error) {
	return s.items[userID], nil
}

type fakeDirectory struct {
	users       map[int64]*model.User
	coachOf     map[int64]int64 // student -> coach
	schoolCoach map[int64]int64 // school -> coach
	assigned    [][2]int64
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		users:       make(map[int64]*model.User),
		coachOf:     make(map[int64]int64),
		schoolCoach: make(map[int64]int64),
	}
}

func (d *fakeDirectory) addUser(u *model.User) {
	d.users[u.ID] = u
}

func (d *fakeDirectory) FindUser(_ context.Context, id int64) (*model.User, error) {
	return d.users[id], nil
}

func (d *fakeDirectory) FindCoachForStudent(_ context.Context, studentID int64) (*model.User, error) {
	coachID, ok := d.coachOf[studentID]
	if !ok {
		return nil, nil
	}
	return d.users[coachID], nil
}

func (d *fakeDirectory) FindCoachBySchool(_ context.Context, schoolID int64) (*model.User, error) {
	coachID, ok := d.schoolCoach[schoolID]
	if !ok {
		return nil, nil
	}
	return d.users[coachID], nil
}

func (d *fakeDirectory) AssignStudentToCoach(_ context.Context, studentID, coachID int64) error {
	d.coachOf[studentID] = coachID
	d.assigned = append(d.assigned, [2]int64{studentID, coachID})
	return nil
}

type fakeMessenger struct {
	events []AppointmentEvent
	err    error
}

func (m *fakeMessenger) SendAppointmentMessage(_ context.Context, ev AppointmentEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, ev)
	return nil
}

type sentNotification struct {
	UserID  int64
	Title   string
	Content string
}

type fakeNotifier struct {
	sent []sentNotification
	err  error
}

func (n *fakeNotifier) SendSystemNotification(_ context.Context, userID int64, title, content string) error {
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, sentNotification{UserID: userID, Title: title, Content: content})
	return nil
}

// noopTx транзакций нет, функция выполняется как есть
type noopTx struct{}

func (noopTx) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func (noopTx) DoSerializable(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}
