package repository

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

const appointmentColumns = `id, student_id, coach_id, start_time, end_time, status, type, location, notes, coach_notes, student_notes, created_at, updated_at`

// AppointmentRepository управляет записями на занятия в базе данных
type AppointmentRepository struct {
	*base.Repository
}

// NewAppointmentRepository создаёт новый репозиторий
func NewAppointmentRepository(pool *pgxpool.Pool) *AppointmentRepository {
	return &AppointmentRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новую запись на занятие
func (r *AppointmentRepository) Create(ctx context.Context, a *model.Appointment) error {
	query := `
		INSERT INTO appointments (id, student_id, coach_id, start_time, end_time, status, type, location, notes, coach_notes, student_notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING created_at, updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		a.ID,
		a.StudentID,
		a.CoachID,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Type,
		a.Location,
		a.Notes,
		a.CoachNotes,
		a.StudentNotes,
	).Scan(&a.CreatedAt, &a.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create appointment: %w", err)
	}

	return nil
}

// GetByID получает запись по ID
func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	a, err := scanAppointment(r.DB(ctx).QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get appointment by id: %w", err)
	}

	return a, nil
}

// ListForUser получает занятия пользователя с фильтрами,
// отсортированные по времени начала
func (r *AppointmentRepository) ListForUser(ctx context.Context, f model.AppointmentFilter) ([]*model.Appointment, error) {
	userColumn := "student_id"
	if f.Role == model.UserRoleCoach {
		userColumn = "coach_id"
	}

	qb := sq.Select(appointmentColumns).
		From("appointments").
		Where(sq.Eq{userColumn: f.UserID}).
		OrderBy("start_time ASC").
		PlaceholderFormat(sq.Dollar)

	if f.From != nil {
		qb = qb.Where(sq.GtOrEq{"start_time": *f.From})
	}
	if f.To != nil {
		qb = qb.Where(sq.LtOrEq{"start_time": *f.To})
	}
	if f.Status != nil {
		qb = qb.Where(sq.Eq{"status": *f.Status})
	}

	query, args, err := qb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list query: %w", err)
	}

	rows, err := r.DB(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments for user: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// FindConflicting ищет пересекающуюся незавершённую запись инструктора.
// Интервалы полуоткрытые: existing.start < end AND existing.end > start.
// excludeID исключает саму запись при подтверждении/переносе.
func (r *AppointmentRepository) FindConflicting(ctx context.Context, coachID int64, start, end time.Time, excludeID *uuid.UUID) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE coach_id = $1
		  AND status IN ('pending', 'confirmed')
		  AND start_time < $2
		  AND end_time > $3
		  AND ($4::uuid IS NULL OR id <> $4)
		LIMIT 1
	`

	a, err := scanAppointment(r.DB(ctx).QueryRow(ctx, query, coachID, end, start, excludeID))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find conflicting appointment: %w", err)
	}

	return a, nil
}

// FindExact ищет запись с точно такими же участниками и временем.
// Используется генератором повторяющихся занятий как защита от дублей.
func (r *AppointmentRepository) FindExact(ctx context.Context, coachID, studentID int64, start, end time.Time) (*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE coach_id = $1 AND student_id = $2 AND start_time = $3 AND end_time = $4
		LIMIT 1
	`

	a, err := scanAppointment(r.DB(ctx).QueryRow(ctx, query, coachID, studentID, start, end))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find exact appointment: %w", err)
	}

	return a, nil
}

// ListForCoachBetween получает занятия инструктора за период
func (r *AppointmentRepository) ListForCoachBetween(ctx context.Context, coachID int64, from, to time.Time) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE coach_id = $1 AND start_time >= $2 AND start_time <= $3
		ORDER BY start_time ASC
	`

	rows, err := r.DB(ctx).Query(ctx, query, coachID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list appointments for coach: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// Update сохраняет изменяемые поля записи и обновляет updated_at.
// Запись перезаписывается только из ожидаемого статуса: конкурентный
// переход, успевший закоммититься между чтением и записью, делает
// условие ложным. Возвращает false, если строка не совпала.
func (r *AppointmentRepository) Update(ctx context.Context, a *model.Appointment, expected model.AppointmentStatus) (bool, error) {
	query := `
		UPDATE appointments
		SET start_time = $2, end_time = $3, status = $4, location = $5,
		    notes = $6, coach_notes = $7, student_notes = $8, updated_at = now()
		WHERE id = $1 AND status = $9
		RETURNING updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		a.ID,
		a.StartTime,
		a.EndTime,
		a.Status,
		a.Location,
		a.Notes,
		a.CoachNotes,
		a.StudentNotes,
		expected,
	).Scan(&a.UpdatedAt)

	if base.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update appointment: %w", err)
	}

	return true, nil
}

// ListConfirmedEndedBefore получает подтверждённые занятия,
// закончившиеся до cutoff, партиями по limit
func (r *AppointmentRepository) ListConfirmedEndedBefore(ctx context.Context, cutoff time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'confirmed' AND end_time <= $1
		ORDER BY end_time ASC
		LIMIT $2
	`

	rows, err := r.DB(ctx).Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("list confirmed ended appointments: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// ListStalePending получает зависшие pending-записи: созданные до
// createdBefore либо с уже наступившим временем начала
func (r *AppointmentRepository) ListStalePending(ctx context.Context, createdBefore, now time.Time, limit int) ([]*model.Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE status = 'pending' AND (created_at <= $1 OR start_time <= $2)
		ORDER BY created_at ASC
		LIMIT $3
	`

	rows, err := r.DB(ctx).Query(ctx, query, createdBefore, now, limit)
	if err != nil {
		return nil, fmt.Errorf("list stale pending appointments: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

// UpdateStatuses массово переводит записи из статуса from в статус to.
// Записи, успевшие уйти из from между выборкой и обновлением,
// пропускаются.
func (r *AppointmentRepository) UpdateStatuses(ctx context.Context, ids []uuid.UUID, from, to model.AppointmentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	raw := make([]string, 0, len(ids))
	for _, id := range ids {
		raw = append(raw, id.String())
	}

	query := `
		UPDATE appointments
		SET status = $1, updated_at = now()
		WHERE id = ANY($3::uuid[]) AND status = $2
	`

	tag, err := r.DB(ctx).Exec(ctx, query, to, from, raw)
	if err != nil {
		return 0, fmt.Errorf("update appointment statuses: %w", err)
	}

	return tag.RowsAffected(), nil
}

func scanAppointment(row pgx.Row) (*model.Appointment, error) {
	a := &model.Appointment{}
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.CoachID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.Type,
		&a.Location,
		&a.Notes,
		&a.CoachNotes,
		&a.StudentNotes,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func collectAppointments(rows pgx.Rows) ([]*model.Appointment, error) {
	var appointments []*model.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appointments = append(appointments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appointments, nil
}
