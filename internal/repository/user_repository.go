package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

// UserRepository читает пользователей и связки ученик-инструктор
type UserRepository struct {
	*base.Repository
}

// NewUserRepository создаёт новый репозиторий
func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{Repository: base.NewRepository(pool)}
}

// GetByID получает пользователя по ID
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*model.User, error) {
	query := `
		SELECT id, name, role, school_id, created_at
		FROM users
		WHERE id = $1
	`

	u := &model.User{}
	err := r.DB(ctx).QueryRow(ctx, query, id).Scan(&u.ID, &u.Name, &u.Role, &u.SchoolID, &u.CreatedAt)
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by id: %w", err)
	}

	return u, nil
}

// GetCoachForStudent получает инструктора по активной связке ученика
func (r *UserRepository) GetCoachForStudent(ctx context.Context, studentID int64) (*model.User, error) {
	query := `
		SELECT u.id, u.name, u.role, u.school_id, u.created_at
		FROM coach_student_relations rel
		JOIN users u ON u.id = rel.coach_id
		WHERE rel.student_id = $1 AND rel.status = 'active'
		LIMIT 1
	`

	u := &model.User{}
	err := r.DB(ctx).QueryRow(ctx, query, studentID).Scan(&u.ID, &u.Name, &u.Role, &u.SchoolID, &u.CreatedAt)
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get coach for student: %w", err)
	}

	return u, nil
}

// FindCoachBySchool получает любого инструктора автошколы
func (r *UserRepository) FindCoachBySchool(ctx context.Context, schoolID int64) (*model.User, error) {
	query := `
		SELECT id, name, role, school_id, created_at
		FROM users
		WHERE role = 'coach' AND school_id = $1
		LIMIT 1
	`

	u := &model.User{}
	err := r.DB(ctx).QueryRow(ctx, query, schoolID).Scan(&u.ID, &u.Name, &u.Role, &u.SchoolID, &u.CreatedAt)
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find coach by school: %w", err)
	}

	return u, nil
}

// UpsertRelation привязывает ученика к инструктору; существующая
// связка той же пары просто активируется
func (r *UserRepository) UpsertRelation(ctx context.Context, studentID, coachID int64) error {
	query := `
		INSERT INTO coach_student_relations (student_id, coach_id, status)
		VALUES ($1, $2, 'active')
		ON CONFLICT (student_id, coach_id) DO UPDATE SET status = 'active'
	`

	if _, err := r.DB(ctx).Exec(ctx, query, studentID, coachID); err != nil {
		return fmt.Errorf("upsert coach-student relation: %w", err)
	}

	return nil
}
