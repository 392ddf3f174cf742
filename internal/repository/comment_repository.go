package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

// CommentRepository хранит комментарии к занятиям
type CommentRepository struct {
	*base.Repository
}

// NewCommentRepository создаёт новый репозиторий
func NewCommentRepository(pool *pgxpool.Pool) *CommentRepository {
	return &CommentRepository{Repository: base.NewRepository(pool)}
}

// Create сохраняет комментарий
func (r *CommentRepository) Create(ctx context.Context, c *model.AppointmentComment) error {
	query := `
		INSERT INTO appointment_comments (appointment_id, user_id, user_name, role, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		c.AppointmentID,
		c.UserID,
		c.UserName,
		c.Role,
		c.Content,
	).Scan(&c.ID, &c.CreatedAt)

	if err != nil {
		return fmt.Errorf("create appointment comment: %w", err)
	}

	return nil
}

// ListByAppointment получает комментарии занятия, свежие первыми
func (r *CommentRepository) ListByAppointment(ctx context.Context, appointmentID uuid.UUID) ([]*model.AppointmentComment, error) {
	query := `
		SELECT id, appointment_id, user_id, user_name, role, content, created_at
		FROM appointment_comments
		WHERE appointment_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.DB(ctx).Query(ctx, query, appointmentID)
	if err != nil {
		return nil, fmt.Errorf("list appointment comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.AppointmentComment
	for rows.Next() {
		c := &model.AppointmentComment{}
		err := rows.Scan(&c.ID, &c.AppointmentID, &c.UserID, &c.UserName, &c.Role, &c.Content, &c.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan appointment comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointment comments: %w", err)
	}

	return comments, nil
}
