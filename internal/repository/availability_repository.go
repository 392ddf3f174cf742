package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

// AvailabilityRepository читает окна личной недоступности
type AvailabilityRepository struct {
	*base.Repository
}

// NewAvailabilityRepository создаёт новый репозиторий
func NewAvailabilityRepository(pool *pgxpool.Pool) *AvailabilityRepository {
	return &AvailabilityRepository{Repository: base.NewRepository(pool)}
}

// ListByUser получает все окна пользователя
func (r *AvailabilityRepository) ListByUser(ctx context.Context, userID int64) ([]*model.Availability, error) {
	query := `
		SELECT id, user_id, start_time, end_time, repeat, is_unavailable, created_at
		FROM availabilities
		WHERE user_id = $1
		ORDER BY start_time ASC
	`

	rows, err := r.DB(ctx).Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list availabilities: %w", err)
	}
	defer rows.Close()

	var items []*model.Availability
	for rows.Next() {
		a := &model.Availability{}
		err := rows.Scan(&a.ID, &a.UserID, &a.StartTime, &a.EndTime, &a.Repeat, &a.IsUnavailable, &a.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan availability: %w", err)
		}
		items = append(items, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate availabilities: %w", err)
	}

	return items, nil
}
