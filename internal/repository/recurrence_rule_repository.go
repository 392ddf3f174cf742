package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

const ruleColumns = `id, student_id, coach_id, start_time, end_time, repeat, is_active, last_generated_at, created_at, updated_at`

// RecurrenceRuleRepository управляет шаблонами повторяющихся занятий
type RecurrenceRuleRepository struct {
	*base.Repository
}

// NewRecurrenceRuleRepository создаёт новый репозиторий
func NewRecurrenceRuleRepository(pool *pgxpool.Pool) *RecurrenceRuleRepository {
	return &RecurrenceRuleRepository{Repository: base.NewRepository(pool)}
}

// Create создаёт новый шаблон
func (r *RecurrenceRuleRepository) Create(ctx context.Context, rule *model.RecurrenceRule) error {
	query := `
		INSERT INTO appointment_recurrence_rules (id, student_id, coach_id, start_time, end_time, repeat, is_active, last_generated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		rule.ID,
		rule.StudentID,
		rule.CoachID,
		rule.StartTime,
		rule.EndTime,
		rule.Repeat,
		rule.IsActive,
		rule.LastGeneratedAt,
	).Scan(&rule.CreatedAt, &rule.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create recurrence rule: %w", err)
	}

	return nil
}

// GetByID получает шаблон по ID
func (r *RecurrenceRuleRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.RecurrenceRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM appointment_recurrence_rules WHERE id = $1`

	rule, err := scanRule(r.DB(ctx).QueryRow(ctx, query, id))
	if base.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get recurrence rule by id: %w", err)
	}

	return rule, nil
}

// ListActive получает все активные шаблоны
func (r *RecurrenceRuleRepository) ListActive(ctx context.Context) ([]*model.RecurrenceRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM appointment_recurrence_rules
		WHERE is_active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.DB(ctx).Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list active recurrence rules: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// ListByCoach получает все шаблоны инструктора
func (r *RecurrenceRuleRepository) ListByCoach(ctx context.Context, coachID int64) ([]*model.RecurrenceRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM appointment_recurrence_rules
		WHERE coach_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.DB(ctx).Query(ctx, query, coachID)
	if err != nil {
		return nil, fmt.Errorf("list recurrence rules by coach: %w", err)
	}
	defer rows.Close()

	return collectRules(rows)
}

// Deactivate выключает шаблон; записи он больше не порождает
func (r *RecurrenceRuleRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE appointment_recurrence_rules
		SET is_active = FALSE, updated_at = now()
		WHERE id = $1
	`

	tag, err := r.DB(ctx).Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("deactivate recurrence rule: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("recurrence rule not found")
	}

	return nil
}

// AdvanceLastGeneratedAt двигает high-water mark только вперёд
func (r *RecurrenceRuleRepository) AdvanceLastGeneratedAt(ctx context.Context, id uuid.UUID, t time.Time) error {
	query := `
		UPDATE appointment_recurrence_rules
		SET last_generated_at = $2, updated_at = now()
		WHERE id = $1 AND (last_generated_at IS NULL OR last_generated_at < $2)
	`

	if _, err := r.DB(ctx).Exec(ctx, query, id, t); err != nil {
		return fmt.Errorf("advance last_generated_at: %w", err)
	}

	return nil
}

func scanRule(row pgx.Row) (*model.RecurrenceRule, error) {
	rule := &model.RecurrenceRule{}
	err := row.Scan(
		&rule.ID,
		&rule.StudentID,
		&rule.CoachID,
		&rule.StartTime,
		&rule.EndTime,
		&rule.Repeat,
		&rule.IsActive,
		&rule.LastGeneratedAt,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return rule, nil
}

func collectRules(rows pgx.Rows) ([]*model.RecurrenceRule, error) {
	var rules []*model.RecurrenceRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurrence rule: %w", err)
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recurrence rules: %w", err)
	}
	return rules, nil
}
