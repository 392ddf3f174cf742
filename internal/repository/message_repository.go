package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
	"github.com/avtoshkola/lesson-scheduler/internal/repository/base"
)

// MessageRepository управляет диалогами и сообщениями
type MessageRepository struct {
	*base.Repository
}

// NewMessageRepository создаёт новый репозиторий
func NewMessageRepository(pool *pgxpool.Pool) *MessageRepository {
	return &MessageRepository{Repository: base.NewRepository(pool)}
}

// GetOrCreateConversation возвращает диалог пары инструктор-ученик,
// при отсутствии создаёт его
func (r *MessageRepository) GetOrCreateConversation(ctx context.Context, coachID, studentID int64) (*model.Conversation, error) {
	query := `
		INSERT INTO conversations (coach_id, student_id)
		VALUES ($1, $2)
		ON CONFLICT (coach_id, student_id) DO UPDATE SET coach_id = EXCLUDED.coach_id
		RETURNING id, coach_id, student_id, created_at
	`

	c := &model.Conversation{}
	err := r.DB(ctx).QueryRow(ctx, query, coachID, studentID).Scan(&c.ID, &c.CoachID, &c.StudentID, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}

	return c, nil
}

// CreateMessage сохраняет сообщение в диалоге
func (r *MessageRepository) CreateMessage(ctx context.Context, m *model.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, receiver_id, content, kind)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`

	err := r.DB(ctx).QueryRow(
		ctx, query,
		m.ConversationID,
		m.SenderID,
		m.ReceiverID,
		m.Content,
		m.Kind,
	).Scan(&m.ID, &m.CreatedAt)

	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}

	return nil
}
