package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// ConversationStore доступ к диалогам и сообщениям
type ConversationStore interface {
	GetOrCreateConversation(ctx context.Context, coachID, studentID int64) (*model.Conversation, error)
	CreateMessage(ctx context.Context, m *model.Message) error
}

// ChatService кладёт события записей в диалог пары в виде
// сообщений-карточек: содержимое — ID занятия, клиент резолвит
// карточку сам.
type ChatService struct {
	store  ConversationStore
	logger *zap.Logger
}

func NewChatService(store ConversationStore, logger *zap.Logger) *ChatService {
	return &ChatService{store: store, logger: logger}
}

// SendAppointmentMessage отправляет карточку занятия второй стороне
func (s *ChatService) SendAppointmentMessage(ctx context.Context, ev AppointmentEvent) error {
	a := ev.Appointment

	conv, err := s.store.GetOrCreateConversation(ctx, a.CoachID, a.StudentID)
	if err != nil {
		return err
	}

	senderID := a.StudentID
	if ev.Initiator == model.UserRoleCoach {
		senderID = a.CoachID
	}
	receiverID := a.OtherParty(senderID)

	m := &model.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		ReceiverID:     receiverID,
		Content:        a.ID.String(),
		Kind:           model.MessageKindAppointment,
	}
	if err := s.store.CreateMessage(ctx, m); err != nil {
		return fmt.Errorf("send appointment message: %w", err)
	}

	s.logger.Debug("Appointment message sent",
		zap.String("appointment_id", a.ID.String()),
		zap.String("event", string(ev.Kind)),
		zap.Int64("receiver_id", receiverID),
	)

	return nil
}
