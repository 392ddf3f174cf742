package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// NotificationStore доступ к уведомлениям
type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error)
}

const defaultNotificationLimit = 50

// NotificationService системные уведомления пользователей
type NotificationService struct {
	store  NotificationStore
	logger *zap.Logger
}

func NewNotificationService(store NotificationStore, logger *zap.Logger) *NotificationService {
	return &NotificationService{store: store, logger: logger}
}

// SendSystemNotification сохраняет системное уведомление пользователю
func (s *NotificationService) SendSystemNotification(ctx context.Context, userID int64, title, content string) error {
	n := &model.Notification{
		UserID:  userID,
		Kind:    model.NotificationKindSystem,
		Title:   title,
		Content: content,
	}
	return s.store.Create(ctx, n)
}

// ListForUser получает последние уведомления пользователя
func (s *NotificationService) ListForUser(ctx context.Context, userID int64, limit int) ([]*model.Notification, error) {
	if limit <= 0 {
		limit = defaultNotificationLimit
	}
	return s.store.ListForUser(ctx, userID, limit)
}
