package service

import (
	"context"

	"github.com/avtoshkola/lesson-scheduler/internal/model"
)

// UserStore доступ к пользователям
type UserStore interface {
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetCoachForStudent(ctx context.Context, studentID int64) (*model.User, error)
	FindCoachBySchool(ctx context.Context, schoolID int64) (*model.User, error)
	UpsertRelation(ctx context.Context, studentID, coachID int64) error
}

// UserService справочник пользователей и связок ученик-инструктор
type UserService struct {
	store UserStore
}

func NewUserService(store UserStore) *UserService {
	return &UserService{store: store}
}

func (s *UserService) FindUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetByID(ctx, id)
}

func (s *UserService) FindCoachForStudent(ctx context.Context, studentID int64) (*model.User, error) {
	return s.store.GetCoachForStudent(ctx, studentID)
}

func (s *UserService) FindCoachBySchool(ctx context.Context, schoolID int64) (*model.User, error) {
	return s.store.FindCoachBySchool(ctx, schoolID)
}

func (s *UserService) AssignStudentToCoach(ctx context.Context, studentID, coachID int64) error {
	return s.store.UpsertRelation(ctx, studentID, coachID)
}
