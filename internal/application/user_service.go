package application

import (
	"context"
	"fmt"

	"github.com/jinho7/concert-hub/internal/domain/user"
)

// UserService はユーザーの登録と照会を提供する
type UserService struct {
	userRepo user.Repository
}

func NewUserService(userRepo user.Repository) *UserService {
	return &UserService{userRepo: userRepo}
}

type RegisterUserInput struct {
	Name        string
	Email       string
	PhoneNumber string
}

func (s *UserService) RegisterUser(ctx context.Context, input RegisterUserInput) (*user.User, error) {
	u := user.NewUser(input.Name, input.Email, input.PhoneNumber)
	if err := u.Validate(); err != nil {
		return nil, fmt.Errorf("バリデーションエラー: %w", err)
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.userRepo.GetByID(ctx, id)
}
