package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"
)

const leaderboardSize = 100

type UserService struct {
	repo UserRepository
}

func NewUserService(repo UserRepository) *UserService {
	return &UserService{
		repo: repo,
	}
}

func (s *UserService) RegisterUser(ctx context.Context, user *model.User) error {
	if user.TelegramID <= 0 {
		return ErrUnauthenticated
	}
	if user.Role == "" {
		user.Role = model.RoleStudent
	}
	if !user.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalidInput, user.Role)
	}
	if user.RegistrationDate.IsZero() {
		user.RegistrationDate = time.Now().UTC()
	}
	if user.AuthDate.IsZero() {
		user.AuthDate = user.RegistrationDate
	}

	err := s.repo.CreateUser(ctx, user)
	if err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to register user: %w", err)
	}

	return nil
}

func (s *UserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by telegram ID: %w", err)
	}
	return user, nil
}

func (s *UserService) GetProfile(ctx context.Context, telegramID int64) (*model.Profile, error) {
	user, err := s.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	balance, err := s.repo.GetBalance(ctx, telegramID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	user.Points = balance.Points
	return &model.Profile{User: user, Gems: balance.Gems}, nil
}

func (s *UserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	users, err := s.repo.GetTopUsers(ctx, leaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}
	return users, nil
}
