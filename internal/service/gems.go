package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"

	"github.com/google/uuid"
)

// ConversionRate is how many points buy one gem.
const ConversionRate = 100

type GemService struct {
	repo     GemRepository
	notifier Notifier
	rate     int64
}

func NewGemService(repo GemRepository, notifier Notifier, rate int64) *GemService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if rate <= 0 {
		rate = ConversionRate
	}
	return &GemService{
		repo:     repo,
		notifier: notifier,
		rate:     rate,
	}
}

func (s *GemService) Rate() int64 {
	return s.rate
}

// Convert exchanges whole conversion units of points for gems. Points left
// over below one unit stay on the balance.
func (s *GemService) Convert(ctx context.Context, userID, points int64) (*model.ConversionResult, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	if points < s.rate {
		return nil, ErrBelowMinimum
	}

	gems := points / s.rate
	pointsUsed := gems * s.rate

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	if balance.Points < pointsUsed {
		return nil, ErrInsufficientPoints
	}

	result, err := s.repo.ConvertPointsToGems(ctx, userID, pointsUsed, gems)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientPoints):
			return nil, ErrInsufficientPoints
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to convert points: %w", err)
	}

	s.notifier.Notify(userID, model.NewEvent(model.EventGemsConverted, map[string]any{
		"gems_earned": result.GemsEarned,
		"points_used": result.PointsUsed,
	}))

	return result, nil
}

func (s *GemService) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	balance, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

func (s *GemService) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.GemTransaction, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	l, o := pageBounds(limit, offset)

	txs, err := s.repo.ListGemTransactions(ctx, userID, l, o)
	if err != nil {
		return nil, fmt.Errorf("failed to list gem transactions: %w", err)
	}
	return txs, nil
}

func (s *GemService) ListPointTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.PointTransaction, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	l, o := pageBounds(limit, offset)

	txs, err := s.repo.ListPointTransactions(ctx, userID, l, o)
	if err != nil {
		return nil, fmt.Errorf("failed to list point transactions: %w", err)
	}
	return txs, nil
}

// AdjustGems grants (gems > 0) or deducts (gems < 0) gems on behalf of an
// administrator.
func (s *GemService) AdjustGems(ctx context.Context, actorID, userID, gems int64, description string) (*model.GemTransaction, int64, error) {
	if gems == 0 {
		return nil, 0, fmt.Errorf("%w: gems must not be zero", ErrInvalidInput)
	}

	txType := model.GemTxAdminGrant
	if gems < 0 {
		txType = model.GemTxAdminDeduct
	}

	description = strings.TrimSpace(description)
	if description == "" {
		description = string(txType)
	}

	t := &model.GemTransaction{
		UserID:      userID,
		Type:        txType,
		Gems:        gems,
		Description: description,
		Status:      model.TxStatusCompleted,
		Metadata:    map[string]any{"actor_id": actorID},
	}

	balance, err := s.repo.AdjustGems(ctx, t)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrInsufficientGems):
			return nil, 0, ErrInsufficientGems
		case errors.Is(err, repository.ErrNotFound):
			return nil, 0, ErrUserNotFound
		}
		return nil, 0, fmt.Errorf("failed to adjust gems: %w", err)
	}

	s.notifier.Notify(userID, model.NewEvent(model.EventGemsAdjusted, map[string]any{
		"gems":        gems,
		"new_balance": balance,
	}))

	return t, balance, nil
}

// UpdateTransactionStatus finalizes a pending transaction.
func (s *GemService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error {
	if !status.Valid() || status == model.TxStatusPending {
		return fmt.Errorf("%w: status %q", ErrInvalidInput, status)
	}

	err := s.repo.UpdateGemTransactionStatus(ctx, id, status)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return ErrTransactionNotFound
		case errors.Is(err, repository.ErrTransactionFinal):
			return ErrTransactionFinal
		}
		return fmt.Errorf("failed to update transaction status: %w", err)
	}
	return nil
}
