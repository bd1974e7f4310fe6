package service

import (
	"context"
	"testing"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"
	"edu_rewards/internal/service/mocks"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func TestGemService_Convert(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name           string
		userID         int64
		points         int64
		mockSetup      func(repo *mocks.MockGemRepository, n *mocks.MockNotifier)
		expectedResult *model.ConversionResult
		expectedError  error
	}{
		{
			name:          "Unauthenticated",
			userID:        0,
			points:        500,
			mockSetup:     func(*mocks.MockGemRepository, *mocks.MockNotifier) {},
			expectedError: ErrUnauthenticated,
		},
		{
			name:          "Below minimum",
			userID:        42,
			points:        99,
			mockSetup:     func(*mocks.MockGemRepository, *mocks.MockNotifier) {},
			expectedError: ErrBelowMinimum,
		},
		{
			name:   "Insufficient points",
			userID: 42,
			points: 300,
			mockSetup: func(repo *mocks.MockGemRepository, _ *mocks.MockNotifier) {
				repo.On("GetBalance", mock.Anything, int64(42)).Return(&model.Balance{UserID: 42, Points: 250}, nil)
			},
			expectedError: ErrInsufficientPoints,
		},
		{
			name:   "Balance changed before debit",
			userID: 42,
			points: 200,
			mockSetup: func(repo *mocks.MockGemRepository, _ *mocks.MockNotifier) {
				repo.On("GetBalance", mock.Anything, int64(42)).Return(&model.Balance{UserID: 42, Points: 250}, nil)
				repo.On("ConvertPointsToGems", mock.Anything, int64(42), int64(200), int64(2)).
					Return(nil, repository.ErrInsufficientPoints)
			},
			expectedError: ErrInsufficientPoints,
		},
		{
			name:   "Unknown user",
			userID: 42,
			points: 200,
			mockSetup: func(repo *mocks.MockGemRepository, _ *mocks.MockNotifier) {
				repo.On("GetBalance", mock.Anything, int64(42)).Return(nil, repository.ErrNotFound)
			},
			expectedError: ErrUserNotFound,
		},
		{
			name:   "Remainder stays on the balance",
			userID: 42,
			points: 250,
			mockSetup: func(repo *mocks.MockGemRepository, n *mocks.MockNotifier) {
				repo.On("GetBalance", mock.Anything, int64(42)).Return(&model.Balance{UserID: 42, Points: 250, Gems: 1}, nil)
				repo.On("ConvertPointsToGems", mock.Anything, int64(42), int64(200), int64(2)).
					Return(&model.ConversionResult{GemsEarned: 2, PointsUsed: 200, NewGemBalance: 3, NewPointBalance: 50}, nil)
				n.On("Notify", int64(42), mock.MatchedBy(func(e model.Event) bool {
					return e.Type == model.EventGemsConverted
				})).Once()
			},
			expectedResult: &model.ConversionResult{GemsEarned: 2, PointsUsed: 200, NewGemBalance: 3, NewPointBalance: 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockGemRepository{}
			notifier := &mocks.MockNotifier{}
			tt.mockSetup(repo, notifier)

			s := NewGemService(repo, notifier, ConversionRate)
			res, err := s.Convert(ctx, tt.userID, tt.points)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
				assert.Nil(t, res)
				notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedResult, res)
			}

			if tt.expectedError == ErrBelowMinimum || tt.expectedError == ErrUnauthenticated {
				assert.Empty(t, repo.Calls)
			}
			repo.AssertExpectations(t)
			notifier.AssertExpectations(t)
		})
	}
}

func TestGemService_CustomRate(t *testing.T) {
	repo := &mocks.MockGemRepository{}
	repo.On("GetBalance", mock.Anything, int64(7)).Return(&model.Balance{UserID: 7, Points: 100}, nil)
	repo.On("ConvertPointsToGems", mock.Anything, int64(7), int64(90), int64(9)).
		Return(&model.ConversionResult{GemsEarned: 9, PointsUsed: 90, NewGemBalance: 9, NewPointBalance: 10}, nil)

	s := NewGemService(repo, nil, 10)
	assert.Equal(t, int64(10), s.Rate())

	res, err := s.Convert(context.Background(), 7, 95)
	require.NoError(t, err)
	assert.Equal(t, int64(9), res.GemsEarned)

	assert.Equal(t, int64(ConversionRate), NewGemService(repo, nil, 0).Rate())
}

func TestGemService_AdjustGems(t *testing.T) {
	ctx := context.Background()

	t.Run("zero is rejected", func(t *testing.T) {
		repo := &mocks.MockGemRepository{}
		_, _, err := NewGemService(repo, nil, 0).AdjustGems(ctx, 1, 42, 0, "")
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Empty(t, repo.Calls)
	})

	t.Run("grant", func(t *testing.T) {
		repo := &mocks.MockGemRepository{}
		notifier := &mocks.MockNotifier{}
		repo.On("AdjustGems", mock.Anything, mock.MatchedBy(func(tx *model.GemTransaction) bool {
			return tx.UserID == 42 &&
				tx.Type == model.GemTxAdminGrant &&
				tx.Gems == 5 &&
				tx.Status == model.TxStatusCompleted &&
				tx.Metadata["actor_id"] == int64(1)
		})).Return(int64(12), nil)
		notifier.On("Notify", int64(42), mock.Anything).Once()

		tx, balance, err := NewGemService(repo, notifier, 0).AdjustGems(ctx, 1, 42, 5, "contest prize")
		require.NoError(t, err)
		assert.Equal(t, int64(12), balance)
		assert.Equal(t, "contest prize", tx.Description)
		repo.AssertExpectations(t)
		notifier.AssertExpectations(t)
	})

	t.Run("deduct below zero", func(t *testing.T) {
		repo := &mocks.MockGemRepository{}
		repo.On("AdjustGems", mock.Anything, mock.MatchedBy(func(tx *model.GemTransaction) bool {
			return tx.Type == model.GemTxAdminDeduct && tx.Gems == -50 && tx.Description == "admin_deduct"
		})).Return(int64(0), repository.ErrInsufficientGems)

		_, _, err := NewGemService(repo, nil, 0).AdjustGems(ctx, 1, 42, -50, " ")
		assert.ErrorIs(t, err, ErrInsufficientGems)
	})
}

func TestGemService_UpdateTransactionStatus(t *testing.T) {
	ctx := context.Background()
	id := uuid.New()

	tests := []struct {
		name    string
		status  model.TransactionStatus
		repoErr error
		wantErr error
	}{
		{"back to pending", model.TxStatusPending, nil, ErrInvalidInput},
		{"unknown status", "refunded", nil, ErrInvalidInput},
		{"already final", model.TxStatusCompleted, repository.ErrTransactionFinal, ErrTransactionFinal},
		{"missing", model.TxStatusFailed, repository.ErrNotFound, ErrTransactionNotFound},
		{"ok", model.TxStatusCancelled, nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mocks.MockGemRepository{}
			repo.On("UpdateGemTransactionStatus", mock.Anything, id, tt.status).Return(tt.repoErr)

			err := NewGemService(repo, nil, 0).UpdateTransactionStatus(ctx, id, tt.status)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestGemService_ListTransactions(t *testing.T) {
	repo := &mocks.MockGemRepository{}
	repo.On("ListGemTransactions", mock.Anything, int64(42), uint64(100), uint64(0)).
		Return([]*model.GemTransaction{{UserID: 42}}, nil)
	repo.On("ListPointTransactions", mock.Anything, int64(42), uint64(20), uint64(40)).
		Return([]*model.PointTransaction{}, nil)

	s := NewGemService(repo, nil, 0)

	txs, err := s.ListTransactions(context.Background(), 42, 500, -3)
	require.NoError(t, err)
	assert.Len(t, txs, 1)

	_, err = s.ListPointTransactions(context.Background(), 42, 0, 40)
	require.NoError(t, err)
	repo.AssertExpectations(t)

	_, err = s.ListTransactions(context.Background(), 0, 10, 0)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}
