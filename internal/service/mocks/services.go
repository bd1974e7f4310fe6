package mocks

import (
	"context"
	"time"

	"edu_rewards/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) RegisterUser(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserService) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	return get[*model.User](args, 0), args.Error(1)
}

func (m *MockUserService) GetProfile(ctx context.Context, telegramID int64) (*model.Profile, error) {
	args := m.Called(ctx, telegramID)
	return get[*model.Profile](args, 0), args.Error(1)
}

func (m *MockUserService) GetLeaderboard(ctx context.Context) ([]*model.User, error) {
	args := m.Called(ctx)
	return get[[]*model.User](args, 0), args.Error(1)
}

type MockCalendarService struct {
	mock.Mock
}

func (m *MockCalendarService) InitializeCalendarPeriod(ctx context.Context, start, end time.Time) (int64, error) {
	args := m.Called(ctx, start, end)
	return get[int64](args, 0), args.Error(1)
}

func (m *MockCalendarService) GetCalendarData(ctx context.Context, userID int64, start, end time.Time) ([]*model.CalendarEntry, error) {
	args := m.Called(ctx, userID, start, end)
	return get[[]*model.CalendarEntry](args, 0), args.Error(1)
}

func (m *MockCalendarService) ClaimDailyReward(ctx context.Context, userID int64, date time.Time) (*model.ClaimResult, error) {
	args := m.Called(ctx, userID, date)
	return get[*model.ClaimResult](args, 0), args.Error(1)
}

func (m *MockCalendarService) GetClaimHistory(ctx context.Context, userID int64, limit int) ([]*model.CalendarClaim, error) {
	args := m.Called(ctx, userID, limit)
	return get[[]*model.CalendarClaim](args, 0), args.Error(1)
}

type MockQuestService struct {
	mock.Mock
}

func (m *MockQuestService) InitializeQuestsForUser(ctx context.Context, userID int64, period model.Period) (int64, error) {
	args := m.Called(ctx, userID, period)
	return get[int64](args, 0), args.Error(1)
}

func (m *MockQuestService) GetUserQuests(ctx context.Context, userID int64, period *model.Period) ([]*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, period)
	return get[[]*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestService) TrackAction(ctx context.Context, userID int64, action string, amount int) ([]*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, action, amount)
	return get[[]*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestService) ClaimQuestRewards(ctx context.Context, userID int64, questID uuid.UUID) (*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, questID)
	return get[*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestService) CreateQuest(ctx context.Context, quest *model.Quest) (*model.Quest, error) {
	args := m.Called(ctx, quest)
	return get[*model.Quest](args, 0), args.Error(1)
}

func (m *MockQuestService) SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error {
	return m.Called(ctx, questID, active).Error(0)
}

func (m *MockQuestService) ListQuests(ctx context.Context, activeOnly bool) ([]*model.Quest, error) {
	args := m.Called(ctx, activeOnly)
	return get[[]*model.Quest](args, 0), args.Error(1)
}

type MockGemService struct {
	mock.Mock
}

func (m *MockGemService) Rate() int64 {
	return get[int64](m.Called(), 0)
}

func (m *MockGemService) Convert(ctx context.Context, userID, points int64) (*model.ConversionResult, error) {
	args := m.Called(ctx, userID, points)
	return get[*model.ConversionResult](args, 0), args.Error(1)
}

func (m *MockGemService) GetBalance(ctx context.Context, userID int64) (*model.Balance, error) {
	args := m.Called(ctx, userID)
	return get[*model.Balance](args, 0), args.Error(1)
}

func (m *MockGemService) ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.GemTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return get[[]*model.GemTransaction](args, 0), args.Error(1)
}

func (m *MockGemService) ListPointTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.PointTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return get[[]*model.PointTransaction](args, 0), args.Error(1)
}

func (m *MockGemService) AdjustGems(ctx context.Context, actorID, userID, gems int64, description string) (*model.GemTransaction, int64, error) {
	args := m.Called(ctx, actorID, userID, gems, description)
	return get[*model.GemTransaction](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockGemService) UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockChestService struct {
	mock.Mock
}

func (m *MockChestService) ListChests(ctx context.Context) ([]*model.Chest, error) {
	args := m.Called(ctx)
	return get[[]*model.Chest](args, 0), args.Error(1)
}

func (m *MockChestService) UpsertChest(ctx context.Context, chest *model.Chest) error {
	return m.Called(ctx, chest).Error(0)
}
