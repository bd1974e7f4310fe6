// Package mocks holds testify mocks for the service layer's dependencies.
package mocks

import (
	"context"
	"time"

	"edu_rewards/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

func get[T any](args mock.Arguments, i int) T {
	var zero T
	v := args.Get(i)
	if v == nil {
		return zero
	}
	return v.(T)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	args := m.Called(ctx, telegramID)
	return get[*model.User](args, 0), args.Error(1)
}

func (m *MockUserRepository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	args := m.Called(ctx, limit)
	return get[[]*model.User](args, 0), args.Error(1)
}

func (m *MockUserRepository) GetBalance(ctx context.Context, telegramID int64) (*model.Balance, error) {
	args := m.Called(ctx, telegramID)
	return get[*model.Balance](args, 0), args.Error(1)
}

type MockCalendarRepository struct {
	mock.Mock
}

func (m *MockCalendarRepository) InsertCalendarDays(ctx context.Context, days []*model.CalendarDay) (int64, error) {
	args := m.Called(ctx, days)
	return get[int64](args, 0), args.Error(1)
}

func (m *MockCalendarRepository) GetCalendarDays(ctx context.Context, start, end time.Time) ([]*model.CalendarDay, error) {
	args := m.Called(ctx, start, end)
	return get[[]*model.CalendarDay](args, 0), args.Error(1)
}

func (m *MockCalendarRepository) GetCalendarDay(ctx context.Context, date time.Time) (*model.CalendarDay, error) {
	args := m.Called(ctx, date)
	return get[*model.CalendarDay](args, 0), args.Error(1)
}

func (m *MockCalendarRepository) GetClaimedDates(ctx context.Context, userID int64, start, end time.Time) (map[time.Time]struct{}, error) {
	args := m.Called(ctx, userID, start, end)
	return get[map[time.Time]struct{}](args, 0), args.Error(1)
}

func (m *MockCalendarRepository) HasCalendarClaim(ctx context.Context, userID int64, date time.Time) (bool, error) {
	args := m.Called(ctx, userID, date)
	return args.Bool(0), args.Error(1)
}

func (m *MockCalendarRepository) CreateCalendarClaim(ctx context.Context, claim *model.CalendarClaim, grants []model.Grant) error {
	return m.Called(ctx, claim, grants).Error(0)
}

func (m *MockCalendarRepository) ListCalendarClaims(ctx context.Context, userID int64, limit uint64) ([]*model.CalendarClaim, error) {
	args := m.Called(ctx, userID, limit)
	return get[[]*model.CalendarClaim](args, 0), args.Error(1)
}

func (m *MockCalendarRepository) GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error) {
	args := m.Called(ctx, chestType)
	return get[*model.Chest](args, 0), args.Error(1)
}

type MockChestRepository struct {
	mock.Mock
}

func (m *MockChestRepository) GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error) {
	args := m.Called(ctx, chestType)
	return get[*model.Chest](args, 0), args.Error(1)
}

func (m *MockChestRepository) ListChests(ctx context.Context) ([]*model.Chest, error) {
	args := m.Called(ctx)
	return get[[]*model.Chest](args, 0), args.Error(1)
}

func (m *MockChestRepository) UpsertChest(ctx context.Context, chest *model.Chest) error {
	return m.Called(ctx, chest).Error(0)
}

func (m *MockChestRepository) InsertChestIfAbsent(ctx context.Context, chest *model.Chest) (bool, error) {
	args := m.Called(ctx, chest)
	return args.Bool(0), args.Error(1)
}

type MockQuestRepository struct {
	mock.Mock
}

func (m *MockQuestRepository) CreateQuest(ctx context.Context, q *model.Quest) error {
	return m.Called(ctx, q).Error(0)
}

func (m *MockQuestRepository) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	args := m.Called(ctx, questID)
	return get[*model.Quest](args, 0), args.Error(1)
}

func (m *MockQuestRepository) ListQuests(ctx context.Context, activeOnly bool, periods ...model.Period) ([]*model.Quest, error) {
	args := m.Called(ctx, activeOnly, periods)
	return get[[]*model.Quest](args, 0), args.Error(1)
}

func (m *MockQuestRepository) SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error {
	return m.Called(ctx, questID, active).Error(0)
}

func (m *MockQuestRepository) InsertQuestProgress(ctx context.Context, entries []*model.UserQuestProgress) (int64, error) {
	args := m.Called(ctx, entries)
	return get[int64](args, 0), args.Error(1)
}

func (m *MockQuestRepository) ListQuestProgress(ctx context.Context, userID int64, starts map[model.Period]time.Time) ([]*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, starts)
	return get[[]*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestRepository) GetQuestProgress(ctx context.Context, userID int64, questID uuid.UUID, periodStart time.Time) (*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, questID, periodStart)
	return get[*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestRepository) IncrementQuestProgress(ctx context.Context, userID int64, action string, starts map[model.Period]time.Time, amount int) ([]*model.UserQuestProgress, error) {
	args := m.Called(ctx, userID, action, starts, amount)
	return get[[]*model.UserQuestProgress](args, 0), args.Error(1)
}

func (m *MockQuestRepository) ClaimQuestProgress(ctx context.Context, progressID uuid.UUID, userID int64, grant model.Grant) error {
	return m.Called(ctx, progressID, userID, grant).Error(0)
}

type MockGemRepository struct {
	mock.Mock
}

func (m *MockGemRepository) GetBalance(ctx context.Context, telegramID int64) (*model.Balance, error) {
	args := m.Called(ctx, telegramID)
	return get[*model.Balance](args, 0), args.Error(1)
}

func (m *MockGemRepository) ConvertPointsToGems(ctx context.Context, userID, pointsUsed, gems int64) (*model.ConversionResult, error) {
	args := m.Called(ctx, userID, pointsUsed, gems)
	return get[*model.ConversionResult](args, 0), args.Error(1)
}

func (m *MockGemRepository) AdjustGems(ctx context.Context, t *model.GemTransaction) (int64, error) {
	args := m.Called(ctx, t)
	return get[int64](args, 0), args.Error(1)
}

func (m *MockGemRepository) ListGemTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.GemTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return get[[]*model.GemTransaction](args, 0), args.Error(1)
}

func (m *MockGemRepository) ListPointTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.PointTransaction, error) {
	args := m.Called(ctx, userID, limit, offset)
	return get[[]*model.PointTransaction](args, 0), args.Error(1)
}

func (m *MockGemRepository) UpdateGemTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error {
	return m.Called(ctx, id, status).Error(0)
}

type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(userID int64, event model.Event) {
	m.Called(userID, event)
}
