package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"edu_rewards/internal/model"

	"github.com/google/uuid"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrNotFound           = errors.New("not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrAlreadyClaimed     = errors.New("already claimed")
	ErrAlreadyExists      = errors.New("already exists")
	ErrNotCompleted       = errors.New("quest is not completed yet")
	ErrNoRewardConfigured = errors.New("no reward configured for this date")
	ErrBelowMinimum       = errors.New("not enough points for a single conversion")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInsufficientGems   = errors.New("insufficient gems")
	ErrTransactionFinal   = errors.New("transaction is no longer pending")

	ErrInvalidDate         = fmt.Errorf("%w: invalid date", ErrInvalidInput)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrQuestNotFound       = fmt.Errorf("quest %w", ErrNotFound)
	ErrChestNotFound       = fmt.Errorf("chest %w", ErrNotFound)
	ErrTransactionNotFound = fmt.Errorf("transaction %w", ErrNotFound)
)

// Notifier delivers side-effect events (badges, notifications). It must not
// block and has no error to report: a failed delivery never undoes a reward.
type Notifier interface {
	Notify(userID int64, event model.Event)
}

type NopNotifier struct{}

func (NopNotifier) Notify(int64, model.Event) {}

type UserServiceI interface {
	RegisterUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetProfile(ctx context.Context, telegramID int64) (*model.Profile, error)
	GetLeaderboard(ctx context.Context) ([]*model.User, error)
}

type UserRepository interface {
	CreateUser(ctx context.Context, user *model.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error)
	GetTopUsers(ctx context.Context, limit int) ([]*model.User, error)
	GetBalance(ctx context.Context, telegramID int64) (*model.Balance, error)
}

type CalendarServiceI interface {
	InitializeCalendarPeriod(ctx context.Context, start, end time.Time) (int64, error)
	GetCalendarData(ctx context.Context, userID int64, start, end time.Time) ([]*model.CalendarEntry, error)
	ClaimDailyReward(ctx context.Context, userID int64, date time.Time) (*model.ClaimResult, error)
	GetClaimHistory(ctx context.Context, userID int64, limit int) ([]*model.CalendarClaim, error)
}

type CalendarRepository interface {
	InsertCalendarDays(ctx context.Context, days []*model.CalendarDay) (int64, error)
	GetCalendarDays(ctx context.Context, start, end time.Time) ([]*model.CalendarDay, error)
	GetCalendarDay(ctx context.Context, date time.Time) (*model.CalendarDay, error)
	GetClaimedDates(ctx context.Context, userID int64, start, end time.Time) (map[time.Time]struct{}, error)
	HasCalendarClaim(ctx context.Context, userID int64, date time.Time) (bool, error)
	CreateCalendarClaim(ctx context.Context, claim *model.CalendarClaim, grants []model.Grant) error
	ListCalendarClaims(ctx context.Context, userID int64, limit uint64) ([]*model.CalendarClaim, error)
	GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error)
}

type QuestServiceI interface {
	InitializeQuestsForUser(ctx context.Context, userID int64, period model.Period) (int64, error)
	GetUserQuests(ctx context.Context, userID int64, period *model.Period) ([]*model.UserQuestProgress, error)
	TrackAction(ctx context.Context, userID int64, action string, amount int) ([]*model.UserQuestProgress, error)
	ClaimQuestRewards(ctx context.Context, userID int64, questID uuid.UUID) (*model.UserQuestProgress, error)
	CreateQuest(ctx context.Context, quest *model.Quest) (*model.Quest, error)
	SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error
	ListQuests(ctx context.Context, activeOnly bool) ([]*model.Quest, error)
}

type QuestRepository interface {
	CreateQuest(ctx context.Context, q *model.Quest) error
	GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error)
	ListQuests(ctx context.Context, activeOnly bool, periods ...model.Period) ([]*model.Quest, error)
	SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error
	InsertQuestProgress(ctx context.Context, entries []*model.UserQuestProgress) (int64, error)
	ListQuestProgress(ctx context.Context, userID int64, starts map[model.Period]time.Time) ([]*model.UserQuestProgress, error)
	GetQuestProgress(ctx context.Context, userID int64, questID uuid.UUID, periodStart time.Time) (*model.UserQuestProgress, error)
	IncrementQuestProgress(ctx context.Context, userID int64, action string, starts map[model.Period]time.Time, amount int) ([]*model.UserQuestProgress, error)
	ClaimQuestProgress(ctx context.Context, progressID uuid.UUID, userID int64, grant model.Grant) error
}

type GemServiceI interface {
	Rate() int64
	Convert(ctx context.Context, userID, points int64) (*model.ConversionResult, error)
	GetBalance(ctx context.Context, userID int64) (*model.Balance, error)
	ListTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.GemTransaction, error)
	ListPointTransactions(ctx context.Context, userID int64, limit, offset int) ([]*model.PointTransaction, error)
	AdjustGems(ctx context.Context, actorID, userID, gems int64, description string) (*model.GemTransaction, int64, error)
	UpdateTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error
}

type GemRepository interface {
	GetBalance(ctx context.Context, telegramID int64) (*model.Balance, error)
	ConvertPointsToGems(ctx context.Context, userID, pointsUsed, gems int64) (*model.ConversionResult, error)
	AdjustGems(ctx context.Context, t *model.GemTransaction) (int64, error)
	ListGemTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.GemTransaction, error)
	ListPointTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.PointTransaction, error)
	UpdateGemTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error
}

type ChestServiceI interface {
	ListChests(ctx context.Context) ([]*model.Chest, error)
	UpsertChest(ctx context.Context, chest *model.Chest) error
}

type ChestRepository interface {
	GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error)
	ListChests(ctx context.Context) ([]*model.Chest, error)
	UpsertChest(ctx context.Context, chest *model.Chest) error
	InsertChestIfAbsent(ctx context.Context, chest *model.Chest) (bool, error)
}

// pageBounds clamps user supplied paging to sane values.
func pageBounds(limit, offset int) (uint64, uint64) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return uint64(limit), uint64(offset)
}
