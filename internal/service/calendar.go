package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"
)

const DefaultCalendarMaxRangeDays = 93

type CalendarService struct {
	repo       CalendarRepository
	notifier   Notifier
	maxRange   int
	claimGrace int
	rnd        func() float64
	now        func() time.Time
}

// NewCalendarService builds the calendar. claimGraceDays is how many days
// before today a missed reward can still be claimed; 0 means today only.
func NewCalendarService(repo CalendarRepository, notifier Notifier, maxRangeDays, claimGraceDays int) *CalendarService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	if maxRangeDays <= 0 {
		maxRangeDays = DefaultCalendarMaxRangeDays
	}
	if claimGraceDays < 0 {
		claimGraceDays = 0
	}
	return &CalendarService{
		repo:       repo,
		notifier:   notifier,
		maxRange:   maxRangeDays,
		claimGrace: claimGraceDays,
		rnd:        rand.Float64,
		now:        time.Now,
	}
}

// claimWindow returns the earliest and latest date a claim may target.
func (s *CalendarService) claimWindow() (time.Time, time.Time) {
	today := model.DateKey(s.now())
	return today.AddDate(0, 0, -s.claimGrace), today
}

// DefaultCalendarReward is the reward schedule used when days are created.
// It depends only on the date, so re-running initialization for an existing
// range would produce the same rows.
func DefaultCalendarReward(date time.Time) (model.CalendarReward, model.CalendarTheme) {
	date = model.DateKey(date)
	day := date.Day()
	lastDay := date.AddDate(0, 0, 1).Month() != date.Month()

	var reward model.CalendarReward
	switch {
	case lastDay:
		reward = model.CalendarReward{Type: model.RewardChest, ChestType: model.ChestLegendary}
	case day == 28:
		reward = model.CalendarReward{Type: model.RewardChest, ChestType: model.ChestEpic}
	case day%7 == 0:
		chest := model.ChestCommon
		if date.Weekday() == time.Sunday {
			chest = model.ChestRare
		}
		reward = model.CalendarReward{Type: model.RewardChest, ChestType: chest}
	case day%5 == 0:
		reward = model.CalendarReward{Type: model.RewardGems, Amount: int64(day / 5)}
	default:
		reward = model.CalendarReward{Type: model.RewardPoints, Amount: int64(10 + (day%7)*5)}
	}

	return reward, model.CalendarTheme{Name: date.Month().String(), Season: season(date.Month())}
}

func season(m time.Month) string {
	switch m {
	case time.December, time.January, time.February:
		return "winter"
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	default:
		return "autumn"
	}
}

func (s *CalendarService) validateRange(start, end time.Time) (time.Time, time.Time, error) {
	if start.IsZero() || end.IsZero() {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start and end are required", ErrInvalidDate)
	}
	start, end = model.DateKey(start), model.DateKey(end)
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end is before start", ErrInvalidDate)
	}
	if days := int(end.Sub(start).Hours()/24) + 1; days > s.maxRange {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: range of %d days exceeds %d", ErrInvalidInput, days, s.maxRange)
	}
	return start, end, nil
}

// InitializeCalendarPeriod makes sure every date in [start, end] has a
// calendar day. Existing days are never overwritten.
func (s *CalendarService) InitializeCalendarPeriod(ctx context.Context, start, end time.Time) (int64, error) {
	start, end, err := s.validateRange(start, end)
	if err != nil {
		return 0, err
	}

	var days []*model.CalendarDay
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		reward, theme := DefaultCalendarReward(d)
		days = append(days, &model.CalendarDay{Date: d, Reward: reward, Theme: theme})
	}

	created, err := s.repo.InsertCalendarDays(ctx, days)
	if err != nil {
		return 0, fmt.Errorf("failed to initialize calendar: %w", err)
	}
	return created, nil
}

func (s *CalendarService) GetCalendarData(ctx context.Context, userID int64, start, end time.Time) ([]*model.CalendarEntry, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	start, end, err := s.validateRange(start, end)
	if err != nil {
		return nil, err
	}

	// Reads only create days from the claim window onwards.
	first, today := s.claimWindow()
	initStart, initEnd := start, end
	if initStart.Before(first) {
		initStart = first
	}
	if last := first.AddDate(0, 0, s.maxRange-1); initEnd.After(last) {
		initEnd = last
	}
	if !initEnd.Before(initStart) {
		if _, err = s.InitializeCalendarPeriod(ctx, initStart, initEnd); err != nil {
			return nil, err
		}
	}

	days, err := s.repo.GetCalendarDays(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar days: %w", err)
	}

	claimed, err := s.repo.GetClaimedDates(ctx, userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to get claimed dates: %w", err)
	}

	entries := make([]*model.CalendarEntry, len(days))
	for i, day := range days {
		_, isClaimed := claimed[day.Date]
		entries[i] = &model.CalendarEntry{
			Date:      day.Date,
			Reward:    day.Reward,
			Theme:     day.Theme,
			Claimed:   isClaimed,
			Claimable: !isClaimed && !day.Date.Before(first) && !day.Date.After(today),
		}
	}

	return entries, nil
}

// ClaimDailyReward pays out the reward of one calendar date, at most once per
// user and date. Only dates inside the claim window are accepted.
func (s *CalendarService) ClaimDailyReward(ctx context.Context, userID int64, date time.Time) (*model.ClaimResult, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	if date.IsZero() {
		return nil, ErrInvalidDate
	}

	key := model.DateKey(date)
	first, today := s.claimWindow()
	if key.After(today) {
		return nil, fmt.Errorf("%w: %s is in the future", ErrInvalidDate, key.Format(model.DateLayout))
	}
	if key.Before(first) {
		return nil, fmt.Errorf("%w: %s can no longer be claimed", ErrInvalidDate, key.Format(model.DateLayout))
	}

	claimed, err := s.repo.HasCalendarClaim(ctx, userID, key)
	if err != nil {
		return nil, fmt.Errorf("failed to check claim: %w", err)
	}
	if claimed {
		return nil, ErrAlreadyClaimed
	}

	day, err := s.repo.GetCalendarDay(ctx, key)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNoRewardConfigured
		}
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}

	result, grant, err := s.resolveReward(ctx, day)
	if err != nil {
		return nil, err
	}

	claim := &model.CalendarClaim{
		UserID:      userID,
		Date:        key,
		RewardType:  result.RewardType,
		Amount:      result.Amount,
		ChestType:   result.ChestType,
		ChestReward: result.ChestReward,
		ClaimedAt:   s.now().UTC(),
	}

	err = s.repo.CreateCalendarClaim(ctx, claim, []model.Grant{grant})
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, ErrAlreadyClaimed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to claim daily reward: %w", err)
	}

	s.notifier.Notify(userID, model.NewEvent(model.EventDailyRewardClaimed, map[string]any{
		"date":        key.Format(model.DateLayout),
		"reward_type": result.RewardType,
		"amount":      result.Amount,
		"chest_type":  result.ChestType,
	}))
	if grant.Type == model.RewardBadge {
		s.notifier.Notify(userID, model.NewEvent(model.EventBadgeAwarded, map[string]any{
			"badge_id": grant.BadgeID,
			"source":   "calendar",
		}))
	}

	return result, nil
}

func (s *CalendarService) resolveReward(ctx context.Context, day *model.CalendarDay) (*model.ClaimResult, model.Grant, error) {
	dateStr := day.Date.Format(model.DateLayout)

	switch day.Reward.Type {
	case model.RewardPoints, model.RewardGems:
		if day.Reward.Amount <= 0 {
			return nil, model.Grant{}, ErrNoRewardConfigured
		}
		result := &model.ClaimResult{RewardType: day.Reward.Type, Amount: day.Reward.Amount}
		grant := model.Grant{
			Type:     day.Reward.Type,
			Amount:   day.Reward.Amount,
			Reason:   "daily reward " + dateStr,
			Metadata: map[string]any{"date": dateStr},
		}
		return result, grant, nil

	case model.RewardChest:
		drawn, err := drawFromChest(ctx, s.repo, day.Reward.ChestType, s.rnd)
		if err != nil {
			if errors.Is(err, ErrChestNotFound) || errors.Is(err, ErrInvalidInput) {
				return nil, model.Grant{}, ErrNoRewardConfigured
			}
			return nil, model.Grant{}, err
		}
		result := &model.ClaimResult{
			RewardType:  model.RewardChest,
			Amount:      drawn.Amount,
			ChestType:   day.Reward.ChestType,
			ChestReward: drawn,
		}
		grant := model.Grant{
			Type:    drawn.Type,
			Amount:  drawn.Amount,
			BadgeID: drawn.BadgeID,
			Reason:  fmt.Sprintf("%s chest %s", day.Reward.ChestType, dateStr),
			Metadata: map[string]any{
				"date":       dateStr,
				"chest_type": string(day.Reward.ChestType),
				"reward_id":  drawn.ID,
			},
		}
		return result, grant, nil
	}

	return nil, model.Grant{}, ErrNoRewardConfigured
}

func (s *CalendarService) GetClaimHistory(ctx context.Context, userID int64, limit int) ([]*model.CalendarClaim, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	l, _ := pageBounds(limit, 0)

	claims, err := s.repo.ListCalendarClaims(ctx, userID, l)
	if err != nil {
		return nil, fmt.Errorf("failed to get claim history: %w", err)
	}
	return claims, nil
}
