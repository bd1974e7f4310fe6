package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"

	"github.com/google/uuid"
)

// MaxTrackAmount bounds how much progress a single tracked action can add.
const MaxTrackAmount = 100

type QuestService struct {
	repo     QuestRepository
	notifier Notifier
	now      func() time.Time
}

func NewQuestService(repo QuestRepository, notifier Notifier) *QuestService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &QuestService{
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
	}
}

// InitializeQuestsForUser creates the user's instances of every active quest
// of the given period for the current window. Instances that already exist
// are kept as they are.
func (s *QuestService) InitializeQuestsForUser(ctx context.Context, userID int64, period model.Period) (int64, error) {
	if userID <= 0 {
		return 0, ErrUnauthenticated
	}
	if !period.Valid() {
		return 0, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, period)
	}

	quests, err := s.repo.ListQuests(ctx, true, period)
	if err != nil {
		return 0, fmt.Errorf("failed to list quests: %w", err)
	}
	if len(quests) == 0 {
		return 0, nil
	}

	now := s.now().UTC()
	start := period.Start(now)
	entries := make([]*model.UserQuestProgress, len(quests))
	for i, q := range quests {
		entries[i] = &model.UserQuestProgress{
			UserID:       userID,
			QuestID:      q.ID,
			Title:        q.Title,
			Period:       q.Period,
			PeriodStart:  start,
			Action:       q.Action,
			Target:       q.Target,
			RewardType:   q.RewardType,
			RewardAmount: q.RewardAmount,
			BadgeID:      q.BadgeID,
			CreatedAt:    now,
		}
	}

	created, err := s.repo.InsertQuestProgress(ctx, entries)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrUserNotFound
		}
		return 0, fmt.Errorf("failed to initialize quests: %w", err)
	}
	return created, nil
}

func (s *QuestService) currentWindows(periods []model.Period) map[model.Period]time.Time {
	now := s.now()
	starts := make(map[model.Period]time.Time, len(periods))
	for _, p := range periods {
		starts[p] = p.Start(now)
	}
	return starts
}

func (s *QuestService) initializeAll(ctx context.Context, userID int64, periods []model.Period) error {
	for _, p := range periods {
		if _, err := s.InitializeQuestsForUser(ctx, userID, p); err != nil {
			return err
		}
	}
	return nil
}

// GetUserQuests returns the user's current instances, for one period or all.
func (s *QuestService) GetUserQuests(ctx context.Context, userID int64, period *model.Period) ([]*model.UserQuestProgress, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	periods := model.Periods
	if period != nil {
		if !period.Valid() {
			return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, *period)
		}
		periods = []model.Period{*period}
	}

	if err := s.initializeAll(ctx, userID, periods); err != nil {
		return nil, err
	}

	progress, err := s.repo.ListQuestProgress(ctx, userID, s.currentWindows(periods))
	if err != nil {
		return nil, fmt.Errorf("failed to get user quests: %w", err)
	}
	return progress, nil
}

// TrackAction records amount occurrences of action against every current
// quest instance that counts it.
func (s *QuestService) TrackAction(ctx context.Context, userID int64, action string, amount int) ([]*model.UserQuestProgress, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return nil, fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if amount <= 0 || amount > MaxTrackAmount {
		return nil, fmt.Errorf("%w: amount must be between 1 and %d", ErrInvalidInput, MaxTrackAmount)
	}

	if err := s.initializeAll(ctx, userID, model.Periods); err != nil {
		return nil, err
	}

	updated, err := s.repo.IncrementQuestProgress(ctx, userID, action, s.currentWindows(model.Periods), amount)
	if err != nil {
		return nil, fmt.Errorf("failed to track action: %w", err)
	}

	for _, p := range updated {
		if p.Completed() && p.Progress-amount < p.Target {
			s.notifier.Notify(userID, model.NewEvent(model.EventQuestCompleted, map[string]any{
				"quest_id": p.QuestID.String(),
				"title":    p.Title,
				"period":   p.Period,
			}))
		}
	}

	return updated, nil
}

// ClaimQuestRewards pays out the current instance of a quest once its target
// is reached. Each instance pays at most once.
func (s *QuestService) ClaimQuestRewards(ctx context.Context, userID int64, questID uuid.UUID) (*model.UserQuestProgress, error) {
	if userID <= 0 {
		return nil, ErrUnauthenticated
	}

	quest, err := s.repo.GetQuest(ctx, questID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}

	progress, err := s.repo.GetQuestProgress(ctx, userID, questID, quest.Period.Start(s.now()))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}

	if !progress.Completed() {
		return nil, ErrNotCompleted
	}
	if progress.Claimed {
		return nil, ErrAlreadyClaimed
	}

	grant := progress.Grant()
	err = s.repo.ClaimQuestProgress(ctx, progress.ID, userID, grant)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrAlreadyClaimed):
			return nil, ErrAlreadyClaimed
		case errors.Is(err, repository.ErrNotFound):
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to claim quest rewards: %w", err)
	}

	claimedAt := s.now().UTC()
	progress.Claimed = true
	progress.ClaimedAt = &claimedAt

	s.notifier.Notify(userID, model.NewEvent(model.EventQuestRewardClaimed, map[string]any{
		"quest_id":      questID.String(),
		"reward_type":   grant.Type,
		"reward_amount": grant.Amount,
	}))
	if grant.Type == model.RewardBadge {
		s.notifier.Notify(userID, model.NewEvent(model.EventBadgeAwarded, map[string]any{
			"badge_id": grant.BadgeID,
			"source":   "quest",
		}))
	}

	return progress, nil
}

func (s *QuestService) CreateQuest(ctx context.Context, quest *model.Quest) (*model.Quest, error) {
	quest.Title = strings.TrimSpace(quest.Title)
	quest.Action = strings.TrimSpace(quest.Action)

	switch {
	case quest.Title == "":
		return nil, fmt.Errorf("%w: title is required", ErrInvalidInput)
	case !quest.Period.Valid():
		return nil, fmt.Errorf("%w: unknown period %q", ErrInvalidInput, quest.Period)
	case quest.Action == "":
		return nil, fmt.Errorf("%w: action is required", ErrInvalidInput)
	case quest.Target <= 0:
		return nil, fmt.Errorf("%w: target must be positive", ErrInvalidInput)
	}

	switch quest.RewardType {
	case model.RewardPoints, model.RewardGems:
		if quest.RewardAmount <= 0 {
			return nil, fmt.Errorf("%w: reward amount must be positive", ErrInvalidInput)
		}
	case model.RewardBadge:
		if quest.BadgeID == "" {
			return nil, fmt.Errorf("%w: badge id is required", ErrInvalidInput)
		}
	default:
		return nil, fmt.Errorf("%w: unsupported reward type %q", ErrInvalidInput, quest.RewardType)
	}

	quest.ID = uuid.New()
	quest.CreatedAt = s.now().UTC()

	if err := s.repo.CreateQuest(ctx, quest); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}
	return quest, nil
}

func (s *QuestService) SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error {
	err := s.repo.SetQuestActive(ctx, questID, active)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrQuestNotFound
		}
		return fmt.Errorf("failed to update quest: %w", err)
	}
	return nil
}

func (s *QuestService) ListQuests(ctx context.Context, activeOnly bool) ([]*model.Quest, error) {
	quests, err := s.repo.ListQuests(ctx, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	return quests, nil
}
