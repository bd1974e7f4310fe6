package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"edu_rewards/internal/model"
	"edu_rewards/internal/repository"
)

// Draw picks one reward with probability weight/Σweights. rnd must return a
// uniform value in [0, 1).
func Draw(rewards []model.ChestReward, rnd func() float64) (*model.ChestReward, error) {
	total, err := totalWeight(rewards)
	if err != nil {
		return nil, err
	}

	target := rnd() * total
	var cumulative float64
	for i := range rewards {
		cumulative += rewards[i].Weight
		if cumulative > target {
			picked := rewards[i]
			return &picked, nil
		}
	}

	// Float rounding can leave target just past the last boundary.
	picked := rewards[len(rewards)-1]
	return &picked, nil
}

// Probabilities returns round(weight/total*100) for each reward. The values
// are for display and need not add up to exactly 100.
func Probabilities(rewards []model.ChestReward) []int {
	out := make([]int, len(rewards))
	total, err := totalWeight(rewards)
	if err != nil {
		return out
	}
	for i, r := range rewards {
		out[i] = int(math.Round(r.Weight / total * 100))
	}
	return out
}

func totalWeight(rewards []model.ChestReward) (float64, error) {
	if len(rewards) == 0 {
		return 0, fmt.Errorf("%w: chest has no rewards", ErrInvalidInput)
	}
	var total float64
	for _, r := range rewards {
		if r.Weight <= 0 || math.IsNaN(r.Weight) || math.IsInf(r.Weight, 0) {
			return 0, fmt.Errorf("%w: reward %q has weight %v", ErrInvalidInput, r.ID, r.Weight)
		}
		total += r.Weight
	}
	return total, nil
}

func validateChestReward(r model.ChestReward) error {
	if r.ID == "" {
		return fmt.Errorf("%w: reward id is required", ErrInvalidInput)
	}
	switch r.Type {
	case model.RewardPoints, model.RewardGems:
		if r.Amount <= 0 {
			return fmt.Errorf("%w: reward %q needs a positive amount", ErrInvalidInput, r.ID)
		}
	case model.RewardBadge:
		if r.BadgeID == "" {
			return fmt.Errorf("%w: reward %q needs a badge id", ErrInvalidInput, r.ID)
		}
	default:
		return fmt.Errorf("%w: reward %q has unsupported type %q", ErrInvalidInput, r.ID, r.Type)
	}
	return nil
}

type ChestService struct {
	repo ChestRepository
}

func NewChestService(repo ChestRepository) *ChestService {
	return &ChestService{repo: repo}
}

func (s *ChestService) ListChests(ctx context.Context) ([]*model.Chest, error) {
	chests, err := s.repo.ListChests(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list chests: %w", err)
	}
	return chests, nil
}

func validateChest(chest *model.Chest) error {
	if !chest.Type.Valid() {
		return fmt.Errorf("%w: unknown chest type %q", ErrInvalidInput, chest.Type)
	}
	if _, err := totalWeight(chest.PossibleRewards); err != nil {
		return err
	}

	seen := make(map[string]struct{}, len(chest.PossibleRewards))
	for _, r := range chest.PossibleRewards {
		if err := validateChestReward(r); err != nil {
			return err
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("%w: duplicate reward id %q", ErrInvalidInput, r.ID)
		}
		seen[r.ID] = struct{}{}
	}
	return nil
}

func (s *ChestService) UpsertChest(ctx context.Context, chest *model.Chest) error {
	if err := validateChest(chest); err != nil {
		return err
	}

	if err := s.repo.UpsertChest(ctx, chest); err != nil {
		return fmt.Errorf("failed to save chest: %w", err)
	}
	return nil
}

// DefaultChests covers every chest type the default calendar schedule hands
// out.
func DefaultChests() []*model.Chest {
	return []*model.Chest{
		{
			Type: model.ChestCommon,
			Name: "Common chest",
			PossibleRewards: []model.ChestReward{
				{ID: "points-30", Type: model.RewardPoints, Amount: 30, Weight: 60},
				{ID: "points-50", Type: model.RewardPoints, Amount: 50, Weight: 30},
				{ID: "gems-1", Type: model.RewardGems, Amount: 1, Weight: 10},
			},
		},
		{
			Type: model.ChestRare,
			Name: "Rare chest",
			PossibleRewards: []model.ChestReward{
				{ID: "points-100", Type: model.RewardPoints, Amount: 100, Weight: 50},
				{ID: "gems-2", Type: model.RewardGems, Amount: 2, Weight: 35},
				{ID: "gems-5", Type: model.RewardGems, Amount: 5, Weight: 15},
			},
		},
		{
			Type: model.ChestEpic,
			Name: "Epic chest",
			PossibleRewards: []model.ChestReward{
				{ID: "points-250", Type: model.RewardPoints, Amount: 250, Weight: 30},
				{ID: "gems-5", Type: model.RewardGems, Amount: 5, Weight: 50},
				{ID: "badge-explorer", Type: model.RewardBadge, BadgeID: "explorer", Weight: 20},
			},
		},
		{
			Type: model.ChestLegendary,
			Name: "Legendary chest",
			PossibleRewards: []model.ChestReward{
				{ID: "gems-10", Type: model.RewardGems, Amount: 10, Weight: 50},
				{ID: "gems-25", Type: model.RewardGems, Amount: 25, Weight: 30},
				{ID: "badge-legend", Type: model.RewardBadge, BadgeID: "legend", Weight: 20},
			},
		},
	}
}

// EnsureDefaultChests stores DefaultChests for every type that has no
// definition yet. Chests edited by an admin are left alone.
func (s *ChestService) EnsureDefaultChests(ctx context.Context) (int, error) {
	var created int
	for _, chest := range DefaultChests() {
		if err := validateChest(chest); err != nil {
			return created, err
		}
		ok, err := s.repo.InsertChestIfAbsent(ctx, chest)
		if err != nil {
			return created, fmt.Errorf("failed to seed %s chest: %w", chest.Type, err)
		}
		if ok {
			created++
		}
	}
	return created, nil
}

type chestGetter interface {
	GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error)
}

// drawFromChest loads the chest definition and draws from it.
func drawFromChest(ctx context.Context, repo chestGetter, chestType model.ChestType, rnd func() float64) (*model.ChestReward, error) {
	chest, err := repo.GetChest(ctx, chestType)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrChestNotFound
		}
		return nil, fmt.Errorf("failed to get chest: %w", err)
	}
	return Draw(chest.PossibleRewards, rnd)
}
