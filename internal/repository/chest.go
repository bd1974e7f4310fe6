package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edu_rewards/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/goccy/go-json"
)

type chest struct {
	Type            string    `db:"type"`
	Name            string    `db:"name"`
	PossibleRewards []byte    `db:"possible_rewards"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (c *chest) toModel() (*model.Chest, error) {
	out := &model.Chest{
		Type:      model.ChestType(c.Type),
		Name:      c.Name,
		UpdatedAt: c.UpdatedAt,
	}
	if err := json.Unmarshal(c.PossibleRewards, &out.PossibleRewards); err != nil {
		return nil, fmt.Errorf("failed to decode chest rewards: %w", err)
	}
	return out, nil
}

func (r *Repository) GetChest(ctx context.Context, chestType model.ChestType) (*model.Chest, error) {
	query, args, err := squirrel.
		Select("type", "name", "possible_rewards", "updated_at").
		From("chests").
		Where(squirrel.Eq{"type": string(chestType)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row chest
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get chest: %w", err)
	}
	return row.toModel()
}

func (r *Repository) ListChests(ctx context.Context) ([]*model.Chest, error) {
	query, args, err := squirrel.
		Select("type", "name", "possible_rewards", "updated_at").
		From("chests").
		OrderBy("type").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []chest
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list chests: %w", err)
	}

	chests := make([]*model.Chest, len(rows))
	for i := range rows {
		c, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		chests[i] = c
	}
	return chests, nil
}

func (r *Repository) UpsertChest(ctx context.Context, c *model.Chest) error {
	rewards, err := json.Marshal(c.PossibleRewards)
	if err != nil {
		return fmt.Errorf("failed to encode chest rewards: %w", err)
	}

	query, args, err := squirrel.
		Insert("chests").
		Columns("type", "name", "possible_rewards", "updated_at").
		Values(string(c.Type), c.Name, string(rewards), time.Now().UTC()).
		Suffix("ON CONFLICT (type) DO UPDATE SET name = EXCLUDED.name, possible_rewards = EXCLUDED.possible_rewards, updated_at = EXCLUDED.updated_at").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build chest upsert query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to upsert chest: %w", err)
	}
	return nil
}

// InsertChestIfAbsent stores c unless a chest of that type already exists.
// It reports whether a row was written.
func (r *Repository) InsertChestIfAbsent(ctx context.Context, c *model.Chest) (bool, error) {
	rewards, err := json.Marshal(c.PossibleRewards)
	if err != nil {
		return false, fmt.Errorf("failed to encode chest rewards: %w", err)
	}

	query, args, err := squirrel.
		Insert("chests").
		Columns("type", "name", "possible_rewards", "updated_at").
		Values(string(c.Type), c.Name, string(rewards), time.Now().UTC()).
		Suffix("ON CONFLICT (type) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build chest insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert chest: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return rows > 0, nil
}
