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
	"github.com/jmoiron/sqlx"
)

type calendarDay struct {
	Date      time.Time `db:"date"`
	Reward    []byte    `db:"reward"`
	Theme     []byte    `db:"theme"`
	CreatedAt time.Time `db:"created_at"`
}

func (d *calendarDay) toModel() (*model.CalendarDay, error) {
	day := &model.CalendarDay{
		Date:      model.DateKey(d.Date),
		CreatedAt: d.CreatedAt,
	}
	if err := json.Unmarshal(d.Reward, &day.Reward); err != nil {
		return nil, fmt.Errorf("failed to decode calendar reward: %w", err)
	}
	if len(d.Theme) > 0 {
		if err := json.Unmarshal(d.Theme, &day.Theme); err != nil {
			return nil, fmt.Errorf("failed to decode calendar theme: %w", err)
		}
	}
	return day, nil
}

type calendarClaim struct {
	UserID      int64     `db:"user_id"`
	Date        time.Time `db:"date"`
	RewardType  string    `db:"reward_type"`
	Amount      int64     `db:"amount"`
	ChestType   string    `db:"chest_type"`
	ChestReward []byte    `db:"chest_reward"`
	ClaimedAt   time.Time `db:"claimed_at"`
}

func (c *calendarClaim) toModel() (*model.CalendarClaim, error) {
	claim := &model.CalendarClaim{
		UserID:     c.UserID,
		Date:       model.DateKey(c.Date),
		RewardType: model.RewardType(c.RewardType),
		Amount:     c.Amount,
		ChestType:  model.ChestType(c.ChestType),
		ClaimedAt:  c.ClaimedAt,
	}
	if len(c.ChestReward) > 0 {
		var reward model.ChestReward
		if err := json.Unmarshal(c.ChestReward, &reward); err != nil {
			return nil, fmt.Errorf("failed to decode chest reward: %w", err)
		}
		claim.ChestReward = &reward
	}
	return claim, nil
}

// InsertCalendarDays stores the given days, leaving dates that already exist
// untouched. It returns how many rows were actually created.
func (r *Repository) InsertCalendarDays(ctx context.Context, days []*model.CalendarDay) (int64, error) {
	if len(days) == 0 {
		return 0, nil
	}

	builder := squirrel.
		Insert("calendar_days").
		Columns("date", "reward", "theme", "created_at")

	now := time.Now().UTC()
	for _, day := range days {
		reward, err := json.Marshal(day.Reward)
		if err != nil {
			return 0, fmt.Errorf("failed to encode calendar reward: %w", err)
		}
		theme, err := json.Marshal(day.Theme)
		if err != nil {
			return 0, fmt.Errorf("failed to encode calendar theme: %w", err)
		}
		builder = builder.Values(model.DateKey(day.Date), string(reward), string(theme), now)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (date) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build calendar insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to insert calendar days: %w", err)
	}

	return result.RowsAffected()
}

func (r *Repository) GetCalendarDays(ctx context.Context, start, end time.Time) ([]*model.CalendarDay, error) {
	query, args, err := squirrel.
		Select("date", "reward", "theme", "created_at").
		From("calendar_days").
		Where(squirrel.And{
			squirrel.GtOrEq{"date": model.DateKey(start)},
			squirrel.LtOrEq{"date": model.DateKey(end)},
		}).
		OrderBy("date").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []calendarDay
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get calendar days: %w", err)
	}

	days := make([]*model.CalendarDay, len(rows))
	for i := range rows {
		day, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		days[i] = day
	}
	return days, nil
}

func (r *Repository) GetCalendarDay(ctx context.Context, date time.Time) (*model.CalendarDay, error) {
	query, args, err := squirrel.
		Select("date", "reward", "theme", "created_at").
		From("calendar_days").
		Where(squirrel.Eq{"date": model.DateKey(date)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row calendarDay
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}

	return row.toModel()
}

// GetClaimedDates returns the date keys the user has claimed within [start, end].
func (r *Repository) GetClaimedDates(ctx context.Context, userID int64, start, end time.Time) (map[time.Time]struct{}, error) {
	query, args, err := squirrel.
		Select("date").
		From("calendar_claims").
		Where(squirrel.And{
			squirrel.Eq{"user_id": userID},
			squirrel.GtOrEq{"date": model.DateKey(start)},
			squirrel.LtOrEq{"date": model.DateKey(end)},
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var dates []time.Time
	if err = r.db.SelectContext(ctx, &dates, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get claimed dates: %w", err)
	}

	claimed := make(map[time.Time]struct{}, len(dates))
	for _, d := range dates {
		claimed[model.DateKey(d)] = struct{}{}
	}
	return claimed, nil
}

func (r *Repository) HasCalendarClaim(ctx context.Context, userID int64, date time.Time) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		From("calendar_claims").
		Where(squirrel.Eq{"user_id": userID, "date": model.DateKey(date)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	if err = r.db.GetContext(ctx, &one, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check calendar claim: %w", err)
	}
	return true, nil
}

// CreateCalendarClaim records the claim and pays out the grants in one
// transaction. The claim insert runs first: its primary key on (user_id, date)
// is what lets exactly one of several concurrent claims through.
func (r *Repository) CreateCalendarClaim(ctx context.Context, claim *model.CalendarClaim, grants []model.Grant) error {
	var chestReward *string
	if claim.ChestReward != nil {
		raw, err := json.Marshal(claim.ChestReward)
		if err != nil {
			return fmt.Errorf("failed to encode chest reward: %w", err)
		}
		s := string(raw)
		chestReward = &s
	}

	if claim.ClaimedAt.IsZero() {
		claim.ClaimedAt = time.Now().UTC()
	}

	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("calendar_claims").
			SetMap(map[string]interface{}{
				"user_id":      claim.UserID,
				"date":         model.DateKey(claim.Date),
				"reward_type":  string(claim.RewardType),
				"amount":       claim.Amount,
				"chest_type":   string(claim.ChestType),
				"chest_reward": chestReward,
				"claimed_at":   claim.ClaimedAt,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build claim insert query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			switch {
			case isUniqueViolation(err):
				return ErrAlreadyClaimed
			case isForeignKeyViolation(err):
				return ErrNotFound
			}
			return fmt.Errorf("failed to insert calendar claim: %w", err)
		}

		for _, grant := range grants {
			if err = r.applyGrantTx(ctx, tx, claim.UserID, grant); err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *Repository) ListCalendarClaims(ctx context.Context, userID int64, limit uint64) ([]*model.CalendarClaim, error) {
	query, args, err := squirrel.
		Select("user_id", "date", "reward_type", "amount", "chest_type", "chest_reward", "claimed_at").
		From("calendar_claims").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("date DESC").
		Limit(limit).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []calendarClaim
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list calendar claims: %w", err)
	}

	claims := make([]*model.CalendarClaim, len(rows))
	for i := range rows {
		claim, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		claims[i] = claim
	}
	return claims, nil
}
