package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"edu_rewards/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type quest struct {
	ID           uuid.UUID `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	Period       string    `db:"period"`
	Action       string    `db:"action"`
	Target       int       `db:"target"`
	RewardType   string    `db:"reward_type"`
	RewardAmount int64     `db:"reward_amount"`
	BadgeID      string    `db:"badge_id"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
}

var questColumns = []string{
	"id", "title", "description", "period", "action", "target",
	"reward_type", "reward_amount", "badge_id", "is_active", "created_at",
}

func (q *quest) toModel() *model.Quest {
	return &model.Quest{
		ID:           q.ID,
		Title:        q.Title,
		Description:  q.Description,
		Period:       model.Period(q.Period),
		Action:       q.Action,
		Target:       q.Target,
		RewardType:   model.RewardType(q.RewardType),
		RewardAmount: q.RewardAmount,
		BadgeID:      q.BadgeID,
		IsActive:     q.IsActive,
		CreatedAt:    q.CreatedAt,
	}
}

type questProgress struct {
	ID           uuid.UUID  `db:"id"`
	UserID       int64      `db:"user_id"`
	QuestID      uuid.UUID  `db:"quest_id"`
	Title        string     `db:"title"`
	Period       string     `db:"period"`
	PeriodStart  time.Time  `db:"period_start"`
	Action       string     `db:"action"`
	Progress     int        `db:"progress"`
	Target       int        `db:"target"`
	RewardType   string     `db:"reward_type"`
	RewardAmount int64      `db:"reward_amount"`
	BadgeID      string     `db:"badge_id"`
	Claimed      bool       `db:"claimed"`
	ClaimedAt    *time.Time `db:"claimed_at"`
	CreatedAt    time.Time  `db:"created_at"`
}

var questProgressColumns = []string{
	"id", "user_id", "quest_id", "title", "period", "period_start", "action", "progress", "target",
	"reward_type", "reward_amount", "badge_id", "claimed", "claimed_at", "created_at",
}

func (p *questProgress) toModel() *model.UserQuestProgress {
	return &model.UserQuestProgress{
		ID:           p.ID,
		UserID:       p.UserID,
		QuestID:      p.QuestID,
		Title:        p.Title,
		Period:       model.Period(p.Period),
		PeriodStart:  model.DateKey(p.PeriodStart),
		Action:       p.Action,
		Progress:     p.Progress,
		Target:       p.Target,
		RewardType:   model.RewardType(p.RewardType),
		RewardAmount: p.RewardAmount,
		BadgeID:      p.BadgeID,
		Claimed:      p.Claimed,
		ClaimedAt:    p.ClaimedAt,
		CreatedAt:    p.CreatedAt,
	}
}

func progressList(rows []questProgress) []*model.UserQuestProgress {
	out := make([]*model.UserQuestProgress, len(rows))
	for i := range rows {
		out[i] = rows[i].toModel()
	}
	return out
}

func (r *Repository) CreateQuest(ctx context.Context, q *model.Quest) error {
	query, args, err := squirrel.
		Insert("quests").
		Columns(questColumns...).
		Values(q.ID, q.Title, q.Description, string(q.Period), q.Action, q.Target,
			string(q.RewardType), q.RewardAmount, q.BadgeID, q.IsActive, q.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build quest insert query: %w", err)
	}

	if _, err = r.db.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("failed to insert quest: %w", err)
	}
	return nil
}

func (r *Repository) GetQuest(ctx context.Context, questID uuid.UUID) (*model.Quest, error) {
	query, args, err := squirrel.
		Select(questColumns...).
		From("quests").
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row quest
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quest: %w", err)
	}
	return row.toModel(), nil
}

// ListQuests returns quest definitions, optionally only active ones and only
// for the given periods.
func (r *Repository) ListQuests(ctx context.Context, activeOnly bool, periods ...model.Period) ([]*model.Quest, error) {
	builder := squirrel.
		Select(questColumns...).
		From("quests").
		OrderBy("created_at", "id")

	if activeOnly {
		builder = builder.Where(squirrel.Eq{"is_active": true})
	}
	if len(periods) > 0 {
		names := make([]string, len(periods))
		for i, p := range periods {
			names[i] = string(p)
		}
		builder = builder.Where("period = ANY(?)", pq.Array(names))
	}

	query, args, err := builder.PlaceholderFormat(squirrel.Dollar).ToSql()
	if err != nil {
		return nil, err
	}

	var rows []quest
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}

	quests := make([]*model.Quest, len(rows))
	for i := range rows {
		quests[i] = rows[i].toModel()
	}
	return quests, nil
}

func (r *Repository) SetQuestActive(ctx context.Context, questID uuid.UUID, active bool) error {
	query, args, err := squirrel.
		Update("quests").
		Set("is_active", active).
		Where(squirrel.Eq{"id": questID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update quest: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertQuestProgress creates the given instances, skipping any that already
// exist for the same (user, quest, period start).
func (r *Repository) InsertQuestProgress(ctx context.Context, entries []*model.UserQuestProgress) (int64, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	builder := squirrel.
		Insert("user_quest_progress").
		Columns(questProgressColumns...)

	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		builder = builder.Values(e.ID, e.UserID, e.QuestID, e.Title, string(e.Period), model.DateKey(e.PeriodStart),
			e.Action, e.Progress, e.Target, string(e.RewardType), e.RewardAmount, e.BadgeID,
			e.Claimed, e.ClaimedAt, e.CreatedAt)
	}

	query, args, err := builder.
		Suffix("ON CONFLICT (user_id, quest_id, period_start) DO NOTHING").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build quest progress insert query: %w", err)
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to insert quest progress: %w", err)
	}
	return result.RowsAffected()
}

// ListQuestProgress returns the user's instances whose window starts at the
// given start for each period.
func (r *Repository) ListQuestProgress(ctx context.Context, userID int64, starts map[model.Period]time.Time) ([]*model.UserQuestProgress, error) {
	if len(starts) == 0 {
		return []*model.UserQuestProgress{}, nil
	}

	query, args, err := squirrel.
		Select(questProgressColumns...).
		From("user_quest_progress").
		Where(squirrel.Eq{"user_id": userID}).
		Where(windowFilter(starts)).
		OrderBy("period", "created_at", "id").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []questProgress
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list quest progress: %w", err)
	}
	return progressList(rows), nil
}

func (r *Repository) GetQuestProgress(ctx context.Context, userID int64, questID uuid.UUID, periodStart time.Time) (*model.UserQuestProgress, error) {
	query, args, err := squirrel.
		Select(questProgressColumns...).
		From("user_quest_progress").
		Where(squirrel.Eq{
			"user_id":      userID,
			"quest_id":     questID,
			"period_start": model.DateKey(periodStart),
		}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row questProgress
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get quest progress: %w", err)
	}
	return row.toModel(), nil
}

// IncrementQuestProgress adds amount to every unclaimed current instance that
// tracks action and returns the updated rows.
func (r *Repository) IncrementQuestProgress(ctx context.Context, userID int64, action string, starts map[model.Period]time.Time, amount int) ([]*model.UserQuestProgress, error) {
	if len(starts) == 0 {
		return []*model.UserQuestProgress{}, nil
	}

	query, args, err := squirrel.
		Update("user_quest_progress").
		Set("progress", squirrel.Expr("progress + ?", amount)).
		Where(squirrel.Eq{
			"user_id": userID,
			"action":  action,
			"claimed": false,
		}).
		Where(windowFilter(starts)).
		Suffix("RETURNING " + strings.Join(questProgressColumns, ", ")).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []questProgress
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to increment quest progress: %w", err)
	}
	return progressList(rows), nil
}

// ClaimQuestProgress marks the instance claimed and pays out grant in one
// transaction. The guarded update is the gate: only one caller can flip
// claimed from false to true.
func (r *Repository) ClaimQuestProgress(ctx context.Context, progressID uuid.UUID, userID int64, grant model.Grant) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Update("user_quest_progress").
			Set("claimed", true).
			Set("claimed_at", time.Now().UTC()).
			Where(squirrel.Eq{
				"id":      progressID,
				"user_id": userID,
				"claimed": false,
			}).
			Where("progress >= target").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("failed to claim quest progress: %w", err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyClaimed
		}

		return r.applyGrantTx(ctx, tx, userID, grant)
	})
}

func windowFilter(starts map[model.Period]time.Time) squirrel.Or {
	or := squirrel.Or{}
	for _, p := range model.Periods {
		start, ok := starts[p]
		if !ok {
			continue
		}
		or = append(or, squirrel.Eq{"period": string(p), "period_start": model.DateKey(start)})
	}
	return or
}
