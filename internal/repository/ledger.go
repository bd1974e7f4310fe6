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
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type gemTransaction struct {
	ID          uuid.UUID `db:"id"`
	UserID      int64     `db:"user_id"`
	Type        string    `db:"type"`
	Points      *int64    `db:"points"`
	Gems        int64     `db:"gems"`
	Description string    `db:"description"`
	Status      string    `db:"status"`
	Metadata    []byte    `db:"metadata"`
	CreatedAt   time.Time `db:"created_at"`
}

var gemTransactionColumns = []string{
	"id", "user_id", "type", "points", "gems", "description", "status", "metadata", "created_at",
}

func (t *gemTransaction) toModel() (*model.GemTransaction, error) {
	out := &model.GemTransaction{
		ID:          t.ID,
		UserID:      t.UserID,
		Type:        model.GemTransactionType(t.Type),
		Points:      t.Points,
		Gems:        t.Gems,
		Description: t.Description,
		Status:      model.TransactionStatus(t.Status),
		CreatedAt:   t.CreatedAt,
	}
	if len(t.Metadata) > 0 {
		if err := json.Unmarshal(t.Metadata, &out.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode transaction metadata: %w", err)
		}
	}
	return out, nil
}

type pointTransaction struct {
	ID        uuid.UUID `db:"id"`
	UserID    int64     `db:"user_id"`
	Amount    int64     `db:"amount"`
	Reason    string    `db:"reason"`
	CreatedAt time.Time `db:"created_at"`
}

func (r *Repository) creditPointsTx(ctx context.Context, tx *sqlx.Tx, userID, amount int64, reason string) (int64, error) {
	query, args, err := squirrel.
		Update("users").
		Set("points", squirrel.Expr("points + ?", amount)).
		Where(squirrel.Eq{"telegram_id": userID}).
		Suffix("RETURNING points").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var points int64
	if err = tx.GetContext(ctx, &points, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to credit points: %w", err)
	}

	if err = r.insertPointTransactionTx(ctx, tx, userID, amount, reason); err != nil {
		return 0, err
	}
	return points, nil
}

// debitPointsTx only succeeds when the balance covers the amount; the check
// and the decrement are one statement.
func (r *Repository) debitPointsTx(ctx context.Context, tx *sqlx.Tx, userID, amount int64, reason string) (int64, error) {
	query, args, err := squirrel.
		Update("users").
		Set("points", squirrel.Expr("points - ?", amount)).
		Where(squirrel.And{
			squirrel.Eq{"telegram_id": userID},
			squirrel.GtOrEq{"points": amount},
		}).
		Suffix("RETURNING points").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var points int64
	if err = tx.GetContext(ctx, &points, query, args...); err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("failed to debit points: %w", err)
		}
		exists, existsErr := r.userExistsTx(ctx, tx, userID)
		if existsErr != nil {
			return 0, existsErr
		}
		if !exists {
			return 0, ErrNotFound
		}
		return 0, ErrInsufficientPoints
	}

	if err = r.insertPointTransactionTx(ctx, tx, userID, -amount, reason); err != nil {
		return 0, err
	}
	return points, nil
}

func (r *Repository) creditGemsTx(ctx context.Context, tx *sqlx.Tx, userID, gems int64) (int64, error) {
	query, args, err := squirrel.
		Insert("gem_balances").
		Columns("user_id", "gems", "updated_at").
		Values(userID, gems, time.Now().UTC()).
		Suffix("ON CONFLICT (user_id) DO UPDATE SET gems = gem_balances.gems + EXCLUDED.gems, updated_at = EXCLUDED.updated_at RETURNING gems").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var balance int64
	if err = tx.GetContext(ctx, &balance, query, args...); err != nil {
		if isForeignKeyViolation(err) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("failed to credit gems: %w", err)
	}
	return balance, nil
}

func (r *Repository) debitGemsTx(ctx context.Context, tx *sqlx.Tx, userID, gems int64) (int64, error) {
	query, args, err := squirrel.
		Update("gem_balances").
		Set("gems", squirrel.Expr("gems - ?", gems)).
		Set("updated_at", time.Now().UTC()).
		Where(squirrel.And{
			squirrel.Eq{"user_id": userID},
			squirrel.GtOrEq{"gems": gems},
		}).
		Suffix("RETURNING gems").
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return 0, err
	}

	var balance int64
	if err = tx.GetContext(ctx, &balance, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrInsufficientGems
		}
		return 0, fmt.Errorf("failed to debit gems: %w", err)
	}
	return balance, nil
}

func (r *Repository) insertPointTransactionTx(ctx context.Context, tx *sqlx.Tx, userID, amount int64, reason string) error {
	query, args, err := squirrel.
		Insert("point_transactions").
		Columns("id", "user_id", "amount", "reason", "created_at").
		Values(uuid.New(), userID, amount, reason, time.Now().UTC()).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert point transaction: %w", err)
	}
	return nil
}

func (r *Repository) insertGemTransactionTx(ctx context.Context, tx *sqlx.Tx, t *model.GemTransaction) error {
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	if t.Status == "" {
		t.Status = model.TxStatusCompleted
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}

	metadata := []byte("{}")
	if len(t.Metadata) > 0 {
		var err error
		if metadata, err = json.Marshal(t.Metadata); err != nil {
			return fmt.Errorf("failed to encode transaction metadata: %w", err)
		}
	}

	query, args, err := squirrel.
		Insert("gem_transactions").
		Columns(gemTransactionColumns...).
		Values(t.ID, t.UserID, string(t.Type), t.Points, t.Gems, t.Description, string(t.Status), string(metadata), t.CreatedAt).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	if _, err = tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to insert gem transaction: %w", err)
	}
	return nil
}

// applyGrantTx pays out a resolved reward inside tx. Badges change no balance
// and are recorded as a zero-gem reward row carrying the badge id.
func (r *Repository) applyGrantTx(ctx context.Context, tx *sqlx.Tx, userID int64, grant model.Grant) error {
	switch grant.Type {
	case model.RewardPoints:
		_, err := r.creditPointsTx(ctx, tx, userID, grant.Amount, grant.Reason)
		return err
	case model.RewardGems:
		if _, err := r.creditGemsTx(ctx, tx, userID, grant.Amount); err != nil {
			return err
		}
		return r.insertGemTransactionTx(ctx, tx, &model.GemTransaction{
			UserID:      userID,
			Type:        model.GemTxReward,
			Gems:        grant.Amount,
			Description: grant.Reason,
			Status:      model.TxStatusCompleted,
			Metadata:    grant.Metadata,
		})
	case model.RewardBadge:
		metadata := make(map[string]any, len(grant.Metadata)+1)
		for k, v := range grant.Metadata {
			metadata[k] = v
		}
		metadata["badge_id"] = grant.BadgeID
		return r.insertGemTransactionTx(ctx, tx, &model.GemTransaction{
			UserID:      userID,
			Type:        model.GemTxReward,
			Description: grant.Reason,
			Status:      model.TxStatusCompleted,
			Metadata:    metadata,
		})
	default:
		return fmt.Errorf("unsupported grant type %q", grant.Type)
	}
}

// ConvertPointsToGems debits pointsUsed, credits gems and records the
// conversion, all or nothing.
func (r *Repository) ConvertPointsToGems(ctx context.Context, userID, pointsUsed, gems int64) (*model.ConversionResult, error) {
	result := &model.ConversionResult{GemsEarned: gems, PointsUsed: pointsUsed}

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		points, err := r.debitPointsTx(ctx, tx, userID, pointsUsed, "conversion to gems")
		if err != nil {
			return err
		}

		balance, err := r.creditGemsTx(ctx, tx, userID, gems)
		if err != nil {
			return err
		}

		result.NewPointBalance = points
		result.NewGemBalance = balance

		return r.insertGemTransactionTx(ctx, tx, &model.GemTransaction{
			UserID:      userID,
			Type:        model.GemTxConversion,
			Points:      &pointsUsed,
			Gems:        gems,
			Description: fmt.Sprintf("converted %d points to %d gems", pointsUsed, gems),
			Status:      model.TxStatusCompleted,
		})
	})
	if err != nil {
		return nil, err
	}

	return result, nil
}

// AdjustGems applies a signed administrative change and returns the recorded
// transaction and the new balance.
func (r *Repository) AdjustGems(ctx context.Context, t *model.GemTransaction) (int64, error) {
	var balance int64

	err := r.Transaction(ctx, func(tx *sqlx.Tx) error {
		var err error
		if t.Gems >= 0 {
			balance, err = r.creditGemsTx(ctx, tx, t.UserID, t.Gems)
		} else {
			balance, err = r.debitGemsTx(ctx, tx, t.UserID, -t.Gems)
		}
		if err != nil {
			return err
		}

		return r.insertGemTransactionTx(ctx, tx, t)
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

func (r *Repository) ListGemTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.GemTransaction, error) {
	query, args, err := squirrel.
		Select(gemTransactionColumns...).
		From("gem_transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []gemTransaction
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list gem transactions: %w", err)
	}

	out := make([]*model.GemTransaction, len(rows))
	for i := range rows {
		t, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out[i] = t
	}
	return out, nil
}

func (r *Repository) ListPointTransactions(ctx context.Context, userID int64, limit, offset uint64) ([]*model.PointTransaction, error) {
	query, args, err := squirrel.
		Select("id", "user_id", "amount", "reason", "created_at").
		From("point_transactions").
		Where(squirrel.Eq{"user_id": userID}).
		OrderBy("created_at DESC").
		Limit(limit).
		Offset(offset).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var rows []pointTransaction
	if err = r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list point transactions: %w", err)
	}

	out := make([]*model.PointTransaction, len(rows))
	for i, row := range rows {
		out[i] = &model.PointTransaction{
			ID:        row.ID,
			UserID:    row.UserID,
			Amount:    row.Amount,
			Reason:    row.Reason,
			CreatedAt: row.CreatedAt,
		}
	}
	return out, nil
}

// UpdateGemTransactionStatus moves a pending transaction to a final status.
func (r *Repository) UpdateGemTransactionStatus(ctx context.Context, id uuid.UUID, status model.TransactionStatus) error {
	query, args, err := squirrel.
		Update("gem_transactions").
		Set("status", string(status)).
		Where(squirrel.Eq{"id": id, "status": string(model.TxStatusPending)}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update transaction status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}

	existsQuery, existsArgs, err := squirrel.
		Select("1").
		From("gem_transactions").
		Where(squirrel.Eq{"id": id}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return err
	}

	var one int
	if err = r.db.GetContext(ctx, &one, existsQuery, existsArgs...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return ErrTransactionFinal
}
