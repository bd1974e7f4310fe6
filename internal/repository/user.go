package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"edu_rewards/internal/model"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
)

type User struct {
	TelegramID       int64     `db:"telegram_id"`
	Handle           string    `db:"handle"`
	Username         string    `db:"username"`
	Email            string    `db:"email"`
	Role             string    `db:"role"`
	Points           int64     `db:"points"`
	RegistrationDate time.Time `db:"registration_date"`
	AuthDate         time.Time `db:"last_auth_date"`
}

var userColumns = []string{
	"telegram_id",
	"handle",
	"username",
	"email",
	"role",
	"points",
	"registration_date",
	"last_auth_date",
}

func (u *User) toModel() *model.User {
	return &model.User{
		TelegramID:       u.TelegramID,
		Handle:           u.Handle,
		Username:         u.Username,
		Email:            u.Email,
		Role:             model.Role(u.Role),
		Points:           u.Points,
		RegistrationDate: u.RegistrationDate,
		AuthDate:         u.AuthDate,
	}
}

// CreateUser inserts the user together with an empty gem balance.
func (r *Repository) CreateUser(ctx context.Context, user *model.User) error {
	return r.Transaction(ctx, func(tx *sqlx.Tx) error {
		query, args, err := squirrel.
			Insert("users").
			SetMap(map[string]interface{}{
				"telegram_id":       user.TelegramID,
				"handle":            user.Handle,
				"username":          user.Username,
				"email":             user.Email,
				"role":              string(user.Role),
				"points":            0,
				"registration_date": user.RegistrationDate,
				"last_auth_date":    user.AuthDate,
			}).
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build user insert query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			if isUniqueViolation(err) {
				return ErrAlreadyExists
			}
			return fmt.Errorf("failed to insert user: %w", err)
		}

		balanceQuery, balanceArgs, err := squirrel.
			Insert("gem_balances").
			Columns("user_id", "gems").
			Values(user.TelegramID, 0).
			Suffix("ON CONFLICT (user_id) DO NOTHING").
			PlaceholderFormat(squirrel.Dollar).
			ToSql()
		if err != nil {
			return fmt.Errorf("failed to build gem balance insert query: %w", err)
		}

		if _, err = tx.ExecContext(ctx, balanceQuery, balanceArgs...); err != nil {
			return fmt.Errorf("failed to insert gem balance: %w", err)
		}

		return nil
	})
}

func (r *Repository) GetUserByTelegramID(ctx context.Context, telegramID int64) (*model.User, error) {
	var user User
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	err = r.db.GetContext(ctx, &user, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return user.toModel(), nil
}

func (r *Repository) GetTopUsers(ctx context.Context, limit int) ([]*model.User, error) {
	query, args, err := squirrel.
		Select(userColumns...).
		From("users").
		OrderBy("points DESC", "telegram_id").
		Limit(uint64(limit)).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var users []User
	if err = r.db.SelectContext(ctx, &users, query, args...); err != nil {
		return nil, fmt.Errorf("failed to get top users: %w", err)
	}

	userList := make([]*model.User, len(users))
	for i := range users {
		userList[i] = users[i].toModel()
	}

	return userList, nil
}

// GetBalance reads both counters. A user without a gem balance row has zero gems.
func (r *Repository) GetBalance(ctx context.Context, telegramID int64) (*model.Balance, error) {
	query, args, err := squirrel.
		Select("u.telegram_id", "u.points", "COALESCE(g.gems, 0) AS gems").
		From("users u").
		LeftJoin("gem_balances g ON g.user_id = u.telegram_id").
		Where(squirrel.Eq{"u.telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return nil, err
	}

	var row struct {
		UserID int64 `db:"telegram_id"`
		Points int64 `db:"points"`
		Gems   int64 `db:"gems"`
	}
	if err = r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	return &model.Balance{UserID: row.UserID, Points: row.Points, Gems: row.Gems}, nil
}

func (r *Repository) userExistsTx(ctx context.Context, tx *sqlx.Tx, telegramID int64) (bool, error) {
	query, args, err := squirrel.
		Select("1").
		From("users").
		Where(squirrel.Eq{"telegram_id": telegramID}).
		PlaceholderFormat(squirrel.Dollar).
		ToSql()
	if err != nil {
		return false, err
	}

	var one int
	err = tx.GetContext(ctx, &one, query, args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
