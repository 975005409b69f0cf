package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/TwinBot/internal/models"
)

// ErrNotFound is returned by lookups when no row exists for the key.
// Any other lookup error means the store itself is unavailable.
var ErrNotFound = errors.New("record not found")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByUserID(ctx context.Context, userID int64) (*models.User, error) {
	const query = `
SELECT user_id, paid, messages_used, created_at, updated_at
FROM users WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var u models.User
	if err := row.Scan(&u.UserID, &u.Paid, &u.MessagesUsed, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

// Ensure inserts a fresh record for userID unless one exists and reports whether it did.
func (r *UserRepository) Ensure(ctx context.Context, userID int64) (bool, error) {
	const query = `INSERT IGNORE INTO users (user_id, paid, messages_used) VALUES (?, FALSE, 0)`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("user rows affected: %w", err)
	}
	return affected > 0, nil
}

// IncrementUsage bumps messages_used for an unpaid user in a single statement.
// LAST_INSERT_ID(expr) hands the new value back on the same connection, so
// concurrent turns for one user never read the same counter.
// Paid users are returned unchanged.
func (r *UserRepository) IncrementUsage(ctx context.Context, userID int64) (*models.User, error) {
	const query = `
UPDATE users SET messages_used = LAST_INSERT_ID(messages_used + 1)
WHERE user_id = ? AND paid = FALSE`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("usage rows affected: %w", err)
	}
	if affected == 0 {
		return r.FindByUserID(ctx, userID)
	}
	used, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("usage last insert id: %w", err)
	}
	return &models.User{UserID: userID, MessagesUsed: int(used)}, nil
}

func (r *UserRepository) SetPaid(ctx context.Context, userID int64, paid bool) error {
	const query = `
INSERT INTO users (user_id, paid, messages_used) VALUES (?, ?, 0)
ON DUPLICATE KEY UPDATE paid = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, paid, paid); err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return nil
}

func (r *UserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	const query = `SELECT user_id FROM users`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan user id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
