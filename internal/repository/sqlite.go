package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/TwinBot/internal/models"
)

// SQLiteUserRepository backs STORE_DRIVER=sqlite for single-instance deployments.
// Timestamps are left to column defaults and not read back.
type SQLiteUserRepository struct {
	db *sql.DB
}

func NewSQLiteUserRepository(db *sql.DB) *SQLiteUserRepository {
	return &SQLiteUserRepository{db: db}
}

func (r *SQLiteUserRepository) FindByUserID(ctx context.Context, userID int64) (*models.User, error) {
	const query = `SELECT user_id, paid, messages_used FROM users WHERE user_id = ?`
	var u models.User
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &u.Paid, &u.MessagesUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *SQLiteUserRepository) Ensure(ctx context.Context, userID int64) (bool, error) {
	const query = `INSERT INTO users (user_id, paid, messages_used) VALUES (?, 0, 0) ON CONFLICT (user_id) DO NOTHING`
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

func (r *SQLiteUserRepository) IncrementUsage(ctx context.Context, userID int64) (*models.User, error) {
	const query = `
UPDATE users SET messages_used = messages_used + 1, updated_at = CURRENT_TIMESTAMP
WHERE user_id = ? AND paid = 0
RETURNING user_id, paid, messages_used`
	var u models.User
	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&u.UserID, &u.Paid, &u.MessagesUsed); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return r.FindByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return &u, nil
}

func (r *SQLiteUserRepository) SetPaid(ctx context.Context, userID int64, paid bool) error {
	const query = `
INSERT INTO users (user_id, paid, messages_used) VALUES (?, ?, 0)
ON CONFLICT (user_id) DO UPDATE SET paid = excluded.paid, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, userID, paid); err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return nil
}

func (r *SQLiteUserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT user_id FROM users ORDER BY user_id`)
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

type SQLiteMemoryRepository struct {
	db *sql.DB
}

func NewSQLiteMemoryRepository(db *sql.DB) *SQLiteMemoryRepository {
	return &SQLiteMemoryRepository{db: db}
}

func (r *SQLiteMemoryRepository) Find(ctx context.Context, userID int64) (*models.Memory, error) {
	var m models.Memory
	err := r.db.QueryRowContext(ctx, `SELECT user_id, content FROM memory WHERE user_id = ?`, userID).Scan(&m.UserID, &m.Content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return &m, nil
}

func (r *SQLiteMemoryRepository) Upsert(ctx context.Context, userID int64, content string) error {
	const query = `
INSERT INTO memory (user_id, content) VALUES (?, ?)
ON CONFLICT (user_id) DO UPDATE SET content = excluded.content, updated_at = CURRENT_TIMESTAMP`
	if _, err := r.db.ExecContext(ctx, query, userID, content); err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}
