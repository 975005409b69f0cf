package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/digkill/TwinBot/internal/models"
)

// PostgresUserRepository stores user records in Postgres (Supabase).
type PostgresUserRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresUserRepository(pool *pgxpool.Pool) *PostgresUserRepository {
	return &PostgresUserRepository{pool: pool}
}

func (r *PostgresUserRepository) FindByUserID(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, paid, messages_used, created_at, updated_at FROM users WHERE user_id = $1`,
		userID,
	).Scan(&u.UserID, &u.Paid, &u.MessagesUsed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) Ensure(ctx context.Context, userID int64) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, paid, messages_used) VALUES ($1, FALSE, 0) ON CONFLICT (user_id) DO NOTHING`,
		userID,
	)
	if err != nil {
		return false, fmt.Errorf("insert user: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// IncrementUsage bumps messages_used for an unpaid user and returns the new
// value in the same round-trip. Paid users are returned unchanged.
func (r *PostgresUserRepository) IncrementUsage(ctx context.Context, userID int64) (*models.User, error) {
	var u models.User
	err := r.pool.QueryRow(ctx,
		`UPDATE users SET messages_used = messages_used + 1, updated_at = now()
		 WHERE user_id = $1 AND NOT paid
		 RETURNING user_id, paid, messages_used, created_at, updated_at`,
		userID,
	).Scan(&u.UserID, &u.Paid, &u.MessagesUsed, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return r.FindByUserID(ctx, userID)
		}
		return nil, fmt.Errorf("increment usage: %w", err)
	}
	return &u, nil
}

func (r *PostgresUserRepository) SetPaid(ctx context.Context, userID int64, paid bool) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (user_id, paid, messages_used) VALUES ($1, $2, 0)
		 ON CONFLICT (user_id) DO UPDATE SET paid = EXCLUDED.paid, updated_at = now()`,
		userID, paid,
	)
	if err != nil {
		return fmt.Errorf("set paid: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) ListUserIDs(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT user_id FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list user ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan user ids: %w", err)
	}
	return ids, nil
}

// PostgresMemoryRepository stores transcripts in Postgres (Supabase).
type PostgresMemoryRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresMemoryRepository(pool *pgxpool.Pool) *PostgresMemoryRepository {
	return &PostgresMemoryRepository{pool: pool}
}

func (r *PostgresMemoryRepository) Find(ctx context.Context, userID int64) (*models.Memory, error) {
	var m models.Memory
	err := r.pool.QueryRow(ctx,
		`SELECT user_id, content, updated_at FROM memory WHERE user_id = $1`,
		userID,
	).Scan(&m.UserID, &m.Content, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return &m, nil
}

func (r *PostgresMemoryRepository) Upsert(ctx context.Context, userID int64, content string) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO memory (user_id, content, updated_at) VALUES ($1, $2, now())
		 ON CONFLICT (user_id) DO UPDATE SET content = EXCLUDED.content, updated_at = now()`,
		userID, content,
	)
	if err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}
