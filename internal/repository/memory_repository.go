package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/digkill/TwinBot/internal/models"
)

type MemoryRepository struct {
	db *sql.DB
}

func NewMemoryRepository(db *sql.DB) *MemoryRepository {
	return &MemoryRepository{db: db}
}

func (r *MemoryRepository) Find(ctx context.Context, userID int64) (*models.Memory, error) {
	const query = `SELECT user_id, content, updated_at FROM memory WHERE user_id = ?`
	row := r.db.QueryRowContext(ctx, query, userID)
	var m models.Memory
	if err := row.Scan(&m.UserID, &m.Content, &m.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan memory: %w", err)
	}
	return &m, nil
}

// Upsert overwrites the stored transcript for userID.
func (r *MemoryRepository) Upsert(ctx context.Context, userID int64, content string) error {
	const query = `
INSERT INTO memory (user_id, content) VALUES (?, ?)
ON DUPLICATE KEY UPDATE content = ?`
	if _, err := r.db.ExecContext(ctx, query, userID, content, content); err != nil {
		return fmt.Errorf("upsert memory: %w", err)
	}
	return nil
}
