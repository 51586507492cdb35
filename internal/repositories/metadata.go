package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/inboxsync/internal/shared"
)

// MetadataRepository maintains the count of items seen upstream since the last successful sync.
type MetadataRepository struct {
	db *sql.DB
}

// NewMetadataRepository creates a new MetadataRepository with the given database connection
func NewMetadataRepository(db *sql.DB) *MetadataRepository {
	return &MetadataRepository{db: db}
}

// Pending returns the current pending item count.
func (r *MetadataRepository) Pending(ctx context.Context) (int, error) {
	var pending int
	if err := r.db.QueryRowContext(ctx, "SELECT pending_items FROM sync_metadata WHERE id = 1").Scan(&pending); err != nil {
		return 0, fmt.Errorf("failed to read pending items: %w", err)
	}
	return pending, nil
}

// AddPending increments the pending item count by n.
func (r *MetadataRepository) AddPending(ctx context.Context, n int) error {
	if n < 0 {
		return fmt.Errorf("%w: pending increment %d", shared.ErrInvalidInput, n)
	}
	return r.exec(ctx, "UPDATE sync_metadata SET pending_items = pending_items + ?, updated_at = ? WHERE id = 1", n, time.Now().UTC())
}

// ResetPending sets the pending item count back to zero.
func (r *MetadataRepository) ResetPending(ctx context.Context) error {
	return r.exec(ctx, "UPDATE sync_metadata SET pending_items = 0, updated_at = ? WHERE id = 1", time.Now().UTC())
}

func (r *MetadataRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update sync metadata: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("sync metadata row missing: %w", sql.ErrNoRows)
	}
	return nil
}
