package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

// ProgressRepository persists tagged progress payloads.
type ProgressRepository struct {
	db *sqlx.DB
}

// NewProgressRepository constructs a progress repository.
func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// FindByUserID returns the stored progress row or sql.ErrNoRows.
func (r *ProgressRepository) FindByUserID(ctx context.Context, userID string) (*models.StoredProgress, error) {
	const query = `SELECT id, user_id, shape_version, payload, created_at, updated_at FROM progress_records WHERE user_id = $1 LIMIT 1`
	var stored models.StoredProgress
	if err := r.db.GetContext(ctx, &stored, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return &stored, nil
}

// Create inserts a progress row unless the account already owns one, in which case
// stored is replaced by the existing row.
func (r *ProgressRepository) Create(ctx context.Context, stored *models.StoredProgress) error {
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	const query = `INSERT INTO progress_records (id, user_id, shape_version, payload, created_at, updated_at) VALUES (:id, :user_id, :shape_version, :payload, :created_at, :updated_at) ON CONFLICT (user_id) DO NOTHING`
	result, err := r.db.NamedExecContext(ctx, query, stored)
	if err != nil {
		return fmt.Errorf("create progress: %w", err)
	}
	if err := requireAffected(result); err == nil {
		return nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("create progress: %w", err)
	}
	existing, err := r.FindByUserID(ctx, stored.UserID)
	if err != nil {
		return fmt.Errorf("reload progress: %w", err)
	}
	*stored = *existing
	return nil
}

// Update rewrites the payload and its shape tag.
func (r *ProgressRepository) Update(ctx context.Context, stored *models.StoredProgress) error {
	stored.UpdatedAt = time.Now().UTC()
	const query = `UPDATE progress_records SET shape_version = :shape_version, payload = :payload, updated_at = :updated_at WHERE user_id = :user_id`
	result, err := r.db.NamedExecContext(ctx, query, stored)
	if err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return fmt.Errorf("update progress: %w", err)
	}
	return nil
}

// DeleteByUserID removes the progress row and reports whether one existed.
func (r *ProgressRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	return deleteByColumn(ctx, r.db, "progress_records", "user_id", userID)
}
