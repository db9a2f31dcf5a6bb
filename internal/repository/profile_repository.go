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

// ProfileRepository persists student profiles.
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository constructs a profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// FindByUserID returns the profile owned by userID or sql.ErrNoRows.
func (r *ProfileRepository) FindByUserID(ctx context.Context, userID string) (*models.Profile, error) {
	const query = `SELECT id, user_id, phone, address, location, date_of_birth, image_url, created_at, updated_at FROM profiles WHERE user_id = $1 LIMIT 1`
	var profile models.Profile
	if err := r.db.GetContext(ctx, &profile, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find profile: %w", err)
	}
	return &profile, nil
}

// Create inserts a profile. A profile already owned by the same account is overwritten,
// and profile.ID then names the existing row.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.Profile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	profile.UpdatedAt = now
	const query = `INSERT INTO profiles (id, user_id, phone, address, location, date_of_birth, image_url, created_at, updated_at) VALUES (:id, :user_id, :phone, :address, :location, :date_of_birth, :image_url, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET phone = EXCLUDED.phone, address = EXCLUDED.address, location = EXCLUDED.location, date_of_birth = EXCLUDED.date_of_birth, image_url = EXCLUDED.image_url, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	if err := upsertOwned(ctx, r.db, query, profile, &profile.ID, &profile.CreatedAt); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Update overwrites the mutable profile columns.
func (r *ProfileRepository) Update(ctx context.Context, profile *models.Profile) error {
	profile.UpdatedAt = time.Now().UTC()
	const query = `UPDATE profiles SET phone = :phone, address = :address, location = :location, date_of_birth = :date_of_birth, image_url = :image_url, updated_at = :updated_at WHERE user_id = :user_id`
	result, err := r.db.NamedExecContext(ctx, query, profile)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return nil
}

// DeleteByUserID removes the profile and reports whether one existed.
func (r *ProfileRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	return deleteByColumn(ctx, r.db, "profiles", "user_id", userID)
}
