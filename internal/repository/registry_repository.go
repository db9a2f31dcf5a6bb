package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

const registryColumns = `id, user_id, application_number, vehicle_category, phone, sessions, ll_test_date, dl_test_date, license_validity, total_fee, paid_amount, balance_amount, total_ground_sessions, total_simulation_sessions, total_road_sessions, total_sessions, status, created_at, updated_at`

// RegistryRepository persists registry records.
type RegistryRepository struct {
	db *sqlx.DB
}

// NewRegistryRepository constructs a registry repository.
func NewRegistryRepository(db *sqlx.DB) *RegistryRepository {
	return &RegistryRepository{db: db}
}

// List returns registry records, optionally restricted to one category.
func (r *RegistryRepository) List(ctx context.Context, filter models.RegistryFilter) ([]models.RegistryRecord, error) {
	query := `SELECT ` + registryColumns + ` FROM registry_records`
	var args []interface{}
	if filter.Category != nil {
		query += ` WHERE vehicle_category = $1`
		args = append(args, *filter.Category)
	}
	query += ` ORDER BY created_at ASC`

	var records []models.RegistryRecord
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list registry records: %w", err)
	}
	return records, nil
}

// FindByUserID returns the record owned by userID or sql.ErrNoRows.
func (r *RegistryRepository) FindByUserID(ctx context.Context, userID string) (*models.RegistryRecord, error) {
	return r.findOne(ctx, "user_id", userID)
}

// FindByApplicationNumber returns the record carrying number or sql.ErrNoRows.
func (r *RegistryRepository) FindByApplicationNumber(ctx context.Context, number string) (*models.RegistryRecord, error) {
	return r.findOne(ctx, "application_number", number)
}

func (r *RegistryRepository) findOne(ctx context.Context, column, value string) (*models.RegistryRecord, error) {
	query := fmt.Sprintf(`SELECT %s FROM registry_records WHERE %s = $1 LIMIT 1`, registryColumns, column)
	var record models.RegistryRecord
	if err := r.db.GetContext(ctx, &record, query, value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find registry by %s: %w", column, err)
	}
	return &record, nil
}

// Create inserts a registry record. A record already owned by the same account is
// overwritten (last write wins), and record.ID then names the existing row.
func (r *RegistryRepository) Create(ctx context.Context, record *models.RegistryRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	const query = `INSERT INTO registry_records (` + registryColumns + `) VALUES (:id, :user_id, :application_number, :vehicle_category, :phone, :sessions, :ll_test_date, :dl_test_date, :license_validity, :total_fee, :paid_amount, :balance_amount, :total_ground_sessions, :total_simulation_sessions, :total_road_sessions, :total_sessions, :status, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET application_number = EXCLUDED.application_number, vehicle_category = EXCLUDED.vehicle_category, phone = EXCLUDED.phone, sessions = EXCLUDED.sessions, ll_test_date = EXCLUDED.ll_test_date, dl_test_date = EXCLUDED.dl_test_date, license_validity = EXCLUDED.license_validity, total_fee = EXCLUDED.total_fee, paid_amount = EXCLUDED.paid_amount, balance_amount = EXCLUDED.balance_amount, total_ground_sessions = EXCLUDED.total_ground_sessions, total_simulation_sessions = EXCLUDED.total_simulation_sessions, total_road_sessions = EXCLUDED.total_road_sessions, total_sessions = EXCLUDED.total_sessions, status = EXCLUDED.status, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	if err := upsertOwned(ctx, r.db, query, record, &record.ID, &record.CreatedAt); err != nil {
		return fmt.Errorf("create registry record: %w", err)
	}
	return nil
}

// Update overwrites every mutable column of the record.
func (r *RegistryRepository) Update(ctx context.Context, record *models.RegistryRecord) error {
	record.UpdatedAt = time.Now().UTC()
	const query = `UPDATE registry_records SET application_number = :application_number, vehicle_category = :vehicle_category, phone = :phone, sessions = :sessions, ll_test_date = :ll_test_date, dl_test_date = :dl_test_date, license_validity = :license_validity, total_fee = :total_fee, paid_amount = :paid_amount, balance_amount = :balance_amount, total_ground_sessions = :total_ground_sessions, total_simulation_sessions = :total_simulation_sessions, total_road_sessions = :total_road_sessions, total_sessions = :total_sessions, status = :status, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, record)
	if err != nil {
		return fmt.Errorf("update registry record: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return fmt.Errorf("update registry record: %w", err)
	}
	return nil
}

// DeleteByUserID removes the record and reports whether one existed.
func (r *RegistryRepository) DeleteByUserID(ctx context.Context, userID string) (bool, error) {
	return deleteByColumn(ctx, r.db, "registry_records", "user_id", userID)
}

// BulkUpdateCategory sets the category of every record owned by userIDs.
func (r *RegistryRepository) BulkUpdateCategory(ctx context.Context, userIDs []string, category models.VehicleCategory) (int64, error) {
	const query = `UPDATE registry_records SET vehicle_category = $1, updated_at = $2 WHERE user_id = ANY($3)`
	result, err := r.db.ExecContext(ctx, query, category, time.Now().UTC(), pq.Array(userIDs))
	if err != nil {
		return 0, fmt.Errorf("bulk update category: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update category rows affected: %w", err)
	}
	return affected, nil
}

// AggregateByCategory sums the cached attendance stats per vehicle category.
func (r *RegistryRepository) AggregateByCategory(ctx context.Context, filter models.RegistryFilter) ([]models.CategoryStats, error) {
	query := `SELECT vehicle_category,
	COUNT(*) AS student_count,
	COALESCE(SUM(total_ground_sessions), 0) AS total_ground_sessions,
	COALESCE(SUM(total_simulation_sessions), 0) AS total_simulation_sessions,
	COALESCE(SUM(total_road_sessions), 0) AS total_road_sessions,
	COUNT(*) FILTER (WHERE status = 'completed') AS completed_count
FROM registry_records`
	var args []interface{}
	if filter.Category != nil {
		query += ` WHERE vehicle_category = $1`
		args = append(args, *filter.Category)
	}
	query += ` GROUP BY vehicle_category ORDER BY vehicle_category`

	var stats []models.CategoryStats
	if err := r.db.SelectContext(ctx, &stats, query, args...); err != nil {
		return nil, fmt.Errorf("aggregate registry by category: %w", err)
	}
	return stats, nil
}
