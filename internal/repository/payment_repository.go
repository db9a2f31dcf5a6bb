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

// PaymentRepository persists student ledgers and the global payment settings.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs a payment repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindLedger returns the ledger owned by userID or sql.ErrNoRows.
func (r *PaymentRepository) FindLedger(ctx context.Context, userID string) (*models.StudentLedger, error) {
	const query = `SELECT id, user_id, paid_amount, remaining_amount, status, upi_id, phone, qr_image_url, created_at, updated_at FROM student_ledgers WHERE user_id = $1 LIMIT 1`
	var ledger models.StudentLedger
	if err := r.db.GetContext(ctx, &ledger, query, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find ledger: %w", err)
	}
	return &ledger, nil
}

// CreateLedger inserts a student ledger. A ledger already owned by the same account is
// overwritten, and ledger.ID then names the existing row.
func (r *PaymentRepository) CreateLedger(ctx context.Context, ledger *models.StudentLedger) error {
	if ledger.ID == "" {
		ledger.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if ledger.CreatedAt.IsZero() {
		ledger.CreatedAt = now
	}
	ledger.UpdatedAt = now
	const query = `INSERT INTO student_ledgers (id, user_id, paid_amount, remaining_amount, status, upi_id, phone, qr_image_url, created_at, updated_at) VALUES (:id, :user_id, :paid_amount, :remaining_amount, :status, :upi_id, :phone, :qr_image_url, :created_at, :updated_at)
ON CONFLICT (user_id) DO UPDATE SET paid_amount = EXCLUDED.paid_amount, remaining_amount = EXCLUDED.remaining_amount, status = EXCLUDED.status, upi_id = EXCLUDED.upi_id, phone = EXCLUDED.phone, qr_image_url = EXCLUDED.qr_image_url, updated_at = EXCLUDED.updated_at
RETURNING id, created_at`
	if err := upsertOwned(ctx, r.db, query, ledger, &ledger.ID, &ledger.CreatedAt); err != nil {
		return fmt.Errorf("create ledger: %w", err)
	}
	return nil
}

// UpdateLedger overwrites the mutable ledger columns.
func (r *PaymentRepository) UpdateLedger(ctx context.Context, ledger *models.StudentLedger) error {
	ledger.UpdatedAt = time.Now().UTC()
	const query = `UPDATE student_ledgers SET paid_amount = :paid_amount, remaining_amount = :remaining_amount, status = :status, upi_id = :upi_id, phone = :phone, qr_image_url = :qr_image_url, updated_at = :updated_at WHERE user_id = :user_id`
	result, err := r.db.NamedExecContext(ctx, query, ledger)
	if err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return fmt.Errorf("update ledger: %w", err)
	}
	return nil
}

// DeleteLedger removes the student's ledger and reports whether one existed.
func (r *PaymentRepository) DeleteLedger(ctx context.Context, userID string) (bool, error) {
	return deleteByColumn(ctx, r.db, "student_ledgers", "user_id", userID)
}

// GetGlobal returns the payment settings singleton or sql.ErrNoRows.
func (r *PaymentRepository) GetGlobal(ctx context.Context) (*models.GlobalPaymentConfig, error) {
	const query = `SELECT id, upi_id, phone, qr_image_url, active, updated_at FROM payment_settings WHERE id = $1`
	var cfg models.GlobalPaymentConfig
	if err := r.db.GetContext(ctx, &cfg, query, models.GlobalPaymentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get global payment config: %w", err)
	}
	return &cfg, nil
}

// SaveGlobal writes the singleton, inserting it on first use.
func (r *PaymentRepository) SaveGlobal(ctx context.Context, cfg *models.GlobalPaymentConfig) error {
	cfg.ID = models.GlobalPaymentID
	cfg.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO payment_settings (id, upi_id, phone, qr_image_url, active, updated_at) VALUES (:id, :upi_id, :phone, :qr_image_url, :active, :updated_at)
ON CONFLICT (id) DO UPDATE SET upi_id = EXCLUDED.upi_id, phone = EXCLUDED.phone, qr_image_url = EXCLUDED.qr_image_url, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, cfg); err != nil {
		return fmt.Errorf("save global payment config: %w", err)
	}
	return nil
}
