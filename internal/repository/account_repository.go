package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

const accountColumns = `id, email, password_hash, full_name, role, created_at, updated_at`

// AccountRepository provides database access for accounts.
type AccountRepository struct {
	db *sqlx.DB
}

// NewAccountRepository creates a new instance of AccountRepository.
func NewAccountRepository(db *sqlx.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByEmail returns an account by email address.
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE LOWER(email) = LOWER($1) LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by email: %w", err)
	}
	return &account, nil
}

// FindByID returns an account by identifier.
func (r *AccountRepository) FindByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 LIMIT 1`
	var account models.Account
	if err := r.db.GetContext(ctx, &account, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find account by id: %w", err)
	}
	return &account, nil
}

// List returns accounts matching the filter ordered by creation time.
func (r *AccountRepository) List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE 1=1`
	var args []interface{}
	if filter.Role != nil {
		args = append(args, *filter.Role)
		query += fmt.Sprintf(" AND role = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		query += fmt.Sprintf(" AND (LOWER(email) LIKE $%d OR LOWER(full_name) LIKE $%d)", len(args), len(args))
	}
	query += " ORDER BY created_at ASC"

	var accounts []models.Account
	if err := r.db.SelectContext(ctx, &accounts, query, args...); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return accounts, nil
}

// Create inserts a new account.
func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	const query = `INSERT INTO accounts (id, email, password_hash, full_name, role, created_at, updated_at) VALUES (:id, :email, :password_hash, :full_name, :role, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, account); err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// Update updates mutable fields of an account.
func (r *AccountRepository) Update(ctx context.Context, account *models.Account) error {
	account.UpdatedAt = time.Now().UTC()
	const query = `UPDATE accounts SET full_name = :full_name, role = :role, updated_at = :updated_at WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, account)
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if err := requireAffected(result); err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	return nil
}

// Delete removes an account and reports whether a row existed.
func (r *AccountRepository) Delete(ctx context.Context, id string) (bool, error) {
	return deleteByColumn(ctx, r.db, "accounts", "id", id)
}

// deleteByColumn removes rows by a single key column and reports whether any matched.
func deleteByColumn(ctx context.Context, db *sqlx.DB, table, column, value string) (bool, error) {
	query := fmt.Sprintf("DELETE FROM %s WHERE %s = $1", table, column)
	result, err := db.ExecContext(ctx, query, value)
	if err != nil {
		return false, fmt.Errorf("delete from %s: %w", table, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete from %s rows affected: %w", table, err)
	}
	return affected > 0, nil
}

// upsertOwned runs a named INSERT ... ON CONFLICT ... RETURNING id, created_at and copies the
// identity of the surviving row into id and createdAt.
func upsertOwned(ctx context.Context, db *sqlx.DB, query string, arg interface{}, id *string, createdAt *time.Time) error {
	rows, err := db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return err
		}
		return sql.ErrNoRows
	}
	return rows.Scan(id, createdAt)
}

// requireAffected reports sql.ErrNoRows when a write matched nothing.
func requireAffected(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
