package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

func TestFindProgressKeepsShapeTag(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "user_id", "shape_version", "payload", "created_at", "updated_at"}).
		AddRow("p1", "u1", "v1", []byte(`{"vehicleType":"two-wheeler"}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM progress_records WHERE user_id = $1")).WithArgs("u1").WillReturnRows(rows)

	stored, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, models.ProgressShapeLegacy, stored.Shape)
	assert.JSONEq(t, `{"vehicleType":"two-wheeler"}`, string(stored.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteProgress(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM progress_records WHERE user_id = $1")).WithArgs("u1").WillReturnResult(sqlmock.NewResult(0, 1))

	deleted, err := repo.DeleteByUserID(context.Background(), "u1")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProgressInserts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 1))

	stored := &models.StoredProgress{UserID: "u1", Shape: models.ProgressShapeLegacy, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(context.Background(), stored))
	assert.NotEmpty(t, stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProgressAdoptsConcurrentRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (user_id) DO NOTHING")).WillReturnResult(sqlmock.NewResult(0, 0))
	rows := sqlmock.NewRows([]string{"id", "user_id", "shape_version", "payload", "created_at", "updated_at"}).
		AddRow("p-winner", "u1", "v1", []byte(`{"vehicleType":"four-wheeler"}`), now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM progress_records WHERE user_id = $1")).WithArgs("u1").WillReturnRows(rows)

	stored := &models.StoredProgress{UserID: "u1", Shape: models.ProgressShapeLegacy, Payload: []byte(`{}`)}
	require.NoError(t, repo.Create(context.Background(), stored))
	assert.Equal(t, "p-winner", stored.ID)
	assert.JSONEq(t, `{"vehicleType":"four-wheeler"}`, string(stored.Payload))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProgressWithoutRowIsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProgressRepository(db)

	mock.ExpectExec("UPDATE progress_records SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.StoredProgress{ID: "p1", UserID: "u1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
