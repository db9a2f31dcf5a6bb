package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

func TestFindProfileReturnsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM profiles WHERE user_id = $1")).WithArgs("ghost").WillReturnError(sql.ErrNoRows)

	profile, err := repo.FindByUserID(context.Background(), "ghost")
	assert.Nil(t, profile)
	assert.True(t, errors.Is(err, sql.ErrNoRows))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProfileAssignsID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	phone := "555-0100"
	profile := &models.Profile{UserID: "u1", Phone: &phone}
	mock.ExpectQuery("INSERT INTO profiles").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("pr-new", time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)))

	require.NoError(t, repo.Create(context.Background(), profile))
	assert.Equal(t, "pr-new", profile.ID)
	assert.False(t, profile.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateProfileAdoptsExistingOwnerRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	created := time.Date(2023, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE SET phone = EXCLUDED.phone")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("pr-first", created))

	profile := &models.Profile{UserID: "u1"}
	require.NoError(t, repo.Create(context.Background(), profile))
	assert.Equal(t, "pr-first", profile.ID)
	assert.True(t, created.Equal(profile.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileWithoutRowIsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE profiles SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.Profile{ID: "gone", UserID: "u1"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateProfileWrapsFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewProfileRepository(db)

	mock.ExpectExec("UPDATE profiles SET").WillReturnError(errors.New("connection reset"))

	err := repo.Update(context.Background(), &models.Profile{UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update profile")
	assert.NoError(t, mock.ExpectationsWereMet())
}
