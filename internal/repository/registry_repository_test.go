package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

var registryRowColumns = []string{"id", "user_id", "application_number", "vehicle_category", "phone", "sessions", "ll_test_date", "dl_test_date", "license_validity", "total_fee", "paid_amount", "balance_amount", "total_ground_sessions", "total_simulation_sessions", "total_road_sessions", "total_sessions", "status", "created_at", "updated_at"}

func TestRegistryFindByUserIDDecodesSessions(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	now := time.Now()
	sessions := `[{"id":"s1","date":"2024-03-01T00:00:00Z","ground":5,"simulation":1,"road":0,"vehicleType":"two-wheeler"}]`
	rows := sqlmock.NewRows(registryRowColumns).
		AddRow("r1", "u1", "APP-1", "two-wheeler", "555", sessions, nil, nil, nil, 1000.0, 400.0, 600.0, 5, 1, 0, 6, "active", now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM registry_records WHERE user_id = $1 LIMIT 1")).
		WithArgs("u1").
		WillReturnRows(rows)

	record, err := repo.FindByUserID(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, record.Sessions, 1)
	assert.Equal(t, 5, record.Sessions[0].Ground)
	assert.Equal(t, models.VehicleTwoWheeler, record.Sessions[0].VehicleType)
	assert.Equal(t, 6, record.TotalSessions)
	assert.Equal(t, 600.0, record.BalanceAmount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryListFiltersCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM registry_records WHERE vehicle_category = $1 ORDER BY created_at ASC")).
		WithArgs(models.VehicleHeavyVehicle).
		WillReturnRows(sqlmock.NewRows(registryRowColumns))

	category := models.VehicleHeavyVehicle
	records, err := repo.List(context.Background(), models.RegistryFilter{Category: &category})
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryCreate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	mock.ExpectQuery("INSERT INTO registry_records").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-new", time.Now()))

	record := &models.RegistryRecord{UserID: "u1", ApplicationNumber: "APP-1", VehicleCategory: models.VehicleFourWheeler, Status: models.RegistryStatusActive}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, "r-new", record.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryCreateOverwritesOwnerRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (user_id) DO UPDATE SET application_number = EXCLUDED.application_number")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("r-first", created))

	record := &models.RegistryRecord{UserID: "u1", ApplicationNumber: "APP-2", VehicleCategory: models.VehicleTwoWheeler, Status: models.RegistryStatusActive}
	require.NoError(t, repo.Create(context.Background(), record))
	assert.Equal(t, "r-first", record.ID)
	assert.True(t, created.Equal(record.CreatedAt))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryUpdateWithoutRowIsNoRows(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	mock.ExpectExec("UPDATE registry_records SET").WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), &models.RegistryRecord{ID: "deleted-meanwhile"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryUpdateWrapsFailure(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	mock.ExpectExec("UPDATE registry_records SET").WillReturnError(errors.New("conn reset"))

	err := repo.Update(context.Background(), &models.RegistryRecord{ID: "r1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "update registry record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryBulkUpdateCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE registry_records SET vehicle_category = $1, updated_at = $2 WHERE user_id = ANY($3)")).
		WithArgs(models.VehicleTwoWheeler, sqlmock.AnyArg(), pq.Array([]string{"u1", "u2"})).
		WillReturnResult(sqlmock.NewResult(0, 2))

	modified, err := repo.BulkUpdateCategory(context.Background(), []string{"u1", "u2"}, models.VehicleTwoWheeler)
	require.NoError(t, err)
	assert.Equal(t, int64(2), modified)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegistryAggregateByCategory(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewRegistryRepository(db)

	rows := sqlmock.NewRows([]string{"vehicle_category", "student_count", "total_ground_sessions", "total_simulation_sessions", "total_road_sessions", "completed_count"}).
		AddRow("four-wheeler", 3, 30, 12, 9, 1).
		AddRow("two-wheeler", 1, 4, 0, 2, 0)
	mock.ExpectQuery("GROUP BY vehicle_category").WillReturnRows(rows)

	stats, err := repo.AggregateByCategory(context.Background(), models.RegistryFilter{})
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, 3, stats[0].StudentCount)
	assert.Equal(t, 1, stats[0].CompletedCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}
