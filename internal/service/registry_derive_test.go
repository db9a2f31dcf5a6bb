package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

func TestDeriveStatsSumsColumns(t *testing.T) {
	sessions := []models.AttendanceSession{
		{Ground: 2, Simulation: 1, Road: 0},
		{Ground: 0, Simulation: 3, Road: 4},
		{Ground: 10, Simulation: 0, Road: 1},
	}

	stats := DeriveStats(sessions)

	assert.Equal(t, 12, stats.TotalGroundSessions)
	assert.Equal(t, 4, stats.TotalSimulationSessions)
	assert.Equal(t, 5, stats.TotalRoadSessions)
	assert.Equal(t, 21, stats.TotalSessions)
	assert.Equal(t, models.AttendanceStats{}, DeriveStats(nil))
}

func TestResolveStatus(t *testing.T) {
	onHold := models.RegistryStatusOnHold
	discontinued := models.RegistryStatusDiscontinued

	cases := []struct {
		name      string
		current   models.RegistryStatus
		requested *models.RegistryStatus
		total     int
		want      models.RegistryStatus
	}{
		{name: "empty defaults to active", want: models.RegistryStatusActive},
		{name: "threshold completes", current: models.RegistryStatusActive, total: 40, want: models.RegistryStatusCompleted},
		{name: "threshold beats request", current: models.RegistryStatusActive, requested: &onHold, total: 45, want: models.RegistryStatusCompleted},
		{name: "completed stays completed", current: models.RegistryStatusCompleted, requested: &discontinued, total: 3, want: models.RegistryStatusCompleted},
		{name: "request applies below threshold", current: models.RegistryStatusActive, requested: &onHold, total: 39, want: models.RegistryStatusOnHold},
		{name: "current kept", current: models.RegistryStatusDiscontinued, total: 10, want: models.RegistryStatusDiscontinued},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ResolveStatus(tc.current, tc.requested, tc.total, DefaultCompletionThreshold))
		})
	}
}

func TestCompletionPercentage(t *testing.T) {
	assert.Equal(t, 0, CompletionPercentage(0, 40))
	assert.Equal(t, 13, CompletionPercentage(5, 40))
	assert.Equal(t, 50, CompletionPercentage(20, 40))
	assert.Equal(t, 100, CompletionPercentage(40, 40))
	assert.Equal(t, 100, CompletionPercentage(90, 40))
	assert.Equal(t, 50, CompletionPercentage(20, 0))
}

func TestNextActivity(t *testing.T) {
	assert.Equal(t, models.ActivityGround, NextActivity(models.AttendanceStats{}, models.RegistryStatusActive))
	assert.Equal(t, models.ActivitySimulation, NextActivity(models.AttendanceStats{TotalGroundSessions: 3, TotalSimulationSessions: 1, TotalRoadSessions: 1}, models.RegistryStatusActive))
	assert.Equal(t, models.ActivityRoad, NextActivity(models.AttendanceStats{TotalGroundSessions: 3, TotalSimulationSessions: 2, TotalRoadSessions: 1}, models.RegistryStatusOnHold))
	assert.Equal(t, models.ActivityNone, NextActivity(models.AttendanceStats{}, models.RegistryStatusCompleted))
}

func TestBuildSessionDefaults(t *testing.T) {
	now := time.Date(2024, 2, 2, 8, 0, 0, 0, time.UTC)
	bad := models.VehicleCategory("boat")

	session := buildSession(models.SessionInput{Ground: intPtr(12), Simulation: intPtr(-1), VehicleType: &bad}, now, "", models.VehicleHeavyVehicle)

	assert.NotEmpty(t, session.ID)
	assert.Equal(t, now, session.Date)
	assert.Equal(t, 10, session.Ground)
	assert.Equal(t, 0, session.Simulation)
	assert.Equal(t, 0, session.Road)
	assert.Equal(t, models.VehicleHeavyVehicle, session.VehicleType)

	assert.Equal(t, models.DefaultVehicleCategory, buildSession(models.SessionInput{}, now).VehicleType)
}
