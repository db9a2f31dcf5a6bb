package service

import (
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

// DefaultCompletionThreshold is the session total at which a registry record completes.
const DefaultCompletionThreshold = 40

// DeriveStats sums the session columns. It is the only producer of AttendanceStats.
func DeriveStats(sessions []models.AttendanceSession) models.AttendanceStats {
	var stats models.AttendanceStats
	for _, session := range sessions {
		stats.TotalGroundSessions += session.Ground
		stats.TotalSimulationSessions += session.Simulation
		stats.TotalRoadSessions += session.Road
	}
	stats.TotalSessions = stats.TotalGroundSessions + stats.TotalSimulationSessions + stats.TotalRoadSessions
	return stats
}

// ResolveStatus applies the completion rule. Completed records never leave completed.
func ResolveStatus(current models.RegistryStatus, requested *models.RegistryStatus, totalSessions, threshold int) models.RegistryStatus {
	if threshold <= 0 {
		threshold = DefaultCompletionThreshold
	}
	if current == models.RegistryStatusCompleted || totalSessions >= threshold {
		return models.RegistryStatusCompleted
	}
	if requested != nil && *requested != "" {
		return *requested
	}
	if current == "" {
		return models.RegistryStatusActive
	}
	return current
}

// applyDerived recomputes stats and status on a record about to be saved.
func applyDerived(record *models.RegistryRecord, requested *models.RegistryStatus, threshold int) {
	record.AttendanceStats = DeriveStats(record.Sessions)
	record.Status = ResolveStatus(record.Status, requested, record.TotalSessions, threshold)
}

// CompletionPercentage is min(100, round(total/threshold*100)).
func CompletionPercentage(totalSessions, threshold int) int {
	if threshold <= 0 {
		threshold = DefaultCompletionThreshold
	}
	pct := int(math.Round(float64(totalSessions) / float64(threshold) * 100))
	if pct > 100 {
		return 100
	}
	if pct < 0 {
		return 0
	}
	return pct
}

// NextActivity recommends the least practised session kind.
func NextActivity(stats models.AttendanceStats, status models.RegistryStatus) string {
	if status == models.RegistryStatusCompleted {
		return models.ActivityNone
	}
	next, lowest := models.ActivityGround, stats.TotalGroundSessions
	if stats.TotalSimulationSessions < lowest {
		next, lowest = models.ActivitySimulation, stats.TotalSimulationSessions
	}
	if stats.TotalRoadSessions < lowest {
		next = models.ActivityRoad
	}
	return next
}

func clampCount(value *int) int {
	if value == nil {
		return models.MinSessionCount
	}
	switch {
	case *value < models.MinSessionCount:
		return models.MinSessionCount
	case *value > models.MaxSessionCount:
		return models.MaxSessionCount
	}
	return *value
}

// buildSession defaults a client session. fallbacks are consulted in order for the vehicle type.
func buildSession(input models.SessionInput, now time.Time, fallbacks ...models.VehicleCategory) models.AttendanceSession {
	session := models.AttendanceSession{
		ID:         uuid.NewString(),
		Date:       now,
		Ground:     clampCount(input.Ground),
		Simulation: clampCount(input.Simulation),
		Road:       clampCount(input.Road),
	}
	if input.Date != nil && !input.Date.IsZero() {
		session.Date = input.Date.UTC()
	}
	if input.VehicleType != nil && input.VehicleType.Valid() {
		session.VehicleType = *input.VehicleType
		return session
	}
	session.VehicleType = firstCategory(fallbacks...)
	return session
}

func firstCategory(candidates ...models.VehicleCategory) models.VehicleCategory {
	for _, candidate := range candidates {
		if candidate.Valid() {
			return candidate
		}
	}
	return models.DefaultVehicleCategory
}
