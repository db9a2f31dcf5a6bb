package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// VehicleCategory enumerates the training programmes offered.
type VehicleCategory string

const (
	VehicleTwoWheeler   VehicleCategory = "two-wheeler"
	VehicleFourWheeler  VehicleCategory = "four-wheeler"
	VehicleHeavyVehicle VehicleCategory = "heavy-vehicle"
)

// DefaultVehicleCategory applies when no other source names a category.
const DefaultVehicleCategory = VehicleFourWheeler

// VehicleCategories lists every accepted category.
func VehicleCategories() []VehicleCategory {
	return []VehicleCategory{VehicleTwoWheeler, VehicleFourWheeler, VehicleHeavyVehicle}
}

// Valid reports whether c is part of the fixed enumeration.
func (c VehicleCategory) Valid() bool {
	switch c {
	case VehicleTwoWheeler, VehicleFourWheeler, VehicleHeavyVehicle:
		return true
	}
	return false
}

// RegistryStatus is the lifecycle state of a registry record.
type RegistryStatus string

const (
	RegistryStatusActive       RegistryStatus = "active"
	RegistryStatusCompleted    RegistryStatus = "completed"
	RegistryStatusDiscontinued RegistryStatus = "discontinued"
	RegistryStatusOnHold       RegistryStatus = "on_hold"
)

// Bounds for the per-session counters.
const (
	MinSessionCount = 0
	MaxSessionCount = 10
)

// AttendanceSession records what a student practised on one day.
type AttendanceSession struct {
	ID          string          `json:"id"`
	Date        time.Time       `json:"date"`
	Ground      int             `json:"ground"`
	Simulation  int             `json:"simulation"`
	Road        int             `json:"road"`
	VehicleType VehicleCategory `json:"vehicleType"`
}

// AttendanceSessions is persisted as a JSONB array.
type AttendanceSessions []AttendanceSession

// Value marshals sessions to JSON for persistence.
func (s AttendanceSessions) Value() (driver.Value, error) {
	if s == nil {
		s = AttendanceSessions{}
	}
	data, err := json.Marshal([]AttendanceSession(s))
	if err != nil {
		return nil, fmt.Errorf("marshal attendance sessions: %w", err)
	}
	return data, nil
}

// Scan unmarshals JSON payloads into the session list.
func (s *AttendanceSessions) Scan(value interface{}) error {
	if value == nil {
		*s = AttendanceSessions{}
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported attendance sessions type %T", value)
	}
	var sessions []AttendanceSession
	if err := json.Unmarshal(data, &sessions); err != nil {
		return fmt.Errorf("unmarshal attendance sessions: %w", err)
	}
	if sessions == nil {
		sessions = []AttendanceSession{}
	}
	*s = sessions
	return nil
}

// AttendanceStats is derived from the session list and never set directly.
type AttendanceStats struct {
	TotalGroundSessions     int `db:"total_ground_sessions" json:"totalGroundSessions"`
	TotalSimulationSessions int `db:"total_simulation_sessions" json:"totalSimulationSessions"`
	TotalRoadSessions       int `db:"total_road_sessions" json:"totalRoadSessions"`
	TotalSessions           int `db:"total_sessions" json:"totalSessions"`
}

// FinancialSummary mirrors the ledger amounts on the registry record.
type FinancialSummary struct {
	TotalFee      float64 `db:"total_fee" json:"totalFee"`
	PaidAmount    float64 `db:"paid_amount" json:"paidAmount"`
	BalanceAmount float64 `db:"balance_amount" json:"balanceAmount"`
}

// RegistryRecord is the per-student licence and attendance register.
type RegistryRecord struct {
	ID                string             `db:"id" json:"id"`
	UserID            string             `db:"user_id" json:"userId"`
	ApplicationNumber string             `db:"application_number" json:"applicationNumber"`
	VehicleCategory   VehicleCategory    `db:"vehicle_category" json:"vehicleCategory"`
	Phone             *string            `db:"phone" json:"phone,omitempty"`
	Sessions          AttendanceSessions `db:"sessions" json:"sessions"`
	LLTestDate        *time.Time         `db:"ll_test_date" json:"llTestDate,omitempty"`
	DLTestDate        *time.Time         `db:"dl_test_date" json:"dlTestDate,omitempty"`
	LicenseValidity   *time.Time         `db:"license_validity" json:"licenseValidity,omitempty"`
	FinancialSummary
	AttendanceStats
	Status    RegistryStatus `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// SessionInput is a client-supplied session; absent counts default to zero.
type SessionInput struct {
	Date        *time.Time       `json:"date"`
	Ground      *int             `json:"ground"`
	Simulation  *int             `json:"simulation"`
	Road        *int             `json:"road"`
	VehicleType *VehicleCategory `json:"vehicleType" validate:"omitempty,vehicle_category"`
}

// RegistryPatch is a sparse "update student" request. Nil fields are left untouched.
type RegistryPatch struct {
	FullName          *string          `json:"fullName" validate:"omitempty,min=1,max=120"`
	Phone             *string          `json:"phone" validate:"omitempty,max=20"`
	DateOfBirth       *time.Time       `json:"dateOfBirth"`
	ApplicationNumber *string          `json:"applicationNumber" validate:"omitempty,min=1,max=64"`
	LLTestDate        *time.Time       `json:"llTestDate"`
	DLTestDate        *time.Time       `json:"dlTestDate"`
	LicenseValidity   *time.Time       `json:"licenseValidity"`
	PaidAmount        *float64         `json:"paidAmount" validate:"omitempty,gte=0"`
	BalanceAmount     *float64         `json:"balanceAmount" validate:"omitempty,gte=0"`
	VehicleCategory   *VehicleCategory `json:"vehicleCategory" validate:"omitempty,vehicle_category"`
	Status            *RegistryStatus  `json:"status" validate:"omitempty,oneof=active discontinued on_hold"`
	Sessions          *[]SessionInput  `json:"sessions" validate:"omitempty,dive"`
}

// ChangeState reports what a write did to one entity.
type ChangeState string

const (
	ChangeUnchanged ChangeState = "unchanged"
	ChangeUpdated   ChangeState = "updated"
	// ChangeCreated marks a row the write inserted because none existed.
	ChangeCreated ChangeState = "created"
)

// ChangeSummary is returned by the update path, one entry per entity kind.
type ChangeSummary struct {
	Account      ChangeState `json:"account"`
	Profile      ChangeState `json:"profile"`
	Payment      ChangeState `json:"payment"`
	Registry     ChangeState `json:"registry"`
	SessionCount int         `json:"sessionCount"`
}

// UpdateRegistryResult is the outcome of a registry update.
type UpdateRegistryResult struct {
	RegistryID string        `json:"registryId"`
	UpdatedAt  time.Time     `json:"updatedAt"`
	Changes    ChangeSummary `json:"changes"`
}

// AddSessionResult is the outcome of appending one session.
type AddSessionResult struct {
	RegistryID string            `json:"registryId"`
	Session    AttendanceSession `json:"session"`
	Stats      AttendanceStats   `json:"stats"`
	Status     RegistryStatus    `json:"status"`
}

// DeleteStudentResult reports per entity whether something was removed.
type DeleteStudentResult struct {
	Account  bool `json:"account"`
	Profile  bool `json:"profile"`
	Progress bool `json:"progress"`
	Payment  bool `json:"payment"`
	Registry bool `json:"registry"`
}

// BulkCategoryRequest moves several students to one category.
type BulkCategoryRequest struct {
	UserIDs  []string        `json:"userIds" validate:"required,min=1,dive,required"`
	Category VehicleCategory `json:"category" validate:"required,vehicle_category"`
}

// BulkCategoryResult reports how many registry records changed.
type BulkCategoryResult struct {
	Modified int64 `json:"modified"`
}

// NextActivity values.
const (
	ActivityGround     = "ground"
	ActivitySimulation = "simulation"
	ActivityRoad       = "road"
	ActivityNone       = "none"
)

// StudentView is the reconciled per-student projection.
type StudentView struct {
	UserID               string              `json:"userId"`
	Email                string              `json:"email"`
	FullName             string              `json:"fullName"`
	Role                 AccountRole         `json:"role"`
	Phone                string              `json:"phone"`
	Address              string              `json:"address"`
	Location             string              `json:"location"`
	DateOfBirth          *time.Time          `json:"dateOfBirth,omitempty"`
	ImageURL             string              `json:"imageUrl"`
	RegistryID           string              `json:"registryId,omitempty"`
	ApplicationNumber    string              `json:"applicationNumber"`
	VehicleCategory      VehicleCategory     `json:"vehicleCategory"`
	LLTestDate           *time.Time          `json:"llTestDate,omitempty"`
	DLTestDate           *time.Time          `json:"dlTestDate,omitempty"`
	LicenseValidity      *time.Time          `json:"licenseValidity,omitempty"`
	Sessions             []AttendanceSession `json:"sessions"`
	TotalFee             float64             `json:"totalFee"`
	PaidAmount           float64             `json:"paidAmount"`
	RemainingAmount      float64             `json:"remainingAmount"`
	Stats                AttendanceStats     `json:"stats"`
	Status               RegistryStatus      `json:"status"`
	CompletionPercentage int                 `json:"completionPercentage"`
	NextActivity         string              `json:"nextActivity"`
	CreatedAt            time.Time           `json:"createdAt"`
	UpdatedAt            time.Time           `json:"updatedAt"`
}

// RegistryFilter narrows registry listings.
type RegistryFilter struct {
	Category *VehicleCategory
}

// CategoryStats aggregates registry records of one vehicle category.
type CategoryStats struct {
	Category                VehicleCategory `db:"vehicle_category" json:"category"`
	StudentCount            int             `db:"student_count" json:"studentCount"`
	TotalGroundSessions     int             `db:"total_ground_sessions" json:"totalGroundSessions"`
	TotalSimulationSessions int             `db:"total_simulation_sessions" json:"totalSimulationSessions"`
	TotalRoadSessions       int             `db:"total_road_sessions" json:"totalRoadSessions"`
	CompletedCount          int             `db:"completed_count" json:"completedCount"`
	CompletionRate          float64         `db:"-" json:"completionRate"`
}
