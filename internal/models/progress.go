package models

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Grid dimensions of a fresh attendance sheet.
const (
	DefaultGridRows    = 30
	DefaultGridColumns = 50
)

// ProgressShape tags the stored payload layout.
type ProgressShape string

const (
	// ProgressShapeLegacy stores a single course directly on the record.
	ProgressShapeLegacy ProgressShape = "v1"
	// ProgressShapeCourses stores a list of courses.
	ProgressShapeCourses ProgressShape = "v2"
)

// CourseProgress is the canonical attendance sheet for one vehicle type.
type CourseProgress struct {
	VehicleType VehicleCategory `json:"vehicleType"`
	Rows        int             `json:"rows"`
	Columns     int             `json:"columns"`
	Attendance  []int           `json:"attendance"`
}

// ProgressRecord is the canonical, normalized progress of an account.
type ProgressRecord struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Courses   []CourseProgress `json:"courses"`
	CreatedAt time.Time        `json:"createdAt"`
	UpdatedAt time.Time        `json:"updatedAt"`
}

// CourseDocument is a course as persisted; any field may be missing.
type CourseDocument struct {
	VehicleType string `json:"vehicleType,omitempty"`
	Rows        int    `json:"rows,omitempty"`
	Columns     int    `json:"columns,omitempty"`
	Attendance  []int  `json:"attendance,omitempty"`
}

// CoursesDocument is the v2 payload.
type CoursesDocument struct {
	Courses []CourseDocument `json:"courses"`
}

// ProgressPayload is the raw JSONB body whose layout depends on the shape tag.
type ProgressPayload []byte

// Value marshals the payload for persistence.
func (p ProgressPayload) Value() (driver.Value, error) {
	if len(p) == 0 {
		return []byte("{}"), nil
	}
	return []byte(p), nil
}

// Scan copies JSON payloads out of the driver buffer.
func (p *ProgressPayload) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*p = nil
	case []byte:
		*p = append((*p)[:0], v...)
	case string:
		*p = ProgressPayload(v)
	default:
		return fmt.Errorf("unsupported progress payload type %T", value)
	}
	return nil
}

// StoredProgress is the progress_records row: a shape tag plus its payload.
type StoredProgress struct {
	ID        string          `db:"id"`
	UserID    string          `db:"user_id"`
	Shape     ProgressShape   `db:"shape_version"`
	Payload   ProgressPayload `db:"payload"`
	CreatedAt time.Time       `db:"created_at"`
	UpdatedAt time.Time       `db:"updated_at"`
}

// UpsertCourseRequest replaces the grid of one course.
type UpsertCourseRequest struct {
	Attendance []int `json:"attendance" validate:"required"`
}

// SetCellRequest marks a single attendance cell.
type SetCellRequest struct {
	Row    int `json:"row" validate:"gte=0"`
	Column int `json:"column" validate:"gte=0"`
	Value  int `json:"value" validate:"oneof=0 1"`
}
