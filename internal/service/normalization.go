package service

import (
	"encoding/json"
	"fmt"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

// ProgressDefaults describes a fresh attendance sheet.
type ProgressDefaults struct {
	Rows        int
	Columns     int
	VehicleType models.VehicleCategory
}

func (d ProgressDefaults) withFallbacks() ProgressDefaults {
	if d.Rows <= 0 {
		d.Rows = models.DefaultGridRows
	}
	if d.Columns <= 0 {
		d.Columns = models.DefaultGridColumns
	}
	if !d.VehicleType.Valid() {
		d.VehicleType = models.DefaultVehicleCategory
	}
	return d
}

// DefaultCourse returns an all-zero sheet for vehicleType.
func DefaultCourse(vehicleType models.VehicleCategory, d ProgressDefaults) models.CourseProgress {
	d = d.withFallbacks()
	if !vehicleType.Valid() {
		vehicleType = d.VehicleType
	}
	return models.CourseProgress{
		VehicleType: vehicleType,
		Rows:        d.Rows,
		Columns:     d.Columns,
		Attendance:  make([]int, d.Rows*d.Columns),
	}
}

// NormalizeProgress lifts a stored row of either shape into the canonical record.
// A nil row yields the default record for userID.
func NormalizeProgress(userID string, stored *models.StoredProgress, d ProgressDefaults) (models.ProgressRecord, error) {
	d = d.withFallbacks()
	if stored == nil {
		return models.ProgressRecord{
			UserID:  userID,
			Courses: []models.CourseProgress{DefaultCourse(d.VehicleType, d)},
		}, nil
	}

	record := models.ProgressRecord{
		ID:        stored.ID,
		UserID:    stored.UserID,
		CreatedAt: stored.CreatedAt,
		UpdatedAt: stored.UpdatedAt,
	}

	var docs []models.CourseDocument
	switch stored.Shape {
	case models.ProgressShapeLegacy:
		var legacy models.CourseDocument
		if err := decodePayload(stored.Payload, &legacy); err != nil {
			return models.ProgressRecord{}, fmt.Errorf("decode v1 progress: %w", err)
		}
		docs = []models.CourseDocument{legacy}
	case models.ProgressShapeCourses:
		var doc models.CoursesDocument
		if err := decodePayload(stored.Payload, &doc); err != nil {
			return models.ProgressRecord{}, fmt.Errorf("decode v2 progress: %w", err)
		}
		docs = doc.Courses
	default:
		return models.ProgressRecord{}, fmt.Errorf("unknown progress shape %q", stored.Shape)
	}

	record.Courses = NormalizeCourses(docs, d)
	return record, nil
}

// NormalizeCourses fills missing sub-fields. An empty list becomes the default course.
func NormalizeCourses(docs []models.CourseDocument, d ProgressDefaults) []models.CourseProgress {
	d = d.withFallbacks()
	if len(docs) == 0 {
		return []models.CourseProgress{DefaultCourse(d.VehicleType, d)}
	}
	courses := make([]models.CourseProgress, 0, len(docs))
	for _, doc := range docs {
		courses = append(courses, normalizeCourse(doc, d))
	}
	return courses
}

func normalizeCourse(doc models.CourseDocument, d ProgressDefaults) models.CourseProgress {
	course := models.CourseProgress{
		VehicleType: models.VehicleCategory(doc.VehicleType),
		Rows:        doc.Rows,
		Columns:     doc.Columns,
	}
	if !course.VehicleType.Valid() {
		course.VehicleType = d.VehicleType
	}
	if course.Rows <= 0 {
		course.Rows = d.Rows
	}
	if course.Columns <= 0 {
		course.Columns = d.Columns
	}
	course.Attendance = fitGrid(doc.Attendance, course.Rows*course.Columns)
	return course
}

// fitGrid pads with zeros or truncates to size, returning a fresh slice.
func fitGrid(cells []int, size int) []int {
	grid := make([]int, size)
	copy(grid, cells)
	return grid
}

// EncodeProgress renders the canonical record as a v2 row.
func EncodeProgress(record models.ProgressRecord) (*models.StoredProgress, error) {
	doc := models.CoursesDocument{Courses: make([]models.CourseDocument, 0, len(record.Courses))}
	for _, course := range record.Courses {
		doc.Courses = append(doc.Courses, models.CourseDocument{
			VehicleType: string(course.VehicleType),
			Rows:        course.Rows,
			Columns:     course.Columns,
			Attendance:  course.Attendance,
		})
	}
	payload, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode progress: %w", err)
	}
	return &models.StoredProgress{
		ID:        record.ID,
		UserID:    record.UserID,
		Shape:     models.ProgressShapeCourses,
		Payload:   payload,
		CreatedAt: record.CreatedAt,
		UpdatedAt: record.UpdatedAt,
	}, nil
}

func decodePayload(payload models.ProgressPayload, dest interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	return json.Unmarshal(payload, dest)
}

// MergePaymentView folds a student ledger with the global settings.
// Without a ledger the active global settings are returned flagged as such.
// Amounts never come from the global settings.
func MergePaymentView(userID string, ledger *models.StudentLedger, global *models.GlobalPaymentConfig) models.PaymentView {
	var fallback models.PaymentContact
	if global != nil && global.Active {
		fallback = global.PaymentContact
	}

	if ledger == nil {
		return models.PaymentView{
			UserID:         userID,
			Status:         models.LedgerStatusPending,
			PaymentContact: fallback,
			IsUsingGlobal:  global != nil && global.Active,
		}
	}

	return models.PaymentView{
		UserID:          userID,
		PaidAmount:      ledger.PaidAmount,
		RemainingAmount: ledger.RemainingAmount,
		Status:          ledger.Status,
		PaymentContact: models.PaymentContact{
			UPIID:      firstPresent(ledger.UPIID, fallback.UPIID),
			Phone:      firstPresent(ledger.Phone, fallback.Phone),
			QRImageURL: firstPresent(ledger.QRImageURL, fallback.QRImageURL),
		},
	}
}

// LedgerStatusFor derives the ledger status from its amounts.
func LedgerStatusFor(paid, remaining float64) models.LedgerStatus {
	switch {
	case paid > 0 && remaining <= 0:
		return models.LedgerStatusPaid
	case paid > 0:
		return models.LedgerStatusPartial
	default:
		return models.LedgerStatusPending
	}
}

// firstPresent returns the first non-nil, non-empty candidate.
func firstPresent(candidates ...*string) *string {
	for _, candidate := range candidates {
		if candidate != nil && *candidate != "" {
			return candidate
		}
	}
	return nil
}

func firstString(candidates ...*string) string {
	if value := firstPresent(candidates...); value != nil {
		return *value
	}
	return ""
}
