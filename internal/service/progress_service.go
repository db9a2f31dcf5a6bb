package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

type progressStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.StoredProgress, error)
	Create(ctx context.Context, stored *models.StoredProgress) error
	Update(ctx context.Context, stored *models.StoredProgress) error
}

type accountLookup interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
}

// ProgressService manages the attendance grids of each account.
type ProgressService struct {
	store     progressStore
	accounts  accountLookup
	defaults  ProgressDefaults
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProgressService constructs a progress service.
func NewProgressService(store progressStore, accounts accountLookup, defaults ProgressDefaults, validate *validator.Validate, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ProgressService{store: store, accounts: accounts, defaults: defaults.withFallbacks(), validator: validate, logger: logger}
}

// Get returns the normalized progress, creating the default record on first read.
func (s *ProgressService) Get(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	return s.load(ctx, userID)
}

// UpsertCourse replaces the grid of vehicleType, adding the course when missing.
func (s *ProgressService) UpsertCourse(ctx context.Context, userID string, vehicleType models.VehicleCategory, req models.UpsertCourseRequest) (*models.ProgressRecord, error) {
	if !vehicleType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown vehicle type")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid course payload")
	}
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	course := DefaultCourse(vehicleType, s.defaults)
	for i, cell := range req.Attendance {
		if i >= len(course.Attendance) {
			break
		}
		course.Attendance[i] = clampCell(cell)
	}

	if idx := courseIndex(record.Courses, vehicleType); idx >= 0 {
		course.Rows, course.Columns = record.Courses[idx].Rows, record.Courses[idx].Columns
		course.Attendance = fitGrid(course.Attendance, course.Rows*course.Columns)
		record.Courses[idx] = course
	} else {
		record.Courses = append(record.Courses, course)
	}
	return s.save(ctx, record)
}

// SetCell marks one cell of the vehicleType grid.
func (s *ProgressService) SetCell(ctx context.Context, userID string, vehicleType models.VehicleCategory, req models.SetCellRequest) (*models.ProgressRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid cell payload")
	}
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := courseIndex(record.Courses, vehicleType)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	course := &record.Courses[idx]
	if req.Row >= course.Rows || req.Column >= course.Columns {
		return nil, appErrors.Clone(appErrors.ErrValidation, "cell outside attendance grid")
	}
	course.Attendance[req.Row*course.Columns+req.Column] = clampCell(req.Value)
	return s.save(ctx, record)
}

// RemoveCourse drops a course. Removing the last course resets to the default course.
func (s *ProgressService) RemoveCourse(ctx context.Context, userID string, vehicleType models.VehicleCategory) (*models.ProgressRecord, error) {
	if err := s.ensureAccount(ctx, userID); err != nil {
		return nil, err
	}
	record, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	idx := courseIndex(record.Courses, vehicleType)
	if idx < 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "course not found")
	}
	record.Courses = append(record.Courses[:idx], record.Courses[idx+1:]...)
	if len(record.Courses) == 0 {
		record.Courses = []models.CourseProgress{DefaultCourse(s.defaults.VehicleType, s.defaults)}
	}
	return s.save(ctx, record)
}

// load returns the normalized record, persisting the default when none exists.
// A concurrent first read that loses the insert adopts the winner's row.
func (s *ProgressService) load(ctx context.Context, userID string) (*models.ProgressRecord, error) {
	stored, err := s.store.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Persistence(err, "failed to load progress")
	}
	if err == nil && stored != nil {
		return s.normalize(userID, stored)
	}

	fresh, err := EncodeProgress(models.ProgressRecord{
		UserID:  userID,
		Courses: []models.CourseProgress{DefaultCourse(s.defaults.VehicleType, s.defaults)},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode progress")
	}
	if err := s.store.Create(ctx, fresh); err != nil {
		existing, findErr := s.store.FindByUserID(ctx, userID)
		if findErr != nil || existing == nil {
			return nil, appErrors.Persistence(err, "failed to create progress")
		}
		s.logger.Debug("progress created concurrently", zap.String("user_id", userID))
		return s.normalize(userID, existing)
	}
	s.logger.Debug("created default progress", zap.String("user_id", userID))
	return s.normalize(userID, fresh)
}

func (s *ProgressService) normalize(userID string, stored *models.StoredProgress) (*models.ProgressRecord, error) {
	record, err := NormalizeProgress(userID, stored, s.defaults)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "stored progress is unreadable")
	}
	return &record, nil
}

func (s *ProgressService) save(ctx context.Context, record *models.ProgressRecord) (*models.ProgressRecord, error) {
	stored, err := EncodeProgress(*record)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode progress")
	}
	if err := s.store.Update(ctx, stored); err != nil {
		return nil, appErrors.WriteFailure(err, "failed to save progress")
	}
	record.UpdatedAt = stored.UpdatedAt
	return record, nil
}

func (s *ProgressService) ensureAccount(ctx context.Context, userID string) error {
	if s.accounts == nil {
		return nil
	}
	if _, err := s.accounts.FindByID(ctx, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return appErrors.Persistence(err, "failed to load account")
	}
	return nil
}

func courseIndex(courses []models.CourseProgress, vehicleType models.VehicleCategory) int {
	for i, course := range courses {
		if course.VehicleType == vehicleType {
			return i
		}
	}
	return -1
}

func clampCell(value int) int {
	if value > 0 {
		return 1
	}
	return 0
}
