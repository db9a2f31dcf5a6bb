package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"
	"slices"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
)

type registryAccountStore interface {
	FindByID(ctx context.Context, id string) (*models.Account, error)
	List(ctx context.Context, filter models.AccountFilter) ([]models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) (bool, error)
}

type registryProfileStore interface {
	FindByUserID(ctx context.Context, userID string) (*models.Profile, error)
	Create(ctx context.Context, profile *models.Profile) error
	Update(ctx context.Context, profile *models.Profile) error
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
}

type registryLedgerStore interface {
	FindLedger(ctx context.Context, userID string) (*models.StudentLedger, error)
	CreateLedger(ctx context.Context, ledger *models.StudentLedger) error
	UpdateLedger(ctx context.Context, ledger *models.StudentLedger) error
	DeleteLedger(ctx context.Context, userID string) (bool, error)
}

type registryStore interface {
	List(ctx context.Context, filter models.RegistryFilter) ([]models.RegistryRecord, error)
	FindByUserID(ctx context.Context, userID string) (*models.RegistryRecord, error)
	FindByApplicationNumber(ctx context.Context, number string) (*models.RegistryRecord, error)
	Create(ctx context.Context, record *models.RegistryRecord) error
	Update(ctx context.Context, record *models.RegistryRecord) error
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
	BulkUpdateCategory(ctx context.Context, userIDs []string, category models.VehicleCategory) (int64, error)
}

type progressRemover interface {
	DeleteByUserID(ctx context.Context, userID string) (bool, error)
}

type eventNotifier interface {
	Notify(ctx context.Context, event NotificationEvent, userID string, fields map[string]string)
}

type cacheInvalidator interface {
	Invalidate(ctx context.Context, pattern string) error
}

// RegistryDeps groups the collaborators of the registry service.
type RegistryDeps struct {
	Accounts registryAccountStore
	Profiles registryProfileStore
	Ledgers  registryLedgerStore
	Registry registryStore
	Progress progressRemover
	Notifier eventNotifier
	Cache    cacheInvalidator
	Metrics  *MetricsService
}

// RegistryConfig carries the programme constants.
type RegistryConfig struct {
	CompletionThreshold int
	DefaultCategory     models.VehicleCategory
	ReadConcurrency     int
}

// RegistryService joins the per-student records into one view and coordinates writes across them.
//
// Writes are best effort: the account, profile and ledger upserts run independently and are
// never rolled back, and the registry load-modify-save is not guarded against concurrent writers.
type RegistryService struct {
	deps      RegistryDeps
	cfg       RegistryConfig
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewRegistryService constructs the registry service.
func NewRegistryService(deps RegistryDeps, cfg RegistryConfig, validate *validator.Validate, logger *zap.Logger) *RegistryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if cfg.CompletionThreshold <= 0 {
		cfg.CompletionThreshold = DefaultCompletionThreshold
	}
	if !cfg.DefaultCategory.Valid() {
		cfg.DefaultCategory = models.DefaultVehicleCategory
	}
	if cfg.ReadConcurrency <= 0 {
		cfg.ReadConcurrency = 8
	}
	return &RegistryService{
		deps:      deps,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// FullRegistry returns the reconciled view of every student, optionally limited to one category.
func (s *RegistryService) FullRegistry(ctx context.Context, filter models.RegistryFilter) ([]models.StudentView, error) {
	start := time.Now()
	role := models.RoleStudent
	accounts, err := s.deps.Accounts.List(ctx, models.AccountFilter{Role: &role})
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load accounts")
	}

	views := make([]models.StudentView, len(accounts))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ReadConcurrency)
	for i := range accounts {
		i := i
		g.Go(func() error {
			records, err := s.loadRecords(gctx, accounts[i])
			if err != nil {
				return err
			}
			views[i] = records.view(s.cfg.CompletionThreshold)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Persistence(err, "failed to load registry")
	}
	s.deps.Metrics.ObserveDBQuery("registry_full", time.Since(start))

	result := make([]models.StudentView, 0, len(views))
	for _, view := range views {
		if filter.Category != nil && view.VehicleCategory != *filter.Category {
			continue
		}
		result = append(result, view)
	}
	return result, nil
}

// StudentView returns the reconciled view of one student.
func (s *RegistryService) StudentView(ctx context.Context, userID string) (*models.StudentView, error) {
	account, err := s.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.loadRecords(ctx, *account)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load student records")
	}
	view := records.view(s.cfg.CompletionThreshold)
	return &view, nil
}

// FindByApplicationNumber resolves a student through the registry application number.
func (s *RegistryService) FindByApplicationNumber(ctx context.Context, number string) (*models.StudentView, error) {
	number = strings.TrimSpace(number)
	if number == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "application number is required")
	}
	record, err := s.deps.Registry.FindByApplicationNumber(ctx, number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registry record not found")
		}
		return nil, appErrors.Persistence(err, "failed to load registry record")
	}
	return s.StudentView(ctx, record.UserID)
}

// UpdateRegistry applies a sparse patch across account, profile, ledger and registry.
func (s *RegistryService) UpdateRegistry(ctx context.Context, userID string, patch models.RegistryPatch) (*models.UpdateRegistryResult, error) {
	if err := s.validator.Struct(patch); err != nil {
		return nil, appErrors.Validation(err, "invalid registry payload")
	}
	account, err := s.findAccount(ctx, userID)
	if err != nil {
		return nil, err
	}
	records, err := s.loadRecords(ctx, *account)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to load student records")
	}
	if err := s.ensureApplicationNumberFree(ctx, userID, records.registry, patch.ApplicationNumber); err != nil {
		return nil, err
	}

	now := s.now()
	changes := models.ChangeSummary{
		Account:  models.ChangeUnchanged,
		Profile:  models.ChangeUnchanged,
		Payment:  models.ChangeUnchanged,
		Registry: models.ChangeUnchanged,
	}
	tracker := &writeTracker{}

	var g errgroup.Group
	if next := planAccount(records.account, patch); next != nil {
		tracker.attempt("account")
		g.Go(func() error {
			err := s.deps.Accounts.Update(ctx, next)
			s.recordWrite("account", err)
			if err != nil {
				return fmt.Errorf("account: %w", err)
			}
			changes.Account = models.ChangeUpdated
			return nil
		})
	}
	if next, create := planProfile(userID, records.profile, patch); next != nil {
		tracker.attempt("profile")
		g.Go(func() error {
			write, state := s.deps.Profiles.Update, models.ChangeUpdated
			if create {
				write, state = s.deps.Profiles.Create, models.ChangeCreated
			}
			err := write(ctx, next)
			s.recordWrite("profile", err)
			if err != nil {
				return fmt.Errorf("profile: %w", err)
			}
			changes.Profile = state
			return nil
		})
	}
	if next, create := planLedger(userID, records.ledger, patch); next != nil {
		tracker.attempt("payment")
		g.Go(func() error {
			write, state := s.deps.Ledgers.UpdateLedger, models.ChangeUpdated
			if create {
				write, state = s.deps.Ledgers.CreateLedger, models.ChangeCreated
			}
			err := write(ctx, next)
			s.recordWrite("payment", err)
			if err != nil {
				return fmt.Errorf("payment: %w", err)
			}
			changes.Payment = state
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, tracker.failure(err, "failed to update student records")
	}

	record, create := s.applyRegistryPatch(userID, records.registry, records.ledger, patch, now)
	applyDerived(record, patch.Status, s.cfg.CompletionThreshold)
	changes.SessionCount = len(record.Sessions)

	if create || !reflect.DeepEqual(records.registry, record) {
		tracker.attempt("registry")
		write, state := s.deps.Registry.Update, models.ChangeUpdated
		if create {
			write, state = s.deps.Registry.Create, models.ChangeCreated
		}
		err := write(ctx, record)
		s.recordWrite("registry", err)
		if err != nil {
			return nil, tracker.failure(fmt.Errorf("registry: %w", err), "failed to save registry record")
		}
		changes.Registry = state
	}

	s.invalidateStats(ctx)
	s.notify(ctx, EventRegistryUpdated, userID, map[string]string{
		"account":  string(changes.Account),
		"profile":  string(changes.Profile),
		"payment":  string(changes.Payment),
		"registry": string(changes.Registry),
		"sessions": strconv.Itoa(changes.SessionCount),
	})

	return &models.UpdateRegistryResult{RegistryID: record.ID, UpdatedAt: record.UpdatedAt, Changes: changes}, nil
}

// AddSession appends one attendance session to an existing registry record.
func (s *RegistryService) AddSession(ctx context.Context, userID string, input models.SessionInput) (*models.AddSessionResult, error) {
	if err := s.validator.Struct(input); err != nil {
		return nil, appErrors.Validation(err, "invalid session payload")
	}
	record, err := s.deps.Registry.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "registry record not found")
		}
		return nil, appErrors.Persistence(err, "failed to load registry record")
	}

	session := buildSession(input, s.now(), record.VehicleCategory, s.cfg.DefaultCategory)
	record.Sessions = append(record.Sessions, session)
	applyDerived(record, nil, s.cfg.CompletionThreshold)

	err = s.deps.Registry.Update(ctx, record)
	s.recordWrite("registry", err)
	if err != nil {
		return nil, appErrors.WriteFailure(err, "failed to save registry record")
	}

	s.invalidateStats(ctx)
	s.notify(ctx, EventSessionAdded, userID, map[string]string{
		"total_sessions": strconv.Itoa(record.TotalSessions),
		"status":         string(record.Status),
	})

	return &models.AddSessionResult{
		RegistryID: record.ID,
		Session:    session,
		Stats:      record.AttendanceStats,
		Status:     record.Status,
	}, nil
}

// DeleteStudent removes the account and, independently, every dependent record.
// Deleting an unknown account is not an error.
func (s *RegistryService) DeleteStudent(ctx context.Context, userID string) (*models.DeleteStudentResult, error) {
	var (
		result models.DeleteStudentResult
		g      errgroup.Group
	)
	remove := func(entity string, del func(context.Context, string) (bool, error), flag *bool) {
		g.Go(func() error {
			deleted, err := del(ctx, userID)
			if err != nil {
				return fmt.Errorf("%s: %w", entity, err)
			}
			*flag = deleted
			return nil
		})
	}
	remove("account", s.deps.Accounts.Delete, &result.Account)
	remove("profile", s.deps.Profiles.DeleteByUserID, &result.Profile)
	remove("progress", s.deps.Progress.DeleteByUserID, &result.Progress)
	remove("payment", s.deps.Ledgers.DeleteLedger, &result.Payment)
	remove("registry", s.deps.Registry.DeleteByUserID, &result.Registry)

	if err := g.Wait(); err != nil {
		return nil, appErrors.WithDetails(appErrors.Persistence(err, "failed to delete student records"), map[string]interface{}{
			"deleted": result,
		})
	}

	if result.Registry {
		s.invalidateStats(ctx)
	}
	if result.Account {
		s.notify(ctx, EventStudentDeleted, userID, nil)
	}
	return &result, nil
}

// BulkUpdateCategory moves the registry records of several students to one category.
func (s *RegistryService) BulkUpdateCategory(ctx context.Context, req models.BulkCategoryRequest) (*models.BulkCategoryResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid bulk category payload")
	}
	if !req.Category.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown vehicle category")
	}

	ids := uniqueIDs(req.UserIDs)
	modified, err := s.deps.Registry.BulkUpdateCategory(ctx, ids, req.Category)
	if err != nil {
		return nil, appErrors.Persistence(err, "failed to update vehicle categories")
	}
	if modified > 0 {
		s.invalidateStats(ctx)
	}
	return &models.BulkCategoryResult{Modified: modified}, nil
}

func (s *RegistryService) findAccount(ctx context.Context, userID string) (*models.Account, error) {
	account, err := s.deps.Accounts.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student not found")
		}
		return nil, appErrors.Persistence(err, "failed to load account")
	}
	return account, nil
}

// loadRecords reads the dependents of one account concurrently. Missing dependents stay nil.
func (s *RegistryService) loadRecords(ctx context.Context, account models.Account) (studentRecords, error) {
	records := studentRecords{account: account}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		records.profile, err = findOptional(gctx, s.deps.Profiles.FindByUserID, account.ID)
		return err
	})
	g.Go(func() (err error) {
		records.ledger, err = findOptional(gctx, s.deps.Ledgers.FindLedger, account.ID)
		return err
	})
	g.Go(func() (err error) {
		records.registry, err = findOptional(gctx, s.deps.Registry.FindByUserID, account.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return studentRecords{}, err
	}
	return records, nil
}

func (s *RegistryService) ensureApplicationNumberFree(ctx context.Context, userID string, current *models.RegistryRecord, number *string) error {
	if number == nil || (current != nil && current.ApplicationNumber == *number) {
		return nil
	}
	owner, err := findOptional(ctx, s.deps.Registry.FindByApplicationNumber, *number)
	if err != nil {
		return appErrors.Persistence(err, "failed to check application number")
	}
	if owner != nil && owner.UserID != userID {
		return appErrors.Clone(appErrors.ErrConflict, "application number already assigned")
	}
	return nil
}

// applyRegistryPatch returns the record to save and whether it must be created.
// The stored record is never mutated.
func (s *RegistryService) applyRegistryPatch(userID string, existing *models.RegistryRecord, ledger *models.StudentLedger, patch models.RegistryPatch, now time.Time) (*models.RegistryRecord, bool) {
	var record models.RegistryRecord
	create := existing == nil
	if create {
		record = models.RegistryRecord{
			UserID:            userID,
			ApplicationNumber: fmt.Sprintf("APP-%d", now.UnixMilli()),
			VehicleCategory:   s.cfg.DefaultCategory,
			Sessions:          models.AttendanceSessions{},
			Status:            models.RegistryStatusActive,
		}
		if ledger != nil {
			record.PaidAmount = ledger.PaidAmount
			record.BalanceAmount = ledger.RemainingAmount
			record.TotalFee = ledger.PaidAmount + ledger.RemainingAmount
		}
	} else {
		record = *existing
		record.Sessions = slices.Clone(existing.Sessions)
	}

	previousCategory := record.VehicleCategory
	if patch.ApplicationNumber != nil {
		record.ApplicationNumber = *patch.ApplicationNumber
	}
	if patch.VehicleCategory != nil {
		record.VehicleCategory = *patch.VehicleCategory
	}
	if patch.Phone != nil {
		record.Phone = patch.Phone
	}
	if patch.LLTestDate != nil {
		record.LLTestDate = patch.LLTestDate
	}
	if patch.DLTestDate != nil {
		record.DLTestDate = patch.DLTestDate
	}
	if patch.LicenseValidity != nil {
		record.LicenseValidity = patch.LicenseValidity
	}
	if patch.PaidAmount != nil || patch.BalanceAmount != nil {
		if patch.PaidAmount != nil {
			record.PaidAmount = *patch.PaidAmount
		}
		if patch.BalanceAmount != nil {
			record.BalanceAmount = *patch.BalanceAmount
		}
		record.TotalFee = record.PaidAmount + record.BalanceAmount
	}
	if patch.Sessions != nil {
		var supplied models.VehicleCategory
		if patch.VehicleCategory != nil {
			supplied = *patch.VehicleCategory
		}
		sessions := make(models.AttendanceSessions, 0, len(*patch.Sessions))
		for _, input := range *patch.Sessions {
			sessions = append(sessions, buildSession(input, now, supplied, previousCategory))
		}
		record.Sessions = sessions
	}
	return &record, create
}

func planAccount(account models.Account, patch models.RegistryPatch) *models.Account {
	if patch.FullName == nil || *patch.FullName == account.FullName {
		return nil
	}
	next := account
	next.FullName = *patch.FullName
	return &next
}

func planProfile(userID string, profile *models.Profile, patch models.RegistryPatch) (*models.Profile, bool) {
	if patch.Phone == nil && patch.DateOfBirth == nil {
		return nil, false
	}
	if profile == nil {
		return &models.Profile{UserID: userID, Phone: patch.Phone, DateOfBirth: patch.DateOfBirth}, true
	}
	next := *profile
	changed := false
	if patch.Phone != nil && (next.Phone == nil || *next.Phone != *patch.Phone) {
		next.Phone = patch.Phone
		changed = true
	}
	if patch.DateOfBirth != nil && (next.DateOfBirth == nil || !next.DateOfBirth.Equal(*patch.DateOfBirth)) {
		next.DateOfBirth = patch.DateOfBirth
		changed = true
	}
	if !changed {
		return nil, false
	}
	return &next, false
}

func planLedger(userID string, ledger *models.StudentLedger, patch models.RegistryPatch) (*models.StudentLedger, bool) {
	if patch.PaidAmount == nil && patch.BalanceAmount == nil {
		return nil, false
	}
	create := ledger == nil
	var next models.StudentLedger
	if create {
		next = models.StudentLedger{UserID: userID}
	} else {
		next = *ledger
	}
	if patch.PaidAmount != nil {
		next.PaidAmount = *patch.PaidAmount
	}
	if patch.BalanceAmount != nil {
		next.RemainingAmount = *patch.BalanceAmount
	}
	next.Status = LedgerStatusFor(next.PaidAmount, next.RemainingAmount)
	if !create && next.PaidAmount == ledger.PaidAmount && next.RemainingAmount == ledger.RemainingAmount && next.Status == ledger.Status {
		return nil, false
	}
	return &next, create
}

func (s *RegistryService) recordWrite(entity string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
		s.logger.Warn("registry write failed", zap.String("entity", entity), zap.Error(err))
	}
	s.deps.Metrics.RecordRegistryWrite(entity, outcome)
}

func (s *RegistryService) invalidateStats(ctx context.Context) {
	if s.deps.Cache == nil {
		return
	}
	if err := s.deps.Cache.Invalidate(ctx, statsCachePattern); err != nil {
		s.logger.Warn("failed to invalidate registry stats cache", zap.Error(err))
	}
}

func (s *RegistryService) notify(ctx context.Context, event NotificationEvent, userID string, fields map[string]string) {
	if s.deps.Notifier == nil {
		return
	}
	s.deps.Notifier.Notify(ctx, event, userID, fields)
}

// writeTracker remembers which entities a write path touched.
type writeTracker struct {
	mu        sync.Mutex
	attempted []string
}

func (t *writeTracker) attempt(entity string) {
	t.mu.Lock()
	t.attempted = append(t.attempted, entity)
	t.mu.Unlock()
}

func (t *writeTracker) failure(err error, message string) error {
	t.mu.Lock()
	attempted := append([]string(nil), t.attempted...)
	t.mu.Unlock()
	sort.Strings(attempted)
	return appErrors.WithDetails(appErrors.WriteFailure(err, message), map[string]interface{}{"attempted": attempted})
}

func findOptional[T any](ctx context.Context, find func(context.Context, string) (*T, error), key string) (*T, error) {
	value, err := find(ctx, key)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return value, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	unique := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}
