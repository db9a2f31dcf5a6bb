package service

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

type fakeAccounts struct {
	mu        sync.Mutex
	items     map[string]models.Account
	findErr   error
	updateErr error
	deleteErr error
}

func newFakeAccounts(accounts ...models.Account) *fakeAccounts {
	f := &fakeAccounts{items: map[string]models.Account{}}
	for _, account := range accounts {
		f.items[account.ID] = account
	}
	return f
}

func (f *fakeAccounts) FindByID(_ context.Context, id string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	account, ok := f.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &account, nil
}

func (f *fakeAccounts) FindByEmail(_ context.Context, email string) (*models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, account := range f.items {
		if strings.EqualFold(account.Email, email) {
			found := account
			return &found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeAccounts) List(_ context.Context, filter models.AccountFilter) ([]models.Account, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.findErr != nil {
		return nil, f.findErr
	}
	var out []models.Account
	for _, account := range f.items {
		if filter.Role != nil && account.Role != *filter.Role {
			continue
		}
		out = append(out, account)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeAccounts) Create(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if account.ID == "" {
		account.ID = uuid.NewString()
	}
	account.CreatedAt = time.Now().UTC()
	account.UpdatedAt = account.CreatedAt
	f.items[account.ID] = *account
	return nil
}

func (f *fakeAccounts) Update(_ context.Context, account *models.Account) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	account.UpdatedAt = time.Now().UTC()
	f.items[account.ID] = *account
	return nil
}

func (f *fakeAccounts) Delete(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.deleteErr != nil {
		return false, f.deleteErr
	}
	_, ok := f.items[id]
	delete(f.items, id)
	return ok, nil
}

type fakeProfiles struct {
	mu        sync.Mutex
	items     map[string]models.Profile
	createErr error
	updateErr error
}

func newFakeProfiles(profiles ...models.Profile) *fakeProfiles {
	f := &fakeProfiles{items: map[string]models.Profile{}}
	for _, profile := range profiles {
		f.items[profile.UserID] = profile
	}
	return f
}

func (f *fakeProfiles) FindByUserID(_ context.Context, userID string) (*models.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	profile, ok := f.items[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &profile, nil
}

func (f *fakeProfiles) Create(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	f.items[profile.UserID] = *profile
	return nil
}

func (f *fakeProfiles) Update(_ context.Context, profile *models.Profile) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.items[profile.UserID] = *profile
	return nil
}

func (f *fakeProfiles) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[userID]
	delete(f.items, userID)
	return ok, nil
}

// errDuplicateOwner mimics the user_id unique constraint of the real tables.
var errDuplicateOwner = errors.New(`pq: duplicate key value violates unique constraint "progress_records_user_id_key"`)

type fakeProgress struct {
	mu        sync.Mutex
	items     map[string]models.StoredProgress
	creates   int
	updateErr error
}

func newFakeProgress(rows ...models.StoredProgress) *fakeProgress {
	f := &fakeProgress{items: map[string]models.StoredProgress{}}
	for _, row := range rows {
		f.items[row.UserID] = row
	}
	return f
}

func (f *fakeProgress) FindByUserID(_ context.Context, userID string) (*models.StoredProgress, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.items[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	row.Payload = slices.Clone(row.Payload)
	return &row, nil
}

func (f *fakeProgress) Create(_ context.Context, stored *models.StoredProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, exists := f.items[stored.UserID]; exists {
		return errDuplicateOwner
	}
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt
	f.items[stored.UserID] = *stored
	f.creates++
	return nil
}

func (f *fakeProgress) Update(_ context.Context, stored *models.StoredProgress) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	stored.UpdatedAt = time.Now().UTC()
	f.items[stored.UserID] = *stored
	return nil
}

func (f *fakeProgress) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[userID]
	delete(f.items, userID)
	return ok, nil
}

type fakePayments struct {
	mu        sync.Mutex
	ledgers   map[string]models.StudentLedger
	global    *models.GlobalPaymentConfig
	createErr error
	updateErr error
	globalErr error
}

func newFakePayments(ledgers ...models.StudentLedger) *fakePayments {
	f := &fakePayments{ledgers: map[string]models.StudentLedger{}}
	for _, ledger := range ledgers {
		f.ledgers[ledger.UserID] = ledger
	}
	return f
}

func (f *fakePayments) FindLedger(_ context.Context, userID string) (*models.StudentLedger, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ledger, ok := f.ledgers[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &ledger, nil
}

func (f *fakePayments) CreateLedger(_ context.Context, ledger *models.StudentLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	if ledger.ID == "" {
		ledger.ID = uuid.NewString()
	}
	f.ledgers[ledger.UserID] = *ledger
	return nil
}

func (f *fakePayments) UpdateLedger(_ context.Context, ledger *models.StudentLedger) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	f.ledgers[ledger.UserID] = *ledger
	return nil
}

func (f *fakePayments) DeleteLedger(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.ledgers[userID]
	delete(f.ledgers, userID)
	return ok, nil
}

func (f *fakePayments) GetGlobal(_ context.Context) (*models.GlobalPaymentConfig, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.globalErr != nil {
		return nil, f.globalErr
	}
	if f.global == nil {
		return nil, sql.ErrNoRows
	}
	cfg := *f.global
	return &cfg, nil
}

func (f *fakePayments) SaveGlobal(_ context.Context, cfg *models.GlobalPaymentConfig) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cfg.ID = models.GlobalPaymentID
	stored := *cfg
	f.global = &stored
	return nil
}

type fakeRegistry struct {
	mu        sync.Mutex
	items     map[string]models.RegistryRecord
	onFind    func()
	updateErr error
	creates   int
	updates   int
}

func newFakeRegistry(records ...models.RegistryRecord) *fakeRegistry {
	f := &fakeRegistry{items: map[string]models.RegistryRecord{}}
	for _, record := range records {
		f.items[record.UserID] = record
	}
	return f
}

func cloneRegistry(record models.RegistryRecord) models.RegistryRecord {
	record.Sessions = slices.Clone(record.Sessions)
	return record
}

func (f *fakeRegistry) List(_ context.Context, filter models.RegistryFilter) ([]models.RegistryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.RegistryRecord
	for _, record := range f.items {
		if filter.Category != nil && record.VehicleCategory != *filter.Category {
			continue
		}
		out = append(out, cloneRegistry(record))
	}
	return out, nil
}

func (f *fakeRegistry) FindByUserID(_ context.Context, userID string) (*models.RegistryRecord, error) {
	if hook := f.hook(); hook != nil {
		hook()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.items[userID]
	if !ok {
		return nil, sql.ErrNoRows
	}
	record = cloneRegistry(record)
	return &record, nil
}

func (f *fakeRegistry) hook() func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.onFind
}

func (f *fakeRegistry) FindByApplicationNumber(_ context.Context, number string) (*models.RegistryRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.items {
		if record.ApplicationNumber == number {
			record = cloneRegistry(record)
			return &record, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeRegistry) Create(_ context.Context, record *models.RegistryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	record.CreatedAt = time.Now().UTC()
	record.UpdatedAt = record.CreatedAt
	f.items[record.UserID] = cloneRegistry(*record)
	f.creates++
	return nil
}

func (f *fakeRegistry) Update(_ context.Context, record *models.RegistryRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.updateErr != nil {
		return f.updateErr
	}
	record.UpdatedAt = time.Now().UTC()
	f.items[record.UserID] = cloneRegistry(*record)
	f.updates++
	return nil
}

func (f *fakeRegistry) DeleteByUserID(_ context.Context, userID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.items[userID]
	delete(f.items, userID)
	return ok, nil
}

func (f *fakeRegistry) BulkUpdateCategory(_ context.Context, userIDs []string, category models.VehicleCategory) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var modified int64
	for _, id := range userIDs {
		record, ok := f.items[id]
		if !ok {
			continue
		}
		record.VehicleCategory = category
		f.items[id] = record
		modified++
	}
	return modified, nil
}

func (f *fakeRegistry) AggregateByCategory(_ context.Context, filter models.RegistryFilter) ([]models.CategoryStats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	groups := map[models.VehicleCategory]*models.CategoryStats{}
	for _, record := range f.items {
		if filter.Category != nil && record.VehicleCategory != *filter.Category {
			continue
		}
		group, ok := groups[record.VehicleCategory]
		if !ok {
			group = &models.CategoryStats{Category: record.VehicleCategory}
			groups[record.VehicleCategory] = group
		}
		group.StudentCount++
		group.TotalGroundSessions += record.TotalGroundSessions
		group.TotalSimulationSessions += record.TotalSimulationSessions
		group.TotalRoadSessions += record.TotalRoadSessions
		if record.Status == models.RegistryStatusCompleted {
			group.CompletedCount++
		}
	}
	out := make([]models.CategoryStats, 0, len(groups))
	for _, group := range groups {
		out = append(out, *group)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out, nil
}

type recordedEvent struct {
	event  NotificationEvent
	userID string
	fields map[string]string
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (f *fakeNotifier) Notify(_ context.Context, event NotificationEvent, userID string, fields map[string]string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, recordedEvent{event: event, userID: userID, fields: fields})
}

func (f *fakeNotifier) names() []NotificationEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	names := make([]NotificationEvent, 0, len(f.events))
	for _, e := range f.events {
		names = append(names, e.event)
	}
	return names
}

type fakeImages struct {
	url    string
	err    error
	calls  int
	folder string
}

func (f *fakeImages) Store(_ context.Context, folder string, _ []byte) (string, error) {
	f.calls++
	f.folder = folder
	if f.err != nil {
		return "", f.err
	}
	return f.url, nil
}

func strPtr(v string) *string { return &v }

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
