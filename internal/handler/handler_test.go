package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/drive-admin-api/internal/middleware"
	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/internal/service"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
	"github.com/noah-isme/drive-admin-api/pkg/export"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type registryServiceMock struct {
	views     []models.StudentView
	updateErr error
	patch     models.RegistryPatch
	filter    models.RegistryFilter
}

func (m *registryServiceMock) FullRegistry(_ context.Context, filter models.RegistryFilter) ([]models.StudentView, error) {
	m.filter = filter
	return m.views, nil
}

func (m *registryServiceMock) StudentView(_ context.Context, userID string) (*models.StudentView, error) {
	return &models.StudentView{UserID: userID}, nil
}

func (m *registryServiceMock) FindByApplicationNumber(_ context.Context, number string) (*models.StudentView, error) {
	return &models.StudentView{ApplicationNumber: number}, nil
}

func (m *registryServiceMock) UpdateRegistry(_ context.Context, userID string, patch models.RegistryPatch) (*models.UpdateRegistryResult, error) {
	m.patch = patch
	if m.updateErr != nil {
		return nil, m.updateErr
	}
	return &models.UpdateRegistryResult{RegistryID: "r-" + userID, Changes: models.ChangeSummary{Registry: models.ChangeUpdated}}, nil
}

func (m *registryServiceMock) AddSession(_ context.Context, userID string, _ models.SessionInput) (*models.AddSessionResult, error) {
	return &models.AddSessionResult{RegistryID: "r-" + userID}, nil
}

func (m *registryServiceMock) DeleteStudent(context.Context, string) (*models.DeleteStudentResult, error) {
	return &models.DeleteStudentResult{}, nil
}

func (m *registryServiceMock) BulkUpdateCategory(_ context.Context, req models.BulkCategoryRequest) (*models.BulkCategoryResult, error) {
	return &models.BulkCategoryResult{Modified: int64(len(req.UserIDs))}, nil
}

type statisticsServiceMock struct{}

func (statisticsServiceMock) ByCategory(context.Context, models.RegistryFilter) ([]models.CategoryStats, error) {
	return []models.CategoryStats{{Category: models.VehicleTwoWheeler, StudentCount: 2, CompletedCount: 1, CompletionRate: 0.5}}, nil
}

type exportServiceMock struct{}

func (exportServiceMock) Export(_ context.Context, format export.Format, _ models.RegistryFilter) (*service.ExportResult, error) {
	if format != export.FormatCSV {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
	return &service.ExportResult{Filename: "registry.csv", ContentType: format.ContentType(), Payload: []byte("Application No\nAPP-1\n")}, nil
}

type authServiceMock struct{}

func (authServiceMock) Signup(_ context.Context, req models.SignupRequest) (*models.AccountInfo, error) {
	return &models.AccountInfo{ID: "new", Email: req.Email, Role: models.RoleStudent}, nil
}

func (authServiceMock) Login(context.Context, models.LoginRequest) (*models.LoginResponse, error) {
	return nil, appErrors.ErrInvalidCredentials
}

type vehicleServiceMock struct{}

func (vehicleServiceMock) Lookup(_ context.Context, req models.VehicleLookupRequest) (*models.VehicleLookupResult, error) {
	return &models.VehicleLookupResult{Registration: req.Registration, Fields: map[string]string{"Status": "ACTIVE"}}, nil
}

// testAuth trusts the X-Test-Role and X-Test-User headers.
func testAuth(c *gin.Context) {
	role := c.GetHeader("X-Test-Role")
	if role == "" {
		response.Error(c, appErrors.ErrUnauthorized)
		c.Abort()
		return
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: c.GetHeader("X-Test-User"), Role: models.AccountRole(role)})
	c.Next()
}

func buildRouter(registry *registryServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	Register(router, Handlers{
		Auth:     NewAuthHandler(authServiceMock{}),
		Registry: NewRegistryHandler(registry, statisticsServiceMock{}, exportServiceMock{}),
		Accounts: NewAccountHandler(nil),
		Profile:  NewProfileHandler(nil),
		Progress: NewProgressHandler(nil),
		Payments: NewPaymentHandler(nil),
		Vehicles: NewVehicleHandler(vehicleServiceMock{}),
		Metrics:  NewMetricsHandler(nil, nil),
	}, testAuth)
	return router
}

func performRequest(router *gin.Engine, method, path, role, user string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-Role", role)
		req.Header.Set("X-Test-User", user)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeEnvelope(t *testing.T, w *httptest.ResponseRecorder) response.Envelope {
	t.Helper()
	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	return envelope
}

func TestRegistryRoutesRequireAdmin(t *testing.T) {
	registry := &registryServiceMock{views: []models.StudentView{{UserID: "u1"}, {UserID: "u2"}}}
	router := buildRouter(registry)

	w := performRequest(router, http.MethodGet, "/registry?category=two-wheeler", string(models.RoleAdmin), "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.Equal(t, float64(2), envelope.Meta["count"])
	require.NotNil(t, registry.filter.Category)
	assert.Equal(t, models.VehicleTwoWheeler, *registry.filter.Category)

	w = performRequest(router, http.MethodGet, "/registry", string(models.RoleStudent), "u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(router, http.MethodGet, "/registry", "", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegistryGetAllowsSelf(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodGet, "/registry/u1", string(models.RoleStudent), "u1", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = performRequest(router, http.MethodGet, "/registry/u2", string(models.RoleStudent), "u1", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestStaticRegistryRoutesWinOverUserID(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodGet, "/registry/stats", string(models.RoleAdmin), "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"completionRate":0.5`)

	w = performRequest(router, http.MethodGet, "/registry/application/APP-7", string(models.RoleAdmin), "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applicationNumber":"APP-7"`)
}

func TestRegistryUpdate(t *testing.T) {
	registry := &registryServiceMock{}
	router := buildRouter(registry)

	w := performRequest(router, http.MethodPatch, "/registry/u1", string(models.RoleAdmin), "admin", []byte(`{"balanceAmount":250}`))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, registry.patch.BalanceAmount)
	assert.Equal(t, 250.0, *registry.patch.BalanceAmount)
	assert.Nil(t, registry.patch.PaidAmount)
	assert.Contains(t, w.Body.String(), `"registryId":"r-u1"`)

	w = performRequest(router, http.MethodPatch, "/registry/u1", string(models.RoleAdmin), "admin", []byte(`{invalid`))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	registry.updateErr = appErrors.WithDetails(appErrors.Persistence(nil, "failed to update student records"), map[string]interface{}{"attempted": []string{"profile"}})
	w = performRequest(router, http.MethodPatch, "/registry/u1", string(models.RoleAdmin), "admin", []byte(`{"phone":"9"}`))
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	envelope := decodeEnvelope(t, w)
	assert.False(t, envelope.Success)
	assert.Equal(t, []interface{}{"profile"}, envelope.Error.Details["attempted"])
}

func TestRegistryBulkCategoryAndSessions(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodPost, "/registry/bulk-category", string(models.RoleAdmin), "admin", []byte(`{"userIds":["a","b"],"category":"two-wheeler"}`))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"modified":2`)

	w = performRequest(router, http.MethodPost, "/registry/u1/sessions", string(models.RoleAdmin), "admin", []byte(`{"ground":5}`))
	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestRegistryExport(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodGet, "/registry/export?format=csv", string(models.RoleAdmin), "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), "registry.csv")
	assert.Contains(t, w.Body.String(), "APP-1")

	w = performRequest(router, http.MethodGet, "/registry/export?format=docx", string(models.RoleAdmin), "admin", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthRoutesArePublic(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodPost, "/auth/signup", "", "", []byte(`{"email":"a@example.com","password":"secret1","fullName":"A"}`))
	assert.Equal(t, http.StatusCreated, w.Code)

	w = performRequest(router, http.MethodPost, "/auth/login", "", "", []byte(`{"email":"a@example.com","password":"wrong"}`))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMeUsesCallerIdentity(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodGet, "/me", string(models.RoleStudent), "u9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userId":"u9"`)
}

func TestVehicleLookupBindsQuery(t *testing.T) {
	router := buildRouter(&registryServiceMock{})

	w := performRequest(router, http.MethodGet, "/vehicles/lookup?registration=KA01AB1234&chassis=12345", string(models.RoleAdmin), "admin", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Status":"ACTIVE"`)
}

func TestReadyReportsFailingChecks(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewMetricsHandler(nil, map[string]Pinger{"postgres": failingPinger{}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/ready", nil)

	h.Ready(c)

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "postgres")
}

type failingPinger struct{}

func (failingPinger) PingContext(context.Context) error {
	return context.DeadlineExceeded
}
