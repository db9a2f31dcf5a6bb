package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/internal/service"
	"github.com/noah-isme/drive-admin-api/pkg/export"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type registryService interface {
	FullRegistry(ctx context.Context, filter models.RegistryFilter) ([]models.StudentView, error)
	StudentView(ctx context.Context, userID string) (*models.StudentView, error)
	FindByApplicationNumber(ctx context.Context, number string) (*models.StudentView, error)
	UpdateRegistry(ctx context.Context, userID string, patch models.RegistryPatch) (*models.UpdateRegistryResult, error)
	AddSession(ctx context.Context, userID string, input models.SessionInput) (*models.AddSessionResult, error)
	DeleteStudent(ctx context.Context, userID string) (*models.DeleteStudentResult, error)
	BulkUpdateCategory(ctx context.Context, req models.BulkCategoryRequest) (*models.BulkCategoryResult, error)
}

type statisticsService interface {
	ByCategory(ctx context.Context, filter models.RegistryFilter) ([]models.CategoryStats, error)
}

type exportService interface {
	Export(ctx context.Context, format export.Format, filter models.RegistryFilter) (*service.ExportResult, error)
}

// RegistryHandler exposes the reconciled student registry.
type RegistryHandler struct {
	registry registryService
	stats    statisticsService
	exporter exportService
}

// NewRegistryHandler constructs a registry handler.
func NewRegistryHandler(registry registryService, stats statisticsService, exporter exportService) *RegistryHandler {
	return &RegistryHandler{registry: registry, stats: stats, exporter: exporter}
}

// List godoc
// @Summary Full registry
// @Description Reconciled view of every student
// @Tags Registry
// @Produce json
// @Param category query string false "Vehicle category"
// @Success 200 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /registry [get]
func (h *RegistryHandler) List(c *gin.Context) {
	views, err := h.registry.FullRegistry(c.Request.Context(), categoryFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, map[string]interface{}{"count": len(views)})
}

// Me godoc
// @Summary Own registry view
// @Description Reconciled view of the authenticated student
// @Tags Registry
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /me [get]
func (h *RegistryHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	view, err := h.registry.StudentView(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Get godoc
// @Summary Student registry view
// @Tags Registry
// @Produce json
// @Param userId path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registry/{userId} [get]
func (h *RegistryHandler) Get(c *gin.Context) {
	view, err := h.registry.StudentView(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// ByApplicationNumber godoc
// @Summary Find by application number
// @Tags Registry
// @Produce json
// @Param number path string true "Application number"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registry/application/{number} [get]
func (h *RegistryHandler) ByApplicationNumber(c *gin.Context) {
	view, err := h.registry.FindByApplicationNumber(c.Request.Context(), c.Param("number"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view)
}

// Update godoc
// @Summary Update student registry
// @Description Sparse patch applied across account, profile, payment and registry
// @Tags Registry
// @Accept json
// @Produce json
// @Param userId path string true "Account ID"
// @Param payload body models.RegistryPatch true "Registry patch"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 503 {object} response.Envelope
// @Router /registry/{userId} [patch]
func (h *RegistryHandler) Update(c *gin.Context) {
	var patch models.RegistryPatch
	if !bindJSON(c, &patch, "invalid registry payload") {
		return
	}
	result, err := h.registry.UpdateRegistry(c.Request.Context(), c.Param("userId"), patch)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// AddSession godoc
// @Summary Add attendance session
// @Tags Registry
// @Accept json
// @Produce json
// @Param userId path string true "Account ID"
// @Param payload body models.SessionInput true "Session"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registry/{userId}/sessions [post]
func (h *RegistryHandler) AddSession(c *gin.Context) {
	var input models.SessionInput
	if !bindJSON(c, &input, "invalid session payload") {
		return
	}
	result, err := h.registry.AddSession(c.Request.Context(), c.Param("userId"), input)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// BulkCategory godoc
// @Summary Bulk category update
// @Tags Registry
// @Accept json
// @Produce json
// @Param payload body models.BulkCategoryRequest true "Bulk request"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /registry/bulk-category [post]
func (h *RegistryHandler) BulkCategory(c *gin.Context) {
	var req models.BulkCategoryRequest
	if !bindJSON(c, &req, "invalid bulk category payload") {
		return
	}
	result, err := h.registry.BulkUpdateCategory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// DeleteStudent godoc
// @Summary Terminate student
// @Description Deletes the account and every dependent record. Idempotent.
// @Tags Registry
// @Produce json
// @Param userId path string true "Account ID"
// @Success 200 {object} response.Envelope
// @Router /students/{userId} [delete]
func (h *RegistryHandler) DeleteStudent(c *gin.Context) {
	result, err := h.registry.DeleteStudent(c.Request.Context(), c.Param("userId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}

// Stats godoc
// @Summary Registry statistics
// @Description Totals grouped by vehicle category
// @Tags Registry
// @Produce json
// @Param category query string false "Vehicle category"
// @Success 200 {object} response.Envelope
// @Router /registry/stats [get]
func (h *RegistryHandler) Stats(c *gin.Context) {
	stats, err := h.stats.ByCategory(c.Request.Context(), categoryFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats)
}

// Export godoc
// @Summary Export registry
// @Tags Registry
// @Produce octet-stream
// @Param format query string false "csv, xlsx or pdf"
// @Param category query string false "Vehicle category"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /registry/export [get]
func (h *RegistryHandler) Export(c *gin.Context) {
	format := export.Format(c.DefaultQuery("format", string(export.FormatCSV)))
	result, err := h.exporter.Export(c.Request.Context(), format, categoryFilter(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
