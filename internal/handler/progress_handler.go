package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type progressService interface {
	Get(ctx context.Context, userID string) (*models.ProgressRecord, error)
	UpsertCourse(ctx context.Context, userID string, vehicleType models.VehicleCategory, req models.UpsertCourseRequest) (*models.ProgressRecord, error)
	SetCell(ctx context.Context, userID string, vehicleType models.VehicleCategory, req models.SetCellRequest) (*models.ProgressRecord, error)
	RemoveCourse(ctx context.Context, userID string, vehicleType models.VehicleCategory) (*models.ProgressRecord, error)
}

// ProgressHandler serves attendance grids.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler creates a progress handler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Mine godoc
// @Summary Own progress
// @Description Normalized attendance grids, created on first read
// @Tags Progress
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /me/progress [get]
func (h *ProgressHandler) Mine(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	record, err := h.service.Get(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// UpsertCourse godoc
// @Summary Replace a course grid
// @Tags Progress
// @Accept json
// @Produce json
// @Param userId path string true "Account ID"
// @Param vehicleType path string true "Vehicle type"
// @Param payload body models.UpsertCourseRequest true "Grid"
// @Success 200 {object} response.Envelope
// @Router /progress/{userId}/courses/{vehicleType} [put]
func (h *ProgressHandler) UpsertCourse(c *gin.Context) {
	var req models.UpsertCourseRequest
	if !bindJSON(c, &req, "invalid course payload") {
		return
	}
	record, err := h.service.UpsertCourse(c.Request.Context(), c.Param("userId"), models.VehicleCategory(c.Param("vehicleType")), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// SetCell godoc
// @Summary Mark one grid cell
// @Tags Progress
// @Accept json
// @Produce json
// @Param userId path string true "Account ID"
// @Param vehicleType path string true "Vehicle type"
// @Param payload body models.SetCellRequest true "Cell"
// @Success 200 {object} response.Envelope
// @Router /progress/{userId}/courses/{vehicleType}/cells [patch]
func (h *ProgressHandler) SetCell(c *gin.Context) {
	var req models.SetCellRequest
	if !bindJSON(c, &req, "invalid cell payload") {
		return
	}
	record, err := h.service.SetCell(c.Request.Context(), c.Param("userId"), models.VehicleCategory(c.Param("vehicleType")), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}

// RemoveCourse godoc
// @Summary Remove a course grid
// @Tags Progress
// @Produce json
// @Param userId path string true "Account ID"
// @Param vehicleType path string true "Vehicle type"
// @Success 200 {object} response.Envelope
// @Router /progress/{userId}/courses/{vehicleType} [delete]
func (h *ProgressHandler) RemoveCourse(c *gin.Context) {
	record, err := h.service.RemoveCourse(c.Request.Context(), c.Param("userId"), models.VehicleCategory(c.Param("vehicleType")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record)
}
