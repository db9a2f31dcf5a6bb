package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
	"github.com/noah-isme/drive-admin-api/pkg/response"
)

type vehicleService interface {
	Lookup(ctx context.Context, req models.VehicleLookupRequest) (*models.VehicleLookupResult, error)
}

// VehicleHandler proxies the external vehicle-status portal.
type VehicleHandler struct {
	service vehicleService
}

// NewVehicleHandler creates a vehicle handler.
func NewVehicleHandler(svc vehicleService) *VehicleHandler {
	return &VehicleHandler{service: svc}
}

// Lookup godoc
// @Summary Vehicle status lookup
// @Tags Vehicles
// @Produce json
// @Param registration query string true "Registration number"
// @Param chassis query string true "Chassis number suffix"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 502 {object} response.Envelope
// @Router /vehicles/lookup [get]
func (h *VehicleHandler) Lookup(c *gin.Context) {
	var req models.VehicleLookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lookup parameters"))
		return
	}
	result, err := h.service.Lookup(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result)
}
