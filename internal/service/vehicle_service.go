package service

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/drive-admin-api/internal/models"
	appErrors "github.com/noah-isme/drive-admin-api/pkg/errors"
	"github.com/noah-isme/drive-admin-api/pkg/portal"
)

type vehiclePortal interface {
	Lookup(ctx context.Context, registration, chassis string) (map[string]string, error)
}

// VehicleService looks vehicles up on the external status portal.
type VehicleService struct {
	portal    vehiclePortal
	validator *validator.Validate
	logger    *zap.Logger
}

// NewVehicleService constructs a vehicle lookup service.
func NewVehicleService(p vehiclePortal, validate *validator.Validate, logger *zap.Logger) *VehicleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &VehicleService{portal: p, validator: validate, logger: logger}
}

// Lookup maps portal refusals and empty answers to their own error categories.
func (s *VehicleService) Lookup(ctx context.Context, req models.VehicleLookupRequest) (*models.VehicleLookupResult, error) {
	req.Registration = strings.ToUpper(strings.TrimSpace(req.Registration))
	req.Chassis = strings.ToUpper(strings.TrimSpace(req.Chassis))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Validation(err, "invalid lookup parameters")
	}

	fields, err := s.portal.Lookup(ctx, req.Registration, req.Chassis)
	switch {
	case err == nil:
	case errors.Is(err, portal.ErrAccessDenied):
		return nil, appErrors.Wrap(err, appErrors.ErrAccessDenied.Code, appErrors.ErrAccessDenied.Status, appErrors.ErrAccessDenied.Message)
	case errors.Is(err, portal.ErrNoRecords):
		return nil, appErrors.Wrap(err, appErrors.ErrNoRecords.Code, appErrors.ErrNoRecords.Status, appErrors.ErrNoRecords.Message)
	default:
		s.logger.Warn("vehicle lookup failed", zap.String("registration", req.Registration), zap.Error(err))
		return nil, appErrors.Upstream(err, "vehicle status portal unavailable")
	}
	return &models.VehicleLookupResult{Registration: req.Registration, Fields: fields}, nil
}
