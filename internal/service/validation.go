package service

import (
	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/drive-admin-api/internal/models"
)

// NewValidator returns a validator with the domain rules registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	RegisterValidations(v)
	return v
}

// RegisterValidations adds the vehicle_category rule.
func RegisterValidations(v *validator.Validate) {
	_ = v.RegisterValidation("vehicle_category", func(fl validator.FieldLevel) bool {
		return models.VehicleCategory(fl.Field().String()).Valid()
	})
}
