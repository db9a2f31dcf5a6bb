package models

// VehicleLookupRequest keys the external vehicle-status lookup.
type VehicleLookupRequest struct {
	Registration string `form:"registration" validate:"required,min=4,max=20"`
	Chassis      string `form:"chassis" validate:"required,min=4,max=20"`
}

// VehicleLookupResult holds the label/value pairs returned by the portal.
type VehicleLookupResult struct {
	Registration string            `json:"registration"`
	Fields       map[string]string `json:"fields"`
}
