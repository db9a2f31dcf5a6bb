package service

import (
	"github.com/noah-isme/drive-admin-api/internal/models"
)

// studentRecords groups everything stored for one account. Any dependent may be nil.
type studentRecords struct {
	account  models.Account
	profile  *models.Profile
	ledger   *models.StudentLedger
	registry *models.RegistryRecord
}

// BuildStudentView folds the records of one account into its reconciled view.
// Shared fields resolve registry first, then ledger, then profile, then a literal default.
func BuildStudentView(account models.Account, profile *models.Profile, ledger *models.StudentLedger, registry *models.RegistryRecord, threshold int) models.StudentView {
	view := models.StudentView{
		UserID:          account.ID,
		Email:           account.Email,
		FullName:        account.FullName,
		Role:            account.Role,
		VehicleCategory: models.DefaultVehicleCategory,
		Sessions:        []models.AttendanceSession{},
		Status:          models.RegistryStatusActive,
		CreatedAt:       account.CreatedAt,
		UpdatedAt:       account.UpdatedAt,
	}

	var registryPhone, ledgerPhone, profilePhone *string
	if registry != nil {
		registryPhone = registry.Phone
	}
	if ledger != nil {
		ledgerPhone = ledger.Phone
	}
	if profile != nil {
		profilePhone = profile.Phone
		view.Address = firstString(profile.Address)
		view.Location = firstString(profile.Location)
		view.DateOfBirth = profile.DateOfBirth
		view.ImageURL = firstString(profile.ImageURL)
	}
	view.Phone = firstString(registryPhone, ledgerPhone, profilePhone)

	switch {
	case registry != nil:
		view.PaidAmount = registry.PaidAmount
		view.RemainingAmount = registry.BalanceAmount
		view.TotalFee = registry.TotalFee
	case ledger != nil:
		view.PaidAmount = ledger.PaidAmount
		view.RemainingAmount = ledger.RemainingAmount
		view.TotalFee = ledger.PaidAmount + ledger.RemainingAmount
	}

	if registry != nil {
		view.RegistryID = registry.ID
		view.ApplicationNumber = registry.ApplicationNumber
		view.VehicleCategory = firstCategory(registry.VehicleCategory)
		view.LLTestDate = registry.LLTestDate
		view.DLTestDate = registry.DLTestDate
		view.LicenseValidity = registry.LicenseValidity
		view.Stats = registry.AttendanceStats
		if registry.Status != "" {
			view.Status = registry.Status
		}
		view.CreatedAt = registry.CreatedAt
		view.UpdatedAt = registry.UpdatedAt
		for _, session := range registry.Sessions {
			session.VehicleType = firstCategory(session.VehicleType, view.VehicleCategory)
			view.Sessions = append(view.Sessions, session)
		}
	}

	view.CompletionPercentage = CompletionPercentage(view.Stats.TotalSessions, threshold)
	view.NextActivity = NextActivity(view.Stats, view.Status)
	return view
}

func (r studentRecords) view(threshold int) models.StudentView {
	return BuildStudentView(r.account, r.profile, r.ledger, r.registry, threshold)
}
