package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// ProfileUpdateRequest edits a user profile. Absent fields are kept.
type ProfileUpdateRequest struct {
	FullName          *string               `json:"full_name"`
	Role              *model.Role           `json:"role"`
	PhoneNumber       *string               `json:"phone_number"`
	Address           *string               `json:"address"`
	PostalCode        *string               `json:"postal_code"`
	City              *string               `json:"city"`
	Personnummer      *string               `json:"personnummer"`
	BankAccountNumber *string               `json:"bank_account_number"`
	EmploymentType    *model.EmploymentType `json:"employment_type"`
	BaseHourlyRate    *float64              `json:"base_hourly_rate"`
	BaseMonthlySalary *float64              `json:"base_monthly_salary"`
	HasCommission     *bool                 `json:"has_commission"`
	CommissionRate    *float64              `json:"commission_rate"`
	IsActive          *bool                 `json:"is_active"`
}

// ToInput converts the body to service input.
func (r *ProfileUpdateRequest) ToInput() service.ProfileUpdate {
	return service.ProfileUpdate(*r)
}
