package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/provisioning"
)

// CreateUserRequest is the body of a user provisioning call.
type CreateUserRequest struct {
	Email             string               `json:"email"`
	FullName          string               `json:"full_name"`
	Role              model.Role           `json:"role"`
	OrganisationID    string               `json:"organisation_id"`
	PhoneNumber       *string              `json:"phone_number"`
	Address           *string              `json:"address"`
	PostalCode        *string              `json:"postal_code"`
	City              *string              `json:"city"`
	Personnummer      *string              `json:"personnummer"`
	BankAccountNumber *string              `json:"bank_account_number"`
	EmploymentType    model.EmploymentType `json:"employment_type"`
	BaseHourlyRate    *float64             `json:"base_hourly_rate"`
	BaseMonthlySalary *float64             `json:"base_monthly_salary"`
	HasCommission     *bool                `json:"has_commission"`
	CommissionRate    *float64             `json:"commission_rate"`
}

// ToRequest converts the body to a provisioning request.
func (r *CreateUserRequest) ToRequest() provisioning.Request {
	return provisioning.Request{
		Email:             r.Email,
		FullName:          r.FullName,
		Role:              r.Role,
		OrganisationID:    r.OrganisationID,
		PhoneNumber:       r.PhoneNumber,
		Address:           r.Address,
		PostalCode:        r.PostalCode,
		City:              r.City,
		Personnummer:      r.Personnummer,
		BankAccountNumber: r.BankAccountNumber,
		EmploymentType:    r.EmploymentType,
		BaseHourlyRate:    r.BaseHourlyRate,
		BaseMonthlySalary: r.BaseMonthlySalary,
		HasCommission:     r.HasCommission,
		CommissionRate:    r.CommissionRate,
	}
}

// MessageResponse is the provisioning success body.
type MessageResponse struct {
	Message string `json:"message"`
}

// PlainError is the provisioning failure body. It carries no code.
type PlainError struct {
	Error string `json:"error"`
}
