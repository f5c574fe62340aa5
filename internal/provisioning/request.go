package provisioning

import (
	"net/mail"
	"strings"

	"github.com/glansab/backoffice/internal/model"
)

// Request describes a user to provision.
type Request struct {
	Email             string
	FullName          string
	Role              model.Role
	OrganisationID    string
	PhoneNumber       *string
	Address           *string
	PostalCode        *string
	City              *string
	Personnummer      *string
	BankAccountNumber *string
	EmploymentType    model.EmploymentType
	BaseHourlyRate    *float64
	BaseMonthlySalary *float64
	HasCommission     *bool
	CommissionRate    *float64
}

// Validate trims the identifying fields in place, then checks required fields
// and enum values. The email must be a bare address: display names and angle
// brackets are rejected.
func (r *Request) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	r.FullName = strings.TrimSpace(r.FullName)
	r.OrganisationID = strings.TrimSpace(r.OrganisationID)

	if r.Email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	addr, err := mail.ParseAddress(r.Email)
	if err != nil || addr.Name != "" || addr.Address != r.Email {
		return &ValidationError{Field: "email", Message: "email is invalid"}
	}
	if r.FullName == "" {
		return &ValidationError{Field: "full_name", Message: "full_name is required"}
	}
	if r.Role == "" {
		return &ValidationError{Field: "role", Message: "role is required"}
	}
	if !r.Role.IsValid() {
		return &ValidationError{Field: "role", Message: "role must be one of worker, sales, admin"}
	}
	if r.OrganisationID == "" {
		return &ValidationError{Field: "organisation_id", Message: "organisation_id is required"}
	}
	if r.EmploymentType == "" {
		return &ValidationError{Field: "employment_type", Message: "employment_type is required"}
	}
	if !r.EmploymentType.IsValid() {
		return &ValidationError{Field: "employment_type", Message: "employment_type must be hourly or salary"}
	}
	amounts := []struct {
		field string
		value *float64
	}{
		{"base_hourly_rate", r.BaseHourlyRate},
		{"base_monthly_salary", r.BaseMonthlySalary},
		{"commission_rate", r.CommissionRate},
	}
	for _, a := range amounts {
		if a.value != nil && *a.value < 0 {
			return &ValidationError{Field: a.field, Message: a.field + " must not be negative"}
		}
	}
	return nil
}

// Profile builds the profile row for the identity with the given id.
// Blank optional strings become nil and pay fields that do not apply to the
// employment type are dropped.
func (r *Request) Profile(identityID string) *model.UserProfile {
	p := &model.UserProfile{
		ID:                identityID,
		OrganisationID:    strings.TrimSpace(r.OrganisationID),
		FullName:          strings.TrimSpace(r.FullName),
		Email:             strings.TrimSpace(r.Email),
		Role:              r.Role,
		PhoneNumber:       NullIfBlank(r.PhoneNumber),
		Address:           NullIfBlank(r.Address),
		PostalCode:        NullIfBlank(r.PostalCode),
		City:              NullIfBlank(r.City),
		Personnummer:      NullIfBlank(r.Personnummer),
		BankAccountNumber: NullIfBlank(r.BankAccountNumber),
		EmploymentType:    r.EmploymentType,
		BaseHourlyRate:    r.BaseHourlyRate,
		BaseMonthlySalary: r.BaseMonthlySalary,
		HasCommission:     r.HasCommission != nil && *r.HasCommission,
		CommissionRate:    r.CommissionRate,
		IsActive:          true,
	}
	p.ApplyCompensationRules()
	return p
}

// NullIfBlank returns nil for nil or whitespace-only strings.
func NullIfBlank(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
