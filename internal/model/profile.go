// Package model defines domain entities for the application.
package model

import (
	"slices"
	"time"
)

// Role is the application role of a user profile.
type Role string

// Role constants.
const (
	RoleWorker Role = "worker"
	RoleSales  Role = "sales"
	RoleAdmin  Role = "admin"
)

// ValidRoles contains all valid role values.
var ValidRoles = []Role{RoleWorker, RoleSales, RoleAdmin}

// IsValid reports whether the role is known.
func (r Role) IsValid() bool {
	return slices.Contains(ValidRoles, r)
}

// EmploymentType decides which compensation fields apply to a profile.
type EmploymentType string

// EmploymentType constants.
const (
	EmploymentHourly EmploymentType = "hourly"
	EmploymentSalary EmploymentType = "salary"
)

// IsValid reports whether the employment type is known.
func (e EmploymentType) IsValid() bool {
	return e == EmploymentHourly || e == EmploymentSalary
}

// UserProfile is the business-facing user record, keyed by the identity ID.
type UserProfile struct {
	ID                string         `json:"id"`
	OrganisationID    string         `json:"organisation_id"`
	FullName          string         `json:"full_name"`
	Email             string         `json:"email"`
	Role              Role           `json:"role"`
	PhoneNumber       *string        `json:"phone_number"`
	Address           *string        `json:"address"`
	PostalCode        *string        `json:"postal_code"`
	City              *string        `json:"city"`
	Personnummer      *string        `json:"personnummer"`
	BankAccountNumber *string        `json:"bank_account_number"`
	EmploymentType    EmploymentType `json:"employment_type"`
	BaseHourlyRate    *float64       `json:"base_hourly_rate"`
	BaseMonthlySalary *float64       `json:"base_monthly_salary"`
	HasCommission     bool           `json:"has_commission"`
	CommissionRate    *float64       `json:"commission_rate"`
	IsActive          bool           `json:"is_active"`
	CreatedAt         time.Time      `json:"created_at"`
}

// ApplyCompensationRules nulls the pay fields that do not apply to the
// profile's employment type and commission setting.
func (p *UserProfile) ApplyCompensationRules() {
	if p.EmploymentType != EmploymentHourly {
		p.BaseHourlyRate = nil
	}
	if p.EmploymentType != EmploymentSalary {
		p.BaseMonthlySalary = nil
	}
	if !p.HasCommission || p.CommissionRate == nil || *p.CommissionRate == 0 {
		p.CommissionRate = nil
	}
}

// Identity is the authentication-subsystem record that owns a profile.
type Identity struct {
	ID             string    `json:"id"`
	Email          string    `json:"email"`
	EmailConfirmed bool      `json:"email_confirmed"`
	FullName       string    `json:"full_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
