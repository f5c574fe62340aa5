package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
)

// ProfileStore is the persistence needed by UserService.
type ProfileStore interface {
	ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	ListUnassignedProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	GetProfile(ctx context.Context, orgID, id string) (*model.UserProfile, error)
	UpdateProfile(ctx context.Context, p *model.UserProfile) error
}

// UserService reads and edits user profiles. Creating users is the job of
// the provisioning package.
type UserService struct {
	store   ProfileStore
	logger  *slog.Logger
	metrics metrics.Recorder
}

// NewUserService creates a new UserService.
func NewUserService(store ProfileStore, logger *slog.Logger, recorder metrics.Recorder) *UserService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &UserService{
		store:   store,
		logger:  logger.With("component", "users"),
		metrics: recorder,
	}
}

// ProfileUpdate carries the editable profile fields. Nil fields are kept.
type ProfileUpdate struct {
	FullName          *string
	Role              *model.Role
	PhoneNumber       *string
	Address           *string
	PostalCode        *string
	City              *string
	Personnummer      *string
	BankAccountNumber *string
	EmploymentType    *model.EmploymentType
	BaseHourlyRate    *float64
	BaseMonthlySalary *float64
	HasCommission     *bool
	CommissionRate    *float64
	IsActive          *bool
}

// List returns all profiles of the organisation.
func (s *UserService) List(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return s.store.ListProfiles(ctx, orgID)
}

// Unassigned returns active profiles that belong to no team.
func (s *UserService) Unassigned(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	return s.store.ListUnassignedProfiles(ctx, orgID)
}

// Get returns one profile.
func (s *UserService) Get(ctx context.Context, orgID, id string) (*model.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, orgID, id)
	return p, mapStoreError(err)
}

// Update applies in to a profile and re-applies the compensation rules.
func (s *UserService) Update(ctx context.Context, orgID, id string, in ProfileUpdate) (*model.UserProfile, error) {
	p, err := s.store.GetProfile(ctx, orgID, id)
	if err != nil {
		return nil, mapStoreError(err)
	}

	if err := applyProfileUpdate(p, in); err != nil {
		return nil, err
	}

	if err := s.store.UpdateProfile(ctx, p); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("user", opUpdate)
	s.logger.Info("profile updated", "user_id", id, "organisation_id", orgID)
	return p, nil
}

func applyProfileUpdate(p *model.UserProfile, in ProfileUpdate) error {
	if in.FullName != nil {
		name := strings.TrimSpace(*in.FullName)
		if name == "" {
			return invalid("full_name", "full_name must not be blank")
		}
		p.FullName = name
	}
	if in.Role != nil {
		if !in.Role.IsValid() {
			return invalid("role", "role must be one of worker, sales, admin")
		}
		p.Role = *in.Role
	}
	if in.EmploymentType != nil {
		if !in.EmploymentType.IsValid() {
			return invalid("employment_type", "employment_type must be hourly or salary")
		}
		p.EmploymentType = *in.EmploymentType
	}

	optional := []struct {
		in  *string
		out **string
	}{
		{in.PhoneNumber, &p.PhoneNumber},
		{in.Address, &p.Address},
		{in.PostalCode, &p.PostalCode},
		{in.City, &p.City},
		{in.Personnummer, &p.Personnummer},
		{in.BankAccountNumber, &p.BankAccountNumber},
	}
	for _, f := range optional {
		if f.in != nil {
			*f.out = nullIfBlank(f.in)
		}
	}

	amounts := []struct {
		field string
		in    *float64
		out   **float64
	}{
		{"base_hourly_rate", in.BaseHourlyRate, &p.BaseHourlyRate},
		{"base_monthly_salary", in.BaseMonthlySalary, &p.BaseMonthlySalary},
		{"commission_rate", in.CommissionRate, &p.CommissionRate},
	}
	for _, a := range amounts {
		if a.in == nil {
			continue
		}
		if *a.in < 0 {
			return invalid(a.field, "%s must not be negative", a.field)
		}
		v := *a.in
		*a.out = &v
	}

	if in.HasCommission != nil {
		p.HasCommission = *in.HasCommission
	}
	if in.IsActive != nil {
		p.IsActive = *in.IsActive
	}

	p.ApplyCompensationRules()
	return nil
}
