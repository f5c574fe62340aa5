package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/glansab/backoffice/internal/model"
)

const profileColumns = `id, organisation_id, full_name, email, role, phone_number, address, postal_code, city,
		personnummer, bank_account_number, employment_type, base_hourly_rate, base_monthly_salary,
		has_commission, commission_rate, is_active, created_at`

// CreateProfile inserts a user profile. Database errors are returned
// wrapped but otherwise untouched so callers can surface the store's message.
func (r *Repository) CreateProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
		INSERT INTO user_profiles (id, organisation_id, full_name, email, role, phone_number, address, postal_code, city,
			personnummer, bank_account_number, employment_type, base_hourly_rate, base_monthly_salary,
			has_commission, commission_rate, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at
	`

	err := r.pool.QueryRow(ctx, query,
		p.ID,
		p.OrganisationID,
		p.FullName,
		p.Email,
		p.Role,
		p.PhoneNumber,
		p.Address,
		p.PostalCode,
		p.City,
		p.Personnummer,
		p.BankAccountNumber,
		p.EmploymentType,
		p.BaseHourlyRate,
		p.BaseMonthlySalary,
		p.HasCommission,
		p.CommissionRate,
		p.IsActive,
	).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create profile: %w", err)
	}

	return nil
}

// GetProfileForSession loads the profile of an authenticated user regardless
// of organisation. The caller compares the organisation with the token.
func (r *Repository) GetProfileForSession(ctx context.Context, userID string) (*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE id = $1`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile for session: %w", err)
	}
	return p, nil
}

// GetProfile retrieves a profile of the organisation by id.
func (r *Repository) GetProfile(ctx context.Context, orgID, id string) (*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE organisation_id = $1 AND id = $2`

	p, err := scanProfile(r.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// ListProfiles returns all profiles of the organisation ordered by name.
func (r *Repository) ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	query := `SELECT ` + profileColumns + ` FROM user_profiles WHERE organisation_id = $1 ORDER BY full_name`

	return r.queryProfiles(ctx, "list profiles", query, orgID)
}

// ListUnassignedProfiles returns active profiles that are not in any team.
func (r *Repository) ListUnassignedProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error) {
	query := `
		SELECT ` + profileColumns + `
		FROM user_profiles p
		WHERE p.organisation_id = $1
		  AND p.is_active
		  AND NOT EXISTS (SELECT 1 FROM team_members tm WHERE tm.user_id = p.id)
		ORDER BY p.full_name
	`

	return r.queryProfiles(ctx, "list unassigned profiles", query, orgID)
}

// UpdateProfile writes the editable fields of a profile.
func (r *Repository) UpdateProfile(ctx context.Context, p *model.UserProfile) error {
	query := `
		UPDATE user_profiles SET
			full_name = $3,
			role = $4,
			phone_number = $5,
			address = $6,
			postal_code = $7,
			city = $8,
			personnummer = $9,
			bank_account_number = $10,
			employment_type = $11,
			base_hourly_rate = $12,
			base_monthly_salary = $13,
			has_commission = $14,
			commission_rate = $15,
			is_active = $16
		WHERE organisation_id = $1 AND id = $2
	`

	tag, err := r.pool.Exec(ctx, query,
		p.OrganisationID,
		p.ID,
		p.FullName,
		p.Role,
		p.PhoneNumber,
		p.Address,
		p.PostalCode,
		p.City,
		p.Personnummer,
		p.BankAccountNumber,
		p.EmploymentType,
		p.BaseHourlyRate,
		p.BaseMonthlySalary,
		p.HasCommission,
		p.CommissionRate,
		p.IsActive,
	)
	if err != nil {
		return mapWriteError(err, "failed to update profile")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) queryProfiles(ctx context.Context, op, query string, args ...any) ([]*model.UserProfile, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	defer rows.Close()

	profiles := make([]*model.UserProfile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to %s: %w", op, err)
	}
	return profiles, nil
}

func scanProfile(row pgx.Row) (*model.UserProfile, error) {
	var p model.UserProfile
	err := row.Scan(
		&p.ID,
		&p.OrganisationID,
		&p.FullName,
		&p.Email,
		&p.Role,
		&p.PhoneNumber,
		&p.Address,
		&p.PostalCode,
		&p.City,
		&p.Personnummer,
		&p.BankAccountNumber,
		&p.EmploymentType,
		&p.BaseHourlyRate,
		&p.BaseMonthlySalary,
		&p.HasCommission,
		&p.CommissionRate,
		&p.IsActive,
		&p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
