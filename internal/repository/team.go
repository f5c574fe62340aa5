package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/glansab/backoffice/internal/model"
)

// TeamFilter narrows a team listing.
type TeamFilter struct {
	Search    string
	Specialty model.TeamSpecialty
}

const teamColumns = `t.id, t.organisation_id, t.name, t.description, t.specialty, t.team_leader_id, t.hourly_rate,
		t.cities, t.is_active, t.created_at`

// ListTeams returns the organisation's teams with their members, ordered by name.
func (r *Repository) ListTeams(ctx context.Context, orgID string, filter TeamFilter) ([]*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.organisation_id = $1`
	args := []any{orgID}

	if s := strings.TrimSpace(filter.Search); s != "" {
		args = append(args, likePattern(s))
		query += fmt.Sprintf(" AND (t.name ILIKE $%d OR t.description ILIKE $%d)", len(args), len(args))
	}
	if filter.Specialty != "" {
		args = append(args, filter.Specialty)
		query += fmt.Sprintf(" AND t.specialty = $%d", len(args))
	}
	query += " ORDER BY t.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list teams: %w", err)
	}
	teams, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.Team, error) {
		return scanTeam(row)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan teams: %w", err)
	}

	if len(teams) == 0 {
		return teams, nil
	}

	ids := make([]string, len(teams))
	byID := make(map[string]*model.Team, len(teams))
	for i, t := range teams {
		ids[i] = t.ID
		byID[t.ID] = t
		t.Members = make([]*model.TeamMember, 0)
	}

	members, err := r.teamMembers(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range members {
		if t, ok := byID[m.TeamID]; ok {
			t.Members = append(t.Members, m)
		}
	}

	return teams, nil
}

// GetTeam retrieves a team with its members.
func (r *Repository) GetTeam(ctx context.Context, orgID, id string) (*model.Team, error) {
	query := `SELECT ` + teamColumns + ` FROM teams t WHERE t.organisation_id = $1 AND t.id = $2`

	t, err := scanTeam(r.pool.QueryRow(ctx, query, orgID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get team: %w", err)
	}

	if t.Members, err = r.teamMembers(ctx, []string{t.ID}); err != nil {
		return nil, err
	}
	return t, nil
}

// CreateTeam inserts a team and its initial members in one transaction.
func (r *Repository) CreateTeam(ctx context.Context, t *model.Team) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := checkReferences(ctx, tx, t.OrganisationID, ref(refProfiles, t.TeamLeaderID)); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO teams (id, organisation_id, name, description, specialty, team_leader_id, hourly_rate,
				cities, is_active, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			t.ID,
			t.OrganisationID,
			t.Name,
			t.Description,
			t.Specialty,
			t.TeamLeaderID,
			t.HourlyRate,
			pq.Array(t.Cities),
			t.IsActive,
			t.CreatedAt,
		)
		if err != nil {
			return mapWriteError(err, "failed to create team")
		}

		for _, m := range t.Members {
			m.TeamID = t.ID
			m.OrganisationID = t.OrganisationID
			if err := insertTeamMember(ctx, tx, m); err != nil {
				return err
			}
		}
		return nil
	})
}

// UpdateTeam writes the mutable team fields.
func (r *Repository) UpdateTeam(ctx context.Context, t *model.Team) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		if err := checkReferences(ctx, tx, t.OrganisationID, ref(refProfiles, t.TeamLeaderID)); err != nil {
			return err
		}
		err := tx.QueryRow(ctx, `
			UPDATE teams SET
				name = $3,
				description = $4,
				specialty = $5,
				team_leader_id = $6,
				hourly_rate = $7,
				cities = $8,
				is_active = $9
			WHERE organisation_id = $1 AND id = $2
			RETURNING created_at`,
			t.OrganisationID,
			t.ID,
			t.Name,
			t.Description,
			t.Specialty,
			t.TeamLeaderID,
			t.HourlyRate,
			pq.Array(t.Cities),
			t.IsActive,
		).Scan(&t.CreatedAt)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrNotFound
			}
			return mapWriteError(err, "failed to update team")
		}
		return nil
	})
}

// DeleteTeam removes a team; memberships cascade.
func (r *Repository) DeleteTeam(ctx context.Context, orgID, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM teams WHERE organisation_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return fmt.Errorf("failed to delete team: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// AddTeamMember adds a user to a team. Returns ErrDuplicate when the user
// already belongs to it.
func (r *Repository) AddTeamMember(ctx context.Context, m *model.TeamMember) error {
	return r.withTx(ctx, func(tx pgx.Tx) error {
		var exists bool
		err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM teams WHERE organisation_id = $1 AND id = $2)`,
			m.OrganisationID, m.TeamID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("failed to check team: %w", err)
		}
		if !exists {
			return ErrNotFound
		}
		return insertTeamMember(ctx, tx, m)
	})
}

// RemoveTeamMember deletes a membership row by id.
func (r *Repository) RemoveTeamMember(ctx context.Context, orgID, memberID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM team_members WHERE organisation_id = $1 AND id = $2`, orgID, memberID)
	if err != nil {
		return fmt.Errorf("failed to remove team member: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) teamMembers(ctx context.Context, teamIDs []string) ([]*model.TeamMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT tm.id, tm.team_id, tm.user_id, tm.organisation_id, tm.role_in_team, COALESCE(p.full_name, ''), tm.joined_at
		FROM team_members tm
		LEFT JOIN user_profiles p ON p.id = tm.user_id AND p.organisation_id = tm.organisation_id
		WHERE tm.team_id = ANY($1)
		ORDER BY tm.joined_at`, teamIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load team members: %w", err)
	}
	members, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*model.TeamMember, error) {
		var m model.TeamMember
		err := row.Scan(&m.ID, &m.TeamID, &m.UserID, &m.OrganisationID, &m.RoleInTeam, &m.FullName, &m.JoinedAt)
		return &m, err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan team members: %w", err)
	}
	return members, nil
}

func insertTeamMember(ctx context.Context, tx pgx.Tx, m *model.TeamMember) error {
	if err := checkReferences(ctx, tx, m.OrganisationID, refValue(refProfiles, m.UserID)); err != nil {
		return err
	}
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.RoleInTeam == "" {
		m.RoleInTeam = model.TeamRoleMember
	}
	err := tx.QueryRow(ctx, `
		INSERT INTO team_members (id, team_id, user_id, organisation_id, role_in_team)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING joined_at`,
		m.ID, m.TeamID, m.UserID, m.OrganisationID, m.RoleInTeam,
	).Scan(&m.JoinedAt)
	if err != nil {
		return mapWriteError(err, "failed to add team member")
	}
	return nil
}

func scanTeam(row pgx.Row) (*model.Team, error) {
	var t model.Team
	err := row.Scan(
		&t.ID,
		&t.OrganisationID,
		&t.Name,
		&t.Description,
		&t.Specialty,
		&t.TeamLeaderID,
		&t.HourlyRate,
		pq.Array(&t.Cities),
		&t.IsActive,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if t.Cities == nil {
		t.Cities = []string{}
	}
	return &t, nil
}
