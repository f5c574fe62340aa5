package service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/glansab/backoffice/internal/metrics"
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

// TeamStore is the persistence needed by TeamService.
type TeamStore interface {
	ListTeams(ctx context.Context, orgID string, filter repository.TeamFilter) ([]*model.Team, error)
	GetTeam(ctx context.Context, orgID, id string) (*model.Team, error)
	CreateTeam(ctx context.Context, t *model.Team) error
	UpdateTeam(ctx context.Context, t *model.Team) error
	DeleteTeam(ctx context.Context, orgID, id string) error
	AddTeamMember(ctx context.Context, m *model.TeamMember) error
	RemoveTeamMember(ctx context.Context, orgID, memberID string) error
	ListProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error)
	ListUnassignedProfiles(ctx context.Context, orgID string) ([]*model.UserProfile, error)
}

// TeamService handles team business logic.
type TeamService struct {
	store   TeamStore
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewTeamService creates a new TeamService.
func NewTeamService(store TeamStore, logger *slog.Logger, recorder metrics.Recorder) *TeamService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &TeamService{
		store:   store,
		logger:  logger.With("component", "teams"),
		metrics: recorder,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// MemberInput is one initial team member.
type MemberInput struct {
	UserID     string
	RoleInTeam model.TeamRole
}

// TeamInput carries the editable fields of a team.
type TeamInput struct {
	Name         string
	Description  *string
	Specialty    model.TeamSpecialty
	TeamLeaderID *string
	HourlyRate   *float64
	Cities       []string
	IsActive     *bool
	Members      []MemberInput
}

// TeamBoard is the team listing with every lookup the team views need.
type TeamBoard struct {
	Teams      []*model.Team        `json:"teams"`
	Users      []*model.UserProfile `json:"users"`
	Unassigned []*model.UserProfile `json:"unassigned_users"`
	Stats      model.TeamStats      `json:"stats"`
}

// List returns teams matching the filter.
func (s *TeamService) List(ctx context.Context, orgID string, filter repository.TeamFilter) ([]*model.Team, error) {
	if filter.Specialty != "" && !filter.Specialty.IsValid() {
		return nil, invalid("specialty", "unknown specialty %q", filter.Specialty)
	}
	return s.store.ListTeams(ctx, orgID, filter)
}

// Board loads filtered teams, users, unassigned users and stats over all
// teams concurrently.
func (s *TeamService) Board(ctx context.Context, orgID string, filter repository.TeamFilter) (*TeamBoard, error) {
	if filter.Specialty != "" && !filter.Specialty.IsValid() {
		return nil, invalid("specialty", "unknown specialty %q", filter.Specialty)
	}

	var (
		board TeamBoard
		all   []*model.Team
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		board.Teams, err = s.store.ListTeams(gctx, orgID, filter)
		return err
	})
	g.Go(func() (err error) {
		board.Users, err = s.store.ListProfiles(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		board.Unassigned, err = s.store.ListUnassignedProfiles(gctx, orgID)
		return err
	})
	g.Go(func() (err error) {
		all, err = s.store.ListTeams(gctx, orgID, repository.TeamFilter{})
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	board.Stats = ComputeTeamStats(all)
	return &board, nil
}

// Stats summarises all teams of the organisation.
func (s *TeamService) Stats(ctx context.Context, orgID string) (model.TeamStats, error) {
	teams, err := s.store.ListTeams(ctx, orgID, repository.TeamFilter{})
	if err != nil {
		return model.TeamStats{}, err
	}
	return ComputeTeamStats(teams), nil
}

// Get returns one team with members.
func (s *TeamService) Get(ctx context.Context, orgID, id string) (*model.Team, error) {
	t, err := s.store.GetTeam(ctx, orgID, id)
	return t, mapStoreError(err)
}

// Create validates and stores a team with its initial members. Name and
// team leader are required.
func (s *TeamService) Create(ctx context.Context, orgID string, in TeamInput) (*model.Team, error) {
	t, err := buildTeam(in)
	if err != nil {
		return nil, err
	}
	if t.TeamLeaderID == nil {
		return nil, invalid("team_leader_id", "team_leader_id is required")
	}

	seen := make(map[string]bool, len(in.Members))
	for _, m := range in.Members {
		userID := strings.TrimSpace(m.UserID)
		if userID == "" || seen[userID] {
			continue
		}
		seen[userID] = true
		role := m.RoleInTeam
		if role == "" {
			role = model.TeamRoleMember
		}
		if !role.IsValid() {
			return nil, invalid("members", "unknown team role %q", role)
		}
		t.Members = append(t.Members, &model.TeamMember{UserID: userID, RoleInTeam: role})
	}

	t.ID = uuid.New().String()
	t.OrganisationID = orgID
	t.CreatedAt = s.now()
	if in.IsActive == nil {
		t.IsActive = true
	}

	if err := s.store.CreateTeam(ctx, t); err != nil {
		return nil, s.memberError(err)
	}

	s.metrics.IncMutation("team", opCreate)
	s.logger.Info("team created", "team_id", t.ID, "organisation_id", orgID, "members", len(t.Members))
	return t, nil
}

// Update validates and writes the team fields. Members are managed
// separately.
func (s *TeamService) Update(ctx context.Context, orgID, id string, in TeamInput) (*model.Team, error) {
	t, err := buildTeam(in)
	if err != nil {
		return nil, err
	}
	t.ID = id
	t.OrganisationID = orgID
	if in.IsActive == nil {
		current, err := s.store.GetTeam(ctx, orgID, id)
		if err != nil {
			return nil, mapStoreError(err)
		}
		t.IsActive = current.IsActive
	}

	if err := s.store.UpdateTeam(ctx, t); err != nil {
		return nil, mapStoreError(err)
	}

	s.metrics.IncMutation("team", opUpdate)
	return s.Get(ctx, orgID, id)
}

// Delete removes a team and its memberships.
func (s *TeamService) Delete(ctx context.Context, orgID, id string) error {
	if err := s.store.DeleteTeam(ctx, orgID, id); err != nil {
		return mapStoreError(err)
	}
	s.metrics.IncMutation("team", opDelete)
	s.logger.Info("team deleted", "team_id", id, "organisation_id", orgID)
	return nil
}

// AddMember adds a user to a team, defaulting the role to medarbetare.
func (s *TeamService) AddMember(ctx context.Context, orgID, teamID string, in MemberInput) (*model.TeamMember, error) {
	userID := strings.TrimSpace(in.UserID)
	if userID == "" {
		return nil, invalid("user_id", "user_id is required")
	}
	role := in.RoleInTeam
	if role == "" {
		role = model.TeamRoleMember
	}
	if !role.IsValid() {
		return nil, invalid("role_in_team", "unknown team role %q", role)
	}

	m := &model.TeamMember{
		TeamID:         teamID,
		UserID:         userID,
		OrganisationID: orgID,
		RoleInTeam:     role,
	}
	if err := s.store.AddTeamMember(ctx, m); err != nil {
		return nil, s.memberError(err)
	}

	s.metrics.IncMutation("team_member", opCreate)
	return m, nil
}

// RemoveMember deletes a membership.
func (s *TeamService) RemoveMember(ctx context.Context, orgID, memberID string) error {
	if err := s.store.RemoveTeamMember(ctx, orgID, memberID); err != nil {
		return mapStoreError(err)
	}
	s.metrics.IncMutation("team_member", opDelete)
	return nil
}

func (s *TeamService) memberError(err error) error {
	if errors.Is(err, repository.ErrDuplicate) {
		return &DuplicateError{Entity: "team member", Field: "user_id"}
	}
	return mapStoreError(err)
}

func buildTeam(in TeamInput) (*model.Team, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, invalid("name", "name is required")
	}

	specialty := in.Specialty
	if specialty == "" {
		specialty = model.SpecialtyGeneral
	}
	if !specialty.IsValid() {
		return nil, invalid("specialty", "unknown specialty %q", specialty)
	}
	if in.HourlyRate != nil && *in.HourlyRate < 0 {
		return nil, invalid("hourly_rate", "hourly_rate must not be negative")
	}

	t := &model.Team{
		Name:         name,
		Description:  nullIfBlank(in.Description),
		Specialty:    specialty,
		TeamLeaderID: nullIfBlank(in.TeamLeaderID),
		HourlyRate:   in.HourlyRate,
		Cities:       normalizeCities(in.Cities),
	}
	if in.IsActive != nil {
		t.IsActive = *in.IsActive
	}
	return t, nil
}

// normalizeCities trims, drops blanks and removes duplicates keeping order.
func normalizeCities(cities []string) []string {
	out := make([]string, 0, len(cities))
	seen := make(map[string]bool, len(cities))
	for _, c := range cities {
		c = strings.TrimSpace(c)
		key := strings.ToLower(c)
		if c == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, c)
	}
	return out
}

// ComputeTeamStats counts teams and members. The average team size is
// rounded to one decimal and zero without teams.
func ComputeTeamStats(teams []*model.Team) model.TeamStats {
	stats := model.TeamStats{TotalTeams: len(teams)}
	for _, t := range teams {
		if t.IsActive {
			stats.ActiveTeams++
		}
		stats.TotalMembers += len(t.Members)
	}
	if stats.TotalTeams > 0 {
		avg := float64(stats.TotalMembers) / float64(stats.TotalTeams)
		stats.AverageTeamSize = math.Round(avg*10) / 10
	}
	return stats
}
