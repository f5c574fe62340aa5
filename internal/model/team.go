package model

import (
	"slices"
	"time"
)

// TeamSpecialty is the kind of work a team does.
type TeamSpecialty string

// TeamSpecialty constants.
const (
	SpecialtyWindows TeamSpecialty = "fönsterputsning"
	SpecialtyRoof    TeamSpecialty = "taktvätt"
	SpecialtyFacade  TeamSpecialty = "fasadtvätt"
	SpecialtyGeneral TeamSpecialty = "allmänt"
	SpecialtyOther   TeamSpecialty = "övrigt"
)

// TeamSpecialties lists all specialties.
var TeamSpecialties = []TeamSpecialty{
	SpecialtyWindows, SpecialtyRoof, SpecialtyFacade, SpecialtyGeneral, SpecialtyOther,
}

// IsValid reports whether the specialty is known.
func (s TeamSpecialty) IsValid() bool {
	return slices.Contains(TeamSpecialties, s)
}

// TeamRole is a member's role within a team.
type TeamRole string

// TeamRole constants.
const (
	TeamRoleLeader     TeamRole = "ledare"
	TeamRoleSenior     TeamRole = "senior"
	TeamRoleMember     TeamRole = "medarbetare"
	TeamRoleApprentice TeamRole = "lärling"
)

// IsValid reports whether the team role is known.
func (r TeamRole) IsValid() bool {
	switch r {
	case TeamRoleLeader, TeamRoleSenior, TeamRoleMember, TeamRoleApprentice:
		return true
	}
	return false
}

// Team is a group of workers led by a team leader.
type Team struct {
	ID             string        `json:"id"`
	OrganisationID string        `json:"organisation_id"`
	Name           string        `json:"name"`
	Description    *string       `json:"description"`
	Specialty      TeamSpecialty `json:"specialty"`
	TeamLeaderID   *string       `json:"team_leader_id"`
	HourlyRate     *float64      `json:"hourly_rate"`
	Cities         []string      `json:"cities"`
	IsActive       bool          `json:"is_active"`
	Members        []*TeamMember `json:"members"`
	CreatedAt      time.Time     `json:"created_at"`
}

// TeamMember links a user profile to a team.
type TeamMember struct {
	ID             string    `json:"id"`
	TeamID         string    `json:"team_id"`
	UserID         string    `json:"user_id"`
	OrganisationID string    `json:"organisation_id"`
	RoleInTeam     TeamRole  `json:"role_in_team"`
	FullName       string    `json:"full_name,omitempty"`
	JoinedAt       time.Time `json:"joined_at"`
}

// TeamStats summarises the teams of an organisation.
type TeamStats struct {
	TotalTeams      int     `json:"totalTeams"`
	ActiveTeams     int     `json:"activeTeams"`
	TotalMembers    int     `json:"totalMembers"`
	AverageTeamSize float64 `json:"averageTeamSize"`
}
