package dto

import (
	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/service"
)

// MemberRequest adds a user to a team.
type MemberRequest struct {
	UserID     string         `json:"user_id"`
	RoleInTeam model.TeamRole `json:"role_in_team"`
}

// TeamRequest is the body of a team create or update. Members are only
// read on create.
type TeamRequest struct {
	Name         string              `json:"name"`
	Description  *string             `json:"description"`
	Specialty    model.TeamSpecialty `json:"specialty"`
	TeamLeaderID *string             `json:"team_leader_id"`
	HourlyRate   *float64            `json:"hourly_rate"`
	Cities       []string            `json:"cities"`
	IsActive     *bool               `json:"is_active"`
	Members      []MemberRequest     `json:"members"`
}

// ToInput converts the body to service input.
func (r *TeamRequest) ToInput() service.TeamInput {
	in := service.TeamInput{
		Name:         r.Name,
		Description:  r.Description,
		Specialty:    r.Specialty,
		TeamLeaderID: r.TeamLeaderID,
		HourlyRate:   r.HourlyRate,
		Cities:       r.Cities,
		IsActive:     r.IsActive,
	}
	for _, m := range r.Members {
		in.Members = append(in.Members, service.MemberInput(m))
	}
	return in
}
