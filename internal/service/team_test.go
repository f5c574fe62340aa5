package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/glansab/backoffice/internal/model"
	"github.com/glansab/backoffice/internal/repository"
)

func boolPtr(b bool) *bool { return &b }

func teamWithMembers(id string, active bool, n int) *model.Team {
	t := &model.Team{ID: id, IsActive: active}
	for i := 0; i < n; i++ {
		t.Members = append(t.Members, &model.TeamMember{})
	}
	return t
}

func TestComputeTeamStats(t *testing.T) {
	tests := []struct {
		name  string
		teams []*model.Team
		want  model.TeamStats
	}{
		{
			name: "no teams",
			want: model.TeamStats{},
		},
		{
			name: "rounds average to one decimal",
			teams: []*model.Team{
				teamWithMembers("a", true, 3),
				teamWithMembers("b", true, 2),
				teamWithMembers("c", false, 2),
			},
			want: model.TeamStats{TotalTeams: 3, ActiveTeams: 2, TotalMembers: 7, AverageTeamSize: 2.3},
		},
		{
			name:  "empty team",
			teams: []*model.Team{teamWithMembers("a", true, 0)},
			want:  model.TeamStats{TotalTeams: 1, ActiveTeams: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ComputeTeamStats(tt.teams))
		})
	}
}

func TestTeamService_CreateRequiresLeader(t *testing.T) {
	svc := NewTeamService(&fakeBoardStore{}, discardLogger(), nil)

	_, err := svc.Create(context.Background(), "org-1", TeamInput{Name: "Team Nord", TeamLeaderID: strPtr(" ")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "team_leader_id", verr.Field)
}

func TestTeamService_CreateDefaults(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewTeamService(store, discardLogger(), nil)

	team, err := svc.Create(context.Background(), "org-1", TeamInput{
		Name:         "Team Nord",
		TeamLeaderID: strPtr("u1"),
		Cities:       []string{" Umeå ", "", "umeå", "Luleå"},
		Members: []MemberInput{
			{UserID: "u2"},
			{UserID: "u2", RoleInTeam: model.TeamRoleSenior},
			{UserID: "u3", RoleInTeam: model.TeamRoleApprentice},
		},
	})
	require.NoError(t, err)

	assert.True(t, team.IsActive)
	assert.Equal(t, model.SpecialtyGeneral, team.Specialty)
	assert.Equal(t, []string{"Umeå", "Luleå"}, team.Cities)
	require.Len(t, team.Members, 2)
	assert.Equal(t, model.TeamRoleMember, team.Members[0].RoleInTeam)
	assert.Equal(t, model.TeamRoleApprentice, team.Members[1].RoleInTeam)
	assert.Len(t, store.teams, 1)
}

func TestTeamService_CreateRejectsBadInput(t *testing.T) {
	svc := NewTeamService(&fakeBoardStore{}, discardLogger(), nil)

	tests := []struct {
		name  string
		in    TeamInput
		field string
	}{
		{"missing name", TeamInput{TeamLeaderID: strPtr("u1")}, "name"},
		{"unknown specialty", TeamInput{Name: "A", TeamLeaderID: strPtr("u1"), Specialty: "snöröjning"}, "specialty"},
		{"negative rate", TeamInput{Name: "A", TeamLeaderID: strPtr("u1"), HourlyRate: floatPtr(-1)}, "hourly_rate"},
		{"unknown member role", TeamInput{Name: "A", TeamLeaderID: strPtr("u1"), Members: []MemberInput{{UserID: "u2", RoleInTeam: "chef"}}}, "members"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), "org-1", tt.in)
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestTeamService_UpdateKeepsActiveFlag(t *testing.T) {
	store := &fakeBoardStore{teams: []*model.Team{{ID: "t1", Name: "Gammalt", IsActive: false}}}
	svc := NewTeamService(store, discardLogger(), nil)

	team, err := svc.Update(context.Background(), "org-1", "t1", TeamInput{Name: "Nytt"})
	require.NoError(t, err)
	assert.Equal(t, "Nytt", team.Name)
	assert.False(t, team.IsActive)

	team, err = svc.Update(context.Background(), "org-1", "t1", TeamInput{Name: "Nytt", IsActive: boolPtr(true)})
	require.NoError(t, err)
	assert.True(t, team.IsActive)
}

func TestTeamService_AddMember(t *testing.T) {
	store := &fakeBoardStore{}
	svc := NewTeamService(store, discardLogger(), nil)
	ctx := context.Background()

	m, err := svc.AddMember(ctx, "org-1", "t1", MemberInput{UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, model.TeamRoleMember, m.RoleInTeam)
	assert.Equal(t, "org-1", m.OrganisationID)

	_, err = svc.AddMember(ctx, "org-1", "t1", MemberInput{UserID: "u1"})
	var dup *DuplicateError
	require.ErrorAs(t, err, &dup)
	assert.Equal(t, "user_id", dup.Field)

	_, err = svc.AddMember(ctx, "org-1", "t1", MemberInput{UserID: ""})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTeamService_RemoveMemberNotFound(t *testing.T) {
	svc := NewTeamService(&fakeBoardStore{}, discardLogger(), nil)

	err := svc.RemoveMember(context.Background(), "org-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestTeamService_Board(t *testing.T) {
	store := &fakeBoardStore{
		teams: []*model.Team{
			{ID: "t1", Specialty: model.SpecialtyRoof, IsActive: true, Members: []*model.TeamMember{{}, {}}},
			{ID: "t2", Specialty: model.SpecialtyWindows, IsActive: true},
		},
		profiles: []*model.UserProfile{{ID: "u1"}},
	}
	svc := NewTeamService(store, discardLogger(), nil)

	board, err := svc.Board(context.Background(), "org-1", repository.TeamFilter{Specialty: model.SpecialtyRoof})
	require.NoError(t, err)
	assert.Len(t, board.Teams, 1)
	assert.Equal(t, 2, board.Stats.TotalTeams, "stats cover all teams")
	assert.Equal(t, 1.0, board.Stats.AverageTeamSize)

	_, err = svc.Board(context.Background(), "org-1", repository.TeamFilter{Specialty: "okänd"})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestTeamService_BoardFailsWhenAnyLoadFails(t *testing.T) {
	boom := errors.New("connection reset")
	svc := NewTeamService(&fakeBoardStore{failOn: "unassigned", err: boom}, discardLogger(), nil)

	_, err := svc.Board(context.Background(), "org-1", repository.TeamFilter{})
	assert.ErrorIs(t, err, boom)
}
