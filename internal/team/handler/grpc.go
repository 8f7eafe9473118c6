package handler

import (
	"context"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	memberhandler "b2b-tenancy/internal/membership/handler"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/team/domain"
	"b2b-tenancy/internal/team/service"
	"b2b-tenancy/internal/tenancy"
)

// Server implements TeamService.
type Server struct {
	authz rbac.Authorizer
	teams *service.Service
}

var _ apiv1.TeamServiceServer = (*Server)(nil)

// NewServer returns a new Team gRPC server. teams may be nil; then all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, teams *service.Service) *Server {
	return &Server{authz: authz, teams: teams}
}

func (s *Server) ready(method string) error {
	if s.teams == nil || s.authz == nil {
		return status.Errorf(codes.Unimplemented, "method %s not implemented", method)
	}
	return nil
}

func (s *Server) CreateTeam(ctx context.Context, req *apiv1.CreateTeamRequest) (*apiv1.TeamResponse, error) {
	if err := s.ready("CreateTeam"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamCreate)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Create(ctx, t.Membership, req.Name, req.Slug, req.Description)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.TeamResponse{Team: teamToAPI(team)}, nil
}

func (s *Server) GetTeam(ctx context.Context, req *apiv1.TeamRequest) (*apiv1.TeamResponse, error) {
	if err := s.ready("GetTeam"); err != nil {
		return nil, err
	}
	id, err := required("team_id", req.TeamID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamRead)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Get(ctx, t.Org.ID, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.TeamResponse{Team: teamToAPI(team)}, nil
}

func (s *Server) ListTeams(ctx context.Context, req *apiv1.TenantRequest) (*apiv1.ListTeamsResponse, error) {
	if err := s.ready("ListTeams"); err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamList)
	if err != nil {
		return nil, err
	}
	list, err := s.teams.List(ctx, t.Org.ID)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := make([]apiv1.Team, 0, len(list))
	for _, team := range list {
		out = append(out, teamToAPI(team))
	}
	return &apiv1.ListTeamsResponse{Teams: out}, nil
}

func (s *Server) UpdateTeam(ctx context.Context, req *apiv1.UpdateTeamRequest) (*apiv1.TeamResponse, error) {
	if err := s.ready("UpdateTeam"); err != nil {
		return nil, err
	}
	id, err := required("team_id", req.TeamID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamUpdate)
	if err != nil {
		return nil, err
	}
	team, err := s.teams.Update(ctx, t.Membership, id, req.Name, req.Slug, req.Description)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.TeamResponse{Team: teamToAPI(team)}, nil
}

func (s *Server) DeleteTeam(ctx context.Context, req *apiv1.TeamRequest) (*apiv1.Empty, error) {
	if err := s.ready("DeleteTeam"); err != nil {
		return nil, err
	}
	id, err := required("team_id", req.TeamID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamDelete)
	if err != nil {
		return nil, err
	}
	if err := s.teams.Delete(ctx, t.Membership, id); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

// AddTeamMember puts an active member of the organization on a team.
func (s *Server) AddTeamMember(ctx context.Context, req *apiv1.TeamMemberRequest) (*apiv1.Empty, error) {
	if err := s.ready("AddTeamMember"); err != nil {
		return nil, err
	}
	teamID, memberID, err := teamMember(req)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamMemberAdd)
	if err != nil {
		return nil, err
	}
	if err := s.teams.AddMember(ctx, t.Membership, teamID, memberID); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

func (s *Server) RemoveTeamMember(ctx context.Context, req *apiv1.TeamMemberRequest) (*apiv1.Empty, error) {
	if err := s.ready("RemoveTeamMember"); err != nil {
		return nil, err
	}
	teamID, memberID, err := teamMember(req)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamMemberRemove)
	if err != nil {
		return nil, err
	}
	if err := s.teams.RemoveMember(ctx, t.Membership, teamID, memberID); err != nil {
		return nil, errs.ToStatus(err)
	}
	return &apiv1.Empty{}, nil
}

func (s *Server) ListTeamMembers(ctx context.Context, req *apiv1.TeamRequest) (*apiv1.ListTeamMembersResponse, error) {
	if err := s.ready("ListTeamMembers"); err != nil {
		return nil, err
	}
	id, err := required("team_id", req.TeamID)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionTeamRead)
	if err != nil {
		return nil, err
	}
	members, err := s.teams.Members(ctx, t.Org.ID, id)
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	out := make([]apiv1.Membership, 0, len(members))
	for _, m := range members {
		out = append(out, memberhandler.MembershipToAPI(m))
	}
	return &apiv1.ListTeamMembersResponse{Members: out}, nil
}

func teamMember(req *apiv1.TeamMemberRequest) (string, string, error) {
	teamID, err := required("team_id", req.TeamID)
	if err != nil {
		return "", "", err
	}
	memberID, err := required("membership_id", req.MembershipID)
	if err != nil {
		return "", "", err
	}
	return teamID, memberID, nil
}

func required(field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", status.Errorf(codes.InvalidArgument, "%s required", field)
	}
	return v, nil
}

func teamToAPI(t *domain.Team) apiv1.Team {
	return apiv1.Team{
		ID:          t.ID,
		OrgID:       t.OrgID,
		Name:        t.Name,
		Slug:        t.Slug,
		Description: t.Description,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}
