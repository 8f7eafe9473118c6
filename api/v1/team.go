package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const TeamServiceName = "tenancy.v1.TeamService"

type CreateTeamRequest struct {
	Tenant
	Name        string `json:"name"`
	Slug        string `json:"slug,omitempty"`
	Description string `json:"description,omitempty"`
}

type TeamRequest struct {
	Tenant
	TeamID string `json:"team_id"`
}

type UpdateTeamRequest struct {
	Tenant
	TeamID      string  `json:"team_id"`
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

type TeamResponse struct {
	Team Team `json:"team"`
}

type ListTeamsResponse struct {
	Teams []Team `json:"teams"`
}

type TeamMemberRequest struct {
	Tenant
	TeamID       string `json:"team_id"`
	MembershipID string `json:"membership_id"`
}

type ListTeamMembersResponse struct {
	Members []Membership `json:"members"`
}

type TeamServiceServer interface {
	CreateTeam(context.Context, *CreateTeamRequest) (*TeamResponse, error)
	GetTeam(context.Context, *TeamRequest) (*TeamResponse, error)
	ListTeams(context.Context, *TenantRequest) (*ListTeamsResponse, error)
	UpdateTeam(context.Context, *UpdateTeamRequest) (*TeamResponse, error)
	DeleteTeam(context.Context, *TeamRequest) (*Empty, error)
	AddTeamMember(context.Context, *TeamMemberRequest) (*Empty, error)
	RemoveTeamMember(context.Context, *TeamMemberRequest) (*Empty, error)
	ListTeamMembers(context.Context, *TeamRequest) (*ListTeamMembersResponse, error)
}

var TeamService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: TeamServiceName,
	HandlerType: (*TeamServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(TeamServiceName, "CreateTeam", TeamServiceServer.CreateTeam),
		unary(TeamServiceName, "GetTeam", TeamServiceServer.GetTeam),
		unary(TeamServiceName, "ListTeams", TeamServiceServer.ListTeams),
		unary(TeamServiceName, "UpdateTeam", TeamServiceServer.UpdateTeam),
		unary(TeamServiceName, "DeleteTeam", TeamServiceServer.DeleteTeam),
		unary(TeamServiceName, "AddTeamMember", TeamServiceServer.AddTeamMember),
		unary(TeamServiceName, "RemoveTeamMember", TeamServiceServer.RemoveTeamMember),
		unary(TeamServiceName, "ListTeamMembers", TeamServiceServer.ListTeamMembers),
	},
	Metadata: "tenancy/v1/team",
}

func RegisterTeamServiceServer(s grpc.ServiceRegistrar, srv TeamServiceServer) {
	s.RegisterService(&TeamService_ServiceDesc, srv)
}
