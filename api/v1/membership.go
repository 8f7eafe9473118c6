package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const MembershipServiceName = "tenancy.v1.MembershipService"

// ListMembersRequest filters with AIP-160 syntax over role, status and
// user_id, e.g. `role = "admin" AND status = "active"`.
type ListMembersRequest struct {
	Tenant
	Filter    string `json:"filter,omitempty"`
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListMembersResponse struct {
	Members       []Membership `json:"members"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

type MemberRequest struct {
	Tenant
	MembershipID string `json:"membership_id"`
}

type MemberResponse struct {
	Member Membership `json:"member"`
}

type UpdateMemberRequest struct {
	Tenant
	MembershipID string  `json:"membership_id"`
	JobTitle     *string `json:"job_title,omitempty"`
	Department   *string `json:"department,omitempty"`
}

type SetRoleRequest struct {
	Tenant
	MembershipID string `json:"membership_id"`
	Role         string `json:"role"`
}

type SetStatusRequest struct {
	Tenant
	MembershipID string `json:"membership_id"`
	Status       string `json:"status"`
}

type TransferOwnershipRequest struct {
	Tenant
	ToMembershipID string `json:"to_membership_id"`
}

type TransferOwnershipResponse struct {
	PreviousOwner Membership `json:"previous_owner"`
	NewOwner      Membership `json:"new_owner"`
}

type MembershipServiceServer interface {
	ListMembers(context.Context, *ListMembersRequest) (*ListMembersResponse, error)
	GetMember(context.Context, *MemberRequest) (*MemberResponse, error)
	GetMyMembership(context.Context, *TenantRequest) (*MemberResponse, error)
	UpdateMember(context.Context, *UpdateMemberRequest) (*MemberResponse, error)
	SetRole(context.Context, *SetRoleRequest) (*MemberResponse, error)
	SetStatus(context.Context, *SetStatusRequest) (*MemberResponse, error)
	RemoveMember(context.Context, *MemberRequest) (*Empty, error)
	LeaveOrganization(context.Context, *TenantRequest) (*Empty, error)
	TransferOwnership(context.Context, *TransferOwnershipRequest) (*TransferOwnershipResponse, error)
}

var MembershipService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: MembershipServiceName,
	HandlerType: (*MembershipServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MembershipServiceName, "ListMembers", MembershipServiceServer.ListMembers),
		unary(MembershipServiceName, "GetMember", MembershipServiceServer.GetMember),
		unary(MembershipServiceName, "GetMyMembership", MembershipServiceServer.GetMyMembership),
		unary(MembershipServiceName, "UpdateMember", MembershipServiceServer.UpdateMember),
		unary(MembershipServiceName, "SetRole", MembershipServiceServer.SetRole),
		unary(MembershipServiceName, "SetStatus", MembershipServiceServer.SetStatus),
		unary(MembershipServiceName, "RemoveMember", MembershipServiceServer.RemoveMember),
		unary(MembershipServiceName, "LeaveOrganization", MembershipServiceServer.LeaveOrganization),
		unary(MembershipServiceName, "TransferOwnership", MembershipServiceServer.TransferOwnership),
	},
	Metadata: "tenancy/v1/membership",
}

func RegisterMembershipServiceServer(s grpc.ServiceRegistrar, srv MembershipServiceServer) {
	s.RegisterService(&MembershipService_ServiceDesc, srv)
}
