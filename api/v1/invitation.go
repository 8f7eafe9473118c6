package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const InvitationServiceName = "tenancy.v1.InvitationService"

type CreateInvitationRequest struct {
	Tenant
	Email      string   `json:"email"`
	Role       string   `json:"role"`
	Message    string   `json:"message,omitempty"`
	TeamIDs    []string `json:"team_ids,omitempty"`
	TTLSeconds int64    `json:"ttl_seconds,omitempty"`
}

// IssuedInvitationResponse carries the raw token. It is only returned by
// create and resend and is not retrievable afterwards.
type IssuedInvitationResponse struct {
	Invitation Invitation `json:"invitation"`
	Token      string     `json:"token"`
}

// BulkCreateInvitationsRequest invites every address in Emails with the same role.
type BulkCreateInvitationsRequest struct {
	Tenant
	Emails     []string `json:"emails"`
	Role       string   `json:"role"`
	Message    string   `json:"message,omitempty"`
	TeamIDs    []string `json:"team_ids,omitempty"`
	TTLSeconds int64    `json:"ttl_seconds,omitempty"`
}

// BulkInvitationFailure is an address that was skipped. Reason is the
// ErrorInfo reason of the error kind, such as CONFLICT.
type BulkInvitationFailure struct {
	Email   string `json:"email"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type BulkCreateInvitationsResponse struct {
	Sent   []IssuedInvitationResponse `json:"sent"`
	Failed []BulkInvitationFailure    `json:"failed"`
}

type InvitationRequest struct {
	Tenant
	InvitationID string `json:"invitation_id"`
}

type InvitationResponse struct {
	Invitation Invitation `json:"invitation"`
}

type ListInvitationsRequest struct {
	Tenant
	Status string `json:"status,omitempty"`
}

type ListInvitationsResponse struct {
	Invitations []Invitation `json:"invitations"`
}

type TokenRequest struct {
	Token string `json:"token"`
}

type AcceptInvitationResponse struct {
	Invitation Invitation `json:"invitation"`
	Membership Membership `json:"membership"`
}

type InvitationServiceServer interface {
	CreateInvitation(context.Context, *CreateInvitationRequest) (*IssuedInvitationResponse, error)
	BulkCreateInvitations(context.Context, *BulkCreateInvitationsRequest) (*BulkCreateInvitationsResponse, error)
	GetInvitation(context.Context, *InvitationRequest) (*InvitationResponse, error)
	ListInvitations(context.Context, *ListInvitationsRequest) (*ListInvitationsResponse, error)
	CancelInvitation(context.Context, *InvitationRequest) (*InvitationResponse, error)
	ResendInvitation(context.Context, *InvitationRequest) (*IssuedInvitationResponse, error)
	LookupInvitation(context.Context, *TokenRequest) (*InvitationResponse, error)
	AcceptInvitation(context.Context, *TokenRequest) (*AcceptInvitationResponse, error)
	DeclineInvitation(context.Context, *TokenRequest) (*InvitationResponse, error)
	ListMyInvitations(context.Context, *Empty) (*ListInvitationsResponse, error)
}

var InvitationService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: InvitationServiceName,
	HandlerType: (*InvitationServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(InvitationServiceName, "CreateInvitation", InvitationServiceServer.CreateInvitation),
		unary(InvitationServiceName, "BulkCreateInvitations", InvitationServiceServer.BulkCreateInvitations),
		unary(InvitationServiceName, "GetInvitation", InvitationServiceServer.GetInvitation),
		unary(InvitationServiceName, "ListInvitations", InvitationServiceServer.ListInvitations),
		unary(InvitationServiceName, "CancelInvitation", InvitationServiceServer.CancelInvitation),
		unary(InvitationServiceName, "ResendInvitation", InvitationServiceServer.ResendInvitation),
		unary(InvitationServiceName, "LookupInvitation", InvitationServiceServer.LookupInvitation),
		unary(InvitationServiceName, "AcceptInvitation", InvitationServiceServer.AcceptInvitation),
		unary(InvitationServiceName, "DeclineInvitation", InvitationServiceServer.DeclineInvitation),
		unary(InvitationServiceName, "ListMyInvitations", InvitationServiceServer.ListMyInvitations),
	},
	Metadata: "tenancy/v1/invitation",
}

func RegisterInvitationServiceServer(s grpc.ServiceRegistrar, srv InvitationServiceServer) {
	s.RegisterService(&InvitationService_ServiceDesc, srv)
}
