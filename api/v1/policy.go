package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const PolicyServiceName = "tenancy.v1.PolicyService"

type CreatePolicyRequest struct {
	Tenant
	Name    string `json:"name"`
	Rules   string `json:"rules"`
	Enabled bool   `json:"enabled"`
}

type PolicyRequest struct {
	Tenant
	PolicyID string `json:"policy_id"`
}

type UpdatePolicyRequest struct {
	Tenant
	PolicyID string  `json:"policy_id"`
	Name     *string `json:"name,omitempty"`
	Rules    *string `json:"rules,omitempty"`
	Enabled  *bool   `json:"enabled,omitempty"`
}

type PolicyResponse struct {
	Policy Policy `json:"policy"`
}

type ListPoliciesResponse struct {
	Policies []Policy `json:"policies"`
}

type PolicyServiceServer interface {
	CreatePolicy(context.Context, *CreatePolicyRequest) (*PolicyResponse, error)
	GetPolicy(context.Context, *PolicyRequest) (*PolicyResponse, error)
	ListPolicies(context.Context, *TenantRequest) (*ListPoliciesResponse, error)
	UpdatePolicy(context.Context, *UpdatePolicyRequest) (*PolicyResponse, error)
	DeletePolicy(context.Context, *PolicyRequest) (*Empty, error)
}

var PolicyService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: PolicyServiceName,
	HandlerType: (*PolicyServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(PolicyServiceName, "CreatePolicy", PolicyServiceServer.CreatePolicy),
		unary(PolicyServiceName, "GetPolicy", PolicyServiceServer.GetPolicy),
		unary(PolicyServiceName, "ListPolicies", PolicyServiceServer.ListPolicies),
		unary(PolicyServiceName, "UpdatePolicy", PolicyServiceServer.UpdatePolicy),
		unary(PolicyServiceName, "DeletePolicy", PolicyServiceServer.DeletePolicy),
	},
	Metadata: "tenancy/v1/policy",
}

func RegisterPolicyServiceServer(s grpc.ServiceRegistrar, srv PolicyServiceServer) {
	s.RegisterService(&PolicyService_ServiceDesc, srv)
}
