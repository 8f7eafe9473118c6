package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const AuditServiceName = "tenancy.v1.AuditService"

type ListAuditLogsRequest struct {
	Tenant
	PageSize  int    `json:"page_size,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

type ListAuditLogsResponse struct {
	Logs          []AuditLog `json:"logs"`
	NextPageToken string     `json:"next_page_token,omitempty"`
}

type AuditServiceServer interface {
	ListAuditLogs(context.Context, *ListAuditLogsRequest) (*ListAuditLogsResponse, error)
}

var AuditService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: AuditServiceName,
	HandlerType: (*AuditServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(AuditServiceName, "ListAuditLogs", AuditServiceServer.ListAuditLogs),
	},
	Metadata: "tenancy/v1/audit",
}

func RegisterAuditServiceServer(s grpc.ServiceRegistrar, srv AuditServiceServer) {
	s.RegisterService(&AuditService_ServiceDesc, srv)
}
