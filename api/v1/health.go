package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const HealthServiceName = "tenancy.v1.HealthService"

type HealthCheckResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const (
	HealthServing    = "SERVING"
	HealthNotServing = "NOT_SERVING"
)

type HealthServiceServer interface {
	HealthCheck(context.Context, *Empty) (*HealthCheckResponse, error)
}

var HealthService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: HealthServiceName,
	HandlerType: (*HealthServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(HealthServiceName, "HealthCheck", HealthServiceServer.HealthCheck),
	},
	Metadata: "tenancy/v1/health",
}

func RegisterHealthServiceServer(s grpc.ServiceRegistrar, srv HealthServiceServer) {
	s.RegisterService(&HealthService_ServiceDesc, srv)
}
