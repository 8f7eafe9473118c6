package apiv1

import (
	"context"

	"google.golang.org/grpc"
)

const UserServiceName = "tenancy.v1.UserService"

type UserResponse struct {
	User User `json:"user"`
}

// UpdateMeRequest is a partial update; absent fields are left unchanged.
type UpdateMeRequest struct {
	Name      *string `json:"name,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	Phone     *string `json:"phone,omitempty"`
	Timezone  *string `json:"timezone,omitempty"`
	Locale    *string `json:"locale,omitempty"`
}

type UserServiceServer interface {
	GetMe(context.Context, *Empty) (*UserResponse, error)
	UpdateMe(context.Context, *UpdateMeRequest) (*UserResponse, error)
	DeactivateMe(context.Context, *Empty) (*Empty, error)
}

var UserService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: UserServiceName,
	HandlerType: (*UserServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(UserServiceName, "GetMe", UserServiceServer.GetMe),
		unary(UserServiceName, "UpdateMe", UserServiceServer.UpdateMe),
		unary(UserServiceName, "DeactivateMe", UserServiceServer.DeactivateMe),
	},
	Metadata: "tenancy/v1/user",
}

func RegisterUserServiceServer(s grpc.ServiceRegistrar, srv UserServiceServer) {
	s.RegisterService(&UserService_ServiceDesc, srv)
}
