package interceptors

import (
	"context"
	"strings"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"b2b-tenancy/internal/security"
)

const (
	authorizationHeader = "authorization"
	bearerScheme        = "bearer"
)

// AccessTokenValidator validates an access token and returns its user id.
type AccessTokenValidator interface {
	ValidateAccess(token string) (userID string, err error)
}

var _ AccessTokenValidator = (*security.TokenProvider)(nil)

var errUnauthenticated = status.Error(codes.Unauthenticated, "missing or invalid authorization")

// AuthUnary authenticates the caller from the "authorization: Bearer <access token>"
// metadata and stores the user id in the context.
//
// Methods in publicMethods run without a token. When a public method does
// carry a valid token the identity is attached anyway, so LookupInvitation
// and HealthCheck can see who is asking; an invalid token on a public method
// is ignored rather than rejected.
func AuthUnary(tokens AccessTokenValidator, publicMethods map[string]bool) grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		userID, ok := authenticate(ctx, tokens)
		switch {
		case ok:
			return handler(WithIdentity(ctx, userID), req)
		case publicMethods[info.FullMethod]:
			return handler(ctx, req)
		default:
			return nil, errUnauthenticated
		}
	}
}

func authenticate(ctx context.Context, tokens AccessTokenValidator) (string, bool) {
	token := bearerToken(ctx)
	if token == "" {
		return "", false
	}
	userID, err := tokens.ValidateAccess(token)
	if err != nil || userID == "" {
		return "", false
	}
	return userID, true
}

// bearerToken returns the credential of the first authorization value when
// its scheme is Bearer (any case), or "".
func bearerToken(ctx context.Context) string {
	vals := metadata.ValueFromIncomingContext(ctx, authorizationHeader)
	if len(vals) == 0 {
		return ""
	}
	scheme, credential, found := strings.Cut(strings.TrimSpace(vals[0]), " ")
	if !found || !strings.EqualFold(scheme, bearerScheme) {
		return ""
	}
	return strings.TrimSpace(credential)
}
