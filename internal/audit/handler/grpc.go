package handler

import (
	"context"
	"encoding/base64"
	"strconv"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	"b2b-tenancy/internal/audit/domain"
	auditrepo "b2b-tenancy/internal/audit/repository"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/platform/rbac"
	"b2b-tenancy/internal/tenancy"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// Server implements AuditService for an organization's audit trail. Admin or owner.
type Server struct {
	authz rbac.Authorizer
	repo  auditrepo.Repository
}

var _ apiv1.AuditServiceServer = (*Server)(nil)

// NewServer returns a new Audit gRPC server. repo may be nil; then all RPCs return Unimplemented.
func NewServer(authz rbac.Authorizer, repo auditrepo.Repository) *Server {
	return &Server{authz: authz, repo: repo}
}

// ListAuditLogs returns the organization's audit logs, newest first.
func (s *Server) ListAuditLogs(ctx context.Context, req *apiv1.ListAuditLogsRequest) (*apiv1.ListAuditLogsResponse, error) {
	if s.repo == nil || s.authz == nil {
		return nil, status.Error(codes.Unimplemented, "method ListAuditLogs not implemented")
	}
	offset, err := decodeOffset(req.PageToken)
	if err != nil {
		return nil, err
	}
	t, err := rbac.AuthorizeRequest(ctx, s.authz, req, tenancy.ActionAuditList)
	if err != nil {
		return nil, err
	}
	size := req.PageSize
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}
	logs, err := s.repo.ListByOrg(ctx, t.Org.ID, int32(size+1), int32(offset))
	if err != nil {
		return nil, errs.ToStatus(err)
	}
	var next string
	if len(logs) > size {
		logs = logs[:size]
		next = encodeOffset(offset + size)
	}
	out := make([]apiv1.AuditLog, 0, len(logs))
	for _, l := range logs {
		out = append(out, auditLogToAPI(l))
	}
	return &apiv1.ListAuditLogsResponse{Logs: out, NextPageToken: next}, nil
}

func encodeOffset(n int) string {
	return base64.RawURLEncoding.EncodeToString([]byte(strconv.Itoa(n)))
}

func decodeOffset(token string) (int, error) {
	if token == "" {
		return 0, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return 0, status.Error(codes.InvalidArgument, "invalid page token")
	}
	n, err := strconv.Atoi(string(b))
	if err != nil || n < 0 {
		return 0, status.Error(codes.InvalidArgument, "invalid page token")
	}
	return n, nil
}

func auditLogToAPI(l *domain.AuditLog) apiv1.AuditLog {
	return apiv1.AuditLog{
		ID:           l.ID,
		OrgID:        l.OrgID,
		UserID:       l.UserID,
		Action:       l.Action,
		Resource:     l.Resource,
		ResourceKind: l.ResourceKind(),
		IP:           l.IP,
		Metadata:     l.Metadata,
		CreatedAt:    l.CreatedAt,
	}
}
