package memstore

import (
	"context"
	"slices"

	auditdomain "b2b-tenancy/internal/audit/domain"
)

type auditLogs struct{ s *Store }

func (r *auditLogs) GetByID(_ context.Context, id string) (*auditdomain.AuditLog, error) {
	var out *auditdomain.AuditLog
	r.s.read(func(st *state) {
		for _, a := range st.audit {
			if a.ID == id {
				out = &a
				return
			}
		}
	})
	return out, nil
}

// ListByOrg walks the append-only log backwards so the newest entry comes first.
func (r *auditLogs) ListByOrg(_ context.Context, orgID string, limit, offset int32) ([]*auditdomain.AuditLog, error) {
	var out []*auditdomain.AuditLog
	r.s.read(func(st *state) {
		skipped := int32(0)
		for _, a := range slices.Backward(st.audit) {
			if a.OrgID != orgID {
				continue
			}
			if skipped < offset {
				skipped++
				continue
			}
			if limit > 0 && int32(len(out)) >= limit {
				return
			}
			out = append(out, &a)
		}
	})
	return out, nil
}

func (r *auditLogs) Create(_ context.Context, a *auditdomain.AuditLog) error {
	return r.s.write(func(st *state) error {
		st.audit = append(st.audit, *a)
		return nil
	})
}
