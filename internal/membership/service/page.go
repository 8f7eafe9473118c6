package service

import (
	"context"
	"encoding/base64"

	"b2b-tenancy/internal/membership/domain"
	"b2b-tenancy/internal/platform/errs"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// ListPage returns one page of orgID's memberships and the token for the
// next page, empty on the last one. Tokens are opaque to callers.
func (l *Ledger) ListPage(ctx context.Context, orgID string, filter domain.Filter, pageSize int, pageToken string) ([]*domain.Membership, string, error) {
	switch {
	case pageSize <= 0:
		pageSize = DefaultPageSize
	case pageSize > MaxPageSize:
		pageSize = MaxPageSize
	}
	after, err := decodePageToken(pageToken)
	if err != nil {
		return nil, "", err
	}
	page, err := l.store.Memberships().ListMembershipsByOrg(ctx, orgID, filter, after, pageSize+1)
	if err != nil {
		return nil, "", err
	}
	if len(page) <= pageSize {
		return page, "", nil
	}
	page = page[:pageSize]
	return page, encodePageToken(page[pageSize-1].ID), nil
}

func encodePageToken(afterID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(afterID))
}

func decodePageToken(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	b, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil || len(b) == 0 {
		return "", errs.New(errs.ErrInvalidArgument, "invalid page token")
	}
	return string(b), nil
}
