package service

import (
	"context"
	"errors"
	"testing"

	memberdomain "b2b-tenancy/internal/membership/domain"
	orgdomain "b2b-tenancy/internal/organization/domain"
	"b2b-tenancy/internal/platform/errs"
	"b2b-tenancy/internal/store/memstore"
	"b2b-tenancy/internal/user/domain"
)

func setup(t *testing.T) (*Service, *memstore.Store) {
	t.Helper()
	st := memstore.New()
	ctx := context.Background()
	for _, id := range []string{"alice", "bob"} {
		if err := st.Users().Create(ctx, &domain.User{ID: id, Email: id + "@example.com", Status: domain.UserStatusActive, Locale: "en", Timezone: "UTC"}); err != nil {
			t.Fatal(err)
		}
	}
	if err := st.Organizations().CreateOrganization(ctx, &orgdomain.Org{ID: "org-1", Name: "Acme", Slug: "acme"}); err != nil {
		t.Fatal(err)
	}
	if err := st.Memberships().CreateMembership(ctx, &memberdomain.Membership{ID: "m-1", OrgID: "org-1", UserID: "alice", Role: memberdomain.RoleOwner, Status: memberdomain.StatusActive}); err != nil {
		t.Fatal(err)
	}
	return NewService(st, nil), st
}

func ptr(s string) *string { return &s }

func TestUpdateProfile(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	u, err := svc.UpdateProfile(ctx, "bob", ProfileUpdate{Name: ptr(" Bob "), Locale: ptr("pt-br"), Timezone: ptr("Europe/Lisbon")})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Name != "Bob" || u.Locale != "pt-BR" || u.Timezone != "Europe/Lisbon" {
		t.Errorf("profile = %+v", u)
	}

	tests := []struct {
		name string
		upd  ProfileUpdate
	}{
		{"bad locale", ProfileUpdate{Locale: ptr("not a locale!")}},
		{"bad timezone", ProfileUpdate{Timezone: ptr("Mars/Olympus")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.UpdateProfile(ctx, "bob", tt.upd); !errors.Is(err, errs.ErrInvalidArgument) {
				t.Errorf("err = %v, want InvalidArgument", err)
			}
		})
	}

	if _, err := svc.UpdateProfile(ctx, "ghost", ProfileUpdate{}); !errors.Is(err, errs.ErrNotFound) {
		t.Errorf("unknown user err = %v", err)
	}
}

func TestDeactivate(t *testing.T) {
	svc, st := setup(t)
	ctx := context.Background()

	if err := svc.Deactivate(ctx, "alice"); !errors.Is(err, errs.ErrInvariantViolation) {
		t.Errorf("owner deactivate err = %v", err)
	}
	if err := svc.Deactivate(ctx, "bob"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	u, _ := st.Users().GetByID(ctx, "bob")
	if u.Status != domain.UserStatusDeactivated {
		t.Errorf("status = %s", u.Status)
	}
	if err := svc.Deactivate(ctx, "bob"); err != nil {
		t.Errorf("second deactivate: %v", err)
	}
}
