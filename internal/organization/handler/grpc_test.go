package handler

import (
	"context"
	"testing"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	apiv1 "b2b-tenancy/api/v1"
	memberservice "b2b-tenancy/internal/membership/service"
	"b2b-tenancy/internal/organization/service"
	"b2b-tenancy/internal/server/interceptors"
	"b2b-tenancy/internal/store/memstore"
	"b2b-tenancy/internal/tenancy"
	userdomain "b2b-tenancy/internal/user/domain"
)

func newTestServer(t *testing.T, users ...string) *Server {
	t.Helper()
	st := memstore.New()
	for _, id := range users {
		if err := st.Users().Create(context.Background(), &userdomain.User{ID: id, Email: id + "@example.com", Status: userdomain.UserStatusActive}); err != nil {
			t.Fatalf("create user: %v", err)
		}
	}
	ledger := memberservice.NewLedger(st, nil, nil, nil)
	resolver := tenancy.NewResolver(st.Organizations(), st.Memberships(), nil, nil)
	return NewServer(resolver, service.NewService(st, ledger, nil, nil))
}

func as(userID string) context.Context {
	return interceptors.WithIdentity(context.Background(), userID)
}

func wantCode(t *testing.T, err error, want codes.Code) {
	t.Helper()
	if got := status.Code(err); got != want {
		t.Fatalf("status code = %v, want %v (err %v)", got, want, err)
	}
}

func TestNilService(t *testing.T) {
	_, err := NewServer(nil, nil).GetOrganization(as("alice"), &apiv1.TenantRequest{})
	wantCode(t, err, codes.Unimplemented)
}

func TestCreateAndGet(t *testing.T) {
	srv := newTestServer(t, "alice", "bob")

	_, err := srv.CreateOrganization(context.Background(), &apiv1.CreateOrganizationRequest{Name: "Acme"})
	wantCode(t, err, codes.Unauthenticated)
	_, err = srv.CreateOrganization(as("alice"), &apiv1.CreateOrganizationRequest{Name: "Acme", Plan: "galactic"})
	wantCode(t, err, codes.InvalidArgument)

	created, err := srv.CreateOrganization(as("alice"), &apiv1.CreateOrganizationRequest{Name: "Acme Corp"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	if created.Organization.Slug != "acme-corp" || created.Organization.Plan != "free" {
		t.Errorf("org = %+v", created.Organization)
	}
	if created.Membership == nil || created.Membership.Role != "owner" {
		t.Fatalf("membership = %+v", created.Membership)
	}
	_, err = srv.CreateOrganization(as("bob"), &apiv1.CreateOrganizationRequest{Name: "Acme Corp"})
	wantCode(t, err, codes.AlreadyExists)

	got, err := srv.GetOrganization(as("alice"), &apiv1.TenantRequest{Tenant: apiv1.Tenant{OrgSlug: "acme-corp"}})
	if err != nil {
		t.Fatalf("GetOrganization: %v", err)
	}
	if got.Organization.ID != created.Organization.ID {
		t.Errorf("id = %q, want %q", got.Organization.ID, created.Organization.ID)
	}
	_, err = srv.GetOrganization(as("bob"), &apiv1.TenantRequest{Tenant: apiv1.Tenant{OrgID: created.Organization.ID}})
	wantCode(t, err, codes.PermissionDenied)
	_, err = srv.GetOrganization(as("bob"), &apiv1.TenantRequest{Tenant: apiv1.Tenant{OrgID: "no-such-org"}})
	wantCode(t, err, codes.PermissionDenied)

	list, err := srv.ListMyOrganizations(as("alice"), &apiv1.Empty{})
	if err != nil {
		t.Fatalf("ListMyOrganizations: %v", err)
	}
	if len(list.Organizations) != 1 {
		t.Errorf("alice orgs = %d, want 1", len(list.Organizations))
	}
	list, err = srv.ListMyOrganizations(as("bob"), &apiv1.Empty{})
	if err != nil {
		t.Fatalf("ListMyOrganizations: %v", err)
	}
	if len(list.Organizations) != 0 {
		t.Errorf("bob orgs = %d, want 0", len(list.Organizations))
	}
}

func TestUpdateSettingsAndDelete(t *testing.T) {
	srv := newTestServer(t, "alice")
	created, err := srv.CreateOrganization(as("alice"), &apiv1.CreateOrganizationRequest{Name: "Acme"})
	if err != nil {
		t.Fatalf("CreateOrganization: %v", err)
	}
	acme := apiv1.Tenant{OrgID: created.Organization.ID}

	name := "Acme Inc"
	upd, err := srv.UpdateOrganization(as("alice"), &apiv1.UpdateOrganizationRequest{Tenant: acme, Name: &name})
	if err != nil {
		t.Fatalf("UpdateOrganization: %v", err)
	}
	if upd.Organization.Name != name {
		t.Errorf("name = %q", upd.Organization.Name)
	}

	domains := []string{"@Example.com"}
	role := "viewer"
	settings, err := srv.UpdateSettings(as("alice"), &apiv1.UpdateSettingsRequest{Tenant: acme, AllowedEmailDomains: &domains, DefaultMemberRole: &role})
	if err != nil {
		t.Fatalf("UpdateSettings: %v", err)
	}
	if got := settings.Settings.AllowedEmailDomains; len(got) != 1 || got[0] != "example.com" {
		t.Errorf("domains = %v", got)
	}
	owner := "owner"
	_, err = srv.UpdateSettings(as("alice"), &apiv1.UpdateSettingsRequest{Tenant: acme, DefaultMemberRole: &owner})
	wantCode(t, err, codes.InvalidArgument)

	read, err := srv.GetSettings(as("alice"), &apiv1.TenantRequest{Tenant: acme})
	if err != nil {
		t.Fatalf("GetSettings: %v", err)
	}
	if read.Settings.DefaultMemberRole != "viewer" {
		t.Errorf("default role = %q", read.Settings.DefaultMemberRole)
	}

	if _, err := srv.DeleteOrganization(as("alice"), &apiv1.TenantRequest{Tenant: acme}); err != nil {
		t.Fatalf("DeleteOrganization: %v", err)
	}
	_, err = srv.GetOrganization(as("alice"), &apiv1.TenantRequest{Tenant: acme})
	wantCode(t, err, codes.PermissionDenied)
}
