package engine

import (
	"context"
	"errors"
	"testing"

	"b2b-tenancy/internal/policy/domain"
	"b2b-tenancy/internal/policy/repository"
)

type mockPolicyRepo struct {
	policies map[string][]*domain.Policy
	err      error
}

var _ repository.Repository = (*mockPolicyRepo)(nil)

func (m *mockPolicyRepo) GetByID(ctx context.Context, id string) (*domain.Policy, error) {
	return nil, nil
}

func (m *mockPolicyRepo) ListByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	return nil, nil
}

func (m *mockPolicyRepo) GetEnabledPoliciesByOrg(ctx context.Context, orgID string) ([]*domain.Policy, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.policies[orgID], nil
}

func (m *mockPolicyRepo) Create(ctx context.Context, p *domain.Policy) error { return nil }
func (m *mockPolicyRepo) Update(ctx context.Context, p *domain.Policy) error { return nil }
func (m *mockPolicyRepo) Delete(ctx context.Context, id string) error        { return nil }

const adminsOnlyPolicy = `package tenancy.invitation

default allow := false

allow if input.invitation.role != "admin"

reason := "admins must be invited by the owner" if not allow
`

func TestOPAEvaluator_HealthCheck(t *testing.T) {
	if err := NewOPAEvaluator(nil, nil).HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck: %v", err)
	}
}

func TestAdmitInvitation_DefaultPolicy(t *testing.T) {
	e := NewOPAEvaluator(&mockPolicyRepo{}, nil)
	tests := []struct {
		name    string
		domains []string
		email   string
		allowed bool
	}{
		{"no restriction", nil, "a@anywhere.io", true},
		{"allowed domain", []string{"acme.com"}, "a@acme.com", true},
		{"domain match ignores case", []string{"Acme.COM"}, "a@ACME.com", true},
		{"other domain", []string{"acme.com"}, "a@evil.com", false},
		{"subdomain is not the domain", []string{"acme.com"}, "a@mail.acme.com", false},
		{"malformed email", []string{"acme.com"}, "acme.com", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.AdmitInvitation(context.Background(), InvitationInput{
				OrgID: "org-1", AllowedEmailDomains: tt.domains, Email: tt.email, Role: "member",
			})
			if err != nil {
				t.Fatalf("AdmitInvitation: %v", err)
			}
			if d.Allowed != tt.allowed {
				t.Errorf("allowed = %v, want %v (reason %q)", d.Allowed, tt.allowed, d.Reason)
			}
			if !d.Allowed && d.Reason == "" {
				t.Error("rejection must carry a reason")
			}
		})
	}
}

func TestAdmitInvitation_OrgPolicyReplacesDefault(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string][]*domain.Policy{
		"org-1": {{ID: "p1", OrgID: "org-1", Rules: adminsOnlyPolicy, Enabled: true}},
	}}
	e := NewOPAEvaluator(repo, nil)
	ctx := context.Background()

	d, err := e.AdmitInvitation(ctx, InvitationInput{OrgID: "org-1", Email: "a@x.io", Role: "admin"})
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.Reason != "admins must be invited by the owner" {
		t.Errorf("decision = %+v", d)
	}

	// The org policy ignores domains, so the default's restriction no longer applies.
	d, err = e.AdmitInvitation(ctx, InvitationInput{OrgID: "org-1", AllowedEmailDomains: []string{"acme.com"}, Email: "a@x.io", Role: "member"})
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Errorf("decision = %+v", d)
	}
}

const noEvilPolicy = `package tenancy.invitation

default allow := false

allow if not endswith(lower(input.invitation.email), "@evil.com")

reason := "evil.com addresses are blocked" if not allow
`

func TestAdmitInvitation_EveryOrgPolicyMustAllow(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string][]*domain.Policy{
		"org-1": {
			{ID: "p1", OrgID: "org-1", Rules: adminsOnlyPolicy, Enabled: true},
			{ID: "p2", OrgID: "org-1", Rules: noEvilPolicy, Enabled: true},
		},
	}}
	e := NewOPAEvaluator(repo, nil)
	tests := []struct {
		name    string
		email   string
		role    string
		allowed bool
		reason  string
	}{
		{"both deny", "x@evil.com", "admin", false, "admins must be invited by the owner"},
		{"first denies", "x@ok.io", "admin", false, "admins must be invited by the owner"},
		{"second denies", "x@evil.com", "member", false, "evil.com addresses are blocked"},
		{"both allow", "x@ok.io", "member", true, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := e.AdmitInvitation(context.Background(), InvitationInput{OrgID: "org-1", Email: tt.email, Role: tt.role})
			if err != nil {
				t.Fatalf("AdmitInvitation: %v", err)
			}
			if d.Allowed != tt.allowed || d.Reason != tt.reason {
				t.Errorf("decision = %+v, want allowed=%v reason=%q", d, tt.allowed, tt.reason)
			}
		})
	}
}

func TestAdmitInvitation_BrokenOrgPolicyDenies(t *testing.T) {
	repo := &mockPolicyRepo{policies: map[string][]*domain.Policy{
		"org-1": {{ID: "p1", OrgID: "org-1", Rules: "package tenancy.invitation\nallow if {", Enabled: true}},
	}}
	d, err := NewOPAEvaluator(repo, nil).AdmitInvitation(context.Background(), InvitationInput{
		OrgID: "org-1", Email: "a@anywhere.io", Role: "member",
	})
	if err == nil {
		t.Fatal("expected an error from the broken policy")
	}
	if d.Allowed {
		t.Error("a broken org policy must not admit")
	}
}

func TestAdmitInvitation_RepoError(t *testing.T) {
	repo := &mockPolicyRepo{err: errors.New("db down")}
	if _, err := NewOPAEvaluator(repo, nil).AdmitInvitation(context.Background(), InvitationInput{OrgID: "org-1", Email: "a@b.c"}); err == nil {
		t.Fatal("expected repository error")
	}
}

func TestValidatePolicy(t *testing.T) {
	if err := ValidatePolicy(DefaultPolicy); err != nil {
		t.Errorf("default policy: %v", err)
	}
	if err := ValidatePolicy(adminsOnlyPolicy); err != nil {
		t.Errorf("admins policy: %v", err)
	}
	for name, rules := range map[string]string{
		"syntax":        "package tenancy.invitation\nallow if {",
		"wrong package": "package other\n\nallow := true\n",
		"unsafe var":    "package tenancy.invitation\n\nallow if x\n",
	} {
		if err := ValidatePolicy(rules); !errors.Is(err, ErrInvalidPolicy) {
			t.Errorf("%s: err = %v, want ErrInvalidPolicy", name, err)
		}
	}
}
