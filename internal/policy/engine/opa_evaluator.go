package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"
	"go.uber.org/zap"

	"b2b-tenancy/internal/policy/repository"
)

// PolicyPackage is the Rego package every invitation policy must declare.
const PolicyPackage = "tenancy.invitation"

const policyQuery = "data." + PolicyPackage

// DefaultPolicy admits any invitation unless the organization restricts
// invitee email domains.
const DefaultPolicy = `package tenancy.invitation

default allow := false

email_domain := lower(parts[count(parts) - 1]) if {
	parts := split(input.invitation.email, "@")
	count(parts) == 2
}

allow if {
	count(input.org.allowed_email_domains) == 0
}

allow if {
	some d in input.org.allowed_email_domains
	lower(d) == email_domain
}

reason := "email domain is not allowed for this organization" if not allow
`

// ErrInvalidPolicy wraps compile and package errors in stored policies.
var ErrInvalidPolicy = errors.New("invalid policy")

// OPAEvaluator evaluates invitation admission with OPA Rego. Enabled org
// policies replace the default. Each is compiled and evaluated on its own and
// all of them must allow. A policy that fails to compile or evaluate denies.
type OPAEvaluator struct {
	policyRepo repository.Repository
	logger     *zap.Logger
}

var _ Evaluator = (*OPAEvaluator)(nil)

// NewOPAEvaluator returns an evaluator. policyRepo must not be a transaction's repository.
func NewOPAEvaluator(policyRepo repository.Repository, logger *zap.Logger) *OPAEvaluator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OPAEvaluator{policyRepo: policyRepo, logger: logger}
}

// ValidatePolicy checks that rules parse, declare the invitation package and compile.
func ValidatePolicy(rules string) error {
	mod, err := ast.ParseModule("policy.rego", rules)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	if mod == nil || mod.Package.Path.String() != policyQuery {
		return fmt.Errorf("%w: package must be %s", ErrInvalidPolicy, PolicyPackage)
	}
	if _, err := ast.CompileModules(map[string]string{"policy.rego": rules}); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPolicy, err)
	}
	return nil
}

// HealthCheck compiles and evaluates the default policy. It does not touch storage.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	d, err := evaluate(ctx, []string{DefaultPolicy}, buildInput(InvitationInput{Email: "probe@example.com", Role: "member"}))
	if err != nil {
		return err
	}
	if !d.Allowed {
		return errors.New("default policy rejected an unrestricted invitation")
	}
	return nil
}

// AdmitInvitation evaluates the org's enabled policies, or the default when it has none.
func (e *OPAEvaluator) AdmitInvitation(ctx context.Context, in InvitationInput) (Decision, error) {
	var policies []string
	if e.policyRepo != nil && in.OrgID != "" {
		enabled, err := e.policyRepo.GetEnabledPoliciesByOrg(ctx, in.OrgID)
		if err != nil {
			return Decision{}, fmt.Errorf("load policies: %w", err)
		}
		for _, p := range enabled {
			if p.Enabled && strings.TrimSpace(p.Rules) != "" {
				policies = append(policies, p.Rules)
			}
		}
	}
	input := buildInput(in)
	if len(policies) == 0 {
		return evaluate(ctx, []string{DefaultPolicy}, input)
	}
	for i, rules := range policies {
		d, err := evaluate(ctx, []string{rules}, input)
		if err != nil {
			e.logger.Warn("policy: org policy failed, denying",
				zap.String("org_id", in.OrgID), zap.Int("policy", i), zap.Error(err))
			return Decision{}, fmt.Errorf("org policy: %w", err)
		}
		if !d.Allowed {
			return d, nil
		}
	}
	return Decision{Allowed: true}, nil
}

func buildInput(in InvitationInput) map[string]any {
	domains := make([]any, 0, len(in.AllowedEmailDomains))
	for _, d := range in.AllowedEmailDomains {
		domains = append(domains, d)
	}
	return map[string]any{
		"org": map[string]any{
			"id":                    in.OrgID,
			"allowed_email_domains": domains,
		},
		"inviter": map[string]any{
			"user_id": in.InviterUserID,
			"role":    in.InviterRole,
		},
		"invitation": map[string]any{
			"email": in.Email,
			"role":  in.Role,
		},
	}
}

func evaluate(ctx context.Context, policies []string, input map[string]any) (Decision, error) {
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return Decision{}, fmt.Errorf("compile policies: %w", err)
	}
	rs, err := rego.New(
		rego.Query(policyQuery),
		rego.Compiler(compiler),
		rego.Input(input),
	).Eval(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("eval policies: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return Decision{}, errors.New("policy query returned no result")
	}
	doc, ok := rs[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return Decision{}, errors.New("policy package is not a document")
	}
	d := Decision{}
	d.Allowed, _ = doc["allow"].(bool)
	d.Reason, _ = doc["reason"].(string)
	if !d.Allowed && d.Reason == "" {
		d.Reason = "rejected by organization policy"
	}
	return d, nil
}
