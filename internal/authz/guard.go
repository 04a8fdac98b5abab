// Package authz decides whether an authenticated caller may use a guarded
// route. The decision is an embedded OPA Rego policy evaluated in-process;
// keeping it in Rego makes the rules auditable and swappable without touching
// the pipeline.
package authz

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/rego"

	sessiondomain "tenant-gateway/internal/session/domain"
)

const policyQuery = "data.gateway.authz.allow"

const regoPolicy = `package gateway.authz

default allow = false

# Tenant admins manage their own tenant.
allow if {
	input.caller.role == "admin"
	input.caller.tenant_id == input.tenant_id
}

# System admins carry no tenant of their own and cross all tenants.
allow if {
	input.caller.role == "system_admin"
	input.caller.tenant_id == ""
}
`

// Guard evaluates the admin-access policy. The policy is compiled once at
// construction; evaluation is pure and safe for concurrent use.
type Guard struct {
	query rego.PreparedEvalQuery
}

// NewGuard compiles the embedded policy and returns a Guard.
func NewGuard(ctx context.Context) (*Guard, error) {
	q, err := rego.New(
		rego.Query(policyQuery),
		rego.Module("authz.rego", regoPolicy),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("authz: compile policy: %w", err)
	}
	return &Guard{query: q}, nil
}

// Allow reports whether caller may use admin routes within the tenant.
func (g *Guard) Allow(ctx context.Context, caller *sessiondomain.Caller, tenantPublicID string) (bool, error) {
	input := map[string]any{
		"caller": map[string]any{
			"role":      caller.Role,
			"tenant_id": caller.TenantID,
		},
		"tenant_id": tenantPublicID,
	}
	rs, err := g.query.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return false, fmt.Errorf("authz: eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return false, nil
	}
	allowed, _ := rs[0].Expressions[0].Value.(bool)
	return allowed, nil
}
