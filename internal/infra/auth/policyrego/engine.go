package policyrego

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/rego"

	"labtrust/internal/domain"
	"labtrust/internal/infra/auth/rbac"
)

// policySource encodes the same role and tenant rules as the static
// authorizer, evaluated by OPA. Kept inline so the binary stays
// self-contained; operators wanting different rules swap this module.
const policySource = `package labtrust.authz

default allow = false
default code = "UNAUTHENTICATED"

authenticated { input.principal }

is_admin { input.principal.roles[_] == "ADMIN" }

allow { input.check == "authenticated"; authenticated }

allow { input.check == "role"; input.principal.roles[_] == input.role }

allow { input.check == "tenant"; is_admin }

allow {
	input.check == "tenant"
	input.principal.lab_code != ""
	input.resource_lab_code != ""
	input.principal.lab_code == input.resource_lab_code
}

code = "MISSING_ROLE" { input.check == "role"; authenticated; not allow }

code = "TENANT_MISMATCH" { input.check == "tenant"; authenticated; not allow }
`

const query = "data.labtrust.authz"

// Engine is a domain.Authorizer that delegates decisions to a prepared
// rego query. It produces the same codes as the static rbac authorizer.
type Engine struct {
	prepared rego.PreparedEvalQuery
}

func NewEngine(ctx context.Context) (*Engine, error) {
	prepared, err := rego.New(
		rego.Query(query),
		rego.Module("authz.rego", policySource),
	).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("preparing authz policy: %w", err)
	}
	return &Engine{prepared: prepared}, nil
}

func (e *Engine) RequireAuthenticated(ctx context.Context, p *domain.Principal) error {
	return e.decide(ctx, p, map[string]any{"check": "authenticated"})
}

func (e *Engine) RequireRole(ctx context.Context, p *domain.Principal, role string) error {
	return e.decide(ctx, p, map[string]any{"check": "role", "role": role})
}

func (e *Engine) RequireTenantMatch(ctx context.Context, p *domain.Principal, resourceLabCode string) error {
	return e.decide(ctx, p, map[string]any{"check": "tenant", "resource_lab_code": resourceLabCode})
}

func (e *Engine) decide(ctx context.Context, p *domain.Principal, input map[string]any) error {
	if p != nil {
		input["principal"] = map[string]any{
			"subject":  p.Subject,
			"user_id":  p.UserID,
			"roles":    p.Roles,
			"lab_code": p.LabCode,
		}
	}
	results, err := e.prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return fmt.Errorf("%w: policy evaluation: %v", domain.ErrForbidden, err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return fmt.Errorf("%w: empty policy result", domain.ErrForbidden)
	}
	doc, ok := results[0].Expressions[0].Value.(map[string]any)
	if !ok {
		return fmt.Errorf("%w: unexpected policy result shape", domain.ErrForbidden)
	}
	if allow, _ := doc["allow"].(bool); allow {
		return nil
	}
	code, _ := doc["code"].(string)
	if code == "" {
		code = "FORBIDDEN"
	}
	return authzError(code)
}

func authzError(code string) error {
	switch code {
	case rbac.CodeUnauthenticated:
		return &rbac.AuthzError{Code: code, Message: "authentication required", Cause: domain.ErrUnauthorized}
	case rbac.CodeMissingRole:
		return &rbac.AuthzError{Code: code, Message: "required role missing", Cause: domain.ErrForbidden}
	case rbac.CodeTenantMismatch:
		return &rbac.AuthzError{Code: code, Message: "resource does not belong to your lab", Cause: domain.ErrForbidden}
	default:
		return &rbac.AuthzError{Code: code, Message: "access denied", Cause: domain.ErrForbidden}
	}
}

var _ domain.Authorizer = (*Engine)(nil)
