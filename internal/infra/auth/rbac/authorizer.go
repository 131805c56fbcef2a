package rbac

import (
	"context"
	"errors"
	"fmt"

	"labtrust/internal/domain"
)

const (
	CodeUnauthenticated = "UNAUTHENTICATED"
	CodeMissingRole     = "MISSING_ROLE"
	CodeTenantMismatch  = "TENANT_MISMATCH"
)

// AuthzError carries a stable code for logging and tests. It unwraps to
// domain.ErrUnauthorized or domain.ErrForbidden for HTTP mapping.
type AuthzError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AuthzError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AuthzError) Unwrap() error { return e.Cause }

func IsAuthzError(err error) (*AuthzError, bool) {
	var authzErr *AuthzError
	if errors.As(err, &authzErr) {
		return authzErr, true
	}
	return nil, false
}

// Authorizer turns a verified principal into allow/deny decisions.
type Authorizer struct{}

func NewAuthorizer() *Authorizer {
	return &Authorizer{}
}

func (a *Authorizer) RequireAuthenticated(_ context.Context, p *domain.Principal) error {
	if p == nil {
		return &AuthzError{Code: CodeUnauthenticated, Message: "authentication required", Cause: domain.ErrUnauthorized}
	}
	return nil
}

func (a *Authorizer) RequireRole(ctx context.Context, p *domain.Principal, role string) error {
	if err := a.RequireAuthenticated(ctx, p); err != nil {
		return err
	}
	if !p.HasRole(role) {
		return &AuthzError{Code: CodeMissingRole, Message: "role " + role + " required", Cause: domain.ErrForbidden}
	}
	return nil
}

// RequireTenantMatch allows ADMIN unconditionally; any other principal must
// carry a lab code equal to the resource's. A principal without a lab code
// never matches, including against an unassigned resource.
func (a *Authorizer) RequireTenantMatch(ctx context.Context, p *domain.Principal, resourceLabCode string) error {
	if err := a.RequireAuthenticated(ctx, p); err != nil {
		return err
	}
	if p.IsAdmin() {
		return nil
	}
	if p.LabCode == "" || resourceLabCode == "" || p.LabCode != resourceLabCode {
		return &AuthzError{Code: CodeTenantMismatch, Message: "resource does not belong to your lab", Cause: domain.ErrForbidden}
	}
	return nil
}

var _ domain.Authorizer = (*Authorizer)(nil)
