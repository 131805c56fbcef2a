package domain

import "context"

// Authorizer answers whether a principal may perform an operation.
// A nil principal means the request is unauthenticated.
type Authorizer interface {
	RequireAuthenticated(ctx context.Context, p *Principal) error
	RequireRole(ctx context.Context, p *Principal, role string) error
	RequireTenantMatch(ctx context.Context, p *Principal, resourceLabCode string) error
}
