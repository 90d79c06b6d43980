package planner

import "errors"

var (
	// ErrMissingTenant is returned when a request carries no tenant
	// identity. Rejected before any retrieval work begins.
	ErrMissingTenant = errors.New("planner: tenant id is required")

	// ErrTenantMismatch is returned when the filter names a different
	// tenant than the authenticated request identity.
	ErrTenantMismatch = errors.New("planner: filter tenant does not match authenticated tenant")
)
