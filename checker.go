package permkit

import (
	"context"
)

// Checker provides permission checking for a specific authority. It combines
// the assignment resolver (who holds which role where) with the role registry
// (what each role allows) and is typically stored in context for handlers.
//
// All boolean checks fail closed: an unreachable store or an unknown role
// means no access.
type Checker struct {
	authority string
	resolver  *AssignmentResolver
	registry  *Registry
	matcher   *ActionMatcher
}

// NewChecker creates a new Checker for an authority.
func NewChecker(authority string, resolver *AssignmentResolver, registry *Registry) *Checker {
	return &Checker{
		authority: authority,
		resolver:  resolver,
		registry:  registry,
		matcher:   NewActionMatcher(),
	}
}

// Authority returns the authority id this checker is for.
func (c *Checker) Authority() string {
	return c.authority
}

// RoleOn returns the authority's effective role on a resource, resolved
// through the registry. ok is false when the authority has no role there or
// the role is disabled.
func (c *Checker) RoleOn(ctx context.Context, ref ResourceRef) (*Role, bool, error) {
	permissions, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return nil, false, err
	}
	entry, ok := permissions.Entries[c.authority]
	if !ok || entry.Calculated == "" {
		return nil, false, nil
	}
	return c.registry.Resolve(ctx, entry.Calculated)
}

// Can checks if the authority may perform an action on a resource.
//
// Example:
//
//	if checker.Can(ctx, ref, "document.lock") {
//	    // Authority can lock this document
//	}
func (c *Checker) Can(ctx context.Context, ref ResourceRef, actionID string) bool {
	role, ok, err := c.RoleOn(ctx, ref)
	if err != nil || !ok {
		return false
	}
	return role.Allows(actionID)
}

// CanMatch checks if the authority may perform any action matching the
// wildcard pattern on a resource.
//
// Example:
//
//	if checker.CanMatch(ctx, ref, "document.*") {
//	    // Authority can perform at least one document operation
//	}
func (c *Checker) CanMatch(ctx context.Context, ref ResourceRef, pattern string) bool {
	role, ok, err := c.RoleOn(ctx, ref)
	if err != nil || !ok {
		return false
	}
	for _, action := range role.Actions() {
		if c.matcher.Match(pattern, action.ID()) {
			return true
		}
	}
	return false
}

// CanRead checks if the authority may read the resource.
func (c *Checker) CanRead(ctx context.Context, ref ResourceRef) bool {
	return c.Can(ctx, ref, ActionRead)
}

// IsManager checks if the authority is a manager of the resource through any
// assignment layer.
func (c *Checker) IsManager(ctx context.Context, ref ResourceRef) bool {
	permissions, err := c.resolver.Resolve(ctx, ref)
	if err != nil {
		return false
	}
	entry, ok := permissions.Entries[c.authority]
	return ok && entry.Manager
}

// AllowedActions returns the actions the authority may perform on a resource.
// An authority without an effective role gets an empty slice.
func (c *Checker) AllowedActions(ctx context.Context, ref ResourceRef) ([]Action, error) {
	role, ok, err := c.RoleOn(ctx, ref)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return role.Actions(), nil
}
