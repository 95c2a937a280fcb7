package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// Database defines the database operations interface for dependency injection
type Database interface {
	dbkit.IDB
}

// CatalogStore is the durable storage for role/action definitions and their
// mappings. Passing no ids to the getters returns the whole set. The batch
// saves are all-or-nothing: a failure anywhere in the batch leaves no row of
// it visible to subsequent reads.
type CatalogStore interface {
	GetRoles(ctx context.Context, ids ...string) ([]RoleDefinition, error)
	GetActions(ctx context.Context, ids ...string) ([]ActionDefinition, error)
	GetRoleActionMappings(ctx context.Context) ([]RoleActionMapping, error)

	SaveRoles(ctx context.Context, roles []RoleDefinition) error
	SaveActions(ctx context.Context, actions []ActionDefinition) error
	SaveMappings(ctx context.Context, mappings []RoleActionMapping) error
	DeleteAllMappings(ctx context.Context) error
}

// EntityPermissionStore is the durable storage for per-resource permission
// state. Load methods return (nil, nil) when no row exists for the target.
type EntityPermissionStore interface {
	Load(ctx context.Context, targetID string) (*EntityPermission, error)
	LoadWithAssignments(ctx context.Context, targetID string) (*EntityPermission, error)
	Save(ctx context.Context, permission *EntityPermission) error
	DeleteAssignments(ctx context.Context, permissionID string) error

	// Descendants returns the target ids of all resources underneath the
	// given one in the permission hierarchy, the target itself included.
	Descendants(ctx context.Context, targetID string) ([]string, error)
}

// HierarchyResolver answers questions about the resource hierarchy that the
// permission engine itself does not model.
type HierarchyResolver interface {
	// IsAllowedAsPermissionSource reports whether the resource may act as a
	// permission source for its children.
	IsAllowedAsPermissionSource(ctx context.Context, ref ResourceRef) bool

	// ResolveParent returns the parent resource, if any.
	ResolveParent(ctx context.Context, ref ResourceRef) (ResourceRef, bool)

	// ResolveLibrary returns the library owning the resource, if any.
	ResolveLibrary(ctx context.Context, ref ResourceRef) (ResourceRef, bool)

	// IsRoot reports whether the resource sits at the top of its hierarchy.
	IsRoot(ctx context.Context, id string) bool
}

// Event is a notification emitted by permkit when definitions or permission
// models change.
type Event interface {
	// EventName identifies the event type on the wire.
	EventName() string
}

// ChangeNotifier publishes change events to interested parties. Publishing is
// fire-and-forget; permkit never waits for acknowledgement.
type ChangeNotifier interface {
	Publish(ctx context.Context, event Event)
}

// LabelResolver translates catalog identifiers into display labels.
// Localization is owned by the embedding application.
type LabelResolver interface {
	Label(ctx context.Context, id string) string
}

// RoleNameResolver maps client-supplied role names to catalog role ids.
// Unknown names report ok==false and are dropped by the change-set engine.
type RoleNameResolver interface {
	RoleIDByName(ctx context.Context, name string) (string, bool)
}
