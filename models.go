package permkit

import (
	"time"

	"github.com/uptrace/bun"
)

// RoleDefinition describes a role in the catalog. Roles are never physically
// deleted by permkit; they are disabled instead, so references from permission
// rows stay resolvable.
type RoleDefinition struct {
	bun.BaseModel `bun:"table:role_definitions,alias:rd"`

	ID          string    `bun:"id,pk"`
	Order       int       `bun:"sort_order,notnull"` // presentation/precedence order
	CanRead     bool      `bun:"can_read,notnull"`
	CanWrite    bool      `bun:"can_write,notnull"`
	Internal    bool      `bun:"internal,notnull"` // system-reserved, not user-editable
	UserDefined bool      `bun:"user_defined,notnull"`
	Enabled     bool      `bun:"enabled,notnull"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// ActionDefinition describes a single permissible operation in the catalog.
type ActionDefinition struct {
	bun.BaseModel `bun:"table:action_definitions,alias:ad"`

	ID          string    `bun:"id,pk"`
	ActionType  string    `bun:"action_type"` // classification tag, e.g. "transition"
	Enabled     bool      `bun:"enabled,notnull"`
	Immediate   bool      `bun:"immediate,notnull"` // executes without confirmation
	Visible     bool      `bun:"visible,notnull"`
	UserDefined bool      `bun:"user_defined,notnull"`
	IconPath    string    `bun:"icon_path"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt   time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// RoleActionMapping associates an action with a role. At most one row exists
// per (role, action) pair; absence of a row means "not assigned". A mapping
// may exist but be switched off via Enabled.
type RoleActionMapping struct {
	bun.BaseModel `bun:"table:role_action_mappings,alias:ram"`

	RoleID   string   `bun:"role_id,pk"`
	ActionID string   `bun:"action_id,pk"`
	Enabled  bool     `bun:"enabled,notnull"`
	Filters  []string `bun:"filters,type:text[]"` // opaque filter-expression ids
}

// MappingChange is one requested (role, action) mapping update. Applying a
// change fully replaces Enabled and Filters for that pair.
type MappingChange struct {
	RoleID   string
	ActionID string
	Enabled  bool
	Filters  []string
}

// EntityPermission holds the persisted permission state of a single protected
// resource: its direct role assignments and inheritance switches. A resource
// without a row has no permissions of its own yet; the row is created on the
// first change-set application and never deleted afterwards.
type EntityPermission struct {
	bun.BaseModel `bun:"table:entity_permissions,alias:ep"`

	ID                 string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	TargetID           string    `bun:"target_id,notnull,unique"`
	InheritFromParent  bool      `bun:"inherit_from_parent,notnull"`
	InheritFromLibrary bool      `bun:"inherit_from_library,notnull"`
	IsLibrary          bool      `bun:"is_library,notnull"`
	ParentID           string    `bun:"parent_id"`  // target id of the parent resource, if any
	LibraryID          string    `bun:"library_id"` // target id of the owning library, if any
	CreatedAt          time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt          time.Time `bun:"updated_at,notnull,default:current_timestamp"`

	Assignments []*AuthorityRoleAssignment `bun:"rel:has-many,join:id=permission_id"`
}

// Assignment returns the assignment for an authority, or nil.
// At most one assignment exists per authority id.
func (ep *EntityPermission) Assignment(authority string) *AuthorityRoleAssignment {
	for _, a := range ep.Assignments {
		if a.Authority == authority {
			return a
		}
	}
	return nil
}

// AuthorityRoleAssignment grants a role to an authority (user or group) on the
// resource owning the parent EntityPermission row.
type AuthorityRoleAssignment struct {
	bun.BaseModel `bun:"table:authority_role_assignments,alias:ara"`

	ID           string `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	PermissionID string `bun:"permission_id,notnull"`
	Authority    string `bun:"authority,notnull"`
	Role         string `bun:"role,notnull"`
}

// ResourceKind classifies a resource reference for policy checks.
type ResourceKind string

const (
	KindObject  ResourceKind = "object"
	KindGroup   ResourceKind = "group"
	KindLibrary ResourceKind = "library"
)

// ResourceRef identifies a protected resource towards the hierarchy resolver
// and the permission stores.
type ResourceRef struct {
	ID   string
	Kind ResourceKind
}

// IsZero reports whether the reference carries no id.
func (r ResourceRef) IsZero() bool {
	return r.ID == ""
}

// NewResourceRef creates a ResourceRef for a plain object.
func NewResourceRef(id string) ResourceRef {
	return ResourceRef{ID: id, Kind: KindObject}
}

// PermissionEntry is the per-authority slice of a Permissions request or
// response. The four role fields correspond to the layers an effective
// permission is derived from.
type PermissionEntry struct {
	Special    string // explicitly assigned on the resource
	Inherited  string // derived from the parent chain
	Library    string // derived from the owning library
	Calculated string // single effective role after precedence resolution
	Manager    bool
}

// Permissions is the transient request/response state of a resource's
// permission edit surface. Entries are keyed by authority id.
type Permissions struct {
	Entries map[string]PermissionEntry

	InheritedPermissions        bool
	InheritedLibraryPermissions bool
	IsRoot                      bool
	EditAllowed                 bool
	RestoreAllowed              bool

	AllowInheritParentPermissions  bool
	AllowInheritLibraryPermissions bool
}

// NewPermissions creates an empty Permissions value ready for entries.
func NewPermissions() Permissions {
	return Permissions{Entries: make(map[string]PermissionEntry)}
}

// SetSpecial records a special (direct) role request for an authority.
func (p *Permissions) SetSpecial(authority, role string) {
	if p.Entries == nil {
		p.Entries = make(map[string]PermissionEntry)
	}
	entry := p.Entries[authority]
	entry.Special = role
	p.Entries[authority] = entry
}
