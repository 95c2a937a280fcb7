package permkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PermissionsChange is one atomic permission mutation. An ordered list of
// changes forms a change-set, applied by the permission store as a single
// transaction, all-or-nothing.
type PermissionsChange interface {
	isPermissionsChange()
}

// AddRoleAssignmentChange assigns a role to an authority. The store overwrites
// by authority key, so an add also represents an update of an existing
// assignment to a different role.
type AddRoleAssignmentChange struct {
	Authority string
	Role      string
}

// RemoveRoleAssignmentChange revokes a role from an authority. The removal
// only takes effect if the stored assignment carries exactly this role.
type RemoveRoleAssignmentChange struct {
	Authority string
	Role      string
}

// InheritFromParentChange toggles inheritance from the parent resource.
type InheritFromParentChange struct {
	Value bool
}

// InheritFromLibraryChange toggles inheritance from the owning library.
type InheritFromLibraryChange struct {
	Value bool
}

// ParentChange repoints the permission row at a different parent resource.
// An empty value clears the parent reference.
type ParentChange struct {
	Value string
}

// LibraryChange repoints the permission row at a different owning library.
type LibraryChange struct {
	Value string
}

// SetLibraryIndicatorChange marks or unmarks the resource as a library.
type SetLibraryIndicatorChange struct {
	Value bool
}

func (AddRoleAssignmentChange) isPermissionsChange()    {}
func (RemoveRoleAssignmentChange) isPermissionsChange() {}
func (InheritFromParentChange) isPermissionsChange()    {}
func (InheritFromLibraryChange) isPermissionsChange()   {}
func (ParentChange) isPermissionsChange()               {}
func (LibraryChange) isPermissionsChange()              {}
func (SetLibraryIndicatorChange) isPermissionsChange()  {}

// ChangeSetBuilder assembles an ordered change-set.
//
// Example:
//
//	changes := permkit.NewChangeSet().
//	    AddRoleAssignment("alice", "editor").
//	    InheritFromParent(true).
//	    Build()
type ChangeSetBuilder struct {
	changes []PermissionsChange
}

// NewChangeSet creates an empty builder.
func NewChangeSet() *ChangeSetBuilder {
	return &ChangeSetBuilder{}
}

// AddRoleAssignment appends an assignment addition.
func (b *ChangeSetBuilder) AddRoleAssignment(authority, role string) *ChangeSetBuilder {
	b.changes = append(b.changes, AddRoleAssignmentChange{Authority: authority, Role: role})
	return b
}

// RemoveRoleAssignment appends an assignment removal.
func (b *ChangeSetBuilder) RemoveRoleAssignment(authority, role string) *ChangeSetBuilder {
	b.changes = append(b.changes, RemoveRoleAssignmentChange{Authority: authority, Role: role})
	return b
}

// InheritFromParent appends a parent-inheritance toggle.
func (b *ChangeSetBuilder) InheritFromParent(value bool) *ChangeSetBuilder {
	b.changes = append(b.changes, InheritFromParentChange{Value: value})
	return b
}

// InheritFromLibrary appends a library-inheritance toggle.
func (b *ChangeSetBuilder) InheritFromLibrary(value bool) *ChangeSetBuilder {
	b.changes = append(b.changes, InheritFromLibraryChange{Value: value})
	return b
}

// Parent appends a parent reference change.
func (b *ChangeSetBuilder) Parent(targetID string) *ChangeSetBuilder {
	b.changes = append(b.changes, ParentChange{Value: targetID})
	return b
}

// Library appends a library reference change.
func (b *ChangeSetBuilder) Library(targetID string) *ChangeSetBuilder {
	b.changes = append(b.changes, LibraryChange{Value: targetID})
	return b
}

// LibraryIndicator appends a library indicator change.
func (b *ChangeSetBuilder) LibraryIndicator(value bool) *ChangeSetBuilder {
	b.changes = append(b.changes, SetLibraryIndicatorChange{Value: value})
	return b
}

// Build returns the assembled change-set.
func (b *ChangeSetBuilder) Build() []PermissionsChange {
	return b.changes
}

// ChangeSetEngine computes the minimal change-set that reconciles a resource's
// persisted permission state with a client-requested target state. The engine
// is stateless per invocation and safe for concurrent use.
type ChangeSetEngine struct {
	roles     RoleNameResolver
	hierarchy HierarchyResolver
	log       logrus.FieldLogger
}

// NewChangeSetEngine creates a change-set engine.
func NewChangeSetEngine(roles RoleNameResolver, hierarchy HierarchyResolver, log logrus.FieldLogger) *ChangeSetEngine {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ChangeSetEngine{
		roles:     roles,
		hierarchy: hierarchy,
		log:       log,
	}
}

// ComputeChangeSet diffs the requested Permissions against the currently
// persisted EntityPermission and returns the atomic changes needed to
// reconcile them. This is a pure diff, not a sequential apply: additions and
// removals are both computed against the original assignment set.
//
// A nil current means the resource has no permission row yet; every requested
// entry then becomes an addition and the inherit flags diff against false.
func (e *ChangeSetEngine) ComputeChangeSet(ctx context.Context, ref ResourceRef, current *EntityPermission, requested Permissions) []PermissionsChange {
	if current == nil {
		current = &EntityPermission{TargetID: ref.ID}
	}

	builder := NewChangeSet()

	// Resolve requested special roles per authority. Unknown role names are
	// dropped, tolerating stale clients that still send removed roles.
	requestedRoles := make(map[string]string, len(requested.Entries))
	for authority, entry := range requested.Entries {
		if entry.Special == "" {
			continue
		}
		roleID, ok := e.roles.RoleIDByName(ctx, entry.Special)
		if !ok {
			e.log.WithFields(logrus.Fields{
				"authority": authority,
				"role":      entry.Special,
				"target":    ref.ID,
			}).Debug("dropping unknown role name from permission request")
			continue
		}
		requestedRoles[authority] = roleID
	}

	// Additions and updates: every requested pair not already present
	// verbatim. An authority whose role changed is an add of the new pair;
	// the store overwrites by authority key.
	for authority, roleID := range requestedRoles {
		existing := current.Assignment(authority)
		if existing != nil && existing.Role == roleID {
			continue
		}
		builder.AddRoleAssignment(authority, roleID)
	}

	// Removals: every stored assignment whose authority is absent from the
	// request, evaluated against the original assignment set.
	for _, assignment := range current.Assignments {
		if _, ok := requestedRoles[assignment.Authority]; !ok {
			builder.RemoveRoleAssignment(assignment.Authority, assignment.Role)
		}
	}

	e.diffParentInheritance(ctx, ref, current, requested, builder)

	if requested.InheritedLibraryPermissions != current.InheritFromLibrary {
		builder.InheritFromLibrary(requested.InheritedLibraryPermissions)
	}

	changes := builder.Build()
	changeSetSize.Observe(float64(len(changes)))
	return changes
}

// diffParentInheritance applies the hierarchy policy to a requested
// inherit-from-parent value. Inheriting is only admissible when the resource
// has a resolvable parent that is permitted to act as a permission source.
func (e *ChangeSetEngine) diffParentInheritance(ctx context.Context, ref ResourceRef, current *EntityPermission, requested Permissions, builder *ChangeSetBuilder) {
	value := requested.InheritedPermissions

	if value {
		parent, ok := e.hierarchy.ResolveParent(ctx, ref)
		if !ok {
			// Nothing to inherit from: keep the stored value untouched.
			return
		}
		if !e.hierarchy.IsAllowedAsPermissionSource(ctx, parent) {
			// Policy guard, not a silent drop: the caller asked for
			// something the hierarchy forbids.
			e.log.WithFields(logrus.Fields{
				"target": ref.ID,
				"parent": parent.ID,
			}).Warn("parent is not a valid permission source, forcing inherit-from-parent off")
			inheritanceDowngrades.Inc()
			value = false
		}
	}

	if value != current.InheritFromParent {
		builder.InheritFromParent(value)
	}
}
