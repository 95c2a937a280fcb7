package permkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// AssignmentResolver computes the effective role assignments of a resource by
// layering the persisted permission rows of its hierarchy.
//
// Three layers feed each authority's entry: the library the resource belongs
// to, the parent chain above it, and the resource's own special assignments.
// When the resource opts out of an inheritance layer only the managers of
// that layer flow through, so a resource can never hide from its managers.
type AssignmentResolver struct {
	store       EntityPermissionStore
	hierarchy   HierarchyResolver
	managerRole string
	log         logrus.FieldLogger
}

// NewAssignmentResolver creates an assignment resolver. managerRole defaults
// to "manager" when blank.
func NewAssignmentResolver(store EntityPermissionStore, hierarchy HierarchyResolver, managerRole string, log logrus.FieldLogger) *AssignmentResolver {
	if managerRole == "" {
		managerRole = "manager"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &AssignmentResolver{
		store:       store,
		hierarchy:   hierarchy,
		managerRole: managerRole,
		log:         log,
	}
}

// Resolve returns the effective permissions of a resource. A resource without
// a permission row yields an empty, valid Permissions value.
//
// The calculated role of an authority assigned on more than one layer is the
// most specific one: a special assignment wins over an inherited one, and an
// inherited one wins over a library one.
func (r *AssignmentResolver) Resolve(ctx context.Context, ref ResourceRef) (*Permissions, error) {
	if ref.IsZero() {
		return nil, NewError(ErrInvalidReference, "no reference provided")
	}

	resolved := NewPermissions()
	permissions := &resolved
	permissions.IsRoot = r.hierarchy.IsRoot(ctx, ref.ID)

	row, err := r.store.LoadWithAssignments(ctx, ref.ID)
	if err != nil {
		return nil, err
	}
	if row == nil {
		row = &EntityPermission{TargetID: ref.ID, InheritFromParent: true, InheritFromLibrary: true}
	}

	permissions.AllowInheritParentPermissions = row.InheritFromParent
	permissions.InheritedPermissions = row.InheritFromParent
	permissions.AllowInheritLibraryPermissions = row.InheritFromLibrary
	permissions.InheritedLibraryPermissions = row.InheritFromLibrary

	if err := r.resolveLibrary(ctx, row, permissions); err != nil {
		return nil, err
	}
	if err := r.resolveParents(ctx, row, permissions); err != nil {
		return nil, err
	}
	for _, assignment := range row.Assignments {
		permissions.SetSpecial(assignment.Authority, assignment.Role)
	}

	r.calculate(permissions)
	return permissions, nil
}

// resolveLibrary layers in the assignments of the resource's library. With
// library inheritance off only the library managers flow through.
func (r *AssignmentResolver) resolveLibrary(ctx context.Context, row *EntityPermission, permissions *Permissions) error {
	if row.LibraryID == "" {
		return nil
	}
	library, err := r.store.LoadWithAssignments(ctx, row.LibraryID)
	if err != nil {
		return err
	}
	if library == nil {
		return nil
	}
	for _, assignment := range library.Assignments {
		if !row.InheritFromLibrary && assignment.Role != r.managerRole {
			continue
		}
		entry := permissions.Entries[assignment.Authority]
		entry.Library = assignment.Role
		permissions.Entries[assignment.Authority] = entry
	}
	return nil
}

// resolveParents walks the parent chain, closest first, layering in each
// ancestor's special assignments. The walk follows the chain regardless of
// each ancestor's own inheritance flags: an ancestor opting out of its own
// parent does not cut its descendants off from that level's managers.
//
// With parent inheritance off on the resource itself only manager
// assignments flow through the whole chain.
func (r *AssignmentResolver) resolveParents(ctx context.Context, row *EntityPermission, permissions *Permissions) error {
	seen := map[string]bool{row.TargetID: true}
	parentID := row.ParentID

	// nearest ancestor wins, so only the first role seen per authority sticks
	for parentID != "" && !seen[parentID] {
		seen[parentID] = true
		parent, err := r.store.LoadWithAssignments(ctx, parentID)
		if err != nil {
			return err
		}
		if parent == nil {
			break
		}
		for _, assignment := range parent.Assignments {
			if !row.InheritFromParent && assignment.Role != r.managerRole {
				continue
			}
			entry := permissions.Entries[assignment.Authority]
			if entry.Inherited == "" {
				entry.Inherited = assignment.Role
				permissions.Entries[assignment.Authority] = entry
			}
		}
		parentID = parent.ParentID
	}
	return nil
}

// calculate fills the Calculated and Manager fields of every entry.
func (r *AssignmentResolver) calculate(permissions *Permissions) {
	for authority, entry := range permissions.Entries {
		switch {
		case entry.Special != "":
			entry.Calculated = entry.Special
		case entry.Inherited != "":
			entry.Calculated = entry.Inherited
		default:
			entry.Calculated = entry.Library
		}
		entry.Manager = entry.Special == r.managerRole ||
			entry.Inherited == r.managerRole ||
			entry.Library == r.managerRole
		permissions.Entries[authority] = entry
	}
}
