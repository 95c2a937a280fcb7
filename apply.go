package permkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// PermissionModelType classifies where a resource's permissions come from.
// The zero value means no permission row exists (undefined model).
type PermissionModelType struct {
	InheritFromParent  bool
	InheritFromLibrary bool
	Special            bool
}

// IsDefined reports whether the resource has any permission model at all.
func (t PermissionModelType) IsDefined() bool {
	return t.InheritFromParent || t.InheritFromLibrary || t.Special
}

// PermissionService applies change-sets to per-resource permission rows and
// answers permission-model questions about resources.
//
// A resource starts without a permission row; the row is created on the first
// successful change-set application and never deleted afterwards, only its
// contents change.
type PermissionService struct {
	store       EntityPermissionStore
	hierarchy   HierarchyResolver
	notifier    ChangeNotifier
	managerRole string
	log         logrus.FieldLogger
}

// NewPermissionService creates a permission service. managerRole is the
// catalog id of the manager role used by the root-manager guard; it defaults
// to "manager" when blank. The notifier may be nil.
func NewPermissionService(store EntityPermissionStore, hierarchy HierarchyResolver, notifier ChangeNotifier, managerRole string, log logrus.FieldLogger) *PermissionService {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if managerRole == "" {
		managerRole = "manager"
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &PermissionService{
		store:       store,
		hierarchy:   hierarchy,
		notifier:    notifier,
		managerRole: managerRole,
		log:         log,
	}
}

// SetPermissions applies a change-set to the resource's permission row,
// creating the row on first use. After the row is persisted a single
// PermissionModelChangedEvent is published carrying the effective deltas.
//
// The whole change-set is applied to one row in one store save; partial
// application never becomes visible.
func (s *PermissionService) SetPermissions(ctx context.Context, ref ResourceRef, changes []PermissionsChange) error {
	if ref.IsZero() {
		return NewError(ErrInvalidReference, "no reference provided")
	}
	if len(changes) == 0 {
		return nil
	}

	s.log.WithField("target", ref.ID).Info("setting permissions")

	permission, err := s.store.LoadWithAssignments(ctx, ref.ID)
	if err != nil {
		return err
	}
	if permission == nil {
		permission = &EntityPermission{TargetID: ref.ID}
	}

	var event PermissionModelChangedEvent
	event.TargetID = ref.ID

	s.applyRemovals(permission, changes, &event)
	s.applyAdditions(permission, changes, &event)
	s.applyParentChanges(permission, changes, &event)
	s.applyLibraryChanges(permission, changes, &event)
	applyLibraryIndicator(permission, changes)

	if err := s.ensureAtLeastOneManager(ctx, ref, permission); err != nil {
		return err
	}

	if err := s.store.Save(ctx, permission); err != nil {
		return err
	}

	s.notifier.Publish(ctx, event)
	return nil
}

func (s *PermissionService) applyRemovals(permission *EntityPermission, changes []PermissionsChange, event *PermissionModelChangedEvent) {
	for _, change := range changes {
		removal, ok := change.(RemoveRoleAssignmentChange)
		if !ok {
			continue
		}
		existing := permission.Assignment(removal.Authority)
		if existing == nil || existing.Role != removal.Role {
			continue
		}
		kept := permission.Assignments[:0]
		for _, assignment := range permission.Assignments {
			if assignment != existing {
				kept = append(kept, assignment)
			}
		}
		permission.Assignments = kept
		event.Assignments = append(event.Assignments, AssignmentDelta{
			Authority: removal.Authority,
			OldRole:   removal.Role,
		})
	}
}

func (s *PermissionService) applyAdditions(permission *EntityPermission, changes []PermissionsChange, event *PermissionModelChangedEvent) {
	for _, change := range changes {
		addition, ok := change.(AddRoleAssignmentChange)
		if !ok {
			continue
		}
		existing := permission.Assignment(addition.Authority)
		switch {
		case existing == nil:
			permission.Assignments = append(permission.Assignments, &AuthorityRoleAssignment{
				Authority: addition.Authority,
				Role:      addition.Role,
			})
			event.Assignments = append(event.Assignments, AssignmentDelta{
				Authority: addition.Authority,
				NewRole:   addition.Role,
			})
		case existing.Role != addition.Role:
			event.Assignments = append(event.Assignments, AssignmentDelta{
				Authority: addition.Authority,
				OldRole:   existing.Role,
				NewRole:   addition.Role,
			})
			existing.Role = addition.Role
		}
	}
}

func (s *PermissionService) applyParentChanges(permission *EntityPermission, changes []PermissionsChange, event *PermissionModelChangedEvent) {
	changed := false
	oldParent := permission.ParentID
	newParent := oldParent

	for _, change := range changes {
		if parent, ok := change.(ParentChange); ok && parent.Value != oldParent {
			newParent = parent.Value
			permission.ParentID = parent.Value
			changed = true
			break
		}
	}
	for _, change := range changes {
		if inherit, ok := change.(InheritFromParentChange); ok && inherit.Value != permission.InheritFromParent {
			permission.InheritFromParent = inherit.Value
			changed = true
			break
		}
	}

	if changed {
		event.Inheritance = append(event.Inheritance, InheritanceDelta{
			OldSource:    oldParent,
			NewSource:    newParent,
			ManagersOnly: !permission.InheritFromParent,
		})
	}
}

func (s *PermissionService) applyLibraryChanges(permission *EntityPermission, changes []PermissionsChange, event *PermissionModelChangedEvent) {
	changed := false
	oldLibrary := permission.LibraryID
	newLibrary := oldLibrary

	for _, change := range changes {
		if library, ok := change.(LibraryChange); ok && library.Value != oldLibrary {
			newLibrary = library.Value
			permission.LibraryID = library.Value
			changed = true
			break
		}
	}
	for _, change := range changes {
		if inherit, ok := change.(InheritFromLibraryChange); ok && inherit.Value != permission.InheritFromLibrary {
			permission.InheritFromLibrary = inherit.Value
			changed = true
			break
		}
	}

	if changed {
		event.Inheritance = append(event.Inheritance, InheritanceDelta{
			OldSource:    oldLibrary,
			NewSource:    newLibrary,
			ManagersOnly: !permission.InheritFromLibrary,
		})
	}
}

func applyLibraryIndicator(permission *EntityPermission, changes []PermissionsChange) {
	for _, change := range changes {
		if indicator, ok := change.(SetLibraryIndicatorChange); ok {
			permission.IsLibrary = indicator.Value
		}
	}
}

// ensureAtLeastOneManager guards root resources against losing their last
// manager. Groups and libraries are exempt: groups only ever carry consumer
// permissions, and libraries are allowed to exist without any assignment.
// Non-root resources are covered transitively by their root.
func (s *PermissionService) ensureAtLeastOneManager(ctx context.Context, ref ResourceRef, permission *EntityPermission) error {
	if ref.Kind == KindGroup {
		return nil
	}
	if permission.ParentID != "" || permission.IsLibrary {
		return nil
	}
	if s.hasManager(permission) {
		return nil
	}

	// The library permissions count as well: a root under a managed library
	// is still covered.
	if permission.LibraryID != "" {
		library, err := s.store.LoadWithAssignments(ctx, permission.LibraryID)
		if err != nil {
			return err
		}
		if library != nil && s.hasManager(library) {
			return nil
		}
	}

	return NewError(ErrMissingManager, "at least one manager is required on root level").
		WithTarget(ref.ID)
}

func (s *PermissionService) hasManager(permission *EntityPermission) bool {
	for _, assignment := range permission.Assignments {
		if assignment.Role == s.managerRole {
			return true
		}
	}
	return false
}

// GetPermissionsInfo returns the persisted permission state of a resource.
// A blank id or a resource without a row yields (nil, nil).
func (s *PermissionService) GetPermissionsInfo(ctx context.Context, id string) (*EntityPermission, error) {
	if id == "" {
		return nil, nil
	}
	return s.store.LoadWithAssignments(ctx, id)
}

// PermissionModel classifies the resource's permission model. A resource
// without a row yields the zero (undefined) model.
func (s *PermissionService) PermissionModel(ctx context.Context, id string) (PermissionModelType, error) {
	if id == "" {
		return PermissionModelType{}, nil
	}
	permission, err := s.store.LoadWithAssignments(ctx, id)
	if err != nil {
		return PermissionModelType{}, err
	}
	if permission == nil {
		return PermissionModelType{}, nil
	}
	return PermissionModelType{
		InheritFromParent:  permission.InheritFromParent,
		InheritFromLibrary: permission.InheritFromLibrary,
		Special:            len(permission.Assignments) > 0,
	}, nil
}

// IsRoot reports whether the resource sits at the top of its hierarchy.
func (s *PermissionService) IsRoot(ctx context.Context, id string) bool {
	if id == "" {
		return false
	}
	return s.hierarchy.IsRoot(ctx, id)
}

// RestoreParentPermissions strips the special assignments of every descendant
// of the given resource and re-enables parent inheritance on them, so their
// effective permissions flow from the hierarchy again. The resource itself is
// not touched. One PermissionModelChangedEvent and one
// PermissionsRestoredEvent are published per affected descendant.
func (s *PermissionService) RestoreParentPermissions(ctx context.Context, ref ResourceRef) error {
	if ref.IsZero() {
		return nil
	}

	s.log.WithField("target", ref.ID).Info("restoring permissions from parent for descendants")

	ids, err := s.store.Descendants(ctx, ref.ID)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if id == ref.ID {
			continue
		}
		if err := s.restoreDescendant(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *PermissionService) restoreDescendant(ctx context.Context, id string) error {
	permission, err := s.store.LoadWithAssignments(ctx, id)
	if err != nil {
		return err
	}
	if permission == nil {
		return nil
	}

	var event PermissionModelChangedEvent
	event.TargetID = id

	for _, assignment := range permission.Assignments {
		event.Assignments = append(event.Assignments, AssignmentDelta{
			Authority: assignment.Authority,
			OldRole:   assignment.Role,
		})
	}

	if len(permission.Assignments) > 0 {
		if err := s.store.DeleteAssignments(ctx, permission.ID); err != nil {
			return err
		}
		permission.Assignments = nil
	}

	if !permission.InheritFromParent {
		permission.InheritFromParent = true
		event.Inheritance = append(event.Inheritance, InheritanceDelta{
			OldSource:    permission.ParentID,
			NewSource:    permission.ParentID,
			ManagersOnly: false,
		})
		if err := s.store.Save(ctx, permission); err != nil {
			return err
		}
	}

	if len(event.Assignments) > 0 || len(event.Inheritance) > 0 {
		s.log.WithField("target", id).Info("restored permissions from parent")
		s.notifier.Publish(ctx, event)
		s.notifier.Publish(ctx, PermissionsRestoredEvent{TargetID: id})
	}
	return nil
}
