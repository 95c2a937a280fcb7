package permkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPermissionService(store *MemoryPermissionStore, notifier *RecordingNotifier) *PermissionService {
	return NewPermissionService(store, NewStaticHierarchy(), notifier, "manager", nil)
}

// TestSetPermissionsCreatesRow validates that the first change-set creates
// the permission row and publishes one model-changed event.
func TestSetPermissionsCreatesRow(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	notifier := &RecordingNotifier{}
	service := newTestPermissionService(store, notifier)

	changes := NewChangeSet().
		AddRoleAssignment("alice", "manager").
		AddRoleAssignment("bob", "viewer").
		Build()
	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), changes))

	row, err := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, row)
	require.Len(t, row.Assignments, 2)
	assert.Equal(t, "manager", row.Assignment("alice").Role)
	assert.Equal(t, "viewer", row.Assignment("bob").Role)

	events := notifier.Events()
	require.Len(t, events, 1)
	event, ok := events[0].(PermissionModelChangedEvent)
	require.True(t, ok)
	assert.Equal(t, "doc-1", event.TargetID)
	assert.Len(t, event.Assignments, 2)
}

// TestSetPermissionsOverwritesByAuthority validates that an add for an
// already-assigned authority replaces the role and records both sides of the
// delta.
func TestSetPermissionsOverwritesByAuthority(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	notifier := &RecordingNotifier{}
	service := newTestPermissionService(store, notifier)

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("alice", "manager").
		AddRoleAssignment("bob", "viewer").
		Build()))
	notifier.Reset()

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("bob", "editor").
		Build()))

	row, err := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	require.Len(t, row.Assignments, 2)
	assert.Equal(t, "editor", row.Assignment("bob").Role)

	events := notifier.Events()
	require.Len(t, events, 1)
	deltas := events[0].(PermissionModelChangedEvent).Assignments
	require.Len(t, deltas, 1)
	assert.Equal(t, AssignmentDelta{Authority: "bob", OldRole: "viewer", NewRole: "editor"}, deltas[0])
}

// TestSetPermissionsRemovalRequiresMatchingRole validates that removals only
// apply when the stored role matches the change.
func TestSetPermissionsRemovalRequiresMatchingRole(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("alice", "manager").
		AddRoleAssignment("bob", "editor").
		Build()))

	// Stale removal: bob is an editor now, not a viewer.
	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		RemoveRoleAssignment("bob", "viewer").
		Build()))
	row, err := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	assert.NotNil(t, row.Assignment("bob"))

	// Matching removal takes effect.
	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		RemoveRoleAssignment("bob", "editor").
		Build()))
	row, err = store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, row.Assignment("bob"))
}

// TestSetPermissionsManagerGuard validates that a root resource cannot end up
// without a manager.
func TestSetPermissionsManagerGuard(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	err := service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.True(t, IsMissingManager(err))

	// Nothing was persisted.
	row, loadErr := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, loadErr)
	assert.Nil(t, row)

	// With a manager on board the same change succeeds.
	err = service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("alice", "manager").
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.NoError(t, err)

	// And removing the last manager is rejected.
	err = service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		RemoveRoleAssignment("alice", "manager").
		Build())
	assert.True(t, IsMissingManager(err))
}

// TestSetPermissionsManagerGuardExemptions validates that groups, libraries,
// and non-root resources skip the manager guard.
func TestSetPermissionsManagerGuardExemptions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	// Groups only ever carry consumer permissions.
	err := service.SetPermissions(ctx, ResourceRef{ID: "group-1", Kind: KindGroup}, NewChangeSet().
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.NoError(t, err)

	// Libraries may exist without any assignment.
	err = service.SetPermissions(ctx, ResourceRef{ID: "lib-1", Kind: KindLibrary}, NewChangeSet().
		LibraryIndicator(true).
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.NoError(t, err)

	// Non-root resources are covered by their root.
	err = service.SetPermissions(ctx, NewResourceRef("doc-2"), NewChangeSet().
		Parent("doc-1").
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.NoError(t, err)
}

// TestSetPermissionsManagerGuardLibraryCoverage validates that a root under a
// managed library passes the guard.
func TestSetPermissionsManagerGuardLibraryCoverage(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	require.NoError(t, service.SetPermissions(ctx, ResourceRef{ID: "lib-1", Kind: KindLibrary}, NewChangeSet().
		LibraryIndicator(true).
		AddRoleAssignment("alice", "manager").
		Build()))

	err := service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		Library("lib-1").
		AddRoleAssignment("bob", "viewer").
		Build())
	assert.NoError(t, err)
}

// TestSetPermissionsInheritanceDeltas validates inheritance and reference
// changes and their event deltas.
func TestSetPermissionsInheritanceDeltas(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	notifier := &RecordingNotifier{}
	service := newTestPermissionService(store, notifier)

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		Parent("folder-1").
		InheritFromParent(true).
		AddRoleAssignment("alice", "manager").
		Build()))

	row, err := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	assert.Equal(t, "folder-1", row.ParentID)
	assert.True(t, row.InheritFromParent)

	events := notifier.Events()
	require.Len(t, events, 1)
	inheritance := events[0].(PermissionModelChangedEvent).Inheritance
	require.Len(t, inheritance, 1)
	assert.Equal(t, "folder-1", inheritance[0].NewSource)
	assert.False(t, inheritance[0].ManagersOnly)
}

// TestSetPermissionsValidation validates the zero-reference and empty
// change-set edge cases.
func TestSetPermissionsValidation(t *testing.T) {
	ctx := context.Background()
	notifier := &RecordingNotifier{}
	service := newTestPermissionService(NewMemoryPermissionStore(), notifier)

	err := service.SetPermissions(ctx, ResourceRef{}, NewChangeSet().AddRoleAssignment("alice", "manager").Build())
	assert.ErrorIs(t, err, ErrInvalidReference)

	assert.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), nil))
	assert.Empty(t, notifier.Events())
}

// TestGetPermissionsInfo validates the read surface.
func TestGetPermissionsInfo(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	info, err := service.GetPermissionsInfo(ctx, "doc-1")
	require.NoError(t, err)
	assert.Nil(t, info)

	info, err = service.GetPermissionsInfo(ctx, "")
	require.NoError(t, err)
	assert.Nil(t, info)

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		AddRoleAssignment("alice", "manager").
		Build()))

	info, err = service.GetPermissionsInfo(ctx, "doc-1")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Len(t, info.Assignments, 1)
}

// TestPermissionModel validates permission model classification.
func TestPermissionModel(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	service := newTestPermissionService(store, &RecordingNotifier{})

	model, err := service.PermissionModel(ctx, "doc-1")
	require.NoError(t, err)
	assert.False(t, model.IsDefined())

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		Parent("folder-1").
		InheritFromParent(true).
		AddRoleAssignment("alice", "manager").
		Build()))

	model, err = service.PermissionModel(ctx, "doc-1")
	require.NoError(t, err)
	assert.True(t, model.IsDefined())
	assert.True(t, model.InheritFromParent)
	assert.True(t, model.Special)
	assert.False(t, model.InheritFromLibrary)
}

// TestRestoreParentPermissions validates that descendants lose their special
// assignments and regain parent inheritance, with events per descendant.
func TestRestoreParentPermissions(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryPermissionStore()
	notifier := &RecordingNotifier{}
	service := newTestPermissionService(store, notifier)

	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("folder-1"), NewChangeSet().
		AddRoleAssignment("alice", "manager").
		Build()))
	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-1"), NewChangeSet().
		Parent("folder-1").
		InheritFromParent(false).
		AddRoleAssignment("bob", "editor").
		Build()))
	require.NoError(t, service.SetPermissions(ctx, NewResourceRef("doc-2"), NewChangeSet().
		Parent("folder-1").
		InheritFromParent(true).
		Build()))
	notifier.Reset()

	require.NoError(t, service.RestoreParentPermissions(ctx, NewResourceRef("folder-1")))

	// The resource itself is untouched.
	root, err := store.LoadWithAssignments(ctx, "folder-1")
	require.NoError(t, err)
	assert.Len(t, root.Assignments, 1)

	// doc-1 lost its special assignment and inherits again.
	doc1, err := store.LoadWithAssignments(ctx, "doc-1")
	require.NoError(t, err)
	assert.Empty(t, doc1.Assignments)
	assert.True(t, doc1.InheritFromParent)

	// doc-2 had nothing to restore, so no events concern it.
	var restored []string
	for _, event := range notifier.Events() {
		if e, ok := event.(PermissionsRestoredEvent); ok {
			restored = append(restored, e.TargetID)
		}
	}
	assert.Equal(t, []string{"doc-1"}, restored)
}

// TestRestoreParentPermissionsZeroRef validates that a zero reference is a
// no-op.
func TestRestoreParentPermissionsZeroRef(t *testing.T) {
	service := newTestPermissionService(NewMemoryPermissionStore(), &RecordingNotifier{})
	assert.NoError(t, service.RestoreParentPermissions(context.Background(), ResourceRef{}))
}
