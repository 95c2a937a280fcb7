package permkit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestStoreCatalogRoundTrip tests catalog persistence against a real database.
func TestStoreCatalogRoundTrip(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	store, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	roleID := UniqueID("role")
	actionID := UniqueID("action")

	require.NoError(t, store.SaveRole(ctx, &RoleDefinition{
		ID:      roleID,
		Order:   42,
		CanRead: true,
		Enabled: true,
	}))
	require.NoError(t, store.SaveAction(ctx, &ActionDefinition{
		ID:        actionID,
		Enabled:   true,
		Immediate: true,
		Visible:   true,
	}))
	require.NoError(t, store.SaveMapping(ctx, &RoleActionMapping{
		RoleID:   roleID,
		ActionID: actionID,
		Enabled:  true,
		Filters:  []string{"own-documents"},
	}))

	roles, err := store.GetRoles(ctx, roleID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, 42, roles[0].Order)
	assert.True(t, roles[0].CanRead)

	// Upsert keeps the id, replaces the fields.
	require.NoError(t, store.SaveRole(ctx, &RoleDefinition{
		ID:       roleID,
		Order:    7,
		CanWrite: true,
		Enabled:  true,
	}))
	roles, err = store.GetRoles(ctx, roleID)
	require.NoError(t, err)
	require.Len(t, roles, 1)
	assert.Equal(t, 7, roles[0].Order)
	assert.True(t, roles[0].CanWrite)
	assert.False(t, roles[0].CanRead)

	assert.True(t, store.RoleExists(ctx, roleID))
	assert.False(t, store.RoleExists(ctx, UniqueID("missing")))

	count, err := store.CountRoles(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 1)

	mappings, err := store.GetRoleActionMappings(ctx)
	require.NoError(t, err)
	found := false
	for _, m := range mappings {
		if m.RoleID == roleID && m.ActionID == actionID {
			found = true
			assert.Equal(t, []string{"own-documents"}, m.Filters)
		}
	}
	assert.True(t, found, "saved mapping should be retrievable")
}

// TestStorePermissionRoundTrip tests permission row persistence with
// assignment replacement against a real database.
func TestStorePermissionRoundTrip(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	store, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	targetID := UniqueID("doc")
	row := &EntityPermission{
		TargetID:           targetID,
		InheritFromParent:  true,
		InheritFromLibrary: true,
		Assignments: []*AuthorityRoleAssignment{
			{Authority: "alice", Role: "editor"},
			{Authority: "bob", Role: "viewer"},
		},
	}
	require.NoError(t, store.Save(ctx, row))
	require.NotEmpty(t, row.ID)

	loaded, err := store.LoadWithAssignments(ctx, targetID)
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Len(t, loaded.Assignments, 2)
	assert.True(t, loaded.InheritFromParent)

	// Saving again replaces the assignment set wholesale.
	loaded.InheritFromParent = false
	loaded.Assignments = []*AuthorityRoleAssignment{
		{Authority: "carol", Role: "manager"},
	}
	require.NoError(t, store.Save(ctx, loaded))

	reloaded, err := store.LoadWithAssignments(ctx, targetID)
	require.NoError(t, err)
	require.NotNil(t, reloaded)
	require.Len(t, reloaded.Assignments, 1)
	assert.Equal(t, "carol", reloaded.Assignments[0].Authority)
	assert.False(t, reloaded.InheritFromParent)

	// Load without relation skips assignments.
	bare, err := store.Load(ctx, targetID)
	require.NoError(t, err)
	require.NotNil(t, bare)
	assert.Empty(t, bare.Assignments)

	// Unknown target resolves to no row, not an error.
	missing, err := store.Load(ctx, UniqueID("missing"))
	require.NoError(t, err)
	assert.Nil(t, missing)
}

// TestStoreDescendants tests the recursive parent walk against a real database.
func TestStoreDescendants(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	store, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	rootID := UniqueID("folder")
	childID := UniqueID("doc")
	grandchildID := UniqueID("doc")
	unrelatedID := UniqueID("doc")

	for _, row := range []*EntityPermission{
		{TargetID: rootID, InheritFromParent: true, InheritFromLibrary: true},
		{TargetID: childID, ParentID: rootID, InheritFromParent: true, InheritFromLibrary: true},
		{TargetID: grandchildID, ParentID: childID, InheritFromParent: true, InheritFromLibrary: true},
		{TargetID: unrelatedID, InheritFromParent: true, InheritFromLibrary: true},
	} {
		require.NoError(t, store.Save(ctx, row))
	}

	ids, err := store.Descendants(ctx, rootID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{rootID, childID, grandchildID}, ids)
}

// TestStoreAssignmentsForAuthority tests the cleanup lookup against a real
// database.
func TestStoreAssignmentsForAuthority(t *testing.T) {
	if !RequireDatabase(t) {
		return
	}

	ctx := context.Background()
	store, err := SetupTestDatabase(ctx)
	if err != nil {
		t.Fatalf("Failed to setup test database: %v", err)
	}

	authority := UniqueID("user")
	first := &EntityPermission{
		TargetID:           UniqueID("doc"),
		InheritFromParent:  true,
		InheritFromLibrary: true,
		Assignments:        []*AuthorityRoleAssignment{{Authority: authority, Role: "editor"}},
	}
	second := &EntityPermission{
		TargetID:           UniqueID("doc"),
		InheritFromParent:  true,
		InheritFromLibrary: true,
		Assignments:        []*AuthorityRoleAssignment{{Authority: authority, Role: "viewer"}},
	}
	require.NoError(t, store.Save(ctx, first))
	require.NoError(t, store.Save(ctx, second))

	assignments, err := store.AssignmentsForAuthority(ctx, authority)
	require.NoError(t, err)
	require.Len(t, assignments, 2)

	require.NoError(t, store.DeleteAssignments(ctx, first.ID))
	assignments, err = store.AssignmentsForAuthority(ctx, authority)
	require.NoError(t, err)
	assert.Len(t, assignments, 1)
}
