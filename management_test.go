package permkit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestManagementSaveRolesCreates validates that new definitions are stored
// and a single catalog signal is published per batch.
func TestManagementSaveRolesCreates(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	notifier := &RecordingNotifier{}
	management := NewManagement(store, notifier, nil)

	err := management.SaveRoles(ctx, []RoleDefinition{
		{ID: "viewer", Order: 10, CanRead: true, Enabled: true},
		{ID: "editor", Order: 20, CanRead: true, CanWrite: true, Enabled: true},
	})
	require.NoError(t, err)

	role, ok, err := management.GetRole(ctx, "editor")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, role.CanWrite)

	events := notifier.Events()
	require.Len(t, events, 1)
	change, ok := events[0].(CatalogChangedEvent)
	require.True(t, ok)
	assert.Equal(t, CatalogChangeRoles, change.Kind)
}

// TestManagementSaveRolesMerges validates that existing rows keep their
// store-side fields across a save.
func TestManagementSaveRolesMerges(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	management := NewManagement(store, nil, nil)

	created := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveRole(ctx, &RoleDefinition{ID: "editor", Order: 20, Enabled: true, CreatedAt: created}))

	err := management.SaveRoles(ctx, []RoleDefinition{{ID: "editor", Order: 25, Enabled: false}})
	require.NoError(t, err)

	role, ok, err := management.GetRole(ctx, "editor")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 25, role.Order)
	assert.False(t, role.Enabled)
	assert.Equal(t, created, role.CreatedAt)
}

// TestManagementSaveRolesBlankID validates that a blank id anywhere in the
// batch rejects the whole call.
func TestManagementSaveRolesBlankID(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	notifier := &RecordingNotifier{}
	management := NewManagement(store, notifier, nil)

	err := management.SaveRoles(ctx, []RoleDefinition{
		{ID: "viewer", Enabled: true},
		{},
	})
	assert.True(t, IsInvalidDefinition(err))
	assert.Empty(t, notifier.Events())

	// Nothing was written before the validation failed.
	roles, err := store.GetRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
}

// TestManagementSaveRolesEmptyBatch validates that an empty batch is a silent
// no-op without a catalog signal.
func TestManagementSaveRolesEmptyBatch(t *testing.T) {
	notifier := &RecordingNotifier{}
	management := NewManagement(NewMemoryCatalogStore(), notifier, nil)

	require.NoError(t, management.SaveRoles(context.Background(), nil))
	assert.Empty(t, notifier.Events())
}

// TestManagementSaveActions validates action saves and their catalog signal.
func TestManagementSaveActions(t *testing.T) {
	ctx := context.Background()
	notifier := &RecordingNotifier{}
	management := NewManagement(NewMemoryCatalogStore(), notifier, nil)

	err := management.SaveActions(ctx, []ActionDefinition{
		{ID: "document.edit", Enabled: true, Visible: true},
		{ID: "document.delete", Enabled: true},
	})
	require.NoError(t, err)

	action, ok, err := management.GetAction(ctx, "document.delete")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, action.Enabled)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, CatalogChangeActions, events[0].(CatalogChangedEvent).Kind)
}

// TestManagementUpdateMappingsBatch validates batch mapping updates with a
// single post-batch signal.
func TestManagementUpdateMappingsBatch(t *testing.T) {
	ctx := context.Background()
	notifier := &RecordingNotifier{}
	management := NewManagement(NewMemoryCatalogStore(), notifier, nil)

	err := management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: true, Filters: []string{"CREATEDBY"}},
		{RoleID: "editor", ActionID: "document.delete", Enabled: false},
		{RoleID: "viewer", ActionID: "read", Enabled: true},
	})
	require.NoError(t, err)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, CatalogChangeMappings, events[0].(CatalogChangedEvent).Kind)
}

// TestManagementUpdateMappingsFailedBatchIsInvisible validates that a failing
// mapping batch leaves no row visible and publishes no signal.
func TestManagementUpdateMappingsFailedBatchIsInvisible(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	notifier := &RecordingNotifier{}
	management := NewManagement(store, notifier, nil)

	store.FailNextWrite = errors.New("write failed")
	err := management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: true},
		{RoleID: "editor", ActionID: "document.delete", Enabled: true},
	})
	require.Error(t, err)

	mappings, err := store.GetRoleActionMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)
	assert.Empty(t, notifier.Events())
}

// TestManagementSaveRolesFailedBatchIsInvisible validates the same
// all-or-nothing behavior for definition batches.
func TestManagementSaveRolesFailedBatchIsInvisible(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	notifier := &RecordingNotifier{}
	management := NewManagement(store, notifier, nil)

	store.FailNextWrite = errors.New("write failed")
	err := management.SaveRoles(ctx, []RoleDefinition{
		{ID: "viewer", Enabled: true},
		{ID: "editor", Enabled: true},
	})
	require.Error(t, err)

	roles, err := store.GetRoles(ctx)
	require.NoError(t, err)
	assert.Empty(t, roles)
	assert.Empty(t, notifier.Events())
}

// TestManagementUpdateMappingsReplaces validates that a later change fully
// replaces the enabled flag and filters of the pair.
func TestManagementUpdateMappingsReplaces(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	management := NewManagement(store, nil, nil)

	require.NoError(t, management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: true, Filters: []string{"CREATEDBY"}},
	}))
	require.NoError(t, management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: false},
	}))

	mappings, err := store.GetRoleActionMappings(ctx)
	require.NoError(t, err)
	require.Len(t, mappings, 1)
	assert.False(t, mappings[0].Enabled)
	assert.Empty(t, mappings[0].Filters)
}

// TestManagementUpdateMappingsNoOp validates that nil and empty inputs do
// nothing, silently.
func TestManagementUpdateMappingsNoOp(t *testing.T) {
	notifier := &RecordingNotifier{}
	management := NewManagement(NewMemoryCatalogStore(), notifier, nil)

	require.NoError(t, management.UpdateRoleActionMappings(context.Background(), nil))
	require.NoError(t, management.UpdateRoleActionMappings(context.Background(), []MappingChange{}))
	assert.Empty(t, notifier.Events())
}

// TestManagementUpdateMappingsBlankIDs validates that a change without a role
// or action id rejects the call.
func TestManagementUpdateMappingsBlankIDs(t *testing.T) {
	management := NewManagement(NewMemoryCatalogStore(), nil, nil)

	err := management.UpdateRoleActionMappings(context.Background(), []MappingChange{
		{RoleID: "", ActionID: "document.edit"},
	})
	assert.True(t, IsInvalidDefinition(err))

	err = management.UpdateRoleActionMappings(context.Background(), []MappingChange{
		{RoleID: "editor", ActionID: ""},
	})
	assert.True(t, IsInvalidDefinition(err))
}

// TestManagementDeleteAllMappings validates the full mapping wipe and its
// signal.
func TestManagementDeleteAllMappings(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryCatalogStore()
	notifier := &RecordingNotifier{}
	management := NewManagement(store, notifier, nil)

	require.NoError(t, management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: true},
	}))
	notifier.Reset()

	require.NoError(t, management.DeleteAllMappings(ctx))

	mappings, err := store.GetRoleActionMappings(ctx)
	require.NoError(t, err)
	assert.Empty(t, mappings)

	events := notifier.Events()
	require.Len(t, events, 1)
	assert.Equal(t, CatalogChangeMappings, events[0].(CatalogChangedEvent).Kind)
}

// TestManagementRoleActionModel validates the whole-catalog snapshot builder.
func TestManagementRoleActionModel(t *testing.T) {
	ctx := context.Background()
	management := NewManagement(NewMemoryCatalogStore(), nil, nil)

	require.NoError(t, management.SaveRoles(ctx, []RoleDefinition{{ID: "editor", Enabled: true}}))
	require.NoError(t, management.SaveActions(ctx, []ActionDefinition{{ID: "document.edit", Enabled: true}}))
	require.NoError(t, management.UpdateRoleActionMappings(ctx, []MappingChange{
		{RoleID: "editor", ActionID: "document.edit", Enabled: true},
	}))

	model, err := management.RoleActionModel(ctx)
	require.NoError(t, err)

	assigned := model.ActionsForRole("editor")
	require.Len(t, assigned, 1)
	assert.Equal(t, "document.edit", assigned[0].Action.ID)
}

// TestManagementGetRoleBlankID validates that a blank lookup id yields an
// empty result without error.
func TestManagementGetRoleBlankID(t *testing.T) {
	management := NewManagement(NewMemoryCatalogStore(), nil, nil)

	_, ok, err := management.GetRole(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, ok)

	_, ok, err = management.GetAction(context.Background(), "")
	assert.NoError(t, err)
	assert.False(t, ok)
}
