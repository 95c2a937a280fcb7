package permkit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Management reconciles requested role/action definitions against the catalog
// store and exposes whole-catalog snapshots as a RoleActionModel.
//
// Saves are merge-or-create: an existing row keeps its store-side fields
// (surrogate keys, timestamps) and only the modeled fields are overwritten,
// which makes repeated saves of the same definition idempotent.
type Management struct {
	store    CatalogStore
	notifier ChangeNotifier
	log      logrus.FieldLogger
}

// NewManagement creates a Management service over a catalog store. The
// notifier may be nil when no other party needs change signals.
func NewManagement(store CatalogStore, notifier ChangeNotifier, log logrus.FieldLogger) *Management {
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Management{
		store:    store,
		notifier: notifier,
		log:      log,
	}
}

// SaveRoles creates or updates the given role definitions. Lookups are scoped
// to the ids present in the batch, so the whole catalog is never loaded.
// A blank id anywhere in the batch rejects the whole call.
func (m *Management) SaveRoles(ctx context.Context, roles []RoleDefinition) error {
	if len(roles) == 0 {
		return nil
	}

	ids := make([]string, 0, len(roles))
	for _, role := range roles {
		if role.ID == "" {
			return NewError(ErrInvalidDefinition, "role definition without id")
		}
		ids = append(ids, role.ID)
	}

	existing, err := m.store.GetRoles(ctx, ids...)
	if err != nil {
		return err
	}
	byID := make(map[string]RoleDefinition, len(existing))
	for _, role := range existing {
		byID[role.ID] = role
	}

	merged := make([]RoleDefinition, 0, len(roles))
	for _, role := range roles {
		if current, ok := byID[role.ID]; ok {
			role = mergeRole(current, role)
		}
		merged = append(merged, role)
	}
	if err := m.store.SaveRoles(ctx, merged); err != nil {
		return err
	}

	m.log.WithField("count", len(roles)).Debug("saved role definitions")
	m.notifier.Publish(ctx, NewCatalogChangedEvent(CatalogChangeRoles))
	return nil
}

// SaveActions creates or updates the given action definitions with the same
// merge-or-create semantics as SaveRoles.
func (m *Management) SaveActions(ctx context.Context, actions []ActionDefinition) error {
	if len(actions) == 0 {
		return nil
	}

	ids := make([]string, 0, len(actions))
	for _, action := range actions {
		if action.ID == "" {
			return NewError(ErrInvalidDefinition, "action definition without id")
		}
		ids = append(ids, action.ID)
	}

	existing, err := m.store.GetActions(ctx, ids...)
	if err != nil {
		return err
	}
	byID := make(map[string]ActionDefinition, len(existing))
	for _, action := range existing {
		byID[action.ID] = action
	}

	merged := make([]ActionDefinition, 0, len(actions))
	for _, action := range actions {
		if current, ok := byID[action.ID]; ok {
			action = mergeAction(current, action)
		}
		merged = append(merged, action)
	}
	if err := m.store.SaveActions(ctx, merged); err != nil {
		return err
	}

	m.log.WithField("count", len(actions)).Debug("saved action definitions")
	m.notifier.Publish(ctx, NewCatalogChangedEvent(CatalogChangeActions))
	return nil
}

// UpdateRoleActionMappings applies a batch of mapping changes. Each change
// finds or creates the (role, action) row and fully replaces its enabled flag
// and filters. Nil or empty input is a silent no-op. The batch is written as
// one unit: a failure leaves no row of it visible. The "mappings changed"
// signal is published exactly once per batch, after the write commits.
func (m *Management) UpdateRoleActionMappings(ctx context.Context, changes []MappingChange) error {
	if len(changes) == 0 {
		return nil
	}

	mappings := make([]RoleActionMapping, 0, len(changes))
	for _, change := range changes {
		if change.RoleID == "" || change.ActionID == "" {
			return NewError(ErrInvalidDefinition, "mapping change without role or action id").
				WithRole(change.RoleID).
				WithAction(change.ActionID)
		}
		mappings = append(mappings, RoleActionMapping{
			RoleID:   change.RoleID,
			ActionID: change.ActionID,
			Enabled:  change.Enabled,
			Filters:  append([]string(nil), change.Filters...),
		})
	}
	if err := m.store.SaveMappings(ctx, mappings); err != nil {
		return err
	}

	m.log.WithField("count", len(changes)).Debug("updated role action mappings")
	m.notifier.Publish(ctx, NewCatalogChangedEvent(CatalogChangeMappings))
	return nil
}

// DeleteAllMappings removes every mapping row and signals the change.
// Definitions themselves are untouched.
func (m *Management) DeleteAllMappings(ctx context.Context) error {
	if err := m.store.DeleteAllMappings(ctx); err != nil {
		return err
	}
	m.notifier.Publish(ctx, NewCatalogChangedEvent(CatalogChangeMappings))
	return nil
}

// RoleActionModel builds a fresh model from the full catalog. This is a full
// scan of the store and exists as the rebuild path behind the registry cache;
// callers must not invoke it per request.
func (m *Management) RoleActionModel(ctx context.Context) (*RoleActionModel, error) {
	roles, err := m.store.GetRoles(ctx)
	if err != nil {
		return nil, err
	}
	actions, err := m.store.GetActions(ctx)
	if err != nil {
		return nil, err
	}
	mappings, err := m.store.GetRoleActionMappings(ctx)
	if err != nil {
		return nil, err
	}

	model := NewRoleActionModel()
	for _, role := range roles {
		model.AddRole(role)
	}
	for _, action := range actions {
		model.AddAction(action)
	}
	for _, mapping := range mappings {
		model.AddMapping(mapping.RoleID, mapping.ActionID, mapping.Enabled, mapping.Filters)
	}
	return model, nil
}

// Roles returns every role definition in store order.
func (m *Management) Roles(ctx context.Context) ([]RoleDefinition, error) {
	return m.store.GetRoles(ctx)
}

// GetRole looks up a single role definition. A blank id yields an empty
// result without error; id validity is a precondition, not an error condition.
func (m *Management) GetRole(ctx context.Context, id string) (RoleDefinition, bool, error) {
	if id == "" {
		return RoleDefinition{}, false, nil
	}
	roles, err := m.store.GetRoles(ctx, id)
	if err != nil {
		return RoleDefinition{}, false, err
	}
	if len(roles) == 0 {
		return RoleDefinition{}, false, nil
	}
	return roles[0], true, nil
}

// GetAction looks up a single action definition with GetRole semantics.
func (m *Management) GetAction(ctx context.Context, id string) (ActionDefinition, bool, error) {
	if id == "" {
		return ActionDefinition{}, false, nil
	}
	actions, err := m.store.GetActions(ctx, id)
	if err != nil {
		return ActionDefinition{}, false, err
	}
	if len(actions) == 0 {
		return ActionDefinition{}, false, nil
	}
	return actions[0], true, nil
}

// mergeRole overwrites the modeled fields of current with the requested
// values, preserving store-side fields such as creation timestamps.
func mergeRole(current, requested RoleDefinition) RoleDefinition {
	current.Order = requested.Order
	current.CanRead = requested.CanRead
	current.CanWrite = requested.CanWrite
	current.Internal = requested.Internal
	current.UserDefined = requested.UserDefined
	current.Enabled = requested.Enabled
	return current
}

func mergeAction(current, requested ActionDefinition) ActionDefinition {
	current.ActionType = requested.ActionType
	current.Enabled = requested.Enabled
	current.Immediate = requested.Immediate
	current.Visible = requested.Visible
	current.UserDefined = requested.UserDefined
	current.IconPath = requested.IconPath
	return current
}
