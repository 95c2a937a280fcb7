package permkit

// RoleActionModel is a pure, side-effect-free combination of catalog rows into
// a queryable structure. It is built from a whole-catalog snapshot and answers
// which actions are assigned to a role, with which filters, in what order.
//
// The model enforces nothing: a mapping referencing an unknown role or action
// is stored but never surfaces. Catalog consistency is the caller's concern.
type RoleActionModel struct {
	roles   map[string]RoleDefinition
	actions map[string]ActionDefinition

	// mappings per role, in insertion order. Presentation order is
	// caller-controlled, so no sorting happens here.
	mappings map[string][]RoleActionMapping
}

// AssignedAction is one resolved entry of a role's action list.
type AssignedAction struct {
	Action  ActionDefinition
	Enabled bool
	Filters []string
}

// NewRoleActionModel creates an empty model.
func NewRoleActionModel() *RoleActionModel {
	return &RoleActionModel{
		roles:    make(map[string]RoleDefinition),
		actions:  make(map[string]ActionDefinition),
		mappings: make(map[string][]RoleActionMapping),
	}
}

// AddRole registers a role definition. Adding the same id again replaces the
// previous definition.
func (m *RoleActionModel) AddRole(role RoleDefinition) {
	if role.ID == "" {
		return
	}
	m.roles[role.ID] = role
}

// AddAction registers an action definition.
func (m *RoleActionModel) AddAction(action ActionDefinition) {
	if action.ID == "" {
		return
	}
	m.actions[action.ID] = action
}

// AddMapping assigns an action to a role. Roles and actions should be added
// before the mappings that reference them; a mapping referencing an unknown id
// is kept anyway and simply never surfaces through ActionsForRole.
func (m *RoleActionModel) AddMapping(roleID, actionID string, enabled bool, filters []string) {
	if roleID == "" || actionID == "" {
		return
	}
	m.mappings[roleID] = append(m.mappings[roleID], RoleActionMapping{
		RoleID:   roleID,
		ActionID: actionID,
		Enabled:  enabled,
		Filters:  append([]string(nil), filters...),
	})
}

// Role returns the role definition for an id.
func (m *RoleActionModel) Role(id string) (RoleDefinition, bool) {
	role, ok := m.roles[id]
	return role, ok
}

// Action returns the action definition for an id.
func (m *RoleActionModel) Action(id string) (ActionDefinition, bool) {
	action, ok := m.actions[id]
	return action, ok
}

// Roles returns all role definitions in the model, in unspecified order.
func (m *RoleActionModel) Roles() []RoleDefinition {
	roles := make([]RoleDefinition, 0, len(m.roles))
	for _, role := range m.roles {
		roles = append(roles, role)
	}
	return roles
}

// ActionsForRole returns the role's assigned actions in insertion order.
// Mappings whose role or action id is not registered are skipped. An unknown
// role id yields an empty slice, never an error.
func (m *RoleActionModel) ActionsForRole(roleID string) []AssignedAction {
	if _, ok := m.roles[roleID]; !ok {
		return []AssignedAction{}
	}
	rows := m.mappings[roleID]
	assigned := make([]AssignedAction, 0, len(rows))
	for _, row := range rows {
		action, ok := m.actions[row.ActionID]
		if !ok {
			continue
		}
		assigned = append(assigned, AssignedAction{
			Action:  action,
			Enabled: row.Enabled,
			Filters: append([]string(nil), row.Filters...),
		})
	}
	return assigned
}
