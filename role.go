package permkit

// ActionRead is the reserved read action. Every readable role exposes it even
// without an explicit catalog mapping; the registry injects it on resolution.
const ActionRead = "read"

// Action is a single permissible operation as seen by the enforcement layer.
// Actions are immutable once constructed.
type Action struct {
	id         string
	actionType string
	immediate  bool
	visible    bool
	iconPath   string
	label      string
	filters    []string
}

// newAction seals an ActionDefinition with its filters and label.
func newAction(def ActionDefinition, filters []string, label string) Action {
	return Action{
		id:         def.ID,
		actionType: def.ActionType,
		immediate:  def.Immediate,
		visible:    def.Visible,
		iconPath:   def.IconPath,
		label:      label,
		filters:    append([]string(nil), filters...),
	}
}

// ID returns the action identifier.
func (a Action) ID() string {
	return a.id
}

// ActionType returns the classification tag of the action.
func (a Action) ActionType() string {
	return a.actionType
}

// Immediate reports whether the action executes without confirmation.
func (a Action) Immediate() bool {
	return a.immediate
}

// Visible reports whether the action is presented to end users.
func (a Action) Visible() bool {
	return a.visible
}

// IconPath returns the icon path, if any.
func (a Action) IconPath() string {
	return a.iconPath
}

// Label returns the display label resolved at construction time.
func (a Action) Label() string {
	return a.label
}

// Filters returns a copy of the filter-expression ids narrowing the action.
func (a Action) Filters() []string {
	return append([]string(nil), a.filters...)
}

// Role is a fully resolved, immutable bundle of permitted actions. Any catalog
// change requires rebuilding the whole Role; sealed instances are safe to
// share between goroutines without synchronization.
type Role struct {
	id      string
	order   int
	canRead bool
	actions []Action
	byID    map[string]int
}

// newRole seals a role with its ordered action list.
func newRole(def RoleDefinition, actions []Action) *Role {
	byID := make(map[string]int, len(actions))
	for i, action := range actions {
		byID[action.id] = i
	}
	return &Role{
		id:      def.ID,
		order:   def.Order,
		canRead: def.CanRead,
		actions: actions,
		byID:    byID,
	}
}

// ID returns the role identifier.
func (r *Role) ID() string {
	return r.id
}

// Order returns the presentation/precedence order of the role.
func (r *Role) Order() int {
	return r.order
}

// CanRead reports whether the role carries the read capability.
func (r *Role) CanRead() bool {
	return r.canRead
}

// Actions returns a copy of the role's ordered action list.
func (r *Role) Actions() []Action {
	return append([]Action(nil), r.actions...)
}

// Action returns the role's action with the given id.
func (r *Role) Action(id string) (Action, bool) {
	i, ok := r.byID[id]
	if !ok {
		return Action{}, false
	}
	return r.actions[i], true
}

// Allows reports whether the role exposes the given action id.
func (r *Role) Allows(actionID string) bool {
	_, ok := r.byID[actionID]
	return ok
}
