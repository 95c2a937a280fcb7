package permkit

import (
	"context"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Registry exposes fast Role lookups to the enforcement layer through a cache
// keyed by role identifier.
//
// Cache entries never expire on their own: catalog changes are rare relative
// to lookups, so invalidation is driven externally by catalog-change signals
// (see HandleEvent / InvalidateAll). A full clear is used instead of per-key
// eviction. Reads are lock-free beyond an RWMutex read lock; concurrent
// misses on the same key are collapsed to a single catalog reload by
// singleflight.
type Registry struct {
	management *Management
	labels     LabelResolver
	log        logrus.FieldLogger

	mu    sync.RWMutex
	roles map[string]*Role

	group singleflight.Group
}

// NewRegistry creates a registry over the given management service. The label
// resolver may be nil, in which case action ids double as labels.
func NewRegistry(management *Management, labels LabelResolver, log logrus.FieldLogger) *Registry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Registry{
		management: management,
		labels:     labels,
		log:        log,
		roles:      make(map[string]*Role),
	}
}

// Resolve returns the fully resolved, immutable Role for an identifier.
// A missing or disabled role definition resolves to (nil, false, nil): the
// identifier does not currently exist as an authorizable role, and callers
// must deny by default. Store failures propagate unchanged.
func (r *Registry) Resolve(ctx context.Context, roleID string) (*Role, bool, error) {
	if roleID == "" {
		return nil, false, nil
	}

	r.mu.RLock()
	role, ok := r.roles[roleID]
	r.mu.RUnlock()
	if ok {
		registryCacheHits.Inc()
		return role, true, nil
	}
	registryCacheMisses.Inc()

	value, err, _ := r.group.Do(roleID, func() (interface{}, error) {
		// Re-check under the group: a concurrent miss may have populated
		// the entry before this call was queued.
		r.mu.RLock()
		cached, ok := r.roles[roleID]
		r.mu.RUnlock()
		if ok {
			return cached, nil
		}

		built, err := r.build(ctx, roleID)
		if err != nil || built == nil {
			return built, err
		}

		r.mu.Lock()
		r.roles[roleID] = built
		r.mu.Unlock()
		return built, nil
	})
	if err != nil {
		return nil, false, err
	}
	role, _ = value.(*Role)
	if role == nil {
		return nil, false, nil
	}
	return role, true, nil
}

// build performs the cache-miss resolution: look up the definition, keep only
// mappings where both the mapping and the action are enabled, inject the
// reserved READ action for readable roles, and seal the result.
func (r *Registry) build(ctx context.Context, roleID string) (*Role, error) {
	registryRebuilds.Inc()

	def, ok, err := r.management.GetRole(ctx, roleID)
	if err != nil {
		return nil, err
	}
	if !ok || !def.Enabled {
		return nil, nil
	}

	model, err := r.management.RoleActionModel(ctx)
	if err != nil {
		return nil, err
	}

	var actions []Action
	hasRead := false
	for _, assigned := range model.ActionsForRole(roleID) {
		if !assigned.Enabled || !assigned.Action.Enabled {
			continue
		}
		if assigned.Action.ID == ActionRead {
			hasRead = true
		}
		actions = append(actions, newAction(assigned.Action, assigned.Filters, r.label(ctx, assigned.Action.ID)))
	}

	if def.CanRead && !hasRead {
		// Readable roles always expose read capability, independent of
		// catalog edits.
		read := ActionDefinition{
			ID:        ActionRead,
			Enabled:   true,
			Immediate: true,
			Visible:   true,
		}
		actions = append(actions, newAction(read, nil, r.label(ctx, ActionRead)))
	}

	return newRole(def, actions), nil
}

// Keys returns the identifiers of all enabled roles, ordered by definition
// order, then by store order for equal positions. Callers present roles to
// end users in this order.
func (r *Registry) Keys(ctx context.Context) ([]string, error) {
	roles, err := r.management.Roles(ctx)
	if err != nil {
		return nil, err
	}

	enabled := make([]RoleDefinition, 0, len(roles))
	for _, role := range roles {
		if role.Enabled {
			enabled = append(enabled, role)
		}
	}
	sort.SliceStable(enabled, func(i, j int) bool {
		return enabled[i].Order < enabled[j].Order
	})

	keys := make([]string, 0, len(enabled))
	for _, role := range enabled {
		keys = append(keys, role.ID)
	}
	return keys, nil
}

// InvalidateAll drops every cached role. The next Resolve per key rebuilds
// from the catalog.
func (r *Registry) InvalidateAll() {
	r.mu.Lock()
	r.roles = make(map[string]*Role)
	r.mu.Unlock()
	registryInvalidations.Inc()
	r.log.Debug("role registry invalidated")
}

// HandleEvent invalidates the cache on catalog changes. Wire it to a notifier
// subscription:
//
//	notifier.Subscribe(registry.HandleEvent)
func (r *Registry) HandleEvent(event Event) {
	if _, ok := event.(CatalogChangedEvent); ok {
		r.InvalidateAll()
	}
}

// Size returns the number of cached roles.
func (r *Registry) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roles)
}

func (r *Registry) label(ctx context.Context, id string) string {
	if r.labels == nil {
		return id
	}
	if label := r.labels.Label(ctx, id); label != "" {
		return label
	}
	return id
}

// RegistryRoleResolver adapts a Registry into a RoleNameResolver: a name
// resolves to itself when the registry knows an enabled role under that id.
// Disabled and unknown roles do not resolve, so change-set computations drop
// them.
type RegistryRoleResolver struct {
	Registry *Registry
}

// RoleIDByName reports the catalog id for a client-supplied role name.
func (rr RegistryRoleResolver) RoleIDByName(ctx context.Context, name string) (string, bool) {
	if name == "" {
		return "", false
	}
	_, ok, err := rr.Registry.Resolve(ctx, name)
	if err != nil || !ok {
		return "", false
	}
	return name, true
}
