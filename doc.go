// Package permkit provides a role-based authorization engine for hierarchical
// resources.
//
// PermKit keeps a catalog of roles, actions, and their mappings in the
// database, resolves them into immutable cached Role aggregates, and manages
// per-resource permission state: direct role assignments plus inheritance
// from a parent chain and an owning library.
//
// # Core Concepts
//
// Role: a named capability level ("viewer", "editor", "manager") defined in
// the catalog. Roles carry an ordering and read/write markers and are never
// physically deleted, only disabled.
//
// Action: a single permissible operation ("read", "document.lock"). Which
// actions a role allows is driven entirely by role/action mapping rows.
//
// Assignment: a (resource, authority, role) triple. An authority (user or
// group) holds at most one role per resource; the effective role of an
// authority is layered from the resource's library, its parent chain, and its
// own special assignments, with the most specific layer winning.
//
// Change-set: permission edits are expressed as atomic changes (add/remove an
// assignment, toggle inheritance) computed as a pure diff between the current
// persisted state and a requested state, then applied in one transaction.
//
// # Key Features
//
//   - Catalog-driven: roles and actions live in the database, not in code
//   - Cached resolution: the Registry serves immutable Role aggregates and
//     invalidates on catalog-change signals
//   - Guaranteed read: readable roles always expose the "read" action
//   - Hierarchical permissions: parent and library inheritance with
//     manager-only fallbacks when inheritance is switched off
//   - Root-manager guard: a root resource can never lose its last manager
//   - Change events: assignment and inheritance deltas published after commit
//   - DBKit integration: uses your existing database connection
//
// # Basic Usage
//
//	// 1. Create the store and run migrations
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := permkit.NewStore(db)
//	db.Migrate(ctx, permkit.NewMigrationStore(store).Migrations())
//
//	// 2. Seed the catalog
//	management := permkit.NewManagement(store, notifier, log)
//	management.SaveRoles(ctx, []permkit.RoleDefinition{
//	    {ID: "viewer", Order: 10, CanRead: true, Enabled: true},
//	    {ID: "editor", Order: 20, CanRead: true, CanWrite: true, Enabled: true},
//	    {ID: "manager", Order: 90, CanRead: true, CanWrite: true, Enabled: true},
//	})
//	management.UpdateRoleActionMappings(ctx, []permkit.MappingChange{
//	    {RoleID: "editor", ActionID: "document.edit", Enabled: true},
//	})
//
//	// 3. Resolve roles through the registry
//	registry := permkit.NewRegistry(management, labels, log)
//	role, ok, _ := registry.Resolve(ctx, "editor")
//	if ok && role.Allows("document.edit") {
//	    // editors can edit documents
//	}
//
//	// 4. Edit permissions through change-sets
//	changes := permkit.NewChangeSet().
//	    AddRoleAssignment("alice", "editor").
//	    InheritFromParent(true).
//	    Build()
//	service := permkit.NewPermissionService(store, hierarchy, notifier, "manager", log)
//	service.SetPermissions(ctx, permkit.NewResourceRef(documentID), changes)
//
//	// 5. Check access
//	resolver := permkit.NewAssignmentResolver(store, hierarchy, "manager", log)
//	checker := permkit.NewChecker("alice", resolver, registry)
//	if checker.Can(ctx, permkit.NewResourceRef(documentID), "document.edit") {
//	    // alice can edit this document
//	}
//
// # Middleware Usage
//
//	mw := permkit.NewMiddleware(resolver, registry)
//
//	mux.Handle("GET /documents/{id}", mw.RequireRead()(readHandler))
//	mux.Handle("DELETE /documents/{id}", mw.RequireAction("delete")(deleteHandler))
//	mux.Handle("POST /documents/{id}/permissions", mw.RequireManager()(editHandler))
//
// # Change Notifications
//
// Catalog and permission-model changes are published through a ChangeNotifier
// after the owning transaction commits. The in-process notifier fans out to
// local subscribers; the Redis notifier broadcasts across instances so every
// registry cache invalidates:
//
//	notifier := permkit.NewRedisNotifier(redisClient, "", log)
//	go notifier.Listen(ctx, registry.HandleEvent)
package permkit
