package permkit

import (
	"context"

	"github.com/uptrace/bun"

	"github.com/fernandezvara/dbkit"
)

// ============================================================================
// SQL-BACKED STORES
// ============================================================================

// Store is the bun/dbkit-backed implementation of CatalogStore and
// EntityPermissionStore.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping to provide
// detailed context about failed operations. Errors include operation names,
// database context, and preserve original error types for classification.
//
// Example error handling:
//
//	err := store.SaveRole(ctx, &role)
//	if err != nil {
//	    if dbkit.IsDuplicate(err) {
//	        // Handle duplicate definition
//	    }
//
//	    var dbErr *dbkit.Error
//	    if errors.As(err, &dbErr) {
//	        fmt.Printf("Operation: %s, Table: %s\n", dbErr.Operation, dbErr.Table)
//	    }
//	}
type Store struct {
	db dbkit.IDB
}

// NewStore creates a Store on top of a dbkit database handle.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := permkit.NewStore(db)
func NewStore(db dbkit.IDB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying database handle, mainly for extensions such as
// HealthStore and for tests.
func (s *Store) DB() dbkit.IDB {
	return s.db
}

// ============================================================================
// CATALOG
// ============================================================================

// GetRoles returns role definitions by id, or every definition when no ids
// are given. Unknown ids are simply absent from the result. Rows come back in
// definition order with id as the tie-breaker, so equal positions read the
// same on every call.
func (s *Store) GetRoles(ctx context.Context, ids ...string) ([]RoleDefinition, error) {
	var roles []RoleDefinition
	q := s.db.NewSelect().Model(&roles).Order("sort_order ASC", "id ASC")
	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	}
	err := dbkit.WithErr1(q.Scan(ctx), "GetRoles").Err()
	if err != nil {
		return nil, err
	}
	return roles, nil
}

// GetActions returns action definitions by id, or every definition when no
// ids are given.
func (s *Store) GetActions(ctx context.Context, ids ...string) ([]ActionDefinition, error) {
	var actions []ActionDefinition
	q := s.db.NewSelect().Model(&actions).Order("id ASC")
	if len(ids) > 0 {
		q = q.Where("id IN (?)", bun.In(ids))
	}
	err := dbkit.WithErr1(q.Scan(ctx), "GetActions").Err()
	if err != nil {
		return nil, err
	}
	return actions, nil
}

// GetRoleActionMappings returns every role/action mapping row.
func (s *Store) GetRoleActionMappings(ctx context.Context) ([]RoleActionMapping, error) {
	var mappings []RoleActionMapping
	err := dbkit.WithErr1(s.db.NewSelect().Model(&mappings).Order("role_id ASC", "action_id ASC").Scan(ctx), "GetRoleActionMappings").Err()
	if err != nil {
		return nil, err
	}
	return mappings, nil
}

// SaveRole upserts a role definition by id.
func (s *Store) SaveRole(ctx context.Context, role *RoleDefinition) error {
	result, err := s.db.NewInsert().Model(role).
		On("CONFLICT (id) DO UPDATE").
		Set("sort_order = EXCLUDED.sort_order").
		Set("can_read = EXCLUDED.can_read").
		Set("can_write = EXCLUDED.can_write").
		Set("internal = EXCLUDED.internal").
		Set("user_defined = EXCLUDED.user_defined").
		Set("enabled = EXCLUDED.enabled").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "SaveRole").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to save role definition").WithRole(role.ID)
	}
	return nil
}

// SaveAction upserts an action definition by id.
func (s *Store) SaveAction(ctx context.Context, action *ActionDefinition) error {
	result, err := s.db.NewInsert().Model(action).
		On("CONFLICT (id) DO UPDATE").
		Set("action_type = EXCLUDED.action_type").
		Set("enabled = EXCLUDED.enabled").
		Set("immediate = EXCLUDED.immediate").
		Set("visible = EXCLUDED.visible").
		Set("user_defined = EXCLUDED.user_defined").
		Set("icon_path = EXCLUDED.icon_path").
		Set("updated_at = current_timestamp").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "SaveAction").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to save action definition").WithAction(action.ID)
	}
	return nil
}

// SaveMapping upserts a role/action mapping by its (role, action) pair.
func (s *Store) SaveMapping(ctx context.Context, mapping *RoleActionMapping) error {
	result, err := s.db.NewInsert().Model(mapping).
		On("CONFLICT (role_id, action_id) DO UPDATE").
		Set("enabled = EXCLUDED.enabled").
		Set("filters = EXCLUDED.filters").
		Exec(ctx)
	err = dbkit.WithErr(result, err, "SaveMapping").Err()
	if err != nil {
		return NewError(ErrDatabaseError, "failed to save role/action mapping").
			WithRole(mapping.RoleID).
			WithAction(mapping.ActionID)
	}
	return nil
}

// SaveRoles upserts a batch of role definitions in one transaction, so a
// failure anywhere in the batch leaves no row of it behind.
func (s *Store) SaveRoles(ctx context.Context, roles []RoleDefinition) error {
	return s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		tx := s.WithTx(db)
		for i := range roles {
			if err := tx.SaveRole(ctx, &roles[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveActions upserts a batch of action definitions in one transaction.
func (s *Store) SaveActions(ctx context.Context, actions []ActionDefinition) error {
	return s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		tx := s.WithTx(db)
		for i := range actions {
			if err := tx.SaveAction(ctx, &actions[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveMappings upserts a batch of role/action mappings in one transaction.
func (s *Store) SaveMappings(ctx context.Context, mappings []RoleActionMapping) error {
	return s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		tx := s.WithTx(db)
		for i := range mappings {
			if err := tx.SaveMapping(ctx, &mappings[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteAllMappings removes every role/action mapping row.
func (s *Store) DeleteAllMappings(ctx context.Context) error {
	result, err := s.db.NewDelete().Table("role_action_mappings").Where("1 = 1").Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteAllMappings").Err()
}

// CountRoles returns the number of role definitions in the catalog.
func (s *Store) CountRoles(ctx context.Context) (int, error) {
	return dbkit.Count[RoleDefinition](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q
	})
}

// RoleExists reports whether a role definition exists, enabled or not.
// This is cheaper than GetRoles when only existence matters.
func (s *Store) RoleExists(ctx context.Context, id string) bool {
	exists, err := dbkit.Exists[RoleDefinition](ctx, s.db, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("id = ?", id)
	})
	if err != nil {
		return false
	}
	return exists
}

// ============================================================================
// ENTITY PERMISSIONS
// ============================================================================

// Load returns the permission row of a resource without its assignments, or
// (nil, nil) when the resource has none.
func (s *Store) Load(ctx context.Context, targetID string) (*EntityPermission, error) {
	permission := new(EntityPermission)
	err := dbkit.WithErr1(s.db.NewSelect().Model(permission).Where("target_id = ?", targetID).Scan(ctx), "LoadPermission").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return permission, nil
}

// LoadWithAssignments returns the permission row of a resource together with
// its role assignments, or (nil, nil) when the resource has none.
func (s *Store) LoadWithAssignments(ctx context.Context, targetID string) (*EntityPermission, error) {
	permission := new(EntityPermission)
	err := dbkit.WithErr1(s.db.NewSelect().Model(permission).Relation("Assignments").Where("target_id = ?", targetID).Scan(ctx), "LoadPermissionWithAssignments").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return permission, nil
}

// Save persists a permission row and its assignments as one unit. Assignments
// are replaced wholesale: the ones present on the value survive, all others
// are deleted.
func (s *Store) Save(ctx context.Context, permission *EntityPermission) error {
	return s.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
		result, err := db.NewInsert().Model(permission).
			On("CONFLICT (target_id) DO UPDATE").
			Set("inherit_from_parent = EXCLUDED.inherit_from_parent").
			Set("inherit_from_library = EXCLUDED.inherit_from_library").
			Set("is_library = EXCLUDED.is_library").
			Set("parent_id = EXCLUDED.parent_id").
			Set("library_id = EXCLUDED.library_id").
			Set("updated_at = current_timestamp").
			Returning("id").
			Exec(ctx)
		err = dbkit.WithErr(result, err, "SavePermission").Err()
		if err != nil {
			return NewError(ErrDatabaseError, "failed to save permission row").WithTarget(permission.TargetID)
		}

		result, err = db.NewDelete().Table("authority_role_assignments").Where("permission_id = ?", permission.ID).Exec(ctx)
		if err := dbkit.WithErr(result, err, "ReplaceAssignments").Err(); err != nil {
			return err
		}

		for _, assignment := range permission.Assignments {
			assignment.PermissionID = permission.ID
			result, err = db.NewInsert().Model(assignment).Exec(ctx)
			if err := dbkit.WithErr(result, err, "InsertAssignment").Err(); err != nil {
				return NewError(ErrDatabaseError, "failed to save role assignment").
					WithTarget(permission.TargetID).
					WithAuthority(assignment.Authority)
			}
		}
		return nil
	})
}

// DeleteAssignments removes every role assignment of a permission row.
func (s *Store) DeleteAssignments(ctx context.Context, permissionID string) error {
	result, err := s.db.NewDelete().Table("authority_role_assignments").Where("permission_id = ?", permissionID).Exec(ctx)
	return dbkit.WithErr(result, err, "DeleteAssignments").Err()
}

// Descendants returns the target ids of every resource underneath the given
// one, itself included, by walking parent_id links.
func (s *Store) Descendants(ctx context.Context, targetID string) ([]string, error) {
	var ids []string
	err := dbkit.WithErr1(s.db.NewRaw(`
        WITH RECURSIVE descendants AS (
            SELECT target_id FROM entity_permissions WHERE target_id = ?
            UNION
            SELECT ep.target_id FROM entity_permissions ep
            JOIN descendants d ON ep.parent_id = d.target_id
        )
        SELECT target_id FROM descendants`, targetID).Scan(ctx, &ids), "Descendants").Err()
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// AssignmentsForAuthority returns every permission target where the authority
// holds a direct assignment. Useful for cleanup when an authority is removed.
func (s *Store) AssignmentsForAuthority(ctx context.Context, authority string) ([]AuthorityRoleAssignment, error) {
	var assignments []AuthorityRoleAssignment
	err := dbkit.WithErr1(s.db.NewSelect().Model(&assignments).Where("authority = ?", authority).Scan(ctx), "AssignmentsForAuthority").Err()
	if err != nil {
		return nil, err
	}
	return assignments, nil
}
