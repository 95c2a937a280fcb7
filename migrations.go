package permkit

import (
	"github.com/fernandezvara/dbkit"
)

// MigrationStore provides migration management functionality as an extension
// to Store.
type MigrationStore struct {
	*Store
}

// NewMigrationStore creates a new migration store extension.
func NewMigrationStore(store *Store) *MigrationStore {
	return &MigrationStore{Store: store}
}

// Migrations returns all database migrations required by permkit.
// Use dbkit.Migrate(ctx, store.Migrations()) to run migrations.
// Use dbkit.MigrationStatus(ctx, store.Migrations()) to check status.
func (ms *MigrationStore) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "permkit-001",
			Description: "Create role_definitions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_definitions (
                    id TEXT PRIMARY KEY,
                    sort_order INTEGER NOT NULL DEFAULT 0,
                    can_read BOOLEAN NOT NULL DEFAULT false,
                    can_write BOOLEAN NOT NULL DEFAULT false,
                    internal BOOLEAN NOT NULL DEFAULT false,
                    user_defined BOOLEAN NOT NULL DEFAULT false,
                    enabled BOOLEAN NOT NULL DEFAULT true,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "permkit-002",
			Description: "Create action_definitions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS action_definitions (
                    id TEXT PRIMARY KEY,
                    action_type TEXT,
                    enabled BOOLEAN NOT NULL DEFAULT true,
                    immediate BOOLEAN NOT NULL DEFAULT false,
                    visible BOOLEAN NOT NULL DEFAULT true,
                    user_defined BOOLEAN NOT NULL DEFAULT false,
                    icon_path TEXT,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "permkit-003",
			Description: "Create role_action_mappings table",
			SQL: `
                CREATE TABLE IF NOT EXISTS role_action_mappings (
                    role_id TEXT NOT NULL,
                    action_id TEXT NOT NULL,
                    enabled BOOLEAN NOT NULL DEFAULT true,
                    filters TEXT[],
                    PRIMARY KEY (role_id, action_id)
                )`,
		},
		{
			ID:          "permkit-004",
			Description: "Create entity_permissions table",
			SQL: `
                CREATE TABLE IF NOT EXISTS entity_permissions (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    target_id TEXT NOT NULL UNIQUE,
                    inherit_from_parent BOOLEAN NOT NULL DEFAULT false,
                    inherit_from_library BOOLEAN NOT NULL DEFAULT false,
                    is_library BOOLEAN NOT NULL DEFAULT false,
                    parent_id TEXT,
                    library_id TEXT,
                    created_at TIMESTAMPTZ DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "permkit-005",
			Description: "Create authority_role_assignments table",
			SQL: `
                CREATE TABLE IF NOT EXISTS authority_role_assignments (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    permission_id UUID NOT NULL REFERENCES entity_permissions(id) ON DELETE CASCADE,
                    authority TEXT NOT NULL,
                    role TEXT NOT NULL,
                    UNIQUE (permission_id, authority)
                )`,
		},
		{
			ID:          "permkit-006",
			Description: "Create indexes for permission lookups",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_entity_permissions_parent_id ON entity_permissions (parent_id);
                CREATE INDEX IF NOT EXISTS idx_entity_permissions_library_id ON entity_permissions (library_id);
                CREATE INDEX IF NOT EXISTS idx_authority_role_assignments_authority ON authority_role_assignments (authority)`,
		},
	}
}
