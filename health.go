package permkit

import (
	"context"

	"github.com/fernandezvara/dbkit"
)

// HealthStore provides health monitoring functionality as an extension to
// Store.
type HealthStore struct {
	*Store
}

// NewHealthStore creates a new health store extension.
func NewHealthStore(store *Store) *HealthStore {
	return &HealthStore{Store: store}
}

// Health performs a comprehensive health check of the database connection.
// Returns detailed status including latency, connection pool statistics, and
// error information.
func (hs *HealthStore) Health(ctx context.Context) dbkit.HealthStatus {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.Health(ctx)
	}

	// Inside a transaction or on a plain handle only a basic ping is possible.
	return dbkit.HealthStatus{
		Healthy: hs.IsHealthy(ctx),
		Error:   "Limited health check - not a DBKit instance",
	}
}

// IsHealthy performs a simple health check of the database connection.
func (hs *HealthStore) IsHealthy(ctx context.Context) bool {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return db.IsHealthy(ctx)
	}

	var count int
	err := hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &count)
	return err == nil
}

// GetPoolStats returns connection pool statistics for monitoring. Returns
// zero values if the database instance doesn't support pool statistics.
func (hs *HealthStore) GetPoolStats() dbkit.PoolStats {
	if db, ok := hs.db.(*dbkit.DBKit); ok {
		return dbkit.PoolStatsFromSQL(db.Stats())
	}
	return dbkit.PoolStats{}
}

// Ping performs a basic connectivity test to the database.
func (hs *HealthStore) Ping(ctx context.Context) error {
	var result int
	return hs.db.NewSelect().Model((*struct{})(nil)).ColumnExpr("1").Limit(1).Scan(ctx, &result)
}
