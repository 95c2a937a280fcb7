package permkit

import (
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConnections    int
	MaxIdleConnections    int
	ConnectionMaxLifetime time.Duration
	ConnectionMaxIdleTime time.Duration
}

// PoolStore provides connection pool management functionality as an extension
// to Store.
type PoolStore struct {
	*Store
}

// NewPoolStore creates a new pool store extension.
func NewPoolStore(store *Store) *PoolStore {
	return &PoolStore{Store: store}
}

// ConfigureConnectionPool updates the database connection pool settings.
func (ps *PoolStore) ConfigureConnectionPool(config PoolConfig) error {
	db, ok := ps.db.(*dbkit.DBKit)
	if !ok {
		return fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}

	bunDB := db.Bun()
	if bunDB == nil {
		return fmt.Errorf("database instance not available")
	}

	bunDB.SetMaxOpenConns(config.MaxOpenConnections)
	bunDB.SetMaxIdleConns(config.MaxIdleConnections)
	bunDB.SetConnMaxLifetime(config.ConnectionMaxLifetime)
	bunDB.SetConnMaxIdleTime(config.ConnectionMaxIdleTime)

	return nil
}

// GetConnectionPoolConfig returns the current connection pool configuration.
func (ps *PoolStore) GetConnectionPoolConfig() (*PoolConfig, error) {
	db, ok := ps.db.(*dbkit.DBKit)
	if !ok {
		return nil, fmt.Errorf("connection pool configuration requires a dbkit.DBKit instance")
	}

	bunDB := db.Bun()
	if bunDB == nil {
		return nil, fmt.Errorf("database instance not available")
	}

	stats := bunDB.Stats()
	return &PoolConfig{
		MaxOpenConnections: stats.MaxOpenConnections,
		MaxIdleConnections: stats.MaxOpenConnections,
	}, nil
}
