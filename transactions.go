package permkit

import (
	"context"
	"fmt"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction executes a function within a database transaction with
// automatic commit/rollback. The function receives the transactional handle;
// all store work inside must go through it. If the function returns an error
// the transaction is rolled back, otherwise it is committed.
//
// Example:
//
//	err := store.Transaction(ctx, func(ctx context.Context, db dbkit.IDB) error {
//	    tx := permkit.NewStore(db)
//	    if err := tx.SaveRole(ctx, &editor); err != nil {
//	        return err // rollback
//	    }
//	    return tx.SaveRole(ctx, &viewer) // commit on nil
//	})
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error {
	start := time.Now()
	err := s.transaction(ctx, fn)

	status := "committed"
	if err != nil {
		status = "rolled_back"
	}
	storeTransactionDuration.WithLabelValues(status).Observe(time.Since(start).Seconds())

	return err
}

func (s *Store) transaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error {
	// Already inside a transaction: reuse it via savepoint.
	if tx, ok := s.db.(*dbkit.Tx); ok {
		return tx.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	}

	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	}

	// Test fakes and other plain IDB implementations get no transactional
	// guarantee; run the function directly.
	if s.db != nil {
		return fn(ctx, s.db)
	}

	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// ReadOnlyTransaction executes a function within a read-only transaction.
// Useful for multi-query reads that need a consistent snapshot.
func (s *Store) ReadOnlyTransaction(ctx context.Context, fn func(ctx context.Context, db dbkit.IDB) error) error {
	if db, ok := s.db.(*dbkit.DBKit); ok {
		return db.TransactionWithOptions(ctx, dbkit.ReadOnlyTxOptions(), func(tx *dbkit.Tx) error {
			return fn(ctx, tx)
		})
	}
	return s.Transaction(ctx, fn)
}

// WithTx returns a Store bound to the given transactional handle. Use it
// inside Transaction callbacks to run store methods transactionally.
func (s *Store) WithTx(db dbkit.IDB) *Store {
	return &Store{db: db}
}
