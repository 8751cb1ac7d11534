package adminkit

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/fernandezvara/dbkit"
)

// Transaction runs fn with a Store bound to a database transaction. If fn
// returns an error the transaction is rolled back, otherwise committed.
// Inside an existing transaction a savepoint is used.
//
// Example:
//
//	err := store.Transaction(ctx, func(ctx context.Context, tx *adminkit.Store) error {
//	    if err := tx.Save(ctx, "employee", employeeCfg); err != nil {
//	        return err // This will cause a rollback
//	    }
//	    return tx.Save(ctx, "skill", skillCfg)
//	})
func (s *Store) Transaction(ctx context.Context, fn func(ctx context.Context, tx *Store) error) error {
	switch db := s.db.(type) {
	case *dbkit.Tx:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	case *dbkit.DBKit:
		return db.Transaction(ctx, func(tx *dbkit.Tx) error {
			return fn(ctx, s.withDB(tx))
		})
	}
	return fmt.Errorf("transaction support requires a dbkit.DBKit or dbkit.Tx instance")
}

// withDB returns a copy of s using db. Retries are left to the outermost
// caller since a failed statement aborts the whole transaction.
func (s *Store) withDB(db dbkit.IDB) *Store {
	return &Store{db: db, logger: s.logger, maxAttempts: 1, backoff: s.backoff}
}

// ResetTableConfigs overwrites the stored preferences of every entity in
// configs in one transaction: either all are written or none.
func (s *Store) ResetTableConfigs(ctx context.Context, configs map[string]TableConfig) error {
	keys := make([]string, 0, len(configs))
	for k := range configs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return s.withRetry(ctx, "ResetTableConfigs", func() error {
		return s.Transaction(ctx, func(ctx context.Context, tx *Store) error {
			now := time.Now()
			for _, key := range keys {
				cfg := configs[key]
				rec := &TableConfigRecord{EntityKey: key, Columns: cfg.Columns, MultiSort: cfg.MultiSort, UpdatedAt: now}
				if err := tx.upsertTableConfig(ctx, rec); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
