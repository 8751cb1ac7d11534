package adminkit

import (
	"context"
	"time"

	"github.com/fernandezvara/dbkit"
	"go.uber.org/zap"
)

// Store persists table preferences and the mutation audit log in PostgreSQL
// through dbkit. It implements TableConfigStore and AuditSink.
//
// Error Handling:
// All database operations use dbkit's chainable error wrapping, so failures
// carry the operation name and keep the original error for classification:
//
//	err := store.Save(ctx, "employee", cfg)
//	if err != nil {
//	    var dbErr *dbkit.Error
//	    if errors.As(err, &dbErr) {
//	        fmt.Printf("Operation: %s, Table: %s\n", dbErr.Operation, dbErr.Table)
//	    }
//	}
type Store struct {
	db          dbkit.IDB
	logger      *zap.Logger
	maxAttempts int
	backoff     time.Duration
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for retries and audit failures.
func WithStoreLogger(logger *zap.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreRetry sets how many times a transient write failure is attempted
// and the base backoff between attempts.
func WithStoreRetry(maxAttempts int, backoff time.Duration) StoreOption {
	return func(s *Store) {
		if maxAttempts > 0 {
			s.maxAttempts = maxAttempts
		}
		s.backoff = backoff
	}
}

// NewStore creates a new SQL store.
//
// Example:
//
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	store := adminkit.NewStore(db)
//	_, _ = db.Migrate(ctx, store.Migrations())
func NewStore(db dbkit.IDB, opts ...StoreOption) *Store {
	s := &Store{
		db:          db,
		logger:      zap.NewNop(),
		maxAttempts: 3,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ============================================================================
// TABLE CONFIG
// ============================================================================

// Load implements TableConfigStore. A key with no stored row yields nil, nil.
func (s *Store) Load(ctx context.Context, entityKey string) (*TableConfig, error) {
	var rec TableConfigRecord
	err := dbkit.WithErr1(s.db.NewSelect().Model(&rec).Where("entity_key = ?", entityKey).Limit(1).Scan(ctx), "LoadTableConfig").Err()
	if err != nil {
		if dbkit.IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	cfg := rec.TableConfig()
	return &cfg, nil
}

// Save implements TableConfigStore. Transient failures are retried.
func (s *Store) Save(ctx context.Context, entityKey string, cfg TableConfig) error {
	rec := &TableConfigRecord{
		EntityKey: entityKey,
		Columns:   cfg.Columns,
		MultiSort: cfg.MultiSort,
		UpdatedAt: time.Now(),
	}
	return s.withRetry(ctx, "SaveTableConfig", func() error {
		return s.upsertTableConfig(ctx, rec)
	})
}

// ============================================================================
// AUDIT LOG
// ============================================================================

// RecordMutation implements AuditSink.
func (s *Store) RecordMutation(ctx context.Context, entry *AuditEntry) error {
	return s.logAudit(ctx, entry)
}

// GetAuditLog retrieves audit log entries with optional filters.
func (s *Store) GetAuditLog(ctx context.Context, filter AuditLogFilter) ([]MutationAuditLog, error) {
	var logs []MutationAuditLog
	q := s.db.NewSelect().Model(&logs)
	if filter.ActorID != "" {
		q = q.Where("actor_id = ?", filter.ActorID)
	}
	if filter.Scope != "" {
		q = q.Where("scope = ?", filter.Scope)
	}
	if filter.EntityKey != "" {
		q = q.Where("entity_key = ?", filter.EntityKey)
	}
	if filter.Resource != "" {
		q = q.Where("resource = ?", filter.Resource)
	}
	if filter.Operation != "" {
		q = q.Where("operation = ?", filter.Operation)
	}
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until)
	}

	limit := filter.Limit
	if limit == 0 {
		limit = 100
	}
	q = q.Limit(limit)

	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	q = q.Order("timestamp DESC")
	err := dbkit.WithErr1(q.Scan(ctx), "GetAuditLog").Err()
	if err != nil {
		return nil, err
	}

	return logs, nil
}
