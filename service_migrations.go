package adminkit

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns all database migrations required by the Store.
// Use db.Migrate(ctx, store.Migrations()) to run them.
func (s *Store) Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "adminkit-001",
			Description: "Create table_configs table",
			SQL: `
                CREATE TABLE IF NOT EXISTS table_configs (
                    entity_key TEXT PRIMARY KEY,
                    columns JSONB NOT NULL DEFAULT '{}'::jsonb,
                    multi_sort BOOLEAN NOT NULL DEFAULT false,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp
                )`,
		},
		{
			ID:          "adminkit-002",
			Description: "Create mutation_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS mutation_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    scope TEXT NOT NULL,
                    entity_key TEXT NOT NULL,
                    resource TEXT NOT NULL,
                    operation TEXT NOT NULL,
                    record_id TEXT,
                    ticket_id TEXT NOT NULL,
                    status TEXT NOT NULL,
                    error_kind TEXT,
                    error_message TEXT,
                    field_errors JSONB,
                    duration_ms BIGINT,
                    request_id TEXT
                )`,
		},
		{
			ID:          "adminkit-003",
			Description: "Index mutation_audit_log by entity and time",
			SQL: `
                CREATE INDEX IF NOT EXISTS idx_mutation_audit_log_entity_ts
                    ON mutation_audit_log (entity_key, timestamp DESC)`,
		},
	}
}
