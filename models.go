package adminkit

import (
	"maps"
	"time"

	"github.com/uptrace/bun"
)

// TableConfigRecord is the persisted table preference of one entity key.
type TableConfigRecord struct {
	bun.BaseModel `bun:"table:table_configs,alias:tc"`

	EntityKey string          `bun:"entity_key,pk"`
	Columns   map[string]bool `bun:"columns,type:jsonb"`
	MultiSort bool            `bun:"multi_sort,notnull"`
	UpdatedAt time.Time       `bun:"updated_at,notnull,default:current_timestamp"`
}

// TableConfig converts the record to its domain value.
func (r *TableConfigRecord) TableConfig() TableConfig {
	return TableConfig{Columns: maps.Clone(r.Columns), MultiSort: r.MultiSort}
}

// MutationAuditLog records every finished create, update and delete.
type MutationAuditLog struct {
	bun.BaseModel `bun:"table:mutation_audit_log,alias:mal"`

	ID        string    `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	Timestamp time.Time `bun:"timestamp,notnull,default:current_timestamp"`

	// Who performed the mutation
	ActorID string `bun:"actor_id,notnull"`
	Scope   string `bun:"scope,notnull"`

	// What was mutated
	EntityKey string `bun:"entity_key,notnull"`
	Resource  string `bun:"resource,notnull"`
	Operation string `bun:"operation,notnull"` // "create", "update", "delete", "upload", "delete_upload"
	RecordID  string `bun:"record_id"`

	// Outcome
	TicketID     string            `bun:"ticket_id,notnull"`
	Status       string            `bun:"status,notnull"` // "success", "error"
	ErrorKind    string            `bun:"error_kind"`
	ErrorMessage string            `bun:"error_message"`
	FieldErrors  map[string]string `bun:"field_errors,type:jsonb"`
	DurationMS   int64             `bun:"duration_ms"`

	RequestID string `bun:"request_id"`
}

// MutationOperation is the kind of write in the audit log.
type MutationOperation string

const (
	OperationCreate       MutationOperation = "create"
	OperationUpdate       MutationOperation = "update"
	OperationDelete       MutationOperation = "delete"
	OperationUpload       MutationOperation = "upload"
	OperationDeleteUpload MutationOperation = "delete_upload"
)

// Action returns the permission action guarding the operation.
func (o MutationOperation) Action() Action {
	switch o {
	case OperationCreate:
		return ActionAdd
	case OperationUpdate:
		return ActionEdit
	case OperationUpload, OperationDeleteUpload:
		return ActionUpload
	default:
		return ActionDelete
	}
}

// AuditEntry is used to create new audit log entries.
type AuditEntry struct {
	ActorID      string
	Scope        Scope
	EntityKey    string
	Resource     string
	Operation    MutationOperation
	RecordID     string
	TicketID     string
	Status       TicketStatus
	ErrorKind    string
	ErrorMessage string
	FieldErrors  map[string]string
	Duration     time.Duration
	RequestID    string
}

// ToModel converts an AuditEntry to a MutationAuditLog model.
func (e *AuditEntry) ToModel() *MutationAuditLog {
	return &MutationAuditLog{
		ActorID:      e.ActorID,
		Scope:        string(e.Scope),
		EntityKey:    e.EntityKey,
		Resource:     e.Resource,
		Operation:    string(e.Operation),
		RecordID:     e.RecordID,
		TicketID:     e.TicketID,
		Status:       string(e.Status),
		ErrorKind:    e.ErrorKind,
		ErrorMessage: e.ErrorMessage,
		FieldErrors:  e.FieldErrors,
		DurationMS:   e.Duration.Milliseconds(),
		RequestID:    e.RequestID,
		Timestamp:    time.Now(),
	}
}
