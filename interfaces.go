package adminkit

import (
	"context"
	"io"
	"net/url"
)

// ResourceAPI is the remote HTTP API that owns entity data. Record ids are
// path ids as built by EntityDescriptor.RecordID and are sent unchanged.
// APIClient is the production implementation.
type ResourceAPI interface {
	List(ctx context.Context, resource string, query url.Values) (ListResult, error)
	Detail(ctx context.Context, resource, id string) (Row, error)
	GetForEdit(ctx context.Context, resource, id string) (Row, error)
	Create(ctx context.Context, resource string, payload any) (Row, error)
	Update(ctx context.Context, resource, id string, payload any) (Row, error)
	Delete(ctx context.Context, resource, id string) error
	Upload(ctx context.Context, resource, field, filename string, r io.Reader) (Row, error)
	DeleteUpload(ctx context.Context, resource, id string) error
}

// TableConfigStore persists user table preferences across sessions.
// Load returns nil, nil when nothing is stored for the key.
type TableConfigStore interface {
	Load(ctx context.Context, entityKey string) (*TableConfig, error)
	Save(ctx context.Context, entityKey string, cfg TableConfig) error
}

// Invalidator drops cached queries after a successful write.
type Invalidator interface {
	InvalidatePrefix(prefix string) int
}

// AuditSink records finished mutations.
type AuditSink interface {
	RecordMutation(ctx context.Context, entry *AuditEntry) error
}

// HealthMonitor defines the health monitoring interface of the SQL store
type HealthMonitor interface {
	IsHealthy(ctx context.Context) bool
	Ping(ctx context.Context) error
}

// MutationMonitor defines the mutation metrics interface
type MutationMonitor interface {
	GetMutationMetrics() MutationMetrics
	ResetMutationMetrics()
	IsMutationHealthy() bool
}
