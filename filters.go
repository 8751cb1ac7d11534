package adminkit

import "time"

// AuditLogFilter provides options for filtering mutation audit queries.
type AuditLogFilter struct {
	// Filter by actor who performed the mutation
	ActorID string

	// Filter by scope the actor was acting in
	Scope string

	// Filter by entity key or resource
	EntityKey string
	Resource  string

	// Filter by operation ("create", "update", "delete")
	Operation string

	// Filter by outcome ("success" or "error")
	Status string

	// Filter by time range
	Since time.Time
	Until time.Time

	// Pagination
	Limit  int
	Offset int
}

// NewAuditLogFilter creates a new AuditLogFilter with default values.
func NewAuditLogFilter() AuditLogFilter {
	return AuditLogFilter{
		Limit: 100,
	}
}

// WithActor sets the actor ID filter.
func (f AuditLogFilter) WithActor(actorID string) AuditLogFilter {
	f.ActorID = actorID
	return f
}

// WithScope sets the scope filter.
func (f AuditLogFilter) WithScope(scope Scope) AuditLogFilter {
	f.Scope = string(scope)
	return f
}

// WithEntity sets the entity key filter.
func (f AuditLogFilter) WithEntity(entityKey string) AuditLogFilter {
	f.EntityKey = entityKey
	return f
}

// WithResource sets the resource filter.
func (f AuditLogFilter) WithResource(resource string) AuditLogFilter {
	f.Resource = resource
	return f
}

// WithOperation sets the operation filter.
func (f AuditLogFilter) WithOperation(op MutationOperation) AuditLogFilter {
	f.Operation = string(op)
	return f
}

// WithStatus sets the outcome filter.
func (f AuditLogFilter) WithStatus(status TicketStatus) AuditLogFilter {
	f.Status = string(status)
	return f
}

// WithTimeRange sets the time range filter.
func (f AuditLogFilter) WithTimeRange(since, until time.Time) AuditLogFilter {
	f.Since = since
	f.Until = until
	return f
}

// WithSince sets the start time filter.
func (f AuditLogFilter) WithSince(since time.Time) AuditLogFilter {
	f.Since = since
	return f
}

// WithUntil sets the end time filter.
func (f AuditLogFilter) WithUntil(until time.Time) AuditLogFilter {
	f.Until = until
	return f
}

// WithPagination sets both limit and offset.
func (f AuditLogFilter) WithPagination(limit, offset int) AuditLogFilter {
	f.Limit = limit
	f.Offset = offset
	return f
}
