package adminkit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// TestNewAuditLogFilter tests the default filter
func TestNewAuditLogFilter(t *testing.T) {
	f := NewAuditLogFilter()
	assert.Equal(t, 100, f.Limit)
	assert.Zero(t, f.Offset)
	assert.Empty(t, f.ActorID)
	assert.True(t, f.Since.IsZero())
}

// TestAuditLogFilterBuilders tests the fluent setters
func TestAuditLogFilterBuilders(t *testing.T) {
	since := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	until := since.Add(24 * time.Hour)

	base := NewAuditLogFilter()
	f := base.
		WithActor("user-7").
		WithScope("hr_manager").
		WithEntity("employee").
		WithResource("employee").
		WithOperation(OperationDelete).
		WithStatus(TicketError).
		WithTimeRange(since, until).
		WithPagination(20, 40)

	assert.Equal(t, "user-7", f.ActorID)
	assert.Equal(t, "hr_manager", f.Scope)
	assert.Equal(t, "employee", f.EntityKey)
	assert.Equal(t, "employee", f.Resource)
	assert.Equal(t, "delete", f.Operation)
	assert.Equal(t, "error", f.Status)
	assert.Equal(t, since, f.Since)
	assert.Equal(t, until, f.Until)
	assert.Equal(t, 20, f.Limit)
	assert.Equal(t, 40, f.Offset)

	assert.Empty(t, base.ActorID, "builders return copies")
	assert.Equal(t, 100, base.Limit)

	g := NewAuditLogFilter().WithSince(since).WithUntil(until)
	assert.Equal(t, since, g.Since)
	assert.Equal(t, until, g.Until)
}
