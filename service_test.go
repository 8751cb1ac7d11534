package adminkit

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestID() string {
	return uuid.NewString()[:8]
}

// TestStoreTableConfig tests saving and loading table preferences
func TestStoreTableConfig(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	key := uniqueKey("employee")

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got, "unknown keys have no stored config")

	cfg := TableConfig{Columns: map[string]bool{"name": true, "hiredAt": false}, MultiSort: true}
	require.NoError(t, store.Save(ctx, key, cfg))

	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, cfg, *got)

	cfg.Columns["hiredAt"] = true
	cfg.MultiSort = false
	require.NoError(t, store.Save(ctx, key, cfg))

	got, err = store.Load(ctx, key)
	require.NoError(t, err)
	assert.True(t, got.Columns["hiredAt"])
	assert.False(t, got.MultiSort)
}

// TestStoreLoadTableConfig tests merging stored preferences into defaults
func TestStoreLoadTableConfig(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	desc := employeeDescriptor()
	desc.Key = uniqueKey("employee")

	require.NoError(t, store.Save(ctx, desc.Key, TableConfig{Columns: map[string]bool{"hiredAt": true, "removed": true}}))

	cfg, err := LoadTableConfig(ctx, store, desc)
	require.NoError(t, err)
	assert.True(t, cfg.Columns["hiredAt"])
	assert.True(t, cfg.Columns["name"])
	assert.NotContains(t, cfg.Columns, "removed")
}

// TestStoreAuditLog tests recording and filtering mutation audits
func TestStoreAuditLog(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	actor := uniqueKey("user")
	start := time.Now().Add(-time.Minute)

	entries := []*AuditEntry{
		{ActorID: actor, Scope: "hr_manager", EntityKey: "employee", Resource: "employee", Operation: OperationCreate, TicketID: uuid.NewString(), Status: TicketSuccess},
		{ActorID: actor, Scope: "hr_manager", EntityKey: "employee", Resource: "employee", Operation: OperationUpdate, RecordID: "e-1", TicketID: uuid.NewString(), Status: TicketError, ErrorKind: "validation_failed", FieldErrors: map[string]string{"email": "already in use"}},
		{ActorID: actor, Scope: "hr_manager", EntityKey: "jobLevel", Resource: "jobLevel", Operation: OperationDelete, RecordID: "engineering,2", TicketID: uuid.NewString(), Status: TicketSuccess},
	}
	for _, e := range entries {
		require.NoError(t, store.RecordMutation(ctx, e))
	}

	logs, err := store.GetAuditLog(ctx, NewAuditLogFilter().WithActor(actor))
	require.NoError(t, err)
	assert.Len(t, logs, 3)

	logs, err = store.GetAuditLog(ctx, NewAuditLogFilter().WithActor(actor).WithStatus(TicketError))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "e-1", logs[0].RecordID)
	assert.Equal(t, map[string]string{"email": "already in use"}, logs[0].FieldErrors)

	logs, err = store.GetAuditLog(ctx, NewAuditLogFilter().WithActor(actor).WithEntity("jobLevel").WithOperation(OperationDelete))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "engineering,2", logs[0].RecordID)

	logs, err = store.GetAuditLog(ctx, NewAuditLogFilter().WithActor(actor).WithSince(start).WithPagination(2, 0))
	require.NoError(t, err)
	assert.Len(t, logs, 2)
}

// TestStoreOrchestratorAudit tests the store as the audit sink of an orchestrator
func TestStoreOrchestratorAudit(t *testing.T) {
	store, _ := setupTestStore(t)
	actor := uniqueKey("user")
	ctx := WithActorID(WithScope(context.Background(), "hr_manager"), actor)

	orch := NewOrchestrator(&fakeAPI{}, NewSelectionStore(), hrResolver(), WithAuditSink(store))
	_, err := orch.Create(ctx, employeeDescriptor(), map[string]any{"name": "Hedy"})
	require.NoError(t, err)

	logs, err := store.GetAuditLog(context.Background(), NewAuditLogFilter().WithActor(actor))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "create", logs[0].Operation)
	assert.Equal(t, "success", logs[0].Status)
}

// TestStoreHealth tests health reporting
func TestStoreHealth(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	assert.True(t, store.IsHealthy(ctx))
	assert.NoError(t, store.Ping(ctx))
	assert.True(t, store.Health(ctx).Healthy)
	assert.GreaterOrEqual(t, store.GetPoolStats().MaxOpenConnections, 0)
}

// TestStoreConfigurePool tests applying pool settings
func TestStoreConfigurePool(t *testing.T) {
	store, _ := setupTestStore(t)

	cfg := DefaultPoolConfig()
	cfg.MaxOpenConnections = 7
	require.NoError(t, store.ConfigurePool(cfg))
	assert.Equal(t, 7, store.GetPoolStats().MaxOpenConnections)
}

// TestStoreResetTableConfigs tests writing several configs atomically
func TestStoreResetTableConfigs(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	a, b := uniqueKey("employee"), uniqueKey("skill")

	require.NoError(t, store.Save(ctx, a, TableConfig{Columns: map[string]bool{"name": false}}))
	require.NoError(t, store.ResetTableConfigs(ctx, map[string]TableConfig{
		a: {Columns: map[string]bool{"name": true}},
		b: {Columns: map[string]bool{"name": true}, MultiSort: true},
	}))

	got, err := store.Load(ctx, a)
	require.NoError(t, err)
	assert.True(t, got.Columns["name"])
	got, err = store.Load(ctx, b)
	require.NoError(t, err)
	assert.True(t, got.MultiSort)
}

// TestStoreTransactionRollback tests that a failing transaction writes nothing
func TestStoreTransactionRollback(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	key := uniqueKey("employee")

	err := store.Transaction(ctx, func(ctx context.Context, tx *Store) error {
		if err := tx.Save(ctx, key, TableConfig{Columns: map[string]bool{"name": true}}); err != nil {
			return err
		}
		return NewError(ErrInvalidDescriptor, "abort")
	})
	assert.ErrorIs(t, err, ErrInvalidDescriptor)

	got, err := store.Load(ctx, key)
	require.NoError(t, err)
	assert.Nil(t, got)
}
