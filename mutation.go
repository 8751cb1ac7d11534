package adminkit

import (
	"context"
	"errors"
	"io"
	"maps"
	"time"

	"github.com/google/uuid"
	"github.com/puzpuzpuz/xsync/v3"
	"go.uber.org/zap"
)

// TicketStatus is the lifecycle state of a MutationTicket.
type TicketStatus string

const (
	TicketIdle    TicketStatus = "idle"
	TicketPending TicketStatus = "pending"
	TicketSuccess TicketStatus = "success"
	TicketError   TicketStatus = "error"
)

// MutationTicket tracks one in-flight or finished write per entity key.
// FieldErrors and Summary hold what the form shows after a failure.
type MutationTicket struct {
	ID          string
	EntityKey   string
	Operation   MutationOperation
	Status      TicketStatus
	FieldErrors map[string]string
	Summary     string
	Err         error
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Pending reports whether the write has not finished yet.
func (t MutationTicket) Pending() bool {
	return t.Status == TicketPending
}

// FormErrors is what a form shows after a rejected write: one message per
// field the server named, or a single summary when it named none.
type FormErrors struct {
	Fields  map[string]string
	Summary string
}

// Field returns the message of field, or "".
func (f FormErrors) Field(name string) string {
	return f.Fields[name]
}

// Empty reports whether there is nothing to show.
func (f FormErrors) Empty() bool {
	return len(f.Fields) == 0 && f.Summary == ""
}

// formErrorsOf maps a write error to FormErrors. Field errors are copied one
// to one; anything else becomes the summary.
func formErrorsOf(err error) FormErrors {
	if err == nil {
		return FormErrors{}
	}
	if fields := FieldErrors(err); len(fields) > 0 {
		return FormErrors{Fields: fields}
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return FormErrors{Summary: e.Message}
	}
	return FormErrors{Summary: err.Error()}
}

// MutationResult is the outcome of one Create, Update, Remove, Upload or
// RemoveUpload.
type MutationResult struct {
	Ticket     MutationTicket
	Data       Row
	FormErrors FormErrors
}

// Orchestrator runs create, update and delete for entity screens.
//
// Every write is checked against the resolver first and, for update and
// delete, against the selection: both checks happen before any I/O. After a
// success the entity's cached queries are invalidated and its selection is
// reset, unless the user has moved on to another record or the screen is gone.
// After a failure the selection is left exactly as it was.
type Orchestrator struct {
	api         ResourceAPI
	selections  *SelectionStore
	resolver    *Resolver
	invalidator Invalidator
	audit       AuditSink
	logger      *zap.Logger
	monitor     *mutationMonitor
	tickets     *xsync.MapOf[string, MutationTicket]
	now         func() time.Time
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithInvalidator sets the cache invalidated after successful writes.
func WithInvalidator(inv Invalidator) OrchestratorOption {
	return func(o *Orchestrator) { o.invalidator = inv }
}

// WithAuditSink records every finished write in sink.
func WithAuditSink(sink AuditSink) OrchestratorOption {
	return func(o *Orchestrator) { o.audit = sink }
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) OrchestratorOption {
	return func(o *Orchestrator) { o.logger = nopIfNil(logger) }
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(api ResourceAPI, selections *SelectionStore, resolver *Resolver, opts ...OrchestratorOption) *Orchestrator {
	o := &Orchestrator{
		api:        api,
		selections: selections,
		resolver:   resolver,
		logger:     zap.NewNop(),
		monitor:    newMutationMonitor(),
		tickets:    xsync.NewMapOf[string, MutationTicket](),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Create posts payload as a new record of desc.
func (o *Orchestrator) Create(ctx context.Context, desc EntityDescriptor, payload any) (MutationResult, error) {
	checker, err := o.guard(ctx, desc, ActionAdd)
	if err != nil {
		return MutationResult{}, err
	}
	var generation uint64
	if rec, ok := o.selections.Lookup(desc.Key); ok && rec.Intent == IntentCreating {
		generation = rec.Generation
	}
	return o.run(ctx, checker, desc, OperationCreate, "", generation, func(ctx context.Context) (Row, error) {
		return o.api.Create(ctx, desc.Resource, payload)
	})
}

// Update sends payload for the record the selection of desc points at.
func (o *Orchestrator) Update(ctx context.Context, desc EntityDescriptor, payload any) (MutationResult, error) {
	checker, err := o.guard(ctx, desc, ActionEdit)
	if err != nil {
		return MutationResult{}, err
	}
	id, generation, err := o.target(desc, OperationUpdate)
	if err != nil {
		return MutationResult{}, err
	}
	return o.run(ctx, checker, desc, OperationUpdate, id, generation, func(ctx context.Context) (Row, error) {
		return o.api.Update(ctx, desc.Resource, id, payload)
	})
}

// Remove deletes the record the selection of desc points at.
func (o *Orchestrator) Remove(ctx context.Context, desc EntityDescriptor) (MutationResult, error) {
	checker, err := o.guard(ctx, desc, ActionDelete)
	if err != nil {
		return MutationResult{}, err
	}
	id, generation, err := o.target(desc, OperationDelete)
	if err != nil {
		return MutationResult{}, err
	}
	return o.run(ctx, checker, desc, OperationDelete, id, generation, func(ctx context.Context) (Row, error) {
		return nil, o.api.Delete(ctx, desc.Resource, id)
	})
}

// Upload sends a file for desc. The selection is not involved.
func (o *Orchestrator) Upload(ctx context.Context, desc EntityDescriptor, field, filename string, r io.Reader) (MutationResult, error) {
	checker, err := o.guard(ctx, desc, ActionUpload)
	if err != nil {
		return MutationResult{}, err
	}
	return o.run(ctx, checker, desc, OperationUpload, "", 0, func(ctx context.Context) (Row, error) {
		return o.api.Upload(ctx, desc.Resource, field, filename, r)
	})
}

// RemoveUpload deletes the uploaded file id of desc. Like Upload it is
// guarded by the upload action and leaves the selection alone.
func (o *Orchestrator) RemoveUpload(ctx context.Context, desc EntityDescriptor, id string) (MutationResult, error) {
	checker, err := o.guard(ctx, desc, ActionUpload)
	if err != nil {
		return MutationResult{}, err
	}
	if id == "" {
		return MutationResult{}, NewError(ErrPreconditionFailed, "no upload to delete").WithEntity(desc.Key)
	}
	return o.run(ctx, checker, desc, OperationDeleteUpload, id, 0, func(ctx context.Context) (Row, error) {
		return nil, o.api.DeleteUpload(ctx, desc.Resource, id)
	})
}

// Ticket returns the last ticket of entityKey, or an idle ticket.
func (o *Orchestrator) Ticket(entityKey string) MutationTicket {
	if t, ok := o.tickets.Load(entityKey); ok {
		return t
	}
	return MutationTicket{EntityKey: entityKey, Status: TicketIdle}
}

// DiscardTicket forgets the ticket of entityKey. A write still pending for
// the key finishes without recording a ticket.
func (o *Orchestrator) DiscardTicket(entityKey string) {
	o.tickets.Delete(entityKey)
}

// GetMutationMetrics returns the current mutation metrics.
func (o *Orchestrator) GetMutationMetrics() MutationMetrics {
	return o.monitor.metrics()
}

// ResetMutationMetrics resets all mutation metrics.
func (o *Orchestrator) ResetMutationMetrics() {
	o.monitor.reset()
}

// IsMutationHealthy checks if mutations fail and take time within acceptable thresholds.
func (o *Orchestrator) IsMutationHealthy() bool {
	return o.monitor.healthy()
}

func (o *Orchestrator) guard(ctx context.Context, desc EntityDescriptor, action Action) (*Checker, error) {
	checker := checkerFor(ctx, o.resolver)
	if err := checker.Require(desc.Module, desc.Resource, action); err != nil {
		var e *Error
		if errors.As(err, &e) {
			return nil, e.WithEntity(desc.Key)
		}
		return nil, err
	}
	return checker, nil
}

// target reads the primary keys of the current selection. An idle or
// missing selection cannot be written to.
func (o *Orchestrator) target(desc EntityDescriptor, op MutationOperation) (string, uint64, error) {
	rec, ok := o.selections.Lookup(desc.Key)
	if !ok {
		return "", 0, NewError(ErrPreconditionFailed, "nothing is selected to "+string(op)).WithEntity(desc.Key)
	}
	keys, ok := rec.Target()
	if !ok {
		return "", 0, NewError(ErrPreconditionFailed, "nothing is selected to "+string(op)).WithEntity(desc.Key)
	}
	for _, field := range desc.PrimaryKeys {
		if v, set := keys[field]; !set || v == nil || v == "" {
			return "", 0, NewError(ErrPreconditionFailed, "selection has no value for primary key "+field).
				WithEntity(desc.Key)
		}
	}
	return desc.RecordID(keys), rec.Generation, nil
}

// acquire stores a pending ticket for key unless one is already pending.
func (o *Orchestrator) acquire(key string, op MutationOperation) (MutationTicket, error) {
	ticket := MutationTicket{
		ID:        uuid.NewString(),
		EntityKey: key,
		Operation: op,
		Status:    TicketPending,
		StartedAt: o.now(),
	}
	busy := false
	o.tickets.Compute(key, func(old MutationTicket, loaded bool) (MutationTicket, bool) {
		if loaded && old.Pending() {
			busy = true
			return old, false
		}
		return ticket, false
	})
	if busy {
		return MutationTicket{}, NewError(ErrMutationInFlight, "a previous write has not finished").WithEntity(key)
	}
	return ticket, nil
}

// finish records the outcome on the ticket, unless it was discarded or
// replaced in the meantime.
func (o *Orchestrator) finish(ticket MutationTicket) {
	o.tickets.Compute(ticket.EntityKey, func(old MutationTicket, loaded bool) (MutationTicket, bool) {
		if !loaded {
			return old, true
		}
		if old.ID != ticket.ID {
			return old, false
		}
		return ticket, false
	})
}

func (o *Orchestrator) run(ctx context.Context, checker *Checker, desc EntityDescriptor, op MutationOperation, id string, generation uint64, call func(context.Context) (Row, error)) (MutationResult, error) {
	ticket, err := o.acquire(desc.Key, op)
	if err != nil {
		return MutationResult{}, err
	}

	data, callErr := call(ctx)

	ticket.FinishedAt = o.now()
	duration := ticket.FinishedAt.Sub(ticket.StartedAt)
	result := MutationResult{Data: data}

	if callErr != nil {
		ticket.Status = TicketError
		ticket.Err = callErr
		result.FormErrors = formErrorsOf(callErr)
		ticket.FieldErrors = maps.Clone(result.FormErrors.Fields)
		ticket.Summary = result.FormErrors.Summary
		o.logger.Info("mutation failed",
			zap.String("entity", desc.Key),
			zap.String("operation", string(op)),
			zap.String("record_id", id),
			zap.String("kind", KindOf(callErr)),
			zap.Error(callErr))
	} else {
		ticket.Status = TicketSuccess
		invalidated := 0
		if o.invalidator != nil {
			invalidated = o.invalidator.InvalidatePrefix(desc.QueryPrefix())
		}
		reset := false
		if generation != 0 {
			reset = o.selections.ResetIf(desc.Key, generation)
		}
		o.logger.Debug("mutation succeeded",
			zap.String("entity", desc.Key),
			zap.String("operation", string(op)),
			zap.String("record_id", id),
			zap.Int("invalidated", invalidated),
			zap.Bool("selection_reset", reset))
	}

	o.finish(ticket)
	result.Ticket = ticket
	o.monitor.record(duration, callErr == nil, IsValidationFailed(callErr))
	o.recordAudit(ctx, checker, desc, op, id, ticket, duration, result.FormErrors)

	return result, callErr
}

func (o *Orchestrator) recordAudit(ctx context.Context, checker *Checker, desc EntityDescriptor, op MutationOperation, id string, ticket MutationTicket, duration time.Duration, form FormErrors) {
	if o.audit == nil {
		return
	}
	entry := &AuditEntry{
		ActorID:     GetActorID(ctx),
		Scope:       checker.Scope(),
		EntityKey:   desc.Key,
		Resource:    desc.Resource,
		Operation:   op,
		RecordID:    id,
		TicketID:    ticket.ID,
		Status:      ticket.Status,
		FieldErrors: maps.Clone(form.Fields),
		Duration:    duration,
		RequestID:   GetRequestID(ctx),
	}
	if ticket.Err != nil {
		entry.ErrorKind = KindOf(ticket.Err)
		entry.ErrorMessage = ticket.Err.Error()
	}
	if entry.ActorID == "" {
		entry.ActorID = string(entry.Scope)
	}
	if err := o.audit.RecordMutation(ctx, entry); err != nil {
		o.logger.Warn("failed to record mutation audit",
			zap.String("entity", desc.Key),
			zap.String("ticket_id", ticket.ID),
			zap.Error(err))
	}
}
