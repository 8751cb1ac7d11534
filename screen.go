package adminkit

import (
	"context"
	"fmt"
	"io"
	"sync"

	"go.uber.org/zap"
)

// ScreenDeps are the shared components a Screen is composed from. API,
// Selections and Resolver are required. A shared Orchestrator must have been
// built with WithInvalidator(Cache); when Cache is nil the orchestrator's
// cache is used.
type ScreenDeps struct {
	API          ResourceAPI
	Selections   *SelectionStore
	Resolver     *Resolver
	Orchestrator *Orchestrator
	Cache        *QueryCache
	Configs      TableConfigStore
	Logger       *zap.Logger
}

// Screen is the generic list screen of one entity: table, row actions,
// modals and writes, all driven by the entity descriptor.
type Screen struct {
	desc       EntityDescriptor
	api        ResourceAPI
	resolver   *Resolver
	orch       *Orchestrator
	cache      *QueryCache
	configs    TableConfigStore
	logger     *zap.Logger
	selections *SelectionStore
	selection  *Selection
	table      *TableEngine
	codec      *QueryCodec

	mu     sync.Mutex
	config TableConfig
	banner string
}

// NewScreen composes a screen for desc.
func NewScreen(deps ScreenDeps, desc EntityDescriptor) (*Screen, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if deps.API == nil || deps.Selections == nil || deps.Resolver == nil {
		return nil, NewError(ErrInvalidDescriptor, "screen needs an API, a selection store and a resolver").WithEntity(desc.Key)
	}

	logger := nopIfNil(deps.Logger).With(zap.String("entity", desc.Key))
	cache := deps.Cache
	orch := deps.Orchestrator
	if orch != nil {
		shared, _ := orch.invalidator.(*QueryCache)
		if cache == nil {
			cache = shared
		}
		if shared == nil || shared != cache {
			return nil, NewError(ErrInvalidDescriptor, "the orchestrator must invalidate the screen's cache").WithEntity(desc.Key)
		}
	}
	if cache == nil {
		cache = NewQueryCache(0)
	}
	if orch == nil {
		orch = NewOrchestrator(deps.API, deps.Selections, deps.Resolver,
			WithInvalidator(cache),
			WithLogger(logger))
	}

	cfg := desc.DefaultTableConfig()
	return &Screen{
		desc:       desc,
		api:        deps.API,
		resolver:   deps.Resolver,
		orch:       orch,
		cache:      cache,
		configs:    deps.Configs,
		logger:     logger,
		selections: deps.Selections,
		selection:  deps.Selections.Scoped(desc.Key),
		table:      NewTableEngine(desc, cfg),
		codec:      NewQueryCodec(desc.Filters),
		config:     cfg,
	}, nil
}

// Descriptor returns the entity descriptor.
func (s *Screen) Descriptor() EntityDescriptor { return s.desc }

// Table returns the table engine of the screen.
func (s *Screen) Table() *TableEngine { return s.table }

// Selection returns the selection of the screen's entity key.
func (s *Screen) Selection() *Selection { return s.selection }

// Gates returns the controls the caller's scope may see.
func (s *Screen) Gates(ctx context.Context) Gates {
	return checkerFor(ctx, s.resolver).Gates(s.desc)
}

// Load fetches the current page. Cached responses are reused until a write
// invalidates them. When the page no longer exists the table is clamped and
// the clamped page is fetched once more.
func (s *Screen) Load(ctx context.Context) (ListResult, error) {
	if err := s.require(ctx, ActionView); err != nil {
		return ListResult{}, err
	}
	res, err := s.fetch(ctx)
	if err != nil {
		return ListResult{}, err
	}
	if s.table.Reconcile(res) {
		if res, err = s.fetch(ctx); err != nil {
			return ListResult{}, err
		}
		s.table.Reconcile(res)
	}
	s.setBanner("")
	return res, nil
}

func (s *Screen) fetch(ctx context.Context) (ListResult, error) {
	state := s.table.State()
	values, err := s.codec.Values(state)
	if err != nil {
		return ListResult{}, err
	}
	key := ListKey(s.desc.QueryPrefix(), values.Encode())
	epoch := s.cache.Epoch(key[0])
	if cached, ok := s.cache.Get(key); ok {
		if res, ok := cached.(ListResult); ok {
			return res, nil
		}
	}

	res, err := s.api.List(ctx, s.desc.Resource, values)
	if err != nil {
		s.surface(err)
		return ListResult{}, err
	}
	s.cache.SetIfCurrent(key, res, epoch)
	return res, nil
}

// OpenNew opens the create form.
func (s *Screen) OpenNew(ctx context.Context) (SelectionRecord, error) {
	if err := s.require(ctx, ActionAdd); err != nil {
		return SelectionRecord{}, err
	}
	return s.selection.OpenNew(), nil
}

// OpenView opens the read-only modal for row.
func (s *Screen) OpenView(ctx context.Context, row Row) (SelectionRecord, error) {
	return s.openRow(ctx, row, ActionDetail, s.selection.OpenView)
}

// OpenEdit opens the edit form for row.
func (s *Screen) OpenEdit(ctx context.Context, row Row) (SelectionRecord, error) {
	return s.openRow(ctx, row, ActionEdit, s.selection.OpenEdit)
}

// OpenDelete opens the delete confirmation for row.
func (s *Screen) OpenDelete(ctx context.Context, row Row) (SelectionRecord, error) {
	return s.openRow(ctx, row, ActionDelete, s.selection.OpenDelete)
}

func (s *Screen) openRow(ctx context.Context, row Row, action Action, open func(map[string]any, string) (SelectionRecord, error)) (SelectionRecord, error) {
	if err := s.require(ctx, action); err != nil {
		return SelectionRecord{}, err
	}
	keys, err := s.desc.PrimaryKeysOf(row)
	if err != nil {
		return SelectionRecord{}, err
	}
	return open(keys, s.desc.LabelOf(row))
}

// Detail fetches the selected record: the detail endpoint while viewing,
// the edit endpoint while editing.
func (s *Screen) Detail(ctx context.Context) (Row, error) {
	rec := s.selection.Get()
	keys, ok := rec.Target()
	if !ok {
		return nil, NewError(ErrPreconditionFailed, "no record is selected").WithEntity(s.desc.Key)
	}
	id := s.desc.RecordID(keys)

	var (
		key   QueryKey
		fetch func(context.Context, string, string) (Row, error)
		act   Action
	)
	switch rec.Intent {
	case IntentViewing:
		key, fetch, act = DetailKey(s.desc.QueryPrefix(), id), s.api.Detail, ActionDetail
	case IntentEditing:
		key, fetch, act = QueryKey{s.desc.QueryPrefix(), "edit", id}, s.api.GetForEdit, ActionEdit
	default:
		return nil, NewError(ErrPreconditionFailed, fmt.Sprintf("no detail while %s", rec.Intent)).WithEntity(s.desc.Key)
	}
	if err := s.require(ctx, act); err != nil {
		return nil, err
	}

	epoch := s.cache.Epoch(key[0])
	if cached, ok := s.cache.Get(key); ok {
		if row, ok := cached.(Row); ok {
			return row, nil
		}
	}
	row, err := fetch(ctx, s.desc.Resource, id)
	if err != nil {
		s.surface(err)
		return nil, err
	}
	s.cache.SetIfCurrent(key, row, epoch)
	return row, nil
}

// Submit sends the open form: create while creating, update while editing.
func (s *Screen) Submit(ctx context.Context, payload any) (MutationResult, error) {
	switch s.selection.Get().Intent {
	case IntentCreating:
		return s.orch.Create(ctx, s.desc, payload)
	case IntentEditing:
		return s.orch.Update(ctx, s.desc, payload)
	}
	return MutationResult{}, NewError(ErrPreconditionFailed, "no form is open").WithEntity(s.desc.Key)
}

// ConfirmDelete deletes the record of the open delete confirmation.
func (s *Screen) ConfirmDelete(ctx context.Context) (MutationResult, error) {
	if s.selection.Get().Intent != IntentDeleting {
		return MutationResult{}, NewError(ErrPreconditionFailed, "no delete is pending confirmation").WithEntity(s.desc.Key)
	}
	return s.orch.Remove(ctx, s.desc)
}

// Upload sends a file for the entity.
func (s *Screen) Upload(ctx context.Context, field, filename string, r io.Reader) (MutationResult, error) {
	return s.orch.Upload(ctx, s.desc, field, filename, r)
}

// DeleteUpload removes a previously uploaded file of the entity.
func (s *Screen) DeleteUpload(ctx context.Context, id string) (MutationResult, error) {
	return s.orch.RemoveUpload(ctx, s.desc, id)
}

// Ticket returns the mutation ticket of the open modal.
func (s *Screen) Ticket() MutationTicket {
	return s.orch.Ticket(s.desc.Key)
}

// Close closes whatever modal is open.
func (s *Screen) Close() {
	s.selection.Reset()
	s.orch.DiscardTicket(s.desc.Key)
}

// Teardown drops the screen's selection entry. Writes still in flight
// finish without touching it.
func (s *Screen) Teardown() {
	s.selections.Remove(s.desc.Key)
	s.orch.DiscardTicket(s.desc.Key)
}

// Banner returns the message of the last network or not-found failure, or "".
func (s *Screen) Banner() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.banner
}

// DismissBanner clears the banner.
func (s *Screen) DismissBanner() {
	s.setBanner("")
}

// Config returns the table config in effect.
func (s *Screen) Config() TableConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return MergeTableConfig(s.config, nil)
}

// LoadConfig merges the stored preferences of the entity into the defaults.
func (s *Screen) LoadConfig(ctx context.Context) (TableConfig, error) {
	cfg, err := LoadTableConfig(ctx, s.configs, s.desc)
	if err != nil {
		s.logger.Warn("failed to load table config", zap.Error(err))
	}
	s.applyConfig(cfg)
	return cfg, err
}

// SetColumnVisible shows or hides a column and persists the choice.
func (s *Screen) SetColumnVisible(ctx context.Context, column string, visible bool) error {
	cfg := s.Config()
	if _, ok := cfg.Columns[column]; !ok {
		return NewError(ErrInvalidDescriptor, fmt.Sprintf("unknown column %q", column)).WithEntity(s.desc.Key)
	}
	cfg.Columns[column] = visible
	return s.saveConfig(ctx, cfg)
}

// SetMultiSort switches multi-column sorting and persists the choice.
func (s *Screen) SetMultiSort(ctx context.Context, enabled bool) error {
	cfg := s.Config()
	cfg.MultiSort = enabled
	return s.saveConfig(ctx, cfg)
}

// Export writes the rows of the last loaded page as XLSX.
func (s *Screen) Export(w io.Writer) error {
	return ExportXLSX(w, s.desc, s.Config(), s.table.Rows())
}

func (s *Screen) saveConfig(ctx context.Context, cfg TableConfig) error {
	s.applyConfig(cfg)
	if s.configs == nil {
		return nil
	}
	return s.configs.Save(ctx, s.desc.Key, cfg)
}

func (s *Screen) applyConfig(cfg TableConfig) {
	s.mu.Lock()
	s.config = cfg
	s.mu.Unlock()
	s.table.ApplyConfig(cfg)
}

func (s *Screen) require(ctx context.Context, action Action) error {
	err := checkerFor(ctx, s.resolver).Require(s.desc.Module, s.desc.Resource, action)
	if err != nil {
		s.logger.Debug("action hidden", zap.String("action", string(action)))
	}
	return err
}

// surface turns failures the user should see into the banner. Other state
// is left as it was.
func (s *Screen) surface(err error) {
	if IsNotFound(err) || IsNetworkFailure(err) {
		s.setBanner(err.Error())
		s.logger.Warn("request failed", zap.String("kind", KindOf(err)), zap.Error(err))
	}
}

func (s *Screen) setBanner(msg string) {
	s.mu.Lock()
	s.banner = msg
	s.mu.Unlock()
}
