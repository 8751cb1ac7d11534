package adminkit

import (
	"maps"
	"sort"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v3"
)

// Intent is the operation the user asked for on an entity key.
type Intent string

const (
	IntentIdle     Intent = "idle"
	IntentCreating Intent = "create"
	IntentViewing  Intent = "view"
	IntentEditing  Intent = "edit"
	IntentDeleting Intent = "delete"
)

// Active reports whether the intent is anything other than idle.
func (i Intent) Active() bool {
	return i != "" && i != IntentIdle
}

// SelectionRecord is the selection state of one entity key.
type SelectionRecord struct {
	Intent      Intent
	PrimaryKeys map[string]any
	Label       string
	// Generation changes on every open; it lets a late mutation callback
	// tell whether the record it started from is still the current one.
	Generation uint64
	UpdatedAt  time.Time
}

// Target returns the primary keys the record points at. ok is false when the
// record is idle: keys of an idle record must not be used for requests.
func (r SelectionRecord) Target() (map[string]any, bool) {
	if !r.Intent.Active() || len(r.PrimaryKeys) == 0 {
		return nil, false
	}
	return maps.Clone(r.PrimaryKeys), true
}

func idleRecord() SelectionRecord {
	return SelectionRecord{Intent: IntentIdle}
}

// SelectionStore holds the selection state of every entity key.
//
// The store is an explicit container owned by the application root and passed
// to screens; there is no package level instance. Keys are fully independent:
// any number of keys may be non-idle at once, and changing one never touches
// another.
type SelectionStore struct {
	records    *xsync.MapOf[string, SelectionRecord]
	generation atomic.Uint64
	now        func() time.Time
}

// NewSelectionStore creates an empty store.
func NewSelectionStore() *SelectionStore {
	return &SelectionStore{
		records: xsync.NewMapOf[string, SelectionRecord](),
		now:     time.Now,
	}
}

// Get returns the record for key; keys never seen before are idle.
func (s *SelectionStore) Get(key string) SelectionRecord {
	rec, _ := s.records.LoadOrStore(key, idleRecord())
	return rec.clone()
}

// Exists reports whether key has an entry. Removed keys do not.
func (s *SelectionStore) Exists(key string) bool {
	_, ok := s.records.Load(key)
	return ok
}

// Lookup returns the record for key without creating an entry.
func (s *SelectionStore) Lookup(key string) (SelectionRecord, bool) {
	rec, ok := s.records.Load(key)
	if !ok {
		return SelectionRecord{}, false
	}
	return rec.clone(), true
}

// OpenNew moves key to Creating. No primary keys are involved.
func (s *SelectionStore) OpenNew(key string) SelectionRecord {
	return s.open(key, IntentCreating, nil, "")
}

// OpenView moves key to Viewing the record identified by primaryKeys.
func (s *SelectionStore) OpenView(key string, primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.openTarget(key, IntentViewing, primaryKeys, label)
}

// OpenEdit moves key to Editing the record identified by primaryKeys.
func (s *SelectionStore) OpenEdit(key string, primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.openTarget(key, IntentEditing, primaryKeys, label)
}

// OpenDelete moves key to Deleting the record identified by primaryKeys.
func (s *SelectionStore) OpenDelete(key string, primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.openTarget(key, IntentDeleting, primaryKeys, label)
}

func (s *SelectionStore) openTarget(key string, intent Intent, primaryKeys map[string]any, label string) (SelectionRecord, error) {
	if len(primaryKeys) == 0 {
		return SelectionRecord{}, NewError(ErrPreconditionFailed, "primary keys are required to "+string(intent)).
			WithEntity(key)
	}
	return s.open(key, intent, primaryKeys, label), nil
}

// open replaces whatever the key held. There is no queue of intents: the
// last open wins.
func (s *SelectionStore) open(key string, intent Intent, primaryKeys map[string]any, label string) SelectionRecord {
	rec := SelectionRecord{
		Intent:      intent,
		PrimaryKeys: maps.Clone(primaryKeys),
		Label:       label,
		Generation:  s.generation.Add(1),
		UpdatedAt:   s.now(),
	}
	s.records.Store(key, rec)
	return rec.clone()
}

// Reset moves key back to Idle and clears its keys and label.
// Resetting an idle key is a no-op.
func (s *SelectionStore) Reset(key string) {
	s.records.Compute(key, func(old SelectionRecord, loaded bool) (SelectionRecord, bool) {
		if !loaded || !old.Intent.Active() {
			return idleRecordOr(old, loaded), false
		}
		return SelectionRecord{Intent: IntentIdle, UpdatedAt: s.now()}, false
	})
}

// ResetIf resets key only while it still holds generation. It reports
// whether a reset happened. Keys removed with Remove are left alone, so a
// mutation finishing after its screen closed does nothing here.
func (s *SelectionStore) ResetIf(key string, generation uint64) bool {
	reset := false
	s.records.Compute(key, func(old SelectionRecord, loaded bool) (SelectionRecord, bool) {
		if !loaded {
			// Nothing to reset; do not recreate the entry.
			return old, true
		}
		if old.Generation != generation || !old.Intent.Active() {
			return old, false
		}
		reset = true
		return SelectionRecord{Intent: IntentIdle, UpdatedAt: s.now()}, false
	})
	return reset
}

// Remove drops the entry for key, e.g. when its screen is torn down.
func (s *SelectionStore) Remove(key string) {
	s.records.Delete(key)
}

// Active returns the keys that are currently non-idle, sorted.
func (s *SelectionStore) Active() []string {
	var keys []string
	s.records.Range(func(key string, rec SelectionRecord) bool {
		if rec.Intent.Active() {
			keys = append(keys, key)
		}
		return true
	})
	sort.Strings(keys)
	return keys
}

// Scoped returns a view of the store limited to key.
func (s *SelectionStore) Scoped(key string) *Selection {
	return &Selection{key: key, store: s}
}

func idleRecordOr(old SelectionRecord, loaded bool) SelectionRecord {
	if loaded {
		return old
	}
	return idleRecord()
}

func (r SelectionRecord) clone() SelectionRecord {
	r.PrimaryKeys = maps.Clone(r.PrimaryKeys)
	return r
}

// Selection is the slice of a SelectionStore owned by one entity key.
type Selection struct {
	key   string
	store *SelectionStore
}

// Key returns the entity key of this selection.
func (s *Selection) Key() string { return s.key }

// Get returns the current record.
func (s *Selection) Get() SelectionRecord { return s.store.Get(s.key) }

// Target returns the targeted primary keys while the selection is active.
func (s *Selection) Target() (map[string]any, bool) { return s.Get().Target() }

// OpenNew moves the selection to Creating.
func (s *Selection) OpenNew() SelectionRecord { return s.store.OpenNew(s.key) }

// OpenView moves the selection to Viewing.
func (s *Selection) OpenView(primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.store.OpenView(s.key, primaryKeys, label)
}

// OpenEdit moves the selection to Editing.
func (s *Selection) OpenEdit(primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.store.OpenEdit(s.key, primaryKeys, label)
}

// OpenDelete moves the selection to Deleting.
func (s *Selection) OpenDelete(primaryKeys map[string]any, label string) (SelectionRecord, error) {
	return s.store.OpenDelete(s.key, primaryKeys, label)
}

// Reset moves the selection back to Idle.
func (s *Selection) Reset() { s.store.Reset(s.key) }
