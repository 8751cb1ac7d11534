package adminkit

import (
	"context"
	"encoding/json"
	"maps"
	"sort"
	"sync"
)

// TableConfig is the per-entity column visibility and multi-sort preference.
type TableConfig struct {
	Columns   map[string]bool `json:"columns"`
	MultiSort bool            `json:"multiSort"`
}

// VisibleColumns returns the visible column keys in the order of columns.
func (c TableConfig) VisibleColumns(columns []Column) []Column {
	out := make([]Column, 0, len(columns))
	for _, col := range columns {
		if visible, ok := c.Columns[col.Key]; ok && visible {
			out = append(out, col)
		}
	}
	return out
}

// MergeTableConfig combines the entity defaults with a stored config.
// Stored flags win for columns that still exist; columns added since the
// config was stored get their default; columns that no longer exist are
// dropped. MultiSort comes from stored when stored is present.
func MergeTableConfig(defaults TableConfig, stored *TableConfig) TableConfig {
	merged := TableConfig{Columns: maps.Clone(defaults.Columns), MultiSort: defaults.MultiSort}
	if merged.Columns == nil {
		merged.Columns = make(map[string]bool)
	}
	if stored == nil {
		return merged
	}
	for key, visible := range stored.Columns {
		if _, known := merged.Columns[key]; known {
			merged.Columns[key] = visible
		}
	}
	merged.MultiSort = stored.MultiSort
	return merged
}

func encodeTableConfig(cfg TableConfig) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decodeTableConfig(raw string) (TableConfig, error) {
	var cfg TableConfig
	err := json.Unmarshal([]byte(raw), &cfg)
	return cfg, err
}

// MemoryTableConfigStore keeps table configs in process memory.
// Useful for tests and for hosts without durable storage.
type MemoryTableConfigStore struct {
	mu      sync.RWMutex
	configs map[string]TableConfig
}

// NewMemoryTableConfigStore creates an empty in-memory store.
func NewMemoryTableConfigStore() *MemoryTableConfigStore {
	return &MemoryTableConfigStore{configs: make(map[string]TableConfig)}
}

// Load implements TableConfigStore.
func (m *MemoryTableConfigStore) Load(_ context.Context, entityKey string) (*TableConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cfg, ok := m.configs[entityKey]
	if !ok {
		return nil, nil
	}
	cfg.Columns = maps.Clone(cfg.Columns)
	return &cfg, nil
}

// Save implements TableConfigStore.
func (m *MemoryTableConfigStore) Save(_ context.Context, entityKey string, cfg TableConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.Columns = maps.Clone(cfg.Columns)
	m.configs[entityKey] = cfg
	return nil
}

// Keys returns the stored entity keys, sorted.
func (m *MemoryTableConfigStore) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.configs))
	for k := range m.configs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// LoadTableConfig reads the stored config of desc and merges it with the
// descriptor defaults. A nil store yields the defaults.
func LoadTableConfig(ctx context.Context, store TableConfigStore, desc EntityDescriptor) (TableConfig, error) {
	defaults := desc.DefaultTableConfig()
	if store == nil {
		return defaults, nil
	}
	stored, err := store.Load(ctx, desc.Key)
	if err != nil {
		return defaults, err
	}
	return MergeTableConfig(defaults, stored), nil
}
