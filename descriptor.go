package adminkit

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// Row is one record as returned by the list and detail endpoints.
type Row map[string]any

// Column describes one table column of an entity screen.
type Column struct {
	Key      string `yaml:"key"`
	Title    string `yaml:"title"`
	Visible  bool   `yaml:"visible"` // default visibility, users may override it in TableConfig
	Sortable bool   `yaml:"sortable"`
}

// FilterType declares how a filter value is typed on the wire.
type FilterType string

const (
	FilterString FilterType = "string"
	FilterInt    FilterType = "int"
	FilterFloat  FilterType = "float"
	FilterBool   FilterType = "bool"
	FilterTime   FilterType = "time"
)

// FilterSchema maps each filterable field to its type.
type FilterSchema map[string]FilterType

// EntityDescriptor is everything the generic components need to know about
// one entity type. Screens are composed from a descriptor instead of
// duplicating per-entity controllers.
type EntityDescriptor struct {
	// Key distinguishes this entity's UI state from every other entity's.
	Key string `yaml:"key"`
	// Resource is the permission resource and the API path segment.
	Resource string `yaml:"resource"`
	// Module is passed through to the resolver.
	Module string `yaml:"module"`
	// PrimaryKeys lists the identifying fields, in path order.
	PrimaryKeys []string `yaml:"primaryKeys"`
	// Title names the entity in menus. Defaults to Key.
	Title string `yaml:"title"`
	// Icon is a capability key resolved through a CapabilityRegistry.
	Icon string `yaml:"icon"`
	// LabelField is shown in confirmation dialogs and modal titles.
	LabelField string       `yaml:"labelField"`
	Filters    FilterSchema `yaml:"filters"`
	Columns    []Column     `yaml:"columns"`
	MultiSort  bool         `yaml:"multiSort"`
	// DefaultPageSize defaults to 10.
	DefaultPageSize int `yaml:"defaultPageSize"`
	// QueryKeyPrefix is the first segment of every cached query of this
	// entity. Defaults to Resource.
	QueryKeyPrefix string `yaml:"queryKeyPrefix"`
}

var fieldNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.]*$`)

// validFieldName reports whether name can be used as a sort or filter field.
func validFieldName(name string) bool {
	return fieldNamePattern.MatchString(name)
}

// Validate checks the descriptor is complete enough to drive a screen.
func (d EntityDescriptor) Validate() error {
	if d.Key == "" {
		return NewError(ErrInvalidDescriptor, "key is required")
	}
	if d.Resource == "" || strings.Contains(d.Resource, "/") {
		return NewError(ErrInvalidDescriptor, "resource must be a single path segment").WithEntity(d.Key)
	}
	if len(d.PrimaryKeys) == 0 {
		return NewError(ErrInvalidDescriptor, "at least one primary key is required").WithEntity(d.Key)
	}
	seen := make(map[string]bool, len(d.Columns))
	for _, c := range d.Columns {
		if c.Key == "" || seen[c.Key] {
			return NewError(ErrInvalidDescriptor, fmt.Sprintf("duplicate or empty column %q", c.Key)).WithEntity(d.Key)
		}
		seen[c.Key] = true
	}
	for field, typ := range d.Filters {
		if !validFieldName(field) {
			return NewError(ErrInvalidDescriptor, fmt.Sprintf("invalid filter field %q", field)).WithEntity(d.Key)
		}
		switch typ {
		case FilterString, FilterInt, FilterFloat, FilterBool, FilterTime:
		default:
			return NewError(ErrInvalidDescriptor, fmt.Sprintf("filter %q has unknown type %q", field, typ)).WithEntity(d.Key)
		}
	}
	if d.DefaultPageSize < 0 {
		return NewError(ErrInvalidDescriptor, "default page size cannot be negative").WithEntity(d.Key)
	}
	return nil
}

// PageSize returns the default page size.
func (d EntityDescriptor) PageSize() int {
	if d.DefaultPageSize > 0 {
		return d.DefaultPageSize
	}
	return 10
}

// QueryPrefix returns the cache key prefix for this entity.
func (d EntityDescriptor) QueryPrefix() string {
	if d.QueryKeyPrefix != "" {
		return d.QueryKeyPrefix
	}
	return d.Resource
}

// SortableColumn reports whether field is a sortable column. Descriptors
// without columns accept every well formed field name.
func (d EntityDescriptor) SortableColumn(field string) bool {
	if !validFieldName(field) {
		return false
	}
	if len(d.Columns) == 0 {
		return true
	}
	for _, c := range d.Columns {
		if c.Key == field {
			return c.Sortable
		}
	}
	return false
}

// DefaultTableConfig returns the column visibility declared on the descriptor.
func (d EntityDescriptor) DefaultTableConfig() TableConfig {
	cfg := TableConfig{Columns: make(map[string]bool, len(d.Columns)), MultiSort: d.MultiSort}
	for _, c := range d.Columns {
		cfg.Columns[c.Key] = c.Visible
	}
	return cfg
}

// PrimaryKeysOf extracts the primary key values of row.
func (d EntityDescriptor) PrimaryKeysOf(row Row) (map[string]any, error) {
	keys := make(map[string]any, len(d.PrimaryKeys))
	for _, field := range d.PrimaryKeys {
		v, ok := row[field]
		if !ok || v == nil || v == "" {
			return nil, NewError(ErrPreconditionFailed, fmt.Sprintf("row has no value for primary key %q", field)).
				WithEntity(d.Key)
		}
		keys[field] = v
	}
	return keys, nil
}

// LabelOf returns the display label of row, falling back to its record id.
func (d EntityDescriptor) LabelOf(row Row) string {
	if d.LabelField != "" {
		if v, ok := row[d.LabelField]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	keys, err := d.PrimaryKeysOf(row)
	if err != nil {
		return ""
	}
	return strings.Join(d.keyParts(keys), ",")
}

// RecordID builds the path id for primaryKeys. Each key is path-escaped
// and the parts are joined with "," in PrimaryKeys order. A "," inside a
// key is escaped as %2C, so distinct keys never share an id.
func (d EntityDescriptor) RecordID(primaryKeys map[string]any) string {
	parts := d.keyParts(primaryKeys)
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, ",")
}

func (d EntityDescriptor) keyParts(primaryKeys map[string]any) []string {
	parts := make([]string, 0, len(d.PrimaryKeys))
	for _, field := range d.PrimaryKeys {
		parts = append(parts, fmt.Sprint(primaryKeys[field]))
	}
	return parts
}

// ParseRecordID splits an id built by RecordID back into its unescaped
// key parts.
func ParseRecordID(id string) ([]string, error) {
	parts := strings.Split(id, ",")
	for i, p := range parts {
		v, err := url.PathUnescape(p)
		if err != nil {
			return nil, NewError(ErrInvalidQuery, fmt.Sprintf("malformed record id %q", id))
		}
		parts[i] = v
	}
	return parts, nil
}

// MatchesRecordID reports whether row is the record id names.
func (d EntityDescriptor) MatchesRecordID(row Row, id string) bool {
	keys, err := d.PrimaryKeysOf(row)
	if err != nil {
		return false
	}
	parts, err := ParseRecordID(id)
	if err != nil {
		return false
	}
	return slices.Equal(d.keyParts(keys), parts)
}
