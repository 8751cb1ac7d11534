package adminkit

import (
	"fmt"
	"maps"
	"math"
	"reflect"
	"slices"
	"time"
)

// SortDirection is the direction of one sort entry.
type SortDirection string

const (
	SortNone       SortDirection = ""
	SortAscending  SortDirection = "asc"
	SortDescending SortDirection = "desc"
)

// SortField is one entry of an ordered multi-column sort.
type SortField struct {
	Field     string
	Direction SortDirection
}

// QueryState is the canonical list query of a screen: paging, ordered sort
// and filters. It is a value: every With method returns a modified copy and
// leaves the receiver untouched, so a state handed to a fetch never changes
// underneath it.
type QueryState struct {
	Page     int
	PageSize int
	Sort     []SortField
	Filters  map[string]any
}

// NewQueryState creates a state on page 1 with the given page size.
func NewQueryState(pageSize int) QueryState {
	if pageSize < 1 {
		pageSize = 10
	}
	return QueryState{Page: 1, PageSize: pageSize}
}

// WithPage sets the page.
func (q QueryState) WithPage(page int) QueryState {
	q = q.clone()
	q.Page = page
	return q
}

// WithPageSize sets the page size and goes back to page 1, since the old
// page number may not exist at the new size.
func (q QueryState) WithPageSize(size int) QueryState {
	q = q.clone()
	q.PageSize = size
	q.Page = 1
	return q
}

// WithSort replaces the whole sort sequence.
func (q QueryState) WithSort(fields ...SortField) QueryState {
	q = q.clone()
	q.Sort = slices.Clone(fields)
	return q
}

// WithFilter sets one filter. Empty values (nil, "", zero time) remove the
// filter instead, so "no filter" and "empty filter" cannot be confused.
func (q QueryState) WithFilter(field string, value any) QueryState {
	q = q.clone()
	v, empty := normalizeFilterValue(value)
	if empty {
		delete(q.Filters, field)
		if len(q.Filters) == 0 {
			q.Filters = nil
		}
		return q
	}
	if q.Filters == nil {
		q.Filters = make(map[string]any)
	}
	q.Filters[field] = v
	return q
}

// WithoutFilters removes every filter.
func (q QueryState) WithoutFilters() QueryState {
	q = q.clone()
	q.Filters = nil
	return q
}

// SortDirection returns the direction field is sorted in, or SortNone.
func (q QueryState) SortDirection(field string) SortDirection {
	for _, s := range q.Sort {
		if s.Field == field {
			return s.Direction
		}
	}
	return SortNone
}

// SortIndex returns the 0-based position of field in the sort sequence,
// or -1 when field is not sorted.
func (q QueryState) SortIndex(field string) int {
	for i, s := range q.Sort {
		if s.Field == field {
			return i
		}
	}
	return -1
}

// Validate checks the invariants of the state against schema.
// A nil schema allows no filters.
func (q QueryState) Validate(schema FilterSchema) error {
	if q.Page < 1 {
		return NewError(ErrInvalidQuery, fmt.Sprintf("page must be >= 1, got %d", q.Page))
	}
	if q.PageSize < 1 {
		return NewError(ErrInvalidQuery, fmt.Sprintf("page size must be >= 1, got %d", q.PageSize))
	}
	seen := make(map[string]bool, len(q.Sort))
	for _, s := range q.Sort {
		if !validFieldName(s.Field) {
			return NewError(ErrInvalidQuery, fmt.Sprintf("invalid sort field %q", s.Field))
		}
		if seen[s.Field] {
			return NewError(ErrInvalidQuery, fmt.Sprintf("sort field %q appears twice", s.Field))
		}
		if s.Direction != SortAscending && s.Direction != SortDescending {
			return NewError(ErrInvalidQuery, fmt.Sprintf("invalid direction %q for %q", s.Direction, s.Field))
		}
		seen[s.Field] = true
	}
	for field, value := range q.Filters {
		typ, ok := schema[field]
		if !ok {
			return NewError(ErrInvalidQuery, fmt.Sprintf("field %q is not filterable", field))
		}
		if !filterValueMatches(typ, value) {
			return NewError(ErrInvalidQuery, fmt.Sprintf("filter %q expects %s, got %T", field, typ, value))
		}
	}
	return nil
}

// Equal compares two states. Times are compared with time.Equal.
func (q QueryState) Equal(other QueryState) bool {
	if q.Page != other.Page || q.PageSize != other.PageSize {
		return false
	}
	if !slices.Equal(q.Sort, other.Sort) {
		return false
	}
	if len(q.Filters) != len(other.Filters) {
		return false
	}
	for k, v := range q.Filters {
		ov, ok := other.Filters[k]
		if !ok {
			return false
		}
		if t, isTime := v.(time.Time); isTime {
			ot, ok := ov.(time.Time)
			if !ok || !t.Equal(ot) {
				return false
			}
			continue
		}
		if !reflect.DeepEqual(v, ov) {
			return false
		}
	}
	return true
}

func (q QueryState) clone() QueryState {
	q.Sort = slices.Clone(q.Sort)
	q.Filters = maps.Clone(q.Filters)
	return q
}

// normalizeFilterValue maps every integer kind to int64, floats to float64,
// strings and bools (named types included) to their base type and times to
// UTC. It reports empty for values that must not be sent. A value that
// cannot be normalized is kept as given so Validate rejects it.
func normalizeFilterValue(value any) (any, bool) {
	v, empty, err := normalizeFilter(value)
	if err != nil {
		return value, false
	}
	return v, empty
}

func normalizeFilter(value any) (any, bool, error) {
	switch v := value.(type) {
	case nil:
		return nil, true, nil
	case time.Time:
		return v.UTC(), v.IsZero(), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil, true, nil
		}
		return normalizeFilter(rv.Elem().Interface())
	case reflect.String:
		s := rv.String()
		return s, s == "", nil
	case reflect.Bool:
		return rv.Bool(), false, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), false, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return nil, false, NewError(ErrInvalidQuery, fmt.Sprintf("filter value %d overflows int64", u))
		}
		return int64(u), false, nil
	case reflect.Float32, reflect.Float64:
		return rv.Float(), false, nil
	}
	return fmt.Sprint(value), false, nil
}

func filterValueMatches(typ FilterType, value any) bool {
	switch typ {
	case FilterString:
		_, ok := value.(string)
		return ok
	case FilterInt:
		_, ok := value.(int64)
		return ok
	case FilterFloat:
		_, ok := value.(float64)
		return ok
	case FilterBool:
		_, ok := value.(bool)
		return ok
	case FilterTime:
		_, ok := value.(time.Time)
		return ok
	}
	return false
}
