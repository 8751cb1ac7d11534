package adminkit

import (
	"fmt"
	"maps"
	"slices"
	"sync"
)

// ListResult is what the list endpoint returns for one page.
type ListResult struct {
	Data []Row    `json:"data"`
	Meta ListMeta `json:"meta"`
}

// ListMeta carries the total row count across all pages.
type ListMeta struct {
	Total int `json:"total"`
}

// Pagination is derived from the current state and the last known total.
type Pagination struct {
	Page           int
	PageSize       int
	TotalCount     int
	TotalPages     int
	ShowPagination bool
}

// ComputePagination derives page counts for total rows at pageSize.
func ComputePagination(page, pageSize, total int) Pagination {
	p := Pagination{Page: page, PageSize: pageSize, TotalCount: total}
	if pageSize > 0 && total > 0 {
		p.TotalPages = (total + pageSize - 1) / pageSize
	}
	p.ShowPagination = total > pageSize
	return p
}

// TableEngine owns the paging, sort and filter state of one entity's list.
//
// Every change produces a new QueryState and notifies the OnChange
// subscribers, which are expected to refetch the list. The engine itself
// performs no I/O.
type TableEngine struct {
	mu        sync.Mutex
	desc      EntityDescriptor
	state     QueryState
	multiSort bool
	rows      []Row
	total     int
	listeners []func(QueryState)
}

// NewTableEngine creates an engine for desc using the visibility and
// multi-sort settings of cfg.
func NewTableEngine(desc EntityDescriptor, cfg TableConfig) *TableEngine {
	return &TableEngine{
		desc:      desc,
		state:     NewQueryState(desc.PageSize()),
		multiSort: cfg.MultiSort,
	}
}

// State returns the current query state.
func (e *TableEngine) State() QueryState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.clone()
}

// Restore replaces the whole state, e.g. with one decoded from a shared
// link. Sort fields must be sortable columns and filters must match the
// descriptor's schema.
func (e *TableEngine) Restore(q QueryState) (QueryState, error) {
	if err := q.Validate(e.desc.Filters); err != nil {
		return e.State(), err
	}
	for _, s := range q.Sort {
		if !e.desc.SortableColumn(s.Field) {
			return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("column %q is not sortable", s.Field)).WithEntity(e.desc.Key)
		}
	}
	return e.update(func(QueryState) QueryState {
		if !e.multiSort && len(q.Sort) > 1 {
			return q.WithSort(q.Sort[0])
		}
		return q.clone()
	}), nil
}

// OnChange registers fn to be called with every new state.
func (e *TableEngine) OnChange(fn func(QueryState)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// MultiSort reports whether several columns can be sorted at once.
func (e *TableEngine) MultiSort() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.multiSort
}

// SetMultiSort switches multi-column sorting. Turning it off keeps only the
// highest priority sort entry.
func (e *TableEngine) SetMultiSort(enabled bool) QueryState {
	return e.update(func(q QueryState) QueryState {
		e.multiSort = enabled
		if !enabled && len(q.Sort) > 1 {
			return q.WithSort(q.Sort[0])
		}
		return q
	})
}

// ApplyConfig applies a merged table config.
func (e *TableEngine) ApplyConfig(cfg TableConfig) QueryState {
	return e.SetMultiSort(cfg.MultiSort)
}

// ToggleSort advances field through the cycle none -> asc -> desc -> none.
//
// An unsorted field is appended at the end of the sort sequence, or replaces
// the whole sequence when multi-sort is off. An ascending field flips to
// descending in place. A descending field is removed.
func (e *TableEngine) ToggleSort(field string) (QueryState, error) {
	if !e.desc.SortableColumn(field) {
		return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("column %q is not sortable", field)).WithEntity(e.desc.Key)
	}
	return e.update(func(q QueryState) QueryState {
		idx := q.SortIndex(field)
		switch {
		case idx < 0 && e.multiSort:
			return q.WithSort(append(slices.Clone(q.Sort), SortField{Field: field, Direction: SortAscending})...)
		case idx < 0:
			return q.WithSort(SortField{Field: field, Direction: SortAscending})
		case q.Sort[idx].Direction == SortAscending:
			sort := slices.Clone(q.Sort)
			sort[idx].Direction = SortDescending
			return q.WithSort(sort...)
		default:
			return q.WithSort(slices.Delete(slices.Clone(q.Sort), idx, idx+1)...)
		}
	}), nil
}

// SortDirection returns the current direction of field.
func (e *TableEngine) SortDirection(field string) SortDirection {
	return e.State().SortDirection(field)
}

// SortIndex returns the priority of field in the sort sequence, or -1.
func (e *TableEngine) SortIndex(field string) int {
	return e.State().SortIndex(field)
}

// SetPage moves to page. Pages start at 1.
func (e *TableEngine) SetPage(page int) (QueryState, error) {
	if page < 1 {
		return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("page must be >= 1, got %d", page)).WithEntity(e.desc.Key)
	}
	return e.update(func(q QueryState) QueryState {
		return q.WithPage(page)
	}), nil
}

// SetPageSize changes the page size and resets the page to 1.
func (e *TableEngine) SetPageSize(size int) (QueryState, error) {
	if size < 1 {
		return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("page size must be >= 1, got %d", size)).WithEntity(e.desc.Key)
	}
	return e.update(func(q QueryState) QueryState {
		return q.WithPageSize(size)
	}), nil
}

// SetFilter sets or clears (with an empty value) one filter and resets the
// page to 1. Only fields declared in the descriptor's filter schema are allowed.
func (e *TableEngine) SetFilter(field string, value any) (QueryState, error) {
	typ, ok := e.desc.Filters[field]
	if !ok {
		return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("field %q is not filterable", field)).WithEntity(e.desc.Key)
	}
	if _, _, err := normalizeFilter(value); err != nil {
		return e.State(), err.(*Error).WithEntity(e.desc.Key)
	}
	next := e.State().WithFilter(field, value)
	if v, set := next.Filters[field]; set && !filterValueMatches(typ, v) {
		return e.State(), NewError(ErrInvalidQuery, fmt.Sprintf("filter %q expects %s, got %T", field, typ, value)).WithEntity(e.desc.Key)
	}
	return e.update(func(q QueryState) QueryState {
		q = q.WithFilter(field, value)
		q.Page = 1
		return q
	}), nil
}

// ClearFilters removes all filters and resets the page to 1.
func (e *TableEngine) ClearFilters() QueryState {
	return e.update(func(q QueryState) QueryState {
		q = q.WithoutFilters()
		q.Page = 1
		return q
	})
}

// Reconcile stores a list response. When the current page lies past the last
// page (rows were deleted elsewhere) the page is clamped and Reconcile returns
// true: the caller should fetch again with the new state.
func (e *TableEngine) Reconcile(res ListResult) bool {
	e.mu.Lock()
	e.rows = slices.Clone(res.Data)
	e.total = max(res.Meta.Total, 0)
	p := ComputePagination(e.state.Page, e.state.PageSize, e.total)
	last := max(p.TotalPages, 1)
	if e.state.Page <= last {
		e.mu.Unlock()
		return false
	}
	e.state = e.state.WithPage(last)
	state, listeners := e.state.clone(), slices.Clone(e.listeners)
	e.mu.Unlock()

	notify(listeners, state)
	return true
}

// Rows returns the rows of the last reconciled page.
func (e *TableEngine) Rows() []Row {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]Row, len(e.rows))
	for i, r := range e.rows {
		out[i] = maps.Clone(r)
	}
	return out
}

// Pagination returns page counts for the last reconciled total.
func (e *TableEngine) Pagination() Pagination {
	e.mu.Lock()
	defer e.mu.Unlock()
	return ComputePagination(e.state.Page, e.state.PageSize, e.total)
}

// update applies fn under the lock and notifies listeners outside it.
func (e *TableEngine) update(fn func(QueryState) QueryState) QueryState {
	e.mu.Lock()
	next := fn(e.state.clone())
	e.state = next
	state, listeners := next.clone(), slices.Clone(e.listeners)
	e.mu.Unlock()

	notify(listeners, state)
	return state
}

func notify(listeners []func(QueryState), state QueryState) {
	for _, fn := range listeners {
		fn(state.clone())
	}
}
