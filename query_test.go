package adminkit

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestQueryStateWithMethodsCopy tests that With methods leave the receiver untouched
func TestQueryStateWithMethodsCopy(t *testing.T) {
	base := NewQueryState(25).
		WithSort(SortField{Field: "name", Direction: SortAscending}).
		WithFilter("department", "ops")

	next := base.WithPage(3).
		WithSort(SortField{Field: "email", Direction: SortDescending}).
		WithFilter("department", "eng").
		WithFilter("active", true)

	assert.Equal(t, 1, base.Page)
	assert.Equal(t, []SortField{{Field: "name", Direction: SortAscending}}, base.Sort)
	assert.Equal(t, map[string]any{"department": "ops"}, base.Filters)

	assert.Equal(t, 3, next.Page)
	assert.Equal(t, "eng", next.Filters["department"])
}

// TestQueryStateWithPageSizeResetsPage tests that changing the page size goes back to page 1
func TestQueryStateWithPageSizeResetsPage(t *testing.T) {
	q := NewQueryState(10).WithPage(4).WithPageSize(50)
	assert.Equal(t, 1, q.Page)
	assert.Equal(t, 50, q.PageSize)
}

// TestQueryStateDefaultPageSize tests the fallback page size
func TestQueryStateDefaultPageSize(t *testing.T) {
	assert.Equal(t, 10, NewQueryState(0).PageSize)
	assert.Equal(t, 10, NewQueryState(-3).PageSize)
}

// TestQueryStateWithFilterEmptyValues tests that empty values remove the filter
func TestQueryStateWithFilterEmptyValues(t *testing.T) {
	var nilString *string
	var nilTime *time.Time

	q := NewQueryState(10).WithFilter("department", "ops")
	for _, empty := range []any{nil, "", time.Time{}, nilString, nilTime} {
		assert.Nil(t, q.WithFilter("department", empty).Filters, "%T", empty)
	}

	ops := "ops"
	assert.Equal(t, "ops", NewQueryState(10).WithFilter("department", &ops).Filters["department"])
}

// TestQueryStateWithFilterNormalizes tests numeric and time normalization
func TestQueryStateWithFilterNormalizes(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	at := time.Date(2024, 3, 1, 10, 0, 0, 0, loc)

	q := NewQueryState(10).
		WithFilter("grade", 3).
		WithFilter("score", float32(1.5)).
		WithFilter("hiredAt", at)

	assert.Equal(t, int64(3), q.Filters["grade"])
	assert.Equal(t, float64(1.5), q.Filters["score"])
	assert.Equal(t, time.UTC, q.Filters["hiredAt"].(time.Time).Location())
	assert.True(t, at.Equal(q.Filters["hiredAt"].(time.Time)))
}

type employmentStatus string

type jobGrade int64

type headcount uint

// TestQueryStateWithFilterNamedTypes tests that named and unsigned kinds normalize by kind
func TestQueryStateWithFilterNamedTypes(t *testing.T) {
	active := employmentStatus("active")

	tests := []struct {
		name  string
		value any
		want  any
		empty bool
	}{
		{"named string", employmentStatus("active"), "active", false},
		{"empty named string", employmentStatus(""), nil, true},
		{"pointer to named string", &active, "active", false},
		{"named int64", jobGrade(3), int64(3), false},
		{"named uint", headcount(12), int64(12), false},
		{"uint64", uint64(7), int64(7), false},
		{"uint8", uint8(255), int64(255), false},
		{"max int64 as uint64", uint64(math.MaxInt64), int64(math.MaxInt64), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := NewQueryState(10).WithFilter("department", "ops").WithFilter("field", tt.value)
			got, set := q.Filters["field"]
			assert.Equal(t, !tt.empty, set)
			if !tt.empty {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

// TestQueryStateWithFilterUnsignedOverflow tests that unsigned values past int64 are rejected
func TestQueryStateWithFilterUnsignedOverflow(t *testing.T) {
	schema := FilterSchema{"grade": FilterInt}
	q := NewQueryState(10).WithFilter("grade", uint64(math.MaxInt64)+1)
	assert.ErrorIs(t, q.Validate(schema), ErrInvalidQuery)

	_, err := NewQueryCodec(schema).Encode(q)
	assert.ErrorIs(t, err, ErrInvalidQuery)
}

// TestQueryStateSortLookup tests SortDirection and SortIndex
func TestQueryStateSortLookup(t *testing.T) {
	q := NewQueryState(10).WithSort(
		SortField{Field: "name", Direction: SortAscending},
		SortField{Field: "hiredAt", Direction: SortDescending},
	)

	assert.Equal(t, SortAscending, q.SortDirection("name"))
	assert.Equal(t, SortDescending, q.SortDirection("hiredAt"))
	assert.Equal(t, SortNone, q.SortDirection("email"))
	assert.Equal(t, 0, q.SortIndex("name"))
	assert.Equal(t, 1, q.SortIndex("hiredAt"))
	assert.Equal(t, -1, q.SortIndex("email"))
}

// TestQueryStateValidate tests the state invariants
func TestQueryStateValidate(t *testing.T) {
	schema := FilterSchema{"department": FilterString, "grade": FilterInt}
	valid := NewQueryState(10)

	tests := []struct {
		name  string
		state QueryState
	}{
		{"page zero", valid.WithPage(0)},
		{"page size zero", QueryState{Page: 1, PageSize: 0}},
		{"bad sort field", valid.WithSort(SortField{Field: "na me", Direction: SortAscending})},
		{"duplicate sort field", valid.WithSort(
			SortField{Field: "name", Direction: SortAscending},
			SortField{Field: "name", Direction: SortDescending})},
		{"bad direction", valid.WithSort(SortField{Field: "name", Direction: "up"})},
		{"unknown filter", valid.WithFilter("salary", "high")},
		{"wrong filter type", valid.WithFilter("grade", "three")},
	}

	require.NoError(t, valid.Validate(schema))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, tt.state.Validate(schema), ErrInvalidQuery)
		})
	}
}

// TestQueryStateEqual tests value equality
func TestQueryStateEqual(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	a := NewQueryState(10).WithFilter("since", at).WithFilter("department", "ops")
	b := NewQueryState(10).WithFilter("department", "ops").WithFilter("since", at.In(time.FixedZone("X", 7200)))

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(b.WithPage(2)))
	assert.False(t, a.Equal(b.WithFilter("department", "eng")))
	assert.False(t, a.Equal(b.WithSort(SortField{Field: "name", Direction: SortAscending})))
	assert.False(t, a.Equal(a.WithoutFilters()))
}
