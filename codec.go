package adminkit

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Wire parameter names of an encoded QueryState.
const (
	paramPage     = "page"
	paramPageSize = "pageSize"
	paramSort     = "sort"
	filterPrefix  = "filter["
	filterSuffix  = "]"
)

// QueryCodec converts a QueryState to and from the query string of the list
// endpoint:
//
//	filter[dept]=ops&filter[since]=2024-01-02T03:04:05Z&page=2&pageSize=25&sort=name,-createdAt
//
// Sort entries are comma separated in priority order, a leading "-" meaning
// descending. Filter values carry no type tag: the schema declares each
// field's type, which is what makes Decode(Encode(q)) lossless.
type QueryCodec struct {
	schema FilterSchema
}

// NewQueryCodec creates a codec for the filterable fields in schema.
func NewQueryCodec(schema FilterSchema) *QueryCodec {
	return &QueryCodec{schema: schema}
}

// Schema returns the filter schema of the codec.
func (c *QueryCodec) Schema() FilterSchema {
	return c.schema
}

// Values validates q and returns its wire parameters.
func (c *QueryCodec) Values(q QueryState) (url.Values, error) {
	if err := q.Validate(c.schema); err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set(paramPage, strconv.Itoa(q.Page))
	v.Set(paramPageSize, strconv.Itoa(q.PageSize))

	if len(q.Sort) > 0 {
		parts := make([]string, 0, len(q.Sort))
		for _, s := range q.Sort {
			if s.Direction == SortDescending {
				parts = append(parts, "-"+s.Field)
			} else {
				parts = append(parts, s.Field)
			}
		}
		v.Set(paramSort, strings.Join(parts, ","))
	}

	for field, value := range q.Filters {
		encoded, ok := encodeFilterValue(value)
		if !ok {
			continue
		}
		v.Set(filterPrefix+field+filterSuffix, encoded)
	}
	return v, nil
}

// Encode returns the canonical query string of q. Parameters are sorted by
// name, so equal states always encode to the same string.
func (c *QueryCodec) Encode(q QueryState) (string, error) {
	v, err := c.Values(q)
	if err != nil {
		return "", err
	}
	return v.Encode(), nil
}

// Decode parses a query string produced by Encode.
func (c *QueryCodec) Decode(raw string) (QueryState, error) {
	values, err := url.ParseQuery(strings.TrimPrefix(raw, "?"))
	if err != nil {
		return QueryState{}, NewError(ErrInvalidQuery, err.Error())
	}
	return c.FromValues(values)
}

// FromValues builds a QueryState from already parsed parameters.
// Missing page and page size default to 1 and 10.
func (c *QueryCodec) FromValues(values url.Values) (QueryState, error) {
	q := NewQueryState(10)

	for name, vals := range values {
		if len(vals) == 0 {
			continue
		}
		raw := vals[len(vals)-1]
		switch {
		case name == paramPage:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return QueryState{}, NewError(ErrInvalidQuery, fmt.Sprintf("page %q is not a number", raw))
			}
			q.Page = n
		case name == paramPageSize:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return QueryState{}, NewError(ErrInvalidQuery, fmt.Sprintf("page size %q is not a number", raw))
			}
			q.PageSize = n
		case name == paramSort:
			sort, err := decodeSort(raw)
			if err != nil {
				return QueryState{}, err
			}
			q.Sort = sort
		case strings.HasPrefix(name, filterPrefix) && strings.HasSuffix(name, filterSuffix):
			field := strings.TrimSuffix(strings.TrimPrefix(name, filterPrefix), filterSuffix)
			typ, ok := c.schema[field]
			if !ok {
				return QueryState{}, NewError(ErrInvalidQuery, fmt.Sprintf("field %q is not filterable", field))
			}
			value, err := decodeFilterValue(typ, raw)
			if err != nil {
				return QueryState{}, NewError(ErrInvalidQuery, fmt.Sprintf("filter %q: %v", field, err))
			}
			q = q.WithFilter(field, value)
		}
	}

	if err := q.Validate(c.schema); err != nil {
		return QueryState{}, err
	}
	return q, nil
}

func decodeSort(raw string) ([]SortField, error) {
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]SortField, 0, len(parts))
	for _, p := range parts {
		dir := SortAscending
		if strings.HasPrefix(p, "-") {
			dir = SortDescending
			p = p[1:]
		}
		if !validFieldName(p) {
			return nil, NewError(ErrInvalidQuery, fmt.Sprintf("invalid sort field %q", p))
		}
		out = append(out, SortField{Field: p, Direction: dir})
	}
	return out, nil
}

func encodeFilterValue(value any) (string, bool) {
	switch v := value.(type) {
	case string:
		return v, v != ""
	case int64:
		return strconv.FormatInt(v, 10), true
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), true
	case bool:
		return strconv.FormatBool(v), true
	case time.Time:
		if v.IsZero() {
			return "", false
		}
		return v.UTC().Format(time.RFC3339Nano), true
	}
	return "", false
}

func decodeFilterValue(typ FilterType, raw string) (any, error) {
	switch typ {
	case FilterString:
		return raw, nil
	case FilterInt:
		return strconv.ParseInt(raw, 10, 64)
	case FilterFloat:
		return strconv.ParseFloat(raw, 64)
	case FilterBool:
		return strconv.ParseBool(raw)
	case FilterTime:
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return nil, err
		}
		return t.UTC(), nil
	}
	return nil, fmt.Errorf("unknown filter type %q", typ)
}
