package adminkit

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	method string
	path   string
	query  url.Values
	header http.Header
	body   string
}

// apiServer is a chi router that records every request it serves.
type apiServer struct {
	mu       sync.Mutex
	requests []capturedRequest
	router   chi.Router
}

func newAPIServer(t *testing.T) (*apiServer, *APIClient) {
	t.Helper()
	s := &apiServer{router: chi.NewRouter()}
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var body string
			if r.Body != nil && !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
				b, _ := io.ReadAll(r.Body)
				body = string(b)
				r.Body = io.NopCloser(strings.NewReader(body))
			}
			s.mu.Lock()
			s.requests = append(s.requests, capturedRequest{
				method: r.Method,
				path:   r.URL.EscapedPath(),
				query:  r.URL.Query(),
				header: r.Header.Clone(),
				body:   body,
			})
			s.mu.Unlock()
			next.ServeHTTP(w, r)
		})
	})
	srv := httptest.NewServer(s.router)
	t.Cleanup(srv.Close)
	return s, NewAPIClient(srv.URL+"/", WithToken("t0k"), WithDefaultScope("hr_manager"))
}

func (s *apiServer) last() capturedRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.requests[len(s.requests)-1]
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// TestAPIClientHeaders tests the scope, request id and token headers
func TestAPIClientHeaders(t *testing.T) {
	s, client := newAPIServer(t)
	s.router.Get("/employee", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, ListResult{})
	})

	ctx := WithRequestID(WithScope(context.Background(), "employee"), "req-42")
	_, err := client.List(ctx, "employee", url.Values{})
	require.NoError(t, err)

	got := s.last()
	assert.Equal(t, "employee", got.header.Get(HeaderScope))
	assert.Equal(t, "req-42", got.header.Get(HeaderRequestID))
	assert.Equal(t, "Bearer t0k", got.header.Get("Authorization"))

	_, err = client.List(context.Background(), "employee", url.Values{})
	require.NoError(t, err)
	got = s.last()
	assert.Equal(t, "hr_manager", got.header.Get(HeaderScope), "default scope")
	assert.NotEmpty(t, got.header.Get(HeaderRequestID), "generated request id")
}

// TestAPIClientList tests listing with an encoded query
func TestAPIClientList(t *testing.T) {
	s, client := newAPIServer(t)
	s.router.Get("/employee", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{
			"data": []Row{{"id": "e-1", "name": "Ada"}},
			"meta": map[string]any{"total": 31},
		})
	})

	codec := NewQueryCodec(FilterSchema{"department": FilterString})
	q := NewQueryState(25).WithSort(SortField{Field: "name", Direction: SortAscending}).WithFilter("department", "ops")
	values, err := codec.Values(q)
	require.NoError(t, err)

	res, err := client.List(context.Background(), "employee", values)
	require.NoError(t, err)
	assert.Equal(t, 31, res.Meta.Total)
	require.Len(t, res.Data, 1)
	assert.Equal(t, "Ada", res.Data[0]["name"])

	got := s.last()
	assert.Equal(t, "ops", got.query.Get("filter[department]"))
	assert.Equal(t, "25", got.query.Get("pageSize"))
	assert.Equal(t, "name", got.query.Get("sort"))
}

// TestAPIClientRecordEndpoints tests the detail and edit endpoints with composite ids
func TestAPIClientRecordEndpoints(t *testing.T) {
	s, client := newAPIServer(t)
	s.router.Get("/jobLevel/detail/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"data": Row{"source": "detail"}})
	})
	s.router.Get("/jobLevel/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"data": Row{"source": "edit"}})
	})
	ctx := context.Background()

	row, err := client.Detail(ctx, "jobLevel", "engineering,2")
	require.NoError(t, err)
	assert.Equal(t, "detail", row["source"])
	assert.Equal(t, "/jobLevel/detail/engineering,2", s.last().path)

	row, err = client.GetForEdit(ctx, "jobLevel", "r&d%2Fops,2")
	require.NoError(t, err)
	assert.Equal(t, "edit", row["source"])
	assert.Equal(t, "/jobLevel/r&d%2Fops,2", s.last().path)
}

// TestAPIClientWrites tests create, update and delete
func TestAPIClientWrites(t *testing.T) {
	s, client := newAPIServer(t)
	s.router.Post("/employee", func(w http.ResponseWriter, r *http.Request) {
		var row Row
		_ = json.NewDecoder(r.Body).Decode(&row)
		row["id"] = "e-9"
		respond(w, http.StatusCreated, map[string]any{"data": row})
	})
	s.router.Put("/employee/{id}", func(w http.ResponseWriter, r *http.Request) {
		respond(w, http.StatusOK, map[string]any{"data": Row{"id": chi.URLParam(r, "id")}})
	})
	s.router.Delete("/employee/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	ctx := context.Background()

	row, err := client.Create(ctx, "employee", map[string]any{"name": "Hedy"})
	require.NoError(t, err)
	assert.Equal(t, "e-9", row["id"])
	assert.Equal(t, "Hedy", row["name"])
	assert.JSONEq(t, `{"name":"Hedy"}`, s.last().body)

	row, err = client.Update(ctx, "employee", "e-1", map[string]any{"name": "Ada L."})
	require.NoError(t, err)
	assert.Equal(t, "e-1", row["id"])
	assert.Equal(t, http.MethodPut, s.last().method)

	require.NoError(t, client.Delete(ctx, "employee", "e-1"))
	assert.Equal(t, http.MethodDelete, s.last().method)
	assert.Equal(t, "/employee/e-1", s.last().path)
}

// TestAPIClientValidation tests field errors in error and success responses
func TestAPIClientValidation(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   map[string]any
		want   map[string]string
		msg    string
	}{
		{
			name:   "422 with messages",
			status: http.StatusUnprocessableEntity,
			body:   map[string]any{"errors": map[string]string{"email": "already in use"}},
			want:   map[string]string{"email": "already in use"},
			msg:    "the server rejected the submitted values",
		},
		{
			name:   "400 with message lists",
			status: http.StatusBadRequest,
			body: map[string]any{
				"message": "invalid employee",
				"errors":  map[string]any{"name": []string{"is required", "is too short"}},
			},
			want: map[string]string{"name": "is required; is too short"},
			msg:  "invalid employee",
		},
		{
			name:   "200 with errors",
			status: http.StatusOK,
			body:   map[string]any{"errors": map[string]string{"hiredAt": "must be in the past"}},
			want:   map[string]string{"hiredAt": "must be in the past"},
			msg:    "the server rejected the submitted values",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client := newAPIServer(t)
			s.router.Put("/employee/{id}", func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.status, tt.body)
			})

			_, err := client.Update(context.Background(), "employee", "e-1", map[string]any{})
			require.Error(t, err)
			assert.True(t, IsValidationFailed(err))
			assert.Equal(t, tt.want, FieldErrors(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.msg, e.Message)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, ActionEdit, e.Action)
		})
	}
}

// TestAPIClientStatusMapping tests how error statuses are classified
func TestAPIClientStatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		check  func(error) bool
		msg    string
	}{
		{name: "not found", status: http.StatusNotFound, body: map[string]string{}, check: IsNotFound, msg: "employee not found"},
		{name: "forbidden", status: http.StatusForbidden, body: map[string]string{}, check: IsPermissionDenied},
		{name: "server message", status: http.StatusInternalServerError, body: map[string]string{"message": "database is down"}, check: IsNetworkFailure, msg: "database is down"},
		{name: "server error field", status: http.StatusBadGateway, body: map[string]string{"error": "upstream timeout"}, check: IsNetworkFailure, msg: "upstream timeout"},
		{name: "no message", status: http.StatusServiceUnavailable, body: "", check: IsNetworkFailure, msg: "view employee: Service Unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, client := newAPIServer(t)
			s.router.Get("/employee", func(w http.ResponseWriter, r *http.Request) {
				respond(w, tt.status, tt.body)
			})

			_, err := client.List(context.Background(), "employee", url.Values{})
			require.Error(t, err)
			assert.True(t, tt.check(err), KindOf(err))

			var e *Error
			require.ErrorAs(t, err, &e)
			assert.Equal(t, tt.status, e.StatusCode)
			assert.Equal(t, "employee", e.Resource)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, e.Message)
			}
		})
	}
}

// TestAPIClientUnreachable tests transport failures
func TestAPIClientUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()

	client := NewAPIClient(srv.URL)
	_, err := client.List(context.Background(), "employee", url.Values{})
	require.Error(t, err)
	assert.True(t, IsNetworkFailure(err))

	err = client.Delete(context.Background(), "employee", "e-1")
	assert.True(t, IsNetworkFailure(err))
}

// TestAPIClientUpload tests multipart uploads
func TestAPIClientUpload(t *testing.T) {
	s, client := newAPIServer(t)
	var gotName, gotContent string
	s.router.Put("/employee/upload", func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		defer file.Close()
		b, _ := io.ReadAll(file)
		gotName, gotContent = header.Filename, string(b)
		respond(w, http.StatusOK, map[string]any{"data": Row{"rows": 2}})
	})
	s.router.Delete("/employee/upload/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	row, err := client.Upload(context.Background(), "employee", "file", "staff.csv", strings.NewReader("name\nAda\nGrace\n"))
	require.NoError(t, err)
	assert.Equal(t, float64(2), row["rows"])
	assert.Equal(t, "staff.csv", gotName)
	assert.Equal(t, "name\nAda\nGrace\n", gotContent)

	require.NoError(t, client.DeleteUpload(context.Background(), "employee", "u-1"))
	assert.Equal(t, "/employee/upload/u-1", s.last().path)
}

// TestAPIClientCompositeIDsStayDistinct tests that keys containing commas reach different records
func TestAPIClientCompositeIDsStayDistinct(t *testing.T) {
	s, client := newAPIServer(t)
	var (
		mu   sync.Mutex
		seen [][]string
	)
	s.router.Delete("/membership/{id}", func(w http.ResponseWriter, r *http.Request) {
		parts, err := ParseRecordID(chi.URLParam(r, "id"))
		if err != nil {
			respond(w, http.StatusBadRequest, map[string]string{"message": err.Error()})
			return
		}
		mu.Lock()
		seen = append(seen, parts)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	})
	d := EntityDescriptor{Key: "membership", Resource: "membership", PrimaryKeys: []string{"team", "member"}}
	ctx := context.Background()

	first := d.RecordID(map[string]any{"team": "a,b", "member": "c"})
	second := d.RecordID(map[string]any{"team": "a", "member": "b,c"})
	require.NotEqual(t, first, second)

	require.NoError(t, client.Delete(ctx, "membership", first))
	assert.Equal(t, "/membership/a%2Cb,c", s.last().path)
	require.NoError(t, client.Delete(ctx, "membership", second))
	assert.Equal(t, "/membership/a,b%2Cc", s.last().path)

	assert.Equal(t, [][]string{{"a,b", "c"}, {"a", "b,c"}}, seen)
}

// TestFlattenFieldErrors tests both field error shapes
func TestFlattenFieldErrors(t *testing.T) {
	got := flattenFieldErrors(map[string]any{
		"email": "already in use",
		"name":  []any{"is required", "is too short"},
		"age":   float64(3),
	})
	assert.Equal(t, map[string]string{
		"email": "already in use",
		"name":  "is required; is too short",
		"age":   "3",
	}, got)
}
