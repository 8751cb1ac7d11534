package adminkit

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
)

// fakeAPI is an in-memory ResourceAPI. Unset handlers return zero values.
type fakeAPI struct {
	mu    sync.Mutex
	calls []string

	list     func(resource string, q url.Values) (ListResult, error)
	detail   func(resource, id string) (Row, error)
	edit     func(resource, id string) (Row, error)
	create   func(resource string, payload any) (Row, error)
	update   func(resource, id string, payload any) (Row, error)
	remove   func(resource, id string) error
	upload   func(resource, field, filename string, r io.Reader) (Row, error)
	unupload func(resource, id string) error
}

func (f *fakeAPI) record(format string, args ...any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeAPI) List(_ context.Context, resource string, q url.Values) (ListResult, error) {
	f.record("list %s %s", resource, q.Encode())
	if f.list == nil {
		return ListResult{}, nil
	}
	return f.list(resource, q)
}

func (f *fakeAPI) Detail(_ context.Context, resource, id string) (Row, error) {
	f.record("detail %s %s", resource, id)
	if f.detail == nil {
		return Row{}, nil
	}
	return f.detail(resource, id)
}

func (f *fakeAPI) GetForEdit(_ context.Context, resource, id string) (Row, error) {
	f.record("edit %s %s", resource, id)
	if f.edit == nil {
		return Row{}, nil
	}
	return f.edit(resource, id)
}

func (f *fakeAPI) Create(_ context.Context, resource string, payload any) (Row, error) {
	f.record("create %s", resource)
	if f.create == nil {
		return Row{}, nil
	}
	return f.create(resource, payload)
}

func (f *fakeAPI) Update(_ context.Context, resource, id string, payload any) (Row, error) {
	f.record("update %s %s", resource, id)
	if f.update == nil {
		return Row{}, nil
	}
	return f.update(resource, id, payload)
}

func (f *fakeAPI) Delete(_ context.Context, resource, id string) error {
	f.record("delete %s %s", resource, id)
	if f.remove == nil {
		return nil
	}
	return f.remove(resource, id)
}

func (f *fakeAPI) Upload(_ context.Context, resource, field, filename string, r io.Reader) (Row, error) {
	f.record("upload %s %s", resource, filename)
	if f.upload == nil {
		return Row{}, nil
	}
	return f.upload(resource, field, filename, r)
}

func (f *fakeAPI) DeleteUpload(_ context.Context, resource, id string) error {
	f.record("delete-upload %s %s", resource, id)
	if f.unupload == nil {
		return nil
	}
	return f.unupload(resource, id)
}

// recordingSink collects audit entries.
type recordingSink struct {
	mu      sync.Mutex
	entries []*AuditEntry
	err     error
}

func (s *recordingSink) RecordMutation(_ context.Context, entry *AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return s.err
}

func (s *recordingSink) Entries() []*AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*AuditEntry(nil), s.entries...)
}

func emailInUse() error {
	return NewError(ErrValidationFailed, "the server rejected the submitted values").
		WithStatus(422).
		WithFields(map[string]string{"email": "already in use"})
}
