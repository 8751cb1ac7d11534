package adminkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Headers sent with every API request.
const (
	HeaderScope     = "X-Scope"
	HeaderRequestID = "X-Request-ID"
)

// writeEnvelope is the body of create, update and upload responses. Errors
// is set when the server rejected the payload field by field.
type writeEnvelope struct {
	Data    Row            `json:"data"`
	Errors  map[string]any `json:"errors,omitempty"`
	Message string         `json:"message,omitempty"`
}

type detailEnvelope struct {
	Data Row `json:"data"`
}

// APIClient talks to the resource API over HTTP. It implements ResourceAPI.
type APIClient struct {
	http   *resty.Client
	scope  Scope
	logger *zap.Logger
}

type clientConfig struct {
	token         string
	scope         Scope
	timeout       time.Duration
	retryCount    int
	retryWait     time.Duration
	retryMaxWait  time.Duration
	logger        *zap.Logger
	httpClient    *http.Client
	requestHeader map[string]string
}

// ClientOption configures an APIClient.
type ClientOption func(*clientConfig)

// WithToken sends token as a bearer token.
func WithToken(token string) ClientOption {
	return func(c *clientConfig) { c.token = token }
}

// WithDefaultScope sets the X-Scope header used when the request context
// carries no scope.
func WithDefaultScope(scope Scope) ClientOption {
	return func(c *clientConfig) { c.scope = scope }
}

// WithTimeout sets the per-request timeout (default 15s).
func WithTimeout(d time.Duration) ClientOption {
	return func(c *clientConfig) { c.timeout = d }
}

// WithRetry retries transport failures count times, waiting between wait and maxWait.
func WithRetry(count int, wait, maxWait time.Duration) ClientOption {
	return func(c *clientConfig) {
		c.retryCount = count
		c.retryWait = wait
		c.retryMaxWait = maxWait
	}
}

// WithClientLogger sets the logger.
func WithClientLogger(logger *zap.Logger) ClientOption {
	return func(c *clientConfig) { c.logger = logger }
}

// WithHTTPClient uses hc as the underlying transport client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *clientConfig) { c.httpClient = hc }
}

// WithHeader adds a static header to every request.
func WithHeader(name, value string) ClientOption {
	return func(c *clientConfig) { c.requestHeader[name] = value }
}

// NewAPIClient creates a client for the API at baseURL.
func NewAPIClient(baseURL string, opts ...ClientOption) *APIClient {
	cfg := &clientConfig{
		timeout:       15 * time.Second,
		retryWait:     500 * time.Millisecond,
		retryMaxWait:  5 * time.Second,
		requestHeader: make(map[string]string),
	}
	for _, opt := range opts {
		opt(cfg)
	}

	var rc *resty.Client
	if cfg.httpClient != nil {
		rc = resty.NewWithClient(cfg.httpClient)
	} else {
		rc = resty.New()
	}
	rc.SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(cfg.timeout).
		SetRetryCount(cfg.retryCount).
		SetRetryWaitTime(cfg.retryWait).
		SetRetryMaxWaitTime(cfg.retryMaxWait).
		SetHeader("Accept", "application/json")
	if cfg.token != "" {
		rc.SetAuthToken(cfg.token)
	}
	for k, v := range cfg.requestHeader {
		rc.SetHeader(k, v)
	}

	return &APIClient{
		http:   rc,
		scope:  cfg.scope,
		logger: nopIfNil(cfg.logger),
	}
}

// request prepares a request carrying the scope and a request id.
func (c *APIClient) request(ctx context.Context) *resty.Request {
	requestID := GetRequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	scope := GetScope(ctx)
	if scope == "" {
		scope = c.scope
	}

	r := c.http.R().SetContext(ctx).SetHeader(HeaderRequestID, requestID)
	if scope != "" {
		r.SetHeader(HeaderScope, string(scope))
	}
	return r
}

// List fetches one page: GET /{resource}?query.
func (c *APIClient) List(ctx context.Context, resource string, query url.Values) (ListResult, error) {
	var out ListResult
	resp, err := c.request(ctx).
		SetQueryParamsFromValues(query).
		SetResult(&out).
		SetPathParam("resource", resource).
		Get("/{resource}")
	if err := c.check(resp, err, resource, ActionView, false); err != nil {
		return ListResult{}, err
	}
	return out, nil
}

// Detail fetches the read-only projection: GET /{resource}/detail/{id}.
func (c *APIClient) Detail(ctx context.Context, resource, id string) (Row, error) {
	var out detailEnvelope
	resp, err := c.request(ctx).
		SetResult(&out).
		SetPathParam("resource", resource).
		SetRawPathParam("id", id).
		Get("/{resource}/detail/{id}")
	if err := c.check(resp, err, resource, ActionDetail, false); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// GetForEdit fetches the editable record: GET /{resource}/{id}.
func (c *APIClient) GetForEdit(ctx context.Context, resource, id string) (Row, error) {
	var out detailEnvelope
	resp, err := c.request(ctx).
		SetResult(&out).
		SetPathParam("resource", resource).
		SetRawPathParam("id", id).
		Get("/{resource}/{id}")
	if err := c.check(resp, err, resource, ActionEdit, false); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// Create posts a new record: POST /{resource}.
func (c *APIClient) Create(ctx context.Context, resource string, payload any) (Row, error) {
	var out writeEnvelope
	resp, err := c.request(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		SetPathParam("resource", resource).
		Post("/{resource}")
	return c.write(resp, err, &out, resource, ActionAdd)
}

// Update replaces a record: PUT /{resource}/{id}.
func (c *APIClient) Update(ctx context.Context, resource, id string, payload any) (Row, error) {
	var out writeEnvelope
	resp, err := c.request(ctx).
		SetBody(payload).
		SetResult(&out).
		SetError(&out).
		SetPathParam("resource", resource).
		SetRawPathParam("id", id).
		Put("/{resource}/{id}")
	return c.write(resp, err, &out, resource, ActionEdit)
}

// Delete removes a record: DELETE /{resource}/{id}.
func (c *APIClient) Delete(ctx context.Context, resource, id string) error {
	var out writeEnvelope
	resp, err := c.request(ctx).
		SetError(&out).
		SetPathParam("resource", resource).
		SetRawPathParam("id", id).
		Delete("/{resource}/{id}")
	_, werr := c.write(resp, err, &out, resource, ActionDelete)
	return werr
}

// Upload sends a file as multipart form data: PUT /{resource}/upload.
func (c *APIClient) Upload(ctx context.Context, resource, field, filename string, r io.Reader) (Row, error) {
	var out writeEnvelope
	resp, err := c.request(ctx).
		SetFileReader(field, filename, r).
		SetResult(&out).
		SetError(&out).
		SetPathParam("resource", resource).
		Put("/{resource}/upload")
	return c.write(resp, err, &out, resource, ActionUpload)
}

// DeleteUpload removes an uploaded file: DELETE /{resource}/upload/{id}.
func (c *APIClient) DeleteUpload(ctx context.Context, resource, id string) error {
	var out writeEnvelope
	resp, err := c.request(ctx).
		SetError(&out).
		SetPathParam("resource", resource).
		SetRawPathParam("id", id).
		Delete("/{resource}/upload/{id}")
	_, werr := c.write(resp, err, &out, resource, ActionUpload)
	return werr
}

// write maps a write response. A field error map in the body wins over the
// status code: some servers answer 200 with {"errors": {...}}.
func (c *APIClient) write(resp *resty.Response, err error, out *writeEnvelope, resource string, action Action) (Row, error) {
	if err == nil && len(out.Errors) > 0 {
		fields := flattenFieldErrors(out.Errors)
		c.logger.Debug("api rejected payload",
			zap.String("resource", resource),
			zap.String("action", string(action)),
			zap.Int("status_code", resp.StatusCode()),
			zap.Strings("fields", sortedKeys(fields)))
		msg := out.Message
		if msg == "" {
			msg = "the server rejected the submitted values"
		}
		return nil, NewError(ErrValidationFailed, msg).
			WithResource(resource, action).
			WithStatus(resp.StatusCode()).
			WithFields(fields)
	}
	if err := c.check(resp, err, resource, action, true); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// check maps transport failures and error statuses.
func (c *APIClient) check(resp *resty.Response, err error, resource string, action Action, write bool) error {
	if err != nil {
		c.logger.Warn("api request failed",
			zap.String("resource", resource),
			zap.String("action", string(action)),
			zap.Error(err))
		return NewError(ErrNetworkFailure, err.Error()).WithResource(resource, action)
	}
	if !resp.IsError() {
		return nil
	}

	status := resp.StatusCode()
	c.logger.Warn("api returned error status",
		zap.String("resource", resource),
		zap.String("action", string(action)),
		zap.Bool("write", write),
		zap.Int("status_code", status))

	if status == http.StatusForbidden {
		return NewError(ErrPermissionDenied, fmt.Sprintf("%s %s refused by the server", action, resource)).
			WithResource(resource, action).
			WithStatus(status)
	}
	if status == http.StatusNotFound {
		return NewError(ErrNotFound, fmt.Sprintf("%s not found", resource)).
			WithResource(resource, action).
			WithStatus(status)
	}
	msg := errorMessage(resp.Body())
	if msg == "" {
		msg = fmt.Sprintf("%s %s: %s", action, resource, http.StatusText(status))
	}
	return NewError(ErrNetworkFailure, msg).WithResource(resource, action).WithStatus(status)
}

func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(body, &payload) != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

// flattenFieldErrors accepts both {"field": "msg"} and {"field": ["a", "b"]}.
func flattenFieldErrors(raw map[string]any) map[string]string {
	out := make(map[string]string, len(raw))
	for field, v := range raw {
		switch msg := v.(type) {
		case string:
			out[field] = msg
		case []any:
			parts := make([]string, 0, len(msg))
			for _, p := range msg {
				parts = append(parts, fmt.Sprint(p))
			}
			out[field] = strings.Join(parts, "; ")
		default:
			out[field] = fmt.Sprint(msg)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
