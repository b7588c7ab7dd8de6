// Package remote talks to the diagram backend: plan generation plus the
// create, fetch and patch endpoints of the diagram store.
//
// Every failure, whether a transport error or a non-2xx status, is
// returned as a NETWORK_ERROR whose cause is a [*StatusError]. Nothing is
// retried.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/planmap/pkg/diagram"
	perrors "github.com/matzehuels/planmap/pkg/errors"
	"github.com/matzehuels/planmap/pkg/observability"
)

// DefaultTimeout bounds every request unless overridden.
const DefaultTimeout = 10 * time.Second

// RevisionHeader carries the client revision on PATCH requests. Servers
// that understand it reject stale revisions with 409 Conflict.
const RevisionHeader = "X-Diagram-Revision"

// Endpoint paths, relative to the base URL.
const (
	pathGenerate = "/api/generate-plan/"
	pathDiagrams = "/api/diagrams/"
)

// maxBody caps how much of a response body is read.
const maxBody = 32 << 20

// StatusError describes a failed request. StatusCode is zero for
// transport failures.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.StatusCode == 0 {
		return e.Message
	}
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.StatusCode)
	}
	return fmt.Sprintf("status %d: %s", e.StatusCode, e.Message)
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var se *StatusError
	if errors.As(err, &se) {
		return se.StatusCode
	}
	return 0
}

// Client is a backend API client. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	baseURL string
	headers map[string]string
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithHeader adds a header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *Client) { c.headers[key] = value }
}

// WithLogger sets the request logger.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a client for the backend at baseURL (http or https).
func New(baseURL string, opts ...Option) (*Client, error) {
	if err := perrors.ValidateURL(baseURL); err != nil {
		return nil, err
	}
	c := &Client{
		http:    &http.Client{Timeout: DefaultTimeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		headers: map[string]string{"Accept": "application/json"},
		logger:  log.New(io.Discard),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// BaseURL returns the backend root without a trailing slash.
func (c *Client) BaseURL() string { return c.baseURL }

// Generate asks the backend to plan a diagram. Params are normalized and
// validated first; invalid params fail with a ValidationError and no
// request is made.
func (c *Client) Generate(ctx context.Context, p diagram.Params) (diagram.Document, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return diagram.Document{}, err
	}
	var doc diagram.Document
	if _, err := c.do(ctx, http.MethodPost, pathGenerate, nil, p, &doc); err != nil {
		return diagram.Document{}, err
	}
	return doc.Clone(), nil
}

type createRequest struct {
	diagram.Params
	Spec diagram.Document `json:"spec"`
}

// Create stores a new diagram record and returns it with its assigned id.
// A success response without an id is a NETWORK_ERROR.
func (c *Client) Create(ctx context.Context, p diagram.Params, doc diagram.Document) (diagram.Diagram, error) {
	p = p.Normalize()
	if err := p.Validate(); err != nil {
		return diagram.Diagram{}, err
	}
	var rec diagram.Diagram
	status, err := c.do(ctx, http.MethodPost, pathDiagrams, nil, createRequest{Params: p, Spec: doc.Clone()}, &rec)
	if err != nil {
		return diagram.Diagram{}, err
	}
	if rec.ID == "" {
		se := &StatusError{StatusCode: status, Message: "response carries no diagram id"}
		return diagram.Diagram{}, perrors.Wrap(perrors.ErrCodeNetwork, se, "%s %s", http.MethodPost, pathDiagrams)
	}
	return rec, nil
}

// Fetch loads diagram id.
func (c *Client) Fetch(ctx context.Context, id string) (diagram.Diagram, error) {
	path, err := diagramPath(id)
	if err != nil {
		return diagram.Diagram{}, err
	}
	var rec diagram.Diagram
	_, err = c.do(ctx, http.MethodGet, path, nil, nil, &rec)
	return rec, err
}

type patchRequest struct {
	Spec diagram.Document `json:"spec"`
}

// Patch replaces the spec of diagram id. An empty or non-JSON success body
// is accepted; the returned record is then zero apart from ID and Spec.
func (c *Client) Patch(ctx context.Context, id string, doc diagram.Document) (diagram.Diagram, error) {
	return c.patch(ctx, id, doc, nil)
}

// PatchRevision is Patch with the session revision in [RevisionHeader].
func (c *Client) PatchRevision(ctx context.Context, id string, doc diagram.Document, rev int64) (diagram.Diagram, error) {
	return c.patch(ctx, id, doc, map[string]string{RevisionHeader: strconv.FormatInt(rev, 10)})
}

func (c *Client) patch(ctx context.Context, id string, doc diagram.Document, headers map[string]string) (diagram.Diagram, error) {
	path, err := diagramPath(id)
	if err != nil {
		return diagram.Diagram{}, err
	}
	doc = doc.Clone()
	var rec diagram.Diagram
	if _, err := c.do(ctx, http.MethodPatch, path, headers, patchRequest{Spec: doc}, &rec); err != nil {
		return diagram.Diagram{}, err
	}
	if rec.ID == "" {
		rec.ID = diagram.ID(id)
		rec.Spec = doc
	}
	return rec, nil
}

func diagramPath(id string) (string, error) {
	if err := perrors.ValidateID(id); err != nil {
		return "", err
	}
	return pathDiagrams + url.PathEscape(id) + "/", nil
}

// do sends one request and returns the response status. A 2xx body that
// is empty or not JSON leaves out untouched and is not an error.
func (c *Client) do(ctx context.Context, method, path string, headers map[string]string, in, out any) (int, error) {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return 0, perrors.Wrap(perrors.ErrCodeInternal, err, "encode request")
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, perrors.Wrap(perrors.ErrCodeInternal, err, "build request")
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host := req.URL.Host
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		c.logger.Debug("request failed", "method", method, "path", path, "err", err)
		if ctx.Err() != nil {
			return 0, perrors.Wrap(perrors.ErrCodeNetwork, &StatusError{Message: ctx.Err().Error()}, "%s %s", method, path)
		}
		return 0, perrors.Wrap(perrors.ErrCodeNetwork, &StatusError{Message: err.Error()}, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))
	c.logger.Debug("request", "method", method, "path", path, "status", resp.StatusCode, "took", time.Since(start))
	if err != nil {
		return resp.StatusCode, perrors.Wrap(perrors.ErrCodeNetwork, &StatusError{StatusCode: resp.StatusCode, Message: err.Error()}, "%s %s", method, path)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		se := &StatusError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
		return resp.StatusCode, perrors.Wrap(perrors.ErrCodeNetwork, se, "%s %s", method, path)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		if method == http.MethodPatch {
			return resp.StatusCode, nil
		}
		return resp.StatusCode, perrors.Wrap(perrors.ErrCodeNetwork, &StatusError{StatusCode: resp.StatusCode, Message: "malformed response: " + err.Error()}, "%s %s", method, path)
	}
	return resp.StatusCode, nil
}

// errorMessage extracts the backend's error text: {"error": ...} from the
// generator, {"detail": ...} from the store.
func errorMessage(body []byte) string {
	var payload struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Detail != "" {
			return payload.Detail
		}
	}
	return strings.TrimSpace(string(body[:min(len(body), 200)]))
}
