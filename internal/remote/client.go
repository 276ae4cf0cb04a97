// Package remote talks to the display backend. It wraps every call with JSON
// decoding, ETag revalidation and error normalization; callers decide how to
// fall back.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/tidwall/gjson"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotModified is returned by a conditional fetch when the server answers
// 304. The caller's cached data is still current.
var ErrNotModified = errors.New("remote: not modified")

// StatusError reports a response that was neither 2xx nor 304.
type StatusError struct {
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("GET %s: server returned %d", e.Path, e.StatusCode)
	}
	return fmt.Sprintf("GET %s: server returned %d: %s", e.Path, e.StatusCode, e.Body)
}

// Validators are the cache validators captured from a response.
type Validators struct {
	ETag         string
	LastModified string
}

// Client performs GET requests against the backend base URL.
type Client struct {
	base   string
	http   *http.Client
	logger *slog.Logger
	tracer trace.Tracer

	dayInfoPath string
	background  *Conditional
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithDayInfoPath sets the efemerides endpoint path.
func WithDayInfoPath(path string) Option {
	return func(c *Client) { c.dayInfoPath = path }
}

// New returns a Client for baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse backend url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("backend url %q must be absolute", baseURL)
	}

	c := &Client{
		base:        strings.TrimRight(u.String(), "/"),
		http:        &http.Client{Timeout: 30 * time.Second},
		logger:      logger,
		tracer:      otel.Tracer("github.com/raffaelramalhorosa/smart-display/internal/remote"),
		dayInfoPath: PathDayInfo,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.background = c.Conditional(PathBackground)
	return c, nil
}

// Base returns the backend base URL without a trailing slash.
func (c *Client) Base() string { return c.base }

// Resolve qualifies a relative path against the backend base. Absolute URLs
// are returned unchanged.
func (c *Client) Resolve(path string) string {
	if path == "" {
		return ""
	}
	if u, err := url.Parse(path); err == nil && u.IsAbs() {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.base + path
}

// GetJSON fetches path and decodes the JSON body into dest.
func (c *Client) GetJSON(ctx context.Context, path string, dest any) error {
	resp, err := c.get(ctx, path, "")
	if err != nil {
		return err
	}
	if resp.status == http.StatusNotModified {
		return &StatusError{Path: path, StatusCode: resp.status}
	}
	if err := json.Unmarshal(resp.body, dest); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

type response struct {
	status int
	header http.Header
	body   []byte
}

func (c *Client) get(ctx context.Context, path, etag string) (*response, error) {
	target := c.Resolve(path)

	ctx, span := c.tracer.Start(ctx, "GET "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(attribute.String("http.url", target))

	resp, err := c.do(ctx, target, etag)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.status))

	if resp.status == http.StatusNotModified {
		return resp, nil
	}
	if resp.status < 200 || resp.status >= 300 {
		err := &StatusError{Path: path, StatusCode: resp.status, Body: truncate(resp.body, 100)}
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	return resp, nil
}

func (c *Client) do(ctx context.Context, target, etag string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", target, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", target, err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body}, nil
}

// Conditional is a revalidating GET for a single path. It sends the last
// committed ETag back as If-None-Match.
type Conditional struct {
	client *Client
	path   string

	mu   sync.Mutex
	etag string
}

// Conditional returns a revalidating fetcher for path.
func (c *Client) Conditional(path string) *Conditional {
	return &Conditional{client: c, path: path}
}

// ETag returns the validator that will be sent with the next request.
func (cg *Conditional) ETag() string {
	cg.mu.Lock()
	defer cg.mu.Unlock()
	return cg.etag
}

// Fetch performs the conditional GET. It returns ErrNotModified on 304 and
// leaves dest untouched. On 2xx it decodes into dest and returns the
// validators, taken from the response header or from an "etag"/"version" body
// field when the header is absent. The held ETag only changes on Commit.
func (cg *Conditional) Fetch(ctx context.Context, dest any) (Validators, error) {
	resp, err := cg.client.get(ctx, cg.path, cg.ETag())
	if err != nil {
		return Validators{}, err
	}
	if resp.status == http.StatusNotModified {
		return Validators{}, ErrNotModified
	}
	if err := json.Unmarshal(resp.body, dest); err != nil {
		return Validators{}, fmt.Errorf("decode %s: %w", cg.path, err)
	}

	v := Validators{
		ETag:         resp.header.Get("ETag"),
		LastModified: resp.header.Get("Last-Modified"),
	}
	if v.ETag == "" {
		v.ETag = bodyVersion(resp.body)
	}
	return v, nil
}

// Commit records etag as the validator for the next request. Callers commit
// once they have accepted the fetched representation. An empty etag is ignored.
func (cg *Conditional) Commit(etag string) {
	if etag == "" {
		return
	}
	cg.mu.Lock()
	cg.etag = etag
	cg.mu.Unlock()
}

func bodyVersion(body []byte) string {
	for _, field := range []string{"etag", "version"} {
		if r := gjson.GetBytes(body, field); r.Exists() && r.String() != "" {
			return r.String()
		}
	}
	return ""
}

func truncate(b []byte, maxLen int) string {
	if len(b) <= maxLen {
		return string(b)
	}
	return string(b[:maxLen]) + "..."
}
