package james

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dirsync/james-connector/internal/domain/directory"
)

// maxResponseSize is the maximum allowed response size from the webadmin API (10MB)
const maxResponseSize = 10 * 1024 * 1024

// StatusFamily classifies HTTP status codes by their first digit
type StatusFamily int

const (
	FamilyOther StatusFamily = iota
	FamilyInformational
	FamilySuccessful
	FamilyRedirection
	FamilyClientError
	FamilyServerError
)

// FamilyOf returns the family of an HTTP status code
func FamilyOf(code int) StatusFamily {
	switch code / 100 {
	case 1:
		return FamilyInformational
	case 2:
		return FamilySuccessful
	case 3:
		return FamilyRedirection
	case 4:
		return FamilyClientError
	case 5:
		return FamilyServerError
	default:
		return FamilyOther
	}
}

func (f StatusFamily) String() string {
	switch f {
	case FamilyInformational:
		return "1xx"
	case FamilySuccessful:
		return "2xx"
	case FamilyRedirection:
		return "3xx"
	case FamilyClientError:
		return "4xx"
	case FamilyServerError:
		return "5xx"
	default:
		return "other"
	}
}

// RequestObserver is told about every exchange with the API.
// family is FamilyOther when the request failed before a response arrived.
type RequestObserver interface {
	ObserveRequest(ctx context.Context, method, resource string, family StatusFamily, elapsed time.Duration)
}

// Response is a raw webadmin response
type Response struct {
	Method     string
	URL        string
	StatusCode int
	StatusText string
	Family     StatusFamily
	Body       []byte
}

// OK reports whether the status is in the 2xx family
func (r *Response) OK() bool {
	return r.Family == FamilySuccessful
}

// Diagnostic formats the response the way failures are logged
func (r *Response) Diagnostic(action string) string {
	return fmt.Sprintf("Error %d (%s - %s) while %s: %s", r.StatusCode, r.StatusText, string(r.Body), action, r.URL)
}

// ServiceError converts a non-2xx response into a typed error
func (r *Response) ServiceError() *directory.ServiceError {
	return &directory.ServiceError{
		Method:     r.Method,
		URL:        r.URL,
		StatusCode: r.StatusCode,
		StatusText: r.StatusText,
		Body:       string(r.Body),
	}
}

// Client talks to the James webadmin API
type Client struct {
	config     *Config
	baseURL    *url.URL
	httpClient *http.Client
	logger     *zap.Logger
	observer   RequestObserver
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver reports each exchange to o
func WithObserver(o RequestObserver) ClientOption {
	return func(c *Client) {
		c.observer = o
	}
}

// NewClient creates a new webadmin client with the given configuration
func NewClient(config *Config, opts ...ClientOption) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	base, err := url.Parse(strings.TrimRight(config.URL, "/"))
	if err != nil {
		return nil, ErrConfigInvalidURL
	}

	c := &Client{
		config:  config,
		baseURL: base,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Resource binds the client to a resource root such as /address/aliases
func (c *Client) Resource(root string) *Resource {
	return &Resource{client: c, root: "/" + strings.Trim(root, "/")}
}

// BaseURL returns the configured base URL
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Resource issues requests below a fixed root path
type Resource struct {
	client *Client
	root   string
}

// Root returns the resource root path
func (r *Resource) Root() string {
	return r.root
}

// URL resolves escaped path segments below the resource root
func (r *Resource) URL(segments ...string) string {
	u := *r.client.baseURL
	raw := strings.TrimRight(u.Path, "/") + r.root
	for _, s := range segments {
		raw += "/" + url.PathEscape(s)
	}
	u.RawPath = raw
	u.Path, _ = url.PathUnescape(raw)
	return u.String()
}

// Do sends a request. A status outside 2xx is not an error at this level;
// only a request that produced no response returns one.
func (r *Resource) Do(ctx context.Context, method string, body any, segments ...string) (*Response, error) {
	target := r.URL(segments...)

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("james: failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("james: failed to create request: %w", err)
	}
	req.SetBasicAuth(r.client.config.Username, r.client.config.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := r.client.httpClient.Do(req)
	if err != nil {
		r.observe(ctx, method, FamilyOther, time.Since(start))
		return nil, &directory.CommunicationError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		r.observe(ctx, method, FamilyOther, time.Since(start))
		return nil, &directory.CommunicationError{Method: method, URL: target, Err: err}
	}

	family := FamilyOf(resp.StatusCode)
	r.observe(ctx, method, family, time.Since(start))
	r.client.logger.Debug("webadmin request",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode),
	)

	return &Response{
		Method:     method,
		URL:        target,
		StatusCode: resp.StatusCode,
		StatusText: http.StatusText(resp.StatusCode),
		Family:     family,
		Body:       data,
	}, nil
}

// GetList fetches a JSON document into out. Non-2xx responses become a
// *directory.ServiceError and undecodable bodies ErrInvalidResponse.
func (r *Resource) GetList(ctx context.Context, out any, segments ...string) (*Response, error) {
	resp, err := r.Do(ctx, http.MethodGet, nil, segments...)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return resp, resp.ServiceError()
	}
	if len(bytes.TrimSpace(resp.Body)) == 0 {
		return resp, nil
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return resp, fmt.Errorf("%w: %s: %v", directory.ErrInvalidResponse, resp.URL, err)
	}
	return resp, nil
}

func (r *Resource) observe(ctx context.Context, method string, family StatusFamily, elapsed time.Duration) {
	if r.client.observer != nil {
		r.client.observer.ObserveRequest(ctx, method, r.root, family, elapsed)
	}
}
