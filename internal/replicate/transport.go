package replicate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Static errors for transport operations.
var (
	// ErrTokenRequired is returned when no API token is supplied.
	ErrTokenRequired = errors.New("replicate: API token is required")
	// ErrURLRequired is returned when a request has no URL.
	ErrURLRequired = errors.New("replicate: request URL is required")
)

// Request describes one HTTP call to the remote service.
type Request struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
	// Timeout bounds this single round trip. Zero uses the client default.
	Timeout time.Duration
	// SkipAuth omits the Authorization header (artifact downloads from CDN hosts).
	SkipAuth bool
}

// Response is a successful (2xx) HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// TransportError is a failed round trip. StatusCode is zero when the
// request never produced an HTTP response.
type TransportError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("replicate: request failed: %v", e.Err)
	}
	return fmt.Sprintf("replicate: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Throttled reports whether the service rejected the call for exceeding its rate limit.
func (e *TransportError) Throttled() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// IsThrottled reports whether err carries a throttled TransportError.
func IsThrottled(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Throttled()
}

// Transport performs a single request with no retry.
type Transport interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

// HTTPTransport is the net/http implementation of Transport.
type HTTPTransport struct {
	token      string
	authScheme string
	httpClient *http.Client
}

// TransportOption configures an HTTPTransport.
type TransportOption func(*HTTPTransport)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) TransportOption {
	return func(t *HTTPTransport) {
		if c != nil {
			t.httpClient = c
		}
	}
}

// WithAuthScheme sets the Authorization scheme ("Bearer" or "Token").
func WithAuthScheme(scheme string) TransportOption {
	return func(t *HTTPTransport) {
		if scheme != "" {
			t.authScheme = scheme
		}
	}
}

// NewHTTPTransport creates a transport authenticated with token.
// The token is read once by the caller; the transport never consults the environment.
func NewHTTPTransport(token string, opts ...TransportOption) (*HTTPTransport, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrTokenRequired
	}

	t := &HTTPTransport{
		token:      token,
		authScheme: "Bearer",
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Send performs a single HTTP request.
func (t *HTTPTransport) Send(ctx context.Context, req Request) (*Response, error) {
	if req.URL == "" {
		return nil, ErrURLRequired
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}

	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var bodyReader io.Reader
	if req.Body != nil {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("replicate: create request: %w", err)
	}

	for k, vals := range req.Header {
		for _, v := range vals {
			httpReq.Header.Add(k, v)
		}
	}
	if !req.SkipAuth {
		httpReq.Header.Set("Authorization", t.authScheme+" "+t.token)
	}
	if req.Body != nil && httpReq.Header.Get("Content-Type") == "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	resp, err := t.httpClient.Do(httpReq)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{StatusCode: resp.StatusCode, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TransportError{
			StatusCode: resp.StatusCode,
			Body:       string(respBody),
			Err:        fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return &Response{StatusCode: resp.StatusCode, Body: respBody}, nil
}

// Compile-time check that HTTPTransport implements Transport.
var _ Transport = (*HTTPTransport)(nil)
