package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Static errors for API client operations.
var (
	// ErrTargetRequired is returned when neither a model nor a version is given.
	ErrTargetRequired = errors.New("replicate: model or version is required")
	// ErrPredictionIDRequired is returned when the prediction ID is not provided.
	ErrPredictionIDRequired = errors.New("replicate: prediction ID is required")
	// ErrNoPredictionID is returned when the submit response contains no prediction ID.
	ErrNoPredictionID = errors.New("replicate: submit failed: no prediction ID returned")
	// ErrArtifactURLRequired is returned when a download has no URL.
	ErrArtifactURLRequired = errors.New("replicate: artifact URL is required")
)

const defaultBaseURL = "https://api.replicate.com/v1"

// Client talks to the Replicate predictions API through a Caller.
type Client struct {
	caller          *Caller
	baseURL         string
	requestTimeout  time.Duration
	downloadTimeout time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL sets a custom base URL for the API.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.baseURL = strings.TrimRight(u, "/")
		}
	}
}

// WithRequestTimeout bounds each API round trip.
func WithRequestTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.requestTimeout = d
	}
}

// WithDownloadTimeout bounds each artifact download.
func WithDownloadTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		c.downloadTimeout = d
	}
}

// NewClient creates a Client issuing every request through caller.
func NewClient(caller *Caller, opts ...ClientOption) *Client {
	c := &Client{
		caller:          caller,
		baseURL:         defaultBaseURL,
		requestTimeout:  30 * time.Second,
		downloadTimeout: 5 * time.Minute,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit creates a prediction for target with the given input fields.
func (c *Client) Submit(ctx context.Context, target Target, input map[string]any) (*Prediction, error) {
	var endpoint string
	body := predictionRequest{Input: input}

	switch {
	case target.Model != "":
		endpoint = fmt.Sprintf("%s/models/%s/predictions", c.baseURL, target.Model)
	case target.Version != "":
		endpoint = c.baseURL + "/predictions"
		body.Version = target.Version
	default:
		return nil, ErrTargetRequired
	}

	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("replicate: marshal request: %w", err)
	}

	header := http.Header{}
	timeout := c.requestTimeout
	if target.PreferWait {
		header.Set("Prefer", "wait")
		timeout = 0
	}

	resp, err := c.caller.Call(ctx, Request{
		Method:  http.MethodPost,
		URL:     endpoint,
		Header:  header,
		Body:    bodyBytes,
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	var pred Prediction
	if err := json.Unmarshal(resp.Body, &pred); err != nil {
		return nil, fmt.Errorf("replicate: unmarshal response: %w", err)
	}
	if pred.ID == "" {
		return nil, ErrNoPredictionID
	}
	return &pred, nil
}

// Get fetches the current state of a prediction.
func (c *Client) Get(ctx context.Context, id string) (*Prediction, error) {
	if id == "" {
		return nil, ErrPredictionIDRequired
	}

	resp, err := c.caller.Call(ctx, Request{
		Method:  http.MethodGet,
		URL:     fmt.Sprintf("%s/predictions/%s", c.baseURL, url.PathEscape(id)),
		Timeout: c.requestTimeout,
	})
	if err != nil {
		return nil, err
	}

	var pred Prediction
	if err := json.Unmarshal(resp.Body, &pred); err != nil {
		return nil, fmt.Errorf("replicate: unmarshal response: %w", err)
	}
	return &pred, nil
}

// Download fetches an artifact. The API token is not sent to artifact hosts.
func (c *Client) Download(ctx context.Context, artifactURL string) ([]byte, error) {
	if artifactURL == "" {
		return nil, ErrArtifactURLRequired
	}

	resp, err := c.caller.Call(ctx, Request{
		Method:   http.MethodGet,
		URL:      artifactURL,
		Timeout:  c.downloadTimeout,
		SkipAuth: true,
	})
	if err != nil {
		return nil, fmt.Errorf("replicate: download artifact: %w", err)
	}
	return resp.Body, nil
}
