package replicate

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient builds a Client against server with a no-op sleeper.
func newTestClient(t *testing.T, server *httptest.Server, opts ...ClientOption) *Client {
	t.Helper()
	transport, err := NewHTTPTransport("test-token")
	if err != nil {
		t.Fatalf("NewHTTPTransport() error = %v", err)
	}
	caller := NewCaller(transport,
		WithRetryPolicy(RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Millisecond}),
		WithSleeper(func(context.Context, time.Duration) error { return nil }),
	)
	return NewClient(caller, append([]ClientOption{WithBaseURL(server.URL)}, opts...)...)
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status   Status
		terminal bool
	}{
		{StatusStarting, false},
		{StatusProcessing, false},
		{StatusSucceeded, true},
		{StatusFailed, true},
		{StatusCanceled, true},
		{Status("queued"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.terminal {
				t.Errorf("Status(%q).IsTerminal() = %v, want %v", tt.status, got, tt.terminal)
			}
		})
	}
}

func TestOutput_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Output
	}{
		{"scalar", `"https://x/video.mp4"`, Output{"https://x/video.mp4"}},
		{"single element list", `["https://x/frame.png"]`, Output{"https://x/frame.png"}},
		{"list", `["https://x/a.png","https://x/b.png"]`, Output{"https://x/a.png", "https://x/b.png"}},
		{"null", `null`, nil},
		{"empty string", `""`, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Output
			if err := json.Unmarshal([]byte(tt.raw), &got); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("got[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}

	t.Run("object is rejected", func(t *testing.T) {
		var got Output
		if err := json.Unmarshal([]byte(`{"video":"x"}`), &got); err == nil {
			t.Error("expected error for object output")
		}
	})
}

func TestSubmit_Model(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if r.URL.Path != "/models/bytedance/omni-human-1.5/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-token" {
			t.Errorf("expected Bearer test-token, got %s", r.Header.Get("Authorization"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", r.Header.Get("Content-Type"))
		}
		if r.Header.Get("Prefer") != "" {
			t.Errorf("expected no Prefer header, got %q", r.Header.Get("Prefer"))
		}

		var req predictionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		if req.Version != "" {
			t.Errorf("expected no version, got %q", req.Version)
		}
		if req.Input["image"] != "image-uri" {
			t.Errorf("expected image-uri, got %v", req.Input["image"])
		}

		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-1", "status": "starting"})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	pred, err := client.Submit(context.Background(), Target{Model: "bytedance/omni-human-1.5"}, map[string]any{"image": "image-uri"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.ID != "pred-1" {
		t.Errorf("expected pred-1, got %s", pred.ID)
	}
	if pred.Status != StatusStarting {
		t.Errorf("expected starting, got %s", pred.Status)
	}
}

func TestSubmit_Version(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predictions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req predictionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Version != "abc123" {
			t.Errorf("expected version abc123, got %q", req.Version)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"id": "pred-2", "status": "starting"})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	pred, err := client.Submit(context.Background(), Target{Version: "abc123"}, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.ID != "pred-2" {
		t.Errorf("expected pred-2, got %s", pred.ID)
	}
}

func TestSubmit_PreferWait(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Prefer") != "wait" {
			t.Errorf("expected Prefer: wait, got %q", r.Header.Get("Prefer"))
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":     "pred-3",
			"status": "succeeded",
			"output": "https://x/video.mp4",
		})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	pred, err := client.Submit(context.Background(), Target{Model: "kwaivgi/kling-v2.5-turbo-pro", PreferWait: true}, map[string]any{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pred.Output) != 1 || pred.Output[0] != "https://x/video.mp4" {
		t.Errorf("unexpected output %v", pred.Output)
	}
}

func TestSubmit_NoTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no request expected")
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Submit(context.Background(), Target{}, nil)
	if !errors.Is(err, ErrTargetRequired) {
		t.Errorf("expected ErrTargetRequired, got %v", err)
	}
}

func TestSubmit_NoPredictionID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"detail": "invalid input"})
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Submit(context.Background(), Target{Model: "a/b"}, nil)
	if !errors.Is(err, ErrNoPredictionID) {
		t.Errorf("expected ErrNoPredictionID, got %v", err)
	}
}

func TestSubmit_ValidationErrorNotRetried(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&attempts, 1)
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"detail":"input.image is required"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Submit(context.Background(), Target{Model: "a/b"}, nil)
	var te *TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", te.StatusCode)
	}
	if atomic.LoadInt32(&attempts) != 1 {
		t.Errorf("expected 1 attempt, got %d", attempts)
	}
}

func TestGet_AllStatuses(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus Status
		wantOutput int
		wantError  string
	}{
		{"starting", `{"id":"p","status":"starting"}`, StatusStarting, 0, ""},
		{"processing", `{"id":"p","status":"processing","output":null}`, StatusProcessing, 0, ""},
		{"succeeded scalar", `{"id":"p","status":"succeeded","output":"https://x/v.mp4"}`, StatusSucceeded, 1, ""},
		{"succeeded list", `{"id":"p","status":"succeeded","output":["https://x/1.png"]}`, StatusSucceeded, 1, ""},
		{"failed", `{"id":"p","status":"failed","error":"NSFW content detected"}`, StatusFailed, 0, "NSFW content detected"},
		{"canceled", `{"id":"p","status":"canceled"}`, StatusCanceled, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodGet {
					t.Errorf("expected GET, got %s", r.Method)
				}
				if r.URL.Path != "/predictions/p" {
					t.Errorf("unexpected path %s", r.URL.Path)
				}
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server)

			pred, err := client.Get(context.Background(), "p")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if pred.Status != tt.wantStatus {
				t.Errorf("expected status %v, got %v", tt.wantStatus, pred.Status)
			}
			if len(pred.Output) != tt.wantOutput {
				t.Errorf("expected %d outputs, got %d", tt.wantOutput, len(pred.Output))
			}
			if pred.Error != tt.wantError {
				t.Errorf("expected error %q, got %q", tt.wantError, pred.Error)
			}
		})
	}
}

func TestGet_EmptyID(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Get(context.Background(), "")
	if !errors.Is(err, ErrPredictionIDRequired) {
		t.Errorf("expected ErrPredictionIDRequired, got %v", err)
	}
}

func TestGet_RateLimitedThenSucceeds(t *testing.T) {
	var attempts int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&attempts, 1) < 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"detail":"Request was throttled."}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"p","status":"succeeded","output":"https://x/v.mp4"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	pred, err := client.Get(context.Background(), "p")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pred.Status != StatusSucceeded {
		t.Errorf("expected succeeded, got %v", pred.Status)
	}
	if atomic.LoadInt32(&attempts) != 2 {
		t.Errorf("expected 2 attempts, got %d", attempts)
	}
}

func TestDownload_SkipsAuth(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no Authorization header, got %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte("frame-bytes"))
	}))
	defer server.Close()

	client := newTestClient(t, server)

	data, err := client.Download(context.Background(), server.URL+"/frame.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != "frame-bytes" {
		t.Errorf("expected frame-bytes, got %q", data)
	}
}

func TestDownload_EmptyURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	client := newTestClient(t, server)

	_, err := client.Download(context.Background(), "")
	if !errors.Is(err, ErrArtifactURLRequired) {
		t.Errorf("expected ErrArtifactURLRequired, got %v", err)
	}
}
