// Package replicate provides an HTTP client for the Replicate predictions API.
// It separates a single-shot Transport from the Caller that owns the
// rate-limit retry policy, so every call site shares the same behavior.
package replicate

import (
	"encoding/json"
	"fmt"
)

// Status is the raw prediction status reported by Replicate.
type Status string

// Replicate prediction statuses.
const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Target selects the model a prediction runs on.
// Model ("owner/name") uses the model predictions endpoint; Version uses
// the generic predictions endpoint with an explicit version hash.
type Target struct {
	Model   string
	Version string
	// PreferWait asks the service to hold the submit response until the
	// prediction finishes or its sync window closes.
	PreferWait bool
}

// String returns the model or version identifier.
func (t Target) String() string {
	if t.Model != "" {
		return t.Model
	}
	return t.Version
}

// Prediction is the subset of a Replicate prediction the pipeline relies on.
type Prediction struct {
	ID     string         `json:"id"`
	Status Status         `json:"status"`
	Output Output         `json:"output,omitempty"`
	Error  string         `json:"error,omitempty"`
	URLs   predictionURLs `json:"urls,omitempty"`
}

type predictionURLs struct {
	Get    string `json:"get,omitempty"`
	Cancel string `json:"cancel,omitempty"`
}

// Output is a prediction output normalized to a list of artifact URLs.
// Replicate returns either a single string or an array depending on the model.
type Output []string

// UnmarshalJSON accepts null, a string, or an array of strings.
func (o *Output) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("replicate: decode output: %w", err)
	}

	switch v := raw.(type) {
	case nil:
		*o = nil
	case string:
		if v == "" {
			*o = nil
			return nil
		}
		*o = Output{v}
	case []any:
		out := make(Output, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return fmt.Errorf("replicate: unexpected output item type %T", item)
			}
			out = append(out, s)
		}
		*o = out
	default:
		return fmt.Errorf("replicate: unexpected output type %T", raw)
	}
	return nil
}

// predictionRequest is the request body for the predictions endpoints.
type predictionRequest struct {
	Version string         `json:"version,omitempty"`
	Input   map[string]any `json:"input"`
}
