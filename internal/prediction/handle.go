// Package prediction tracks one remote prediction from submission to a
// terminal state. A Handle is owned by a single poll loop and is never
// shared between goroutines.
package prediction

import (
	"errors"
	"fmt"
	"time"

	"github.com/maauso/pfp-animate/internal/replicate"
)

// State is the lifecycle state of a submitted prediction.
type State string

const (
	// StateSubmitted indicates the prediction was accepted but has not started.
	StateSubmitted State = "SUBMITTED"
	// StateProcessing indicates the prediction is running on a worker.
	StateProcessing State = "PROCESSING"
	// StateSucceeded indicates the prediction produced its artifacts.
	StateSucceeded State = "SUCCEEDED"
	// StateFailed indicates the service gave up on the prediction.
	StateFailed State = "FAILED"
	// StateCanceled indicates the prediction was canceled remotely.
	StateCanceled State = "CANCELED"
	// StateTimedOut indicates the local deadline passed before a terminal state.
	StateTimedOut State = "TIMED_OUT"
)

// IsTerminal returns true if no further transitions are possible.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCanceled, StateTimedOut:
		return true
	default:
		return false
	}
}

// Static errors for handle operations.
var (
	// ErrInvalidTransition is returned when an invalid state transition is attempted.
	ErrInvalidTransition = errors.New("prediction: invalid state transition")
	// ErrUnknownStatus is returned when the remote status string is not recognized.
	ErrUnknownStatus = errors.New("prediction: unknown remote status")
	// ErrNotTerminal is returned when a result is requested before the handle is terminal.
	ErrNotTerminal = errors.New("prediction: handle is not terminal")
	// ErrEmptyOutput is returned when a prediction succeeds without artifacts.
	ErrEmptyOutput = errors.New("prediction: succeeded without output")
)

var validTransitions = map[State][]State{
	StateSubmitted:  {StateProcessing, StateSucceeded, StateFailed, StateCanceled, StateTimedOut},
	StateProcessing: {StateSucceeded, StateFailed, StateCanceled, StateTimedOut},
	StateSucceeded:  {},
	StateFailed:     {},
	StateCanceled:   {},
	StateTimedOut:   {},
}

func canTransition(from, to State) bool {
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// StateFromRemote maps a Replicate status to a State.
func StateFromRemote(status replicate.Status) (State, error) {
	switch status {
	case replicate.StatusStarting:
		return StateSubmitted, nil
	case replicate.StatusProcessing:
		return StateProcessing, nil
	case replicate.StatusSucceeded:
		return StateSucceeded, nil
	case replicate.StatusFailed:
		return StateFailed, nil
	case replicate.StatusCanceled:
		return StateCanceled, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownStatus, status)
	}
}

// Handle is one submitted prediction and its last known state.
// Result is set only in StateSucceeded; Error only in Failed, Canceled or TimedOut.
type Handle struct {
	// ID is the identifier assigned by the service at submission.
	ID string
	// Target names the model the prediction runs on (for diagnostics).
	Target string
	// State is the last known lifecycle state.
	State State
	// CreatedAt is when the prediction was submitted.
	CreatedAt time.Time
	// LastPolledAt is when the status was last queried.
	LastPolledAt time.Time
	// Result holds the artifact URLs of a succeeded prediction.
	Result []string
	// Error is the human-readable cause of a failed, canceled or timed out prediction.
	Error string

	elapsed time.Duration
}

// NewHandle creates a handle in StateSubmitted.
func NewHandle(id, target string, createdAt time.Time) *Handle {
	return &Handle{
		ID:        id,
		Target:    target,
		State:     StateSubmitted,
		CreatedAt: createdAt,
	}
}

// TransitionTo moves the handle to a non-terminal state or to a terminal
// state without payload. Use Succeed, Finish or TimeOut for terminal states
// that carry a result or cause.
func (h *Handle) TransitionTo(s State) error {
	if h.State == s {
		return nil
	}
	if !canTransition(h.State, s) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, h.State, s)
	}
	h.State = s
	return nil
}

// Succeed marks the handle succeeded with the given artifacts.
func (h *Handle) Succeed(result []string) error {
	if err := h.TransitionTo(StateSucceeded); err != nil {
		return err
	}
	h.Result = append([]string(nil), result...)
	h.Error = ""
	return nil
}

// Finish marks the handle Failed or Canceled with the service-provided cause.
func (h *Handle) Finish(s State, cause string) error {
	if s != StateFailed && s != StateCanceled {
		return fmt.Errorf("%w: %s is not a remote failure state", ErrInvalidTransition, s)
	}
	if err := h.TransitionTo(s); err != nil {
		return err
	}
	if cause == "" {
		cause = "prediction " + string(s)
	}
	h.Error = cause
	h.Result = nil
	return nil
}

// TimeOut marks the handle TimedOut after elapsed wall time.
func (h *Handle) TimeOut(elapsed time.Duration) error {
	if err := h.TransitionTo(StateTimedOut); err != nil {
		return err
	}
	h.elapsed = elapsed
	h.Error = fmt.Sprintf("timed out after %s", elapsed.Round(time.Second))
	h.Result = nil
	return nil
}

// Observe applies a status response to the handle.
// A succeeded prediction without output is recorded as Failed.
func (h *Handle) Observe(pred *replicate.Prediction) error {
	s, err := StateFromRemote(pred.Status)
	if err != nil {
		return err
	}

	switch s {
	case StateSucceeded:
		if len(pred.Output) == 0 {
			return h.Finish(StateFailed, ErrEmptyOutput.Error())
		}
		return h.Succeed(pred.Output)
	case StateFailed, StateCanceled:
		return h.Finish(s, pred.Error)
	default:
		return h.TransitionTo(s)
	}
}

// IsTerminal returns true if the handle is in a terminal state.
func (h *Handle) IsTerminal() bool {
	return h.State.IsTerminal()
}

// Err returns the terminal outcome as an error: nil for Succeeded,
// *RemoteJobError for Failed or Canceled, *TimeoutError for TimedOut.
func (h *Handle) Err() error {
	switch h.State {
	case StateSucceeded:
		return nil
	case StateFailed, StateCanceled:
		return &RemoteJobError{JobID: h.ID, State: h.State, Message: h.Error}
	case StateTimedOut:
		return &TimeoutError{JobID: h.ID, Elapsed: h.elapsed}
	default:
		return fmt.Errorf("%w: %s is %s", ErrNotTerminal, h.ID, h.State)
	}
}

// RemoteJobError is a terminal Failed or Canceled state reported by the service.
type RemoteJobError struct {
	JobID   string
	State   State
	Message string
}

func (e *RemoteJobError) Error() string {
	return fmt.Sprintf("prediction %s %s: %s", e.JobID, e.State, e.Message)
}

// TimeoutError is returned when polling exceeds its deadline.
// The remote prediction may still be running.
type TimeoutError struct {
	JobID   string
	Elapsed time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("prediction %s timed out after %s", e.JobID, e.Elapsed.Round(time.Second))
}
