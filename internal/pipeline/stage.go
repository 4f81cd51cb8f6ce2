// Package pipeline composes remote predictions into stages.
// A DirectStage submits one prediction and polls it to completion; a
// ComposedStage feeds the artifact of one stage into the request of the next.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/maauso/pfp-animate/internal/prediction"
	"github.com/maauso/pfp-animate/internal/replicate"
)

// ErrEmptyArtifact is returned when a splice receives an artifact without URLs.
var ErrEmptyArtifact = errors.New("pipeline: upstream artifact has no URLs")

// Request is the parameter set of one stage invocation.
// Stages never mutate a Request they receive; they work on clones.
type Request map[string]any

// Clone returns a shallow copy of r.
func (r Request) Clone() Request {
	out := make(Request, len(r))
	maps.Copy(out, r)
	return out
}

// With returns a clone of r with key set to v.
func (r Request) With(key string, v any) Request {
	out := r.Clone()
	out[key] = v
	return out
}

// Merge returns a clone of r overlaid with every entry of overlay.
func (r Request) Merge(overlay map[string]any) Request {
	out := r.Clone()
	maps.Copy(out, overlay)
	return out
}

// Artifact is the ordered list of URLs a stage produced.
type Artifact struct {
	URLs []string
}

// First returns the first URL or "".
func (a Artifact) First() string {
	if len(a.URLs) == 0 {
		return ""
	}
	return a.URLs[0]
}

// IsEmpty reports whether the artifact has no URLs.
func (a Artifact) IsEmpty() bool {
	return len(a.URLs) == 0
}

// Stage is one unit of pipeline work.
type Stage interface {
	Name() string
	Run(ctx context.Context, req Request) (Artifact, error)
}

// StageError reports which stage failed and why. Cause is one of
// *prediction.RemoteJobError, *prediction.TimeoutError, a transport or
// precondition error, or a context error.
type StageError struct {
	Stage string
	JobID string
	Cause error
}

func (e *StageError) Error() string {
	if e.JobID != "" {
		return fmt.Sprintf("stage %s (prediction %s): %v", e.Stage, e.JobID, e.Cause)
	}
	return fmt.Sprintf("stage %s: %v", e.Stage, e.Cause)
}

func (e *StageError) Unwrap() error {
	return e.Cause
}

// Builder turns a Request into the model input fields.
type Builder func(req Request) (map[string]any, error)

// Submitter creates predictions.
type Submitter interface {
	Submit(ctx context.Context, target replicate.Target, input map[string]any) (*replicate.Prediction, error)
}

// Timing is the poll cadence and deadline of a stage.
type Timing struct {
	Interval time.Duration
	Timeout  time.Duration
}

// DirectConfig describes a DirectStage.
type DirectConfig struct {
	Name   string
	Target replicate.Target
	Build  Builder
	Timing Timing
	// PreferWait submits in sync mode; a prediction that finishes inside
	// the sync window is resolved without polling.
	PreferWait bool
}

// DirectStage submits one prediction and polls it to a terminal state.
type DirectStage struct {
	cfg    DirectConfig
	client Submitter
	poller *prediction.Poller
	logger *slog.Logger
}

// NewDirectStage creates a DirectStage. A nil Build passes the request through as input.
func NewDirectStage(cfg DirectConfig, client Submitter, poller *prediction.Poller, logger *slog.Logger) *DirectStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectStage{
		cfg:    cfg,
		client: client,
		poller: poller,
		logger: logger,
	}
}

// Name returns the stage name.
func (s *DirectStage) Name() string {
	return s.cfg.Name
}

// Run submits req and returns the artifact of the succeeded prediction.
func (s *DirectStage) Run(ctx context.Context, req Request) (Artifact, error) {
	input := map[string]any(req.Clone())
	if s.cfg.Build != nil {
		built, err := s.cfg.Build(req.Clone())
		if err != nil {
			return Artifact{}, &StageError{Stage: s.cfg.Name, Cause: err}
		}
		input = built
	}

	target := s.cfg.Target
	target.PreferWait = target.PreferWait || s.cfg.PreferWait
	pred, err := s.client.Submit(ctx, target, input)
	if err != nil {
		return Artifact{}, &StageError{Stage: s.cfg.Name, Cause: err}
	}

	h := prediction.NewHandle(pred.ID, s.cfg.Target.String(), s.poller.Now())
	s.logger.Info("prediction submitted",
		slog.String("stage", s.cfg.Name),
		slog.String("prediction_id", pred.ID),
		slog.String("model", s.cfg.Target.String()),
	)

	if pred.Status.IsTerminal() {
		if err := h.Observe(pred); err != nil {
			return Artifact{}, &StageError{Stage: s.cfg.Name, JobID: h.ID, Cause: err}
		}
	} else if err := s.poller.Poll(ctx, h, s.cfg.Timing.Interval, s.cfg.Timing.Timeout); err != nil {
		return Artifact{}, &StageError{Stage: s.cfg.Name, JobID: h.ID, Cause: err}
	}

	if err := h.Err(); err != nil {
		return Artifact{}, &StageError{Stage: s.cfg.Name, JobID: h.ID, Cause: err}
	}
	return Artifact{URLs: h.Result}, nil
}

// Splice places an upstream artifact into the downstream request.
type Splice func(upstream Artifact, downstream Request) (Request, error)

// SpliceInto returns a Splice that sets key to the first upstream URL.
func SpliceInto(key string) Splice {
	return func(upstream Artifact, downstream Request) (Request, error) {
		if upstream.IsEmpty() {
			return nil, ErrEmptyArtifact
		}
		return downstream.With(key, upstream.First()), nil
	}
}

// ComposedStage runs Upstream, splices its artifact into the request and
// runs Downstream. The first failure is returned unchanged.
type ComposedStage struct {
	name       string
	upstream   Stage
	downstream Stage
	splice     Splice
}

// Compose chains upstream into downstream through splice.
func Compose(name string, upstream Stage, splice Splice, downstream Stage) *ComposedStage {
	return &ComposedStage{
		name:       name,
		upstream:   upstream,
		downstream: downstream,
		splice:     splice,
	}
}

// Name returns the composed stage name.
func (c *ComposedStage) Name() string {
	return c.name
}

// Run executes both stages in order.
func (c *ComposedStage) Run(ctx context.Context, req Request) (Artifact, error) {
	art, err := c.upstream.Run(ctx, req)
	if err != nil {
		return Artifact{}, err
	}

	next, err := c.splice(art, req.Clone())
	if err != nil {
		return Artifact{}, &StageError{Stage: c.name, Cause: err}
	}

	return c.downstream.Run(ctx, next)
}

// Compile-time checks that both variants implement Stage.
var (
	_ Stage = (*DirectStage)(nil)
	_ Stage = (*ComposedStage)(nil)
)
