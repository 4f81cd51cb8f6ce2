// Package sequencer generates keyframe animations one frame at a time.
// Frames are submitted serially with a cooldown between them; a lost frame
// leaves an empty slot and never aborts the sequence.
package sequencer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/maauso/pfp-animate/internal/pipeline"
	"github.com/maauso/pfp-animate/internal/prediction"
	"github.com/maauso/pfp-animate/internal/replicate"
)

// ErrEmptyKeyframeSet is returned when Generate is called without keyframes.
var ErrEmptyKeyframeSet = errors.New("sequencer: keyframe set is empty")

// Keyframe is one snapshot of motion parameter values.
type Keyframe map[string]float64

// KeyframeSet is an ordered, non-empty list of keyframes.
type KeyframeSet []Keyframe

// Slot is the outcome of one keyframe. Artifact is nil when the frame was lost.
type Slot struct {
	Index    int
	Artifact *pipeline.Artifact
	Err      error
}

// Config holds the frame-level retry and pacing parameters.
type Config struct {
	// FrameAttempts bounds attempts per frame when the frame is throttled.
	FrameAttempts int
	// RetryDelay is the wait between throttled attempts of the same frame.
	RetryDelay time.Duration
	// InterFrameDelay is the wait between consecutive frames.
	InterFrameDelay time.Duration
}

// DefaultConfig returns 3 attempts, a 12s retry delay and a 10s inter-frame delay.
func DefaultConfig() Config {
	return Config{
		FrameAttempts:   3,
		RetryDelay:      12 * time.Second,
		InterFrameDelay: 10 * time.Second,
	}
}

// Sequencer runs one stage per keyframe.
type Sequencer struct {
	stage    pipeline.Stage
	cfg      Config
	sleep    replicate.Sleeper
	logger   *slog.Logger
	progress func(done, total int)
}

// Option configures a Sequencer.
type Option func(*Sequencer)

// WithSleeper overrides how delays are waited (useful for tests).
func WithSleeper(s replicate.Sleeper) Option {
	return func(q *Sequencer) {
		if s != nil {
			q.sleep = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(q *Sequencer) {
		if l != nil {
			q.logger = l
		}
	}
}

// WithProgress registers a callback invoked after each frame settles.
func WithProgress(fn func(done, total int)) Option {
	return func(q *Sequencer) {
		q.progress = fn
	}
}

// New creates a Sequencer running stage once per keyframe.
func New(stage pipeline.Stage, cfg Config, opts ...Option) *Sequencer {
	if cfg.FrameAttempts < 1 {
		cfg.FrameAttempts = 1
	}
	q := &Sequencer{
		stage:  stage,
		cfg:    cfg,
		sleep:  replicate.SleepContext,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Generate runs every keyframe in order, each overlaid on a clone of base.
// It returns exactly len(set) slots in keyframe order. The error is non-nil
// only for an empty set or when ctx ends; remaining slots are then marked
// with the context error.
func (q *Sequencer) Generate(ctx context.Context, base pipeline.Request, set KeyframeSet) ([]Slot, error) {
	if len(set) == 0 {
		return nil, ErrEmptyKeyframeSet
	}

	total := len(set)
	slots := make([]Slot, total)
	for i := range slots {
		slots[i].Index = i
	}

	for i, kf := range set {
		if err := ctx.Err(); err != nil {
			abandon(slots[i:], err)
			return slots, err
		}

		overlay := make(map[string]any, len(kf))
		for k, v := range kf {
			overlay[k] = v
		}

		art, err := q.runFrame(ctx, i, total, base.Merge(overlay))
		if err != nil {
			slots[i].Err = err
			q.logger.Warn("frame lost",
				slog.Int("frame", i+1),
				slog.Int("total", total),
				slog.String("error", err.Error()),
			)
		} else {
			slots[i].Artifact = &art
			q.logger.Info("frame generated",
				slog.Int("frame", i+1),
				slog.Int("total", total),
			)
		}

		if q.progress != nil {
			q.progress(i+1, total)
		}

		if i < total-1 {
			if err := q.sleep(ctx, q.cfg.InterFrameDelay); err != nil {
				abandon(slots[i+1:], err)
				return slots, err
			}
		}
	}

	return slots, nil
}

func (q *Sequencer) runFrame(ctx context.Context, index, total int, req pipeline.Request) (pipeline.Artifact, error) {
	var lastErr error
	for attempt := 1; attempt <= q.cfg.FrameAttempts; attempt++ {
		art, err := q.stage.Run(ctx, req)
		if err == nil {
			return art, nil
		}
		lastErr = err

		if !IsThrottled(err) || attempt == q.cfg.FrameAttempts {
			break
		}

		q.logger.Warn("frame throttled, retrying",
			slog.Int("frame", index+1),
			slog.Int("total", total),
			slog.Int("attempt", attempt),
			slog.Duration("wait", q.cfg.RetryDelay),
		)
		if err := q.sleep(ctx, q.cfg.RetryDelay); err != nil {
			return pipeline.Artifact{}, err
		}
	}
	return pipeline.Artifact{}, lastErr
}

func abandon(slots []Slot, err error) {
	for i := range slots {
		slots[i].Err = err
	}
}

// IsThrottled reports whether a frame failed because of rate limiting,
// either at the HTTP level or as a remote failure mentioning it.
func IsThrottled(err error) bool {
	if replicate.IsThrottled(err) {
		return true
	}
	var remoteErr *prediction.RemoteJobError
	if errors.As(err, &remoteErr) {
		msg := strings.ToLower(remoteErr.Message)
		return strings.Contains(msg, "throttled") || strings.Contains(msg, "429")
	}
	return false
}

// Lost returns the indices of slots without an artifact.
func Lost(slots []Slot) []int {
	var lost []int
	for _, s := range slots {
		if s.Artifact == nil {
			lost = append(lost, s.Index)
		}
	}
	return lost
}
