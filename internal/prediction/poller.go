package prediction

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/maauso/pfp-animate/internal/replicate"
)

// StatusFetcher queries the current state of a prediction.
type StatusFetcher interface {
	Get(ctx context.Context, id string) (*replicate.Prediction, error)
}

// StateChange is emitted once per distinct state a handle passes through.
type StateChange struct {
	JobID   string
	Target  string
	From    State
	To      State
	Elapsed time.Duration
}

// Poller resolves handles to a terminal state.
type Poller struct {
	fetcher  StatusFetcher
	sleep    replicate.Sleeper
	now      func() time.Time
	logger   *slog.Logger
	observer func(StateChange)
}

// Option configures a Poller.
type Option func(*Poller)

// WithSleeper overrides how poll intervals are waited (useful for tests).
func WithSleeper(s replicate.Sleeper) Option {
	return func(p *Poller) {
		if s != nil {
			p.sleep = s
		}
	}
}

// WithClock overrides the wall clock used for timeout accounting.
func WithClock(now func() time.Time) Option {
	return func(p *Poller) {
		if now != nil {
			p.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Poller) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithObserver registers a callback receiving every state change.
func WithObserver(fn func(StateChange)) Option {
	return func(p *Poller) {
		p.observer = fn
	}
}

// NewPoller creates a Poller reading status through fetcher.
func NewPoller(fetcher StatusFetcher, opts ...Option) *Poller {
	p := &Poller{
		fetcher: fetcher,
		sleep:   replicate.SleepContext,
		now:     time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Now returns the poller's clock reading.
func (p *Poller) Now() time.Time {
	return p.now()
}

// Poll queries h until it reaches a terminal state or timeout elapses,
// sleeping interval between queries. A failed status query is logged and
// counted as a missed poll. On a nil return h is terminal; the only errors
// returned come from ctx.
func (p *Poller) Poll(ctx context.Context, h *Handle, interval, timeout time.Duration) error {
	start := p.now()
	var emitted State
	missed := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		pred, err := p.fetcher.Get(ctx, h.ID)
		h.LastPolledAt = p.now()

		switch {
		case err != nil:
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			missed++
			p.logger.Warn("status query failed, treating as missed poll",
				slog.String("prediction_id", h.ID),
				slog.Int("missed", missed),
				slog.String("error", err.Error()),
			)
		default:
			if err := h.Observe(pred); err != nil {
				level := slog.LevelDebug
				if errors.Is(err, ErrUnknownStatus) {
					level = slog.LevelWarn
				}
				p.logger.Log(ctx, level, "ignoring status update",
					slog.String("prediction_id", h.ID),
					slog.String("remote_status", string(pred.Status)),
					slog.String("error", err.Error()),
				)
			}
		}

		elapsed := h.LastPolledAt.Sub(start)
		if h.State != emitted && (err == nil || emitted != "") {
			p.emit(h, emitted, elapsed)
			emitted = h.State
		}

		if h.IsTerminal() {
			return nil
		}

		if timeout > 0 && elapsed >= timeout {
			_ = h.TimeOut(elapsed)
			p.emit(h, emitted, elapsed)
			return nil
		}

		if err := p.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

func (p *Poller) emit(h *Handle, from State, elapsed time.Duration) {
	change := StateChange{
		JobID:   h.ID,
		Target:  h.Target,
		From:    from,
		To:      h.State,
		Elapsed: elapsed,
	}

	attrs := []any{
		slog.String("prediction_id", h.ID),
		slog.String("state", string(h.State)),
		slog.Duration("elapsed", elapsed.Round(time.Millisecond)),
	}
	if h.Target != "" {
		attrs = append(attrs, slog.String("model", h.Target))
	}
	if h.Error != "" {
		attrs = append(attrs, slog.String("cause", h.Error))
	}
	p.logger.Info("prediction state changed", attrs...)

	if p.observer != nil {
		p.observer(change)
	}
}
