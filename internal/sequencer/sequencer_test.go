package sequencer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/pfp-animate/internal/pipeline"
	"github.com/maauso/pfp-animate/internal/prediction"
	"github.com/maauso/pfp-animate/internal/replicate"
)

// frameStage fails frames listed in errs and succeeds the rest.
type frameStage struct {
	errs  map[float64]error
	calls []pipeline.Request
}

func (s *frameStage) Name() string { return "frame" }

func (s *frameStage) Run(_ context.Context, req pipeline.Request) (pipeline.Artifact, error) {
	s.calls = append(s.calls, req)
	id := req["frame_id"].(float64)
	if err, ok := s.errs[id]; ok {
		return pipeline.Artifact{}, err
	}
	return pipeline.Artifact{URLs: []string{fmt.Sprintf("https://x/frame-%d.png", int(id))}}, nil
}

type sleepLog struct {
	waits []time.Duration
}

func (l *sleepLog) sleep(ctx context.Context, d time.Duration) error {
	l.waits = append(l.waits, d)
	return ctx.Err()
}

func throttledStageErr() error {
	return &pipeline.StageError{
		Stage: "frame",
		Cause: fmt.Errorf("%w after 3 attempts: %w", replicate.ErrRetriesExhausted,
			&replicate.TransportError{StatusCode: http.StatusTooManyRequests}),
	}
}

func keyframes(n int) KeyframeSet {
	set := make(KeyframeSet, n)
	for i := range set {
		set[i] = Keyframe{"frame_id": float64(i), "rotate_yaw": float64(i * 5)}
	}
	return set
}

var testConfig = Config{FrameAttempts: 3, RetryDelay: 12 * time.Second, InterFrameDelay: 10 * time.Second}

func TestGenerate_AllSucceed(t *testing.T) {
	stage := &frameStage{}
	sleeps := &sleepLog{}
	var progress []int
	q := New(stage, testConfig, WithSleeper(sleeps.sleep), WithProgress(func(done, _ int) { progress = append(progress, done) }))

	base := pipeline.Request{"image": "img", "rotate_yaw": 0.0, "blink": 0.0}
	slots, err := q.Generate(context.Background(), base, keyframes(4))
	require.NoError(t, err)

	require.Len(t, slots, 4)
	for i, s := range slots {
		assert.Equal(t, i, s.Index)
		require.NotNil(t, s.Artifact)
		assert.Equal(t, fmt.Sprintf("https://x/frame-%d.png", i), s.Artifact.First())
	}
	assert.Empty(t, Lost(slots))

	// delay between frames, none after the last
	assert.Equal(t, []time.Duration{10 * time.Second, 10 * time.Second, 10 * time.Second}, sleeps.waits)
	assert.Equal(t, []int{1, 2, 3, 4}, progress)

	// keyframe overlays base without mutating it
	assert.Equal(t, 15.0, stage.calls[3]["rotate_yaw"])
	assert.Equal(t, "img", stage.calls[3]["image"])
	assert.Equal(t, 0.0, base["rotate_yaw"])
}

func TestGenerate_ThrottledFrameIsRetriedThenLost(t *testing.T) {
	stage := &frameStage{errs: map[float64]error{1: throttledStageErr()}}
	sleeps := &sleepLog{}
	q := New(stage, testConfig, WithSleeper(sleeps.sleep))

	slots, err := q.Generate(context.Background(), pipeline.Request{"image": "img"}, keyframes(3))
	require.NoError(t, err)

	require.Len(t, slots, 3)
	assert.NotNil(t, slots[0].Artifact)
	assert.Nil(t, slots[1].Artifact)
	assert.True(t, IsThrottled(slots[1].Err))
	assert.NotNil(t, slots[2].Artifact)
	assert.Equal(t, []int{1}, Lost(slots))

	// frame 0 once, frame 1 three times, frame 2 once
	assert.Len(t, stage.calls, 5)
	assert.Equal(t, []time.Duration{
		10 * time.Second,
		12 * time.Second, 12 * time.Second,
		10 * time.Second,
	}, sleeps.waits)
}

func TestGenerate_ThrottledFrameRecovers(t *testing.T) {
	flaky := &flakyStage{failures: 2}
	q := New(flaky, testConfig, WithSleeper((&sleepLog{}).sleep))

	slots, err := q.Generate(context.Background(), pipeline.Request{}, KeyframeSet{{"a": 1}})
	require.NoError(t, err)
	require.NotNil(t, slots[0].Artifact)
	assert.Equal(t, 3, flaky.calls)
}

func TestGenerate_NonThrottleFailureNotRetried(t *testing.T) {
	remote := &pipeline.StageError{Stage: "frame", JobID: "p1", Cause: &prediction.RemoteJobError{
		JobID: "p1", State: prediction.StateFailed, Message: "face not detected",
	}}
	stage := &frameStage{errs: map[float64]error{0: remote}}
	q := New(stage, testConfig, WithSleeper((&sleepLog{}).sleep))

	slots, err := q.Generate(context.Background(), pipeline.Request{}, keyframes(2))
	require.NoError(t, err)

	assert.Len(t, stage.calls, 2)
	assert.Nil(t, slots[0].Artifact)
	assert.Same(t, remote, slots[0].Err)
	assert.Equal(t, []int{0}, Lost(slots))
}

func TestGenerate_AllFramesLost(t *testing.T) {
	fatal := errors.New("boom")
	stage := &frameStage{errs: map[float64]error{0: fatal, 1: fatal, 2: fatal}}
	q := New(stage, testConfig, WithSleeper((&sleepLog{}).sleep))

	slots, err := q.Generate(context.Background(), pipeline.Request{}, keyframes(3))
	require.NoError(t, err)
	assert.Len(t, slots, 3)
	assert.Equal(t, []int{0, 1, 2}, Lost(slots))
}

func TestGenerate_EmptySet(t *testing.T) {
	q := New(&frameStage{}, testConfig)
	_, err := q.Generate(context.Background(), pipeline.Request{}, nil)
	assert.ErrorIs(t, err, ErrEmptyKeyframeSet)
}

func TestGenerate_CancelledKeepsSlotCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	stage := &frameStage{}
	q := New(stage, testConfig, WithSleeper(func(context.Context, time.Duration) error {
		cancel()
		return context.Canceled
	}))

	slots, err := q.Generate(ctx, pipeline.Request{}, keyframes(4))
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, slots, 4)
	assert.NotNil(t, slots[0].Artifact)
	assert.Equal(t, []int{1, 2, 3}, Lost(slots))
	assert.Len(t, stage.calls, 1)
}

func TestIsThrottled(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"http 429", throttledStageErr(), true},
		{"remote throttled message", &prediction.RemoteJobError{Message: "Request was throttled"}, true},
		{"remote 429 message", &prediction.RemoteJobError{Message: "upstream returned 429"}, true},
		{"remote other", &prediction.RemoteJobError{Message: "NSFW"}, false},
		{"http 500", &replicate.TransportError{StatusCode: 500}, false},
		{"timeout", &prediction.TimeoutError{JobID: "p"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsThrottled(tt.err))
		})
	}
}

// flakyStage is throttled for the first failures calls.
type flakyStage struct {
	failures int
	calls    int
}

func (s *flakyStage) Name() string { return "flaky" }

func (s *flakyStage) Run(context.Context, pipeline.Request) (pipeline.Artifact, error) {
	s.calls++
	if s.calls <= s.failures {
		return pipeline.Artifact{}, throttledStageErr()
	}
	return pipeline.Artifact{URLs: []string{"u"}}, nil
}
