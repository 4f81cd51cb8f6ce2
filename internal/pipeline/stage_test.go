package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/maauso/pfp-animate/internal/prediction"
	"github.com/maauso/pfp-animate/internal/replicate"
)

// MockSubmitter is a mock implementation of Submitter.
type MockSubmitter struct {
	mock.Mock
}

func (m *MockSubmitter) Submit(ctx context.Context, target replicate.Target, input map[string]any) (*replicate.Prediction, error) {
	args := m.Called(ctx, target, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replicate.Prediction), args.Error(1)
}

// MockFetcher is a mock implementation of prediction.StatusFetcher.
type MockFetcher struct {
	mock.Mock
}

func (m *MockFetcher) Get(ctx context.Context, id string) (*replicate.Prediction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*replicate.Prediction), args.Error(1)
}

// recordingStage records its calls and returns a fixed outcome.
type recordingStage struct {
	name  string
	art   Artifact
	err   error
	calls []Request
}

func (s *recordingStage) Name() string { return s.name }

func (s *recordingStage) Run(_ context.Context, req Request) (Artifact, error) {
	s.calls = append(s.calls, req)
	return s.art, s.err
}

func noSleep(context.Context, time.Duration) error { return nil }

var testTiming = Timing{Interval: time.Second, Timeout: time.Minute}

func TestRequest_CloneDoesNotAlias(t *testing.T) {
	base := Request{"image": "uri", "rotate_yaw": 0.0}
	next := base.With("rotate_yaw", 10.0)

	assert.Equal(t, 0.0, base["rotate_yaw"])
	assert.Equal(t, 10.0, next["rotate_yaw"])

	merged := base.Merge(map[string]any{"blink": -5.0})
	assert.NotContains(t, base, "blink")
	assert.Equal(t, -5.0, merged["blink"])
	assert.Equal(t, "uri", merged["image"])
}

func TestDirectStage_Succeeds(t *testing.T) {
	target := replicate.Target{Model: "bytedance/omni-human-1.5"}
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, target, map[string]any{"image": "img", "audio": "aud"}).
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusStarting}, nil)

	fetcher := new(MockFetcher)
	fetcher.On("Get", mock.Anything, "p1").Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusProcessing}, nil).Once()
	fetcher.On("Get", mock.Anything, "p1").Return(&replicate.Prediction{
		ID: "p1", Status: replicate.StatusSucceeded, Output: replicate.Output{"https://x/video.mp4"},
	}, nil).Once()

	poller := prediction.NewPoller(fetcher, prediction.WithSleeper(noSleep))
	stage := NewDirectStage(DirectConfig{
		Name:   "lipsync",
		Target: target,
		Build: func(req Request) (map[string]any, error) {
			return map[string]any{"image": req["image"], "audio": req["audio"]}, nil
		},
		Timing: testTiming,
	}, submitter, poller, nil)

	art, err := stage.Run(context.Background(), Request{"image": "img", "audio": "aud", "unused": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/video.mp4"}, art.URLs)
	assert.Equal(t, "lipsync", stage.Name())

	submitter.AssertExpectations(t)
	fetcher.AssertExpectations(t)
}

func TestDirectStage_TerminalAtSubmitSkipsPolling(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, replicate.Target{Model: "a/b", PreferWait: true}, mock.Anything).
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusSucceeded, Output: replicate.Output{"https://x/a.png"}}, nil)

	fetcher := new(MockFetcher)
	poller := prediction.NewPoller(fetcher, prediction.WithSleeper(noSleep))
	stage := NewDirectStage(DirectConfig{Name: "kling", Target: replicate.Target{Model: "a/b"}, PreferWait: true}, submitter, poller, nil)

	art, err := stage.Run(context.Background(), Request{"image": "img"})
	require.NoError(t, err)
	assert.Equal(t, "https://x/a.png", art.First())
	submitter.AssertExpectations(t)
	fetcher.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestDirectStage_RemoteFailure(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything, mock.Anything).
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusStarting}, nil)

	fetcher := new(MockFetcher)
	fetcher.On("Get", mock.Anything, "p1").
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusFailed, Error: "invalid image"}, nil)

	poller := prediction.NewPoller(fetcher, prediction.WithSleeper(noSleep))
	stage := NewDirectStage(DirectConfig{Name: "kling", Target: replicate.Target{Model: "a/b"}, Timing: testTiming}, submitter, poller, nil)

	_, err := stage.Run(context.Background(), Request{})
	require.Error(t, err)

	var stageErr *StageError
	require.ErrorAs(t, err, &stageErr)
	assert.Equal(t, "kling", stageErr.Stage)
	assert.Equal(t, "p1", stageErr.JobID)

	var remoteErr *prediction.RemoteJobError
	require.ErrorAs(t, err, &remoteErr)
	assert.Equal(t, "invalid image", remoteErr.Message)
}

func TestDirectStage_TimedOut(t *testing.T) {
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything, mock.Anything).
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusStarting}, nil)

	fetcher := new(MockFetcher)
	fetcher.On("Get", mock.Anything, "p1").
		Return(&replicate.Prediction{ID: "p1", Status: replicate.StatusProcessing}, nil)

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	poller := prediction.NewPoller(fetcher,
		prediction.WithClock(func() time.Time { return now }),
		prediction.WithSleeper(func(_ context.Context, d time.Duration) error {
			now = now.Add(d)
			return nil
		}),
	)
	stage := NewDirectStage(DirectConfig{Name: "veo", Target: replicate.Target{Model: "google/veo-3.1"}, Timing: Timing{Interval: 5 * time.Second, Timeout: 20 * time.Second}}, submitter, poller, nil)

	_, err := stage.Run(context.Background(), Request{})

	var timeoutErr *prediction.TimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	var remoteErr *prediction.RemoteJobError
	assert.False(t, errors.As(err, &remoteErr))
}

func TestDirectStage_BuildError(t *testing.T) {
	submitter := new(MockSubmitter)
	poller := prediction.NewPoller(new(MockFetcher))
	buildErr := errors.New("image file not found")

	stage := NewDirectStage(DirectConfig{
		Name:  "portrait",
		Build: func(Request) (map[string]any, error) { return nil, buildErr },
	}, submitter, poller, nil)

	_, err := stage.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, buildErr)
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything, mock.Anything)
}

func TestDirectStage_SubmitError(t *testing.T) {
	submitErr := &replicate.TransportError{StatusCode: 422, Body: "bad input"}
	submitter := new(MockSubmitter)
	submitter.On("Submit", mock.Anything, mock.Anything, mock.Anything).Return(nil, submitErr)

	stage := NewDirectStage(DirectConfig{Name: "tts"}, submitter, prediction.NewPoller(new(MockFetcher)), nil)

	_, err := stage.Run(context.Background(), Request{})
	var te *replicate.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 422, te.StatusCode)
}

func TestComposedStage_SplicesUpstreamArtifact(t *testing.T) {
	upstream := &recordingStage{name: "tts", art: Artifact{URLs: []string{"https://x/speech.mp3"}}}
	downstream := &recordingStage{name: "lipsync", art: Artifact{URLs: []string{"https://x/video.mp4"}}}

	stage := Compose("tts+lipsync", upstream, SpliceInto("audio"), downstream)

	req := Request{"image": "img", "text": "hello"}
	art, err := stage.Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "https://x/video.mp4", art.First())

	require.Len(t, downstream.calls, 1)
	assert.Equal(t, "https://x/speech.mp3", downstream.calls[0]["audio"])
	assert.Equal(t, "img", downstream.calls[0]["image"])
	assert.NotContains(t, req, "audio")
}

func TestComposedStage_UpstreamFailureShortCircuits(t *testing.T) {
	upstreamErr := &StageError{Stage: "tts", JobID: "p9", Cause: &prediction.RemoteJobError{JobID: "p9", State: prediction.StateFailed, Message: "voice not found"}}
	upstream := &recordingStage{name: "tts", err: upstreamErr}
	downstream := &recordingStage{name: "lipsync"}

	stage := Compose("tts+lipsync", upstream, SpliceInto("audio"), downstream)

	_, err := stage.Run(context.Background(), Request{})
	assert.Same(t, upstreamErr, err)
	assert.Empty(t, downstream.calls)
}

func TestComposedStage_EmptyUpstreamArtifact(t *testing.T) {
	upstream := &recordingStage{name: "tts"}
	downstream := &recordingStage{name: "lipsync"}

	stage := Compose("tts+lipsync", upstream, SpliceInto("audio"), downstream)

	_, err := stage.Run(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrEmptyArtifact)
	assert.Empty(t, downstream.calls)
}
