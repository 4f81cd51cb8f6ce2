// Package job provides the Job aggregate that tracks one animation request
// from submission to a delivered file, the repository port that stores it,
// and the service that runs the remote pipeline for each job kind.
package job

import (
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Kind selects the pipeline a job runs.
type Kind string

const (
	// KindKeyframe renders a keyframe sequence with the expression editor.
	KindKeyframe Kind = "keyframe"
	// KindLipSync animates an image with supplied audio.
	KindLipSync Kind = "lipsync"
	// KindTTSLipSync synthesizes speech from text and lip-syncs it.
	KindTTSLipSync Kind = "tts_lipsync"
	// KindKling generates a short video from a motion prompt.
	KindKling Kind = "kling"
	// KindVeo generates a video with synchronized audio.
	KindVeo Kind = "veo"
	// KindPortrait restyles a photo into a 3D portrait.
	KindPortrait Kind = "portrait"
)

// Kinds lists every job kind.
var Kinds = []Kind{KindKeyframe, KindLipSync, KindTTSLipSync, KindKling, KindVeo, KindPortrait}

// IsValid returns true if the kind is known.
func (k Kind) IsValid() bool {
	return slices.Contains(Kinds, k)
}

// Status represents the current state of a Job.
type Status string

const (
	// StatusInQueue indicates the job is accepted but not started.
	StatusInQueue Status = "IN_QUEUE"
	// StatusRunning indicates the pipeline is executing.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates a deliverable was produced.
	StatusCompleted Status = "COMPLETED"
	// StatusFailed indicates the pipeline failed.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates a prediction or the job context was cancelled.
	StatusCancelled Status = "CANCELLED"
	// StatusTimedOut indicates a prediction exceeded its deadline.
	StatusTimedOut Status = "TIMED_OUT"
)

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[Status][]Status{
	StatusInQueue:   {StatusRunning, StatusFailed, StatusCancelled},
	StatusRunning:   {StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut},
	StatusCompleted: {},
	StatusFailed:    {},
	StatusCancelled: {},
	StatusTimedOut:  {},
}

// canTransition checks if a transition from one status to another is valid.
func canTransition(from, to Status) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	return slices.Contains(allowed, to)
}

// Job is one animation request and its progress.
type Job struct {
	mu sync.RWMutex

	// ID is a time-ordered UUID.
	ID string
	// Kind is the pipeline this job runs.
	Kind Kind
	// Status is the current job state.
	Status Status
	// Stage names the pipeline step in progress.
	Stage string
	// RemoteState is the last observed state of the current prediction.
	RemoteState string
	// Progress is the percentage of completion (0-100).
	Progress int
	// FramesTotal is the keyframe count of a keyframe job.
	FramesTotal int
	// LostFrames lists the 0-based indices of frames that could not be generated.
	LostFrames []int
	// Error contains the failure cause of a failed, cancelled or timed out job.
	Error string
	// Format is the container of the deliverable.
	Format string
	// FellBack is true when the preferred format could not be produced.
	FellBack bool
	// OutputPath is the local deliverable path, empty once published.
	OutputPath string
	// OutputURL is the published URL, if any.
	OutputURL string
	// Publish indicates whether the deliverable should be uploaded.
	Publish bool
	// CostEstimate is the estimated remote compute cost in USD.
	CostEstimate float64
	// CreatedAt is when the job was created.
	CreatedAt time.Time
	// UpdatedAt is when the job was last updated.
	UpdatedAt time.Time
	// StartedAt is when processing started.
	StartedAt time.Time
	// CompletedAt is when processing finished.
	CompletedAt time.Time
}

// New creates a job of the given kind in IN_QUEUE with a UUIDv7 ID.
func New(kind Kind) *Job {
	return NewWithID(uuid.Must(uuid.NewV7()).String(), kind)
}

// NewWithID creates a job with the specified ID in IN_QUEUE.
func NewWithID(jobID string, kind Kind) *Job {
	now := time.Now()
	return &Job{
		ID:        jobID,
		Kind:      kind,
		Status:    StatusInQueue,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// TransitionTo attempts to change the job status to the specified state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(status Status) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(status)
}

func (j *Job) transitionLocked(status Status) error {
	if !canTransition(j.Status, status) {
		return ErrInvalidTransition
	}

	j.Status = status
	j.UpdatedAt = time.Now()

	switch status {
	case StatusRunning:
		j.StartedAt = j.UpdatedAt
	case StatusCompleted, StatusFailed, StatusCancelled, StatusTimedOut:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// Start transitions the job from IN_QUEUE to RUNNING.
func (j *Job) Start() error {
	return j.TransitionTo(StatusRunning)
}

// Complete transitions the job to COMPLETED at 100% progress.
func (j *Job) Complete() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(StatusCompleted); err != nil {
		return err
	}
	j.Progress = 100
	j.Stage = ""
	return nil
}

// Finish moves the job to a failure state with a cause.
// status must be FAILED, CANCELLED or TIMED_OUT.
func (j *Job) Finish(status Status, cause string) error {
	if status != StatusFailed && status != StatusCancelled && status != StatusTimedOut {
		return ErrInvalidTransition
	}
	j.mu.Lock()
	defer j.mu.Unlock()
	if err := j.transitionLocked(status); err != nil {
		return err
	}
	j.Error = cause
	return nil
}

// Fail transitions the job to FAILED with an error message.
func (j *Job) Fail(errMsg string) error {
	return j.Finish(StatusFailed, errMsg)
}

// GetStatus returns the current job status (thread-safe).
func (j *Job) GetStatus() Status {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status
}

// SetStage records the pipeline step in progress.
func (j *Job) SetStage(stage string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Stage = stage
	j.UpdatedAt = time.Now()
}

// SetRemoteState records the state of the prediction being polled.
func (j *Job) SetRemoteState(state string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RemoteState = state
	j.UpdatedAt = time.Now()
}

// UpdateProgress sets the progress percentage (0-100).
func (j *Job) UpdateProgress(progress int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress = min(max(progress, 0), 100)
	j.UpdatedAt = time.Now()
}

// SetFrames records the frame count and lost frame indices.
func (j *Job) SetFrames(total int, lost []int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.FramesTotal = total
	j.LostFrames = slices.Clone(lost)
	j.UpdatedAt = time.Now()
}

// SetOutput records the deliverable.
func (j *Job) SetOutput(path, url, format string, fellBack bool) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.OutputPath = path
	j.OutputURL = url
	j.Format = format
	j.FellBack = fellBack
	j.UpdatedAt = time.Now()
}

// SetCostEstimate records the estimated compute cost.
func (j *Job) SetCostEstimate(usd float64) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.CostEstimate = usd
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.Status == StatusCompleted ||
		j.Status == StatusFailed ||
		j.Status == StatusCancelled ||
		j.Status == StatusTimedOut
}

// Elapsed returns the processing time so far, or the total once terminal.
func (j *Job) Elapsed() time.Duration {
	j.mu.RLock()
	defer j.mu.RUnlock()
	switch {
	case j.StartedAt.IsZero():
		return 0
	case !j.CompletedAt.IsZero():
		return j.CompletedAt.Sub(j.StartedAt)
	default:
		return time.Since(j.StartedAt)
	}
}

// Clone creates a deep copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		ID:           j.ID,
		Kind:         j.Kind,
		Status:       j.Status,
		Stage:        j.Stage,
		RemoteState:  j.RemoteState,
		Progress:     j.Progress,
		FramesTotal:  j.FramesTotal,
		LostFrames:   slices.Clone(j.LostFrames),
		Error:        j.Error,
		Format:       j.Format,
		FellBack:     j.FellBack,
		OutputPath:   j.OutputPath,
		OutputURL:    j.OutputURL,
		Publish:      j.Publish,
		CostEstimate: j.CostEstimate,
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
		StartedAt:    j.StartedAt,
		CompletedAt:  j.CompletedAt,
	}
}
