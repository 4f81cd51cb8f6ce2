// Package server provides the HTTP API for pfp-animate.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

import (
	"time"

	"github.com/maauso/pfp-animate/internal/job"
	"github.com/maauso/pfp-animate/internal/sequencer"
)

// CreateJobRequest is the HTTP request body for creating a new job.
// Media fields take an http(s) URL or a data URI; the server never reads
// local paths on behalf of a client.
type CreateJobRequest struct {
	// Kind selects the pipeline.
	Kind string `json:"kind" validate:"required,oneof=keyframe lipsync tts_lipsync kling veo portrait"`
	// Image is the source portrait.
	Image string `json:"image" validate:"required,http_url|datauri"`

	// Animation names a keyframe preset.
	Animation string `json:"animation,omitempty"`
	// Keyframes is a custom keyframe list that overrides Animation.
	Keyframes []map[string]float64 `json:"keyframes,omitempty" validate:"omitempty,max=120,dive,min=1"`
	// GridX and GridY request a gaze grid instead of a preset.
	GridX int `json:"grid_x,omitempty" validate:"omitempty,min=2,max=10"`
	GridY int `json:"grid_y,omitempty" validate:"omitempty,min=2,max=10"`
	// Stylize restyles the portrait before animating it.
	Stylize bool `json:"stylize,omitempty"`

	// Audio is the lip-sync soundtrack.
	Audio string `json:"audio,omitempty" validate:"omitempty,http_url|datauri"`
	// Text is spoken by the TTS voice.
	Text     string `json:"text,omitempty" validate:"max=5000"`
	Voice    string `json:"voice,omitempty"`
	Language string `json:"language,omitempty"`
	Seed     *int   `json:"seed,omitempty"`
	FastMode bool   `json:"fast_mode,omitempty"`

	// Motion names a motion preset used when Prompt is empty.
	Motion         string   `json:"motion,omitempty"`
	Prompt         string   `json:"prompt,omitempty" validate:"max=2000"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Duration       int      `json:"duration,omitempty"`
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	Resolution     string   `json:"resolution,omitempty"`
	GenerateAudio  *bool    `json:"generate_audio,omitempty"`
	Guidance       *float64 `json:"guidance,omitempty"`

	// ReferenceImages and EndImage guide veo generation.
	ReferenceImages []string `json:"reference_images,omitempty" validate:"omitempty,max=3,dive,http_url|datauri"`
	EndImage        string   `json:"end_image,omitempty" validate:"omitempty,http_url|datauri"`

	// Format is the preferred container for keyframe jobs.
	Format string `json:"format,omitempty"`
	FPS    int    `json:"fps,omitempty"`
	// Publish uploads the deliverable to the configured bucket.
	Publish bool `json:"publish,omitempty"`
}

// toInput converts the request to the service input.
func (r CreateJobRequest) toInput() job.Input {
	in := job.Input{
		Kind:           job.Kind(r.Kind),
		Image:          r.Image,
		Animation:      r.Animation,
		GridX:          r.GridX,
		GridY:          r.GridY,
		Stylize:        r.Stylize,
		Audio:          r.Audio,
		Text:           r.Text,
		Voice:          r.Voice,
		Language:       r.Language,
		Seed:           r.Seed,
		FastMode:       r.FastMode,
		Motion:         r.Motion,
		Prompt:         r.Prompt,
		NegativePrompt: r.NegativePrompt,
		Duration:       r.Duration,
		AspectRatio:    r.AspectRatio,
		Resolution:     r.Resolution,
		GenerateAudio:  r.GenerateAudio,
		Guidance:       r.Guidance,
		Format:         r.Format,
		FPS:            r.FPS,
		Publish:        r.Publish,
	}
	in.ReferenceImages = r.ReferenceImages
	in.EndImage = r.EndImage
	for _, kf := range r.Keyframes {
		in.Keyframes = append(in.Keyframes, sequencer.Keyframe(kf))
	}
	return in
}

// CreateJobResponse is the HTTP response after creating a job.
type CreateJobResponse struct {
	// ID is the unique identifier for the created job.
	ID string `json:"id"`
	// Status is the initial job status.
	Status string `json:"status"`
}

// JobResponse is the HTTP response for getting job details.
type JobResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Status      string    `json:"status"`
	Stage       string    `json:"stage,omitempty"`
	RemoteState string    `json:"remote_state,omitempty"`
	Progress    int       `json:"progress"`
	FramesTotal int       `json:"frames_total,omitempty"`
	LostFrames  []int     `json:"lost_frames,omitempty"`
	Format      string    `json:"format,omitempty"`
	FellBack    bool      `json:"fell_back,omitempty"`
	CostUSD     float64   `json:"cost_estimate_usd,omitempty"`
	ElapsedMs   int64     `json:"elapsed_ms"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	// OutputURL is the published URL of the deliverable.
	OutputURL string `json:"output_url,omitempty"`
	// OutputBase64 is the deliverable content when it was not published.
	OutputBase64 string `json:"output_base64,omitempty"`
}

// newJobResponse builds the response for j without output content.
func newJobResponse(j *job.Job) JobResponse {
	return JobResponse{
		ID:          j.ID,
		Kind:        string(j.Kind),
		Status:      string(j.Status),
		Stage:       j.Stage,
		RemoteState: j.RemoteState,
		Progress:    j.Progress,
		FramesTotal: j.FramesTotal,
		LostFrames:  j.LostFrames,
		Format:      j.Format,
		FellBack:    j.FellBack,
		CostUSD:     j.CostEstimate,
		ElapsedMs:   j.Elapsed().Milliseconds(),
		Error:       j.Error,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		OutputURL:   j.OutputURL,
	}
}

// JobListResponse is the HTTP response for listing jobs.
type JobListResponse struct {
	Jobs []JobResponse `json:"jobs"`
}

// AnimationPreset describes a keyframe preset.
type AnimationPreset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	FPS         int    `json:"fps"`
	Frames      int    `json:"frames"`
}

// MotionPreset describes a video motion preset.
type MotionPreset struct {
	Name     string `json:"name"`
	Prompt   string `json:"prompt"`
	Negative string `json:"negative_prompt,omitempty"`
}

// PresetsResponse is the HTTP response for the preset catalog.
type PresetsResponse struct {
	Animations []AnimationPreset `json:"animations"`
	Motions    []MotionPreset    `json:"motions"`
	Voices     []string          `json:"voices"`
	Publish    bool              `json:"publish_available"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
