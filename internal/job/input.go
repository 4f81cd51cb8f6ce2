package job

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/pfp-animate/internal/sequencer"
)

// ErrInvalidInput wraps every input validation failure.
var ErrInvalidInput = errors.New("invalid job input")

// Input describes one animation request. Image, Audio, ReferenceImages and
// EndImage accept a local path, an http(s) URL or a data URI.
type Input struct {
	Kind  Kind   `validate:"required"`
	Image string `validate:"required"`

	// keyframe
	Animation  string
	Keyframes  sequencer.KeyframeSet
	GridX      int `validate:"omitempty,min=2,max=10"`
	GridY      int `validate:"omitempty,min=2,max=10"`
	Stylize    bool
	KeepFrames bool

	// lipsync and tts_lipsync
	Audio    string `validate:"required_if=Kind lipsync"`
	Text     string `validate:"required_if=Kind tts_lipsync,max=5000"`
	Voice    string
	Language string
	Seed     *int
	FastMode bool

	// kling and veo; Motion names a motion preset used when Prompt is empty
	Motion         string
	Prompt         string
	NegativePrompt string
	Duration       int    `validate:"omitempty,min=1,max=10"`
	AspectRatio    string `validate:"omitempty,oneof=16:9 9:16 1:1"`
	Resolution     string `validate:"omitempty,oneof=720p 1080p"`
	GenerateAudio  *bool
	Guidance       *float64

	// veo only; up to three reference images and an optional last frame
	ReferenceImages []string `validate:"max=3"`
	EndImage        string

	// output
	Format     string `validate:"omitempty,oneof=mp4 gif"`
	FPS        int    `validate:"omitempty,min=1,max=60"`
	OutputPath string
	Publish    bool
}

var validate = validator.New()

// Validate checks the fields required by the input kind.
func (in Input) Validate() error {
	if !in.Kind.IsValid() {
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, in.Kind)
	}
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("%w: field %s failed %q", ErrInvalidInput, verrs[0].Field(), verrs[0].Tag())
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	switch in.Kind {
	case KindKling, KindVeo:
		if in.Prompt == "" && in.Motion == "" {
			return fmt.Errorf("%w: %s needs a prompt or a motion preset", ErrInvalidInput, in.Kind)
		}
		if in.Kind == KindKling && (len(in.ReferenceImages) > 0 || in.EndImage != "") {
			return fmt.Errorf("%w: reference and end images are only supported by veo", ErrInvalidInput)
		}
	case KindKeyframe:
		if (in.GridX == 0) != (in.GridY == 0) {
			return fmt.Errorf("%w: gaze grid needs both x and y steps", ErrInvalidInput)
		}
		for i, kf := range in.Keyframes {
			if len(kf) == 0 {
				return fmt.Errorf("%w: keyframe %d is empty", ErrInvalidInput, i)
			}
		}
	}
	return nil
}
