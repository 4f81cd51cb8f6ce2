// Package preset holds the built-in keyframe animations, video motion
// prompts and TTS voices, optionally extended from a TOML file.
package preset

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/go-playground/validator/v10"
	"github.com/pelletier/go-toml/v2"

	"github.com/maauso/pfp-animate/internal/payload"
	"github.com/maauso/pfp-animate/internal/sequencer"
)

// Static errors for preset lookups.
var (
	// ErrUnknownAnimation is returned for an animation name not in the catalog.
	ErrUnknownAnimation = errors.New("unknown animation preset")
	// ErrUnknownMotion is returned for a motion name not in the catalog.
	ErrUnknownMotion = errors.New("unknown motion preset")
	// ErrUnknownVoice is returned for a voice not in the catalog.
	ErrUnknownVoice = errors.New("unknown voice")
	// ErrUnknownParameter is returned when a keyframe sets an unknown motion parameter.
	ErrUnknownParameter = errors.New("unknown motion parameter")
	// ErrInvalidGrid is returned when grid steps are out of range.
	ErrInvalidGrid = errors.New("invalid gaze grid: steps must be between 2 and 10")
)

// Animation is a keyframe preset for the expression editor.
type Animation struct {
	Description string               `toml:"description" json:"description"`
	FPS         int                  `toml:"fps" json:"fps" validate:"min=1,max=60"`
	Frames      []map[string]float64 `toml:"frames" json:"frames" validate:"min=1"`
}

// Keyframes returns the frames as an ordered keyframe set.
func (a Animation) Keyframes() sequencer.KeyframeSet {
	set := make(sequencer.KeyframeSet, len(a.Frames))
	for i, f := range a.Frames {
		set[i] = sequencer.Keyframe(maps.Clone(f))
	}
	return set
}

// Motion is a prompt preset for image-to-video models.
type Motion struct {
	Prompt   string `toml:"prompt" json:"prompt" validate:"required"`
	Negative string `toml:"negative" json:"negative,omitempty"`
}

// Catalog is the set of presets available to jobs.
type Catalog struct {
	Animations map[string]Animation `toml:"animations" json:"animations" validate:"dive"`
	Motions    map[string]Motion    `toml:"motions" json:"motions" validate:"dive"`
	Voices     []string             `toml:"voices" json:"voices"`
}

var validate = validator.New()

// Load returns the built-in catalog extended by the TOML file at path.
// Entries in the file replace built-ins of the same name; voices are appended.
// An empty path returns the built-ins.
func Load(path string) (*Catalog, error) {
	c := Default()
	if path == "" {
		return c, nil
	}

	data, err := os.ReadFile(path) // #nosec G304 - path comes from configuration
	if err != nil {
		return nil, fmt.Errorf("read presets file: %w", err)
	}

	var file Catalog
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse presets file %s: %w", path, err)
	}
	if err := file.validate(); err != nil {
		return nil, fmt.Errorf("presets file %s: %w", path, err)
	}

	maps.Copy(c.Animations, file.Animations)
	maps.Copy(c.Motions, file.Motions)
	for _, v := range file.Voices {
		if !slices.Contains(c.Voices, v) {
			c.Voices = append(c.Voices, v)
		}
	}
	return c, nil
}

func (c *Catalog) validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	for name, a := range c.Animations {
		for i, frame := range a.Frames {
			for param := range frame {
				if !slices.Contains(payload.MotionParams, param) {
					return fmt.Errorf("animation %s frame %d: %w %q", name, i, ErrUnknownParameter, param)
				}
			}
		}
	}
	return nil
}

// Animation returns the named animation.
func (c *Catalog) Animation(name string) (Animation, error) {
	a, ok := c.Animations[name]
	if !ok {
		return Animation{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownAnimation, name, c.AnimationNames())
	}
	return a, nil
}

// Motion returns the named motion.
func (c *Catalog) Motion(name string) (Motion, error) {
	m, ok := c.Motions[name]
	if !ok {
		return Motion{}, fmt.Errorf("%w: %q (available: %v)", ErrUnknownMotion, name, c.MotionNames())
	}
	return m, nil
}

// CheckVoice returns ErrUnknownVoice unless voice is listed.
func (c *Catalog) CheckVoice(voice string) error {
	if !slices.Contains(c.Voices, voice) {
		return fmt.Errorf("%w: %q", ErrUnknownVoice, voice)
	}
	return nil
}

// AnimationNames returns the sorted animation names.
func (c *Catalog) AnimationNames() []string {
	return slices.Sorted(maps.Keys(c.Animations))
}

// MotionNames returns the sorted motion names.
func (c *Catalog) MotionNames() []string {
	return slices.Sorted(maps.Keys(c.Motions))
}

// GazeGrid builds an x by y grid of head and eye poses, row by row from
// top-left, for rendering a look-around sprite sheet.
func GazeGrid(xSteps, ySteps int) (sequencer.KeyframeSet, error) {
	if xSteps < 2 || xSteps > 10 || ySteps < 2 || ySteps > 10 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrInvalidGrid, xSteps, ySteps)
	}

	lerp := func(lo, hi float64, i, n int) float64 {
		return lo + (hi-lo)*float64(i)/float64(n-1)
	}

	set := make(sequencer.KeyframeSet, 0, xSteps*ySteps)
	for y := 0; y < ySteps; y++ {
		for x := 0; x < xSteps; x++ {
			set = append(set, sequencer.Keyframe{
				"rotate_yaw":   lerp(-15, 15, x, xSteps),
				"rotate_pitch": lerp(10, -10, y, ySteps),
				"pupil_x":      lerp(-12, 12, x, xSteps),
				"pupil_y":      lerp(-10, 10, y, ySteps),
			})
		}
	}
	return set, nil
}
