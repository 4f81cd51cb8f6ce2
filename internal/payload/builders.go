package payload

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"

	"github.com/maauso/pfp-animate/internal/pipeline"
	"github.com/maauso/pfp-animate/internal/replicate"
)

// Model identifiers.
const (
	// ExpressionEditorVersion pins fofr/expression-editor.
	ExpressionEditorVersion = "bf913bc90e1c44ba288ba3942a538693b72e8cc7df576f3beebe56adc0a92b86"
	// OmniHumanModel generates lip-synced video from an image and audio.
	OmniHumanModel = "bytedance/omni-human-1.5"
	// SpeechModel is the text-to-speech model.
	SpeechModel = "minimax/speech-02-turbo"
	// KlingModel generates video from an image and a motion prompt.
	KlingModel = "kwaivgi/kling-v2.5-turbo-pro"
	// VeoModel generates video with synchronized audio.
	VeoModel = "google/veo-3.1"
	// PortraitModel restyles a photo into a front-facing 3D portrait.
	PortraitModel = "google/nano-banana-pro"
)

// Targets for each model.
var (
	ExpressionEditorTarget = replicate.Target{Version: ExpressionEditorVersion}
	OmniHumanTarget        = replicate.Target{Model: OmniHumanModel}
	SpeechTarget           = replicate.Target{Model: SpeechModel}
	KlingTarget            = replicate.Target{Model: KlingModel}
	VeoTarget              = replicate.Target{Model: VeoModel}
	PortraitTarget         = replicate.Target{Model: PortraitModel}
)

// Request keys shared by the builders.
const (
	KeyImage           = "image"
	KeyAudio           = "audio"
	KeyText            = "text"
	KeyVoice           = "voice"
	KeyLanguage        = "language"
	KeyPrompt          = "prompt"
	KeyNegativePrompt  = "negative_prompt"
	KeySeed            = "seed"
	KeyFastMode        = "fast_mode"
	KeyDuration        = "duration"
	KeyAspectRatio     = "aspect_ratio"
	KeyGuidance        = "guidance_scale"
	KeyResolution      = "resolution"
	KeyGenerateAudio   = "generate_audio"
	KeyReferenceImages = "reference_images"
	KeyEndImage        = "end_image"
)

// MotionParams are the expression-editor parameters a keyframe may set.
var MotionParams = []string{
	"rotate_pitch", "rotate_yaw", "rotate_roll",
	"blink", "eyebrow", "wink",
	"pupil_x", "pupil_y",
	"aaa", "eee", "woo", "smile",
}

// DefaultVoice is the TTS voice used when none is given.
const DefaultVoice = "Deep_Voice_Man"

// DefaultPortraitPrompt restyles a photo into a 3D animated character.
const DefaultPortraitPrompt = "Transform this person into a 3D animated Pixar-style character. " +
	"Stylized 3D render, Disney Pixar animation style, smooth skin, big expressive eyes, soft lighting, " +
	"front facing, looking directly at camera, neutral expression, centered on pure black background. " +
	"Keep the same facial features and likeness but as a 3D animated cartoon character."

var validate = validator.New()

// ExpressionInput is the fofr/expression-editor input.
type ExpressionInput struct {
	Image         string  `json:"image" validate:"required"`
	OutputFormat  string  `json:"output_format" validate:"oneof=png webp jpg"`
	OutputQuality int     `json:"output_quality" validate:"min=1,max=100"`
	RotatePitch   float64 `json:"rotate_pitch" validate:"min=-20,max=20"`
	RotateYaw     float64 `json:"rotate_yaw" validate:"min=-20,max=20"`
	RotateRoll    float64 `json:"rotate_roll" validate:"min=-20,max=20"`
	Blink         float64 `json:"blink" validate:"min=-20,max=5"`
	Eyebrow       float64 `json:"eyebrow" validate:"min=-10,max=15"`
	Wink          float64 `json:"wink" validate:"min=0,max=25"`
	PupilX        float64 `json:"pupil_x" validate:"min=-15,max=15"`
	PupilY        float64 `json:"pupil_y" validate:"min=-15,max=15"`
	AAA           float64 `json:"aaa" validate:"min=-30,max=120"`
	EEE           float64 `json:"eee" validate:"min=-20,max=15"`
	WOO           float64 `json:"woo" validate:"min=-20,max=15"`
	Smile         float64 `json:"smile" validate:"min=-0.3,max=1.3"`
}

// ExpressionEditor builds one keyframe request. Unset motion parameters are 0.
func ExpressionEditor() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		in := ExpressionInput{
			Image:         stringValue(req, KeyImage),
			OutputFormat:  "png",
			OutputQuality: 90,
		}
		params := make(map[string]float64, len(MotionParams))
		for _, name := range MotionParams {
			v, err := floatValue(req, name, 0)
			if err != nil {
				return nil, err
			}
			params[name] = v
		}
		in.RotatePitch = params["rotate_pitch"]
		in.RotateYaw = params["rotate_yaw"]
		in.RotateRoll = params["rotate_roll"]
		in.Blink = params["blink"]
		in.Eyebrow = params["eyebrow"]
		in.Wink = params["wink"]
		in.PupilX = params["pupil_x"]
		in.PupilY = params["pupil_y"]
		in.AAA = params["aaa"]
		in.EEE = params["eee"]
		in.WOO = params["woo"]
		in.Smile = params["smile"]
		return finish(in)
	}
}

// LipSyncInput is the omni-human-1.5 input.
type LipSyncInput struct {
	Image    string `json:"image" validate:"required"`
	Audio    string `json:"audio" validate:"required"`
	Prompt   string `json:"prompt,omitempty"`
	Seed     *int   `json:"seed,omitempty"`
	FastMode bool   `json:"fast_mode,omitempty"`
}

// LipSync builds an omni-human-1.5 request.
func LipSync() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		in := LipSyncInput{
			Image:    stringValue(req, KeyImage),
			Audio:    stringValue(req, KeyAudio),
			Prompt:   stringValue(req, KeyPrompt),
			FastMode: boolValue(req, KeyFastMode, false),
		}
		if _, ok := req[KeySeed]; ok {
			seed, err := intValue(req, KeySeed, 0)
			if err != nil {
				return nil, err
			}
			in.Seed = &seed
		}
		return finish(in)
	}
}

// SpeechInput is the speech-02-turbo input.
type SpeechInput struct {
	Text          string  `json:"text" validate:"required"`
	VoiceID       string  `json:"voice_id" validate:"required"`
	Emotion       string  `json:"emotion"`
	Speed         float64 `json:"speed" validate:"gt=0,max=2"`
	LanguageBoost string  `json:"language_boost,omitempty"`
}

// Speech builds a text-to-speech request.
func Speech() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		voice := stringValue(req, KeyVoice)
		if voice == "" {
			voice = DefaultVoice
		}
		return finish(SpeechInput{
			Text:          stringValue(req, KeyText),
			VoiceID:       voice,
			Emotion:       "calm",
			Speed:         0.95,
			LanguageBoost: stringValue(req, KeyLanguage),
		})
	}
}

// KlingInput is the kling-v2.5-turbo-pro input.
type KlingInput struct {
	Prompt         string  `json:"prompt" validate:"required"`
	StartImage     string  `json:"start_image" validate:"required"`
	Duration       int     `json:"duration" validate:"oneof=5 10"`
	AspectRatio    string  `json:"aspect_ratio" validate:"oneof=16:9 9:16 1:1"`
	GuidanceScale  float64 `json:"guidance_scale" validate:"min=0,max=1"`
	NegativePrompt string  `json:"negative_prompt,omitempty"`
}

// Kling builds an image-to-video request. Guidance is clamped to [0, 1].
func Kling() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		duration, err := intValue(req, KeyDuration, 5)
		if err != nil {
			return nil, err
		}
		guidance, err := floatValue(req, KeyGuidance, 0.5)
		if err != nil {
			return nil, err
		}
		aspect := stringValue(req, KeyAspectRatio)
		if aspect == "" {
			aspect = "1:1"
		}
		return finish(KlingInput{
			Prompt:         stringValue(req, KeyPrompt),
			StartImage:     stringValue(req, KeyImage),
			Duration:       duration,
			AspectRatio:    aspect,
			GuidanceScale:  max(0, min(1, guidance)),
			NegativePrompt: stringValue(req, KeyNegativePrompt),
		})
	}
}

// VeoInput is the veo-3.1 input.
type VeoInput struct {
	Prompt          string   `json:"prompt" validate:"required"`
	StartImage      string   `json:"start_image" validate:"required"`
	Duration        int      `json:"duration" validate:"oneof=4 6 8"`
	Resolution      string   `json:"resolution" validate:"oneof=720p 1080p"`
	AspectRatio     string   `json:"aspect_ratio" validate:"oneof=16:9 9:16"`
	GenerateAudio   bool     `json:"generate_audio"`
	ReferenceImages []string `json:"reference_images,omitempty" validate:"max=3"`
	EndImage        string   `json:"end_image,omitempty"`
}

// Veo builds a video-with-audio request.
func Veo() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		duration, err := intValue(req, KeyDuration, 8)
		if err != nil {
			return nil, err
		}
		resolution := stringValue(req, KeyResolution)
		if resolution == "" {
			resolution = "1080p"
		}
		aspect := stringValue(req, KeyAspectRatio)
		if aspect == "" {
			aspect = "9:16"
		}
		return finish(VeoInput{
			Prompt:          stringValue(req, KeyPrompt),
			StartImage:      stringValue(req, KeyImage),
			Duration:        duration,
			Resolution:      resolution,
			AspectRatio:     aspect,
			GenerateAudio:   boolValue(req, KeyGenerateAudio, true),
			ReferenceImages: stringsValue(req, KeyReferenceImages),
			EndImage:        stringValue(req, KeyEndImage),
		})
	}
}

// PortraitInput is the nano-banana-pro input.
type PortraitInput struct {
	Prompt            string   `json:"prompt" validate:"required"`
	ImageInput        []string `json:"image_input" validate:"min=1,dive,required"`
	Resolution        string   `json:"resolution"`
	AspectRatio       string   `json:"aspect_ratio"`
	OutputFormat      string   `json:"output_format"`
	SafetyFilterLevel string   `json:"safety_filter_level"`
}

// Portrait builds a portrait stylization request.
func Portrait() pipeline.Builder {
	return func(req pipeline.Request) (map[string]any, error) {
		prompt := stringValue(req, KeyPrompt)
		if prompt == "" {
			prompt = DefaultPortraitPrompt
		}
		var images []string
		if img := stringValue(req, KeyImage); img != "" {
			images = []string{img}
		}
		return finish(PortraitInput{
			Prompt:            prompt,
			ImageInput:        images,
			Resolution:        "2K",
			AspectRatio:       "1:1",
			OutputFormat:      "png",
			SafetyFilterLevel: "block_only_high",
		})
	}
}

// finish validates in and converts it to the wire map.
func finish(in any) (map[string]any, error) {
	if err := validate.Struct(in); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return nil, &PreconditionError{
				Field: fe.Field(),
				Value: fmt.Sprint(fe.Value()),
				Err:   fmt.Errorf("failed %q validation", fe.Tag()),
			}
		}
		return nil, err
	}

	raw, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("marshal input: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("unmarshal input: %w", err)
	}
	return out, nil
}

func stringValue(req pipeline.Request, key string) string {
	switch v := req[key].(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

func stringsValue(req pipeline.Request, key string) []string {
	switch v := req[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func floatValue(req pipeline.Request, key string, def float64) (float64, error) {
	raw, ok := req[key]
	if !ok || raw == nil {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, &PreconditionError{Field: key, Value: v, Err: err}
		}
		return f, nil
	default:
		return 0, &PreconditionError{Field: key, Value: fmt.Sprint(raw), Err: fmt.Errorf("not a number: %T", raw)}
	}
}

func intValue(req pipeline.Request, key string, def int) (int, error) {
	f, err := floatValue(req, key, float64(def))
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

func boolValue(req pipeline.Request, key string, def bool) bool {
	if v, ok := req[key].(bool); ok {
		return v
	}
	return def
}
