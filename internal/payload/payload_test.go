package payload

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maauso/pfp-animate/internal/pipeline"
)

func TestLoadImage(t *testing.T) {
	dir := t.TempDir()
	pngPath := filepath.Join(dir, "face.PNG")
	require.NoError(t, os.WriteFile(pngPath, []byte("png-bytes"), 0600))

	t.Run("local file becomes data URI", func(t *testing.T) {
		uri, err := LoadImage("image", pngPath)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,cG5nLWJ5dGVz", uri)
	})

	t.Run("url passes through", func(t *testing.T) {
		uri, err := LoadImage("image", "https://x/face.jpg")
		require.NoError(t, err)
		assert.Equal(t, "https://x/face.jpg", uri)
	})

	t.Run("data uri passes through", func(t *testing.T) {
		uri, err := LoadImage("image", "data:image/png;base64,AAAA")
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,AAAA", uri)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadImage("image", filepath.Join(dir, "missing.png"))
		var pe *PreconditionError
		require.ErrorAs(t, err, &pe)
		assert.Equal(t, "image", pe.Field)
		assert.ErrorIs(t, err, ErrFileNotFound)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		bmp := filepath.Join(dir, "face.bmp")
		require.NoError(t, os.WriteFile(bmp, []byte("x"), 0600))
		_, err := LoadImage("image", bmp)
		assert.ErrorIs(t, err, ErrUnsupportedType)
		assert.Contains(t, err.Error(), ".webp")
	})

	t.Run("empty ref", func(t *testing.T) {
		_, err := LoadImage("image", "")
		assert.ErrorIs(t, err, ErrMissingField)
	})
}

func TestLoadAudio(t *testing.T) {
	dir := t.TempDir()
	for ext, mime := range audioTypes {
		path := filepath.Join(dir, "voice"+ext)
		require.NoError(t, os.WriteFile(path, []byte("a"), 0600))

		uri, err := LoadAudio("audio", path)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(uri, "data:"+mime+";base64,"), "ext %s", ext)
	}

	png := filepath.Join(dir, "voice.png")
	require.NoError(t, os.WriteFile(png, []byte("a"), 0600))
	_, err := LoadAudio("audio", png)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestExpressionEditor(t *testing.T) {
	in, err := ExpressionEditor()(pipeline.Request{"image": "uri", "rotate_pitch": -12.0, "smile": 1, "ignored": "x"})
	require.NoError(t, err)

	assert.Equal(t, "uri", in["image"])
	assert.Equal(t, "png", in["output_format"])
	assert.Equal(t, 90.0, in["output_quality"])
	assert.Equal(t, -12.0, in["rotate_pitch"])
	assert.Equal(t, 1.0, in["smile"])
	for _, name := range MotionParams {
		assert.Contains(t, in, name)
	}
	assert.NotContains(t, in, "ignored")
}

func TestExpressionEditor_OutOfRange(t *testing.T) {
	_, err := ExpressionEditor()(pipeline.Request{"image": "uri", "wink": 40.0})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Wink", pe.Field)
}

func TestExpressionEditor_NotANumber(t *testing.T) {
	_, err := ExpressionEditor()(pipeline.Request{"image": "uri", "blink": "lots"})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "blink", pe.Field)
}

func TestLipSync(t *testing.T) {
	in, err := LipSync()(pipeline.Request{"image": "img", "audio": "aud", "seed": 42, "fast_mode": true})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"image": "img", "audio": "aud", "seed": 42.0, "fast_mode": true}, in)

	in, err = LipSync()(pipeline.Request{"image": "img", "audio": "aud"})
	require.NoError(t, err)
	assert.NotContains(t, in, "seed")
	assert.NotContains(t, in, "prompt")
	assert.NotContains(t, in, "fast_mode")

	_, err = LipSync()(pipeline.Request{"image": "img"})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Audio", pe.Field)
}

func TestSpeech(t *testing.T) {
	in, err := Speech()(pipeline.Request{"text": "Hello world"})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", in["text"])
	assert.Equal(t, DefaultVoice, in["voice_id"])
	assert.Equal(t, "calm", in["emotion"])
	assert.Equal(t, 0.95, in["speed"])
	assert.NotContains(t, in, "language_boost")

	in, err = Speech()(pipeline.Request{"text": "Hola", "voice": "Calm_Woman", "language": "Spanish"})
	require.NoError(t, err)
	assert.Equal(t, "Calm_Woman", in["voice_id"])
	assert.Equal(t, "Spanish", in["language_boost"])

	_, err = Speech()(pipeline.Request{})
	assert.Error(t, err)
}

func TestKling(t *testing.T) {
	in, err := Kling()(pipeline.Request{"image": "img", "prompt": "nods", "guidance_scale": 3.0})
	require.NoError(t, err)
	assert.Equal(t, "img", in["start_image"])
	assert.Equal(t, 5.0, in["duration"])
	assert.Equal(t, "1:1", in["aspect_ratio"])
	assert.Equal(t, 1.0, in["guidance_scale"])
	assert.NotContains(t, in, "negative_prompt")

	in, err = Kling()(pipeline.Request{"image": "img", "prompt": "nods", "guidance_scale": -1.0, "negative_prompt": "blur"})
	require.NoError(t, err)
	assert.Equal(t, 0.0, in["guidance_scale"])
	assert.Equal(t, "blur", in["negative_prompt"])

	_, err = Kling()(pipeline.Request{"image": "img", "prompt": "nods", "duration": 7})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Duration", pe.Field)

	_, err = Kling()(pipeline.Request{"image": "img", "prompt": "nods", "aspect_ratio": "4:3"})
	assert.Error(t, err)
}

func TestVeo(t *testing.T) {
	in, err := Veo()(pipeline.Request{"image": "img", "prompt": "speaks"})
	require.NoError(t, err)
	assert.Equal(t, 8.0, in["duration"])
	assert.Equal(t, "1080p", in["resolution"])
	assert.Equal(t, "9:16", in["aspect_ratio"])
	assert.Equal(t, true, in["generate_audio"])
	assert.NotContains(t, in, "reference_images")
	assert.NotContains(t, in, "end_image")

	in, err = Veo()(pipeline.Request{
		"image": "img", "prompt": "speaks", "generate_audio": false,
		"reference_images": []string{"a", "b"}, "end_image": "end",
	})
	require.NoError(t, err)
	assert.Equal(t, false, in["generate_audio"])
	assert.Equal(t, []any{"a", "b"}, in["reference_images"])
	assert.Equal(t, "end", in["end_image"])

	_, err = Veo()(pipeline.Request{"image": "img", "prompt": "p", "reference_images": []string{"a", "b", "c", "d"}})
	assert.Error(t, err)

	_, err = Veo()(pipeline.Request{"image": "img"})
	var pe *PreconditionError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "Prompt", pe.Field)
}

func TestPortrait(t *testing.T) {
	in, err := Portrait()(pipeline.Request{"image": "img"})
	require.NoError(t, err)
	assert.Equal(t, DefaultPortraitPrompt, in["prompt"])
	assert.Equal(t, []any{"img"}, in["image_input"])
	assert.Equal(t, "2K", in["resolution"])
	assert.Equal(t, "block_only_high", in["safety_filter_level"])

	_, err = Portrait()(pipeline.Request{})
	assert.Error(t, err)
}

func TestPreconditionError_Unwrap(t *testing.T) {
	err := &PreconditionError{Field: "image", Value: "a.png", Err: ErrFileNotFound}
	assert.True(t, errors.Is(err, ErrFileNotFound))
	assert.Equal(t, `image "a.png": file not found`, err.Error())
}
