package preset

// Default returns a fresh copy of the built-in catalog.
func Default() *Catalog {
	return &Catalog{
		Animations: builtinAnimations(),
		Motions:    builtinMotions(),
		Voices: []string{
			"Deep_Voice_Man", "Calm_Woman", "Wise_Woman", "Friendly_Person",
			"Casual_Guy", "Lively_Girl", "Patient_Man", "Young_Knight",
			"Determined_Man", "Elegant_Man", "Sweet_Girl_2", "Exuberant_Girl",
		},
	}
}

func builtinAnimations() map[string]Animation {
	return map[string]Animation{
		"nod": {
			Description: "Clear nodding yes motion",
			FPS:         12,
			Frames: []map[string]float64{
				{"rotate_pitch": 0},
				{"rotate_pitch": -12},
				{"rotate_pitch": -15},
				{"rotate_pitch": -10},
				{"rotate_pitch": 5},
				{"rotate_pitch": 8},
				{"rotate_pitch": 3},
				{"rotate_pitch": -8},
				{"rotate_pitch": -5},
				{"rotate_pitch": 0},
			},
		},
		"wink": {
			Description: "Playful wink with smile",
			FPS:         10,
			Frames: []map[string]float64{
				{"wink": 0, "smile": 0.3},
				{"wink": 5, "smile": 0.5},
				{"wink": 15, "smile": 0.7},
				{"wink": 22, "smile": 0.9},
				{"wink": 20, "smile": 1.0},
				{"wink": 15, "smile": 0.8},
				{"wink": 8, "smile": 0.6},
				{"wink": 2, "smile": 0.5},
				{"wink": 0, "smile": 0.4},
				{"wink": 0, "smile": 0.3},
			},
		},
		"shake_no": {
			Description: "Shaking head no",
			FPS:         12,
			Frames: []map[string]float64{
				{"rotate_yaw": 0},
				{"rotate_yaw": -8},
				{"rotate_yaw": -15},
				{"rotate_yaw": -10},
				{"rotate_yaw": 5},
				{"rotate_yaw": 12},
				{"rotate_yaw": 15},
				{"rotate_yaw": 10},
				{"rotate_yaw": -5},
				{"rotate_yaw": 0},
			},
		},
		"nod_wink": {
			Description: "Nod yes then wink",
			FPS:         10,
			Frames: []map[string]float64{
				{"rotate_pitch": 0, "wink": 0, "smile": 0.2},
				{"rotate_pitch": -10, "wink": 0, "smile": 0.3},
				{"rotate_pitch": -15, "wink": 0, "smile": 0.3},
				{"rotate_pitch": 5, "wink": 0, "smile": 0.4},
				{"rotate_pitch": 0, "wink": 0, "smile": 0.5},
				{"rotate_pitch": 0, "wink": 10, "smile": 0.7},
				{"rotate_pitch": 0, "wink": 22, "smile": 0.9},
				{"rotate_pitch": 0, "wink": 20, "smile": 1.0},
				{"rotate_pitch": 0, "wink": 8, "smile": 0.7},
				{"rotate_pitch": 0, "wink": 0, "smile": 0.4},
			},
		},
		"look_around": {
			Description: "Eyes looking around",
			FPS:         8,
			Frames: []map[string]float64{
				{"pupil_x": 0, "pupil_y": 0},
				{"pupil_x": -10, "pupil_y": -5},
				{"pupil_x": -12, "pupil_y": 0},
				{"pupil_x": -8, "pupil_y": 8},
				{"pupil_x": 0, "pupil_y": 10},
				{"pupil_x": 10, "pupil_y": 8},
				{"pupil_x": 12, "pupil_y": 0},
				{"pupil_x": 8, "pupil_y": -8},
				{"pupil_x": 0, "pupil_y": -8},
				{"pupil_x": 0, "pupil_y": 0},
			},
		},
		"surprise": {
			Description: "Surprised expression",
			FPS:         12,
			Frames: []map[string]float64{
				{"eyebrow": 0, "aaa": 0, "blink": 0},
				{"eyebrow": 5, "aaa": 10, "blink": -5},
				{"eyebrow": 10, "aaa": 30, "blink": -10},
				{"eyebrow": 12, "aaa": 50, "blink": -15},
				{"eyebrow": 12, "aaa": 40, "blink": -12},
				{"eyebrow": 10, "aaa": 30, "blink": -8},
				{"eyebrow": 8, "aaa": 20, "blink": -5},
				{"eyebrow": 5, "aaa": 10, "blink": -2},
				{"eyebrow": 2, "aaa": 5, "blink": 0},
				{"eyebrow": 0, "aaa": 0, "blink": 0},
			},
		},
		"laugh": {
			Description: "Laughing expression",
			FPS:         10,
			Frames: []map[string]float64{
				{"smile": 0.3, "aaa": 0, "rotate_pitch": 0},
				{"smile": 0.5, "aaa": 20, "rotate_pitch": -3},
				{"smile": 0.8, "aaa": 40, "rotate_pitch": -5},
				{"smile": 1.0, "aaa": 60, "rotate_pitch": -8},
				{"smile": 1.1, "aaa": 50, "rotate_pitch": -5},
				{"smile": 1.0, "aaa": 70, "rotate_pitch": -10},
				{"smile": 1.1, "aaa": 55, "rotate_pitch": -6},
				{"smile": 0.9, "aaa": 40, "rotate_pitch": -4},
				{"smile": 0.7, "aaa": 20, "rotate_pitch": -2},
				{"smile": 0.5, "aaa": 5, "rotate_pitch": 0},
			},
		},
	}
}

func builtinMotions() map[string]Motion {
	return map[string]Motion{
		"nod": {
			Prompt:   "The subject gently nods their head in acknowledgment, subtle and natural movement",
			Negative: "distortion, blur, unnatural movement",
		},
		"wave": {
			Prompt:   "The subject waves hello with a friendly gesture, natural arm movement",
			Negative: "distortion, blur, awkward movement",
		},
		"laugh": {
			Prompt:   "The subject laughs naturally, eyes crinkling, shoulders moving slightly",
			Negative: "distortion, unnatural expression",
		},
		"idle": {
			Prompt:   "The subject breathes naturally with very subtle movement, almost still but alive",
			Negative: "frozen, statue-like, jerky",
		},
		"think": {
			Prompt:   "The subject tilts their head slightly and looks up thoughtfully, as if considering an idea",
			Negative: "distortion, blur, exaggerated movement",
		},
		"surprise": {
			Prompt:   "The subject raises their eyebrows and opens their eyes wide in pleasant surprise",
			Negative: "distortion, horror, unnatural expression",
		},
		"talking": {
			Prompt:   "The subject speaks naturally to the camera with small head movements and expressive mouth",
			Negative: "distortion, blur, frozen mouth",
		},
		"wink": {
			Prompt:   "The subject gives a playful wink with one eye and a slight smile",
			Negative: "distortion, both eyes closing, unnatural expression",
		},
	}
}
