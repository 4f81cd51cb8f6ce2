package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/maauso/pfp-animate/internal/job"
	"github.com/maauso/pfp-animate/internal/sequencer"
)

var errGridFormat = errors.New("grid must look like 3x3")

func newKeyframeCommand(ctx *commandContext) *cobra.Command {
	var (
		out           outputFlags
		animation     string
		grid          string
		keyframesFile string
		stylize       bool
		keepFrames    bool
		fps           int
		format        string
	)

	cmd := &cobra.Command{
		Use:   "keyframe <image>",
		Short: "Render a keyframe animation with the expression editor",
		Long: "Render one expression-editor frame per keyframe and assemble them into an MP4, " +
			"or a GIF when ffmpeg is unavailable. Frames that keep failing are skipped.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := job.Input{
				Kind:       job.KindKeyframe,
				Image:      args[0],
				Animation:  animation,
				Stylize:    stylize,
				KeepFrames: keepFrames,
				FPS:        fps,
				Format:     format,
				OutputPath: out.path,
				Publish:    out.publish,
			}
			if grid != "" {
				x, y, err := parseGrid(grid)
				if err != nil {
					return err
				}
				in.GridX, in.GridY = x, y
			}
			if keyframesFile != "" {
				set, err := loadKeyframes(keyframesFile)
				if err != nil {
					return err
				}
				in.Keyframes = set
			}
			return ctx.runJob(cmd, in)
		},
	}

	cmd.Flags().StringVarP(&animation, "animation", "a", "nod", "Keyframe preset name (see `pfpanimate presets`)")
	cmd.Flags().StringVar(&grid, "grid", "", "Gaze grid such as 3x3 instead of a preset")
	cmd.Flags().StringVar(&keyframesFile, "keyframes", "", "JSON file with a list of keyframes")
	cmd.Flags().BoolVar(&stylize, "stylize", false, "Restyle the portrait before animating it")
	cmd.Flags().BoolVar(&keepFrames, "keep-frames", false, "Keep the individual frames in TEMP_DIR")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frames per second (defaults to the preset's rate)")
	cmd.Flags().StringVarP(&format, "format", "f", "mp4", "Preferred output format: mp4 or gif")
	cmd.MarkFlagsMutuallyExclusive("grid", "keyframes")
	out.register(cmd)

	return cmd
}

// parseGrid parses "XxY".
func parseGrid(s string) (int, int, error) {
	xs, ys, ok := strings.Cut(strings.ToLower(strings.TrimSpace(s)), "x")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", errGridFormat, s)
	}
	x, errX := strconv.Atoi(xs)
	y, errY := strconv.Atoi(ys)
	if errX != nil || errY != nil {
		return 0, 0, fmt.Errorf("%w: %q", errGridFormat, s)
	}
	return x, y, nil
}

// loadKeyframes reads a JSON array of parameter maps.
func loadKeyframes(path string) (sequencer.KeyframeSet, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is an explicit user input
	if err != nil {
		return nil, fmt.Errorf("read keyframes: %w", err)
	}
	var set sequencer.KeyframeSet
	if err := json.Unmarshal(data, &set); err != nil {
		return nil, fmt.Errorf("parse keyframes %s: %w", path, err)
	}
	return set, nil
}
