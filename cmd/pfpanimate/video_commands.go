package main

import (
	"github.com/spf13/cobra"

	"github.com/maauso/pfp-animate/internal/job"
)

func newKlingCommand(ctx *commandContext) *cobra.Command {
	var (
		out      outputFlags
		motion   string
		prompt   string
		negative string
		duration int
		aspect   string
		guidance float64
	)

	cmd := &cobra.Command{
		Use:   "kling <image>",
		Short: "Generate a short video with Kling from a motion preset or prompt",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := job.Input{
				Kind:           job.KindKling,
				Image:          args[0],
				Motion:         motion,
				Prompt:         prompt,
				NegativePrompt: negative,
				Duration:       duration,
				AspectRatio:    aspect,
				OutputPath:     out.path,
				Publish:        out.publish,
			}
			if cmd.Flags().Changed("guidance") {
				in.Guidance = &guidance
			}
			return ctx.runJob(cmd, in)
		},
	}

	cmd.Flags().StringVarP(&motion, "motion", "m", "", "Motion preset name used when --prompt is empty")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Motion prompt")
	cmd.Flags().StringVar(&negative, "negative", "", "Negative prompt")
	cmd.Flags().IntVar(&duration, "duration", 5, "Duration in seconds: 5 or 10")
	cmd.Flags().StringVar(&aspect, "aspect", "1:1", "Aspect ratio: 16:9, 9:16 or 1:1")
	cmd.Flags().Float64Var(&guidance, "guidance", 0.5, "Prompt adherence between 0 and 1")
	out.register(cmd)

	return cmd
}

func newVeoCommand(ctx *commandContext) *cobra.Command {
	var (
		out        outputFlags
		motion     string
		prompt     string
		duration   int
		resolution string
		aspect     string
		noAudio    bool
		references []string
		endImage   string
	)

	cmd := &cobra.Command{
		Use:   "veo <image>",
		Short: "Generate a video with synchronized audio using Veo",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			withAudio := !noAudio
			return ctx.runJob(cmd, job.Input{
				Kind:          job.KindVeo,
				Image:         args[0],
				Motion:        motion,
				Prompt:        prompt,
				Duration:      duration,
				Resolution:    resolution,
				AspectRatio:   aspect,
				GenerateAudio: &withAudio,
				OutputPath:    out.path,
				Publish:       out.publish,

				ReferenceImages: references,
				EndImage:        endImage,
			})
		},
	}

	cmd.Flags().StringVarP(&motion, "motion", "m", "", "Motion preset name used when --prompt is empty")
	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "What happens in the video, including any dialogue")
	cmd.Flags().IntVar(&duration, "duration", 8, "Duration in seconds: 4, 6 or 8")
	cmd.Flags().StringVar(&resolution, "resolution", "1080p", "Resolution: 720p or 1080p")
	cmd.Flags().StringVar(&aspect, "aspect", "9:16", "Aspect ratio: 16:9 or 9:16")
	cmd.Flags().BoolVar(&noAudio, "no-audio", false, "Generate a silent video (cheaper)")
	cmd.Flags().StringArrayVar(&references, "reference", nil, "Reference image for subject consistency (repeatable, max 3)")
	cmd.Flags().StringVar(&endImage, "end-image", "", "Image to use as the last frame")
	out.register(cmd)

	return cmd
}

func newPortraitCommand(ctx *commandContext) *cobra.Command {
	var (
		out    outputFlags
		prompt string
	)

	cmd := &cobra.Command{
		Use:   "portrait <image>",
		Short: "Restyle a photo into a front-facing 3D portrait",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.runJob(cmd, job.Input{
				Kind:       job.KindPortrait,
				Image:      args[0],
				Prompt:     prompt,
				OutputPath: out.path,
				Publish:    out.publish,
			})
		},
	}

	cmd.Flags().StringVarP(&prompt, "prompt", "p", "", "Style prompt (defaults to a 3D animated character)")
	out.register(cmd)

	return cmd
}
