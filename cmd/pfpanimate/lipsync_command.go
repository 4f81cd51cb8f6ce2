package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/maauso/pfp-animate/internal/job"
)

var errAudioOrText = errors.New("give either --audio or --text")

func newLipSyncCommand(ctx *commandContext) *cobra.Command {
	var (
		out      outputFlags
		audio    string
		text     string
		voice    string
		language string
		prompt   string
		seed     int
		fast     bool
	)

	cmd := &cobra.Command{
		Use:   "lipsync <image>",
		Short: "Lip-sync a portrait to audio or to synthesized speech",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (audio == "") == (text == "") {
				return errAudioOrText
			}
			in := job.Input{
				Kind:       job.KindLipSync,
				Image:      args[0],
				Audio:      audio,
				Prompt:     prompt,
				FastMode:   fast,
				OutputPath: out.path,
				Publish:    out.publish,
			}
			if text != "" {
				in.Kind = job.KindTTSLipSync
				in.Text = text
				in.Voice = voice
				in.Language = language
			}
			if cmd.Flags().Changed("seed") {
				in.Seed = &seed
			}
			return ctx.runJob(cmd, in)
		},
	}

	cmd.Flags().StringVar(&audio, "audio", "", "Audio file or URL to lip-sync")
	cmd.Flags().StringVar(&text, "text", "", "Text to speak with a TTS voice instead of --audio")
	cmd.Flags().StringVar(&voice, "voice", "", "TTS voice (see `pfpanimate presets`)")
	cmd.Flags().StringVar(&language, "language", "", "TTS language boost, e.g. English")
	cmd.Flags().StringVar(&prompt, "prompt", "", "Optional motion guidance")
	cmd.Flags().IntVar(&seed, "seed", 0, "Random seed")
	cmd.Flags().BoolVar(&fast, "fast", false, "Use the faster, lower quality mode")
	out.register(cmd)

	return cmd
}
