package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func newPresetsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "presets",
		Short: "List keyframe animations, motion presets and TTS voices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			catalog, err := ctx.catalog()
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()

			rows := make([][]string, 0, len(catalog.Animations))
			for _, name := range catalog.AnimationNames() {
				anim, _ := catalog.Animation(name)
				rows = append(rows, []string{name, strconv.Itoa(anim.FPS), strconv.Itoa(len(anim.Frames)), anim.Description})
			}
			fmt.Fprintln(w, "Animations")
			fmt.Fprintln(w, renderTable([]string{"Name", "FPS", "Frames", "Description"}, rows,
				[]columnAlignment{alignLeft, alignRight, alignRight, alignLeft}))

			rows = rows[:0]
			for _, name := range catalog.MotionNames() {
				motion, _ := catalog.Motion(name)
				rows = append(rows, []string{name, motion.Prompt})
			}
			fmt.Fprintln(w, "\nMotions")
			fmt.Fprintln(w, renderTable([]string{"Name", "Prompt"}, rows, nil))

			fmt.Fprintln(w, "\nVoices")
			fmt.Fprintln(w, strings.Join(catalog.Voices, ", "))
			return nil
		},
	}
}
