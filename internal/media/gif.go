package media

import (
	"context"
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"os"
)

// GIFEncoder writes animated GIFs that loop forever.
type GIFEncoder struct{}

// Format returns FormatGIF.
func (GIFEncoder) Format() Format {
	return FormatGIF
}

// Encode quantizes every frame to the Plan 9 palette with Floyd-Steinberg
// dithering and writes them with a per-frame delay of 1/fps seconds.
func (GIFEncoder) Encode(ctx context.Context, frames []image.Image, fps int, outputPath string) error {
	if fps <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameRate, fps)
	}

	delay := 100 / fps
	if delay < 1 {
		delay = 1
	}

	anim := &gif.GIF{LoopCount: 0}
	for _, frame := range frames {
		if err := ctx.Err(); err != nil {
			return err
		}
		bounds := frame.Bounds()
		paletted := image.NewPaletted(bounds, palette.Plan9)
		draw.FloydSteinberg.Draw(paletted, bounds, frame, bounds.Min)
		anim.Image = append(anim.Image, paletted)
		anim.Delay = append(anim.Delay, delay)
	}

	f, err := os.Create(outputPath) // #nosec G304 - path is chosen by the caller
	if err != nil {
		return fmt.Errorf("create gif: %w", err)
	}
	if err := gif.EncodeAll(f, anim); err != nil {
		_ = f.Close()
		_ = os.Remove(outputPath)
		return fmt.Errorf("encode gif: %w", err)
	}
	return f.Close()
}

var _ Encoder = GIFEncoder{}
