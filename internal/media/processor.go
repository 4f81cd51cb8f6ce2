// Package media assembles generated artifacts into the final output file.
// Frame sequences are encoded to MP4 with ffmpeg when available and fall
// back to an animated GIF otherwise.
package media

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"
)

// Format is the container of an output file.
type Format string

const (
	// FormatMP4 is an H.264 video produced by ffmpeg.
	FormatMP4 Format = "mp4"
	// FormatGIF is an animated GIF.
	FormatGIF Format = "gif"
	// FormatPNG is a single still image.
	FormatPNG Format = "png"
)

// ParseFormat parses a format name, accepting a leading dot.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimPrefix(s, "."))); f {
	case FormatMP4, FormatGIF, FormatPNG:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, s)
	}
}

// Ext returns the file extension including the dot.
func (f Format) Ext() string {
	return "." + string(f)
}

// ContentType returns the MIME type of the format.
func (f Format) ContentType() string {
	switch f {
	case FormatMP4:
		return "video/mp4"
	case FormatGIF:
		return "image/gif"
	case FormatPNG:
		return "image/png"
	default:
		return "application/octet-stream"
	}
}

// Encoder turns an ordered frame sequence into one file.
type Encoder interface {
	// Format returns the container the encoder writes.
	Format() Format
	// Encode writes frames at fps to outputPath.
	Encode(ctx context.Context, frames []image.Image, fps int, outputPath string) error
}

// Prober reports the duration of a media file in seconds.
type Prober interface {
	MediaDuration(ctx context.Context, path string) (float64, error)
}

// withExt replaces the extension of path with ext.
func withExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
