package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
)

// Static errors for media operations.
var (
	// ErrEncoderUnavailable is returned when the ffmpeg binary cannot be found.
	ErrEncoderUnavailable = errors.New("video encoder unavailable")
	// ErrUnsupportedFormat is returned for an unknown output format.
	ErrUnsupportedFormat = errors.New("unsupported output format")
	// ErrInvalidFrameRate is returned when fps is not positive.
	ErrInvalidFrameRate = errors.New("invalid frame rate: must be positive")
	// ErrFFprobeExecution is returned when ffprobe command fails.
	ErrFFprobeExecution = errors.New("ffprobe execution failed")
)

// FFmpegEncoder encodes frame sequences to MP4 using the ffmpeg CLI
// and probes durations with ffprobe.
type FFmpegEncoder struct {
	// ffmpegPath is the path to the ffmpeg binary. Defaults to "ffmpeg".
	ffmpegPath string
	// ffprobePath is the path to the ffprobe binary. Defaults to "ffprobe".
	ffprobePath string
}

// NewFFmpegEncoder creates a new FFmpegEncoder.
// Empty paths default to "ffmpeg" and "ffprobe" (found via PATH).
func NewFFmpegEncoder(ffmpegPath, ffprobePath string) *FFmpegEncoder {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &FFmpegEncoder{ffmpegPath: ffmpegPath, ffprobePath: ffprobePath}
}

// Format returns FormatMP4.
func (p *FFmpegEncoder) Format() Format {
	return FormatMP4
}

// Available reports whether the ffmpeg binary can be resolved.
func (p *FFmpegEncoder) Available() bool {
	_, err := exec.LookPath(p.ffmpegPath)
	return err == nil
}

// Encode stages frames as PNG files in a temporary directory and encodes
// them to H.264 MP4 at fps. Odd dimensions are truncated to even values.
func (p *FFmpegEncoder) Encode(ctx context.Context, frames []image.Image, fps int, outputPath string) error {
	if fps <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidFrameRate, fps)
	}
	if !p.Available() {
		return fmt.Errorf("%w: %s not found", ErrEncoderUnavailable, p.ffmpegPath)
	}

	tmpDir, err := os.MkdirTemp("", "pfp-frames-*")
	if err != nil {
		return fmt.Errorf("create frame dir: %w", err)
	}
	defer func() { _ = os.RemoveAll(tmpDir) }()

	for i, frame := range frames {
		framePath := filepath.Join(tmpDir, fmt.Sprintf("frame_%04d.png", i))
		if err := imaging.Save(frame, framePath); err != nil {
			return fmt.Errorf("stage frame %d: %w", i, err)
		}
	}

	args := []string{
		"-y", // Overwrite output file
		"-framerate", strconv.Itoa(fps),
		"-i", filepath.Join(tmpDir, "frame_%04d.png"),
		"-vf", "scale=trunc(iw/2)*2:trunc(ih/2)*2", // libx264 needs even dimensions
		"-c:v", "libx264",
		"-pix_fmt", "yuv420p", // Pixel format for compatibility
		"-crf", "23",
		outputPath,
	}

	return p.runFFmpeg(ctx, args)
}

// runFFmpeg executes ffmpeg with the given arguments and returns an error
// containing stderr output if the command fails.
func (p *FFmpegEncoder) runFFmpeg(ctx context.Context, args []string) error {
	// #nosec G204 - ffmpegPath is set by the application, not user input
	cmd := exec.CommandContext(ctx, p.ffmpegPath, args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("ffmpeg cancelled: %w", ctx.Err())
		}
		return &FFmpegError{
			Args:   args,
			Stderr: stderr.String(),
			Err:    err,
		}
	}

	return nil
}

// FFmpegError represents an error from running ffmpeg, including the stderr output.
type FFmpegError struct {
	Args   []string
	Stderr string
	Err    error
}

func (e *FFmpegError) Error() string {
	return fmt.Sprintf("ffmpeg error: %v\nargs: %v\nstderr: %s", e.Err, e.Args, e.Stderr)
}

func (e *FFmpegError) Unwrap() error {
	return e.Err
}

// MediaDuration returns the duration in seconds of a media file using ffprobe.
func (p *FFmpegEncoder) MediaDuration(ctx context.Context, path string) (float64, error) {
	// #nosec G204 - ffprobePath is set by the application, path is a local input file
	cmd := exec.CommandContext(ctx, p.ffprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)

	var stdout bytes.Buffer
	var stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("ffprobe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("%w: %w, stderr: %s", ErrFFprobeExecution, err, stderr.String())
	}

	var duration float64
	_, err = fmt.Sscanf(strings.TrimSpace(stdout.String()), "%f", &duration)
	if err != nil {
		return 0, fmt.Errorf("parse duration: %w", err)
	}

	return duration, nil
}

// EstimateDuration guesses the length of an audio file from its size when
// ffprobe is not available. Remote URLs and missing files yield 0.
func EstimateDuration(path string) float64 {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return 0
	}
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}

	size := float64(info.Size())
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return size / 16000 // ~128kbps
	case ".wav":
		return size / 176000 // 44.1kHz 16-bit stereo
	default:
		return size / 20000
	}
}

// Compile-time checks.
var (
	_ Encoder = (*FFmpegEncoder)(nil)
	_ Prober  = (*FFmpegEncoder)(nil)
)
