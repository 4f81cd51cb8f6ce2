package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoder for frames
)

// AssemblyErrorKind classifies assembly failures.
type AssemblyErrorKind string

const (
	// KindNoFrames means no usable frame survived.
	KindNoFrames AssemblyErrorKind = "no_frames"
	// KindUnwritable means the output location cannot be written.
	KindUnwritable AssemblyErrorKind = "unwritable"
	// KindEncodeFailed means every encoding path failed.
	KindEncodeFailed AssemblyErrorKind = "encode_failed"
)

// AssemblyError is returned when no output file could be produced.
type AssemblyError struct {
	Kind AssemblyErrorKind
	Path string
	Err  error
}

func (e *AssemblyError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("assemble %s: %s: %v", e.Path, e.Kind, e.Err)
	}
	return fmt.Sprintf("assemble %s: %s", e.Path, e.Kind)
}

func (e *AssemblyError) Unwrap() error {
	return e.Err
}

// IsAssemblyKind reports whether err is an AssemblyError of the given kind.
func IsAssemblyKind(err error, kind AssemblyErrorKind) bool {
	var ae *AssemblyError
	return errors.As(err, &ae) && ae.Kind == kind
}

// DefaultFPS is used when a non-positive frame rate is requested.
const DefaultFPS = 10

// Result describes the file an assembly produced.
type Result struct {
	// Path is where the file was written. It differs from the requested
	// path when the encoder fell back to another format.
	Path string
	// Format is the format actually produced.
	Format Format
	// FellBack is true when the preferred format could not be produced.
	FellBack bool
	// Frames is the number of frames in the output.
	Frames int
	// Dropped is the number of empty or undecodable frames skipped.
	Dropped int
}

// Assembler turns ordered frames into one animation file.
type Assembler struct {
	video    Encoder
	fallback Encoder
	logger   *slog.Logger
}

// NewAssembler creates an Assembler using video for MP4 output and an
// animated GIF as the fallback. video may be nil.
func NewAssembler(video Encoder, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{
		video:    video,
		fallback: GIFEncoder{},
		logger:   logger,
	}
}

// Assemble encodes the non-empty frames in order. Empty entries are lost
// frames and are skipped. When preferred is MP4 and the video encoder is
// missing or fails, a GIF is written next to outputPath instead.
func (a *Assembler) Assemble(ctx context.Context, frames [][]byte, fps int, preferred Format, outputPath string) (Result, error) {
	if preferred != FormatMP4 && preferred != FormatGIF {
		return Result{}, fmt.Errorf("%w for animation: %q", ErrUnsupportedFormat, preferred)
	}
	if fps <= 0 {
		fps = DefaultFPS
	}

	images, dropped := a.decodeFrames(frames)
	if len(images) == 0 {
		return Result{}, &AssemblyError{Kind: KindNoFrames, Path: outputPath}
	}

	if err := ensureWritable(outputPath); err != nil {
		return Result{}, &AssemblyError{Kind: KindUnwritable, Path: outputPath, Err: err}
	}

	result := Result{Frames: len(images), Dropped: dropped}

	if preferred == FormatMP4 {
		path := withExt(outputPath, FormatMP4.Ext())
		err := ErrEncoderUnavailable
		if a.video != nil {
			err = a.video.Encode(ctx, images, fps, path)
		}
		if err == nil {
			result.Path = path
			result.Format = FormatMP4
			return result, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		_ = os.Remove(path)
		a.logger.Warn("video encoding unavailable, falling back to gif",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		result.FellBack = true
	}

	path := withExt(outputPath, FormatGIF.Ext())
	if err := a.fallback.Encode(ctx, images, fps, path); err != nil {
		return Result{}, &AssemblyError{Kind: KindEncodeFailed, Path: path, Err: err}
	}
	result.Path = path
	result.Format = FormatGIF
	return result, nil
}

// decodeFrames decodes png, jpeg, gif or webp frames and resizes any frame
// whose size differs from the first so the sequence is uniform.
func (a *Assembler) decodeFrames(frames [][]byte) ([]image.Image, int) {
	images := make([]image.Image, 0, len(frames))
	dropped := 0
	var size image.Point

	for i, data := range frames {
		if len(data) == 0 {
			dropped++
			continue
		}
		img, err := imaging.Decode(bytes.NewReader(data))
		if err != nil {
			dropped++
			a.logger.Warn("skipping undecodable frame",
				slog.Int("frame", i+1),
				slog.String("error", err.Error()),
			)
			continue
		}

		if len(images) == 0 {
			size = img.Bounds().Size()
		} else if img.Bounds().Size() != size {
			img = imaging.Resize(img, size.X, size.Y, imaging.Lanczos)
		}
		images = append(images, img)
	}
	return images, dropped
}

// WriteSingle writes one downloaded artifact to outputPath with its
// extension forced to ext and returns the final path.
func WriteSingle(data []byte, outputPath, ext string) (string, error) {
	if len(data) == 0 {
		return "", &AssemblyError{Kind: KindNoFrames, Path: outputPath}
	}
	if ext != "" && ext[0] != '.' {
		ext = "." + ext
	}
	path := outputPath
	if ext != "" {
		path = withExt(outputPath, ext)
	}

	if err := ensureWritable(path); err != nil {
		return "", &AssemblyError{Kind: KindUnwritable, Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return "", &AssemblyError{Kind: KindUnwritable, Path: path, Err: err}
	}
	return path, nil
}

// ensureWritable creates the parent directory of path and verifies a file
// can be created in it.
func ensureWritable(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	probe, err := os.CreateTemp(dir, ".write-check-*")
	if err != nil {
		return fmt.Errorf("output directory not writable: %w", err)
	}
	name := probe.Name()
	_ = probe.Close()
	return os.Remove(name)
}
