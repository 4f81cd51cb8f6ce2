// Package payload turns user inputs into the input fields each Replicate
// model expects. Local files are inlined as data URIs; URLs pass through.
package payload

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Static errors for input loading.
var (
	// ErrFileNotFound is returned when a local input file does not exist.
	ErrFileNotFound = errors.New("file not found")
	// ErrUnsupportedType is returned when a file extension has no known MIME type.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("missing required field")
)

// PreconditionError is an input problem detected before any network call.
type PreconditionError struct {
	Field string
	Value string
	Err   error
}

func (e *PreconditionError) Error() string {
	if e.Value != "" {
		return fmt.Sprintf("%s %q: %v", e.Field, e.Value, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *PreconditionError) Unwrap() error {
	return e.Err
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".webp": "image/webp",
	".gif":  "image/gif",
}

var audioTypes = map[string]string{
	".mp3":  "audio/mpeg",
	".wav":  "audio/wav",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".flac": "audio/flac",
}

// IsRemote reports whether ref is an http(s) URL or an inline data URI.
func IsRemote(ref string) bool {
	return strings.HasPrefix(ref, "http://") ||
		strings.HasPrefix(ref, "https://") ||
		strings.HasPrefix(ref, "data:")
}

// LoadImage returns ref unchanged when it is remote, otherwise reads the
// file and returns it as a data URI.
func LoadImage(field, ref string) (string, error) {
	return load(field, ref, imageTypes)
}

// LoadAudio is LoadImage for audio files.
func LoadAudio(field, ref string) (string, error) {
	return load(field, ref, audioTypes)
}

// DataURI encodes data with the given MIME type.
func DataURI(mime string, data []byte) string {
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)
}

func load(field, ref string, types map[string]string) (string, error) {
	if ref == "" {
		return "", &PreconditionError{Field: field, Err: ErrMissingField}
	}
	if IsRemote(ref) {
		return ref, nil
	}

	ext := strings.ToLower(filepath.Ext(ref))
	mime, ok := types[ext]
	if !ok {
		return "", &PreconditionError{
			Field: field,
			Value: ref,
			Err:   fmt.Errorf("%w %q (supported: %s)", ErrUnsupportedType, ext, strings.Join(extensions(types), ", ")),
		}
	}

	data, err := os.ReadFile(ref) // #nosec G304 - path is an explicit user input
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &PreconditionError{Field: field, Value: ref, Err: ErrFileNotFound}
		}
		return "", &PreconditionError{Field: field, Value: ref, Err: err}
	}

	return DataURI(mime, data), nil
}

func extensions(types map[string]string) []string {
	out := make([]string, 0, len(types))
	for ext := range types {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
