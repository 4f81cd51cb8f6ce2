// Package storage keeps intermediate files on local disk and publishes
// finished deliverables to S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// Storage is the file store used by job processing.
type Storage interface {
	// SaveTemp writes data to a new file in the work directory and returns
	// its path. The name is used as a prefix for the filename.
	SaveTemp(ctx context.Context, name string, data io.Reader) (path string, err error)

	// Open returns a reader for a file previously written by a job.
	// The caller must close it.
	Open(ctx context.Context, path string) (io.ReadCloser, error)

	// CleanupTemp removes the given files, continuing past failures.
	CleanupTemp(ctx context.Context, paths []string) error

	// Publish uploads a deliverable and returns its public URL.
	// Returns ErrPublishNotConfigured when no bucket is configured.
	Publish(ctx context.Context, key string, data io.Reader, contentType string) (url string, err error)

	// CanPublish reports whether Publish is backed by a bucket.
	CanPublish() bool
}
