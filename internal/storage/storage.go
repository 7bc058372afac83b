// Package storage manages the transcode library on disk and the optional
// archiving of finished outputs. It defines the Archiver interface (port)
// with an S3 implementation and a no-op used when archiving is disabled.
package storage

import (
	"context"
	"errors"
)

// ErrArchiveNotConfigured is returned by Upload when no archive target
// is configured for the run.
var ErrArchiveNotConfigured = errors.New("storage: archive not configured")

// Archiver sends finished outputs to long-term storage.
type Archiver interface {
	// Upload stores the file at path under the given key and returns the
	// location of the stored object.
	Upload(ctx context.Context, key, path string) (url string, err error)
}

// NopArchiver is the Archiver used when no archive bucket is configured.
type NopArchiver struct{}

// Upload always returns ErrArchiveNotConfigured.
func (NopArchiver) Upload(ctx context.Context, key, path string) (string, error) {
	return "", ErrArchiveNotConfigured
}
