// Package sidecar opens the flux-series files that accompany legacy spectra.
//
// The legacy store records only where a reduced spectrum lives; the samples
// themselves sit in a text file next to it, either on a shared filesystem or
// in an S3-compatible bucket.
package sidecar

import (
	"context"
	"errors"
	"io"
)

// Source kinds accepted in configuration.
const (
	KindFS = "fs"
	KindS3 = "s3"
)

// ErrNotFound is returned when no sidecar exists at the requested path.
var ErrNotFound = errors.New("sidecar not found")

// Source opens sidecar files by the path recorded in the legacy store.
type Source interface {
	Open(ctx context.Context, path string) (io.ReadCloser, error)
}
