package sidecar

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// FS reads sidecars from the local filesystem. Legacy paths are resolved
// under Root, which lets a run read a mounted copy of the data tree.
type FS struct {
	Root string
}

// NewFS returns a filesystem source rooted at root. An empty root uses
// legacy paths as they are.
func NewFS(root string) *FS {
	return &FS{Root: root}
}

// Open opens the sidecar at p.
func (s *FS) Open(ctx context.Context, p string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full := filepath.FromSlash(p)
	if s.Root != "" {
		full = filepath.Join(s.Root, filepath.Clean(string(filepath.Separator)+full))
	}
	f, err := os.Open(full)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, full)
		}
		return nil, fmt.Errorf("open sidecar %s: %w", full, err)
	}
	return f, nil
}
