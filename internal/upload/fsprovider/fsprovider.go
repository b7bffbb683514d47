// Package fsprovider implements the C7 "fs" upload provider: a local or
// mounted filesystem destination, written atomically (§4.7).
package fsprovider

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/leapstack-labs/ingestiond/internal/model"
	"github.com/leapstack-labs/ingestiond/internal/upload"
)

// Provider writes artifacts under basePath, adapted from the teacher's
// pkg/utils.OutputManager path-joining conventions.
type Provider struct {
	basePath string
}

// New builds a Provider rooted at basePath.
func New(basePath string) *Provider {
	return &Provider{basePath: basePath}
}

// Upload writes data to join(basePath, normalize(destinationPath),
// fileName), via a temp-file-then-rename so readers never observe a
// partially written file.
func (p *Provider) Upload(ctx context.Context, destinationPath, fileName string, data []byte) (upload.Result, error) {
	select {
	case <-ctx.Done():
		return upload.Result{}, fmt.Errorf("%w: %v", model.ErrCancelled, ctx.Err())
	default:
	}

	dir := filepath.Join(p.basePath, filepath.FromSlash(filepath.Clean("/"+destinationPath)))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return upload.Result{}, fmt.Errorf("%w: creating directory %q: %v", model.ErrUpload, dir, err)
	}

	finalPath := filepath.Join(dir, filepath.Base(fileName))
	tmpPath := fmt.Sprintf("%s.tmp.%s", finalPath, uuid.NewString())

	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return upload.Result{}, fmt.Errorf("%w: writing temp file %q: %v", model.ErrUpload, tmpPath, err)
	}

	select {
	case <-ctx.Done():
		_ = os.Remove(tmpPath)
		return upload.Result{}, fmt.Errorf("%w: %v", model.ErrCancelled, ctx.Err())
	default:
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return upload.Result{}, fmt.Errorf("%w: renaming %q to %q: %v", model.ErrUpload, tmpPath, finalPath, err)
	}

	absPath, err := filepath.Abs(finalPath)
	if err != nil {
		absPath = finalPath
	}
	return upload.Result{Success: true, Path: absPath, BytesWritten: len(data)}, nil
}
