package local

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rommsync/rommsync/internal/domain"
)

// tempSuffix marks partially written downloads
const tempSuffix = ".rommsync.tmp"

// Adapter implements adapter.DirectoryAccess for the local filesystem
type Adapter struct{}

// New creates a new local filesystem adapter
func New() *Adapter {
	return &Adapter{}
}

// resolvePath safely resolves a relative path to absolute path within root
// Returns error if path attempts to escape root directory
func (a *Adapter) resolvePath(root, relPath string) (string, error) {
	if root == "" {
		return "", domain.ErrNotFound
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", err
	}

	// Handle empty path as root
	if relPath == "" || relPath == "." {
		return absRoot, nil
	}

	relPath = filepath.Clean(filepath.FromSlash(relPath))

	// Reject absolute paths
	if filepath.IsAbs(relPath) {
		return "", domain.ErrPermissionDenied
	}

	fullPath := filepath.Join(absRoot, relPath)

	// filepath.Rel catches siblings sharing a prefix, like root="/saves" and "/saves2"
	rel, err := filepath.Rel(absRoot, fullPath)
	if err != nil {
		return "", domain.ErrPermissionDenied
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", domain.ErrPermissionDenied
	}

	return fullPath, nil
}

// List returns the direct children of rel
func (a *Adapter) List(ctx context.Context, root, rel string) ([]domain.Entry, error) {
	fullPath, err := a.resolvePath(root, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if !info.IsDir() {
		return nil, domain.ErrNotDirectory
	}

	entries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	result := make([]domain.Entry, 0, len(entries))
	for _, entry := range entries {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		if strings.HasSuffix(entry.Name(), tempSuffix) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue // Skip entries we can't read
		}

		result = append(result, domain.Entry{
			Name:    entry.Name(),
			IsDir:   info.IsDir(),
			ModTime: info.ModTime(),
			Size:    info.Size(),
		})
	}

	return result, nil
}

// Open opens a file for reading
func (a *Adapter) Open(ctx context.Context, root, rel string) (io.ReadCloser, error) {
	fullPath, err := a.resolvePath(root, rel)
	if err != nil {
		return nil, err
	}

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}
	if info.IsDir() {
		return nil, domain.ErrNotFile
	}

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, a.mapError(err)
	}

	return file, nil
}

// Write creates or overwrites a file, then stamps it with modTime
func (a *Adapter) Write(ctx context.Context, root, rel string, r io.Reader, modTime time.Time) error {
	fullPath, err := a.resolvePath(root, rel)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return a.mapError(err)
	}

	// Write to temp file first for atomic operation
	tempPath := fullPath + tempSuffix
	file, err := os.Create(tempPath)
	if err != nil {
		return a.mapError(err)
	}

	_, copyErr := io.Copy(file, &ctxReader{ctx: ctx, r: r})
	closeErr := file.Close()

	if copyErr != nil {
		os.Remove(tempPath)
		return copyErr
	}
	if closeErr != nil {
		os.Remove(tempPath)
		return closeErr
	}

	if !modTime.IsZero() {
		if err := os.Chtimes(tempPath, modTime, modTime); err != nil {
			os.Remove(tempPath)
			return a.mapError(err)
		}
	}

	if err := os.Rename(tempPath, fullPath); err != nil {
		os.Remove(tempPath)
		return a.mapError(err)
	}

	return nil
}

// ctxReader stops a copy once the context is cancelled
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}

// mapError converts OS errors to domain errors
func (a *Adapter) mapError(err error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, os.ErrNotExist):
		return domain.ErrNotFound
	case errors.Is(err, os.ErrPermission):
		return domain.ErrPermissionDenied
	case errors.Is(err, os.ErrExist):
		return domain.ErrAlreadyExists
	}

	return err
}
