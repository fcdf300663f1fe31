// Package media stores uploaded video and audio files on the local disk.
package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Errors returned by Storage.
var (
	ErrTooLarge    = errors.New("file exceeds the upload limit")
	ErrInvalidPath = errors.New("invalid media path")
	ErrNotFound    = errors.New("media file not found")
)

// Storage keeps files under slash-separated paths relative to its root, such
// as "videos/<uuid>.mp4".
type Storage interface {
	// Save copies r to path, failing with ErrTooLarge after limit bytes when
	// limit is positive. It returns the number of bytes written.
	Save(path string, r io.Reader, limit int64) (int64, error)
	// Open returns the file for reading. The caller closes it.
	Open(path string) (*os.File, error)
	// Remove deletes the file; a missing file is not an error.
	Remove(path string) error
	// LocalPath resolves path to a file system path.
	LocalPath(path string) (string, error)
}

// LocalStorage implements Storage on a directory.
type LocalStorage struct {
	root string
}

var _ Storage = (*LocalStorage)(nil)

// NewLocalStorage creates the root directory when needed.
func NewLocalStorage(root string) (*LocalStorage, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve media root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media root: %w", err)
	}
	return &LocalStorage{root: abs}, nil
}

// LocalPath implements Storage. Paths escaping the root are rejected.
func (s *LocalStorage) LocalPath(path string) (string, error) {
	if path == "" || strings.Contains(path, "\\") {
		return "", ErrInvalidPath
	}
	clean := filepath.Clean(filepath.FromSlash(path))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, clean), nil
}

// Save implements Storage. The file only appears at path once fully written.
func (s *LocalStorage) Save(path string, r io.Reader, limit int64) (int64, error) {
	dst, err := s.LocalPath(path)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create media directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	src := r
	if limit > 0 {
		src = io.LimitReader(r, limit+1)
	}
	n, err := io.Copy(tmp, src)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return 0, fmt.Errorf("failed to write media file: %w", err)
	}
	if limit > 0 && n > limit {
		return 0, ErrTooLarge
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return 0, fmt.Errorf("failed to move media file into place: %w", err)
	}
	return n, nil
}

// Open implements Storage.
func (s *LocalStorage) Open(path string) (*os.File, error) {
	p, err := s.LocalPath(path)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open media file: %w", err)
	}
	return f, nil
}

// Remove implements Storage.
func (s *LocalStorage) Remove(path string) error {
	p, err := s.LocalPath(path)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove media file: %w", err)
	}
	return nil
}
