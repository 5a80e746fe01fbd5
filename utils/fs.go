package utils

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// PartSuffix marks a download that has not been committed yet
const PartSuffix = ".part"

// FileOperations provides file system utilities
type FileOperations struct{}

// NewFileOperations creates a new FileOperations instance
func NewFileOperations() *FileOperations {
	return &FileOperations{}
}

// EnsureDir creates dir and its parents if they don't exist
func (f *FileOperations) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists checks if a file exists
func (f *FileOperations) FileExists(path string) bool {
	_, err := os.Stat(path)
	return !os.IsNotExist(err)
}

// PartPath returns the staging path used while path is being written
func (f *FileOperations) PartPath(path string) string {
	return path + PartSuffix
}

// CreatePartialFile creates or truncates the staging file for path
func (f *FileOperations) CreatePartialFile(path string) (*os.File, error) {
	file, err := os.OpenFile(f.PartPath(path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create partial file: %w", err)
	}
	return file, nil
}

// CommitPartialFile moves the staging file for path into place
func (f *FileOperations) CommitPartialFile(path string) error {
	return f.AtomicRename(f.PartPath(path), path)
}

// AtomicRename performs an atomic file rename operation
func (f *FileOperations) AtomicRename(oldPath, newPath string) error {
	return os.Rename(oldPath, newPath)
}

// RemoveIfExists deletes path, treating a missing file as success
func (f *FileOperations) RemoveIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// WriteFile writes data to path, truncating any previous content
func (f *FileOperations) WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return os.WriteFile(path, data, 0644)
}

// CopyToFile streams src into dst and syncs it to disk
func (f *FileOperations) CopyToFile(dst *os.File, src io.Reader) (int64, error) {
	written, err := io.Copy(dst, src)
	if err != nil {
		return written, err
	}
	return written, dst.Sync()
}
