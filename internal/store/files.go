package store

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore is the file capability. Paths are relative, derived from a
// category namespace and a stored filename.
type FileStore interface {
	Exists(path string) (bool, error)
	Write(path string, r io.Reader) error
	Delete(path string) error
}

// DiskFileStore stores files under a root directory. Relative paths
// are cleaned and confined to the root.
type DiskFileStore struct {
	root string
}

func NewDiskFileStore(root string) (*DiskFileStore, error) {
	if root == "" {
		return nil, errors.New("upload root is empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &DiskFileStore{root: root}, nil
}

func (s *DiskFileStore) Exists(path string) (bool, error) {
	abs, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(abs)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *DiskFileStore) Write(path string, r io.Reader) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return fmt.Errorf("create directory for %s: %w", path, err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

func (s *DiskFileStore) Delete(path string) error {
	abs, err := s.resolve(path)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", path, err)
	}
	return nil
}

func (s *DiskFileStore) resolve(path string) (string, error) {
	clean := filepath.Clean("/" + path)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("path %q escapes upload root", path)
	}
	return filepath.Join(s.root, clean), nil
}

// ContentPath derives the deterministic file path for a stored
// filename within a resource-category namespace.
func ContentPath(category, filename string) string {
	return filepath.Join(category, filename)
}
