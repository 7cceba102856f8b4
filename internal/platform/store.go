package platform

import (
	"fmt"
	"os"
	"path/filepath"
)

// BlobStore is the durable byte store used for macro persistence: whole-file
// read, write, and existence check on a single path.
type BlobStore interface {
	Read(path string) ([]byte, error)
	Write(path string, data []byte) error
	Exists(path string) bool
}

// FileBlobStore stores blobs on the local filesystem. Writes go through a
// temp file and rename so a concurrent reader never observes a partial write.
type FileBlobStore struct{}

func (FileBlobStore) Read(path string) ([]byte, error) {
	return os.ReadFile(path)
}

func (FileBlobStore) Write(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

func (FileBlobStore) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
