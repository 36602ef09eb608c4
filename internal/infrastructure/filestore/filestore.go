package filestore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Default permissions for store files and their directories.
const (
	DirPerm  os.FileMode = 0o750
	FilePerm os.FileMode = 0o600
)

// ErrCorrupt is returned by ReadJSON when the file exists but cannot be
// decoded. Callers treat it as "start empty" after logging.
var ErrCorrupt = errors.New("filestore: corrupt file")

// ReadJSON decodes the JSON document at path into v.
//
// An absent or blank file is not an error: found is false and v is left
// untouched. A file that fails to decode returns ErrCorrupt (wrapped with
// the decoder error).
//
// Parameters:
//   - path: File to read
//   - v: Pointer to decode into
//
// Returns:
//   - bool: Whether a non-empty file was found and decoded
//   - error: ErrCorrupt on decode failure, or the underlying I/O error
func ReadJSON(path string, v any) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
	}
	return true, nil
}

// WriteJSON encodes v as indented JSON and atomically replaces path with it.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return WriteBytesAtomic(path, data)
}

// WriteBytesAtomic writes data to a temporary file next to path and renames
// it into place, so readers see either the old or the new content in full.
// The parent directory is created when missing.
func WriteBytesAtomic(path string, data []byte) error {
	normalizedPath := filepath.Clean(strings.TrimSpace(path))
	if normalizedPath == "" || normalizedPath == "." {
		return fmt.Errorf("path is required")
	}
	parentDir := filepath.Dir(normalizedPath)
	if err := os.MkdirAll(parentDir, DirPerm); err != nil {
		return fmt.Errorf("create dir %s: %w", parentDir, err)
	}

	tmp, err := os.CreateTemp(parentDir, filepath.Base(normalizedPath)+".tmp.*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", normalizedPath, err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp for %s: %w", normalizedPath, err)
	}
	if err := tmp.Chmod(FilePerm); err != nil {
		return fmt.Errorf("chmod temp for %s: %w", normalizedPath, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp for %s: %w", normalizedPath, err)
	}
	if err := os.Rename(tmpPath, normalizedPath); err != nil {
		return fmt.Errorf("rename temp for %s: %w", normalizedPath, err)
	}
	return nil
}
