// Package filex has filesystem helpers for the client's local data.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// EnsureParentDir creates the directory that will hold path (0o700) and
// returns path unchanged. In-memory SQLite DSNs are returned as is.
func EnsureParentDir(path string) (string, error) {
	if path == "" || path == ":memory:" || strings.HasPrefix(path, "file:") {
		return path, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}

	return path, nil
}

// ReadLimited reads a whole file, refusing anything larger than max bytes.
func ReadLimited(path string, max int64) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if fi.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}
	if fi.Size() > max {
		return nil, fmt.Errorf("%s is %d bytes, limit is %d", path, fi.Size(), max)
	}
	return os.ReadFile(path)
}
