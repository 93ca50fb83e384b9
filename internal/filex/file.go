// Package filex contains small filesystem helpers shared by the
// file-backed vault storage.
package filex

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir joins the given path elements and creates the resulting
// directory (and any parents) with owner-only permissions. It returns
// the joined path.
func EnsureDir(parts ...string) (string, error) {
	dir := filepath.Join(parts...)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "", fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return dir, nil
}
