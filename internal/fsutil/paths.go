package fsutil

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Canonicalize resolves a root to an absolute, symlink-free path.
func Canonicalize(root string) (string, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", root, err)
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("canonicalize %q: %w", root, err)
	}
	return resolved, nil
}

// Relativize maps a native path into the logical namespace of a
// canonicalized root. Paths inside the root become slash-separated
// relative paths. A path that escapes the root (reached through a
// symlinked ancestor) is kept absolute and reported with ok=false so
// callers can match it leniently.
func Relativize(root, path string) (string, bool) {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return filepath.ToSlash(path), false
	}
	return filepath.ToSlash(rel), true
}
