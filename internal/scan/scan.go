// Package scan lists the files of a source root that belong in the
// logical namespace.
package scan

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"unionwatch/internal/fsutil"
	"unionwatch/internal/pattern"
)

// List walks root and returns the slash-separated relative paths of
// every file matching at least one include pattern and no ignore
// pattern, in sorted order. The root is canonicalized before listing.
func List(root string, include, ignore []string) ([]string, error) {
	canonical, err := fsutil.Canonicalize(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.WalkDir(canonical, func(walked string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		logical, _ := fsutil.Relativize(canonical, walked)
		if !pattern.Matches(include, logical) {
			return nil
		}
		if pattern.Matches(ignore, logical) {
			return nil
		}
		paths = append(paths, logical)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list %q: %w", root, err)
	}

	sort.Strings(paths)
	return paths, nil
}
