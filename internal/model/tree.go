// Package model provides the reference reactive model kept by the
// unionwatch binary: the current logical namespace grouped by tag.
package model

import (
	"unionwatch/internal/overlay"
	"unionwatch/internal/pattern"
)

// File is the model's view of one logical path: why it was last
// reported and the full set of sources providing it.
type File struct {
	Refresh   overlay.RefreshAction `json:"refresh"`
	Providers []overlay.Provider    `json:"providers"`
}

// Tree maps tag to logical path to file state.
type Tree map[pattern.Tag]map[string]File

// ApplyChange returns the transform folding one batch into a tree. The
// transform copies the maps it touches, so previously read snapshots
// stay stable.
func ApplyChange(change overlay.Change) func(Tree) Tree {
	return func(current Tree) Tree {
		next := make(Tree, len(current))
		for tag, files := range current {
			next[tag] = files
		}

		for tag, entries := range change {
			files := make(map[string]File, len(next[tag])+len(entries))
			for logical, file := range next[tag] {
				files[logical] = file
			}
			for logical, entry := range entries {
				if entry.Op == overlay.OpDelete {
					delete(files, logical)
					continue
				}
				files[logical] = File{
					Refresh:   entry.Refresh,
					Providers: entry.Providers,
				}
			}
			if len(files) == 0 {
				delete(next, tag)
				continue
			}
			next[tag] = files
		}
		return next
	}
}

// Len counts the files across all tags.
func (t Tree) Len() int {
	total := 0
	for _, files := range t {
		total += len(files)
	}
	return total
}
