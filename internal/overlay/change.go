package overlay

import "unionwatch/internal/pattern"

// RefreshAction qualifies why a live path is being reported.
type RefreshAction string

const (
	// RefreshExisting marks a path seen during the initial scan, or one
	// that survives a per-source delete through other sources.
	RefreshExisting RefreshAction = "existing"
	RefreshNew      RefreshAction = "new"
	RefreshUpdate   RefreshAction = "update"
)

// Op distinguishes the two event shapes.
type Op string

const (
	OpRefresh Op = "refresh"
	OpDelete  Op = "delete"
)

// FileAction is a normalized filesystem event before aggregation.
// Refresh is meaningful only when Op is OpRefresh.
type FileAction struct {
	Op      Op
	Refresh RefreshAction
}

// Entry is one aggregated path-level outcome inside a batch. A refresh
// carries the full current provider snapshot, not a diff; a delete
// means no source provides the path anymore and carries nothing.
type Entry struct {
	Op        Op            `json:"op"`
	Refresh   RefreshAction `json:"refresh,omitempty"`
	Providers []Provider    `json:"providers,omitempty"`
}

// Change is one coherent batch of path-level outcomes grouped by tag,
// delivered to the handler exactly once and then discarded.
type Change map[pattern.Tag]map[string]Entry

// Set inserts or overwrites the entry for (tag, path). Within one batch
// the last write for a path wins, which only matters during the initial
// scan where several sources touch the same path.
func (c Change) Set(tag pattern.Tag, logical string, entry Entry) {
	paths, ok := c[tag]
	if !ok {
		paths = make(map[string]Entry)
		c[tag] = paths
	}
	paths[logical] = entry
}

// Len counts the path entries across all tags.
func (c Change) Len() int {
	total := 0
	for _, paths := range c {
		total += len(paths)
	}
	return total
}
