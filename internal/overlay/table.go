// Package overlay tracks which sources currently provide each logical
// path and folds filesystem events into change batches.
package overlay

import "sort"

// Source names one physical root among those being unioned.
type Source string

// Provider is one source's contribution of a logical path, carrying the
// physical location of the file inside that source.
type Provider struct {
	Source Source `json:"source"`
	Path   string `json:"path"`
}

// Table maps logical paths to the set of sources providing them. A key
// with an empty provider set never exists: Remove deletes the key when
// the last source goes away. The table is not synchronized; the mount
// consumer is its only writer.
type Table struct {
	providers map[string]map[Source]string
}

func NewTable() *Table {
	return &Table{
		providers: make(map[string]map[Source]string),
	}
}

// Add records that source provides the logical path at physical.
func (t *Table) Add(logical string, source Source, physical string) {
	if t == nil {
		return
	}
	set, ok := t.providers[logical]
	if !ok {
		set = make(map[Source]string, 1)
		t.providers[logical] = set
	}
	set[source] = physical
}

// Remove drops source from the logical path's provider set, deleting
// the key entirely when the set empties.
func (t *Table) Remove(logical string, source Source) {
	if t == nil {
		return
	}
	set, ok := t.providers[logical]
	if !ok {
		return
	}
	delete(set, source)
	if len(set) == 0 {
		delete(t.providers, logical)
	}
}

// Lookup returns the providers of a logical path sorted by source, or
// nil when no source currently provides it.
func (t *Table) Lookup(logical string) []Provider {
	if t == nil {
		return nil
	}
	set, ok := t.providers[logical]
	if !ok {
		return nil
	}
	out := make([]Provider, 0, len(set))
	for source, physical := range set {
		out = append(out, Provider{Source: source, Path: physical})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Source < out[j].Source
	})
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.providers)
}

// Paths returns every provided logical path in sorted order.
func (t *Table) Paths() []string {
	if t == nil {
		return nil
	}
	out := make([]string, 0, len(t.providers))
	for logical := range t.providers {
		out = append(out, logical)
	}
	sort.Strings(out)
	return out
}
