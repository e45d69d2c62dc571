package overlay

import (
	"reflect"
	"testing"
)

func TestTableAddLookup(t *testing.T) {
	table := NewTable()
	table.Add("a.md", "r2", "/r2/a.md")
	table.Add("a.md", "r1", "/r1/a.md")

	providers := table.Lookup("a.md")
	expected := []Provider{
		{Source: "r1", Path: "/r1/a.md"},
		{Source: "r2", Path: "/r2/a.md"},
	}
	if !reflect.DeepEqual(providers, expected) {
		t.Fatalf("expected %v, got %v", expected, providers)
	}
	if table.Len() != 1 {
		t.Fatalf("expected one path, got %d", table.Len())
	}
}

func TestTableRemoveDropsEmptyKey(t *testing.T) {
	table := NewTable()
	table.Add("a.md", "r1", "/r1/a.md")
	table.Add("a.md", "r2", "/r2/a.md")

	table.Remove("a.md", "r1")
	if providers := table.Lookup("a.md"); len(providers) != 1 {
		t.Fatalf("expected one provider, got %v", providers)
	}

	table.Remove("a.md", "r2")
	if providers := table.Lookup("a.md"); providers != nil {
		t.Fatalf("expected nil after last remove, got %v", providers)
	}
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d keys", table.Len())
	}
}

func TestTableRemoveUnknownIsNoop(t *testing.T) {
	table := NewTable()
	table.Remove("missing.md", "r1")
	if table.Len() != 0 {
		t.Fatalf("expected empty table, got %d keys", table.Len())
	}
}

// A path must be present iff its provider set is non-empty, for any
// add/remove sequence.
func TestTablePresenceInvariant(t *testing.T) {
	type step struct {
		add    bool
		source Source
	}
	steps := []step{
		{add: true, source: "r1"},
		{add: true, source: "r2"},
		{add: false, source: "r1"},
		{add: true, source: "r1"},
		{add: false, source: "r2"},
		{add: false, source: "r1"},
		{add: false, source: "r1"},
		{add: true, source: "r3"},
	}

	table := NewTable()
	live := map[Source]struct{}{}
	for i, s := range steps {
		if s.add {
			table.Add("x", s.source, "/"+string(s.source)+"/x")
			live[s.source] = struct{}{}
		} else {
			table.Remove("x", s.source)
			delete(live, s.source)
		}

		providers := table.Lookup("x")
		if len(live) == 0 && providers != nil {
			t.Fatalf("step %d: expected absent path, got %v", i, providers)
		}
		if len(live) != len(providers) {
			t.Fatalf("step %d: expected %d providers, got %v", i, len(live), providers)
		}
	}
}

func TestTablePathsSorted(t *testing.T) {
	table := NewTable()
	table.Add("b.md", "r1", "/r1/b.md")
	table.Add("a.md", "r1", "/r1/a.md")

	paths := table.Paths()
	if !reflect.DeepEqual(paths, []string{"a.md", "b.md"}) {
		t.Fatalf("expected sorted paths, got %v", paths)
	}
}
