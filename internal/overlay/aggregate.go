package overlay

import "unionwatch/internal/pattern"

// Apply folds one normalized event into the overlay table and the
// running batch:
//
//  1. A delete removes the source from the path's provider set; any
//     refresh adds it.
//  2. The path is then re-queried. No remaining provider means the
//     batch reports a delete. Otherwise the batch reports a refresh
//     with the full current provider snapshot; the refresh action is
//     the triggering one, or RefreshExisting when the trigger was a
//     delete and the path stays alive through other sources (per-source
//     action history is not tracked).
func Apply(table *Table, change Change, source Source, tag pattern.Tag, logical, physical string, action FileAction) {
	switch action.Op {
	case OpDelete:
		table.Remove(logical, source)
	default:
		table.Add(logical, source, physical)
	}

	providers := table.Lookup(logical)
	if providers == nil {
		change.Set(tag, logical, Entry{Op: OpDelete})
		return
	}

	refresh := RefreshExisting
	if action.Op == OpRefresh && action.Refresh != "" {
		refresh = action.Refresh
	}
	change.Set(tag, logical, Entry{
		Op:        OpRefresh,
		Refresh:   refresh,
		Providers: providers,
	})
}
