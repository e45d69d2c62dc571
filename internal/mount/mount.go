// Package mount unions several source roots into one logical namespace
// and drives the scan-then-watch pipeline.
package mount

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
	"unionwatch/internal/pattern"
	"unionwatch/internal/scan"
	"unionwatch/internal/watcher"
)

// SourceSpec names one physical root to union.
type SourceSpec struct {
	Name overlay.Source
	Root string
}

// Options configures a mount.
type Options struct {
	Sources  []SourceSpec
	Rules    []pattern.Rule
	Ignore   []string
	Logger   *logging.Logger
	Registry *metrics.Registry

	// Deliver receives every batch exactly once: the initial scan batch
	// first, then one batch per accepted filesystem event, in order.
	Deliver func(overlay.Change)
}

// Mount owns the overlay table and the producer/consumer pair. The
// table is mutated only by the initial scan and the consumer loop,
// which run strictly sequentially.
type Mount struct {
	sources  []SourceSpec
	bridges  []*watcher.Bridge
	rules    []pattern.Rule
	includes []string
	ignore   []string
	logger   *logging.Logger
	registry *metrics.Registry
	deliver  func(overlay.Change)
	table    *overlay.Table
}

// New validates the configuration and canonicalizes every source root.
// Failures here are setup faults.
func New(options Options) (*Mount, error) {
	if len(options.Sources) == 0 {
		return nil, errors.New("at least one source is required")
	}
	if len(options.Rules) == 0 {
		return nil, errors.New("at least one tag rule is required")
	}
	if options.Deliver == nil {
		return nil, errors.New("a deliver callback is required")
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(nil, logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}

	seen := make(map[overlay.Source]struct{}, len(options.Sources))
	bridges := make([]*watcher.Bridge, 0, len(options.Sources))
	canonical := make([]SourceSpec, 0, len(options.Sources))
	for _, source := range options.Sources {
		if _, dup := seen[source.Name]; dup {
			return nil, fmt.Errorf("duplicate source %q", source.Name)
		}
		seen[source.Name] = struct{}{}

		bridge, err := watcher.New(watcher.Options{
			Source:   source.Name,
			Root:     source.Root,
			Logger:   logger,
			Registry: registry,
		})
		if err != nil {
			return nil, err
		}
		bridges = append(bridges, bridge)
		canonical = append(canonical, SourceSpec{Name: source.Name, Root: bridge.Root()})
	}

	includes := make([]string, 0, len(options.Rules))
	for _, rule := range options.Rules {
		includes = append(includes, rule.Pattern)
	}

	return &Mount{
		sources:  canonical,
		bridges:  bridges,
		rules:    options.Rules,
		includes: includes,
		ignore:   options.Ignore,
		logger:   logger,
		registry: registry,
		deliver:  options.Deliver,
		table:    overlay.NewTable(),
	}, nil
}

// Table exposes the overlay table for inspection. Callers must not use
// it concurrently with Run.
func (m *Mount) Table() *overlay.Table {
	return m.table
}

// Run performs the initial scan, delivers its batch, then watches every
// source until the context is cancelled. The bridges and the consumer
// run under one group: the first unrecovered fault on either side
// cancels the other. A clean cancellation returns nil.
func (m *Mount) Run(ctx context.Context) error {
	initial, err := m.scanAll()
	if err != nil {
		return err
	}
	m.logger.Info("initial scan complete", map[string]string{
		"paths": fmt.Sprintf("%d", m.table.Len()),
	})
	m.deliverBatch(initial)

	group, groupCtx := errgroup.WithContext(ctx)
	queue := make(chan watcher.Item) // rendezvous: ordering depends on the blocking hand-off

	for _, bridge := range m.bridges {
		bridge := bridge
		group.Go(func() error {
			return bridge.Run(groupCtx, queue)
		})
	}
	group.Go(func() error {
		return m.consume(groupCtx, queue)
	})

	return group.Wait()
}

// scanAll builds the initial batch, touching each logical path once per
// contributing source so the final entry carries the full overlay set.
func (m *Mount) scanAll() (overlay.Change, error) {
	initial := overlay.Change{}
	for _, source := range m.sources {
		paths, err := scan.List(source.Root, m.includes, m.ignore)
		if err != nil {
			return nil, err
		}
		for _, logical := range paths {
			tag, ok := pattern.Resolve(m.rules, logical)
			if !ok {
				continue
			}
			physical := filepath.Join(source.Root, filepath.FromSlash(logical))
			overlay.Apply(m.table, initial, source.Name, tag, logical, physical, overlay.FileAction{
				Op:      overlay.OpRefresh,
				Refresh: overlay.RefreshExisting,
			})
		}
	}
	return initial, nil
}

// consume drains the queue in arrival order. One accepted item yields
// exactly one delivered batch; there is no coalescing.
func (m *Mount) consume(ctx context.Context, queue <-chan watcher.Item) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case item := <-queue:
			m.handleItem(item)
		}
	}
}

func (m *Mount) handleItem(item watcher.Item) {
	if pattern.Matches(m.ignore, item.Logical) {
		m.registry.IncEventIgnored()
		m.logger.Debug("event ignored", map[string]string{
			"path": item.Logical,
		})
		return
	}
	tag, ok := pattern.Resolve(m.rules, item.Logical)
	if !ok {
		m.registry.IncEventUnmatched()
		return
	}

	batch := overlay.Change{}
	overlay.Apply(m.table, batch, item.Source, tag, item.Logical, item.Physical, item.Action)
	m.deliverBatch(batch)
}

func (m *Mount) deliverBatch(batch overlay.Change) {
	m.deliver(batch)
	m.registry.IncBatchDelivered()
}
