// Package watcher bridges native filesystem notifications into the
// normalized event stream consumed by the mount.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"unionwatch/internal/fsutil"
	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
)

// Bridge owns one native watch subscription for one source root. It
// normalizes native events into Items and pushes them onto a shared
// rendezvous channel; the send blocks until the consumer takes the
// previous item, which keeps the whole stream strictly ordered.
type Bridge struct {
	source   overlay.Source
	root     string
	logger   *logging.Logger
	registry *metrics.Registry
	watches  int64
}

// New canonicalizes the root and prepares a bridge. Failures here are
// setup faults and abort the mount.
func New(options Options) (*Bridge, error) {
	if options.Source == "" {
		return nil, errors.New("watch source is required")
	}
	if options.Root == "" {
		return nil, errors.New("watch root is required")
	}
	canonical, err := fsutil.Canonicalize(options.Root)
	if err != nil {
		return nil, err
	}

	logger := options.Logger
	if logger == nil {
		logger = logging.NewLoggerWithOutput(nil, logging.LevelInfo, nil)
	}
	registry := options.Registry
	if registry == nil {
		registry = metrics.Default
	}

	return &Bridge{
		source:   options.Source,
		root:     canonical,
		logger:   logger.With(map[string]string{"source": string(options.Source)}),
		registry: registry,
	}, nil
}

// Root returns the canonicalized root the bridge watches.
func (bridge *Bridge) Root() string {
	return bridge.root
}

// Run watches the root until the context is cancelled. Native
// subscription errors after startup are unrecovered faults and are
// returned so the owning group cancels the consumer.
func (bridge *Bridge) Run(ctx context.Context, queue chan<- Item) error {
	native, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("open watcher for %q: %w", bridge.root, err)
	}
	defer native.Close()
	defer func() {
		bridge.registry.AddActiveWatches(-bridge.watches)
		bridge.watches = 0
	}()

	if err := bridge.addTree(native, bridge.root); err != nil {
		return err
	}
	bridge.logger.Info("watching source", map[string]string{
		"root": bridge.root,
	})

	for {
		select {
		case <-ctx.Done():
			return nil
		case nativeEvent, ok := <-native.Events:
			if !ok {
				return fmt.Errorf("event stream for %q closed", bridge.root)
			}
			if err := bridge.handleNative(ctx, native, nativeEvent, queue); err != nil {
				return err
			}
		case nativeErr, ok := <-native.Errors:
			if !ok {
				return fmt.Errorf("error stream for %q closed", bridge.root)
			}
			return fmt.Errorf("watch %q: %w", bridge.root, nativeErr)
		}
	}
}

func (bridge *Bridge) handleNative(ctx context.Context, native *fsnotify.Watcher, nativeEvent fsnotify.Event, queue chan<- Item) error {
	bridge.registry.IncEventReceived()
	action := classify(nativeEvent.Op)

	if action.Op == overlay.OpRefresh {
		info, statErr := os.Stat(nativeEvent.Name)
		if statErr == nil && info.IsDir() {
			// fsnotify does not recurse: pick up the new directory and
			// announce the files it already contains.
			if nativeEvent.Op.Has(fsnotify.Create) {
				return bridge.adoptDirectory(ctx, native, nativeEvent.Name, queue)
			}
			return nil
		}
	}

	return bridge.push(ctx, queue, nativeEvent.Name, action)
}

func (bridge *Bridge) push(ctx context.Context, queue chan<- Item, nativePath string, action overlay.FileAction) error {
	logical, inRoot := fsutil.Relativize(bridge.root, nativePath)
	if !inRoot {
		bridge.logger.Debug("path escapes root", map[string]string{
			"path": nativePath,
		})
	}

	item := Item{
		Source:   bridge.source,
		Logical:  logical,
		Physical: nativePath,
		Action:   action,
	}
	select {
	case queue <- item:
		return nil
	case <-ctx.Done():
		return nil
	}
}

func (bridge *Bridge) adoptDirectory(ctx context.Context, native *fsnotify.Watcher, dir string, queue chan<- Item) error {
	return filepath.WalkDir(dir, func(walked string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		if entry.IsDir() {
			if err := bridge.addWatch(native, walked); err != nil {
				bridge.logger.Warn("watch add failed", map[string]string{
					"path":  walked,
					"error": err.Error(),
				})
			}
			return nil
		}
		return bridge.push(ctx, queue, walked, overlay.FileAction{
			Op:      overlay.OpRefresh,
			Refresh: overlay.RefreshNew,
		})
	})
}

func (bridge *Bridge) addTree(native *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(walked string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if !entry.IsDir() {
			return nil
		}
		if err := bridge.addWatch(native, walked); err != nil {
			return fmt.Errorf("watch %q: %w", walked, err)
		}
		return nil
	})
}

func (bridge *Bridge) addWatch(native *fsnotify.Watcher, dir string) error {
	if err := native.Add(dir); err != nil {
		return err
	}
	bridge.watches++
	bridge.registry.AddActiveWatches(1)
	return nil
}

// classify maps native ops onto the abstract event shapes: additions
// become new refreshes, modifications become updates, removals and
// anything unrecognized become deletes.
func classify(op fsnotify.Op) overlay.FileAction {
	switch {
	case op.Has(fsnotify.Create):
		return overlay.FileAction{Op: overlay.OpRefresh, Refresh: overlay.RefreshNew}
	case op.Has(fsnotify.Write), op.Has(fsnotify.Chmod):
		return overlay.FileAction{Op: overlay.OpRefresh, Refresh: overlay.RefreshUpdate}
	case op.Has(fsnotify.Remove), op.Has(fsnotify.Rename):
		return overlay.FileAction{Op: overlay.OpDelete}
	default:
		return overlay.FileAction{Op: overlay.OpDelete}
	}
}
