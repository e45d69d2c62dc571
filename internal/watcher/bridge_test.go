package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"

	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
)

func testLogger() *logging.Logger {
	return logging.NewLoggerWithOutput(logging.NewLogBuffer(10), logging.LevelDebug, nil)
}

func startBridge(t *testing.T, root string) (<-chan Item, context.CancelFunc) {
	t.Helper()

	bridge, err := New(Options{
		Source:   "r1",
		Root:     root,
		Logger:   testLogger(),
		Registry: &metrics.Registry{},
	})
	if err != nil {
		t.Fatalf("new bridge: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	queue := make(chan Item)
	done := make(chan error, 1)
	go func() {
		done <- bridge.Run(ctx, queue)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("bridge run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("timed out waiting for bridge shutdown")
		}
	})

	// Give the native subscription a moment to become active.
	time.Sleep(200 * time.Millisecond)
	return queue, cancel
}

func waitForItem(t *testing.T, queue <-chan Item, match func(Item) bool) Item {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case item := <-queue:
			if match(item) {
				return item
			}
		case <-deadline:
			t.Fatal("timed out waiting for matching item")
		}
	}
}

func TestBridgeReportsCreatedFile(t *testing.T) {
	root := t.TempDir()
	queue, _ := startBridge(t, root)

	path := filepath.Join(root, "a.md")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	item := waitForItem(t, queue, func(item Item) bool {
		return item.Logical == "a.md"
	})
	if item.Source != "r1" {
		t.Fatalf("expected source r1, got %q", item.Source)
	}
	if item.Action.Op != overlay.OpRefresh {
		t.Fatalf("expected refresh, got %v", item.Action.Op)
	}
	if item.Action.Refresh != overlay.RefreshNew {
		t.Fatalf("expected new, got %v", item.Action.Refresh)
	}
}

func TestBridgeReportsRemovedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "b.md")
	if err := os.WriteFile(path, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	queue, _ := startBridge(t, root)
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove file: %v", err)
	}

	item := waitForItem(t, queue, func(item Item) bool {
		return item.Logical == "b.md" && item.Action.Op == overlay.OpDelete
	})
	if item.Action.Op != overlay.OpDelete {
		t.Fatalf("expected delete, got %v", item.Action.Op)
	}
}

func TestBridgeAdoptsCreatedDirectory(t *testing.T) {
	root := t.TempDir()
	queue, _ := startBridge(t, root)

	sub := filepath.Join(root, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	// Let the bridge register the new directory before writing into it.
	time.Sleep(500 * time.Millisecond)
	if err := os.WriteFile(filepath.Join(sub, "c.md"), []byte("hi"), 0o600); err != nil {
		t.Fatalf("write nested file: %v", err)
	}

	item := waitForItem(t, queue, func(item Item) bool {
		return item.Logical == "sub/c.md" && item.Action.Op == overlay.OpRefresh
	})
	if item.Action.Refresh != overlay.RefreshNew {
		t.Fatalf("expected new, got %v", item.Action.Refresh)
	}
}

func TestBridgeRequiresExistingRoot(t *testing.T) {
	_, err := New(Options{
		Source: "r1",
		Root:   filepath.Join(t.TempDir(), "missing"),
		Logger: testLogger(),
	})
	if err == nil {
		t.Fatal("expected setup fault for missing root")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		op      fsnotify.Op
		want    overlay.Op
		refresh overlay.RefreshAction
	}{
		{fsnotify.Create, overlay.OpRefresh, overlay.RefreshNew},
		{fsnotify.Write, overlay.OpRefresh, overlay.RefreshUpdate},
		{fsnotify.Chmod, overlay.OpRefresh, overlay.RefreshUpdate},
		{fsnotify.Remove, overlay.OpDelete, ""},
		{fsnotify.Rename, overlay.OpDelete, ""},
		{0, overlay.OpDelete, ""},
	}

	for _, tc := range cases {
		action := classify(tc.op)
		if action.Op != tc.want {
			t.Fatalf("classify(%v): expected op %v, got %v", tc.op, tc.want, action.Op)
		}
		if tc.want == overlay.OpRefresh && action.Refresh != tc.refresh {
			t.Fatalf("classify(%v): expected refresh %v, got %v", tc.op, tc.refresh, action.Refresh)
		}
	}
}
