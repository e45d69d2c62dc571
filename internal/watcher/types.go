package watcher

import (
	"unionwatch/internal/logging"
	"unionwatch/internal/metrics"
	"unionwatch/internal/overlay"
)

// Item is one normalized filesystem event handed from a source bridge
// to the mount consumer.
type Item struct {
	Source   overlay.Source
	Logical  string
	Physical string
	Action   overlay.FileAction
}

// Options configures a source bridge.
type Options struct {
	Source   overlay.Source
	Root     string
	Logger   *logging.Logger
	Registry *metrics.Registry
}
