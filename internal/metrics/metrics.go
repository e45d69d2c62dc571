package metrics

import (
	"fmt"
	"io"
	"sync/atomic"
)

// Registry tracks mount pipeline counters. All methods are safe for
// concurrent use and tolerate a nil receiver.
type Registry struct {
	eventsReceived   atomic.Int64
	eventsIgnored    atomic.Int64
	eventsUnmatched  atomic.Int64
	batchesDelivered atomic.Int64
	handlerFaults    atomic.Int64
	activeWatches    atomic.Int64
}

var Default = &Registry{}

func (r *Registry) IncEventReceived() {
	if r == nil {
		return
	}
	r.eventsReceived.Add(1)
}

func (r *Registry) IncEventIgnored() {
	if r == nil {
		return
	}
	r.eventsIgnored.Add(1)
}

func (r *Registry) IncEventUnmatched() {
	if r == nil {
		return
	}
	r.eventsUnmatched.Add(1)
}

func (r *Registry) IncBatchDelivered() {
	if r == nil {
		return
	}
	r.batchesDelivered.Add(1)
}

func (r *Registry) IncHandlerFault() {
	if r == nil {
		return
	}
	r.handlerFaults.Add(1)
}

func (r *Registry) AddActiveWatches(delta int64) {
	if r == nil {
		return
	}
	r.activeWatches.Add(delta)
}

// Snapshot is a point-in-time copy of the counters.
type Snapshot struct {
	EventsReceived   int64 `json:"events_received"`
	EventsIgnored    int64 `json:"events_ignored"`
	EventsUnmatched  int64 `json:"events_unmatched"`
	BatchesDelivered int64 `json:"batches_delivered"`
	HandlerFaults    int64 `json:"handler_faults"`
	ActiveWatches    int64 `json:"active_watches"`
}

func (r *Registry) Snapshot() Snapshot {
	if r == nil {
		return Snapshot{}
	}
	return Snapshot{
		EventsReceived:   r.eventsReceived.Load(),
		EventsIgnored:    r.eventsIgnored.Load(),
		EventsUnmatched:  r.eventsUnmatched.Load(),
		BatchesDelivered: r.batchesDelivered.Load(),
		HandlerFaults:    r.handlerFaults.Load(),
		ActiveWatches:    r.activeWatches.Load(),
	}
}

// WritePrometheus renders the counters in Prometheus text format.
func (r *Registry) WritePrometheus(writer io.Writer) error {
	if r == nil {
		return nil
	}

	snapshot := r.Snapshot()
	writeCounter(writer, "unionwatch_events_received_total", "Total filesystem events received", snapshot.EventsReceived)
	writeCounter(writer, "unionwatch_events_ignored_total", "Events dropped by ignore patterns", snapshot.EventsIgnored)
	writeCounter(writer, "unionwatch_events_unmatched_total", "Events dropped with no matching tag", snapshot.EventsUnmatched)
	writeCounter(writer, "unionwatch_batches_delivered_total", "Change batches delivered to the handler", snapshot.BatchesDelivered)
	writeCounter(writer, "unionwatch_handler_faults_total", "Neutralized handler faults", snapshot.HandlerFaults)
	writeGauge(writer, "unionwatch_active_watches", "Active native watch registrations", snapshot.ActiveWatches)
	return nil
}

func writeHelp(writer io.Writer, metric, help string) {
	fmt.Fprintf(writer, "# HELP %s %s\n", metric, help)
}

func writeCounter(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s counter\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}

func writeGauge(writer io.Writer, metric, help string, value int64) {
	writeHelp(writer, metric, help)
	fmt.Fprintf(writer, "# TYPE %s gauge\n", metric)
	fmt.Fprintf(writer, "%s %d\n", metric, value)
}
