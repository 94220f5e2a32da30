package metrics

import (
	"time"
)

// Tracker wraps a collector with the nil-safety and the start/stop pairing
// the client hot path wants. A zero Tracker is a no-op.
type Tracker struct {
	collector            ClientMetricsCollector
	recordCommandLatency bool
}

func NewTracker(collector ClientMetricsCollector) *Tracker {
	return &Tracker{
		collector:            collector,
		recordCommandLatency: true,
	}
}

func (t *Tracker) enabled() bool {
	return t != nil && t.collector != nil
}

func (t *Tracker) OnConnectionOpen() {
	if t.enabled() {
		t.collector.IncrementActiveConnections()
	}
}

func (t *Tracker) OnConnectionClose() {
	if t.enabled() {
		t.collector.DecrementActiveConnections()
	}
}

func (t *Tracker) TrackCommand(command string) {
	if t.enabled() {
		t.collector.IncrementCommandCounter(command)
	}
}

// TrackLatency measures and records the submit-to-reply latency for a command.
func (t *Tracker) TrackLatency(command string, start time.Time) {
	if !t.enabled() {
		return
	}
	duration := time.Since(start)
	if t.recordCommandLatency {
		t.collector.RecordCommandLatency(command, duration)
	}
	t.collector.RecordOverallLatency(duration)
}

func (t *Tracker) TrackPoolWait(start time.Time) {
	if t.enabled() {
		t.collector.RecordPoolWait(time.Since(start))
	}
}

func (t *Tracker) TrackError(errorType string) {
	if t.enabled() {
		t.collector.IncrementErrorCounter(errorType)
	}
}

func (t *Tracker) TrackCounter(label string) {
	if t.enabled() {
		t.collector.IncrementCounter(label)
	}
}
