// Package metrics keeps lightweight in-process counters for the pipeline.
// No exporter: the run loop logs a snapshot on shutdown.
package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a monotonically increasing counter.
type Counter struct {
	value atomic.Int64
}

// Inc increments the counter by 1.
func (c *Counter) Inc() { c.value.Add(1) }

// Value returns the current counter value.
func (c *Counter) Value() int64 { return c.value.Load() }

// Pipeline aggregates the counters of the message-to-summary pipeline.
type Pipeline struct {
	EventsSeen      Counter
	EventsAccepted  Counter
	SummariesPosted Counter
	FetchFailures   Counter
	SummaryFailures Counter
	PostFailures    Counter
	startTime       time.Time
}

// NewPipeline creates a Pipeline collector.
func NewPipeline() *Pipeline {
	return &Pipeline{startTime: time.Now()}
}

// Uptime returns how long the collector has been running.
func (p *Pipeline) Uptime() time.Duration {
	return time.Since(p.startTime)
}

// Snapshot returns the current counter values keyed by name, for logging.
func (p *Pipeline) Snapshot() map[string]int64 {
	return map[string]int64{
		"events_seen":      p.EventsSeen.Value(),
		"events_accepted":  p.EventsAccepted.Value(),
		"summaries_posted": p.SummariesPosted.Value(),
		"fetch_failures":   p.FetchFailures.Value(),
		"summary_failures": p.SummaryFailures.Value(),
		"post_failures":    p.PostFailures.Value(),
	}
}
