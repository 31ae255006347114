// Package store persists toggle settings and per-request latency history in
// SQLite.
package store

import (
	"time"

	"github.com/gregiteen/ai-devices/internal/latency"
	"github.com/gregiteen/ai-devices/internal/metrics"
	"github.com/gregiteen/ai-devices/internal/stream"
)

// LatencyRecord is one completed request.
type LatencyRecord struct {
	SessionID string
	StartedAt time.Time
	Report    latency.Report
	// Recorded lists the stages that were observed; the others read as zero.
	Recorded  []latency.Stage
	Outcome   string
	Error     string
	CreatedAt time.Time
}

// Has reports whether stage s was observed.
func (r LatencyRecord) Has(s latency.Stage) bool {
	for _, st := range r.Recorded {
		if st == s {
			return true
		}
	}
	return false
}

// FromCompletion converts a finished session into a record.
func FromCompletion(c stream.Completion) LatencyRecord {
	rec := LatencyRecord{
		SessionID: c.SessionID,
		StartedAt: c.StartedAt,
		Report:    c.Report,
		Recorded:  c.Recorded,
		Outcome:   metrics.OutcomeCompleted,
	}
	if c.Err != nil {
		rec.Outcome = metrics.OutcomeAborted
		rec.Error = c.Err.Error()
	}
	return rec
}
