package engine

import "sync/atomic"

// Stats holds live pipeline counters. Cheap to read under load; the durable
// breakdown by verdict state comes from the verdict store instead.
type Stats struct {
	Received   atomic.Int64
	Processed  atomic.Int64
	Rejected   atomic.Int64
	Flagged    atomic.Int64
	Duplicates atomic.Int64
	HighRisk   atomic.Int64
}

// NewStats returns zeroed counters.
func NewStats() *Stats {
	return &Stats{}
}

// StatsSnapshot is the point-in-time view served by the stats endpoint.
type StatsSnapshot struct {
	Received        int64          `json:"received"`
	Processed       int64          `json:"processed"`
	Rejected        int64          `json:"rejected"`
	Flagged         int64          `json:"flagged"`
	Duplicates      int64          `json:"duplicates"`
	HighRisk        int64          `json:"high_risk"`
	VerdictsByState map[string]int `json:"verdicts_by_state,omitempty"`
}

// Snapshot copies the counters. Values are individually consistent, not a
// cross-counter transaction.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:   s.Received.Load(),
		Processed:  s.Processed.Load(),
		Rejected:   s.Rejected.Load(),
		Flagged:    s.Flagged.Load(),
		Duplicates: s.Duplicates.Load(),
		HighRisk:   s.HighRisk.Load(),
	}
}
