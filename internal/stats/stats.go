// Package stats is the shared counter set mutated by the insertion engine
// and the auth layer. The accumulator is caller-owned and passed by
// reference into every call that can change it; increments are atomic
// because insertion requests run concurrently against the same accumulator.
package stats

import "sync/atomic"

// Stats holds the gateway counters. The engines only ever increment; the
// owner reads snapshots back.
type Stats struct {
	totalRequests        atomic.Int64
	successfulInserts    atomic.Int64
	failedInserts        atomic.Int64
	unauthorizedAttempts atomic.Int64
}

// New returns a zeroed accumulator.
func New() *Stats { return &Stats{} }

// RequestReceived records one authenticated ingestion request. Unauthorized
// attempts are counted separately and never reach this.
func (s *Stats) RequestReceived() {
	s.totalRequests.Add(1)
	requestsTotal.Inc()
}

// InsertOK records one successfully inserted record.
func (s *Stats) InsertOK() {
	s.successfulInserts.Add(1)
	insertsTotal.WithLabelValues("ok").Inc()
}

// InsertFailed records one record that could not be inserted.
func (s *Stats) InsertFailed() {
	s.failedInserts.Add(1)
	insertsTotal.WithLabelValues("error").Inc()
}

// Unauthorized records a failed password or token check. Incremented by the
// auth layer, not by the engines.
func (s *Stats) Unauthorized() {
	s.unauthorizedAttempts.Add(1)
	unauthorizedTotal.Inc()
}

// Snapshot is a point-in-time copy of the counters, in the shape the /stats
// endpoint serves.
type Snapshot struct {
	TotalRequests        int64 `json:"total_requests"`
	SuccessfulInserts    int64 `json:"successful_inserts"`
	FailedInserts        int64 `json:"failed_inserts"`
	UnauthorizedAttempts int64 `json:"unauthorized_attempts"`
}

// Snapshot reads all counters. Each read is atomic; the triple is not a
// single consistent cut, which is fine for monitoring counters.
func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		TotalRequests:        s.totalRequests.Load(),
		SuccessfulInserts:    s.successfulInserts.Load(),
		FailedInserts:        s.failedInserts.Load(),
		UnauthorizedAttempts: s.unauthorizedAttempts.Load(),
	}
}
