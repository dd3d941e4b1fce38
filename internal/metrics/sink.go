// Package metrics accounts for the compute-vs-network-wait split the
// Coordinator reports in a RunRecord.
package metrics

import (
	"sync/atomic"
	"time"

	"github.com/shardmesh/lagrange/pkg/party"
)

// perParticipant holds one participant's local accumulators. Each
// Participant only ever touches its own entry, so these are plain
// atomics rather than a mutex-guarded struct: no contention on the hot
// path, per the concurrency model's resource notes.
type perParticipant struct {
	computeNs atomic.Int64
	waitNs    atomic.Int64
}

// Sink is a concurrent-safe accounting surface: participants write their
// own compute/wait time during a run, and the Coordinator reads the
// merged totals once every participant has finished.
type Sink struct {
	perID map[party.ID]*perParticipant
}

// NewSink allocates a Sink with one accumulator per id in ids.
func NewSink(ids []party.ID) *Sink {
	s := &Sink{perID: make(map[party.ID]*perParticipant, len(ids))}
	for _, id := range ids {
		s.perID[id] = &perParticipant{}
	}
	return s
}

// TimeCompute runs fn and adds its wall-clock duration to id's
// compute_ns accumulator. Used to wrap GroupArith and Lagrange
// coefficient calls, which are CPU-bound and never yield.
func (s *Sink) TimeCompute(id party.ID, fn func()) {
	start := time.Now()
	fn()
	s.perID[id].computeNs.Add(int64(time.Since(start)))
}

// TimeWait records a duration already measured by the caller (the time
// spent blocked in a bus Recv) against id's network_wait_ns accumulator.
func (s *Sink) TimeWait(id party.ID, d time.Duration) {
	s.perID[id].waitNs.Add(int64(d))
}

// ComputeNs returns the total compute time recorded across all
// participants.
func (s *Sink) ComputeNs() int64 {
	var total int64
	for _, p := range s.perID {
		total += p.computeNs.Load()
	}
	return total
}

// WaitNs returns the total network-wait time recorded across all
// participants.
func (s *Sink) WaitNs() int64 {
	var total int64
	for _, p := range s.perID {
		total += p.waitNs.Load()
	}
	return total
}
