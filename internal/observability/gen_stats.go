package observability

import (
	"sync/atomic"
	"time"
)

// GenStats keeps cheap process-local counters for generation calls.
// The prometheus metrics cover dashboards; this snapshot backs the
// /internal/stats/generation ops endpoint and the shutdown log line.
type GenStats struct {
	attempts  atomic.Uint64
	succeeded atomic.Uint64
	failed    atomic.Uint64

	// duration stats (nanoseconds)
	durationCount atomic.Uint64
	durationTotal atomic.Int64
	durationMax   atomic.Int64
}

func NewGenStats() *GenStats {
	return &GenStats{}
}

func (s *GenStats) IncAttempt() {
	s.attempts.Add(1)
}

func (s *GenStats) IncSucceeded() {
	s.succeeded.Add(1)
}

func (s *GenStats) IncFailed() {
	s.failed.Add(1)
}

func (s *GenStats) ObserveDuration(d time.Duration) {
	ns := d.Nanoseconds()
	s.durationCount.Add(1)
	s.durationTotal.Add(ns)

	// max update

	for {
		curr := s.durationMax.Load()

		if ns <= curr {
			return
		}

		if s.durationMax.CompareAndSwap(curr, ns) {
			return
		}
	}
}

type GenStatsSnapshot struct {
	Attempts        uint64        `json:"attempts"`
	Succeeded       uint64        `json:"succeeded"`
	Failed          uint64        `json:"failed"`
	DurationCount   uint64        `json:"durationCount"`
	AverageDuration time.Duration `json:"averageDurationNs"`
	MaxDuration     time.Duration `json:"maxDurationNs"`
}

func (s *GenStats) Snapshot() GenStatsSnapshot {
	count := s.durationCount.Load()
	total := s.durationTotal.Load()
	max := s.durationMax.Load()

	var avg time.Duration

	if count > 0 {
		avg = time.Duration(total / int64(count))
	}

	return GenStatsSnapshot{
		Attempts:        s.attempts.Load(),
		Succeeded:       s.succeeded.Load(),
		Failed:          s.failed.Load(),
		DurationCount:   count,
		AverageDuration: avg,
		MaxDuration:     time.Duration(max),
	}
}
