package ingest

import "sync"

// Failure names one item that could not be committed, with the reason.
type Failure struct {
	Identifier string
	Reason     string
}

// Summary reports the outcome of one batch run. Per-item errors land in the
// counters; no item aborts the surrounding batch.
type Summary struct {
	RunID     string
	Succeeded int
	Skipped   int
	Failed    int
	Inserted  int
	Updated   int
	Failures  []Failure

	mu sync.Mutex
}

func (s *Summary) succeed(inserted bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Succeeded++
	if inserted {
		s.Inserted++
	} else {
		s.Updated++
	}
}

func (s *Summary) skip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Skipped++
}

func (s *Summary) fail(identifier, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Failed++
	s.Failures = append(s.Failures, Failure{Identifier: identifier, Reason: reason})
}
