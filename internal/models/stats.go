package models

// RunningStats accumulates per-session correctness counters. It is owned by
// one replay session and mutated only there; everything else receives copies.
// Accuracy is always recomputed from the counters so repeated reads cannot
// drift from float accumulation.
type RunningStats struct {
	Total   int64
	Correct int64
}

// Record counts one processed sample.
func (s *RunningStats) Record(correct bool) {
	s.Total++
	if correct {
		s.Correct++
	}
}

// Accuracy returns Correct/Total as a 0-1 fraction, or 0 before any sample
// has been processed.
func (s *RunningStats) Accuracy() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Correct) / float64(s.Total)
}
