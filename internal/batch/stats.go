package batch

// RunStats tracks aggregate counters and byte totals across a batch run.
type RunStats struct {
	Total            int
	Encoded          int
	Failed           int
	Skipped          int
	Uploaded         int
	TotalInputBytes  int64
	TotalOutputBytes int64
}

// SpaceSaved returns the aggregate byte difference between inputs and
// outputs. Positive means outputs are smaller; negative means they grew.
func (s *RunStats) SpaceSaved() int64 {
	return s.TotalInputBytes - s.TotalOutputBytes
}
