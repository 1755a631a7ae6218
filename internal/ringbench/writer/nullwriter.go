package writer

import "time"

// NopWriter discards every row; used when --csv is not given.
type NopWriter struct{}

func (NopWriter) WriteRow(ringSize, trial, rounds int, converged bool, elapsed time.Duration) error {
	return nil
}
func (NopWriter) Flush() error { return nil }
func (NopWriter) Close() error { return nil }
