package writer

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"
)

// CSVWriter appends one row per convergence trial to a CSV file, creating it (and
// its header) on first use. Safe for concurrent use by multiple workers.
type CSVWriter struct {
	mu      sync.Mutex
	file    *os.File
	writer  *csv.Writer
	flushed bool
}

func NewCSVWriter(filename string) (*CSVWriter, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ringbench: cannot create directory %q: %w", dir, err)
	}

	fileExists := false
	if _, err := os.Stat(filename); err == nil {
		fileExists = true
	}

	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("ringbench: cannot open csv file: %w", err)
	}

	w := csv.NewWriter(file)
	if !fileExists {
		header := []string{"timestamp", "ring_size", "trial", "rounds", "converged", "elapsed_ms"}
		if err := w.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("ringbench: cannot write header: %w", err)
		}
		w.Flush()
	}

	return &CSVWriter{file: file, writer: w}, nil
}

func (cw *CSVWriter) WriteRow(ringSize, trial, rounds int, converged bool, elapsed time.Duration) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.flushed {
		return fmt.Errorf("ringbench: cannot write, writer already closed")
	}
	record := []string{
		time.Now().Format(time.RFC3339Nano),
		strconv.Itoa(ringSize),
		strconv.Itoa(trial),
		strconv.Itoa(rounds),
		strconv.FormatBool(converged),
		fmt.Sprintf("%.3f", float64(elapsed.Microseconds())/1000.0),
	}
	if err := cw.writer.Write(record); err != nil {
		return fmt.Errorf("ringbench: csv write error: %w", err)
	}
	return nil
}

func (cw *CSVWriter) Flush() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	cw.writer.Flush()
	return cw.writer.Error()
}

func (cw *CSVWriter) Close() error {
	cw.mu.Lock()
	defer cw.mu.Unlock()
	if cw.flushed {
		return nil
	}
	cw.writer.Flush()
	cw.flushed = true
	if err := cw.writer.Error(); err != nil {
		_ = cw.file.Close()
		return err
	}
	return cw.file.Close()
}
