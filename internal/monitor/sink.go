package monitor

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/nerrad567/meteo-core/internal/metric"
)

// StoreSink writes samples to a metric.Store.
type StoreSink struct {
	store  metric.Store
	logger Logger
}

// NewStoreSink creates a sink over store.
func NewStoreSink(store metric.Store, logger Logger) *StoreSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &StoreSink{store: store, logger: logger}
}

// Name implements Sink.
func (s *StoreSink) Name() string { return "store" }

// Register implements Registrar.
func (s *StoreSink) Register(ctx context.Context, m metric.Metric) error {
	return s.store.RegisterMetric(ctx, m)
}

// Write persists every sample. Each failed write is logged on its own;
// writes that succeeded are kept.
func (s *StoreSink) Write(ctx context.Context, samples []Sample) error {
	readings := make([]metric.Reading, len(samples))
	for i, smp := range samples {
		readings[i] = smp.Reading()
	}

	written, err := s.store.WriteReadings(ctx, readings)
	if err == nil {
		return nil
	}

	var joined interface{ Unwrap() []error }
	if errors.As(err, &joined) {
		for _, e := range joined.Unwrap() {
			s.logger.Error("storing reading failed", "error", e)
		}
	} else {
		s.logger.Error("storing reading failed", "error", err)
	}
	return fmt.Errorf("%d of %d readings stored: %w", written, len(readings), err)
}

// LogSink logs every sample. It backs the "dummy" storage mode.
type LogSink struct {
	logger Logger
}

// NewLogSink creates a sink that logs at info level.
func NewLogSink(logger Logger) *LogSink {
	if logger == nil {
		logger = noopLogger{}
	}
	return &LogSink{logger: logger}
}

// Name implements Sink.
func (s *LogSink) Name() string { return "log" }

// Write implements Sink.
func (s *LogSink) Write(_ context.Context, samples []Sample) error {
	for _, smp := range samples {
		s.logger.Info("reading",
			"sensor", smp.Sensor,
			"reader", smp.Reader,
			"time", smp.Time.Format(time.RFC3339),
			"value", smp.Value,
			"unit", smp.Unit,
		)
	}
	return nil
}

// CSVSink appends one row per pass to a CSV file.
//
// Columns follow metric registration order. The header
// "date,<metric>,..." is written when the file is created; an existing
// file is appended to as-is. Values are formatted with two decimals and
// sensors missing from a pass leave an empty cell.
type CSVSink struct {
	path string

	mu      sync.Mutex
	columns []string
	index   map[string]int
}

// NewCSVSink creates a sink appending to path.
func NewCSVSink(path string) *CSVSink {
	return &CSVSink{path: path, index: make(map[string]int)}
}

// Name implements Sink.
func (s *CSVSink) Name() string { return "file" }

// Register implements Registrar by adding a column for m.
func (s *CSVSink) Register(_ context.Context, m metric.Metric) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.index[m.Name]; !ok {
		s.index[m.Name] = len(s.columns)
		s.columns = append(s.columns, m.Name)
	}
	return nil
}

// Write implements Sink.
func (s *CSVSink) Write(_ context.Context, samples []Sample) error {
	if len(samples) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	_, statErr := os.Stat(s.path)
	create := errors.Is(statErr, os.ErrNotExist)

	// #nosec G304 -- path comes from configuration
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return fmt.Errorf("opening %s: %w", s.path, err)
	}
	defer f.Close() //nolint:errcheck // write errors surface through the csv writer

	w := csv.NewWriter(f)
	if create {
		if err := w.Write(append([]string{"date"}, s.columns...)); err != nil {
			return fmt.Errorf("writing header: %w", err)
		}
	}

	row := make([]string, len(s.columns)+1)
	row[0] = samples[0].Time.Format(time.RFC3339)
	for _, smp := range samples {
		i, ok := s.index[smp.Sensor]
		if !ok {
			continue
		}
		row[i+1] = strconv.FormatFloat(smp.Float(), 'f', 2, 64)
	}
	if err := w.Write(row); err != nil {
		return fmt.Errorf("writing row: %w", err)
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flushing %s: %w", s.path, err)
	}
	return nil
}
