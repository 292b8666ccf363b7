// Package export writes stored series to CSV files.
//
// Each metric becomes one "<metric>.csv" file with the header
// "date,value". Dates use the stored "YYYY-MM-DD HH:MM:SS" layout in the
// exporter's location, which is UTC unless configured otherwise.
package export

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/nerrad567/meteo-core/internal/metric"
)

// ErrNoDirectory is returned when no destination directory is given.
var ErrNoDirectory = errors.New("export: destination directory required")

const (
	dirPermissions  = 0o750
	filePermissions = 0o640
)

// Logger defines the logging interface used by the exporter.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Exporter reads series from a metric store and renders them as CSV.
type Exporter struct {
	store  metric.Store
	loc    *time.Location
	logger Logger
}

// New creates an exporter. A nil location means UTC.
func New(store metric.Store, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.UTC
	}
	return &Exporter{store: store, loc: loc, logger: noopLogger{}}
}

// SetLogger sets the logger.
func (e *Exporter) SetLogger(logger Logger) {
	e.logger = logger
}

// WriteCSV writes the readings of name over [start, end] to w.
func (e *Exporter) WriteCSV(ctx context.Context, w io.Writer, name string, start, end time.Time) (int, error) {
	series, err := e.store.ReadRange(ctx, name, start, end)
	if err != nil {
		return 0, err
	}

	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"date", "value"}); err != nil {
		return 0, fmt.Errorf("writing header: %w", err)
	}
	for _, p := range series {
		row := []string{
			p.Time.In(e.loc).Format(metric.TimeLayout),
			strconv.FormatFloat(p.Value, 'f', -1, 64),
		}
		if err := cw.Write(row); err != nil {
			return 0, fmt.Errorf("writing row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, fmt.Errorf("flushing csv: %w", err)
	}
	return len(series), nil
}

// WriteDir exports every named metric to dir/<metric>.csv.
//
// With no names, every cataloged metric is exported. A metric that
// fails is logged and skipped; the returned error joins all failures.
//
// Parameters:
//   - ctx: Context for store reads
//   - dir: Destination directory, created if missing
//   - names: Metrics to export, or nil for all
//   - start, end: Inclusive time range
//
// Returns:
//   - []string: Paths of the files written
//   - error: Joined per-metric failures, or a setup failure
func (e *Exporter) WriteDir(ctx context.Context, dir string, names []string, start, end time.Time) ([]string, error) {
	if dir == "" {
		return nil, ErrNoDirectory
	}
	if err := os.MkdirAll(dir, dirPermissions); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	if len(names) == 0 {
		summaries, err := e.store.ListMetrics(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing metrics: %w", err)
		}
		for _, s := range summaries {
			names = append(names, s.Name)
		}
	}

	var (
		written []string
		errs    []error
	)
	for _, name := range names {
		path := filepath.Join(dir, filepath.Base(name)+".csv")
		rows, err := e.writeFile(ctx, path, name, start, end)
		if err != nil {
			e.logger.Error("export failed", "metric", name, "error", err)
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
			continue
		}
		e.logger.Info("metric exported", "metric", name, "path", path, "rows", rows)
		written = append(written, path)
	}
	return written, errors.Join(errs...)
}

// writeFile renders into a temporary file and renames it over path, so
// readers never see a partial export.
func (e *Exporter) writeFile(ctx context.Context, path, name string, start, end time.Time) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck // no-op after a successful rename

	rows, err := e.WriteCSV(ctx, tmp, name, start, end)
	if err != nil {
		tmp.Close() //nolint:errcheck // already failing
		return 0, err
	}
	if err := tmp.Close(); err != nil {
		return 0, fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), filePermissions); err != nil {
		return 0, fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return 0, fmt.Errorf("renaming to %s: %w", path, err)
	}
	return rows, nil
}
