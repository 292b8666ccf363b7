package query

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/resample"
)

// Reading is one stream entry. It encodes as [epoch_millis, value].
type Reading struct {
	Time  time.Time
	Value float64
}

// MarshalJSON implements json.Marshaler. A NaN or infinite value has no
// JSON form and encodes as null.
func (r Reading) MarshalJSON() ([]byte, error) {
	b := make([]byte, 0, 32)
	b = append(b, '[')
	b = strconv.AppendInt(b, r.Time.UnixMilli(), 10)
	b = append(b, ',')
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		b = append(b, "null"...)
	} else {
		b = strconv.AppendFloat(b, r.Value, 'f', -1, 64)
	}
	b = append(b, ']')
	return b, nil
}

// Stream is the metadata and readings of one metric.
type Stream struct {
	Metadata metric.Metric `json:"metadata"`
	Readings []Reading     `json:"readings"`
}

// Result is the answer to a stream request.
type Result struct {
	Data map[string]Stream `json:"data"`

	// Failures holds the error of every metric that could not be read.
	Failures map[string]error `json:"-"`
}

// Options controls resampling of stream requests.
type Options struct {
	Resample  bool
	Frequency time.Duration
	Fill      resample.Fill
}

// Logger defines the logging interface used by the service.
type Logger interface {
	Debug(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Warn(string, ...any)  {}

// Service serves stream requests from a metric store.
// It holds no mutable state and is safe for concurrent use.
type Service struct {
	store  metric.Store
	opts   Options
	logger Logger
}

// NewService creates a query service. An empty fill policy defaults to
// resample.FillNaN.
func NewService(store metric.Store, opts Options) *Service {
	if opts.Fill == "" {
		opts.Fill = resample.FillNaN
	}
	return &Service{store: store, opts: opts, logger: noopLogger{}}
}

// SetLogger sets the logger for the service.
func (s *Service) SetLogger(logger Logger) {
	s.logger = logger
}

// Options returns the resampling options in effect.
func (s *Service) Options() Options {
	return s.opts
}

// GetAvailableStreams lists every metric in the catalog.
func (s *Service) GetAvailableStreams(ctx context.Context) ([]metric.Summary, error) {
	streams, err := s.store.ListMetrics(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing streams: %w", err)
	}
	return streams, nil
}

// GetStream returns metadata and readings for each named metric over
// the inclusive range [start, end].
//
// Metrics are resolved independently. A metric that fails is recorded in
// Result.Failures and left out of Result.Data. The returned error is
// non-nil only when no metric succeeded, and then wraps ErrAllFailed and
// every per-metric error.
//
// With resampling enabled, start is truncated to the minute, the raw
// series is resampled onto the configured grid and missing points are
// dropped.
func (s *Service) GetStream(ctx context.Context, names []string, start, end time.Time) (Result, error) {
	names = dedupe(names)
	if len(names) == 0 {
		return Result{}, ErrNoMetrics
	}
	if end.Before(start) {
		return Result{}, fmt.Errorf("%w: %s < %s", ErrInvalidRange, metric.FormatTime(end), metric.FormatTime(start))
	}

	result := Result{
		Data:     make(map[string]Stream, len(names)),
		Failures: make(map[string]error),
	}
	for _, name := range names {
		stream, err := s.stream(ctx, name, start, end)
		if err != nil {
			s.logger.Warn("stream request failed", "metric", name, "error", err)
			result.Failures[name] = err
			continue
		}
		result.Data[name] = stream
	}

	if len(result.Data) == 0 {
		errs := []error{ErrAllFailed}
		for _, name := range names {
			errs = append(errs, fmt.Errorf("%s: %w", name, result.Failures[name]))
		}
		return result, errors.Join(errs...)
	}
	return result, nil
}

func (s *Service) stream(ctx context.Context, name string, start, end time.Time) (Stream, error) {
	meta, err := s.store.GetMetadata(ctx, name)
	if err != nil {
		return Stream{}, err
	}

	if s.opts.Resample {
		start = start.Truncate(time.Minute)
	}

	series, err := s.store.ReadRange(ctx, name, start, end)
	if err != nil {
		return Stream{}, err
	}

	if s.opts.Resample {
		series, err = resample.Resample(series, start, end, s.opts.Frequency, s.opts.Fill)
		if err != nil {
			return Stream{}, fmt.Errorf("resampling %q: %w", name, err)
		}
		series = resample.DropMissing(series)
		s.logger.Debug("stream resampled", "metric", name, "points", len(series))
	}

	readings := make([]Reading, len(series))
	for i, p := range series {
		readings[i] = Reading{Time: p.Time, Value: p.Value}
	}
	return Stream{Metadata: meta, Readings: readings}, nil
}

// ParseNames splits a comma-separated metric list, dropping blanks.
func ParseNames(s string) []string {
	var names []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			names = append(names, part)
		}
	}
	return names
}

func dedupe(names []string) []string {
	seen := make(map[string]bool, len(names))
	out := names[:0:0]
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
