package resample

import (
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/meteo-core/internal/metric"
)

// Fill selects how grid points outside the series are valued.
type Fill string

// Fill policies.
const (
	FillRaise    Fill = "raise"
	FillNaN      Fill = "nan"
	FillConstant Fill = "constant"
)

// MaxPoints bounds the size of a single output grid.
const MaxPoints = 1_000_000

// ParseFill validates a fill policy name.
func ParseFill(s string) (Fill, error) {
	switch f := Fill(s); f {
	case FillRaise, FillNaN, FillConstant:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidFill, s)
	}
}

// Missing returns the sentinel used for grid points with no value.
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v is the missing sentinel.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// Resample evaluates series at start, start+freq, ... up to and including
// end. Every grid point is emitted, including those holding the missing
// sentinel. An end before start yields an empty series.
func Resample(series metric.Series, start, end time.Time, freq time.Duration, fill Fill) (metric.Series, error) {
	if freq <= 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidFrequency, freq)
	}
	if _, err := ParseFill(string(fill)); err != nil {
		return nil, err
	}
	for i := 1; i < len(series); i++ {
		if !series[i].Time.After(series[i-1].Time) {
			return nil, fmt.Errorf("%w: index %d at %s", ErrUnsorted, i, series[i].Time.Format(time.RFC3339))
		}
	}

	if end.Before(start) {
		return metric.Series{}, nil
	}
	n := end.Sub(start)/freq + 1
	if n > MaxPoints {
		return nil, fmt.Errorf("%w: %d points", ErrTooManyPoints, n)
	}

	if fill == FillRaise {
		if len(series) == 0 {
			return nil, fmt.Errorf("%w: series is empty", ErrOutOfRange)
		}
		first, last := series[0].Time, series[len(series)-1].Time
		if start.Before(first) || end.After(last) {
			return nil, fmt.Errorf("%w: [%s, %s] not within [%s, %s]", ErrOutOfRange,
				start.Format(time.RFC3339), end.Format(time.RFC3339),
				first.Format(time.RFC3339), last.Format(time.RFC3339))
		}
	}

	out := make(metric.Series, 0, n)
	cursor := 0
	for k := time.Duration(0); k < n; k++ {
		t := start.Add(k * freq)
		out = append(out, metric.Point{Time: t, Value: valueAt(series, t, fill, &cursor)})
	}
	return out, nil
}

// valueAt computes the value at grid time t. cursor is the index of the
// first reading not before the previous grid point and never moves back.
func valueAt(series metric.Series, t time.Time, fill Fill, cursor *int) float64 {
	if len(series) == 0 {
		return Missing()
	}

	first, last := series[0], series[len(series)-1]
	switch {
	case t.Before(first.Time):
		if fill == FillConstant {
			return first.Value
		}
		return Missing()
	case t.After(last.Time):
		if fill == FillConstant {
			return last.Value
		}
		return Missing()
	}

	for *cursor < len(series) && series[*cursor].Time.Before(t) {
		*cursor++
	}
	step := *cursor

	if len(series) == 1 {
		return first.Value
	}
	if step == 0 {
		return interpolate(series[0], series[1], t)
	}
	return interpolate(series[step-1], series[step], t)
}

func interpolate(prev, next metric.Point, t time.Time) float64 {
	span := next.Time.Sub(prev.Time).Seconds()
	return prev.Value + (next.Value-prev.Value)*t.Sub(prev.Time).Seconds()/span
}

// DropMissing returns the points of series that hold a value.
func DropMissing(series metric.Series) metric.Series {
	out := make(metric.Series, 0, len(series))
	for _, p := range series {
		if !IsMissing(p.Value) {
			out = append(out, p)
		}
	}
	return out
}
