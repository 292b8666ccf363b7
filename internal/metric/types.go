package metric

import (
	"fmt"
	"math"
	"time"
)

// TimeLayout is the stored timestamp format. Values are always UTC.
const TimeLayout = "2006-01-02 15:04:05"

// Datatype is the storage type of a metric's values.
type Datatype string

// Supported datatypes.
const (
	Integer Datatype = "INTEGER"
	Real    Datatype = "REAL"
)

// ParseDatatype validates a datatype name. Only the exact names INTEGER
// and REAL are accepted.
func ParseDatatype(s string) (Datatype, error) {
	switch d := Datatype(s); d {
	case Integer, Real:
		return d, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidDatatype, s)
	}
}

// Coerce converts v to the Go type stored for this datatype: int64 for
// INTEGER and float64 for REAL.
//
// INTEGER accepts any integer type and floats with no fractional part.
// REAL accepts any integer or float type.
func (d Datatype) Coerce(v any) (any, error) {
	switch d {
	case Integer:
		switch n := v.(type) {
		case int:
			return int64(n), nil
		case int8:
			return int64(n), nil
		case int16:
			return int64(n), nil
		case int32:
			return int64(n), nil
		case int64:
			return n, nil
		case uint8:
			return int64(n), nil
		case uint16:
			return int64(n), nil
		case uint32:
			return int64(n), nil
		case float32:
			return integralFloat(float64(n))
		case float64:
			return integralFloat(n)
		}
	case Real:
		switch n := v.(type) {
		case int:
			return float64(n), nil
		case int8:
			return float64(n), nil
		case int16:
			return float64(n), nil
		case int32:
			return float64(n), nil
		case int64:
			return float64(n), nil
		case uint8:
			return float64(n), nil
		case uint16:
			return float64(n), nil
		case uint32:
			return float64(n), nil
		case float32:
			return finiteFloat(float64(n))
		case float64:
			return finiteFloat(n)
		}
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidDatatype, string(d))
	}
	return nil, fmt.Errorf("%w: %T for %s", ErrValueType, v, d)
}

func integralFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, fmt.Errorf("%w: %v for %s", ErrValueType, f, Integer)
	}
	return int64(f), nil
}

func finiteFloat(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("%w: %v for %s", ErrValueType, f, Real)
	}
	return f, nil
}

// Metric is a catalog entry.
type Metric struct {
	Name     string   `json:"name"`
	Kind     string   `json:"kind"`
	Unit     string   `json:"unit"`
	Datatype Datatype `json:"datatype"`
}

// Summary is the short catalog listing returned to clients.
type Summary struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// Reading is one sampled value for a metric.
type Reading struct {
	Metric string
	Time   time.Time
	Value  any
}

// Point is one (time, value) pair of a series.
type Point struct {
	Time  time.Time
	Value float64
}

// Series is a sequence of points in strictly increasing time order.
type Series []Point

// FormatTime renders t in the stored layout, truncated to the second in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a stored timestamp as UTC.
func ParseTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(TimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}
