package query

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/resample"
)

func at(hms string) time.Time {
	t, err := time.Parse("2006-01-02 15:04:05", "2026-03-01 "+hms)
	if err != nil {
		panic(err)
	}
	return t
}

// setupTestStore returns a store holding metric "temp" with readings
// (10:00:00, 20.0) and (10:01:00, 22.0).
func setupTestStore(t *testing.T) *metric.SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	store := metric.NewSQLiteStore(db)
	if err := store.EnsureCatalog(ctx); err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	if err := store.RegisterMetric(ctx, metric.Metric{Name: "temp", Kind: "temperature", Unit: "°C", Datatype: metric.Real}); err != nil {
		t.Fatalf("RegisterMetric() error = %v", err)
	}
	for _, r := range []metric.Reading{
		{Metric: "temp", Time: at("10:00:00"), Value: 20.0},
		{Metric: "temp", Time: at("10:01:00"), Value: 22.0},
	} {
		if err := store.WriteReading(ctx, r); err != nil {
			t.Fatalf("WriteReading() error = %v", err)
		}
	}
	return store
}

func values(rs []Reading) []float64 {
	out := make([]float64, len(rs))
	for i, r := range rs {
		out[i] = r.Value
	}
	return out
}

func TestGetAvailableStreams(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})

	streams, err := svc.GetAvailableStreams(context.Background())
	if err != nil {
		t.Fatalf("GetAvailableStreams() error = %v", err)
	}
	want := []metric.Summary{{Name: "temp", Kind: "temperature"}}
	if !reflect.DeepEqual(streams, want) {
		t.Errorf("GetAvailableStreams() = %v, want %v", streams, want)
	}
}

func TestGetStream_Raw(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})

	result, err := svc.GetStream(context.Background(), []string{"temp"}, at("09:59:00"), at("10:02:00"))
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}

	stream, ok := result.Data["temp"]
	if !ok {
		t.Fatal("GetStream() missing temp")
	}
	if stream.Metadata.Unit != "°C" || stream.Metadata.Datatype != metric.Real {
		t.Errorf("Metadata = %+v", stream.Metadata)
	}
	if got := values(stream.Readings); !reflect.DeepEqual(got, []float64{20, 22}) {
		t.Errorf("Readings = %v, want [20 22]", got)
	}
}

// An unknown metric alongside a valid one yields a partial result.
func TestGetStream_PartialFailure(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})

	result, err := svc.GetStream(context.Background(), []string{"temp", "temp2"}, at("09:59:00"), at("10:02:00"))
	if err != nil {
		t.Fatalf("GetStream() error = %v, want partial result", err)
	}
	if len(result.Data["temp"].Readings) != 2 {
		t.Errorf("temp readings = %d, want 2", len(result.Data["temp"].Readings))
	}
	if _, ok := result.Data["temp2"]; ok {
		t.Error("temp2 present in Data")
	}
	if !errors.Is(result.Failures["temp2"], metric.ErrUnknownMetric) {
		t.Errorf("Failures[temp2] = %v, want ErrUnknownMetric", result.Failures["temp2"])
	}
}

func TestGetStream_AllFailed(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})

	_, err := svc.GetStream(context.Background(), []string{"temp2", "wind"}, at("09:59:00"), at("10:02:00"))
	if !errors.Is(err, ErrAllFailed) {
		t.Errorf("GetStream() error = %v, want ErrAllFailed", err)
	}
	if !errors.Is(err, metric.ErrUnknownMetric) {
		t.Errorf("GetStream() error = %v, want ErrUnknownMetric wrapped", err)
	}
}

func TestGetStream_InvalidRequest(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})
	ctx := context.Background()

	if _, err := svc.GetStream(ctx, nil, at("10:00:00"), at("10:01:00")); !errors.Is(err, ErrNoMetrics) {
		t.Errorf("GetStream(nil) error = %v, want ErrNoMetrics", err)
	}
	if _, err := svc.GetStream(ctx, []string{"temp"}, at("10:01:00"), at("10:00:00")); !errors.Is(err, ErrInvalidRange) {
		t.Errorf("GetStream(end<start) error = %v, want ErrInvalidRange", err)
	}
}

func TestGetStream_Resampled(t *testing.T) {
	tests := []struct {
		name  string
		freq  time.Duration
		start time.Time
		end   time.Time
		want  []float64
	}{
		{"single point truncated", time.Minute, at("10:00:30"), at("10:00:30"), []float64{20}},
		{"start truncated to minute", 30 * time.Second, at("10:00:10"), at("10:01:00"), []float64{20, 21, 22}},
		{"missing points dropped", time.Minute, at("09:59:00"), at("10:02:00"), []float64{20, 22}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewService(setupTestStore(t), Options{Resample: true, Frequency: tt.freq})

			result, err := svc.GetStream(context.Background(), []string{"temp"}, tt.start, tt.end)
			if err != nil {
				t.Fatalf("GetStream() error = %v", err)
			}
			got := values(result.Data["temp"].Readings)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Readings = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGetStream_ResampleRaise(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{Resample: true, Frequency: time.Minute, Fill: resample.FillRaise})

	_, err := svc.GetStream(context.Background(), []string{"temp"}, at("09:59:00"), at("10:01:00"))
	if !errors.Is(err, resample.ErrOutOfRange) {
		t.Errorf("GetStream() error = %v, want ErrOutOfRange", err)
	}
}

func TestResult_JSON(t *testing.T) {
	svc := NewService(setupTestStore(t), Options{})

	result, err := svc.GetStream(context.Background(), []string{"temp"}, at("10:00:00"), at("10:00:00"))
	if err != nil {
		t.Fatalf("GetStream() error = %v", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"data":{"temp":{"metadata":{"name":"temp","kind":"temperature","unit":"°C","datatype":"REAL"},` +
		`"readings":[[1772359200000,20]]}}}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant %s", data, want)
	}
}

func TestReading_MarshalJSON(t *testing.T) {
	r := Reading{Time: time.UnixMilli(1_700_000_000_123), Value: 21.5}
	got, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(got) != "[1700000000123,21.5]" {
		t.Errorf("Marshal() = %s", got)
	}
}

func TestReading_MarshalJSONNonFinite(t *testing.T) {
	result := Result{Data: map[string]Stream{
		"x": {
			Metadata: metric.Metric{Name: "x", Datatype: metric.Real},
			Readings: []Reading{
				{Time: time.UnixMilli(1000), Value: math.Inf(1)},
				{Time: time.UnixMilli(2000), Value: math.Inf(-1)},
				{Time: time.UnixMilli(3000), Value: math.NaN()},
				{Time: time.UnixMilli(4000), Value: 1.5},
			},
		},
	}}

	data, err := json.Marshal(result)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	want := `{"data":{"x":{"metadata":{"name":"x","kind":"","unit":"","datatype":"REAL"},` +
		`"readings":[[1000,null],[2000,null],[3000,null],[4000,1.5]]}}}`
	if string(data) != want {
		t.Errorf("JSON = %s\nwant %s", data, want)
	}
}

func TestParseNames(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"a,b", []string{"a", "b"}},
		{" a , ,b,", []string{"a", "b"}},
		{"", nil},
	}
	for _, tt := range tests {
		if got := ParseNames(tt.in); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseNames(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
