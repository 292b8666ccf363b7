package monitor

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

type logEntry struct {
	level string
	msg   string
	args  []any
}

func (e logEntry) attr(key string) any {
	for i := 0; i+1 < len(e.args); i += 2 {
		if e.args[i] == key {
			return e.args[i+1]
		}
	}
	return nil
}

// recordingLogger keeps every entry for assertions.
type recordingLogger struct {
	mu      sync.Mutex
	entries []logEntry
}

func (l *recordingLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, logEntry{level: level, msg: msg, args: args})
}

func (l *recordingLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *recordingLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *recordingLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *recordingLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *recordingLogger) find(msg string) []logEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	var out []logEntry
	for _, e := range l.entries {
		if e.msg == msg {
			out = append(out, e)
		}
	}
	return out
}

// memorySink records every batch it receives.
type memorySink struct {
	mu      sync.Mutex
	batches [][]Sample
	err     error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Write(_ context.Context, samples []Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]Sample(nil), samples...))
	return s.err
}

func (s *memorySink) last() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.batches) == 0 {
		return nil
	}
	return s.batches[len(s.batches)-1]
}

type fakeDevice map[sensor.Field]sensor.Capability

func (d fakeDevice) Fields() map[sensor.Field]sensor.Capability { return d }

func returns(v any) sensor.ReadFunc {
	return func(context.Context, []string) (any, error) { return v, nil }
}

func fails(msg string) sensor.ReadFunc {
	return func(context.Context, []string) (any, error) { return nil, errors.New(msg) }
}

// sequence returns values in order, repeating the last one.
func sequence(values ...any) sensor.ReadFunc {
	var mu sync.Mutex
	i := 0
	return func(context.Context, []string) (any, error) {
		mu.Lock()
		defer mu.Unlock()
		v := values[min(i, len(values)-1)]
		i++
		return v, nil
	}
}

func setupTestStore(t *testing.T) *metric.SQLiteStore {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() {
		db.Close()
	})

	store := metric.NewSQLiteStore(db)
	if err := store.EnsureCatalog(context.Background()); err != nil {
		t.Fatalf("EnsureCatalog() error = %v", err)
	}
	return store
}

func TestRun_PartialFailure(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	logger := &recordingLogger{}

	mon := New(Config{
		Sinks:  []Sink{NewStoreSink(store, logger)},
		Logger: logger,
	})

	dev := fakeDevice{
		"temperature": {Read: returns(21.5), Datatype: metric.Real, Kind: "temperature"},
		"pressure":    {Read: fails("i2c read timeout"), Datatype: metric.Real, Kind: "pressure"},
		"count":       {Read: returns(3), Datatype: metric.Integer, Kind: "presence"},
	}
	err := mon.Attach(ctx, "station", dev, []sensor.Descriptor{
		{Name: "s1", Field: "temperature"},
		{Name: "s2", Field: "pressure"},
		{Name: "s3", Field: "count"},
	})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	result, err := mon.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Collected != 2 || result.Failed != 1 {
		t.Errorf("Run() = %+v, want 2 collected, 1 failed", result)
	}
	if result.ID == "" {
		t.Error("pass ID is empty")
	}

	window := time.Now().Add(-time.Hour)
	for _, name := range []string{"s1", "s3"} {
		series, err := store.ReadRange(ctx, name, window, time.Now().Add(time.Hour))
		if err != nil {
			t.Fatalf("ReadRange(%s) error = %v", name, err)
		}
		if len(series) != 1 {
			t.Errorf("ReadRange(%s) = %d points, want 1", name, len(series))
		}
	}
	series, err := store.ReadRange(ctx, "s2", window, time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadRange(s2) error = %v", err)
	}
	if len(series) != 0 {
		t.Errorf("ReadRange(s2) = %d points, want 0", len(series))
	}

	failures := logger.find("sensor read failed")
	if len(failures) != 1 {
		t.Fatalf("logged %d sensor failures, want 1", len(failures))
	}
	if got := failures[0].attr("sensor"); got != "s2" {
		t.Errorf("failure logged for sensor %v, want s2", got)
	}
	if got := failures[0].attr("pass_id"); got != result.ID {
		t.Errorf("failure pass_id = %v, want %s", got, result.ID)
	}
}

func TestRun_MedianIndex(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	mon := New(Config{Sinks: []Sink{sink}})

	// Raw reads 5, 1, 4, 2, 3: index 5/2+1 = 3 keeps 2. The true median is 3.
	dev := fakeDevice{"count": {Read: sequence(5, 1, 4, 2, 3), Datatype: metric.Integer}}
	if err := mon.Attach(ctx, "wifi", dev, []sensor.Descriptor{
		{Name: "people", Field: "count", UseMedian: true},
	}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if _, err := mon.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := sink.last()
	if len(got) != 1 {
		t.Fatalf("got %d samples, want 1", len(got))
	}
	if got[0].Value != int64(2) {
		t.Errorf("median sample = %v, want 2 (index n/2+1 of unsorted reads)", got[0].Value)
	}
}

func TestMedianIndex(t *testing.T) {
	tests := []struct {
		n    int
		want int
	}{
		{3, 2},
		{5, 3},
		{6, 4},
		{7, 4},
	}
	for _, tt := range tests {
		if got := medianIndex(tt.n); got != tt.want {
			t.Errorf("medianIndex(%d) = %d, want %d", tt.n, got, tt.want)
		}
	}
}

func TestRun_MedianReadFailure(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	mon := New(Config{Sinks: []Sink{sink}, MedianSamples: 3})

	calls := 0
	dev := fakeDevice{"count": {Datatype: metric.Integer, Read: func(context.Context, []string) (any, error) {
		calls++
		if calls == 2 {
			return nil, errors.New("scan aborted")
		}
		return 1, nil
	}}}
	if err := mon.Attach(ctx, "wifi", dev, []sensor.Descriptor{{Name: "people", Field: "count", UseMedian: true}}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	result, _ := mon.Run(ctx)
	if result.Failed != 1 || result.Collected != 0 {
		t.Errorf("Run() = %+v, want the sensor to fail", result)
	}
	if calls != 2 {
		t.Errorf("read %d times, want to stop at the first failure", calls)
	}
}

func TestRun_TimestampsPerReading(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}

	var mu sync.Mutex
	clock := time.Date(2026, 3, 1, 10, 0, 0, 400_000_000, time.FixedZone("CET", 3600))
	now := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		clock = clock.Add(time.Second)
		return clock
	}

	mon := New(Config{Sinks: []Sink{sink}, Now: now})
	dev := fakeDevice{"temperature": {Read: returns(20.0), Datatype: metric.Real}}
	if err := mon.Attach(ctx, "board", dev, []sensor.Descriptor{
		{Name: "a", Field: "temperature"},
		{Name: "b", Field: "temperature"},
	}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if _, err := mon.Run(ctx); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	got := sink.last()
	if len(got) != 2 {
		t.Fatalf("got %d samples, want 2", len(got))
	}
	if !got[0].Time.Before(got[1].Time) {
		t.Errorf("samples share a timestamp: %v, %v", got[0].Time, got[1].Time)
	}
	for _, s := range got {
		if s.Time.Location() != time.UTC || s.Time.Nanosecond() != 0 {
			t.Errorf("sample time %v not truncated to the second in UTC", s.Time)
		}
	}
}

func TestRun_CoercionFailure(t *testing.T) {
	ctx := context.Background()
	sink := &memorySink{}
	logger := &recordingLogger{}
	mon := New(Config{Sinks: []Sink{sink}, Logger: logger})

	dev := fakeDevice{"count": {Read: returns(2.5), Datatype: metric.Integer}}
	if err := mon.Attach(ctx, "wifi", dev, []sensor.Descriptor{{Name: "people", Field: "count"}}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	result, err := mon.Run(ctx)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if result.Failed != 1 {
		t.Errorf("Failed = %d, want 1", result.Failed)
	}
	if len(sink.batches) != 0 {
		t.Error("sinks called for a pass with no samples")
	}
	failures := logger.find("sensor read failed")
	if len(failures) != 1 {
		t.Fatalf("logged %d failures, want 1", len(failures))
	}
	if err, _ := failures[0].attr("error").(error); !errors.Is(err, metric.ErrValueType) {
		t.Errorf("logged error = %v, want ErrValueType", err)
	}
}

func TestRun_SinkFailureIsolated(t *testing.T) {
	ctx := context.Background()
	broken := &memorySink{err: errors.New("disk full")}
	healthy := &memorySink{}
	mon := New(Config{Sinks: []Sink{broken, healthy}})

	dev := fakeDevice{"temperature": {Read: returns(20.0), Datatype: metric.Real}}
	if err := mon.Attach(ctx, "board", dev, []sensor.Descriptor{{Name: "t", Field: "temperature"}}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	_, err := mon.Run(ctx)
	if !errors.Is(err, ErrSinkFailed) {
		t.Errorf("Run() error = %v, want ErrSinkFailed", err)
	}
	if len(healthy.last()) != 1 {
		t.Error("healthy sink did not receive the pass")
	}
}

// failingRegistrar rejects one metric name.
type failingRegistrar struct {
	memorySink
	reject string
}

func (r *failingRegistrar) Register(_ context.Context, m metric.Metric) error {
	if m.Name == r.reject {
		return metric.ErrDatatypeConflict
	}
	return nil
}

func TestAttach_RegistrationFailureDisablesSensor(t *testing.T) {
	ctx := context.Background()
	sink := &failingRegistrar{reject: "bad"}
	mon := New(Config{Sinks: []Sink{sink}})

	dev := fakeDevice{"temperature": {Read: returns(20.0), Datatype: metric.Real}}
	err := mon.Attach(ctx, "board", dev, []sensor.Descriptor{
		{Name: "good", Field: "temperature"},
		{Name: "bad", Field: "temperature"},
	})
	if !errors.Is(err, metric.ErrDatatypeConflict) {
		t.Errorf("Attach() error = %v, want ErrDatatypeConflict", err)
	}

	sensors := mon.Sensors()
	if len(sensors) != 1 || sensors[0].Name != "good" {
		t.Fatalf("Sensors() = %v, want only good", sensors)
	}

	result, _ := mon.Run(ctx)
	if result.Collected != 1 {
		t.Errorf("Collected = %d, want 1", result.Collected)
	}
}

func TestAttach_StoreRejectsConflictingDatatype(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	if err := store.RegisterMetric(ctx, metric.Metric{Name: "t", Datatype: metric.Integer}); err != nil {
		t.Fatalf("RegisterMetric() error = %v", err)
	}

	mon := New(Config{Sinks: []Sink{NewStoreSink(store, nil)}})
	dev := fakeDevice{"temperature": {Read: returns(20.0), Datatype: metric.Real}}
	err := mon.Attach(ctx, "board", dev, []sensor.Descriptor{{Name: "t", Field: "temperature"}})
	if err == nil {
		t.Fatal("Attach() succeeded for a metric registered with another datatype")
	}
	if len(mon.Sensors()) != 0 {
		t.Error("sensor enabled despite registration failure")
	}
}
