package monitor

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

// countingRunner counts passes and signals each one.
type countingRunner struct {
	passes atomic.Int32
	ran    chan struct{}
}

func newCountingRunner() *countingRunner {
	return &countingRunner{ran: make(chan struct{}, 100)}
}

func (r *countingRunner) Run(context.Context) (PassResult, error) {
	r.passes.Add(1)
	select {
	case r.ran <- struct{}{}:
	default:
	}
	return PassResult{}, nil
}

func (r *countingRunner) waitPass(t *testing.T) {
	t.Helper()
	select {
	case <-r.ran:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a pass")
	}
}

func TestContinuous_StartStop(t *testing.T) {
	runner := newCountingRunner()
	loop := NewContinuous(runner, 10*time.Millisecond)

	if loop.State() != StateIdle {
		t.Fatalf("initial State() = %s, want idle", loop.State())
	}
	if !loop.Start(context.Background()) {
		t.Fatal("Start() = false, want true")
	}
	if loop.Start(context.Background()) {
		t.Error("second Start() = true, want no-op")
	}
	if !loop.Running() {
		t.Error("Running() = false after Start")
	}

	runner.waitPass(t)
	runner.waitPass(t)

	loop.Stop()
	if loop.State() != StateIdle {
		t.Errorf("State() after Stop = %s, want idle", loop.State())
	}

	stopped := runner.passes.Load()
	time.Sleep(50 * time.Millisecond)
	if got := runner.passes.Load(); got != stopped {
		t.Errorf("passes continued after Stop: %d -> %d", stopped, got)
	}

	// Stopping an idle loop does nothing.
	loop.Stop()
}

func TestContinuous_Restart(t *testing.T) {
	runner := newCountingRunner()
	loop := NewContinuous(runner, 10*time.Millisecond)

	for i := 0; i < 2; i++ {
		if !loop.Start(context.Background()) {
			t.Fatalf("Start() #%d = false", i+1)
		}
		runner.waitPass(t)
		loop.Stop()
	}
}

func TestContinuous_SetInterval(t *testing.T) {
	loop := NewContinuous(newCountingRunner(), time.Minute)

	if err := loop.SetInterval(0); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("SetInterval(0) error = %v, want ErrInvalidInterval", err)
	}
	if err := loop.SetInterval(-time.Second); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("SetInterval(-1s) error = %v, want ErrInvalidInterval", err)
	}
	if err := loop.SetInterval(5 * time.Second); err != nil {
		t.Fatalf("SetInterval(5s) error = %v", err)
	}
	if got := loop.Interval(); got != 5*time.Second {
		t.Errorf("Interval() = %s, want 5s", got)
	}
}

func TestContinuous_SetIntervalWhileRunning(t *testing.T) {
	runner := newCountingRunner()
	loop := NewContinuous(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop.Start(ctx)
	runner.waitPass(t)

	if err := loop.SetInterval(time.Millisecond); err != nil {
		t.Fatalf("SetInterval() error = %v", err)
	}
	if got := loop.Interval(); got != time.Millisecond {
		t.Errorf("Interval() = %s, want 1ms", got)
	}
}

func TestContinuous_ContextCancel(t *testing.T) {
	runner := newCountingRunner()
	loop := NewContinuous(runner, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	loop.Start(ctx)
	runner.waitPass(t)

	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for loop.State() != StateIdle {
		if time.Now().After(deadline) {
			t.Fatalf("State() = %s after cancel, want idle", loop.State())
		}
		time.Sleep(time.Millisecond)
	}

	loop.Stop()
	if err := loop.SetInterval(time.Millisecond); err != nil {
		t.Fatalf("SetInterval() error = %v", err)
	}
	if !loop.Start(context.Background()) {
		t.Fatal("Start() after cancel = false, want true")
	}
	runner.waitPass(t)
	loop.Stop()
}

func TestContinuous_Run(t *testing.T) {
	runner := newCountingRunner()
	loop := NewContinuous(runner, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	runner.waitPass(t)
	if err := loop.Run(ctx); !errors.Is(err, ErrAlreadyRunning) {
		t.Errorf("second Run() error = %v, want ErrAlreadyRunning", err)
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}
	if loop.State() != StateIdle {
		t.Errorf("State() = %s, want idle", loop.State())
	}
}

func TestContinuous_CancelMidPassStoresReadings(t *testing.T) {
	store := setupTestStore(t)
	mon := New(Config{Sinks: []Sink{NewStoreSink(store, nil)}})

	started := make(chan struct{})
	var once sync.Once
	slowRead := func(ctx context.Context, _ []string) (any, error) {
		once.Do(func() { close(started) })
		select {
		case <-time.After(200 * time.Millisecond):
			return 21.5, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	dev := fakeDevice{
		"temperature": {Read: slowRead, Datatype: metric.Real, Kind: "temperature"},
	}
	if err := mon.Attach(context.Background(), "station", dev, []sensor.Descriptor{
		{Name: "outside", Field: "temperature"},
	}); err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	loop := NewContinuous(mon, time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- loop.Run(ctx) }()

	select {
	case <-started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for the read to start")
	}
	cancel()

	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run() did not return after cancel")
	}

	series, err := store.ReadRange(context.Background(), "outside",
		time.Now().Add(-time.Hour), time.Now().Add(time.Hour))
	if err != nil {
		t.Fatalf("ReadRange() error = %v", err)
	}
	if len(series) != 1 || series[0].Value != 21.5 {
		t.Errorf("stored series = %+v, want the in-flight reading 21.5", series)
	}
}

func TestContinuous_RunInvalidInterval(t *testing.T) {
	loop := NewContinuous(newCountingRunner(), 0)
	if err := loop.Run(context.Background()); !errors.Is(err, ErrInvalidInterval) {
		t.Errorf("Run() error = %v, want ErrInvalidInterval", err)
	}
	if loop.Start(context.Background()) {
		t.Error("Start() with zero interval = true, want false")
	}
}

func TestState_String(t *testing.T) {
	tests := map[State]string{
		StateIdle:     "idle",
		StateRunning:  "running",
		StateStopping: "stopping",
		State(9):      "state(9)",
	}
	for s, want := range tests {
		if got := s.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", int32(s), got, want)
		}
	}
}
