package monitor

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// State is the lifecycle state of a Continuous loop.
type State int32

// Loop states.
const (
	StateIdle State = iota
	StateRunning
	StateStopping
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Runner performs one pass.
type Runner interface {
	Run(ctx context.Context) (PassResult, error)
}

// Continuous repeats a pass on a fixed interval.
//
// Exactly one background goroutine runs while the state is Running.
// Start and Stop are idempotent and safe for concurrent use.
type Continuous struct {
	runner   Runner
	logger   Logger
	interval atomic.Int64 // nanoseconds
	state    atomic.Int32

	// mu serialises Start and Stop.
	mu   sync.Mutex
	done chan struct{}
}

// NewContinuous creates an idle loop around runner.
func NewContinuous(runner Runner, interval time.Duration) *Continuous {
	c := &Continuous{
		runner: runner,
		logger: noopLogger{},
	}
	c.interval.Store(int64(interval))
	return c
}

// SetLogger sets the logger for the loop.
func (c *Continuous) SetLogger(logger Logger) {
	c.logger = logger
}

// SetInterval changes the sleep between passes. While running it takes
// effect at the next sleep.
func (c *Continuous) SetInterval(d time.Duration) error {
	if d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	c.interval.Store(int64(d))
	return nil
}

// Interval returns the current sleep between passes.
func (c *Continuous) Interval() time.Duration {
	return time.Duration(c.interval.Load())
}

// State returns the current lifecycle state.
func (c *Continuous) State() State {
	return State(c.state.Load())
}

// Running reports whether the loop is running.
func (c *Continuous) Running() bool {
	return c.State() == StateRunning
}

// Start launches the background loop. It returns false, doing nothing,
// when the loop is already running or the interval is not positive.
//
// Cancelling ctx ends the loop as well, including mid-sleep. A pass in
// progress still runs to completion.
func (c *Continuous) Start(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.State() != StateIdle {
		return false
	}
	if c.Interval() <= 0 {
		c.logger.Error("monitor not started", "error", ErrInvalidInterval, "interval", c.Interval())
		return false
	}

	c.state.Store(int32(StateRunning))
	c.done = make(chan struct{})
	go c.loop(ctx, c.done)

	c.logger.Info("monitor started", "interval", c.Interval())
	return true
}

// Stop asks the loop to exit and waits until it has. The current pass
// and sleep are allowed to finish. Stop on an idle loop does nothing.
func (c *Continuous) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateStopping)) {
		if c.done != nil {
			<-c.done
		}
		return
	}

	<-c.done
	c.state.Store(int32(StateIdle))
	c.logger.Info("monitor stopped")
}

// Run starts the loop and blocks until ctx is cancelled, then stops it
// once the pass in progress has been stored.
func (c *Continuous) Run(ctx context.Context) error {
	if d := c.Interval(); d <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidInterval, d)
	}
	if !c.Start(ctx) {
		return ErrAlreadyRunning
	}
	<-ctx.Done()
	c.Stop()
	return nil
}

// loop runs passes until stopped. A pass is never interrupted: it runs
// on a context detached from ctx, whose cancellation only ends the sleep.
func (c *Continuous) loop(ctx context.Context, done chan struct{}) {
	defer close(done)

	passCtx := context.WithoutCancel(ctx)
	for c.Running() {
		if ctx.Err() != nil {
			c.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))
			return
		}
		if _, err := c.runner.Run(passCtx); err != nil {
			c.logger.Debug("pass finished with errors", "error", err)
		}
		if !c.Running() {
			break
		}

		timer := time.NewTimer(c.Interval())
		select {
		case <-ctx.Done():
			timer.Stop()
			c.state.CompareAndSwap(int32(StateRunning), int32(StateIdle))
			return
		case <-timer.C:
		}
	}
}
