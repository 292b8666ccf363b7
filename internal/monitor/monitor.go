package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/meteo-core/internal/infrastructure/config"
	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

// DefaultMedianSamples is the number of reads taken for a median sensor.
const DefaultMedianSamples = 5

// Logger defines the logging interface used by the monitor.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Sample is one successful reading collected during a pass.
type Sample struct {
	Sensor   string
	Reader   string
	Kind     string
	Unit     string
	Datatype metric.Datatype
	Time     time.Time
	Value    any
}

// Reading converts the sample to a metric.Reading.
func (s Sample) Reading() metric.Reading {
	return metric.Reading{Metric: s.Sensor, Time: s.Time, Value: s.Value}
}

// Float returns the sample value as float64. Values are already coerced
// to int64 or float64 by the pass.
func (s Sample) Float() float64 {
	switch v := s.Value.(type) {
	case int64:
		return float64(v)
	case float64:
		return v
	}
	return 0
}

// Sink receives the samples of each pass.
type Sink interface {
	Name() string
	Write(ctx context.Context, samples []Sample) error
}

// Registrar is implemented by sinks that need to know a metric before
// its first sample arrives.
type Registrar interface {
	Register(ctx context.Context, m metric.Metric) error
}

// PassResult summarises one pass.
type PassResult struct {
	ID        string
	Started   time.Time
	Duration  time.Duration
	Collected int
	Failed    int
}

// Config holds the collaborators of a Monitor.
type Config struct {
	// Registry holds the attached readers. Required.
	Registry *sensor.Registry

	// Sinks receive every pass in order. The first one is the primary
	// storage backend.
	Sinks []Sink

	// MedianSamples is the number of reads for a median sensor.
	// Values below 3 fall back to DefaultMedianSamples.
	MedianSamples int

	// Metrics is optional.
	Metrics *Metrics

	// Logger is optional.
	Logger Logger

	// Now overrides the clock in tests.
	Now func() time.Time
}

// Monitor performs single sampling passes.
//
// Sensors are added through Attach or AttachConfigured, which register
// their metrics with every Registrar sink first. A sensor whose metric
// cannot be registered is not sampled.
type Monitor struct {
	registry      *sensor.Registry
	sinks         []Sink
	medianSamples int
	metrics       *Metrics
	logger        Logger
	now           func() time.Time

	mu      sync.RWMutex
	sensors []sensor.Sensor
}

// New creates a Monitor.
func New(cfg Config) *Monitor {
	m := &Monitor{
		registry:      cfg.Registry,
		sinks:         cfg.Sinks,
		medianSamples: cfg.MedianSamples,
		metrics:       cfg.Metrics,
		logger:        cfg.Logger,
		now:           cfg.Now,
	}
	if m.registry == nil {
		m.registry = sensor.NewRegistry()
	}
	if m.medianSamples < 3 {
		m.medianSamples = DefaultMedianSamples
	}
	if m.logger == nil {
		m.logger = noopLogger{}
	}
	if m.now == nil {
		m.now = time.Now
	}
	return m
}

// Registry returns the reader registry.
func (m *Monitor) Registry() *sensor.Registry {
	return m.registry
}

// Attach attaches a reader and primes its metrics.
func (m *Monitor) Attach(ctx context.Context, name string, dev sensor.Device, descs []sensor.Descriptor) error {
	reader, err := m.registry.Attach(name, dev, descs)
	if reader == nil {
		return err
	}
	return errors.Join(err, m.prime(ctx, reader.Sensors))
}

// AttachConfigured opens, attaches and primes every configured reader.
// Readers that fail are reported in the returned error and skipped.
func (m *Monitor) AttachConfigured(ctx context.Context, readers []config.ReaderConfig, open sensor.Opener) error {
	before := len(m.registry.Readers())
	err := m.registry.AttachConfigured(readers, open)

	var added []sensor.Sensor
	for _, r := range m.registry.Readers()[before:] {
		added = append(added, r.Sensors...)
	}
	return errors.Join(err, m.prime(ctx, added))
}

// prime registers each sensor's metric and enables the ones that succeed.
func (m *Monitor) prime(ctx context.Context, sensors []sensor.Sensor) error {
	var errs []error
	for _, s := range sensors {
		if err := m.register(ctx, s.Metric()); err != nil {
			m.logger.Error("registering metric failed, sensor disabled",
				"reader", s.Reader,
				"sensor", s.Name,
				"error", err,
			)
			errs = append(errs, err)
			continue
		}

		m.mu.Lock()
		m.sensors = append(m.sensors, s)
		m.mu.Unlock()
	}
	return errors.Join(errs...)
}

func (m *Monitor) register(ctx context.Context, mt metric.Metric) error {
	for _, sink := range m.sinks {
		r, ok := sink.(Registrar)
		if !ok {
			continue
		}
		if err := r.Register(ctx, mt); err != nil {
			return fmt.Errorf("sink %s: %w", sink.Name(), err)
		}
	}
	return nil
}

// Sensors returns the sensors sampled by each pass, in attachment order.
func (m *Monitor) Sensors() []sensor.Sensor {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]sensor.Sensor, len(m.sensors))
	copy(out, m.sensors)
	return out
}

// Run performs one pass.
//
// Every enabled sensor is read in attachment order. Each sample is
// stamped when its own read succeeds, truncated to the second in UTC.
// Sensor failures are logged and skipped. Collected samples are then
// written to every sink; a failing sink does not stop the others, and
// the returned error joins their failures.
func (m *Monitor) Run(ctx context.Context) (PassResult, error) {
	result := PassResult{ID: uuid.NewString(), Started: m.now()}
	sensors := m.Sensors()

	samples := make([]Sample, 0, len(sensors))
	for _, s := range sensors {
		value, err := m.sample(ctx, s)
		if err != nil {
			result.Failed++
			m.metrics.failure(s.Name)
			m.logger.Error("sensor read failed",
				"pass_id", result.ID,
				"reader", s.Reader,
				"sensor", s.Name,
				"error", err,
			)
			continue
		}

		samples = append(samples, Sample{
			Sensor:   s.Name,
			Reader:   s.Reader,
			Kind:     s.Kind,
			Unit:     s.Unit,
			Datatype: s.Datatype,
			Time:     m.now().UTC().Truncate(time.Second),
			Value:    value,
		})
	}
	result.Collected = len(samples)

	var errs []error
	if len(samples) > 0 {
		for _, sink := range m.sinks {
			if err := sink.Write(ctx, samples); err != nil {
				m.logger.Error("sink write failed",
					"pass_id", result.ID,
					"sink", sink.Name(),
					"error", err,
				)
				errs = append(errs, fmt.Errorf("%w: %s: %w", ErrSinkFailed, sink.Name(), err))
			}
		}
	}

	result.Duration = m.now().Sub(result.Started)
	m.metrics.pass(result)

	m.logger.Info("pass complete",
		"pass_id", result.ID,
		"collected", result.Collected,
		"failed", result.Failed,
		"duration", result.Duration,
	)
	return result, errors.Join(errs...)
}

// sample reads s once, or medianSamples times for a median sensor, and
// coerces the value to the sensor's datatype.
func (m *Monitor) sample(ctx context.Context, s sensor.Sensor) (any, error) {
	var raw any
	if s.UseMedian {
		values := make([]any, 0, m.medianSamples)
		for range m.medianSamples {
			v, err := s.Read(ctx)
			if err != nil {
				return nil, err
			}
			values = append(values, v)
		}
		raw = values[medianIndex(len(values))]
	} else {
		v, err := s.Read(ctx)
		if err != nil {
			return nil, err
		}
		raw = v
	}

	value, err := s.Datatype.Coerce(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", sensor.ErrReadFailed, s.Name, err)
	}
	return value, nil
}

// medianIndex returns the index kept from n raw, unsorted samples.
//
// This is n/2+1, one past the middle, taken from the samples in read
// order. It is not a true median.
func medianIndex(n int) int {
	return n/2 + 1
}
