package sensor

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/nerrad567/meteo-core/internal/infrastructure/config"
	"github.com/nerrad567/meteo-core/internal/metric"
)

// Logger defines the logging interface used by the Registry.
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

// Opener builds a Device from a driver name and its options.
type Opener func(driver string, options map[string]string) (Device, error)

// Registry holds the attached readers in attachment order.
//
// Readers are attached before sampling starts; there is no detach.
// All public methods are thread-safe.
type Registry struct {
	mu      sync.RWMutex
	readers []*Reader
	names   map[string]string // sensor name -> reader name
	logger  Logger
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		names:  make(map[string]string),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// Attach appends a reader built from dev and its descriptors.
//
// Each descriptor is resolved independently. Invalid descriptors are
// dropped and reported in the returned error; the valid ones are still
// attached, so the returned Reader is non-nil whenever at least one
// sensor resolved.
func (r *Registry) Attach(name string, dev Device, descs []Descriptor) (*Reader, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: reader name is required", ErrInvalidDescriptor)
	}
	if dev == nil {
		return nil, fmt.Errorf("%w: reader %q has no device", ErrInvalidDescriptor, name)
	}

	fields := dev.Fields()

	r.mu.Lock()
	defer r.mu.Unlock()

	reader := &Reader{Name: name, Device: dev}
	var errs []error
	for _, d := range descs {
		s, err := r.resolve(name, fields, d)
		if err != nil {
			r.logger.Error("sensor descriptor rejected", "reader", name, "sensor", d.Name, "field", d.Field, "error", err)
			errs = append(errs, err)
			continue
		}
		r.names[s.Name] = name
		reader.Sensors = append(reader.Sensors, s)
	}

	if len(reader.Sensors) == 0 {
		if len(errs) == 0 {
			errs = append(errs, fmt.Errorf("%w: reader %q has no sensors", ErrInvalidDescriptor, name))
		}
		return nil, errors.Join(errs...)
	}

	r.readers = append(r.readers, reader)
	r.logger.Info("reader attached", "reader", name, "sensors", len(reader.Sensors))
	return reader, errors.Join(errs...)
}

// resolve validates d against the device's field table. Caller holds mu.
func (r *Registry) resolve(reader string, fields map[Field]Capability, d Descriptor) (Sensor, error) {
	if strings.TrimSpace(d.Name) == "" {
		return Sensor{}, fmt.Errorf("%w: reader %q: sensor name is required", ErrInvalidDescriptor, reader)
	}
	if owner, taken := r.names[d.Name]; taken {
		return Sensor{}, fmt.Errorf("%w: sensor %q already attached to reader %q", ErrInvalidDescriptor, d.Name, owner)
	}

	capability, ok := fields[d.Field]
	if !ok || capability.Read == nil {
		return Sensor{}, fmt.Errorf("%w: sensor %q: reader %q has no field %q", ErrUnknownField, d.Name, reader, d.Field)
	}

	if d.Datatype == "" {
		d.Datatype = capability.Datatype
	}
	datatype, err := metric.ParseDatatype(string(d.Datatype))
	if err != nil {
		return Sensor{}, fmt.Errorf("%w: sensor %q: %w", ErrInvalidDescriptor, d.Name, err)
	}
	d.Datatype = datatype

	if d.Kind == "" {
		d.Kind = capability.Kind
	}
	if d.Unit == "" {
		d.Unit = capability.Unit
	}

	return Sensor{Descriptor: d, Reader: reader, read: capability.Read}, nil
}

// AttachConfigured opens and attaches every reader from configuration.
// A reader that cannot be opened or attached is reported and skipped;
// the others are still attached.
func (r *Registry) AttachConfigured(readers []config.ReaderConfig, open Opener) error {
	var errs []error
	for _, rc := range readers {
		dev, err := open(rc.Driver, rc.Options)
		if err != nil {
			r.logger.Error("opening reader failed", "reader", rc.Name, "driver", rc.Driver, "error", err)
			errs = append(errs, fmt.Errorf("reader %q: %w", rc.Name, err))
			continue
		}

		descs := make([]Descriptor, 0, len(rc.Sensors))
		for _, sc := range rc.Sensors {
			descs = append(descs, DescriptorFromConfig(sc))
		}
		if _, err := r.Attach(rc.Name, dev, descs); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Readers returns the attached readers in attachment order.
func (r *Registry) Readers() []*Reader {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Reader, len(r.readers))
	copy(out, r.readers)
	return out
}

// Sensors returns every attached sensor in reader, then descriptor, order.
func (r *Registry) Sensors() []Sensor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Sensor
	for _, reader := range r.readers {
		out = append(out, reader.Sensors...)
	}
	return out
}

// Close releases devices that hold resources.
func (r *Registry) Close() error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, reader := range r.readers {
		if c, ok := reader.Device.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, fmt.Errorf("closing reader %q: %w", reader.Name, err))
			}
		}
	}
	return errors.Join(errs...)
}
