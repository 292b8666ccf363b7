package sensor

import (
	"context"
	"fmt"

	"github.com/nerrad567/meteo-core/internal/infrastructure/config"
	"github.com/nerrad567/meteo-core/internal/metric"
)

// Field names a readable quantity of a device, e.g. "temperature".
type Field string

// ReadFunc reads one value. args are the descriptor's positional
// arguments, passed through untouched.
type ReadFunc func(ctx context.Context, args []string) (any, error)

// Capability is one entry of a device's field table.
type Capability struct {
	Read     ReadFunc
	Datatype metric.Datatype

	// Kind and Unit are used when the descriptor leaves them empty.
	Kind string
	Unit string
}

// Device is anything that can be sampled.
//
// Fields must return the same table on every call. Devices that hold
// resources may also implement io.Closer.
type Device interface {
	Fields() map[Field]Capability
}

// Descriptor configures one metric produced by a reader.
type Descriptor struct {
	Name      string
	Field     Field
	Kind      string
	Unit      string
	Datatype  metric.Datatype
	Args      []string
	UseMedian bool
}

// DescriptorFromConfig converts a sensor entry of config.yaml.
func DescriptorFromConfig(c config.SensorConfig) Descriptor {
	return Descriptor{
		Name:      c.Name,
		Field:     Field(c.Field),
		Kind:      c.Kind,
		Unit:      c.Unit,
		Datatype:  metric.Datatype(c.Datatype),
		Args:      append([]string(nil), c.Args...),
		UseMedian: c.UseMedian,
	}
}

// Sensor is a descriptor resolved against its device.
type Sensor struct {
	Descriptor

	// Reader is the name of the reader the sensor belongs to.
	Reader string

	read ReadFunc
}

// Metric returns the catalog entry this sensor writes to.
func (s Sensor) Metric() metric.Metric {
	return metric.Metric{
		Name:     s.Name,
		Kind:     s.Kind,
		Unit:     s.Unit,
		Datatype: s.Datatype,
	}
}

// Read invokes the sensor's field once. Failures, including panics in the
// driver, are returned wrapped in ErrReadFailed.
func (s Sensor) Read(ctx context.Context) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			value, err = nil, fmt.Errorf("%w: %s.%s: panic: %v", ErrReadFailed, s.Reader, s.Field, r)
		}
	}()

	value, err = s.read(ctx, s.Args)
	if err != nil {
		return nil, fmt.Errorf("%w: %s.%s: %w", ErrReadFailed, s.Reader, s.Field, err)
	}
	return value, nil
}

// Reader is an attached device with its resolved sensors.
type Reader struct {
	Name    string
	Device  Device
	Sensors []Sensor
}
