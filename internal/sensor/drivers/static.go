package drivers

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

// Static is a device whose fields return fixed values. Every option is a
// field: integer literals become INTEGER fields, anything else parsing as
// a float becomes REAL.
//
//	options:
//	  temperature: "21.5"
//	  count: "2"
type Static struct {
	fields map[sensor.Field]sensor.Capability
}

// NewStatic creates the device from its options.
func NewStatic(options map[string]string) (*Static, error) {
	fields := make(map[sensor.Field]sensor.Capability, len(options))
	for name, raw := range options {
		var value any
		var datatype metric.Datatype
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			value, datatype = n, metric.Integer
		} else if f, err := strconv.ParseFloat(raw, 64); err == nil {
			value, datatype = f, metric.Real
		} else {
			return nil, fmt.Errorf("static: field %q: %q is not a number", name, raw)
		}

		fields[sensor.Field(name)] = sensor.Capability{
			Read:     func(context.Context, []string) (any, error) { return value, nil },
			Datatype: datatype,
		}
	}
	return &Static{fields: fields}, nil
}

// Fields implements sensor.Device.
func (s *Static) Fields() map[sensor.Field]sensor.Capability {
	return s.fields
}
