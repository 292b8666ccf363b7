package drivers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

const defaultVcgencmd = "/opt/vc/bin/vcgencmd"

// BoardTemperature reads the Raspberry Pi SoC temperature.
//
// Options:
//   - command: path to vcgencmd (default /opt/vc/bin/vcgencmd)
type BoardTemperature struct {
	command string
	run     runFunc
}

// NewBoardTemperature creates the device.
func NewBoardTemperature(options map[string]string) *BoardTemperature {
	return &BoardTemperature{
		command: option(options, "command", defaultVcgencmd),
		run:     runCommand,
	}
}

// Fields implements sensor.Device.
func (b *BoardTemperature) Fields() map[sensor.Field]sensor.Capability {
	return map[sensor.Field]sensor.Capability{
		"temperature": {
			Read:     b.readTemperature,
			Datatype: metric.Real,
			Kind:     "temperature",
			Unit:     "°C",
		},
	}
}

func (b *BoardTemperature) readTemperature(ctx context.Context, _ []string) (any, error) {
	out, err := b.run(ctx, b.command, "measure_temp")
	if err != nil {
		return nil, err
	}
	return parseMeasureTemp(string(out))
}

// parseMeasureTemp parses output of the form "temp=48.3'C".
func parseMeasureTemp(out string) (float64, error) {
	s := strings.TrimSpace(out)
	rest, ok := strings.CutPrefix(s, "temp=")
	if !ok {
		return 0, fmt.Errorf("unexpected vcgencmd output %q", s)
	}
	rest, ok = strings.CutSuffix(rest, "'C")
	if !ok {
		return 0, fmt.Errorf("unexpected vcgencmd output %q", s)
	}
	v, err := strconv.ParseFloat(rest, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing vcgencmd temperature %q: %w", rest, err)
	}
	return v, nil
}
