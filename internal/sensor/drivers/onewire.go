package drivers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/nerrad567/meteo-core/internal/metric"
	"github.com/nerrad567/meteo-core/internal/sensor"
)

const defaultW1Dir = "/sys/bus/w1/devices"

// powerOnReset is the value a DS18B20 reports before its first conversion.
const powerOnReset = 85000

var (
	crcLinePattern  = regexp.MustCompile(`^(\w\w )*: crc=(\w+) (?P<status>\w+)$`)
	tempLinePattern = regexp.MustCompile(`^(\w\w )*t=(?P<milli>-?\d+)$`)
)

// DS18B20 reads 1-wire temperature probes through the w1-therm sysfs files.
// The probe id (e.g. "28-0000075565f1") is the sensor's first argument.
//
// Options:
//   - base_dir: sysfs devices directory (default /sys/bus/w1/devices)
type DS18B20 struct {
	baseDir string
}

// NewDS18B20 creates the device.
func NewDS18B20(options map[string]string) *DS18B20 {
	return &DS18B20{baseDir: option(options, "base_dir", defaultW1Dir)}
}

// Fields implements sensor.Device.
func (d *DS18B20) Fields() map[sensor.Field]sensor.Capability {
	return map[sensor.Field]sensor.Capability{
		"temperature": {
			Read:     d.readTemperature,
			Datatype: metric.Real,
			Kind:     "temperature",
			Unit:     "°C",
		},
	}
}

func (d *DS18B20) readTemperature(_ context.Context, args []string) (any, error) {
	if len(args) != 1 || args[0] == "" || strings.ContainsAny(args[0], `/\`) {
		return nil, fmt.Errorf("ds18b20: expected one probe id argument, got %q", args)
	}

	data, err := os.ReadFile(filepath.Join(d.baseDir, args[0], "w1_slave"))
	if err != nil {
		return nil, fmt.Errorf("ds18b20: %w", err)
	}
	return parseW1Slave(string(data))
}

// parseW1Slave extracts the temperature from a w1_slave file:
//
//	72 01 4b 46 7f ff 0e 10 57 : crc=57 YES
//	72 01 4b 46 7f ff 0e 10 57 t=23125
func parseW1Slave(content string) (float64, error) {
	lines := strings.Split(strings.TrimSpace(content), "\n")
	if len(lines) < 2 {
		return 0, errors.New("ds18b20: truncated w1_slave")
	}

	m := crcLinePattern.FindStringSubmatch(strings.TrimSpace(lines[0]))
	if m == nil || m[crcLinePattern.SubexpIndex("status")] != "YES" {
		return 0, errors.New("ds18b20: crc check failed")
	}

	m = tempLinePattern.FindStringSubmatch(strings.TrimSpace(lines[1]))
	if m == nil {
		return 0, fmt.Errorf("ds18b20: no temperature in %q", lines[1])
	}
	milli, err := strconv.Atoi(m[tempLinePattern.SubexpIndex("milli")])
	if err != nil {
		return 0, fmt.Errorf("ds18b20: %w", err)
	}
	if milli >= powerOnReset {
		return 0, fmt.Errorf("ds18b20: power-on reset value %d", milli)
	}
	return float64(milli) * 1e-3, nil
}
